package claims

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/wordleapi/wordauth/credential"
)

// Claim type names as they appear on the wire.
const (
	TypeSubject             = "sub"
	TypeTokenID             = "jti"
	TypeUserID              = "userId"
	TypeUserName            = "userName"
	TypeMasterOfTheUniverse = "masterOfTheUniverse"
	TypeDateOfBirth         = "dateOfBirth"
	TypeRole                = "role"

	// TypeRandom is attached at evaluation time by policy enrichers; it is
	// never signed into a token.
	TypeRandom = "random"
)

// DateOfBirthLayout formats the dateOfBirth claim.
const DateOfBirthLayout = "2006-01-02"

// ErrInvalidUserState is returned by Build when the record cannot yield the
// mandatory claims, most commonly a username without an "@".
var ErrInvalidUserState = errors.New("invalid user state")

// Claim is one typed fact about the authenticated subject.
type Claim struct {
	Type  string
	Value string
}

// Set is the ordered claim sequence produced for one authentication event.
// Duplicate types are allowed and order is significant for equality.
type Set []Claim

// Build assembles the claim set for user and its granted roles.
//
// Output order is sub, jti, userId, userName, masterOfTheUniverse, dateOfBirth,
// then one role claim per entry in roles. Roles are not de-duplicated. The jti
// value is a fresh random UUID on every call.
func Build(user credential.UserRecord, roles []string) (Set, error) {
	name, err := DisplayName(user.Username)
	if err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrInvalidUserState)
	}

	set := make(Set, 0, 6+len(roles))
	set = append(set,
		Claim{Type: TypeSubject, Value: user.Username},
		Claim{Type: TypeTokenID, Value: uuid.NewString()},
		Claim{Type: TypeUserID, Value: user.ID},
		Claim{Type: TypeUserName, Value: name},
		Claim{Type: TypeMasterOfTheUniverse, Value: strconv.FormatBool(user.MasterOfTheUniverse)},
		Claim{Type: TypeDateOfBirth, Value: formatBirthday(user)},
	)
	for _, role := range roles {
		set = append(set, Claim{Type: TypeRole, Value: role})
	}

	return set, nil
}

// DisplayName returns the portion of username before the first "@".
func DisplayName(username string) (string, error) {
	name, _, found := strings.Cut(username, "@")
	if !found {
		return "", fmt.Errorf("%w: username has no '@' separator", ErrInvalidUserState)
	}
	if name == "" {
		return "", fmt.Errorf("%w: username has an empty local part", ErrInvalidUserState)
	}
	return name, nil
}

func formatBirthday(user credential.UserRecord) string {
	if user.Birthday.IsZero() {
		return ""
	}
	return user.Birthday.UTC().Format(DateOfBirthLayout)
}

// First returns the value of the first claim of type t.
func (s Set) First(t string) (string, bool) {
	for _, c := range s {
		if c.Type == t {
			return c.Value, true
		}
	}
	return "", false
}

// Values returns every value of type t in order.
func (s Set) Values(t string) []string {
	var out []string
	for _, c := range s {
		if c.Type == t {
			out = append(out, c.Value)
		}
	}
	return out
}

// Roles returns the role claim values in grant order.
func (s Set) Roles() []string {
	return s.Values(TypeRole)
}

// Has reports whether a claim of type t carries value v.
func (s Set) Has(t, v string) bool {
	for _, c := range s {
		if c.Type == t && c.Value == v {
			return true
		}
	}
	return false
}

// With returns a copy of s with one claim appended. s is never modified.
func (s Set) With(t, v string) Set {
	out := make(Set, len(s), len(s)+1)
	copy(out, s)
	return append(out, Claim{Type: t, Value: v})
}

// Equal reports whether both sets hold the same claims in the same order.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}
