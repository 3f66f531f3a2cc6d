package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wordleapi/wordauth/password"
)

var (
	// ErrUserNotFound is returned by FindByUsername when no record matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned by Create when the username is already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrStoreUnavailable wraps backend failures (network, driver, decode).
	ErrStoreUnavailable = errors.New("credential store unavailable")
)

// UserRecord is the account record owned by the credential store.
//
// The auth core treats it as immutable. MasterOfTheUniverse is the privileged
// flag; it is read when assembling claims and never written by the core.
type UserRecord struct {
	ID                  string
	Username            string
	PasswordHash        string
	Name                string
	Birthday            time.Time
	MasterOfTheUniverse bool
}

// Store is the lookup contract the engine consumes on the issue path.
//
// Implementations must be safe for concurrent use. All calls may block on I/O.
type Store interface {
	FindByUsername(ctx context.Context, username string) (UserRecord, error)
	CheckPassword(ctx context.Context, user UserRecord, plaintext string) (bool, error)
	GetRoles(ctx context.Context, user UserRecord) ([]string, error)
}

// CreateUserInput carries the fields needed to register an account.
// Password is plaintext; adapters hash it before persisting.
type CreateUserInput struct {
	Username            string
	Password            string
	Name                string
	Birthday            time.Time
	MasterOfTheUniverse bool
	Roles               []string
}

// Registrar is implemented by adapters that can create accounts and grant roles.
type Registrar interface {
	Create(ctx context.Context, input CreateUserInput) (UserRecord, error)
	AddRole(ctx context.Context, userID, role string) error
}

// PasswordVerifier checks a plaintext password against a stored encoding.
// *password.Hasher satisfies it.
type PasswordVerifier interface {
	Verify(plaintext, encoded string) (bool, error)
}

// CheckPassword is the shared CheckPassword body for adapters. Over-long
// inputs are a mismatch, not a store fault; a malformed stored hash is a
// fault.
func CheckPassword(v PasswordVerifier, user UserRecord, plaintext string) (bool, error) {
	if user.PasswordHash == "" {
		return false, nil
	}
	ok, err := v.Verify(plaintext, user.PasswordHash)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return false, nil
		}
		return false, fmt.Errorf("check password for %q: %w", user.ID, err)
	}
	return ok, nil
}
