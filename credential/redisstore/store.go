// Package redisstore implements credential.Store on Redis.
//
// Layout under the configured prefix:
//
//	<prefix>user:<username>  hash {id, username, password_hash, name, birthday, motu}
//	<prefix>id:<id>          string holding the username
//	<prefix>roles:<id>       list of roles in grant order
//
// Account writes run as Lua scripts over all three keys. On Redis Cluster
// they must share a slot, so the prefix has to carry a hash tag such as
// {wordauth}:. DefaultPrefix does; a plain prefix only works on a single node.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wordleapi/wordauth/credential"
	"github.com/wordleapi/wordauth/password"
)

// DefaultPrefix is used when New is given an empty prefix.
const DefaultPrefix = "{wordauth}:"

const birthdayLayout = "2006-01-02"

// createScript inserts the account only if the username is free.
// KEYS: user hash, id key, roles list. ARGV: id, username, hash, name,
// birthday, motu, roles...
const createScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "id", ARGV[1], "username", ARGV[2], "password_hash", ARGV[3], "name", ARGV[4], "birthday", ARGV[5], "motu", ARGV[6])
redis.call("SET", KEYS[2], ARGV[2])
for i = 7, #ARGV do
  redis.call("RPUSH", KEYS[3], ARGV[i])
end
return 1
`

// addRoleScript appends a role only for an existing account.
const addRoleScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("RPUSH", KEYS[2], ARGV[1])
return 1
`

var (
	createLua  = redis.NewScript(createScript)
	addRoleLua = redis.NewScript(addRoleScript)
)

// Store is a Redis-backed credential store.
type Store struct {
	rdb    redis.UniversalClient
	prefix string
	hasher *password.Hasher
}

var (
	_ credential.Store     = (*Store)(nil)
	_ credential.Registrar = (*Store)(nil)
)

// New returns a Store using rdb. The client is owned by the caller.
func New(rdb redis.UniversalClient, prefix string, hasher *password.Hasher) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{rdb: rdb, prefix: prefix, hasher: hasher}
}

func (s *Store) userKey(username string) string { return s.prefix + "user:" + username }
func (s *Store) idKey(id string) string          { return s.prefix + "id:" + id }
func (s *Store) rolesKey(id string) string       { return s.prefix + "roles:" + id }

// FindByUsername loads the account hash for username.
func (s *Store) FindByUsername(ctx context.Context, username string) (credential.UserRecord, error) {
	fields, err := s.rdb.HGetAll(ctx, s.userKey(username)).Result()
	if err != nil {
		return credential.UserRecord{}, fmt.Errorf("%w: %v", credential.ErrStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return credential.UserRecord{}, credential.ErrUserNotFound
	}
	return decodeRecord(fields)
}

// CheckPassword verifies plaintext against the record's stored hash.
func (s *Store) CheckPassword(_ context.Context, user credential.UserRecord, plaintext string) (bool, error) {
	return credential.CheckPassword(s.hasher, user, plaintext)
}

// GetRoles returns the role list in grant order.
func (s *Store) GetRoles(ctx context.Context, user credential.UserRecord) ([]string, error) {
	roles, err := s.rdb.LRange(ctx, s.rolesKey(user.ID), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", credential.ErrStoreUnavailable, err)
	}
	return roles, nil
}

// Create hashes the password and stores the account atomically.
func (s *Store) Create(ctx context.Context, input credential.CreateUserInput) (credential.UserRecord, error) {
	if input.Username == "" {
		return credential.UserRecord{}, errors.New("create user: username is required")
	}
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return credential.UserRecord{}, fmt.Errorf("create user: %w", err)
	}

	record := credential.UserRecord{
		ID:                  uuid.NewString(),
		Username:            input.Username,
		PasswordHash:        hash,
		Name:                input.Name,
		Birthday:            input.Birthday,
		MasterOfTheUniverse: input.MasterOfTheUniverse,
	}

	args := []any{
		record.ID,
		record.Username,
		record.PasswordHash,
		record.Name,
		encodeBirthday(record.Birthday),
		encodeBool(record.MasterOfTheUniverse),
	}
	for _, r := range input.Roles {
		args = append(args, r)
	}

	keys := []string{s.userKey(record.Username), s.idKey(record.ID), s.rolesKey(record.ID)}
	created, err := createLua.Run(ctx, s.rdb, keys, args...).Int()
	if err != nil {
		return credential.UserRecord{}, fmt.Errorf("%w: %v", credential.ErrStoreUnavailable, err)
	}
	if created == 0 {
		return credential.UserRecord{}, credential.ErrUserExists
	}

	return record, nil
}

// AddRole appends role to the user's list.
func (s *Store) AddRole(ctx context.Context, userID, role string) error {
	added, err := addRoleLua.Run(ctx, s.rdb, []string{s.idKey(userID), s.rolesKey(userID)}, role).Int()
	if err != nil {
		return fmt.Errorf("%w: %v", credential.ErrStoreUnavailable, err)
	}
	if added == 0 {
		return credential.ErrUserNotFound
	}
	return nil
}

func decodeRecord(fields map[string]string) (credential.UserRecord, error) {
	record := credential.UserRecord{
		ID:                  fields["id"],
		Username:            fields["username"],
		PasswordHash:        fields["password_hash"],
		Name:                fields["name"],
		MasterOfTheUniverse: fields["motu"] == "1",
	}
	if record.ID == "" || record.Username == "" {
		return credential.UserRecord{}, fmt.Errorf("%w: corrupt account hash", credential.ErrStoreUnavailable)
	}
	if raw := fields["birthday"]; raw != "" {
		b, err := time.Parse(birthdayLayout, raw)
		if err != nil {
			return credential.UserRecord{}, fmt.Errorf("%w: corrupt birthday: %v", credential.ErrStoreUnavailable, err)
		}
		record.Birthday = b
	}
	return record, nil
}

func encodeBirthday(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(birthdayLayout)
}

func encodeBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
