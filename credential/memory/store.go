// Package memory provides a process-local credential.Store for tests and the
// development server.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/wordleapi/wordauth/credential"
	"github.com/wordleapi/wordauth/password"
)

type entry struct {
	record credential.UserRecord
	roles  []string
}

// Store keeps accounts in maps guarded by a RWMutex.
type Store struct {
	hasher *password.Hasher

	mu     sync.RWMutex
	byName map[string]*entry
	byID   map[string]*entry
}

var (
	_ credential.Store     = (*Store)(nil)
	_ credential.Registrar = (*Store)(nil)
)

// New returns an empty Store that hashes and verifies passwords with hasher.
func New(hasher *password.Hasher) *Store {
	return &Store{
		hasher: hasher,
		byName: make(map[string]*entry),
		byID:   make(map[string]*entry),
	}
}

// FindByUsername returns the record whose username matches exactly.
func (s *Store) FindByUsername(ctx context.Context, username string) (credential.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return credential.UserRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byName[username]
	if !ok {
		return credential.UserRecord{}, credential.ErrUserNotFound
	}
	return e.record, nil
}

// CheckPassword verifies plaintext against the record's stored hash.
func (s *Store) CheckPassword(ctx context.Context, user credential.UserRecord, plaintext string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return credential.CheckPassword(s.hasher, user, plaintext)
}

// GetRoles returns a copy of the user's roles in grant order.
func (s *Store) GetRoles(ctx context.Context, user credential.UserRecord) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byID[user.ID]
	if !ok {
		return nil, credential.ErrUserNotFound
	}
	return append([]string(nil), e.roles...), nil
}

// Create hashes input.Password and stores a new account with a UUID id.
func (s *Store) Create(ctx context.Context, input credential.CreateUserInput) (credential.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return credential.UserRecord{}, err
	}
	if strings.TrimSpace(input.Username) == "" {
		return credential.UserRecord{}, fmt.Errorf("create user: username is required")
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

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[record.Username]; exists {
		return credential.UserRecord{}, credential.ErrUserExists
	}
	e := &entry{record: record, roles: append([]string(nil), input.Roles...)}
	s.byName[record.Username] = e
	s.byID[record.ID] = e

	return record, nil
}

// AddRole appends role to the user's grants. Duplicates are kept.
func (s *Store) AddRole(ctx context.Context, userID, role string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[userID]
	if !ok {
		return credential.ErrUserNotFound
	}
	e.roles = append(e.roles, role)
	return nil
}

// Len returns the number of stored accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
