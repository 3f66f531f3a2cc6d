// Package postgres implements credential.Store on PostgreSQL through the pgx
// stdlib driver. Schema changes ship as embedded goose migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wordleapi/wordauth/credential"
	"github.com/wordleapi/wordauth/password"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgInvalidText         = "22P02"
)

// Store is a PostgreSQL-backed credential store.
type Store struct {
	db     *sql.DB
	hasher *password.Hasher
}

var (
	_ credential.Store     = (*Store)(nil)
	_ credential.Registrar = (*Store)(nil)
)

// New returns a Store on db. The pool is owned by the caller.
func New(db *sql.DB, hasher *password.Hasher) *Store {
	return &Store{db: db, hasher: hasher}
}

// FindByUsername loads the account with the exact username.
func (s *Store) FindByUsername(ctx context.Context, username string) (credential.UserRecord, error) {
	query :=
		`SELECT id, username, password_hash, name, birthday, master_of_the_universe
		 FROM users
		 WHERE username = $1`

	var (
		record   credential.UserRecord
		birthday sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&record.ID,
		&record.Username,
		&record.PasswordHash,
		&record.Name,
		&birthday,
		&record.MasterOfTheUniverse,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return credential.UserRecord{}, credential.ErrUserNotFound
		}
		return credential.UserRecord{}, fmt.Errorf("%w: db error: %v", credential.ErrStoreUnavailable, err)
	}
	if birthday.Valid {
		record.Birthday = birthday.Time
	}

	return record, nil
}

// CheckPassword verifies plaintext against the record's stored hash.
func (s *Store) CheckPassword(_ context.Context, user credential.UserRecord, plaintext string) (bool, error) {
	return credential.CheckPassword(s.hasher, user, plaintext)
}

// GetRoles returns the user's roles in grant order.
func (s *Store) GetRoles(ctx context.Context, user credential.UserRecord) ([]string, error) {
	query :=
		`SELECT role FROM user_roles
		 WHERE user_id = $1
		 ORDER BY position`

	rows, err := s.db.QueryContext(ctx, query, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: db error: %v", credential.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("%w: db error: %v", credential.ErrStoreUnavailable, err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: db error: %v", credential.ErrStoreUnavailable, err)
	}

	return roles, nil
}

// Create inserts the account and its initial roles in one transaction.
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

	err = withTx(ctx, s.db, func(ctx context.Context, tx DBTX) error {
		if err := insertUser(ctx, tx, record); err != nil {
			return err
		}
		for _, role := range input.Roles {
			if err := insertRole(ctx, tx, record.ID, role); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return credential.UserRecord{}, credential.ErrUserExists
		}
		return credential.UserRecord{}, fmt.Errorf("%w: db error: %v", credential.ErrStoreUnavailable, err)
	}

	return record, nil
}

// AddRole appends role to the user's grants.
func (s *Store) AddRole(ctx context.Context, userID, role string) error {
	if err := insertRole(ctx, s.db, userID, role); err != nil {
		if isPgCode(err, pgForeignKeyViolation) || isPgCode(err, pgInvalidText) {
			return credential.ErrUserNotFound
		}
		return fmt.Errorf("%w: db error: %v", credential.ErrStoreUnavailable, err)
	}
	return nil
}

func insertUser(ctx context.Context, db DBTX, record credential.UserRecord) error {
	query :=
		`INSERT INTO users (id, username, password_hash, name, birthday, master_of_the_universe)
		 VALUES ($1, $2, $3, $4, $5, $6)`

	var birthday sql.NullTime
	if !record.Birthday.IsZero() {
		birthday = sql.NullTime{Time: record.Birthday, Valid: true}
	}

	_, err := db.ExecContext(ctx, query,
		record.ID, record.Username, record.PasswordHash, record.Name, birthday, record.MasterOfTheUniverse)
	return err
}

func insertRole(ctx context.Context, db DBTX, userID, role string) error {
	query := `INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`
	_, err := db.ExecContext(ctx, query, userID, role)
	return err
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
