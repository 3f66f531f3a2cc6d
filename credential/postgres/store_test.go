package postgres

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wordleapi/wordauth/credential"
	"github.com/wordleapi/wordauth/password"
)

const (
	selectUserQ = `(?s)^SELECT\s+id,\s*username,\s*password_hash,\s*name,\s*birthday,\s*master_of_the_universe\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1$`
	selectRoleQ = `(?s)^SELECT\s+role\s+FROM\s+user_roles\s+WHERE\s+user_id\s*=\s*\$1\s+ORDER\s+BY\s+position$`
	insertUserQ = `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*username,\s*password_hash,\s*name,\s*birthday,\s*master_of_the_universe\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)$`
	insertRoleQ = `(?s)^INSERT\s+INTO\s+user_roles\s*\(user_id,\s*role\)\s*VALUES\s*\(\$1,\s*\$2\)$`
)

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	h, err := password.NewHasher(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	return New(db, h), mock, db
}

func TestFindByUsername_Found(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	birthday := time.Date(1990, 4, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "name", "birthday", "master_of_the_universe"}).
		AddRow("u-1", "meg@example.com", "$argon2id$hash", "Meg", birthday, true)
	mock.ExpectQuery(selectUserQ).WithArgs("meg@example.com").WillReturnRows(rows)

	got, err := s.FindByUsername(context.Background(), "meg@example.com")
	if err != nil {
		t.Fatalf("FindByUsername error: %v", err)
	}
	if got.ID != "u-1" || got.Name != "Meg" || !got.MasterOfTheUniverse || !got.Birthday.Equal(birthday) {
		t.Fatalf("unexpected record: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindByUsername_NullBirthday(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "name", "birthday", "master_of_the_universe"}).
		AddRow("u-1", "meg@example.com", "$argon2id$hash", "", nil, false)
	mock.ExpectQuery(selectUserQ).WithArgs("meg@example.com").WillReturnRows(rows)

	got, err := s.FindByUsername(context.Background(), "meg@example.com")
	if err != nil {
		t.Fatalf("FindByUsername error: %v", err)
	}
	if !got.Birthday.IsZero() {
		t.Fatalf("expected zero birthday, got %v", got.Birthday)
	}
}

func TestFindByUsername_NotFound(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectUserQ).WithArgs("ghost@example.com").WillReturnError(sql.ErrNoRows)

	_, err := s.FindByUsername(context.Background(), "ghost@example.com")
	if !errors.Is(err, credential.ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
}

func TestFindByUsername_DBError(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectUserQ).WithArgs("meg@example.com").WillReturnError(errors.New("db down"))

	_, err := s.FindByUsername(context.Background(), "meg@example.com")
	if !errors.Is(err, credential.ErrStoreUnavailable) {
		t.Fatalf("want ErrStoreUnavailable, got %v", err)
	}
}

func TestGetRoles_Ordered(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"role"}).AddRow("Admin").AddRow("Meg").AddRow("Admin")
	mock.ExpectQuery(selectRoleQ).WithArgs("u-1").WillReturnRows(rows)

	roles, err := s.GetRoles(context.Background(), credential.UserRecord{ID: "u-1"})
	if err != nil {
		t.Fatalf("GetRoles error: %v", err)
	}
	if len(roles) != 3 || roles[0] != "Admin" || roles[1] != "Meg" || roles[2] != "Admin" {
		t.Fatalf("unexpected roles %v", roles)
	}
}

func TestGetRoles_DBError(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectRoleQ).WithArgs("u-1").WillReturnError(errors.New("db err"))

	if _, err := s.GetRoles(context.Background(), credential.UserRecord{ID: "u-1"}); !errors.Is(err, credential.ErrStoreUnavailable) {
		t.Fatalf("want ErrStoreUnavailable, got %v", err)
	}
}

func TestCreate_CommitsUserAndRoles(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(insertUserQ).
		WithArgs(sqlmock.AnyArg(), "meg@example.com", sqlmock.AnyArg(), "Meg", sqlmock.AnyArg(), false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertRoleQ).WithArgs(sqlmock.AnyArg(), "Admin").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertRoleQ).WithArgs(sqlmock.AnyArg(), "Meg").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := s.Create(context.Background(), credential.CreateUserInput{
		Username: "meg@example.com",
		Password: "Secret123!",
		Name:     "Meg",
		Roles:    []string{"Admin", "Meg"},
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID == "" || got.PasswordHash == "" {
		t.Fatalf("unexpected record %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DuplicateRollsBack(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(insertUserQ).WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})
	mock.ExpectRollback()

	_, err := s.Create(context.Background(), credential.CreateUserInput{Username: "meg@example.com", Password: "Secret123!"})
	if !errors.Is(err, credential.ErrUserExists) {
		t.Fatalf("want ErrUserExists, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_RoleFailureRollsBack(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(insertUserQ).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertRoleQ).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := s.Create(context.Background(), credential.CreateUserInput{
		Username: "meg@example.com",
		Password: "Secret123!",
		Roles:    []string{"Admin"},
	})
	if !errors.Is(err, credential.ErrStoreUnavailable) {
		t.Fatalf("want ErrStoreUnavailable, got %v", err)
	}
}

func TestAddRole(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertRoleQ).WithArgs("u-1", "Admin").WillReturnResult(sqlmock.NewResult(0, 1))
	if err := s.AddRole(context.Background(), "u-1", "Admin"); err != nil {
		t.Fatalf("AddRole error: %v", err)
	}

	mock.ExpectExec(insertRoleQ).WithArgs("u-2", "Admin").WillReturnError(&pgconn.PgError{Code: pgForeignKeyViolation})
	if err := s.AddRole(context.Background(), "u-2", "Admin"); !errors.Is(err, credential.ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
}

func TestCheckPasswordUsesStoredHash(t *testing.T) {
	s, _, db := newStoreWithMock(t)
	defer db.Close()

	hash, err := s.hasher.Hash("Secret123!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := credential.UserRecord{ID: "u-1", PasswordHash: hash}

	ok, err := s.CheckPassword(context.Background(), user, "Secret123!")
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
	ok, err = s.CheckPassword(context.Background(), user, "wrong")
	if err != nil || ok {
		t.Fatalf("expected mismatch, ok=%v err=%v", ok, err)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	migrationFS, err := Migrations()
	if err != nil {
		t.Fatalf("Migrations error: %v", err)
	}
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) == 0 || entries[0].Name() != "00001_create_users.sql" {
		t.Fatalf("unexpected migrations %v", entries)
	}
}
