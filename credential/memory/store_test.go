package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wordleapi/wordauth/credential"
	"github.com/wordleapi/wordauth/password"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
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
	return New(h)
}

func TestCreateFindCheckPassword(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, credential.CreateUserInput{
		Username: "meg@example.com",
		Password: "Secret123!",
		Name:     "Meg",
		Birthday: time.Date(1990, 4, 1, 0, 0, 0, 0, time.UTC),
		Roles:    []string{"Admin"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.PasswordHash == "" || created.PasswordHash == "Secret123!" {
		t.Fatalf("unexpected record %+v", created)
	}

	found, err := s.FindByUsername(ctx, "meg@example.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found != created {
		t.Fatalf("found %+v, want %+v", found, created)
	}

	ok, err := s.CheckPassword(ctx, found, "Secret123!")
	if err != nil || !ok {
		t.Fatalf("expected password match, ok=%v err=%v", ok, err)
	}
	ok, err = s.CheckPassword(ctx, found, "wrong")
	if err != nil || ok {
		t.Fatalf("expected mismatch, ok=%v err=%v", ok, err)
	}
}

func TestFindByUsernameNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.FindByUsername(context.Background(), "ghost@example.com"); !errors.Is(err, credential.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestCreateDuplicateUsername(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	in := credential.CreateUserInput{Username: "meg@example.com", Password: "Secret123!"}

	if _, err := s.Create(ctx, in); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create(ctx, in); !errors.Is(err, credential.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 account, got %d", s.Len())
	}
}

func TestCreateRejectsShortPassword(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create(context.Background(), credential.CreateUserInput{Username: "meg@example.com", Password: "abc"})
	if !errors.Is(err, password.ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestRolesKeepOrderAndDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.Create(ctx, credential.CreateUserInput{Username: "meg@example.com", Password: "Secret123!", Roles: []string{"Meg"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, r := range []string{"Admin", "Meg"} {
		if err := s.AddRole(ctx, u.ID, r); err != nil {
			t.Fatalf("add role %s: %v", r, err)
		}
	}

	roles, err := s.GetRoles(ctx, u)
	if err != nil {
		t.Fatalf("get roles: %v", err)
	}
	if len(roles) != 3 || roles[0] != "Meg" || roles[1] != "Admin" || roles[2] != "Meg" {
		t.Fatalf("unexpected roles %v", roles)
	}

	roles[0] = "Mutated"
	again, _ := s.GetRoles(ctx, u)
	if again[0] != "Meg" {
		t.Fatal("GetRoles must return a copy")
	}
}

func TestAddRoleUnknownUser(t *testing.T) {
	s := newTestStore(t)
	if err := s.AddRole(context.Background(), "missing", "Admin"); !errors.Is(err, credential.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.FindByUsername(ctx, "meg@example.com"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestConcurrentCreateSingleWinner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(ctx, credential.CreateUserInput{Username: "race@example.com", Password: "Secret123!"})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one successful create, got %d", wins)
	}
}
