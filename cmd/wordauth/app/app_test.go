package app

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordleapi/wordauth"
	"github.com/wordleapi/wordauth/credential"
	"github.com/wordleapi/wordauth/credential/memory"
	"github.com/wordleapi/wordauth/internal/config"
	"github.com/wordleapi/wordauth/internal/logging"
	"github.com/wordleapi/wordauth/password"
)

func testHasher(t *testing.T) *password.Hasher {
	t.Helper()
	h, err := password.NewHasher(password.Config{
		Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	})
	require.NoError(t, err)
	return h
}

func TestHashPasswordFromArg(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"hash-password", "correct-horse"})
	require.NoError(t, cmd.Execute())

	encoded := strings.TrimSpace(out.String())
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$"))

	ok, err := testHasher(t).Verify("correct-horse", encoded)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashPasswordFromStdin(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("correct-horse\n"))
	cmd.SetArgs([]string{"hash-password"})
	require.NoError(t, cmd.Execute())

	ok, err := testHasher(t).Verify("correct-horse", strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashPasswordRejectsShortInput(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"hash-password", "abc"})
	assert.ErrorIs(t, cmd.Execute(), password.ErrPasswordTooShort)
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"serve", "--store", "cassandra"})
	assert.Error(t, cmd.Execute())
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	h := testHasher(t)
	logger := logging.Discard()

	t.Run("memory", func(t *testing.T) {
		store, closeFn, err := openStore(ctx, config.Config{Store: config.Store{Driver: config.DriverMemory}}, h, logger)
		require.NoError(t, err)
		assert.IsType(t, &memory.Store{}, store)
		assert.NoError(t, closeFn())
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := config.Config{Store: config.Store{Driver: config.DriverRedis, RedisAddr: mr.Addr(), RedisPrefix: "t:"}}

		store, closeFn, err := openStore(ctx, cfg, h, logger)
		require.NoError(t, err)
		defer closeFn()

		_, err = store.Create(ctx, credential.CreateUserInput{Username: "meg@example.com", Password: "correct-horse"})
		require.NoError(t, err)
		assert.True(t, mr.Exists("t:user:meg@example.com"))
	})

	t.Run("redis unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		cfg := config.Config{Store: config.Store{Driver: config.DriverRedis, RedisAddr: addr}}
		_, closeFn, err := openStore(ctx, cfg, h, logger)
		assert.Error(t, err)
		assert.NoError(t, closeFn())
	})

	t.Run("unknown", func(t *testing.T) {
		_, _, err := openStore(ctx, config.Config{Store: config.Store{Driver: "sqlite"}}, h, logger)
		assert.Error(t, err)
	})
}

func TestMetricsHandler(t *testing.T) {
	cfg := wordauth.DefaultConfig()
	cfg.JWT.Secret = []byte(strings.Repeat("s", 64))
	cfg.JWT.Issuer = "wordleapi"
	cfg.JWT.Audience = "wordle-clients"
	cfg.JWT.ExpirationInMinutes = 30

	engine, err := wordauth.New().
		WithConfig(cfg).
		WithCredentialStore(memory.New(testHasher(t))).
		Build()
	require.NoError(t, err)
	defer engine.Close()

	t.Run("native collector", func(t *testing.T) {
		handler, shutdown, err := metricsHandler(engine, false)
		require.NoError(t, err)
		defer func() { assert.NoError(t, shutdown(context.Background())) }()

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "wordauth_issue_success_total 0")
		assert.Contains(t, body, "wordauth_verify_latency_seconds_sum")
		assert.Contains(t, body, "go_goroutines")
	})

	t.Run("otel meter provider", func(t *testing.T) {
		handler, shutdown, err := metricsHandler(engine, true)
		require.NoError(t, err)
		defer func() { assert.NoError(t, shutdown(context.Background())) }()

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "wordauth_issue_success_total")
		assert.Contains(t, body, "wordauth_audit_dropped_total")
		assert.Contains(t, body, "go_goroutines")
	})
}
