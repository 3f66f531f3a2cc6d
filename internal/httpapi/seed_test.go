package httpapi

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordleapi/wordauth/credential/memory"
	"github.com/wordleapi/wordauth/internal/logging"
	"github.com/wordleapi/wordauth/password"
)

const seedYAML = `
users:
  - username: admin@example.com
    password: correct-horse
    name: Admin
    birthday: "1990-01-02"
    roles: [Admin, Meg]
  - username: boss@example.com
    password: correct-horse
    master_of_the_universe: true
`

func TestParseSeed(t *testing.T) {
	users, err := ParseSeed(strings.NewReader(seedYAML))
	require.NoError(t, err)
	require.Len(t, users, 2)

	assert.Equal(t, "admin@example.com", users[0].Username)
	assert.Equal(t, []string{"Admin", "Meg"}, users[0].Roles)
	assert.Equal(t, time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC), users[0].Birthday)
	assert.True(t, users[1].MasterOfTheUniverse)
	assert.True(t, users[1].Birthday.IsZero())
}

func TestParseSeedErrors(t *testing.T) {
	tests := map[string]string{
		"unknown field":    "users:\n  - username: a@b.c\n    password: pw\n    colour: red\n",
		"missing password": "users:\n  - username: a@b.c\n",
		"bad birthday":     "users:\n  - username: a@b.c\n    password: pw\n    birthday: yesterday\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSeed(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseSeedEmpty(t *testing.T) {
	users, err := ParseSeed(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestApplySeedIsRepeatable(t *testing.T) {
	hasher, err := password.NewHasher(password.Config{
		Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	})
	require.NoError(t, err)
	store := memory.New(hasher)

	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))

	users, err := LoadSeedFile(path)
	require.NoError(t, err)

	created, err := ApplySeed(context.Background(), store, users, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	created, err = ApplySeed(context.Background(), store, users, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Equal(t, 2, store.Len())
}
