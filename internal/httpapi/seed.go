package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wordleapi/wordauth/credential"
)

// SeedUser is one account in a seed file.
type SeedUser struct {
	Username            string   `yaml:"username"`
	Password            string   `yaml:"password"`
	Name                string   `yaml:"name"`
	Birthday            string   `yaml:"birthday"`
	MasterOfTheUniverse bool     `yaml:"master_of_the_universe"`
	Roles               []string `yaml:"roles"`
}

type seedFile struct {
	Users []SeedUser `yaml:"users"`
}

// ParseSeed decodes a YAML seed document.
//
//	users:
//	  - username: admin@example.com
//	    password: s3cret-pass
//	    name: Admin
//	    birthday: 1990-01-01
//	    roles: [Admin]
func ParseSeed(r io.Reader) ([]credential.CreateUserInput, error) {
	var doc seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	out := make([]credential.CreateUserInput, 0, len(doc.Users))
	for i, u := range doc.Users {
		if u.Username == "" || u.Password == "" {
			return nil, fmt.Errorf("seed user %d: username and password are required", i)
		}
		var birthday time.Time
		if u.Birthday != "" {
			b, err := parseBirthday(u.Birthday)
			if err != nil {
				return nil, fmt.Errorf("seed user %s: %w", u.Username, err)
			}
			birthday = b
		}
		out = append(out, credential.CreateUserInput{
			Username:            u.Username,
			Password:            u.Password,
			Name:                u.Name,
			Birthday:            birthday,
			MasterOfTheUniverse: u.MasterOfTheUniverse,
			Roles:               append([]string(nil), u.Roles...),
		})
	}
	return out, nil
}

// LoadSeedFile reads and parses the seed file at path.
func LoadSeedFile(path string) ([]credential.CreateUserInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()
	return ParseSeed(f)
}

// ApplySeed creates every user. Existing usernames are skipped so seeding is
// repeatable against persistent stores.
func ApplySeed(ctx context.Context, reg credential.Registrar, users []credential.CreateUserInput, logger *slog.Logger) (int, error) {
	created := 0
	for _, u := range users {
		_, err := reg.Create(ctx, u)
		switch {
		case err == nil:
			created++
		case errors.Is(err, credential.ErrUserExists):
			logger.DebugContext(ctx, "seed user exists", slog.String("username", u.Username))
		default:
			return created, fmt.Errorf("seed %s: %w", u.Username, err)
		}
	}
	logger.InfoContext(ctx, "seed applied", slog.Int("created", created), slog.Int("total", len(users)))
	return created, nil
}
