package app

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newHashPasswordCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the argon2id hash of a password",
		Long: `Print the argon2id PHC string for a password using the configured cost
parameters. Without an argument the password is read from the first line of stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadHashConfig(cmd, v)
			if err != nil {
				return err
			}
			hasher, err := cfg.NewHasher()
			if err != nil {
				return err
			}

			var plaintext string
			if len(args) == 1 {
				plaintext = args[0]
			} else {
				sc := bufio.NewScanner(cmd.InOrStdin())
				if !sc.Scan() {
					if err := sc.Err(); err != nil {
						return fmt.Errorf("read password: %w", err)
					}
					return errors.New("no password on stdin")
				}
				plaintext = strings.TrimRight(sc.Text(), "\r")
			}

			encoded, err := hasher.Hash(plaintext)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return err
		},
	}
}
