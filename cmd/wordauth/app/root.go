// Package app provides the wordauth command tree.
package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/wordleapi/wordauth"
	"github.com/wordleapi/wordauth/internal/config"
)

// NewRootCmd creates the root command with its subcommands. Every command
// shares one viper instance so flags, the config file and WORDAUTH_*
// variables resolve the same way.
func NewRootCmd() *cobra.Command {
	v := config.NewViper()

	rootCmd := &cobra.Command{
		Use:               "wordauth",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Token service for the word-game API",
		Long: `wordauth issues HS512 bearer tokens for registered players and
guards the demonstration endpoints by role and by named policy.`,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
	mustBind(v, "log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	mustBind(v, "log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(newServeCmd(v))
	rootCmd.AddCommand(newHashPasswordCmd(v))

	return rootCmd
}

func loadConfig(cmd *cobra.Command, v *viper.Viper) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(v, path)
}

func loadHashConfig(cmd *cobra.Command, v *viper.Viper) (wordauth.PasswordConfig, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return wordauth.PasswordConfig{}, err
	}
	cfg, err := config.Decode(v, path)
	if err != nil {
		return wordauth.PasswordConfig{}, err
	}
	return cfg.Engine().Password, nil
}

func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}
