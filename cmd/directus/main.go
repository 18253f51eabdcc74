package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fivetwenty-io/directus-client/cmd/directus/commands"
	"github.com/fivetwenty-io/directus-client/internal/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "directus",
	Short: "Directus headless CMS CLI",
	Long: `A command-line interface for a Directus instance.

Log in once with 'directus login', then list and edit collection items,
files, folders and the activity log of the current host.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.directus/config.yml)")
	rootCmd.PersistentFlags().StringP("host", "H", "", "Directus URL or saved host name")
	rootCmd.PersistentFlags().StringP("token", "t", "", "static access token, overrides the saved session")
	rootCmd.PersistentFlags().StringP("output", "o", constants.FormatTable, "output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log requests and per-endpoint metrics to stderr")
	rootCmd.PersistentFlags().Bool("tls-verify", false, "verify TLS certificates")
	rootCmd.PersistentFlags().Float64("rate-limit", 0, "maximum requests per second, 0 for unlimited")
	rootCmd.PersistentFlags().Int("retry-max", 0, "retries for transient failures")
	rootCmd.PersistentFlags().String("nats-url", "", "NATS server used to share sessions")
	rootCmd.PersistentFlags().String("nats-bucket", "", "NATS key-value bucket for shared sessions")

	// Bind flags to viper
	for key, flag := range map[string]string{
		"config":      "config",
		"host":        "host",
		"token":       "token",
		"output":      "output",
		"verbose":     "verbose",
		"tls_verify":  "tls-verify",
		"rate_limit":  "rate-limit",
		"retry_max":   "retry-max",
		"nats_url":    "nats-url",
		"nats_bucket": "nats-bucket",
	} {
		_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
	}

	// Add commands
	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewLoginCommand())
	rootCmd.AddCommand(commands.NewLogoutCommand())
	rootCmd.AddCommand(commands.NewTokenCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewItemsCommand())
	rootCmd.AddCommand(commands.NewFilesCommand())
	rootCmd.AddCommand(commands.NewFoldersCommand())
	rootCmd.AddCommand(commands.NewActivityCommand())
}

func initConfig() {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, constants.ConfigDirName)
		if err := os.MkdirAll(configDir, constants.ConfigDirPerm); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating config directory: %v\n", err)
		}

		viper.AddConfigPath(configDir)
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match
	viper.SetEnvPrefix(constants.EnvPrefix)
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
