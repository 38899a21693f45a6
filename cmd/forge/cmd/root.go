// Package cmd implements the CLI commands for the contentforge engine.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"contentforge/internal/forgeconfig"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "forge",
	Short: "Blueprint-driven content generation engine",
	Long: `forge plans, runs and recovers blueprint-driven content generation
builds: a tree of nested blueprint documents describes the producers,
conditions and loops that turn a movie's inputs into a manifest of
generated artifacts.`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format override (text, json)")
}

// loadConfig loads engine configuration, applying any --log-level/--log-format
// override on top of the file/environment layers.
func loadConfig() (*forgeconfig.Config, error) {
	cfg, err := forgeconfig.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = strings.ToLower(logLevel)
	}
	if logFormat != "" {
		cfg.Logging.Format = strings.ToLower(logFormat)
	}
	return cfg, nil
}

// mustBindPFlag binds a viper key to a cobra flag and panics if binding
// fails, matching the teacher's lint-compliant error handling for
// viper.BindPFlag.
func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag %q to key %q: %v", flag.Name, key, err))
	}
}
