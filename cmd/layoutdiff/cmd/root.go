package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/layoutdiff/internal/config"
	"github.com/dbsmedya/layoutdiff/internal/logger"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile         string
	logLevel        string
	logFormat       string
	memberPolicy    string
	matchPolicy     string
	collisionPolicy string
)

var rootCmd = &cobra.Command{
	Use:   "layoutdiff",
	Short: "Solidity storage layout upgrade comparator",
	Long: `Compare the storage layouts of two versions of a Solidity contract and
emit the records a storage migration needs.

Features:
  - Canonical type identifiers across compilations
  - Structural type equality with partial or strict member matching
  - Many-to-many or one-to-one storage slot matching
  - Type graph extraction with Kahn's algorithm migration order
  - Content-addressed reports, optionally stored in MySQL`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "layoutdiff.yaml",
		"Path to configuration file")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Comparison overrides
	rootCmd.PersistentFlags().StringVar(&memberPolicy, "member-policy", "",
		"Override struct member policy (partial, all)")
	rootCmd.PersistentFlags().StringVar(&matchPolicy, "match-policy", "",
		"Override slot match policy (many-to-many, one-to-one)")
	rootCmd.PersistentFlags().StringVar(&collisionPolicy, "collision-policy", "",
		"Override canonical collision policy (replace, error)")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel        string
	LogFormat       string
	MemberPolicy    string
	MatchPolicy     string
	CollisionPolicy string
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:        logLevel,
		LogFormat:       logFormat,
		MemberPolicy:    memberPolicy,
		MatchPolicy:     matchPolicy,
		CollisionPolicy: collisionPolicy,
	}
}

// loadConfig loads the configuration file, falling back to defaults when the
// default file is absent, applies CLI overrides and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	explicit := cmd.Flags().Changed("config")
	cfg, err := config.LoadOrDefault(GetConfigFile(), explicit)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat,
		overrides.MemberPolicy, overrides.MatchPolicy, overrides.CollisionPolicy)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setup loads the configuration and initializes the logger.
func setup(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
