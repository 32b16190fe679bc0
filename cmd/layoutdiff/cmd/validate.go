package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/layoutdiff/internal/database"
	"github.com/dbsmedya/layoutdiff/internal/discovery"
	"github.com/dbsmedya/layoutdiff/internal/pipeline"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and version pairs",
	Long: `Validate checks the configuration file and the version pairs it describes
without comparing anything.

Checks performed:
  - Configuration syntax and required fields
  - Comparison policies (global and per pair)
  - Layout files of every configured and discovered pair
  - Store connectivity, when the store is enabled

Example:
  layoutdiff validate --config layoutdiff.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("Starting validation checks...")

	pairs, err := discovery.FromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to discover pairs: %w", err)
	}

	fmt.Fprintf(outputWriter, "\n=== Configuration Validation ===\n")
	fmt.Fprintf(outputWriter, "Config file: %s\n", GetConfigFile())
	fmt.Fprintf(outputWriter, "Pairs found: %d\n\n", len(pairs))

	hasErrors := false
	for _, pair := range pairs {
		fmt.Fprintf(outputWriter, "--- Pair: %s ---\n", pair.Name)
		fmt.Fprintf(outputWriter, "Old: %s\n", pair.Old)
		fmt.Fprintf(outputWriter, "New: %s\n", pair.New)

		if _, err := pipeline.OptionsFromConfig(pair.Comparison, cfg.Output); err != nil {
			fmt.Fprintf(outputWriter, "%s %v\n\n", statusText(false), err)
			hasErrors = true
			continue
		}

		missing := false
		for _, path := range []string{pair.Old, pair.New} {
			if _, err := os.Stat(path); err != nil {
				fmt.Fprintf(outputWriter, "%s %v\n", statusText(false), err)
				missing = true
			}
		}
		if missing {
			fmt.Fprintln(outputWriter)
			hasErrors = true
			continue
		}

		fmt.Fprintf(outputWriter, "%s all checks passed\n\n", statusText(true))
	}

	if cfg.Store.Enabled {
		fmt.Fprintf(outputWriter, "--- Store: %s ---\n", database.BuildDSN(redacted(cfg.Store.Connection)))
		dbManager := database.NewManager(&cfg.Store.Connection)
		if err := dbManager.Connect(commandContext(cmd)); err != nil {
			fmt.Fprintf(outputWriter, "%s %v\n\n", statusText(false), err)
			hasErrors = true
		} else {
			if err := dbManager.Ping(commandContext(cmd)); err != nil {
				fmt.Fprintf(outputWriter, "%s %v\n\n", statusText(false), err)
				hasErrors = true
			} else {
				fmt.Fprintf(outputWriter, "%s connected\n\n", statusText(true))
			}
			_ = dbManager.Close()
		}
	}

	if hasErrors {
		return fmt.Errorf("validation failed for one or more pairs")
	}

	fmt.Fprintln(outputWriter, "=== Validation Complete ===")
	return nil
}
