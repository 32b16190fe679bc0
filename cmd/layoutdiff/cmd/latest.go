package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/layoutdiff/internal/config"
	"github.com/dbsmedya/layoutdiff/internal/store"
)

var latestPair string

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Print the latest stored records of a pair",
	Long: `Latest reads the most recent run of a pair from the result store, checks
the stored records against their report CID and prints them, common objects
first.

The store must be enabled in the configuration.

Example:
  layoutdiff latest --config layoutdiff.yaml --pair vault`,
	RunE: runLatest,
}

func init() {
	latestCmd.Flags().StringVarP(&latestPair, "pair", "p", "",
		"Pair name (required)")
	latestCmd.MarkFlagRequired("pair")

	rootCmd.AddCommand(latestCmd)
}

func runLatest(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	if !cfg.Store.Enabled {
		return fmt.Errorf("store is not enabled in %s", GetConfigFile())
	}

	ctx := commandContext(cmd)
	s, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	run, err := s.Latest(ctx, latestPair)
	if err != nil {
		return err
	}
	return printRun(run)
}

func printRun(run *store.Run) error {
	fmt.Fprintf(errorWriter, "run #%d of %s, %s, cid %s\n",
		run.ID, run.Pair, run.CreatedAt.Format("2006-01-02 15:04:05"), run.ReportCID)
	if _, err := outputWriter.Write(run.CommonObjectsJSON); err != nil {
		return err
	}
	_, err := outputWriter.Write(run.TypesJSON)
	return err
}

// redacted returns a copy of cfg safe for display.
func redacted(cfg config.DatabaseConfig) *config.DatabaseConfig {
	if cfg.Password != "" {
		cfg.Password = "****"
	}
	return &cfg
}
