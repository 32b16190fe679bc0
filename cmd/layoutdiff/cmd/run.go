package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/layoutdiff/internal/config"
	"github.com/dbsmedya/layoutdiff/internal/database"
	"github.com/dbsmedya/layoutdiff/internal/discovery"
	"github.com/dbsmedya/layoutdiff/internal/logger"
	"github.com/dbsmedya/layoutdiff/internal/pipeline"
	"github.com/dbsmedya/layoutdiff/internal/store"
)

var (
	runPairs  []string
	runDryRun bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compare every configured and discovered version pair",
	Long: `Run compares all version pairs from the configuration file: pairs listed
under "pairs" and, when discovery.root is set, every subdirectory of the root
that holds both discovery.old_file and discovery.new_file.

Pairs are processed one after another. A failing pair is reported and the
batch continues. Records are written next to each pair (or into its
output_dir) and, when the store is enabled, saved to MySQL under an advisory
lock named after the pair.

Example:
  layoutdiff run --config layoutdiff.yaml --pair vault --pair token`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringSliceVarP(&runPairs, "pair", "p", nil,
		"Only run the named pairs (repeatable)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false,
		"Compare without writing records or storing runs")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	all, err := discovery.FromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to discover pairs: %w", err)
	}
	pairs, err := discovery.Select(all, runPairs)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return fmt.Errorf("no version pairs configured or discovered")
	}

	log.Infow("Starting run",
		"config", GetConfigFile(),
		"pairs", len(pairs),
		"dry_run", runDryRun,
	)

	ctx, cancel := database.SetupSignalHandler(commandContext(cmd), func(sig os.Signal) {
		log.Warnw("Received shutdown signal - finishing current pair", "signal", sig.String())
	})
	defer cancel()

	var saver pipeline.Saver
	if cfg.Store.Enabled && !runDryRun {
		s, closeStore, err := openStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closeStore()
		saver = s
	}

	runner := pipeline.NewRunner(cfg.Output, newResolver(cfg, log), saver, log)
	runner.DryRun = runDryRun

	batch, err := runner.Run(ctx, pairs)
	if batch != nil {
		printBatch(batch)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Run cancelled by user")
			return nil
		}
		return fmt.Errorf("run failed: %w", err)
	}

	if batch.Failed > 0 {
		return fmt.Errorf("%d of %d pairs failed", batch.Failed, len(batch.Pairs))
	}
	return nil
}

// openStore connects to the result store and prepares its table.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (*store.Store, func(), error) {
	dbManager := database.NewManager(&cfg.Store.Connection)
	if err := dbManager.Connect(ctx); err != nil {
		return nil, nil, err
	}
	closeFn := func() { _ = dbManager.Close() }

	if err := dbManager.Ping(ctx); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("store connection failed: %w", err)
	}

	s, err := store.New(dbManager.DB, cfg.Store.Table, cfg.Store.LockTimeoutSeconds, log)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		closeFn()
		return nil, nil, err
	}
	return s, closeFn, nil
}

func printBatch(batch *pipeline.BatchResult) {
	fmt.Fprintln(outputWriter)
	printHeader("Run Complete")

	results := &table{header: []string{"PAIR", "STATUS", "COMMON", "TYPES", "STORED", "DETAIL"}}
	for _, pr := range batch.Pairs {
		common, types, stored, detail := "-", "-", "-", ""
		if pr.Result != nil {
			common = strconv.Itoa(pr.Result.Stats.CommonObjects)
			types = strconv.Itoa(pr.Result.Stats.MergedTypes)
			detail = pr.Result.ReportCID
		}
		if pr.RunID > 0 {
			stored = fmt.Sprintf("#%d", pr.RunID)
			if !pr.Inserted {
				stored += " (unchanged)"
			}
		}
		if pr.Err != nil {
			detail = pr.Err.Error()
		}
		results.add(pr.Pair.Name, statusPlain(pr.Err == nil), common, types, stored, detail)
	}
	results.render(outputWriter, func(col int, cell string) string {
		if col == 1 {
			return statusColor(cell)
		}
		return cell
	})

	fmt.Fprintln(outputWriter)
	printKV("Succeeded", batch.Succeeded)
	printKV("Failed", batch.Failed)
	printKV("Duration", batch.Duration)
}

