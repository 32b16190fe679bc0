package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/layoutdiff/internal/discovery"
	"github.com/dbsmedya/layoutdiff/internal/format"
	"github.com/dbsmedya/layoutdiff/internal/verifier"
)

var (
	verifyPairs  []string
	verifyMethod string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify written records against the result store",
	Long: `Verify reads the records of each pair from its output directory and checks
them against the latest run stored for that pair.

Methods:
  - cid:   recompute the report CID over both files (default)
  - count: compare the number of common objects and types
  - skip:  do nothing

The store must be enabled in the configuration.

Example:
  layoutdiff verify --config layoutdiff.yaml --method count`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringSliceVarP(&verifyPairs, "pair", "p", nil,
		"Only verify the named pairs (repeatable)")
	verifyCmd.Flags().StringVar(&verifyMethod, "method", "cid",
		"Verification method (cid, count, skip)")

	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	method, err := verifier.ParseMethod(verifyMethod)
	if err != nil {
		return err
	}
	if !cfg.Store.Enabled {
		return fmt.Errorf("store is not enabled in %s", GetConfigFile())
	}

	all, err := discovery.FromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to discover pairs: %w", err)
	}
	pairs, err := discovery.Select(all, verifyPairs)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	s, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	files := format.Files{CommonObjects: cfg.Output.CommonObjectsFile, Types: cfg.Output.TypesFile}
	v, err := verifier.NewVerifier(s, files, method, log)
	if err != nil {
		return err
	}

	stats, verifyErr := v.Verify(ctx, pairs)
	if stats != nil {
		printVerifyStats(stats)
	}
	return verifyErr
}

func printVerifyStats(stats *verifier.VerifyStats) {
	printHeader("Verification (%s)", stats.Method)

	results := &table{header: []string{"PAIR", "STATUS", "OBJECTS", "TYPES", "DETAIL"}}
	for _, r := range stats.Results {
		detail := r.ActualCID
		if !r.Match {
			detail = r.ErrorMessage
		}
		objects, types := "-", "-"
		if r.Method == verifier.MethodCount {
			objects = strconv.Itoa(r.ActualObjects)
			types = strconv.Itoa(r.ActualTypes)
		}
		results.add(r.Pair, statusPlain(r.Match), objects, types, detail)
	}
	results.render(outputWriter, func(col int, cell string) string {
		if col == 1 {
			return statusColor(cell)
		}
		return cell
	})

	fmt.Fprintln(outputWriter)
	printKV("Verified", stats.PairsVerified)
	printKV("Passed", stats.PairsPassed)
	printKV("Failed", stats.PairsFailed)
}
