package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/layoutdiff/internal/format"
	"github.com/dbsmedya/layoutdiff/internal/reorg"
)

var (
	reorgStateFile  string
	reorgExpectFile string
	reorgOutFile    string
)

// errStateMismatch is returned when the reorganized state differs from the
// expected one.
var errStateMismatch = errors.New("reorganized state does not match expected state")

var reorganizeCmd = &cobra.Command{
	Use:   "reorganize <records-dir>",
	Short: "Apply comparison records to a storage dump",
	Long: `Reorganize reads the two records written by compare or run from
<records-dir> and rewrites a contract storage dump from the old layout to the
new one. Values of every common object are moved to their new slots and
offsets; slots no common object covers are dropped.

The dump is a JSON object of {"key": ..., "value": ...} entries as returned
by debug_storageRangeAt. Mappings cannot be enumerated from a dump and are
rejected.

With --expect the result is compared against a second dump and every
differing slot is reported.

Example:
  layoutdiff reorganize migration/ --state old_storage.json --expect new_storage.json`,
	Args: cobra.ExactArgs(1),
	RunE: runReorganize,
}

func init() {
	reorganizeCmd.Flags().StringVarP(&reorgStateFile, "state", "s", "",
		"Storage dump of the contract before the upgrade")
	reorganizeCmd.Flags().StringVarP(&reorgExpectFile, "expect", "e", "",
		"Storage dump the result must equal")
	reorganizeCmd.Flags().StringVarP(&reorgOutFile, "out", "o", "",
		"Write the reorganized storage dump to this file")
	reorganizeCmd.MarkFlagRequired("state")

	rootCmd.AddCommand(reorganizeCmd)
}

func runReorganize(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	files := format.Files{CommonObjects: cfg.Output.CommonObjectsFile, Types: cfg.Output.TypesFile}
	plan, err := reorg.ReadPlan(args[0], files)
	if err != nil {
		return err
	}
	state, err := reorg.ReadStateFile(reorgStateFile)
	if err != nil {
		return err
	}
	before := len(state.Slots())

	r := reorg.NewReorganizer(plan, state, log)
	if err := r.Reorganize(commandContext(cmd)); err != nil {
		return err
	}
	r.Commit()

	if reorgOutFile != "" {
		if err := reorg.WriteStateFile(reorgOutFile, state); err != nil {
			return err
		}
	}

	printHeader("Reorganization")
	printKV("Common objects", len(plan.Objects))
	printKV("Slots before", before)
	printKV("Slots after", len(state.Slots()))
	if reorgOutFile != "" {
		printKV("Written to", reorgOutFile)
	}

	if reorgExpectFile == "" {
		return nil
	}
	expected, err := reorg.ReadStateFile(reorgExpectFile)
	if err != nil {
		return err
	}
	diffs := reorg.Diff(expected, state)
	printKV("Matches expected", statusText(len(diffs) == 0))
	if len(diffs) == 0 {
		return nil
	}

	printSection("Differing slots")
	t := &table{header: []string{"SLOT", "EXPECTED", "ACTUAL"}}
	for _, d := range diffs {
		t.add(d.Key.Hex(), d.Expected.Hex(), d.Actual.Hex())
	}
	t.render(outputWriter, nil)
	return fmt.Errorf("%w: %d slots differ", errStateMismatch, len(diffs))
}
