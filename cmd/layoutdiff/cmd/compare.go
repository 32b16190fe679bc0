package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/layoutdiff/internal/config"
	"github.com/dbsmedya/layoutdiff/internal/discovery"
	"github.com/dbsmedya/layoutdiff/internal/format"
	"github.com/dbsmedya/layoutdiff/internal/logger"
	"github.com/dbsmedya/layoutdiff/internal/pipeline"
	"github.com/dbsmedya/layoutdiff/internal/source"
)

var (
	compareOutputDir string
	compareContract  string
)

var compareCmd = &cobra.Command{
	Use:   "compare <old> <new>",
	Short: "Compare two storage layouts",
	Long: `Compare loads the old and new storage layouts, matches their storage
entries and extracts the type graph a migration has to handle.

Each argument is either a Solidity source (compiled with solc --storage-layout),
a JSON layout document, or captured compiler output.

Without --output both records are printed to stdout, common objects first.
With --output they are written into that directory under the names from the
output section of the configuration.

Example:
  layoutdiff compare v1/Vault.sol v2/Vault.sol --output migration/`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringVarP(&compareOutputDir, "output", "o", "",
		"Directory to write the records into (default: stdout)")
	compareCmd.Flags().StringVar(&compareContract, "contract", "",
		"Contract to select from multi-contract compiler output")

	rootCmd.AddCommand(compareCmd)
}

// newResolver builds the layout source resolver from configuration.
func newResolver(cfg *config.Config, log *logger.Logger) *source.Resolver {
	return &source.Resolver{
		Solc: source.NewSolcSource(&cfg.Compiler, log),
		File: &source.FileSource{},
	}
}

// compareFiles loads and compares one ad-hoc pair using the global
// comparison settings.
func compareFiles(ctx context.Context, cfg *config.Config, log *logger.Logger, oldPath, newPath, contract string) (*pipeline.Result, error) {
	opts, err := pipeline.OptionsFromConfig(cfg.Comparison, cfg.Output)
	if err != nil {
		return nil, err
	}

	runner := pipeline.NewRunner(cfg.Output, newResolver(cfg, log), nil, log)
	oldLayout, newLayout, err := runner.LoadPair(ctx, discovery.Pair{
		Name:     "adhoc",
		Old:      oldPath,
		New:      newPath,
		Contract: contract,
	})
	if err != nil {
		return nil, err
	}

	return pipeline.NewComparator(opts, log).Compare(oldLayout, newLayout)
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	result, err := compareFiles(commandContext(cmd), cfg, log, args[0], args[1], compareContract)
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	if compareOutputDir == "" {
		if _, err := outputWriter.Write(result.CommonObjectsJSON); err != nil {
			return err
		}
		_, err := outputWriter.Write(result.TypesJSON)
		return err
	}

	files := format.Files{
		CommonObjects: cfg.Output.CommonObjectsFile,
		Types:         cfg.Output.TypesFile,
	}
	if err := format.WriteFiles(compareOutputDir, files, result.CommonObjectsJSON, result.TypesJSON); err != nil {
		return err
	}

	printHeader("Comparison Complete")
	printKV("Common objects", result.Stats.CommonObjects)
	printKV("Merged types", result.Stats.MergedTypes)
	printKV("Dropped members", result.Stats.DroppedMembers)
	printKV("Collisions", result.Stats.Collisions)
	printKV("Report CID", result.ReportCID)
	printKV("Output", compareOutputDir)
	return nil
}
