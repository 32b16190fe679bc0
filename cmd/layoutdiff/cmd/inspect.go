package cmd

import (
	"fmt"
	"strings"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/layoutdiff/internal/graph"
	"github.com/dbsmedya/layoutdiff/internal/pipeline"
)

var (
	inspectContract string
	inspectTopDown  bool
	inspectWidth    int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <old> <new>",
	Short: "Show the type graph and migration order of a comparison",
	Long: `Inspect compares two storage layouts and prints what a migration has to
handle instead of writing the records.

The report shows:
  - Common objects with their old and new slots
  - Migration order (dependencies first, or top-down with --top-down)
  - Type dependencies (base and member references)
  - Canonical identifier collisions

Example:
  layoutdiff inspect v1/Vault.sol v2/Vault.sol --top-down`,
	Args: cobra.ExactArgs(2),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectContract, "contract", "",
		"Contract to select from multi-contract compiler output")
	inspectCmd.Flags().BoolVar(&inspectTopDown, "top-down", false,
		"List common object types before their dependencies")
	inspectCmd.Flags().IntVar(&inspectWidth, "width", 60,
		"Maximum width of type identifiers (0 disables truncation)")

	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	result, err := compareFiles(commandContext(cmd), cfg, log, args[0], args[1], inspectContract)
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	return printInspection(result, inspectTopDown, inspectWidth)
}

func printInspection(result *pipeline.Result, topDown bool, width int) error {
	g := result.Graph

	order := result.MigrationOrder
	title := "Migration Order (dependencies first)"
	if topDown {
		var err error
		order, err = g.TopDownOrder()
		if err != nil {
			return fmt.Errorf("failed to generate top-down order: %w", err)
		}
		title = "Migration Order (top-down)"
	}

	printHeader("Layout Inspection")
	fmt.Fprintln(outputWriter)
	printSection("Summary")
	printKV("Common objects", result.Stats.CommonObjects)
	printKV("Merged types", result.Stats.MergedTypes)
	printKV("Type edges", g.EdgeCount())
	printKV("Dropped members", result.Stats.DroppedMembers)
	printKV("Report CID", result.ReportCID)

	fmt.Fprintln(outputWriter)
	printSection("Common Objects")
	if len(result.CommonObjects) == 0 {
		fmt.Fprintln(outputWriter, "  (none)")
	} else {
		objects := &table{header: []string{"LABEL", "TYPE", "OLD SLOT", "NEW SLOT", "OFFSET"}}
		for _, co := range result.CommonObjects {
			objects.add(co.Label, truncate(co.Type, width), shortSlot(co.OldSlot), shortSlot(co.NewSlot),
				fmt.Sprintf("%d -> %d", co.OldOffset, co.NewOffset))
		}
		objects.render(outputWriter, func(col int, cell string) string {
			if col == 0 {
				return color.Bold.Sprint(cell)
			}
			return cell
		})
	}

	fmt.Fprintln(outputWriter)
	printSection(title)
	for i, id := range order {
		printOrderItem(i+1, id, g, width)
	}

	if edges := g.AllEdges(); len(edges) > 0 {
		fmt.Fprintln(outputWriter)
		printSection("Type Dependencies")
		for _, edge := range edges {
			meta := g.GetEdgeMeta(edge.From, edge.To)
			detail := meta.Kind
			if len(meta.Members) > 0 {
				detail += " " + strings.Join(meta.Members, ", ")
			}
			fmt.Fprintf(outputWriter, "  • %s → %s (%s)\n",
				truncate(edge.To, width), truncate(edge.From, width), detail)
		}
	}

	if len(result.Collisions) > 0 {
		fmt.Fprintln(outputWriter)
		printSection("Canonical Collisions")
		for _, c := range result.Collisions {
			fmt.Fprintf(outputWriter, "  %s %s kept %s, replaced %s\n",
				color.Yellow.Sprint("!"), c.Canonical, c.Kept, c.Replaced)
		}
	}

	return nil
}

// printOrderItem prints a type in the migration order list
func printOrderItem(num int, id string, g *graph.Graph, width int) {
	numStr := fmt.Sprintf("[%d]", num)
	node := g.GetNode(id)

	name := truncate(id, width)
	if node != nil && node.IsRoot {
		name = color.Green.Sprint(name) + " (root)"
	}

	deps := g.GetDependencies(id)
	if len(deps) == 0 {
		fmt.Fprintf(outputWriter, "  %s %s\n", numStr, name)
		return
	}
	fmt.Fprintf(outputWriter, "  %s %s <- %s\n", numStr, name, strings.Join(deps, ", "))
}

// shortSlot drops the leading zeros of a 0x-prefixed 64-digit slot.
func shortSlot(slot string) string {
	digits := strings.TrimLeft(strings.TrimPrefix(slot, "0x"), "0")
	if digits == "" {
		digits = "0"
	}
	return "0x" + digits
}
