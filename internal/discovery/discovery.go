// Package discovery enumerates the old/new version pairs to compare.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dbsmedya/layoutdiff/internal/config"
)

// Pair is one old/new version pair and where its records go.
type Pair struct {
	Name       string
	Old        string
	New        string
	OutputDir  string
	Contract   string
	Comparison config.ComparisonConfig
}

// Discover returns one pair per immediate subdirectory of root holding both
// oldFile and newFile. Records are written next to the sources. Pairs are
// sorted by name.
func Discover(root, oldFile, newFile string) ([]Pair, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read discovery root: %w", err)
	}

	var pairs []Pair
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		oldPath := filepath.Join(dir, oldFile)
		newPath := filepath.Join(dir, newFile)
		if !isFile(oldPath) || !isFile(newPath) {
			continue
		}
		pairs = append(pairs, Pair{
			Name:      entry.Name(),
			Old:       oldPath,
			New:       newPath,
			OutputDir: dir,
		})
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Name < pairs[j].Name })
	return pairs, nil
}

// FromConfig returns the configured pairs plus, when discovery.root is set,
// the discovered ones. A configured pair shadows a discovered pair of the
// same name. Every pair carries its effective comparison settings.
func FromConfig(cfg *config.Config) ([]Pair, error) {
	byName := make(map[string]Pair)

	if cfg.Discovery.Root != "" {
		found, err := Discover(cfg.Discovery.Root, cfg.Discovery.OldFile, cfg.Discovery.NewFile)
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			p.Comparison = cfg.Comparison
			byName[p.Name] = p
		}
	}

	for _, name := range cfg.ListPairs() {
		pc := cfg.Pairs[name]
		outputDir := pc.OutputDir
		if outputDir == "" {
			outputDir = filepath.Dir(pc.Old)
		}
		byName[name] = Pair{
			Name:       name,
			Old:        pc.Old,
			New:        pc.New,
			OutputDir:  outputDir,
			Contract:   pc.Contract,
			Comparison: pc.GetPairComparison(cfg.Comparison),
		}
	}

	pairs := make([]Pair, 0, len(byName))
	for _, p := range byName {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Name < pairs[j].Name })
	return pairs, nil
}

// Select filters pairs to the named ones, in the order given. Unknown names
// are an error.
func Select(pairs []Pair, names []string) ([]Pair, error) {
	if len(names) == 0 {
		return pairs, nil
	}

	byName := make(map[string]Pair, len(pairs))
	for _, p := range pairs {
		byName[p.Name] = p
	}

	selected := make([]Pair, 0, len(names))
	for _, name := range names {
		p, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown pair %q", name)
		}
		selected = append(selected, p)
	}
	return selected, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
