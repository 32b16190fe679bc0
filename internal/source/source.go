// Package source obtains storage layouts, either by running the Solidity
// compiler or by reading layout documents from disk.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dbsmedya/layoutdiff/internal/layout"
)

// ErrLayoutUnavailable is returned when no layout could be produced for a
// path: the compiler failed, its output had no layout, or the document was
// not valid JSON.
var ErrLayoutUnavailable = errors.New("storage layout unavailable")

// LayoutMarker precedes each layout in compiler output.
const LayoutMarker = "Contract Storage Layout:"

// Source loads the storage layout of one contract version.
type Source interface {
	Load(ctx context.Context, path string) (*layout.Layout, error)
}

// FileSource reads layout documents from disk. A file may hold either a bare
// layout document or captured compiler output.
type FileSource struct {
	Contract string // selects a section of captured compiler output
}

// Load implements Source.
func (f *FileSource) Load(ctx context.Context, path string) (*layout.Layout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLayoutUnavailable, err)
	}

	if bytes.Contains(data, []byte(LayoutMarker)) {
		l, err := ParseCompilerOutput(data, f.Contract)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return l, nil
	}

	l, err := layout.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLayoutUnavailable, path, err)
	}
	return l, nil
}

// Resolver picks a source by file extension: ".sol" files go through the
// compiler, everything else is read as a layout document.
type Resolver struct {
	Solc *SolcSource
	File *FileSource
}

// ForPath returns the source that handles path.
func (r *Resolver) ForPath(path string) Source {
	if strings.EqualFold(filepath.Ext(path), ".sol") {
		return r.Solc
	}
	return r.File
}

// Load implements Source.
func (r *Resolver) Load(ctx context.Context, path string) (*layout.Layout, error) {
	return r.ForPath(path).Load(ctx, path)
}

type section struct {
	name string // "<file>:<contract>", empty before the first header
	body string
}

// ParseCompilerOutput extracts a layout from `solc --storage-layout` output.
// With an empty contract the first section carrying a layout is used;
// otherwise the section whose header names that contract.
func ParseCompilerOutput(output []byte, contract string) (*layout.Layout, error) {
	for _, s := range splitSections(string(output)) {
		idx := strings.Index(s.body, LayoutMarker)
		if idx < 0 {
			continue
		}
		if contract != "" && s.name != contract && !strings.HasSuffix(s.name, ":"+contract) {
			continue
		}

		l, err := layout.Decode(strings.NewReader(s.body[idx+len(LayoutMarker):]))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLayoutUnavailable, err)
		}
		return l, nil
	}

	if contract != "" {
		return nil, fmt.Errorf("%w: no layout for contract %q in compiler output", ErrLayoutUnavailable, contract)
	}
	return nil, fmt.Errorf("%w: %q not found in compiler output", ErrLayoutUnavailable, LayoutMarker)
}

func splitSections(output string) []section {
	var sections []section
	current := section{}
	var body strings.Builder

	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) > 14 && strings.HasPrefix(trimmed, "=======") && strings.HasSuffix(trimmed, "=======") {
			current.body = body.String()
			sections = append(sections, current)
			current = section{name: strings.TrimSpace(trimmed[7 : len(trimmed)-7])}
			body.Reset()
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	current.body = body.String()
	return append(sections, current)
}

// WithContract returns a resolver whose sources select contract.
func (r *Resolver) WithContract(contract string) *Resolver {
	file := &FileSource{Contract: contract}
	var solc *SolcSource
	if r.Solc != nil {
		solc = r.Solc.WithContract(contract)
	}
	return &Resolver{Solc: solc, File: file}
}
