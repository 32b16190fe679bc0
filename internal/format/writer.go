package format

import (
	"fmt"
	"os"
	"path/filepath"
)

// Files names the two emitted records.
type Files struct {
	CommonObjects string
	Types         string
}

// WriteFiles writes both records into dir. Each file is written to a
// temporary name first and renamed, so a failed run never leaves half a
// record behind.
func WriteFiles(dir string, names Files, commonObjects, typeGraph []byte) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	targets := []struct {
		name string
		data []byte
	}{
		{names.CommonObjects, commonObjects},
		{names.Types, typeGraph},
	}

	for _, t := range targets {
		if err := writeAtomic(filepath.Join(dir, t.name), t.data); err != nil {
			return err
		}
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
