// Package store implements the pipeline's persisted State Stores (spec.md
// §4.5): the Shared Training Log, per-submitter Rejection Memory, Outline
// Memory, Paper Memory, Workflow State, and the supplemented per-topic
// research-metadata counters. Grounded on the teacher's
// pkg/context/checkpoint.go (mutex-guarded struct, JSON blob on every
// transition) and pkg/tool/filetool/write_file.go (write-with-backup
// discipline).
package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// writeFileAtomic writes data to path by writing to a sibling temp file
// and renaming over the destination, so a crash mid-write never leaves a
// truncated or partially-written file behind.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: rename temp file into place: %w", err)
	}
	return nil
}

// readFileOrEmpty reads path, returning an empty slice (not an error) if
// the file does not yet exist.
func readFileOrEmpty(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}
	return data, nil
}
