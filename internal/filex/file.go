// Package filex contains small filesystem helpers for the CLI, such as
// resolving the directory CSV exports are written to.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureSubDir creates (if needed) and returns a subdirectory of the current
// working directory.
func EnsureSubDir(dirName string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// WriteExport writes an exported artifact into dir under the given file name
// and returns the full path.
func WriteExport(dir, name string, data []byte) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o660); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
