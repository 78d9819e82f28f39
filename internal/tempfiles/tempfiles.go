// Package tempfiles creates scratch files for upload buffering.
package tempfiles

import (
	"fmt"
	"os"
)

// Create makes a temp file in dir, creating dir first if it does not exist.
// Callers own the file and are expected to remove it when done.
func Create(dir string, pattern string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create temp dir %q: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return f, nil
}
