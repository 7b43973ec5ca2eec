package testuser

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed disable-wp-mail.php
var mailGuard []byte

// writeMailGuard writes the bundled wp_mail override to a temporary file.
// The returned func removes it.
func writeMailGuard() (string, func(), error) {
	dir, err := os.MkdirTemp("", "wptest-")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create mail guard directory: %w", err)
	}

	path := filepath.Join(dir, "disable-wp-mail.php")
	if err := os.WriteFile(path, mailGuard, 0644); err != nil {
		os.RemoveAll(dir)
		return "", nil, fmt.Errorf("failed to write mail guard: %w", err)
	}

	return path, func() { os.RemoveAll(dir) }, nil
}
