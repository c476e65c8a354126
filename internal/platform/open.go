// Package platform launches OS handlers for local files.
package platform

import (
	"fmt"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
)

// OpenPath launches the platform handler for path: the file manager for
// directories, the default viewer for files.
func OpenPath(path string) error {
	cmd := openCommand(goruntime.GOOS, path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch system viewer: %w", err)
	}
	return nil
}

func openCommand(goos, path string) *exec.Cmd {
	switch goos {
	case "darwin":
		return exec.Command("open", path)
	case "windows":
		return exec.Command("explorer", filepath.Clean(path))
	default:
		return exec.Command("xdg-open", path)
	}
}
