package resource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirSaver saves documents into a fixed directory. It backs the CLI's download action.
type DirSaver struct {
	Dir string
}

// NewDirSaver creates a saver writing into dir.
func NewDirSaver(dir string) *DirSaver {
	return &DirSaver{Dir: dir}
}

// TriggerSave writes data to Dir/name via a temp file and rename.
func (s *DirSaver) TriggerSave(ctx context.Context, data []byte, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("invalid file name: %q", name)
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}

	target := filepath.Join(s.Dir, base)
	tmp, err := os.CreateTemp(s.Dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename temp file: %w", err)
	}

	return target, nil
}
