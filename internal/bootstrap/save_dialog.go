package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strings"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// dialogSaver saves documents through the native save dialog.
type dialogSaver struct {
	app  *App
	save func(ctx context.Context, opts wailsruntime.SaveDialogOptions) (string, error)
}

// TriggerSave asks the user for a location and writes data there. A cancelled
// dialog returns an empty location.
func (s *dialogSaver) TriggerSave(ctx context.Context, data []byte, name string) (string, error) {
	runtimeCtx, err := s.app.runtimeContext()
	if err != nil {
		return "", err
	}

	s.app.mu.Lock()
	dir := s.app.Settings.DownloadDir
	s.app.mu.Unlock()

	path, err := s.save(runtimeCtx, wailsruntime.SaveDialogOptions{
		Title:            "Save translated document",
		DefaultDirectory: dir,
		DefaultFilename:  name,
		Filters:          pdfDialogFilter,
	})
	if err != nil {
		return "", fmt.Errorf("save dialog: %w", err)
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
