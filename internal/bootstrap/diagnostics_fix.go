package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strings"

	"doc-translator/internal/config"
	"doc-translator/internal/diagnostics"
	"doc-translator/internal/domain"
)

// FixDiagnostic applies the remediation for one failed diagnostic item and
// returns the refreshed report.
func (a *App) FixDiagnostic(itemID string) (domain.DiagnosticReport, error) {
	if a.Store == nil {
		return domain.DiagnosticReport{}, fmt.Errorf("settings store is not configured")
	}

	id := strings.TrimSpace(itemID)
	if id == "" {
		return domain.DiagnosticReport{}, fmt.Errorf("diagnostic item id is required")
	}

	settings, err := a.Store.LoadFile()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)

	settingsChanged := false
	var fixErr error

	switch id {
	case diagnostics.CheckBaseURL:
		settings, settingsChanged = fixBaseURL(settings)
	case diagnostics.CheckDownloadDir:
		settings, settingsChanged, fixErr = fixDownloadDir(settings)
	default:
		return domain.DiagnosticReport{}, fmt.Errorf("unsupported diagnostic item id: %s", id)
	}

	if settingsChanged {
		if saveErr := a.Store.Save(settings); saveErr != nil {
			report := a.refreshDiagnosticsFromSettings(settings)
			return report, fmt.Errorf("save settings after fix: %w", saveErr)
		}
	}

	effective, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("reload settings: %w", err)
	}
	if settingsChanged {
		if err := a.wire(effective, nil); err != nil {
			return a.refreshDiagnosticsFromSettings(effective), err
		}
	}

	report := a.refreshDiagnosticsFromSettings(effective)
	if fixErr != nil {
		return report, fixErr
	}
	return report, nil
}

func (a *App) refreshDiagnosticsFromSettings(settings domain.Settings) domain.DiagnosticReport {
	var report domain.DiagnosticReport
	if a.checker != nil {
		report = a.checker.Run(context.Background(), settings)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.Settings = settings
	if a.checker != nil {
		a.Diagnostics = report
	}
	return a.Diagnostics
}

func fixBaseURL(settings domain.Settings) (domain.Settings, bool) {
	if config.ValidateBaseURL(settings.BaseURL) == nil {
		return settings, false
	}
	settings.BaseURL = config.DefaultBaseURL
	return settings, true
}

func fixDownloadDir(settings domain.Settings) (domain.Settings, bool, error) {
	downloadDir := strings.TrimSpace(settings.DownloadDir)
	changed := false
	if downloadDir == "" {
		downloadDir = config.DefaultDownloadDir()
		settings.DownloadDir = downloadDir
		changed = true
	}

	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return settings, changed, fmt.Errorf("create download directory %s: %w", downloadDir, err)
	}

	return settings, changed, nil
}
