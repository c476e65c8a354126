package diagnostics

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"doc-translator/internal/config"
	"doc-translator/internal/domain"
	"doc-translator/internal/logging"
	"doc-translator/internal/transfer"
)

// Check identifiers. Fixable checks are repaired by the desktop shell.
const (
	CheckBaseURL     = "base_url"
	CheckService     = "service"
	CheckDownloadDir = "download_dir"
)

const pingTimeout = 5 * time.Second

// pinger abstracts the processing service health call for testability.
type pinger interface {
	Ping(ctx context.Context) error
}

// Checker validates the service endpoint and required filesystem paths.
type Checker struct {
	newPinger  func(baseURL string) (pinger, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using the real HTTP client and OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		newPinger:  dialService,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

func dialService(baseURL string) (pinger, error) {
	client, err := transfer.NewClient(transfer.Options{BaseURL: baseURL, Timeout: pingTimeout}, logging.Discard())
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Run executes all checks and returns a combined report.
func (c *Checker) Run(ctx context.Context, settings domain.Settings) domain.DiagnosticReport {
	urlItem := c.checkBaseURL(settings.BaseURL)
	items := []domain.DiagnosticItem{
		urlItem,
		c.checkService(ctx, settings.BaseURL, urlItem.Status == domain.DiagnosticStatusPass),
		c.checkDownloadDir(settings.DownloadDir),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

func (c *Checker) checkBaseURL(baseURL string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:      CheckBaseURL,
		Name:    "Service address",
		Fixable: true,
	}

	if err := config.ValidateBaseURL(baseURL); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Invalid service address: %q", baseURL)
		item.Hint = fmt.Sprintf("Use an absolute http(s) address such as %s.", config.DefaultBaseURL)
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Using %s", baseURL)
	return item
}

// checkService verifies the processing service answers on its root path.
func (c *Checker) checkService(ctx context.Context, baseURL string, urlValid bool) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   CheckService,
		Name: "Processing service",
	}

	if !urlValid {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Skipped: the service address is invalid."
		item.Hint = "Fix the service address first."
		return item
	}

	client, err := c.newPinger(baseURL)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = err.Error()
		return item
	}

	if err := client.Ping(ctx); err != nil {
		item.Status = domain.DiagnosticStatusFail
		if code := transfer.StatusCode(err); code != 0 {
			item.Message = fmt.Sprintf("Service at %s responded with status %d", baseURL, code)
			item.Hint = "Check the service logs."
		} else {
			item.Message = fmt.Sprintf("Service unreachable at %s", baseURL)
			item.Hint = "Start the translation service or set DOC_TRANSLATOR_API_URL to its address."
		}
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Service reachable at %s", baseURL)
	return item
}

// checkDownloadDir validates download directory existence and write access.
func (c *Checker) checkDownloadDir(dir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:      CheckDownloadDir,
		Name:    "Download directory",
		Fixable: true,
	}

	if strings.TrimSpace(dir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Download directory is empty."
		item.Hint = "Set a directory where translated documents can be saved."
		return item
	}

	if err := c.mkdirAll(dir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create download directory: %s", dir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(dir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Download directory is not writable: %s", dir)
		item.Hint = "Choose a writable directory for translated documents."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", dir)
	return item
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	newPinger func(baseURL string) (pinger, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		newPinger:  newPinger,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}
