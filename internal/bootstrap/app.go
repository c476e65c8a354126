package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"doc-translator/internal/config"
	"doc-translator/internal/diagnostics"
	"doc-translator/internal/documents"
	"doc-translator/internal/domain"
	"doc-translator/internal/logging"
	"doc-translator/internal/platform"
	"doc-translator/internal/preview"
	"doc-translator/internal/resource"
	"doc-translator/internal/storage"
	"doc-translator/internal/transfer"
	"doc-translator/internal/workflow"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// EventName is the runtime event carrying workflow events to the frontend.
const EventName = "workflow:event"

// PreviewPage is the frontend page that consumes a preview handoff.
const PreviewPage = "/preview.html"

var pdfDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "PDF documents",
		Pattern:     "*.pdf",
	},
}

// App wires configuration, the workflow controller, and UI runtime callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Diagnostics domain.DiagnosticReport
	assets      fs.FS
	checker     *diagnostics.Checker
	logger      *slog.Logger
	session     storage.Store

	mu         sync.Mutex
	controller *workflow.Controller
	registry   *resource.Registry
	runtimeCtx context.Context
}

// New builds the application with persisted settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	path, err := config.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("resolve settings path: %w", err)
	}

	store := config.NewTOMLStore(path)
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	logger := logging.New(settings.Logging, nil)
	checker := diagnostics.NewChecker()

	app := &App{
		Settings:    settings,
		Store:       store,
		Diagnostics: checker.Run(context.Background(), settings),
		assets:      assets,
		checker:     checker,
		logger:      logger,
		session:     storage.NewMemory(),
	}
	if err := app.wire(settings, nil); err != nil {
		return nil, err
	}

	logger.Info("app initialized", "settings", path, "base_url", settings.BaseURL, "contract", settings.Contract)
	return app, nil
}

// pipelineRunner matches the workflow controller's pipeline dependency.
type pipelineRunner interface {
	Run(ctx context.Context, req transfer.Request) (transfer.Result, error)
}

// wire builds the controller for settings. A nil pipeline means the HTTP pipeline.
func (a *App) wire(settings domain.Settings, pipeline pipelineRunner) error {
	if pipeline == nil {
		client, err := transfer.NewClient(transfer.Options{
			BaseURL:        settings.BaseURL,
			Timeout:        config.RequestTimeout(settings),
			MaxResultBytes: config.MaxResultBytes(settings),
		}, a.logger)
		if err != nil {
			return fmt.Errorf("build transfer client: %w", err)
		}
		pipeline = transfer.NewPipeline(client, settings.Contract, a.logger)
	}

	registry := resource.NewRegistry(&dialogSaver{app: a, save: wailsruntime.SaveFileDialog}, a.logger)
	session := preview.NewSession(registry, a.session, a.logger)
	controller := workflow.NewController(pipeline, registry, session, workflow.Options{
		MaxUploadBytes: config.MaxUploadBytes(settings),
		AutoDownload:   settings.AutoDownload,
		MaxEvents:      1000,
		OnEvent:        a.emit,
	}, a.logger)

	a.mu.Lock()
	previous := a.controller
	a.controller = controller
	a.registry = registry
	a.Settings = settings
	a.mu.Unlock()

	if previous != nil {
		previous.Teardown()
	}
	return nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	refs := referenceHandler{app: a}
	assetOptions := &assetserver.Options{Handler: refs}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		mux := http.NewServeMux()
		mux.Handle(resource.DefaultPrefix, refs)
		mux.Handle("/", http.FileServer(http.Dir("./frontend")))
		assetOptions.Handler = mux
	}

	return wails.Run(&options.App{
		Title:       "Document Translator",
		Width:       1024,
		Height:      760,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown:  a.shutdown,
		Bind:        []interface{}{a},
	})
}

// Startup stores Wails runtime context for dialogs and push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// shutdown revokes every reference before the window goes away.
func (a *App) shutdown(ctx context.Context) {
	a.workflow().Teardown()
	_ = a.session.Clear(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = nil
}

// referenceHandler serves live document references to the webview. It is kept
// apart from App so the handler is not bound into the frontend.
type referenceHandler struct {
	app *App
}

func (h referenceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.app.mu.Lock()
	registry := h.app.registry
	h.app.mu.Unlock()

	if registry == nil || !registry.Handles(r.URL.Path) {
		http.NotFound(w, r)
		return
	}
	registry.ServeHTTP(w, r)
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// GetSettings returns the persisted settings for editing. Environment
// overrides are not included, so saving them back never persists an override.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.LoadFile()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

// SaveSettings normalizes and persists settings, rebuilds the workflow from
// the effective settings (environment overrides still apply), then refreshes
// diagnostics. Refused while a transfer is running.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	if a.workflow().Running() {
		return domain.Settings{}, workflow.ErrBusy
	}

	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	effective, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("reload settings: %w", err)
	}
	if err := a.wire(effective, nil); err != nil {
		return domain.Settings{}, err
	}

	a.refreshDiagnosticsFromSettings(effective)
	return normalized, nil
}

// RefreshDiagnostics reloads settings and reruns the checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	return a.refreshDiagnosticsFromSettings(settings), nil
}

// PickFile opens a native file dialog and selects the chosen document.
func (a *App) PickFile() (domain.Snapshot, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return domain.Snapshot{}, err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select PDF document",
		Filters: pdfDialogFilter,
	})
	if err != nil {
		return domain.Snapshot{}, err
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return a.State(), nil
	}
	return a.SelectFile(path)
}

// SelectFile loads path and hands it to the workflow. Files that are not PDFs
// are ignored without error; the returned snapshot shows whether a transfer started.
func (a *App) SelectFile(path string) (domain.Snapshot, error) {
	a.mu.Lock()
	limit := config.MaxUploadBytes(a.Settings)
	a.mu.Unlock()

	doc, err := documents.FromFile(strings.TrimSpace(path), limit)
	if err != nil {
		return a.State(), err
	}

	a.workflow().Select(doc)
	return a.State(), nil
}

// State returns the current workflow snapshot.
func (a *App) State() domain.Snapshot {
	return a.workflow().Snapshot()
}

// Events returns all events with sequence greater than sinceSeq.
func (a *App) Events(sinceSeq int64) []workflow.Event {
	return a.workflow().Events(sinceSeq)
}

// OpenPreview opens the in-page preview of the result.
func (a *App) OpenPreview() (resource.Reference, error) {
	return a.workflow().OpenPreview()
}

// ClosePreview closes the in-page preview.
func (a *App) ClosePreview() domain.Snapshot {
	a.workflow().ClosePreview()
	return a.State()
}

// OpenPreviewPage stores the result for the preview page and returns the page to navigate to.
func (a *App) OpenPreviewPage() (string, error) {
	if _, err := a.workflow().HandoffPreview(context.Background()); err != nil {
		return "", err
	}
	return PreviewPage, nil
}

// LoadPreview is called by the preview page on load. preview.ErrHandoffMissing
// means the page must redirect to the entry page.
func (a *App) LoadPreview() (resource.Reference, error) {
	ref, err := a.workflow().ReceiveHandoff(context.Background())
	if errors.Is(err, preview.ErrHandoffMissing) {
		a.logger.Info("preview page loaded without handoff")
	}
	return ref, err
}

// Download saves the result through the native save dialog.
func (a *App) Download() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		ctx = context.Background()
	}
	return a.workflow().Download(ctx)
}

// Reset returns the workflow to idle.
func (a *App) Reset() domain.Snapshot {
	a.workflow().Reset()
	return a.State()
}

// OpenDownloadFolder opens the given path (or configured download dir) in file manager.
func (a *App) OpenDownloadFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		a.mu.Lock()
		target = a.Settings.DownloadDir
		a.mu.Unlock()
	}
	if target == "" {
		return fmt.Errorf("download path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve download path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return platform.OpenPath(openPath)
}

// emit forwards workflow events to the frontend as runtime push notifications.
func (a *App) emit(event workflow.Event) {
	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, EventName, event)
	}
}

func (a *App) workflow() *workflow.Controller {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.controller
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// normalizeSettings trims user inputs and fills defaults for empty fields.
func normalizeSettings(settings domain.Settings) domain.Settings {
	settings.BaseURL = strings.TrimRight(strings.TrimSpace(settings.BaseURL), "/")
	settings.DownloadDir = strings.TrimSpace(settings.DownloadDir)
	settings.RequestTimeout = strings.TrimSpace(settings.RequestTimeout)
	settings.MaxUploadSize = strings.TrimSpace(settings.MaxUploadSize)
	settings.MaxResultSize = strings.TrimSpace(settings.MaxResultSize)

	normalized := config.DefaultSettings()
	config.Merge(&normalized, settings)
	return normalized
}
