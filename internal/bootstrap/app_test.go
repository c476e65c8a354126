package bootstrap

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"doc-translator/internal/config"
	"doc-translator/internal/documents"
	"doc-translator/internal/domain"
	"doc-translator/internal/logging"
	"doc-translator/internal/preview"
	"doc-translator/internal/storage"
	"doc-translator/internal/transfer"
	"doc-translator/internal/workflow"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// fakeStore returns deterministic settings for App tests.
type fakeStore struct {
	settings domain.Settings
	saved    domain.Settings
}

// Load returns preconfigured settings.
func (s *fakeStore) Load() (domain.Settings, error) {
	return s.settings, nil
}

// LoadFile returns preconfigured settings; the fake has no overrides.
func (s *fakeStore) LoadFile() (domain.Settings, error) {
	return s.settings, nil
}

// Save records the settings.
func (s *fakeStore) Save(settings domain.Settings) error {
	s.saved = settings
	s.settings = settings
	return nil
}

// fakePipeline allows injecting custom run behavior per test.
type fakePipeline struct {
	run func(ctx context.Context, req transfer.Request) (transfer.Result, error)
}

// Run delegates to injected function.
func (p *fakePipeline) Run(ctx context.Context, req transfer.Request) (transfer.Result, error) {
	if p.run == nil {
		return transfer.Result{}, nil
	}
	return p.run(ctx, req)
}

func succeeding() *fakePipeline {
	return &fakePipeline{run: func(ctx context.Context, req transfer.Request) (transfer.Result, error) {
		req.OnStage(domain.StatusTransferring)
		req.OnStage(domain.StatusProcessing)
		return transfer.Result{Document: domain.Document{
			ContentType: domain.ContentTypePDF,
			Data:        documents.MinimalPDF(1),
		}}, nil
	}}
}

func testSettings(t *testing.T) domain.Settings {
	t.Helper()
	settings := config.DefaultSettings()
	settings.DownloadDir = t.TempDir()
	return settings
}

func newTestApp(t *testing.T, store *fakeStore, pipeline pipelineRunner) *App {
	t.Helper()
	app := &App{
		Store:   store,
		logger:  logging.Discard(),
		session: storage.NewMemory(),
	}
	if err := app.wire(store.settings, pipeline); err != nil {
		t.Fatalf("wire: %v", err)
	}
	return app
}

func writePDF(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, documents.MinimalPDF(1), 0o644); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return path
}

// TestSelectFilePublishesProgressAndResultEvents checks event flow.
func TestSelectFilePublishesProgressAndResultEvents(t *testing.T) {
	app := newTestApp(t, &fakeStore{settings: testSettings(t)}, succeeding())

	if _, err := app.SelectFile(writePDF(t, "report.pdf")); err != nil {
		t.Fatalf("SelectFile() error = %v", err)
	}

	waitForStatus(t, app, domain.StatusComplete)
	events := app.Events(0)
	assertEventTypeExists(t, events, workflow.EventTypeStatus)
	assertEventTypeExists(t, events, workflow.EventTypeResult)

	if got := app.State().ResultName; got != "translated_report.pdf" {
		t.Fatalf("result name = %q", got)
	}
}

// TestSelectFileIgnoresNonPDF checks that other file types never start a transfer.
func TestSelectFileIgnoresNonPDF(t *testing.T) {
	called := false
	app := newTestApp(t, &fakeStore{settings: testSettings(t)}, &fakePipeline{
		run: func(ctx context.Context, req transfer.Request) (transfer.Result, error) {
			called = true
			return transfer.Result{}, nil
		},
	})

	path := filepath.Join(t.TempDir(), "scan.png")
	if err := os.WriteFile(path, []byte("\x89PNG"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	snap, err := app.SelectFile(path)
	if err != nil {
		t.Fatalf("SelectFile() error = %v", err)
	}
	if snap.Status != domain.StatusIdle || called {
		t.Fatalf("status = %s, pipeline called = %v", snap.Status, called)
	}
}

// TestSelectFileMissingPath reports unreadable files to the caller.
func TestSelectFileMissingPath(t *testing.T) {
	app := newTestApp(t, &fakeStore{settings: testSettings(t)}, succeeding())
	if _, err := app.SelectFile(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// TestPreviewPageHandoff checks the cross-page preview round trip and the served bytes.
func TestPreviewPageHandoff(t *testing.T) {
	app := newTestApp(t, &fakeStore{settings: testSettings(t)}, succeeding())
	if _, err := app.SelectFile(writePDF(t, "report.pdf")); err != nil {
		t.Fatalf("SelectFile() error = %v", err)
	}
	waitForStatus(t, app, domain.StatusComplete)

	page, err := app.OpenPreviewPage()
	if err != nil {
		t.Fatalf("OpenPreviewPage() error = %v", err)
	}
	if page != PreviewPage {
		t.Fatalf("page = %q, want %q", page, PreviewPage)
	}

	ref, err := app.LoadPreview()
	if err != nil {
		t.Fatalf("LoadPreview() error = %v", err)
	}

	rec := httptest.NewRecorder()
	referenceHandler{app: app}.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, ref.URL, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET %s = %d, want 200", ref.URL, rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != string(documents.MinimalPDF(1)) {
		t.Fatal("served bytes differ from result")
	}

	if _, err := app.LoadPreview(); !errors.Is(err, preview.ErrHandoffMissing) {
		t.Fatalf("second LoadPreview() error = %v, want ErrHandoffMissing", err)
	}
}

// TestLoadPreviewWithoutHandoff checks the redirect signal for a cold preview page.
func TestLoadPreviewWithoutHandoff(t *testing.T) {
	app := newTestApp(t, &fakeStore{settings: testSettings(t)}, succeeding())
	if _, err := app.LoadPreview(); !errors.Is(err, preview.ErrHandoffMissing) {
		t.Fatalf("LoadPreview() error = %v, want ErrHandoffMissing", err)
	}
}

// TestShutdownRevokesReferences checks that no reference outlives the window.
func TestShutdownRevokesReferences(t *testing.T) {
	app := newTestApp(t, &fakeStore{settings: testSettings(t)}, succeeding())
	if _, err := app.SelectFile(writePDF(t, "report.pdf")); err != nil {
		t.Fatalf("SelectFile() error = %v", err)
	}
	waitForStatus(t, app, domain.StatusComplete)

	ref, err := app.OpenPreview()
	if err != nil {
		t.Fatalf("OpenPreview() error = %v", err)
	}

	app.shutdown(context.Background())

	rec := httptest.NewRecorder()
	referenceHandler{app: app}.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, ref.URL, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET after shutdown = %d, want 404", rec.Code)
	}
}

// TestAppBindsNoHandlerOrLifecycleMethods keeps the asset handler and the
// shutdown hook off the frontend bridge.
func TestAppBindsNoHandlerOrLifecycleMethods(t *testing.T) {
	app := newTestApp(t, &fakeStore{settings: testSettings(t)}, succeeding())
	if _, ok := interface{}(app).(http.Handler); ok {
		t.Fatal("App must not implement http.Handler")
	}
	if _, ok := reflect.TypeOf(app).MethodByName("Shutdown"); ok {
		t.Fatal("App must not export Shutdown")
	}
}

// TestSaveSettingsKeepsEnvOverrides checks that saving persists the edited
// values while the rebuilt workflow still uses environment overrides.
func TestSaveSettingsKeepsEnvOverrides(t *testing.T) {
	for _, key := range []string{config.EnvAPIURL, config.EnvContract, config.EnvLogLevel, config.EnvLogFormat} {
		t.Setenv(key, "")
	}
	t.Setenv(config.EnvAPIURL, "http://env.example:5000")

	store := config.NewTOMLStore(filepath.Join(t.TempDir(), "settings.toml"))
	app := &App{Store: store, logger: logging.Discard(), session: storage.NewMemory()}
	if err := app.wire(testSettings(t), succeeding()); err != nil {
		t.Fatalf("wire: %v", err)
	}

	edited := testSettings(t)
	edited.BaseURL = "http://saved.example:5000"
	if _, err := app.SaveSettings(edited); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}

	if app.Settings.BaseURL != "http://env.example:5000" {
		t.Fatalf("effective base url = %q, want env override", app.Settings.BaseURL)
	}
	stored, err := app.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if stored.BaseURL != "http://saved.example:5000" {
		t.Fatalf("stored base url = %q, want edited value", stored.BaseURL)
	}

	if _, err := app.SaveSettings(stored); err != nil {
		t.Fatalf("SaveSettings() round trip error = %v", err)
	}
	if again, _ := store.LoadFile(); again.BaseURL != "http://saved.example:5000" {
		t.Fatalf("round trip persisted %q, want edited value", again.BaseURL)
	}
}

// TestServeHTTPRejectsOtherPaths checks the asset fallback only serves references.
func TestServeHTTPRejectsOtherPaths(t *testing.T) {
	app := newTestApp(t, &fakeStore{settings: testSettings(t)}, succeeding())
	rec := httptest.NewRecorder()
	referenceHandler{app: app}.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/secret.txt", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

// TestSaveSettingsRefusedWhileTransferring checks the single-workflow guard.
func TestSaveSettingsRefusedWhileTransferring(t *testing.T) {
	release := make(chan struct{})
	store := &fakeStore{settings: testSettings(t)}
	app := newTestApp(t, store, &fakePipeline{run: func(ctx context.Context, req transfer.Request) (transfer.Result, error) {
		req.OnStage(domain.StatusTransferring)
		<-release
		return transfer.Result{}, errors.New("abandoned")
	}})
	defer close(release)

	if _, err := app.SelectFile(writePDF(t, "report.pdf")); err != nil {
		t.Fatalf("SelectFile() error = %v", err)
	}
	if _, err := app.SaveSettings(store.settings); !errors.Is(err, workflow.ErrBusy) {
		t.Fatalf("SaveSettings() error = %v, want ErrBusy", err)
	}
}

// TestSaveSettingsNormalizes checks trimming and defaults before persisting.
func TestSaveSettingsNormalizes(t *testing.T) {
	store := &fakeStore{settings: testSettings(t)}
	app := newTestApp(t, store, succeeding())

	saved, err := app.SaveSettings(domain.Settings{BaseURL: "  http://10.0.0.5:5000/  ", DownloadDir: store.settings.DownloadDir})
	if err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}
	if saved.BaseURL != "http://10.0.0.5:5000" {
		t.Fatalf("base url = %q", saved.BaseURL)
	}
	if saved.Contract != domain.ContractTwoStep || saved.RequestTimeout == "" {
		t.Fatalf("defaults not applied: %+v", saved)
	}
	if store.saved != saved {
		t.Fatalf("store saved %+v, want %+v", store.saved, saved)
	}
}

// TestDialogSaverWritesChosenPath checks the native save flow.
func TestDialogSaverWritesChosenPath(t *testing.T) {
	app := newTestApp(t, &fakeStore{settings: testSettings(t)}, succeeding())
	app.Startup(context.Background())

	target := filepath.Join(t.TempDir(), "out.pdf")
	var gotOpts wailsruntime.SaveDialogOptions
	saver := &dialogSaver{app: app, save: func(ctx context.Context, opts wailsruntime.SaveDialogOptions) (string, error) {
		gotOpts = opts
		return target, nil
	}}

	location, err := saver.TriggerSave(context.Background(), []byte("%PDF"), "translated_report.pdf")
	if err != nil {
		t.Fatalf("TriggerSave() error = %v", err)
	}
	if location != target {
		t.Fatalf("location = %q, want %q", location, target)
	}
	if gotOpts.DefaultFilename != "translated_report.pdf" {
		t.Fatalf("default filename = %q", gotOpts.DefaultFilename)
	}
	if data, _ := os.ReadFile(target); string(data) != "%PDF" {
		t.Fatalf("written = %q", data)
	}

	cancelled := &dialogSaver{app: app, save: func(context.Context, wailsruntime.SaveDialogOptions) (string, error) {
		return "", nil
	}}
	if location, err := cancelled.TriggerSave(context.Background(), []byte("%PDF"), "x.pdf"); err != nil || location != "" {
		t.Fatalf("cancelled save = %q, %v", location, err)
	}
}

// waitForStatus polls until the workflow reaches desired status or times out.
func waitForStatus(t *testing.T, app *App, want domain.Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if app.State().Status == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("status = %s, want %s", app.State().Status, want)
}

// assertEventTypeExists verifies at least one event of given type exists.
func assertEventTypeExists(t *testing.T, events []workflow.Event, want workflow.EventType) {
	t.Helper()
	for _, event := range events {
		if event.Type == want {
			return
		}
	}
	t.Fatalf("event type %s not found", want)
}
