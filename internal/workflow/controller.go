package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"doc-translator/internal/documents"
	"doc-translator/internal/domain"
	"doc-translator/internal/preview"
	"doc-translator/internal/resource"
	"doc-translator/internal/transfer"
)

// pipelineRunner abstracts the transfer pipeline for testability.
type pipelineRunner interface {
	Run(ctx context.Context, req transfer.Request) (transfer.Result, error)
}

// Options tunes controller behavior.
type Options struct {
	// MaxUploadBytes rejects larger selections; zero disables the limit.
	MaxUploadBytes int64

	// AutoDownload saves the result as soon as it arrives.
	AutoDownload bool

	// MaxEvents bounds the event history.
	MaxEvents int

	// OnEvent receives every published event, in order. It runs while the
	// controller's state lock is held and must not call Select, Reset or Teardown.
	OnEvent func(Event)
}

type resultMeta struct {
	attempt         uint64
	pageCount       int
	sourcePageCount int
	sourceEncrypted bool
}

// Controller sequences transfers, result references and previews in response
// to user intents.
type Controller struct {
	machine  *Machine
	events   *EventBus
	pipeline pipelineRunner
	registry *resource.Registry
	preview  *preview.Session
	logger   *slog.Logger
	opts     Options

	pageCount func(domain.Document) (int, error)

	// stateMu orders machine changes with the events describing them.
	stateMu sync.Mutex

	mu        sync.Mutex
	meta      resultMeta
	lastError string

	wg sync.WaitGroup
}

// NewController wires the state machine to its collaborators.
func NewController(
	pipeline pipelineRunner,
	registry *resource.Registry,
	session *preview.Session,
	opts Options,
	logger *slog.Logger,
) *Controller {
	events := NewEventBus(opts.MaxEvents)
	if opts.OnEvent != nil {
		events.SetHook(opts.OnEvent)
	}

	return &Controller{
		machine:   NewMachine(),
		events:    events,
		pipeline:  pipeline,
		registry:  registry,
		preview:   session,
		logger:    logger.With("component", "workflow"),
		opts:      opts,
		pageCount: documents.PageCount,
	}
}

// Accepts reports whether Select would start an attempt for doc right now.
func (c *Controller) Accepts(doc domain.Document) bool {
	return c.rejectReason(doc) == "" && c.machine.Status() == domain.StatusIdle
}

// Select starts an attempt for doc. Non-PDF, empty or oversized documents and
// selections made while not idle are ignored. It reports whether an attempt started.
func (c *Controller) Select(doc domain.Document) bool {
	if reason := c.rejectReason(doc); reason != "" {
		c.logger.Debug("selection ignored", "name", doc.Name, "content_type", doc.ContentType, "reason", reason)
		return false
	}

	c.stateMu.Lock()
	attempt, err := c.machine.Begin(doc)
	if err != nil {
		c.stateMu.Unlock()
		c.logger.Debug("selection ignored", "name", doc.Name, "reason", err)
		return false
	}
	c.setLastError("")
	c.publish(Event{Attempt: attempt, Type: EventTypeStatus, Status: domain.StatusTransferring, Name: doc.Name})
	c.stateMu.Unlock()

	c.logger.Info("transfer started", "attempt", attempt, "name", doc.Name, "bytes", doc.Size())

	c.wg.Add(1)
	go c.run(attempt, doc)
	return true
}

// Wait blocks until every started transfer has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) run(attempt uint64, source domain.Document) {
	defer c.wg.Done()

	result, err := c.pipeline.Run(context.Background(), transfer.Request{
		Document: source,
		OnStage: func(status domain.Status) {
			c.advance(attempt, status)
		},
	})
	if err != nil {
		c.fail(attempt, err)
		return
	}
	c.complete(attempt, source, result)
}

func (c *Controller) advance(attempt uint64, status domain.Status) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	changed, err := c.machine.Advance(attempt, status)
	switch {
	case errors.Is(err, ErrStaleAttempt):
		c.logger.Debug("dropping stale stage", "attempt", attempt, "status", status)
		return
	case err != nil:
		c.logger.Warn("stage rejected", "attempt", attempt, "error", err)
		return
	case changed:
		c.publish(Event{Attempt: attempt, Type: EventTypeStatus, Status: status})
	}
}

func (c *Controller) fail(attempt uint64, err error) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if ferr := c.machine.Fail(attempt); ferr != nil {
		c.logger.Debug("discarding stale failure", "attempt", attempt, "error", err)
		return
	}

	switch {
	case transfer.IsTransport(err):
		c.logger.Warn("transport failure", "attempt", attempt, "error", err)
	case transfer.IsService(err):
		c.logger.Error("service failure", "attempt", attempt, "status", transfer.StatusCode(err), "error", err)
	default:
		c.logger.Error("transfer failed", "attempt", attempt, "error", err)
	}

	message := failureMessage(err)
	c.setLastError(message)
	c.publish(Event{
		Attempt:    attempt,
		Type:       EventTypeError,
		Message:    message,
		StatusCode: transfer.StatusCode(err),
	})
	c.publish(Event{Attempt: attempt, Type: EventTypeStatus, Status: domain.StatusIdle})
}

func (c *Controller) complete(attempt uint64, source domain.Document, result transfer.Result) {
	doc := result.Document
	serviceName := doc.Name
	doc.Name = resource.SuggestedName(source.Name)
	if doc.ContentType == "" {
		doc.ContentType = domain.ContentTypePDF
	}

	pages, err := c.pageCount(doc)
	if err != nil {
		c.logger.Warn("page count unavailable", "attempt", attempt, "error", err)
		pages = 0
	}

	meta := resultMeta{attempt: attempt, pageCount: pages}
	if v := result.Verification; v != nil {
		meta.sourcePageCount = v.PageCount
		meta.sourceEncrypted = v.IsEncrypted
	}

	c.stateMu.Lock()
	if err := c.machine.Complete(attempt, doc); err != nil {
		c.stateMu.Unlock()
		c.logger.Debug("discarding stale result", "attempt", attempt, "error", err)
		return
	}
	c.mu.Lock()
	c.meta = meta
	c.mu.Unlock()
	c.publish(Event{
		Attempt:   attempt,
		Type:      EventTypeResult,
		Name:      doc.Name,
		Size:      doc.Size(),
		PageCount: pages,
	})
	c.publish(Event{Attempt: attempt, Type: EventTypeStatus, Status: domain.StatusComplete})
	c.stateMu.Unlock()

	c.logger.Info("transfer complete",
		"attempt", attempt,
		"name", doc.Name,
		"service_name", serviceName,
		"bytes", doc.Size(),
		"pages", pages,
		"source_pages", meta.sourcePageCount,
	)

	if c.opts.AutoDownload {
		if _, err := c.Download(context.Background()); err != nil {
			c.logger.Warn("automatic download failed", "attempt", attempt, "error", err)
		}
	}
}

// OpenPreview opens an in-view preview of the result, replacing any open one.
func (c *Controller) OpenPreview() (resource.Reference, error) {
	result, ok := c.machine.Result()
	if !ok {
		return resource.Reference{}, ErrNoResult
	}

	ref, err := c.preview.Open(result)
	if err != nil {
		return resource.Reference{}, err
	}
	c.publish(Event{Attempt: c.machine.Snapshot().Attempt, Type: EventTypePreview, Message: "opened", URL: ref.URL, Name: ref.Name})
	return ref, nil
}

// ClosePreview closes the in-view preview. Safe to call repeatedly.
func (c *Controller) ClosePreview() {
	if !c.preview.Active() {
		return
	}
	c.preview.Close()
	c.publish(Event{Attempt: c.machine.Snapshot().Attempt, Type: EventTypePreview, Message: "closed"})
}

// HandoffPreview stores the result for a preview view reached by navigation.
func (c *Controller) HandoffPreview(ctx context.Context) (preview.Payload, error) {
	result, ok := c.machine.Result()
	if !ok {
		return preview.Payload{}, ErrNoResult
	}
	return c.preview.HandoffOut(ctx, result)
}

// ReceiveHandoff consumes a stored handoff and opens it as the preview.
// preview.ErrHandoffMissing tells the caller to redirect.
func (c *Controller) ReceiveHandoff(ctx context.Context) (resource.Reference, error) {
	doc, err := c.preview.HandoffIn(ctx)
	if err != nil {
		return resource.Reference{}, err
	}

	ref, err := c.preview.Open(doc)
	if err != nil {
		return resource.Reference{}, err
	}
	c.publish(Event{Attempt: c.machine.Snapshot().Attempt, Type: EventTypePreview, Message: "received", URL: ref.URL, Name: ref.Name})
	return ref, nil
}

// Download saves the result under its suggested name. The download reference
// is revoked before returning. An empty location means the save was declined.
func (c *Controller) Download(ctx context.Context) (string, error) {
	result, ok := c.machine.Result()
	if !ok {
		return "", ErrNoResult
	}

	ref, err := c.registry.Create(result, domain.RoleDownload)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer c.registry.Revoke(ref)

	location, err := c.registry.Download(ctx, ref, result.Name)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}

	event := Event{Attempt: c.machine.Snapshot().Attempt, Type: EventTypeDownload, Name: result.Name, Location: location}
	if location == "" {
		event.Message = "cancelled"
	}
	c.publish(event)
	return location, nil
}

// Reset returns to idle from any status, closing the preview and dropping
// both documents. A transfer still in flight is abandoned, not cancelled.
func (c *Controller) Reset() {
	c.ClosePreview()
	if ref, ok := c.registry.Live(domain.RoleDownload); ok {
		c.registry.Revoke(ref)
	}

	c.stateMu.Lock()
	attempt := c.machine.Reset()
	c.mu.Lock()
	c.meta = resultMeta{}
	c.lastError = ""
	c.mu.Unlock()
	c.publish(Event{Attempt: attempt, Type: EventTypeStatus, Status: domain.StatusIdle})
	c.stateMu.Unlock()

	c.logger.Info("workflow reset", "attempt", attempt)
}

// Teardown releases every live reference. Called when the hosting view goes away.
func (c *Controller) Teardown() {
	c.preview.Close()
	c.registry.RevokeAll()
	c.stateMu.Lock()
	attempt := c.machine.Reset()
	c.stateMu.Unlock()
	c.logger.Info("workflow torn down", "attempt", attempt)
}

// Running reports whether a transfer is in flight.
func (c *Controller) Running() bool {
	return c.machine.IsRunning()
}

// Snapshot returns the state rendered by the presentation layer.
func (c *Controller) Snapshot() domain.Snapshot {
	state := c.machine.Snapshot()
	snap := domain.Snapshot{
		Status:     state.Status,
		Attempt:    state.Attempt,
		SourceName: state.Source.Name,
		ResultName: state.Result.Name,
		ResultSize: state.Result.Size(),
	}

	c.mu.Lock()
	if c.meta.attempt == state.Attempt && state.Status == domain.StatusComplete {
		snap.ResultPageCount = c.meta.pageCount
		snap.SourcePageCount = c.meta.sourcePageCount
		snap.SourceEncrypted = c.meta.sourceEncrypted
	}
	snap.LastError = c.lastError
	c.mu.Unlock()

	if ref, ok := c.preview.Current(); ok {
		snap.PreviewActive = true
		snap.PreviewURL = ref.URL
	}
	return snap
}

// Events returns events with sequence strictly greater than since.
func (c *Controller) Events(since int64) []Event {
	return c.events.Since(since)
}

func (c *Controller) rejectReason(doc domain.Document) string {
	switch {
	case !doc.IsPDF():
		return "not a pdf"
	case doc.IsEmpty():
		return "empty document"
	case c.opts.MaxUploadBytes > 0 && int64(doc.Size()) > c.opts.MaxUploadBytes:
		return "exceeds upload limit"
	default:
		return ""
	}
}

func (c *Controller) setLastError(message string) {
	c.mu.Lock()
	c.lastError = message
	c.mu.Unlock()
}

func (c *Controller) publish(event Event) {
	c.events.Publish(event)
}

// failureMessage is the short text shown to the user after a failed attempt.
func failureMessage(err error) string {
	var tErr *transfer.Error
	if !errors.As(err, &tErr) {
		return "Translation failed. Please try again."
	}
	if tErr.Kind == transfer.KindTransport {
		return "The translation service could not be reached."
	}
	if tErr.StatusCode >= 200 && tErr.StatusCode < 300 {
		return "The translation service returned an unusable response."
	}
	return fmt.Sprintf("The translation service reported an error (%d).", tErr.StatusCode)
}
