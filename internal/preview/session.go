// Package preview manages the preview surface for a result document: an
// in-view preview backed by a transient reference, and a content-encoded
// handoff that survives navigation to a separate view.
package preview

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"doc-translator/internal/domain"
	"doc-translator/internal/resource"
	"doc-translator/internal/storage"
)

// Session storage keys for the handoff payload.
const (
	KeyData = "translated_pdf_data"
	KeyName = "translated_pdf_name"
)

// ErrHandoffMissing means no usable handoff payload is stored; the receiving
// view should redirect instead of rendering.
var ErrHandoffMissing = errors.New("no preview available")

// Payload is a content-encoded document ready to cross a navigation boundary.
type Payload struct {
	DataURL string `json:"dataUrl"`
	Name    string `json:"name"`
}

// Session owns the preview reference and the handoff entries.
type Session struct {
	registry *resource.Registry
	store    storage.Store
	logger   *slog.Logger

	mu      sync.Mutex
	current resource.Reference
	active  bool
}

// NewSession creates a preview session over registry and store.
func NewSession(registry *resource.Registry, store storage.Store, logger *slog.Logger) *Session {
	return &Session{
		registry: registry,
		store:    store,
		logger:   logger.With("component", "preview"),
	}
}

// Open creates a preview reference for doc, replacing any open preview.
func (s *Session) Open(doc domain.Document) (resource.Reference, error) {
	s.mu.Lock()
	ref, err := s.registry.Create(doc, domain.RolePreview)
	if err != nil {
		s.mu.Unlock()
		return resource.Reference{}, fmt.Errorf("open preview: %w", err)
	}
	s.current = ref
	s.active = true
	s.mu.Unlock()

	s.logger.Debug("preview opened", "id", ref.ID, "name", ref.Name)
	return ref, nil
}

// Close deactivates the preview and revokes its reference. Safe to call repeatedly.
func (s *Session) Close() {
	s.mu.Lock()
	ref, wasActive := s.current, s.active
	s.current = resource.Reference{}
	s.active = false
	s.mu.Unlock()

	if !wasActive {
		return
	}
	s.registry.Revoke(ref)
	s.logger.Debug("preview closed", "id", ref.ID)
}

// Active reports whether a preview is open.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Current returns the open preview reference, if any.
func (s *Session) Current() (resource.Reference, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.active
}

// HandoffOut encodes doc as a data URL and stores it with its display name.
func (s *Session) HandoffOut(ctx context.Context, doc domain.Document) (Payload, error) {
	if doc.IsEmpty() {
		return Payload{}, fmt.Errorf("handoff: %w", resource.ErrEmptyDocument)
	}

	payload := Payload{DataURL: EncodeDataURL(doc), Name: doc.Name}
	if payload.Name == "" {
		payload.Name = resource.SuggestedName("")
	}

	if err := s.store.Set(ctx, KeyData, payload.DataURL); err != nil {
		return Payload{}, fmt.Errorf("store handoff payload: %w", err)
	}
	if err := s.store.Set(ctx, KeyName, payload.Name); err != nil {
		_ = s.store.Delete(ctx, KeyData)
		return Payload{}, fmt.Errorf("store handoff name: %w", err)
	}

	s.logger.Debug("handoff stored", "name", payload.Name, "bytes", doc.Size())
	return payload, nil
}

// HandoffIn consumes the stored payload. Both entries are removed whether or
// not the payload decodes.
func (s *Session) HandoffIn(ctx context.Context) (domain.Document, error) {
	raw, err := s.store.Get(ctx, KeyData)
	if errors.Is(err, storage.ErrNotFound) {
		_ = s.store.Delete(ctx, KeyName)
		return domain.Document{}, ErrHandoffMissing
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("read handoff payload: %w", err)
	}

	name, err := s.store.Get(ctx, KeyName)
	if err != nil || strings.TrimSpace(name) == "" {
		name = resource.SuggestedName("")
	}
	s.clear(ctx)

	doc, err := DecodeDataURL(raw)
	if err != nil {
		s.logger.Warn("discarding unreadable handoff", "error", err)
		return domain.Document{}, fmt.Errorf("%w: %v", ErrHandoffMissing, err)
	}
	doc.Name = name
	return doc, nil
}

func (s *Session) clear(ctx context.Context) {
	for _, key := range []string{KeyData, KeyName} {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Warn("handoff cleanup failed", "key", key, "error", err)
		}
	}
}

// EncodeDataURL renders doc as a base64 data URL.
func EncodeDataURL(doc domain.Document) string {
	contentType := doc.ContentType
	if contentType == "" {
		contentType = domain.ContentTypePDF
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(doc.Data)
}

// DecodeDataURL parses a base64 data URL produced by EncodeDataURL.
func DecodeDataURL(raw string) (domain.Document, error) {
	rest, ok := strings.CutPrefix(raw, "data:")
	if !ok {
		return domain.Document{}, errors.New("not a data url")
	}
	header, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return domain.Document{}, errors.New("data url has no payload")
	}
	contentType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return domain.Document{}, errors.New("data url is not base64 encoded")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return domain.Document{}, fmt.Errorf("decode data url: %w", err)
	}
	if len(data) == 0 {
		return domain.Document{}, errors.New("data url payload is empty")
	}
	if contentType == "" {
		contentType = domain.ContentTypePDF
	}

	return domain.Document{ContentType: contentType, Data: data}, nil
}
