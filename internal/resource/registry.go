// Package resource owns every transient reference to in-memory documents.
// A reference makes a document addressable by URL until it is revoked; each
// role holds at most one live reference, and creating a new one revokes the old.
package resource

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"doc-translator/internal/domain"
)

// DefaultPrefix is the URL path under which references are served.
const DefaultPrefix = "/refs/"

var (
	// ErrEmptyDocument is returned when a reference is requested for a document without bytes.
	ErrEmptyDocument = errors.New("document has no content")

	// ErrRevoked is returned when a revoked or unknown reference is used.
	ErrRevoked = errors.New("reference is not live")

	// ErrNoSaver is returned when a download is requested without a save capability.
	ErrNoSaver = errors.New("no save capability configured")
)

// Reference is a revocable handle to a document's bytes.
type Reference struct {
	ID          string      `json:"id"`
	Role        domain.Role `json:"role"`
	URL         string      `json:"url"`
	Name        string      `json:"name"`
	ContentType string      `json:"contentType"`
}

// Saver is the presentation layer's save action.
type Saver interface {
	// TriggerSave persists data under name and returns where it went.
	// An empty location with a nil error means the user declined.
	TriggerSave(ctx context.Context, data []byte, name string) (string, error)
}

type entry struct {
	ref Reference
	doc domain.Document
}

// Registry tracks live references per role.
type Registry struct {
	prefix string
	saver  Saver
	logger *slog.Logger

	mu      sync.RWMutex
	byRole  map[domain.Role]string
	entries map[string]entry
}

// NewRegistry creates a registry serving references under DefaultPrefix.
func NewRegistry(saver Saver, logger *slog.Logger) *Registry {
	return &Registry{
		prefix:  DefaultPrefix,
		saver:   saver,
		logger:  logger.With("component", "resources"),
		byRole:  make(map[domain.Role]string),
		entries: make(map[string]entry),
	}
}

// Create revokes any live reference for role and registers a new one for doc.
func (r *Registry) Create(doc domain.Document, role domain.Role) (Reference, error) {
	if doc.IsEmpty() {
		return Reference{}, ErrEmptyDocument
	}

	id := uuid.NewString()
	ref := Reference{
		ID:          id,
		Role:        role,
		URL:         r.prefix + id,
		Name:        doc.Name,
		ContentType: doc.ContentType,
	}

	r.mu.Lock()
	if previous, ok := r.byRole[role]; ok {
		delete(r.entries, previous)
		r.logger.Debug("reference replaced", "role", role, "id", previous)
	}
	r.byRole[role] = id
	r.entries[id] = entry{ref: ref, doc: doc}
	r.mu.Unlock()

	r.logger.Debug("reference created", "role", role, "id", id, "bytes", doc.Size())
	return ref, nil
}

// Revoke releases ref. Revoking an unknown or already revoked reference is a no-op.
func (r *Registry) Revoke(ref Reference) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[ref.ID]; !ok {
		return
	}
	delete(r.entries, ref.ID)
	if r.byRole[ref.Role] == ref.ID {
		delete(r.byRole, ref.Role)
	}
	r.logger.Debug("reference revoked", "role", ref.Role, "id", ref.ID)
}

// RevokeAll releases every live reference. Called when the hosting view goes away.
func (r *Registry) RevokeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) > 0 {
		r.logger.Debug("revoking all references", "count", len(r.entries))
	}
	r.byRole = make(map[domain.Role]string)
	r.entries = make(map[string]entry)
}

// Live returns the live reference for role, if any.
func (r *Registry) Live(role domain.Role) (Reference, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byRole[role]
	if !ok {
		return Reference{}, false
	}
	return r.entries[id].ref, true
}

// IsLive reports whether ref has not been revoked or replaced.
func (r *Registry) IsLive(ref Reference) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[ref.ID]
	return ok
}

// LiveCount returns the number of live references across all roles.
func (r *Registry) LiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Download hands the referenced bytes to the save capability under suggestedName.
func (r *Registry) Download(ctx context.Context, ref Reference, suggestedName string) (string, error) {
	doc, ok := r.lookup(ref.ID)
	if !ok {
		return "", ErrRevoked
	}
	if r.saver == nil {
		return "", ErrNoSaver
	}

	location, err := r.saver.TriggerSave(ctx, doc.Data, suggestedName)
	if err != nil {
		return "", err
	}
	if location != "" {
		r.logger.Info("document saved", "name", suggestedName, "location", location)
	}
	return location, nil
}

func (r *Registry) lookup(id string) (domain.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e.doc, ok
}
