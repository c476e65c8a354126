package workflow

import (
	"sync"
	"time"

	"doc-translator/internal/domain"
)

// EventType classifies messages emitted by the controller.
type EventType string

const (
	EventTypeStatus   EventType = "status"
	EventTypeResult   EventType = "result"
	EventTypeError    EventType = "error"
	EventTypePreview  EventType = "preview"
	EventTypeDownload EventType = "download"
)

// Event is a sequenced payload consumed by UI subscribers.
type Event struct {
	Seq        int64         `json:"seq"`
	Timestamp  time.Time     `json:"timestamp"`
	Attempt    uint64        `json:"attempt"`
	Type       EventType     `json:"type"`
	Status     domain.Status `json:"status,omitempty"`
	Message    string        `json:"message,omitempty"`
	Name       string        `json:"name,omitempty"`
	Size       int           `json:"size,omitempty"`
	PageCount  int           `json:"pageCount,omitempty"`
	URL        string        `json:"url,omitempty"`
	Location   string        `json:"location,omitempty"`
	StatusCode int           `json:"statusCode,omitempty"`
}

// EventBus stores recent events, provides incremental reads, and forwards
// each published event to an optional hook.
type EventBus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
	hook      func(Event)
}

// NewEventBus creates a bounded in-memory event buffer.
func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &EventBus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// SetHook installs fn to receive every event after it is recorded.
func (b *EventBus) SetHook(fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hook = fn
}

// Publish appends one event and assigns sequence and timestamp.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}
	hook := b.hook
	b.mu.Unlock()

	if hook != nil {
		hook(event)
	}
	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}
