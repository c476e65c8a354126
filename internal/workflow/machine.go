// Package workflow drives one document through transfer, processing and
// retrieval, and owns the result until the user resets.
package workflow

import (
	"errors"
	"fmt"
	"sync"

	"doc-translator/internal/domain"
)

var (
	// ErrBusy is returned when an attempt is started while another is active.
	ErrBusy = errors.New("a transfer is already in progress")

	// ErrStaleAttempt is returned when an outcome belongs to an abandoned attempt.
	ErrStaleAttempt = errors.New("attempt is no longer current")

	// ErrNoResult is returned when a result action is requested outside complete.
	ErrNoResult = errors.New("no result available")
)

// State is a copy of the machine's fields at one instant.
type State struct {
	Status  domain.Status
	Attempt uint64
	Source  domain.Document
	Result  domain.Document
}

// Machine is the status state machine. Every attempt gets a new sequence
// number; transitions carrying an older number are rejected.
type Machine struct {
	mu      sync.RWMutex
	status  domain.Status
	attempt uint64
	source  domain.Document
	result  domain.Document
}

// NewMachine creates a machine in idle state.
func NewMachine() *Machine {
	return &Machine{status: domain.StatusIdle}
}

// Begin accepts source as the document of a new attempt and moves to transferring.
func (m *Machine) Begin(source domain.Document) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != domain.StatusIdle {
		return 0, ErrBusy
	}

	m.attempt++
	m.source = source
	m.result = domain.Document{}
	m.status = domain.StatusTransferring
	return m.attempt, nil
}

// Advance applies a stage change for attempt. It reports whether the status changed.
func (m *Machine) Advance(attempt uint64, status domain.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if attempt != m.attempt {
		return false, ErrStaleAttempt
	}
	if status == m.status {
		return false, nil
	}
	if status == domain.StatusComplete || !isValidTransition(m.status, status) {
		return false, fmt.Errorf("invalid transition: %s -> %s", m.status, status)
	}

	m.status = status
	return true, nil
}

// Complete stores result for attempt and moves processing to complete.
func (m *Machine) Complete(attempt uint64, result domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if attempt != m.attempt {
		return ErrStaleAttempt
	}
	if !isValidTransition(m.status, domain.StatusComplete) {
		return fmt.Errorf("invalid transition: %s -> %s", m.status, domain.StatusComplete)
	}

	m.result = result
	m.status = domain.StatusComplete
	return nil
}

// Fail reverts a running attempt to idle and clears the source selection.
func (m *Machine) Fail(attempt uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if attempt != m.attempt {
		return ErrStaleAttempt
	}
	if !isRunning(m.status) {
		return fmt.Errorf("invalid transition: %s -> %s", m.status, domain.StatusIdle)
	}

	m.source = domain.Document{}
	m.result = domain.Document{}
	m.status = domain.StatusIdle
	return nil
}

// Reset clears both documents, returns to idle, and starts a new attempt
// number so outcomes of any in-flight attempt are discarded.
func (m *Machine) Reset() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attempt++
	m.source = domain.Document{}
	m.result = domain.Document{}
	m.status = domain.StatusIdle
	return m.attempt
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return State{
		Status:  m.status,
		Attempt: m.attempt,
		Source:  m.source,
		Result:  m.result,
	}
}

// Status returns the current status.
func (m *Machine) Status() domain.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Result returns the result document while complete.
func (m *Machine) Result() (domain.Document, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.status != domain.StatusComplete {
		return domain.Document{}, false
	}
	return m.result, true
}

// IsRunning reports whether an attempt is transferring or processing.
func (m *Machine) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return isRunning(m.status)
}

func isRunning(status domain.Status) bool {
	return status == domain.StatusTransferring || status == domain.StatusProcessing
}

// isValidTransition enforces the allowed state machine edges.
func isValidTransition(from, to domain.Status) bool {
	switch from {
	case domain.StatusIdle:
		return to == domain.StatusTransferring
	case domain.StatusTransferring:
		return to == domain.StatusProcessing || to == domain.StatusIdle
	case domain.StatusProcessing:
		return to == domain.StatusComplete || to == domain.StatusIdle
	case domain.StatusComplete:
		return to == domain.StatusIdle
	default:
		return false
	}
}
