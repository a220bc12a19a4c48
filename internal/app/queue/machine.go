package queue

import (
	"github.com/osa030/vibeq/internal/domain/request"
)

// Machine applies request status transitions on top of a Store. Host
// actions (approve, deny, remove) and the reconciliation loop's completion
// path (MarkPlayed) all go through here. Every precondition is checked by
// the store under its own lock, so two racing transitions from the same
// status commit at most once.
type Machine struct {
	store *Store
}

// NewMachine creates a state machine over the given store.
func NewMachine(store *Store) *Machine {
	return &Machine{store: store}
}

// Store returns the underlying request store.
func (m *Machine) Store() *Store {
	return m.store
}

// Approve moves a PENDING request to APPROVED, appending it to the end of
// the approved ordering.
func (m *Machine) Approve(id string) (request.Request, error) {
	return m.store.ApplyTransition(id, request.StatusPending, request.StatusApproved, nil)
}

// Deny moves a PENDING request to REJECTED.
func (m *Machine) Deny(id string) (request.Request, error) {
	return m.store.ApplyTransition(id, request.StatusPending, request.StatusRejected, nil)
}

// Remove moves an APPROVED request to REJECTED, taking it out of the
// approved ordering.
func (m *Machine) Remove(id string) (request.Request, error) {
	return m.store.ApplyTransition(id, request.StatusApproved, request.StatusRejected, nil)
}

// MarkPlayed moves the current now-playing request to COMPLETED. It fails
// with ErrInvalidState when id is not the now-playing request, which
// defends against stale or duplicate completion signals.
func (m *Machine) MarkPlayed(id string) (request.Request, error) {
	return m.store.CompleteNowPlaying(id)
}

// NowPlaying returns the approved request with the lowest order, if any.
func (m *Machine) NowPlaying() (request.Request, bool) {
	return m.store.NowPlaying()
}

// ClearAll discards every request regardless of status. Safe to call
// concurrently with in-flight reconciliation: the loop observes the empty
// store on its next read and stops issuing device commands.
func (m *Machine) ClearAll() {
	m.store.Reset()
}
