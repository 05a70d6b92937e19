// Package lifecycle governs status transitions of transactional resources.
//
// Every machine is built from an explicit table. Check consults the table
// before any mutation; pairs missing from the table are invalid. Apply pairs
// the check with a compare-and-swap in the store so that two concurrent
// transitions on the same resource cannot both succeed.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/odyssey-erp/autosales/internal/shared"
)

// Resource is a status-bearing entity governed by a Machine.
type Resource[S ~string] interface {
	CurrentStatus() S
	LastUpdated() time.Time
	ApplyStatus(status S, at time.Time)
}

// StatusStore persists a status change only if the stored status still
// equals expected. A mismatch returns shared.ErrStatusConflict, a missing
// record shared.ErrNotFound.
type StatusStore[S ~string] interface {
	CompareAndSwapStatus(ctx context.Context, id string, expected, next S, at time.Time) error
}

// TransitionError describes a rejected transition.
type TransitionError struct {
	Resource  string
	Current   string
	Requested string
	Kind      error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s: %v", e.Resource, e.Current, e.Requested, e.Kind)
}

func (e *TransitionError) Unwrap() error { return e.Kind }

// CurrentState returns the status held when the transition was attempted.
func (e *TransitionError) CurrentState() string { return e.Current }

// RequestedState returns the target status.
func (e *TransitionError) RequestedState() string { return e.Requested }

// NoOp reports whether the request targeted the current status.
func (e *TransitionError) NoOp() bool { return e.Kind == shared.ErrAlreadyInState }

// Rule is one row of a transition table.
type Rule[S ~string] struct {
	From S
	To   S
}

// Machine is an immutable finite-state lifecycle.
type Machine[S ~string] struct {
	name    string
	initial S
	states  map[S]struct{}
	allowed map[S]map[S]struct{}
	now     func() time.Time
}

// Option customises a Machine.
type Option[S ~string] func(*Machine[S])

// WithClock injects a custom clock (useful for tests).
func WithClock[S ~string](clock func() time.Time) Option[S] {
	return func(m *Machine[S]) {
		if clock != nil {
			m.now = clock
		}
	}
}

// NewMachine builds a machine over the given states. Rules list every
// allowed transition; anything else is rejected.
func NewMachine[S ~string](name string, initial S, states []S, rules []Rule[S], opts ...Option[S]) *Machine[S] {
	m := &Machine[S]{
		name:    name,
		initial: initial,
		states:  make(map[S]struct{}, len(states)),
		allowed: make(map[S]map[S]struct{}, len(states)),
		now:     time.Now,
	}
	for _, s := range states {
		m.states[s] = struct{}{}
	}
	for _, r := range rules {
		if m.allowed[r.From] == nil {
			m.allowed[r.From] = make(map[S]struct{})
		}
		m.allowed[r.From][r.To] = struct{}{}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Name identifies the governed resource type.
func (m *Machine[S]) Name() string { return m.name }

// Initial returns the status new resources start in.
func (m *Machine[S]) Initial() S { return m.initial }

// Valid reports whether s is a member of the status enumeration.
func (m *Machine[S]) Valid(s S) bool {
	_, ok := m.states[s]
	return ok
}

// Targets lists the statuses reachable from s.
func (m *Machine[S]) Targets(s S) []S {
	out := make([]S, 0, len(m.allowed[s]))
	for to := range m.allowed[s] {
		out = append(out, to)
	}
	return out
}

// Check validates current -> requested against the table.
func (m *Machine[S]) Check(current, requested S) error {
	if !m.Valid(current) || !m.Valid(requested) {
		return m.reject(current, requested, shared.ErrInvalidTransition)
	}
	if current == requested {
		return m.reject(current, requested, shared.ErrAlreadyInState)
	}
	if _, ok := m.allowed[current][requested]; !ok {
		return m.reject(current, requested, shared.ErrInvalidTransition)
	}
	return nil
}

// Transition moves r to requested in memory. On success the status equals
// requested and the timestamp strictly increases.
func (m *Machine[S]) Transition(r Resource[S], requested S) error {
	current := r.CurrentStatus()
	if err := m.Check(current, requested); err != nil {
		return err
	}
	r.ApplyStatus(requested, m.nextTimestamp(r.LastUpdated()))
	return nil
}

// Apply checks the transition, persists it through a compare-and-swap on
// (id, current status), and only then mutates r.
func (m *Machine[S]) Apply(ctx context.Context, store StatusStore[S], id string, r Resource[S], requested S) error {
	current := r.CurrentStatus()
	if err := m.Check(current, requested); err != nil {
		return err
	}
	at := m.nextTimestamp(r.LastUpdated())
	if err := store.CompareAndSwapStatus(ctx, id, current, requested, at); err != nil {
		if errors.Is(err, shared.ErrStatusConflict) {
			return m.reject(current, requested, shared.ErrStatusConflict)
		}
		return err
	}
	r.ApplyStatus(requested, at)
	return nil
}

// ApplyFrom is Apply for callers that require r to be in expected. Any other
// current status is reported as ErrStatusConflict and the store is not
// written.
func (m *Machine[S]) ApplyFrom(ctx context.Context, store StatusStore[S], id string, r Resource[S], expected, requested S) error {
	if current := r.CurrentStatus(); current != expected {
		return m.reject(current, requested, shared.ErrStatusConflict)
	}
	return m.Apply(ctx, store, id, r, requested)
}

// nextTimestamp truncates to microseconds to match PostgreSQL timestamptz.
func (m *Machine[S]) nextTimestamp(prev time.Time) time.Time {
	at := m.now().UTC().Truncate(time.Microsecond)
	if !at.After(prev) {
		at = prev.Add(time.Microsecond)
	}
	return at
}

func (m *Machine[S]) reject(current, requested S, kind error) error {
	return &TransitionError{
		Resource:  m.name,
		Current:   string(current),
		Requested: string(requested),
		Kind:      kind,
	}
}
