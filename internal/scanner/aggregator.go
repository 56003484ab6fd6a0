package scanner

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrDuplicateOutcome is returned when an outcome for the same URL was
	// already accepted.
	ErrDuplicateOutcome = errors.New("duplicate outcome")
	// ErrResultSetFrozen is returned when Accept is called after Freeze.
	ErrResultSetFrozen = errors.New("result set is frozen")
)

// Aggregator collects outcomes from concurrent workers. Outcomes are kept in
// completion order and each unit URL is accepted at most once.
type Aggregator struct {
	mu       sync.Mutex
	outcomes []Outcome
	seen     map[string]struct{}
	total    int
	start    time.Time
	elapsed  time.Duration
	partial  bool
	frozen   bool
}

// NewAggregator creates an aggregator for a run of total units.
func NewAggregator(total int) *Aggregator {
	return &Aggregator{
		outcomes: make([]Outcome, 0, total),
		seen:     make(map[string]struct{}, total),
		total:    total,
		start:    time.Now(),
	}
}

// Accept records an outcome.
func (a *Aggregator) Accept(o Outcome) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.frozen {
		return ErrResultSetFrozen
	}
	if _, dup := a.seen[o.Unit.URL]; dup {
		return ErrDuplicateOutcome
	}
	a.seen[o.Unit.URL] = struct{}{}
	a.outcomes = append(a.outcomes, o)
	return nil
}

// Len returns the number of accepted outcomes.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.outcomes)
}

// All returns an unfiltered snapshot. It is valid before and after Freeze.
func (a *Aggregator) All() ResultSet {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot()
}

// Freeze stops further outcomes from being accepted and returns the complete
// result set. A set with fewer outcomes than units is always partial.
func (a *Aggregator) Freeze() ResultSet {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.frozen {
		a.frozen = true
		a.elapsed = time.Since(a.start)
		if len(a.outcomes) < a.total {
			a.partial = true
		}
	}
	return a.snapshot()
}

// Finalize freezes the aggregator and returns the outcomes matching p.
func (a *Aggregator) Finalize(p Predicate) ResultSet {
	return a.Freeze().Filter(p)
}

// snapshot copies the current state. Caller must hold a.mu.
func (a *Aggregator) snapshot() ResultSet {
	elapsed := a.elapsed
	if !a.frozen {
		elapsed = time.Since(a.start)
	}
	return ResultSet{
		Outcomes: append([]Outcome(nil), a.outcomes...),
		Total:    a.total,
		Partial:  a.partial,
		Elapsed:  elapsed,
	}
}
