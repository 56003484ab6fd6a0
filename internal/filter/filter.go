// Package filter selects which outcomes a module keeps for its report.
package filter

import "github.com/maxvaer/reconx/internal/scanner"

// Filter decides whether an outcome should be dropped from a report.
type Filter interface {
	Name() string
	ShouldFilter(o *scanner.Outcome) bool
}

// Chain applies multiple filters in order, short-circuiting on the first match.
type Chain struct {
	filters []Filter
}

// NewChain returns a chain of the given filters.
func NewChain(filters ...Filter) *Chain {
	return &Chain{filters: filters}
}

// Add appends a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Apply runs every filter against the outcome. Returns true and the filter
// name if the outcome should be dropped.
func (c *Chain) Apply(o *scanner.Outcome) (bool, string) {
	for _, f := range c.filters {
		if f.ShouldFilter(o) {
			return true, f.Name()
		}
	}
	return false, ""
}

// Predicate converts the chain into a keep-predicate for ResultSet.Filter.
func (c *Chain) Predicate() scanner.Predicate {
	return func(o scanner.Outcome) bool {
		drop, _ := c.Apply(&o)
		return !drop
	}
}

// Reachable drops outcomes that carry no HTTP response.
type Reachable struct{}

func (Reachable) Name() string { return "unreachable" }

func (Reachable) ShouldFilter(o *scanner.Outcome) bool { return !o.OK() }

// StatusBelow keeps responses whose status is below limit.
func StatusBelow(limit int) scanner.Predicate {
	return NewChain(Reachable{}, NewMaxStatusFilter(limit)).Predicate()
}

// StatusIs keeps responses with exactly the given status.
func StatusIs(code int) scanner.Predicate {
	return NewChain(Reachable{}, NewStatusFilter([]int{code}, nil)).Predicate()
}
