package filter

import "github.com/maxvaer/reconx/internal/scanner"

// StatusFilter includes or excludes outcomes based on HTTP status codes.
// Failure outcomes have no status and are left to Reachable.
type StatusFilter struct {
	include map[int]struct{}
	exclude map[int]struct{}
}

// NewStatusFilter creates a status code filter. If include is non-empty, only
// those codes pass through. If exclude is non-empty, those codes are filtered.
func NewStatusFilter(include, exclude []int) *StatusFilter {
	f := &StatusFilter{
		include: make(map[int]struct{}, len(include)),
		exclude: make(map[int]struct{}, len(exclude)),
	}
	for _, code := range include {
		f.include[code] = struct{}{}
	}
	for _, code := range exclude {
		f.exclude[code] = struct{}{}
	}
	return f
}

func (f *StatusFilter) Name() string { return "status" }

func (f *StatusFilter) ShouldFilter(o *scanner.Outcome) bool {
	if !o.OK() {
		return false
	}
	if len(f.include) > 0 {
		_, ok := f.include[o.Status]
		return !ok
	}
	if len(f.exclude) > 0 {
		_, ok := f.exclude[o.Status]
		return ok
	}
	return false
}

// MaxStatusFilter drops responses with a status at or above the limit.
type MaxStatusFilter struct {
	limit int
}

// NewMaxStatusFilter creates a filter keeping status < limit.
func NewMaxStatusFilter(limit int) *MaxStatusFilter {
	return &MaxStatusFilter{limit: limit}
}

func (f *MaxStatusFilter) Name() string { return "max-status" }

func (f *MaxStatusFilter) ShouldFilter(o *scanner.Outcome) bool {
	return o.OK() && o.Status >= f.limit
}
