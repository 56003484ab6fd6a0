// Package output renders scan results to the console and persists module
// reports.
package output

import (
	"time"

	"github.com/maxvaer/reconx/internal/scanner"
)

// Stats holds aggregate statistics for one module run.
type Stats struct {
	Module         string
	TotalRequests  int
	Completed      int
	KeptCount      int
	ErrorCount     int
	Partial        bool
	Duration       time.Duration
	RequestsPerSec float64
}

// NewStats summarizes a complete result set and the number of outcomes kept
// for the report.
func NewStats(module string, rs scanner.ResultSet, kept int) Stats {
	s := Stats{
		Module:        module,
		TotalRequests: rs.Total,
		Completed:     rs.Len(),
		KeptCount:     kept,
		ErrorCount:    len(rs.Failures()),
		Partial:       rs.Partial,
		Duration:      rs.Elapsed,
	}
	if secs := rs.Elapsed.Seconds(); secs > 0 {
		s.RequestsPerSec = float64(rs.Len()) / secs
	}
	return s
}
