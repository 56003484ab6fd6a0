package scanner

import (
	"fmt"
	"net/http"
	"time"
)

// ErrorKind is the closed set of transport failures a fetch can end in.
type ErrorKind int

const (
	ErrorOther ErrorKind = iota
	ErrorTimeout
	ErrorConnectionFailed
	ErrorTLSFailed
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorTimeout:
		return "timeout"
	case ErrorConnectionFailed:
		return "connection_failed"
	case ErrorTLSFailed:
		return "tls_failed"
	default:
		return "other"
	}
}

// MarshalText renders the kind by name in JSON output.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// FetchError describes why a probe produced no HTTP response.
type FetchError struct {
	Kind ErrorKind
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Payload carries the response metadata kept for a successful fetch.
type Payload struct {
	FinalURL      string      // URL after redirects
	Header        http.Header // response headers of the final response
	Body          []byte      // body prefix, bounded by the requester's body limit
	ContentLength int64       // full body size; the announced length when Body was truncated
	Truncated     bool        // body exceeded the limit
	Redirects     []int       // status codes of the redirect chain, oldest first
	Reason        string      // status text, e.g. "Not Found"
}

// Outcome is the normalized result of attempting one probe unit. Exactly one
// of Status (non-zero) and Error (non-nil) is set; use the constructors.
type Outcome struct {
	Unit    ProbeUnit
	Status  int
	Elapsed time.Duration
	Error   *FetchError
	Payload *Payload
}

// NewResponseOutcome builds the outcome for a received HTTP response.
func NewResponseOutcome(unit ProbeUnit, status int, elapsed time.Duration, payload *Payload) Outcome {
	return Outcome{Unit: unit, Status: status, Elapsed: elapsed, Payload: payload}
}

// NewFailureOutcome builds the outcome for a transport failure.
func NewFailureOutcome(unit ProbeUnit, kind ErrorKind, cause error, elapsed time.Duration) Outcome {
	return Outcome{
		Unit:    unit,
		Elapsed: elapsed,
		Error:   &FetchError{Kind: kind, URL: unit.URL, Err: cause},
	}
}

// OK reports whether a response was received (regardless of status class).
func (o Outcome) OK() bool { return o.Error == nil && o.Status != 0 }

// Header returns the named response header, or "" for failures.
func (o Outcome) Header(name string) string {
	if o.Payload == nil || o.Payload.Header == nil {
		return ""
	}
	return o.Payload.Header.Get(name)
}

// Predicate selects outcomes from a result set.
type Predicate func(Outcome) bool

// ResultSet is the frozen collection of outcomes of one pool run, in
// completion order.
type ResultSet struct {
	Outcomes []Outcome
	Total    int  // units submitted to the run
	Partial  bool // run was cancelled before every unit completed
	Elapsed  time.Duration
}

// Len returns the number of outcomes.
func (rs ResultSet) Len() int { return len(rs.Outcomes) }

// Filter returns a new result set holding only outcomes matching p. A nil
// predicate keeps everything.
func (rs ResultSet) Filter(p Predicate) ResultSet {
	out := rs
	out.Outcomes = make([]Outcome, 0, len(rs.Outcomes))
	for _, o := range rs.Outcomes {
		if p == nil || p(o) {
			out.Outcomes = append(out.Outcomes, o)
		}
	}
	return out
}

// Failures returns the outcomes that carry a FetchError.
func (rs ResultSet) Failures() []Outcome {
	var failed []Outcome
	for _, o := range rs.Outcomes {
		if o.Error != nil {
			failed = append(failed, o)
		}
	}
	return failed
}
