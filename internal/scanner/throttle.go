package scanner

import (
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// Throttler provides adaptive pacing on top of the fixed per-worker delay.
// When it sees 429/503 responses or a run of transport errors it backs off
// exponentially; healthy responses recover gradually toward the base delay.
type Throttler struct {
	mu           sync.Mutex
	baseDelay    time.Duration
	currentDelay time.Duration
	consecutive  int // consecutive throttle signals
	enabled      bool
	log          *zap.SugaredLogger
}

// NewThrottler creates a throttler. When disabled it always reports the base
// delay and ignores recorded signals.
func NewThrottler(baseDelay time.Duration, enabled bool, log *zap.SugaredLogger) *Throttler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Throttler{
		baseDelay:    baseDelay,
		currentDelay: baseDelay,
		enabled:      enabled,
		log:          log,
	}
}

// Delay returns the current per-request delay.
func (t *Throttler) Delay() time.Duration {
	if t == nil {
		return 0
	}
	if !t.enabled {
		return t.baseDelay
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentDelay
}

// RecordStatus updates the throttler based on a response status code.
func (t *Throttler) RecordStatus(statusCode int) {
	if t == nil || !t.enabled {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if statusCode == http.StatusTooManyRequests || statusCode == http.StatusServiceUnavailable {
		t.consecutive++
		if t.backoff() {
			t.log.Warnw("rate limited, backing off", "status", statusCode, "delay", t.currentDelay)
		}
		return
	}
	if t.consecutive == 0 {
		return
	}
	t.consecutive = 0
	newDelay := max(t.currentDelay/2, t.baseDelay)
	if newDelay != t.currentDelay {
		t.currentDelay = newDelay
		t.log.Debugw("recovering", "delay", t.currentDelay)
	}
}

// RecordError flags a transport failure as a possible rate limit signal.
// Three in a row trigger a back-off.
func (t *Throttler) RecordError() {
	if t == nil || !t.enabled {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutive++
	if t.consecutive >= 3 && t.backoff() {
		t.log.Warnw("multiple errors, backing off", "delay", t.currentDelay)
	}
}

// backoff doubles the current delay within bounds and reports whether it
// changed. Caller must hold t.mu.
func (t *Throttler) backoff() bool {
	newDelay := min(max(t.currentDelay*2, minBackoff), maxBackoff)
	if newDelay == t.currentDelay {
		return false
	}
	t.currentDelay = newDelay
	return true
}
