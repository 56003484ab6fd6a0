package scanner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/time/rate"
)

func makeUnits(n int) []ProbeUnit {
	units := make([]ProbeUnit, n)
	for i := range units {
		units[i] = ProbeUnit{URL: fmt.Sprintf("http://example.com/%d", i), Hint: HintPath}
	}
	return units
}

// inFlightFetcher records the peak number of concurrent Fetch calls.
type inFlightFetcher struct {
	cur, peak atomic.Int64
	hold      time.Duration
}

func (f *inFlightFetcher) Fetch(_ context.Context, unit ProbeUnit, _ time.Duration) Outcome {
	n := f.cur.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(f.hold)
	f.cur.Add(-1)
	return NewResponseOutcome(unit, 200, f.hold, nil)
}

func TestRunWorkerPoolAdmissionBound(t *testing.T) {
	for _, conc := range []int{1, 5, 50} {
		t.Run(fmt.Sprintf("concurrency=%d", conc), func(t *testing.T) {
			f := &inFlightFetcher{hold: 2 * time.Millisecond}
			rs := RunWorkerPool(context.Background(), f, makeUnits(100), WorkerConfig{
				Budget: Budget{MaxConcurrency: conc},
				Logger: zaptest.NewLogger(t).Sugar(),
			})
			assert.Equal(t, 100, rs.Len())
			assert.LessOrEqual(t, f.peak.Load(), int64(conc))
			assert.False(t, rs.Partial)
		})
	}
}

func TestRunWorkerPoolCompleteness(t *testing.T) {
	units := makeUnits(200)
	f := FetcherFunc(func(_ context.Context, u ProbeUnit, _ time.Duration) Outcome {
		return NewResponseOutcome(u, 200, 0, nil)
	})
	rs := RunWorkerPool(context.Background(), f, units, WorkerConfig{Budget: Budget{MaxConcurrency: 20}})

	require.Equal(t, 200, rs.Len())
	assert.Equal(t, 200, rs.Total)
	assert.False(t, rs.Partial)
	seen := make(map[string]bool)
	for _, o := range rs.Outcomes {
		assert.False(t, seen[o.Unit.URL], "duplicate outcome for %s", o.Unit.URL)
		seen[o.Unit.URL] = true
	}
	for _, u := range units {
		assert.True(t, seen[u.URL], "missing outcome for %s", u.URL)
	}
}

func TestRunWorkerPoolKeepsFailures(t *testing.T) {
	f := FetcherFunc(func(_ context.Context, u ProbeUnit, _ time.Duration) Outcome {
		if u.URL == "http://example.com/1" {
			return NewFailureOutcome(u, ErrorConnectionFailed, fmt.Errorf("refused"), 0)
		}
		return NewResponseOutcome(u, 404, 0, nil)
	})
	rs := RunWorkerPool(context.Background(), f, makeUnits(3), WorkerConfig{
		Budget: Budget{MaxConcurrency: 2},
		Logger: zaptest.NewLogger(t).Sugar(),
	})
	require.Equal(t, 3, rs.Len())
	failed := rs.Failures()
	require.Len(t, failed, 1)
	assert.Equal(t, ErrorConnectionFailed, failed[0].Error.Kind)
}

func TestRunWorkerPoolCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var accepted atomic.Int32
	f := FetcherFunc(func(_ context.Context, u ProbeUnit, _ time.Duration) Outcome {
		return NewResponseOutcome(u, 200, 0, nil)
	})
	rs := RunWorkerPool(ctx, f, makeUnits(50), WorkerConfig{
		Budget: Budget{MaxConcurrency: 1},
		OnOutcome: func(Outcome) {
			if accepted.Add(1) == 3 {
				cancel()
			}
		},
	})

	assert.True(t, rs.Partial)
	assert.Equal(t, 3, rs.Len())
	assert.Equal(t, 50, rs.Total)
}

func TestRunWorkerPoolInFlightSurvivesCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := FetcherFunc(func(fctx context.Context, u ProbeUnit, _ time.Duration) Outcome {
		cancel()
		time.Sleep(10 * time.Millisecond)
		if fctx.Err() != nil {
			return NewFailureOutcome(u, ErrorOther, fctx.Err(), 0)
		}
		return NewResponseOutcome(u, 200, 0, nil)
	})
	rs := RunWorkerPool(ctx, f, makeUnits(5), WorkerConfig{Budget: Budget{MaxConcurrency: 1}})

	require.Equal(t, 1, rs.Len())
	assert.True(t, rs.Outcomes[0].OK(), "in-flight fetch should not see the cancellation")
	assert.True(t, rs.Partial)
}

func TestRunWorkerPoolPacing(t *testing.T) {
	const delay = 200 * time.Millisecond
	var mu sync.Mutex
	var starts []time.Time
	f := FetcherFunc(func(_ context.Context, u ProbeUnit, _ time.Duration) Outcome {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		return NewResponseOutcome(u, 200, 0, nil)
	})

	begin := time.Now()
	rs := RunWorkerPool(context.Background(), f, makeUnits(10), WorkerConfig{
		Budget: Budget{MaxConcurrency: 1, MinDelay: delay},
	})
	require.Equal(t, 10, rs.Len())
	assert.GreaterOrEqual(t, time.Since(begin), 9*delay)
	for i := 1; i < len(starts); i++ {
		assert.GreaterOrEqual(t, starts[i].Sub(starts[i-1]), delay, "gap before fetch %d", i)
	}
}

func TestRunWorkerPoolGlobalRate(t *testing.T) {
	f := FetcherFunc(func(_ context.Context, u ProbeUnit, _ time.Duration) Outcome {
		return NewResponseOutcome(u, 200, 0, nil)
	})
	begin := time.Now()
	rs := RunWorkerPool(context.Background(), f, makeUnits(6), WorkerConfig{
		Budget:  Budget{MaxConcurrency: 10},
		Limiter: rate.NewLimiter(rate.Every(20*time.Millisecond), 1),
	})
	require.Equal(t, 6, rs.Len())
	assert.GreaterOrEqual(t, time.Since(begin), 90*time.Millisecond)
}

func TestRunWorkerPoolEmpty(t *testing.T) {
	rs := RunWorkerPool(context.Background(), &inFlightFetcher{}, nil, WorkerConfig{Budget: Budget{MaxConcurrency: 3}})
	assert.Equal(t, 0, rs.Len())
	assert.False(t, rs.Partial)
}

func TestBudgetValidate(t *testing.T) {
	assert.NoError(t, Budget{MaxConcurrency: 1}.Validate())
	assert.Error(t, Budget{MaxConcurrency: 0}.Validate())
	assert.Error(t, Budget{MaxConcurrency: 2, MinDelay: -time.Second}.Validate())
}

func TestCollectFinalize(t *testing.T) {
	f := FetcherFunc(func(_ context.Context, unit ProbeUnit, _ time.Duration) Outcome {
		if unit.URL == "http://example.com/1" {
			return NewFailureOutcome(unit, ErrorConnectionFailed, fmt.Errorf("refused"), 0)
		}
		return NewResponseOutcome(unit, 200, 0, nil)
	})
	agg := Collect(context.Background(), f, makeUnits(4), WorkerConfig{Budget: Budget{MaxConcurrency: 2}})

	kept := agg.Finalize(func(o Outcome) bool { return o.OK() })
	assert.Equal(t, 3, kept.Len())
	assert.Equal(t, 4, agg.Freeze().Len())
	assert.ErrorIs(t, agg.Accept(NewResponseOutcome(ProbeUnit{URL: "late"}, 200, 0, nil)), ErrResultSetFrozen)
}
