package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Budget bounds how hard a run may hit the target.
type Budget struct {
	MaxConcurrency int           // in-flight fetches at any instant
	MinDelay       time.Duration // pause each worker takes after a fetch
}

// Validate reports out-of-range budget values.
func (b Budget) Validate() error {
	if b.MaxConcurrency < 1 {
		return fmt.Errorf("max concurrency must be at least 1, got %d", b.MaxConcurrency)
	}
	if b.MinDelay < 0 {
		return fmt.Errorf("min delay must not be negative, got %s", b.MinDelay)
	}
	return nil
}

// WorkerConfig holds options for the worker pool.
type WorkerConfig struct {
	Budget    Budget
	Timeout   time.Duration // per-fetch bound
	Throttler *Throttler    // nil = fixed pacing at Budget.MinDelay
	Limiter   *rate.Limiter // nil = no global rate cap
	OnOutcome func(Outcome) // called once per accepted outcome, from worker goroutines
	Logger    *zap.SugaredLogger
}

// RunWorkerPool fetches every unit with at most Budget.MaxConcurrency fetches
// in flight and returns the collected outcomes in completion order.
func RunWorkerPool(ctx context.Context, f Fetcher, units []ProbeUnit, cfg WorkerConfig) ResultSet {
	return Collect(ctx, f, units, cfg).Freeze()
}

// Collect runs the pool like RunWorkerPool and returns the frozen aggregator,
// so callers can take both the full set and a Finalize view of it.
//
// A worker slot is held for the fetch and the pacing sleep that follows it,
// so consecutive fetches on a slot start at least MinDelay apart. Cancelling
// ctx stops admission; fetches already running finish on their own timeout
// and the returned set is marked partial.
func Collect(ctx context.Context, f Fetcher, units []ProbeUnit, cfg WorkerConfig) *Aggregator {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	sem := semaphore.NewWeighted(int64(max(cfg.Budget.MaxConcurrency, 1)))
	agg := NewAggregator(len(units))
	fetchCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for _, unit := range units {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		if ctx.Err() != nil {
			sem.Release(1)
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			if cfg.Limiter != nil {
				if err := cfg.Limiter.Wait(ctx); err != nil {
					return
				}
			}

			o := f.Fetch(fetchCtx, unit, cfg.Timeout)
			if o.Error != nil {
				cfg.Throttler.RecordError()
				log.Warnw("fetch failed", "url", unit.URL, "kind", o.Error.Kind.String(), "error", o.Error.Err)
			} else {
				cfg.Throttler.RecordStatus(o.Status)
			}

			if err := agg.Accept(o); err != nil {
				log.Debugw("outcome dropped", "url", unit.URL, "error", err)
			} else if cfg.OnOutcome != nil {
				cfg.OnOutcome(o)
			}

			pace(ctx, max(cfg.Budget.MinDelay, cfg.Throttler.Delay()))
		}()
	}

	wg.Wait()
	agg.Freeze()
	return agg
}

// pace sleeps for d or until ctx is done.
func pace(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
