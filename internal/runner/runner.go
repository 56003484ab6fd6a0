// Package runner wires the scan modules to the probing engine.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/maxvaer/reconx/internal/config"
	"github.com/maxvaer/reconx/internal/output"
	"github.com/maxvaer/reconx/internal/resolve"
	"github.com/maxvaer/reconx/internal/scanner"
)

// Module names, also used as report file suffixes.
const (
	ModuleSubdomains  = "subdomains"
	ModuleProbe       = "http_probe"
	ModuleFingerprint = "fingerprint"
	ModuleDirBrute    = "dirbrute"
)

// Modules lists every module in execution order.
var Modules = []string{ModuleSubdomains, ModuleProbe, ModuleFingerprint, ModuleDirBrute}

// DefaultSchemes are probed in order for every module that targets the host.
var DefaultSchemes = []string{"https", "http"}

// Runner executes the enabled scan modules against one domain.
type Runner struct {
	opts      *config.Options
	log       *zap.SugaredLogger
	req       *scanner.Requester
	sink      *output.ReportSink
	out       *output.TextWriter
	throttler *scanner.Throttler
	limiter   *rate.Limiter
	budget    scanner.Budget
	progress  bool
	scanID    string
	host      string // normalized target, used for report names
}

// New creates a runner. Result lines are written to stdout.
func New(opts *config.Options, log *zap.SugaredLogger, stdout io.Writer) (*Runner, error) {
	budget := scanner.Budget{MaxConcurrency: opts.Concurrency, MinDelay: opts.Delay()}
	if err := budget.Validate(); err != nil {
		return nil, fmt.Errorf("invalid budget: %w", err)
	}
	req, err := scanner.NewRequester(opts)
	if err != nil {
		return nil, fmt.Errorf("creating requester: %w", err)
	}

	host, err := resolve.NormalizeDomain(opts.Domain)
	if err != nil {
		// Modules report the resolve error themselves and are skipped.
		host = opts.Domain
	}

	scanID := uuid.NewString()
	log = log.With("scan_id", scanID, "target", opts.Domain)

	var limiter *rate.Limiter
	if opts.GlobalRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.GlobalRate), 1)
	}

	return &Runner{
		opts:      opts,
		log:       log,
		req:       req,
		sink:      output.NewReportSink(opts.ReportsDir),
		out:       output.NewTextWriter(stdout, opts.NoColor, opts.Quiet),
		throttler: scanner.NewThrottler(budget.MinDelay, opts.AdaptiveThrottle, log),
		limiter:   limiter,
		budget:    budget,
		progress:  output.ProgressEnabled(opts.Quiet),
		scanID:    scanID,
		host:      host,
	}, nil
}

// ScanID returns the identifier attached to every log line of this run.
func (r *Runner) ScanID() string { return r.scanID }

// Run executes the enabled modules in order. A module whose targets cannot
// be resolved is logged and skipped. Cancellation stops before the next
// module and is returned as the context error.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Infow("scan started",
		"modules", r.enabledModules(),
		"concurrency", r.budget.MaxConcurrency,
		"delay", r.budget.MinDelay,
		"timeout", r.opts.Timeout,
	)

	for _, module := range r.enabledModules() {
		if ctx.Err() != nil {
			break
		}
		var err error
		switch module {
		case ModuleSubdomains:
			_, err = r.Subdomains(ctx)
		case ModuleProbe:
			_, err = r.Probe(ctx)
		case ModuleFingerprint:
			_, err = r.Fingerprint(ctx)
		case ModuleDirBrute:
			_, err = r.DirBrute(ctx)
		}
		if err != nil {
			var rerr *resolve.ResolveError
			if errors.As(err, &rerr) {
				r.log.Errorw("module skipped", "module", module, "error", err)
				continue
			}
			return fmt.Errorf("%s: %w", module, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	r.log.Infow("scan finished", "reports_dir", r.sink.Dir)
	return nil
}

func (r *Runner) enabledModules() []string {
	var mods []string
	for _, m := range Modules {
		if r.opts.Enabled(m) {
			mods = append(mods, m)
		}
	}
	return mods
}

// scan runs the units through the worker pool with progress display and
// returns the frozen aggregator.
func (r *Runner) scan(ctx context.Context, module string, f scanner.Fetcher, units []scanner.ProbeUnit) *scanner.Aggregator {
	log := r.log.With("module", module)
	log.Debugw("running pool", "units", len(units))
	_ = r.out.WriteHeader(module, len(units))

	var bar *output.Progress
	if r.progress {
		bar = output.NewProgress(os.Stderr, len(units), module)
	}
	agg := scanner.Collect(ctx, f, units, scanner.WorkerConfig{
		Budget:    r.budget,
		Timeout:   r.opts.Timeout,
		Throttler: r.throttler,
		Limiter:   r.limiter,
		OnOutcome: func(scanner.Outcome) { bar.Increment() },
		Logger:    log,
	})
	bar.Finish()

	if rs := agg.All(); rs.Partial {
		log.Warnw("module interrupted, results are partial", "completed", rs.Len(), "total", rs.Total)
	}
	return agg
}

// persist writes the module report. Failures are logged and do not affect the
// returned results.
func (r *Runner) persist(module string, rs scanner.ResultSet, kept int, v any) {
	log := r.log.With("module", module)
	path, err := r.sink.Write(r.host, module, v)
	if err != nil {
		log.Warnw("could not save report", "error", err)
		path = ""
	} else {
		log.Infow("report saved", "path", path, "entries", kept)
	}
	_ = r.out.WriteFooter(output.NewStats(module, rs, kept), path)
}

// inUnitOrder sorts outcomes back into resolver order so reports are stable
// across runs.
func inUnitOrder(units []scanner.ProbeUnit, outcomes []scanner.Outcome) []scanner.Outcome {
	index := make(map[string]int, len(units))
	for i, u := range units {
		index[u.URL] = i
	}
	sorted := slices.Clone(outcomes)
	slices.SortStableFunc(sorted, func(a, b scanner.Outcome) int {
		return index[a.Unit.URL] - index[b.Unit.URL]
	})
	return sorted
}

// optional returns nil for an empty string so reports carry null.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
