package runner

import (
	"context"
	"strings"

	"github.com/maxvaer/reconx/internal/filter"
	"github.com/maxvaer/reconx/internal/resolve"
	"github.com/maxvaer/reconx/internal/scanner"
)

// DefaultProbePaths are requested on every scheme by the HTTP probe.
var DefaultProbePaths = []string{"/", "/robots.txt", "/.well-known/security.txt"}

// ProbeRecord is one http_probe report entry.
type ProbeRecord struct {
	URL         string            `json:"url"`
	StatusCode  int               `json:"status_code"`
	FinalURL    string            `json:"final_url"`
	History     []int             `json:"history"`
	Server      *string           `json:"server"`
	ContentType *string           `json:"content_type"`
	Headers     map[string]string `json:"headers"`
	Length      int64             `json:"length"`
	Reason      string            `json:"reason"`
}

// Probe requests the default paths over https and http and records status,
// redirect chain and response headers for every reachable URL.
func (r *Runner) Probe(ctx context.Context) ([]ProbeRecord, error) {
	units, err := resolve.Resolve(r.opts.Domain, resolve.Spec{
		Schemes: DefaultSchemes,
		Paths:   DefaultProbePaths,
	})
	if err != nil {
		return nil, err
	}

	agg := r.scan(ctx, ModuleProbe, r.req, units)
	rs := agg.Freeze()
	kept := inUnitOrder(units, agg.Finalize(filter.NewChain(filter.Reachable{}).Predicate()).Outcomes)

	records := make([]ProbeRecord, 0, len(kept))
	for _, o := range kept {
		records = append(records, newProbeRecord(o))
		_ = r.out.WriteResult(&o)
	}
	r.persist(ModuleProbe, rs, len(records), records)
	return records, nil
}

func newProbeRecord(o scanner.Outcome) ProbeRecord {
	p := o.Payload
	rec := ProbeRecord{
		URL:         o.Unit.URL,
		StatusCode:  o.Status,
		FinalURL:    o.Unit.URL,
		History:     []int{},
		Server:      optional(o.Header("Server")),
		ContentType: optional(o.Header("Content-Type")),
		Headers:     map[string]string{},
	}
	if p == nil {
		return rec
	}
	rec.FinalURL = p.FinalURL
	rec.Length = p.ContentLength
	rec.Reason = p.Reason
	if len(p.Redirects) > 0 {
		rec.History = p.Redirects
	}
	for k, v := range p.Header {
		rec.Headers[k] = strings.Join(v, ", ")
	}
	return rec
}
