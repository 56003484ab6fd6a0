package runner

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/maxvaer/reconx/internal/filter"
	"github.com/maxvaer/reconx/internal/resolve"
	"github.com/maxvaer/reconx/internal/scanner"
)

// FingerprintRecord is one fingerprint report entry. Absent values are null;
// the field set is read by later tooling and must stay stable.
type FingerprintRecord struct {
	URL    string  `json:"url"`
	Status int     `json:"status"`
	Server *string `json:"server"`
	CMS    *string `json:"cms"`
	Title  *string `json:"title"`
}

// Fingerprint fetches the site root over https and http and extracts the
// server banner, page title and generator meta tag.
func (r *Runner) Fingerprint(ctx context.Context) ([]FingerprintRecord, error) {
	units, err := resolve.Resolve(r.opts.Domain, resolve.Spec{Schemes: DefaultSchemes})
	if err != nil {
		return nil, err
	}
	log := r.log.With("module", ModuleFingerprint)

	agg := r.scan(ctx, ModuleFingerprint, r.req, units)
	rs := agg.Freeze()
	kept := inUnitOrder(units, agg.Finalize(filter.NewChain(filter.Reachable{}).Predicate()).Outcomes)

	records := make([]FingerprintRecord, len(kept))
	g := new(errgroup.Group)
	g.SetLimit(r.budget.MaxConcurrency)
	for i, o := range kept {
		g.Go(func() error {
			rec, err := newFingerprintRecord(o)
			if err != nil {
				log.Debugw("could not parse page", "url", o.Unit.URL, "error", err)
			}
			records[i] = rec
			return nil
		})
	}
	_ = g.Wait()

	for i := range kept {
		_ = r.out.WriteResult(&kept[i])
	}
	r.persist(ModuleFingerprint, rs, len(records), records)
	return records, nil
}

// newFingerprintRecord builds the entry for a reachable outcome. The record
// is valid even when the body cannot be parsed.
func newFingerprintRecord(o scanner.Outcome) (FingerprintRecord, error) {
	rec := FingerprintRecord{
		URL:    o.Unit.URL,
		Status: o.Status,
		Server: optional(o.Header("Server")),
	}
	if o.Payload == nil || len(o.Payload.Body) == 0 {
		return rec, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(o.Payload.Body))
	if err != nil {
		return rec, err
	}
	if title := doc.Find("title").First(); title.Length() > 0 {
		rec.Title = optional(strings.TrimSpace(title.Text()))
	}
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name, _ := s.Attr("name")
		if !strings.EqualFold(name, "generator") {
			return true
		}
		content, _ := s.Attr("content")
		rec.CMS = optional(strings.TrimSpace(content))
		return rec.CMS == nil
	})
	return rec, nil
}
