package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"slices"
	"strings"

	"github.com/maxvaer/reconx/internal/filter"
	"github.com/maxvaer/reconx/internal/resolve"
)

// sourceBodyLimit bounds certificate-transparency responses, which are much
// larger than ordinary pages.
const sourceBodyLimit = 32 << 20

// ctEntry covers both crt.sh (name_value) and certspotter (dns_names) rows.
type ctEntry struct {
	NameValue string   `json:"name_value"`
	DNSNames  []string `json:"dns_names"`
}

// Subdomains queries the configured lookup services and returns the sorted
// set of hostnames under the target domain, including the domain itself.
func (r *Runner) Subdomains(ctx context.Context) ([]string, error) {
	units, err := resolve.Resolve(r.opts.Domain, resolve.Spec{Sources: r.opts.SubdomainSources})
	if err != nil {
		return nil, err
	}
	// Lookup services return A-labels, so names are matched against the
	// normalized host rather than the input.
	domain := r.host
	if h, _, err := net.SplitHostPort(domain); err == nil {
		domain = h
	}
	log := r.log.With("module", ModuleSubdomains)

	agg := r.scan(ctx, ModuleSubdomains, r.req.WithBodyLimit(sourceBodyLimit), units)
	rs := agg.Freeze()
	kept := agg.Finalize(filter.StatusIs(200))

	found := map[string]struct{}{domain: {}}
	for _, o := range kept.Outcomes {
		if o.Payload.Truncated {
			log.Warnw("source response truncated", "url", o.Unit.URL, "limit", sourceBodyLimit)
		}
		names, err := parseSubdomains(domain, o.Payload.Body)
		if err != nil {
			log.Warnw("could not parse source response", "url", o.Unit.URL, "error", err)
			continue
		}
		log.Debugw("source parsed", "url", o.Unit.URL, "names", len(names))
		for _, n := range names {
			found[n] = struct{}{}
		}
	}

	subs := make([]string, 0, len(found))
	for n := range found {
		subs = append(subs, n)
	}
	slices.Sort(subs)

	for _, s := range subs {
		_ = r.out.WriteLine(s)
	}
	r.persist(ModuleSubdomains, rs, len(subs), subs)
	return subs, nil
}

// parseSubdomains extracts hostnames under domain from a lookup-service JSON
// array. Wildcard prefixes are stripped.
func parseSubdomains(domain string, body []byte) ([]string, error) {
	var entries []ctEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decoding source response: %w", err)
	}

	var names []string
	add := func(raw string) {
		n := strings.ToLower(strings.TrimSpace(raw))
		n = strings.TrimPrefix(n, "*.")
		n = strings.TrimSuffix(n, ".")
		if n == domain || strings.HasSuffix(n, "."+domain) {
			names = append(names, n)
		}
	}
	for _, e := range entries {
		for _, line := range strings.Split(e.NameValue, "\n") {
			add(line)
		}
		for _, n := range e.DNSNames {
			add(n)
		}
	}
	return names, nil
}
