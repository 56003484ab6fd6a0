package runner

import (
	"context"

	"github.com/maxvaer/reconx/internal/filter"
	"github.com/maxvaer/reconx/internal/resolve"
)

// DirRecord is one dirbrute report entry.
type DirRecord struct {
	URL    string `json:"url"`
	Status int    `json:"status"`
}

// DirBrute requests every word-list path over https and http and keeps the
// responses below 400.
func (r *Runner) DirBrute(ctx context.Context) ([]DirRecord, error) {
	units, err := resolve.Resolve(r.opts.Domain, resolve.Spec{
		Schemes:            DefaultSchemes,
		Wordlist:           r.opts.WordlistPath,
		UseDefaultWordlist: true,
	})
	if err != nil {
		return nil, err
	}

	agg := r.scan(ctx, ModuleDirBrute, r.req, units)
	rs := agg.Freeze()
	kept := inUnitOrder(units, agg.Finalize(filter.StatusBelow(400)).Outcomes)

	records := make([]DirRecord, 0, len(kept))
	for i, o := range kept {
		records = append(records, DirRecord{URL: o.Unit.URL, Status: o.Status})
		_ = r.out.WriteResult(&kept[i])
	}
	r.persist(ModuleDirBrute, rs, len(records), records)
	return records, nil
}
