package query

import (
	"github.com/kartikbazzad/bunbase/lookup/internal/records"
)

// Result is one page of matches plus the total match count.
type Result struct {
	Total int              `json:"total"`
	Data  []records.Record `json:"data"`
}

// Filter returns every record matching q, in collection order.
func Filter(recs []records.Record, q Query) []records.Record {
	if q.IsEmpty() {
		out := make([]records.Record, len(recs))
		copy(out, recs)
		return out
	}
	out := make([]records.Record, 0)
	for _, r := range recs {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Search filters recs and returns the [Offset, Offset+Limit) window of the
// matches. Total counts all matches regardless of paging.
func Search(recs []records.Record, q Query) Result {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	total := 0
	data := make([]records.Record, 0, min(limit, len(recs)))
	for _, r := range recs {
		if !q.Match(r) {
			continue
		}
		if total >= offset && len(data) < limit {
			data = append(data, r)
		}
		total++
	}
	return Result{Total: total, Data: data}
}
