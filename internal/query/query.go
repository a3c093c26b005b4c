// Package query filters and pages the in-memory record collection.
//
// Query-string parameters map to filters: plain field names are
// case-insensitive substring filters (comma-separated candidates are ORed),
// "<field>_start" / "<field>_end" bound configured date fields, and "limit" /
// "offset" page the result. Distinct fields are ANDed. Malformed parameters
// never fail a request; they simply impose no constraint.
package query

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/kartikbazzad/bunbase/lookup/internal/records"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultLimit is the page size used when limit is absent or not positive.
	DefaultLimit = 50

	paramLimit  = "limit"
	paramOffset = "offset"

	suffixStart = "_start"
	suffixEnd   = "_end"
)

// Options configures query parsing.
type Options struct {
	// DateFields lists the fields holding dates (day serials or ISO strings).
	DateFields []string
	// DefaultLimit overrides DefaultLimit when positive.
	DefaultLimit int
	// MaxLimit caps limit when positive.
	MaxLimit int
}

// Term is a substring filter on one field.
type Term struct {
	Field      string
	Candidates []string // lower-cased, NFC
	// Date also matches candidates against the ISO form of the value, so a
	// serial and an ISO string holding the same day filter alike.
	Date bool
}

// Range bounds a date field. A nil bound is open.
type Range struct {
	Field string
	Start *records.DaySerial
	End   *records.DaySerial
}

// Query is a parsed search request.
type Query struct {
	Limit  int
	Offset int
	Terms  []Term
	Ranges []Range
}

// Parse builds a Query from request parameters. Repeated parameters are
// treated as extra comma-separated candidates.
func Parse(values url.Values, opts Options) Query {
	limit := opts.DefaultLimit
	if limit <= 0 {
		limit = DefaultLimit
	}
	q := Query{Limit: limit}

	if n, ok := parseInt(values.Get(paramLimit)); ok && n > 0 {
		q.Limit = n
	}
	if opts.MaxLimit > 0 && q.Limit > opts.MaxLimit {
		q.Limit = opts.MaxLimit
	}
	if n, ok := parseInt(values.Get(paramOffset)); ok && n > 0 {
		q.Offset = n
	}

	dateFields := make(map[string]struct{}, len(opts.DateFields))
	for _, f := range opts.DateFields {
		dateFields[f] = struct{}{}
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		if k == paramLimit || k == paramOffset {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ranges := make(map[string]*Range)
	var rangeOrder []string
	for _, key := range keys {
		raw := strings.Join(values[key], ",")
		if strings.TrimSpace(raw) == "" {
			continue
		}

		if base, isStart, ok := splitBound(key); ok {
			if _, isDate := dateFields[base]; !isDate {
				continue
			}
			bound, ok := records.ParseDayString(raw)
			if !ok {
				continue
			}
			rg := ranges[base]
			if rg == nil {
				rg = &Range{Field: base}
				ranges[base] = rg
				rangeOrder = append(rangeOrder, base)
			}
			if isStart {
				rg.Start = &bound
			} else {
				rg.End = &bound
			}
			continue
		}

		if term, ok := newTerm(key, raw); ok {
			_, term.Date = dateFields[key]
			q.Terms = append(q.Terms, term)
		}
	}
	for _, f := range rangeOrder {
		q.Ranges = append(q.Ranges, *ranges[f])
	}
	return q
}

func splitBound(key string) (base string, isStart, ok bool) {
	switch {
	case strings.HasSuffix(key, suffixStart):
		return strings.TrimSuffix(key, suffixStart), true, true
	case strings.HasSuffix(key, suffixEnd):
		return strings.TrimSuffix(key, suffixEnd), false, true
	}
	return "", false, false
}

func newTerm(field, raw string) (Term, bool) {
	var cands []string
	for _, part := range strings.Split(raw, ",") {
		part = fold(strings.TrimSpace(part))
		if part != "" {
			cands = append(cands, part)
		}
	}
	if len(cands) == 0 {
		return Term{}, false
	}
	return Term{Field: field, Candidates: cands}, true
}

// parseInt accepts a leading integer: "25", "25abc" and " 7" parse, "abc"
// does not.
func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= '0' && c <= '9') || (end == 0 && (c == '-' || c == '+')) {
			end++
			continue
		}
		break
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// fold lower-cases s in NFC so precomposed and combining-mark spellings of
// the same Vietnamese text compare equal.
func fold(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

// IsEmpty reports whether q has no filters.
func (q Query) IsEmpty() bool {
	return len(q.Terms) == 0 && len(q.Ranges) == 0
}

// Match reports whether r satisfies every filter in q.
func (q Query) Match(r records.Record) bool {
	for _, t := range q.Terms {
		if !t.match(r) {
			return false
		}
	}
	for _, rg := range q.Ranges {
		if !rg.match(r) {
			return false
		}
	}
	return true
}

func (t Term) match(r records.Record) bool {
	v, ok := r.Get(t.Field)
	if !ok {
		return false
	}
	cell := fold(v.String())
	var iso string
	if t.Date {
		if day, ok := records.ParseDay(v); ok {
			iso = day.ISO()
		}
	}
	for _, c := range t.Candidates {
		if strings.Contains(cell, c) || (iso != "" && strings.Contains(iso, c)) {
			return true
		}
	}
	return false
}

func (rg Range) match(r records.Record) bool {
	v, ok := r.Get(rg.Field)
	if !ok {
		return false
	}
	day, ok := records.ParseDay(v)
	if !ok {
		return false
	}
	if rg.Start != nil && day < *rg.Start {
		return false
	}
	if rg.End != nil && day > *rg.End {
		return false
	}
	return true
}
