package query

import (
	"sort"
	"strings"

	"github.com/kartikbazzad/bunbase/lookup/internal/records"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultLocale is the collation used for distinct-value lists.
const DefaultLocale = "vi"

// Collator sorts strings for a locale. It is safe for concurrent use; each
// sort builds its own collate.Collator since those keep internal buffers.
type Collator struct {
	tag language.Tag
}

// NewCollator returns a collator for locale (a BCP 47 tag). Unparseable
// locales fall back to the root collation.
func NewCollator(locale string) *Collator {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return &Collator{tag: tag}
}

// Sort orders ss in place. Strings the collation considers equal (for
// example NFC and NFD spellings) are ordered bytewise so output is stable.
func (c *Collator) Sort(ss []string) {
	col := collate.New(c.tag)
	sort.Slice(ss, func(i, j int) bool {
		if cmp := col.CompareString(ss[i], ss[j]); cmp != 0 {
			return cmp < 0
		}
		return ss[i] < ss[j]
	})
}

// DistinctValues returns, for each field, the sorted unique trimmed non-empty
// string forms found across recs. Fields never seen map to an empty slice.
func DistinctValues(recs []records.Record, fields []string, c *Collator) map[string][]string {
	if c == nil {
		c = NewCollator(DefaultLocale)
	}
	out := make(map[string][]string, len(fields))
	for _, field := range fields {
		if _, done := out[field]; done {
			continue
		}
		seen := make(map[string]struct{})
		vals := make([]string, 0)
		for _, r := range recs {
			v, ok := r.Get(field)
			if !ok {
				continue
			}
			s := strings.TrimSpace(v.String())
			if s == "" {
				continue
			}
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			vals = append(vals, s)
		}
		c.Sort(vals)
		out[field] = vals
	}
	return out
}
