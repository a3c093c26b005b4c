package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DecodeRecords parses a JSON array of objects. An empty document or a
// top-level null yields an empty collection.
func DecodeRecords(r io.Reader) ([]Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	if tok == nil {
		return []Record{}, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("decode records: expected array, got %v", tok)
	}

	out := make([]Record, 0, 256)
	for dec.More() {
		var rec Record
		if err := rec.decode(dec); err != nil {
			return nil, fmt.Errorf("decode records: element %d: %w", len(out), err)
		}
		out = append(out, rec)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return out, nil
}

// BuildCatalog returns every field name seen across recs, in order of first
// occurrence.
func BuildCatalog(recs []Record) []string {
	seen := make(map[string]struct{})
	catalog := make([]string, 0)
	for _, r := range recs {
		for _, k := range r.keys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			catalog = append(catalog, k)
		}
	}
	return catalog
}
