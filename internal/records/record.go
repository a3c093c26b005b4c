package records

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is one row of the dataset: field names mapped to values, keeping the
// order in which fields first appeared in the source document.
type Record struct {
	keys   []string
	values map[string]Value
}

// NewRecord returns an empty record.
func NewRecord() Record {
	return Record{values: make(map[string]Value)}
}

// FromPairs builds a record from alternating field/value arguments.
// Values may be string, float64, int, bool, nil or Value.
func FromPairs(pairs ...interface{}) Record {
	r := NewRecord()
	for i := 0; i+1 < len(pairs); i += 2 {
		field, _ := pairs[i].(string)
		r.Set(field, ToValue(pairs[i+1]))
	}
	return r
}

// ToValue converts a plain Go scalar to a Value.
func ToValue(x interface{}) Value {
	switch t := x.(type) {
	case Value:
		return t
	case nil:
		return Null()
	case string:
		return StringValue(t)
	case bool:
		return BoolValue(t)
	case int:
		return NumberValue(float64(t))
	case int64:
		return NumberValue(float64(t))
	case float64:
		return NumberValue(t)
	case float32:
		return NumberValue(float64(t))
	case json.Number:
		v, _ := valueFromToken(t)
		return v
	default:
		return StringValue(fmt.Sprint(t))
	}
}

// Set stores value under field. New fields are appended to the key order.
func (r *Record) Set(field string, value Value) {
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	if _, ok := r.values[field]; !ok {
		r.keys = append(r.keys, field)
	}
	r.values[field] = value
}

// Get returns the value for field. ok is false when the field is absent or null.
func (r Record) Get(field string) (Value, bool) {
	v, ok := r.values[field]
	if !ok || v.IsNull() {
		return Value{}, false
	}
	return v, true
}

// Has reports whether the field key is present, even with a null value.
func (r Record) Has(field string) bool {
	_, ok := r.values[field]
	return ok
}

// Keys returns the field names in source order. The slice must not be modified.
func (r Record) Keys() []string { return r.keys }

// Len returns the number of fields.
func (r Record) Len() int { return len(r.keys) }

// MarshalJSON writes the record as a JSON object in source key order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := r.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping key order. Nested objects and
// arrays are stored as their compact JSON text.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return r.decode(dec)
}

func (r *Record) decode(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected object, got %v", tok)
	}
	*r = NewRecord()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		field, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record: expected field name, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("record: field %q: %w", field, err)
		}
		v, err := parseRaw(raw)
		if err != nil {
			return fmt.Errorf("record: field %q: %w", field, err)
		}
		r.Set(field, v)
	}
	// closing '}'
	_, err = dec.Token()
	return err
}

func parseRaw(raw json.RawMessage) (Value, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return Value{}, err
		}
		return StringValue(buf.String()), nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return valueFromToken(tok)
}
