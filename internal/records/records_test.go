package records

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestDecodeRecords_PreservesKeyOrder(t *testing.T) {
	in := `[{"Sheet":"A","Customer":"Acme","Qty":3},{"Customer":"Zenith","Note":null,"Sheet":"B"}]`
	recs, err := DecodeRecords(strings.NewReader(in))
	if err != nil {
		t.Fatalf("DecodeRecords: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len = %d, want 2", len(recs))
	}
	if got := strings.Join(recs[0].Keys(), ","); got != "Sheet,Customer,Qty" {
		t.Errorf("keys[0] = %s, want Sheet,Customer,Qty", got)
	}
	if got := strings.Join(recs[1].Keys(), ","); got != "Customer,Note,Sheet" {
		t.Errorf("keys[1] = %s, want Customer,Note,Sheet", got)
	}
	if _, ok := recs[1].Get("Note"); ok {
		t.Error("null field should read as absent")
	}
	if !recs[1].Has("Note") {
		t.Error("null field key should still be present")
	}
	qty, ok := recs[0].Get("Qty")
	if !ok || qty.String() != "3" {
		t.Errorf("Qty = %q (ok=%v), want 3", qty.String(), ok)
	}
}

func TestDecodeRecords_EmptyAndNull(t *testing.T) {
	for _, in := range []string{"", "null", "[]", "  \n"} {
		recs, err := DecodeRecords(strings.NewReader(in))
		if err != nil {
			t.Errorf("DecodeRecords(%q): %v", in, err)
			continue
		}
		if len(recs) != 0 {
			t.Errorf("DecodeRecords(%q) len = %d, want 0", in, len(recs))
		}
	}
}

func TestDecodeRecords_Errors(t *testing.T) {
	for _, in := range []string{`{"a":1}`, `[1,2]`, `[{"a":1}`, `[{"a":}]`} {
		if _, err := DecodeRecords(strings.NewReader(in)); err == nil {
			t.Errorf("DecodeRecords(%q) expected error", in)
		}
	}
}

func TestDecodeRecords_NestedValuesKeptAsJSON(t *testing.T) {
	recs, err := DecodeRecords(strings.NewReader(`[{"tags":["a", "b"],"meta":{"x": 1}}]`))
	if err != nil {
		t.Fatalf("DecodeRecords: %v", err)
	}
	tags, _ := recs[0].Get("tags")
	if tags.String() != `["a","b"]` {
		t.Errorf("tags = %s", tags.String())
	}
	meta, _ := recs[0].Get("meta")
	if meta.String() != `{"x":1}` {
		t.Errorf("meta = %s", meta.String())
	}
}

func TestRecordMarshalJSON_RoundTrip(t *testing.T) {
	in := `[{"b":1.5,"a":"x","c":true,"d":null}]`
	recs, err := DecodeRecords(strings.NewReader(in))
	if err != nil {
		t.Fatalf("DecodeRecords: %v", err)
	}
	out, err := json.Marshal(recs)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if got := string(out); got != in {
		t.Errorf("encoded = %s, want %s", got, in)
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{NumberValue(45000), "45000"},
		{NumberValue(1.5), "1.5"},
		{NumberValue(-2), "-2"},
		{StringValue("Bình"), "Bình"},
		{BoolValue(true), "true"},
		{Null(), ""},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestBuildCatalog_FirstOccurrenceOrder(t *testing.T) {
	recs := []Record{
		FromPairs("Sheet", "A", "Customer", "Acme"),
		FromPairs("Customer", "B", "Submit date", 45000.0, "Sheet", "C"),
		FromPairs("Owner", "x"),
	}
	got := strings.Join(BuildCatalog(recs), "|")
	want := "Sheet|Customer|Submit date|Owner"
	if got != want {
		t.Errorf("catalog = %s, want %s", got, want)
	}
}

func TestParseDay(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want DaySerial
		ok   bool
	}{
		{"serial number", NumberValue(45000), 45000, true},
		{"fractional serial", NumberValue(45000.75), 45000, true},
		{"iso string", StringValue("2023-03-15"), 45000, true},
		{"iso with time", StringValue("2023-03-15T10:20:00Z"), 45000, true},
		{"iso with space time", StringValue("2023-03-15 08:00"), 45000, true},
		{"serial string", StringValue("45000"), 45000, true},
		{"garbage", StringValue("soon"), 0, false},
		{"bad month", StringValue("2023-13-01"), 0, false},
		{"bad suffix", StringValue("2023-03-15x"), 0, false},
		{"empty", StringValue(""), 0, false},
		{"null", Null(), 0, false},
		{"bool", BoolValue(true), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDay(tt.v)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseDay = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestDaySerial_ISORoundTrip(t *testing.T) {
	for _, n := range []DaySerial{1, 60, 61, 36526, 44927, 45000, 45351, 50000} {
		iso := n.ISO()
		back, ok := ParseDayString(iso)
		if !ok || back != n {
			t.Errorf("ParseDayString(%s) = (%d, %v), want %d", iso, back, ok, n)
		}
	}
	if got := DaySerial(45000).ISO(); got != "2023-03-15" {
		t.Errorf("45000.ISO() = %s, want 2023-03-15", got)
	}
}

func TestFromTime_IgnoresClock(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	a := FromTime(time.Date(2023, 3, 15, 0, 0, 1, 0, loc))
	b := FromTime(time.Date(2023, 3, 15, 23, 59, 59, 0, loc))
	if a != 45000 || b != 45000 {
		t.Errorf("FromTime = %d, %d, want 45000", a, b)
	}
}
