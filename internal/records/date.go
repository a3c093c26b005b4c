package records

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// DaySerial counts days since 1899-12-30, the spreadsheet date epoch.
// Dates stored as serial numbers and as ISO strings both normalize to it.
type DaySerial int

var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

const isoLayout = "2006-01-02"

// FromTime returns the serial of t's calendar date (t's own location).
func FromTime(t time.Time) DaySerial {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	secs := day.Unix() - serialEpoch.Unix()
	return DaySerial(floorDiv(secs, 86400))
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Time returns midnight UTC of the serial's date.
func (d DaySerial) Time() time.Time {
	return serialEpoch.AddDate(0, 0, int(d))
}

// ISO formats the serial as YYYY-MM-DD.
func (d DaySerial) ISO() string {
	return d.Time().Format(isoLayout)
}

// ParseDay normalizes a stored field value to a day serial. Numbers are
// truncated toward negative infinity (time-of-day fractions are dropped);
// strings may be a serial or an ISO date with an optional time suffix.
func ParseDay(v Value) (DaySerial, bool) {
	switch v.Kind() {
	case KindNumber:
		return serialFromFloat(v.num)
	case KindString:
		return ParseDayString(v.str)
	default:
		return 0, false
	}
}

// ParseDayString parses an ISO date (YYYY-MM-DD, optionally followed by 'T'
// or ' ' and a time) or a numeric day serial.
func ParseDayString(s string) (DaySerial, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if isNumeric(s) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return serialFromFloat(f)
	}
	if len(s) < len(isoLayout) {
		return 0, false
	}
	if len(s) > len(isoLayout) && s[10] != 'T' && s[10] != ' ' {
		return 0, false
	}
	t, err := time.Parse(isoLayout, s[:len(isoLayout)])
	if err != nil {
		return 0, false
	}
	return FromTime(t), true
}

func serialFromFloat(f float64) (DaySerial, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > 3e6 {
		return 0, false
	}
	return DaySerial(math.Floor(f)), true
}

func isNumeric(s string) bool {
	dot := false
	for i, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c == '.' && !dot:
			dot = true
		case c == '-' && i == 0 && len(s) > 1:
		default:
			return false
		}
	}
	return s != "." && s != "-"
}
