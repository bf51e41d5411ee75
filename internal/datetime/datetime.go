// Package datetime normalizes the timestamp encodings the backend emits.
//
// Two encodings are observed: ISO-8601 strings and numeric arrays of the form
// [year, month, day, hour, minute, second, nanos] with 3 to 7 elements, which
// describe a naive local date-time. Any value whose year is before MinYear is
// a placeholder and is reported as absent.
package datetime

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// MinYear is the first year treated as a real timestamp.
const MinYear = 2000

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Parse decodes a raw JSON timestamp. The boolean is false when the value is
// missing, malformed or before MinYear.
func Parse(raw json.RawMessage) (time.Time, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, false
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, false
		}
		return ParseString(s)
	case '[':
		var parts []float64
		if err := json.Unmarshal(raw, &parts); err != nil {
			return time.Time{}, false
		}
		return FromParts(parts)
	}
	return time.Time{}, false
}

// ParseString parses an ISO-8601 timestamp. Strings without a zone are read
// as local time.
func ParseString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range isoLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339Nano {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return plausible(t)
		}
	}
	return time.Time{}, false
}

// FromParts builds a local time from [year, month(1-12), day, hour, minute,
// second, nanos]. Fewer than 3 or more than 7 elements is rejected.
func FromParts(parts []float64) (time.Time, bool) {
	if len(parts) < 3 || len(parts) > 7 {
		return time.Time{}, false
	}
	var v [7]int
	for i, p := range parts {
		v[i] = int(p)
	}
	if v[1] < 1 || v[1] > 12 || v[2] < 1 || v[2] > 31 {
		return time.Time{}, false
	}
	if v[3] > 23 || v[4] > 59 || v[5] > 60 || v[3] < 0 || v[4] < 0 || v[5] < 0 || v[6] < 0 {
		return time.Time{}, false
	}
	t := time.Date(v[0], time.Month(v[1]), v[2], v[3], v[4], v[5], v[6], time.Local)
	if t.Day() != v[2] {
		// rolled over, e.g. February 30
		return time.Time{}, false
	}
	return plausible(t)
}

func plausible(t time.Time) (time.Time, bool) {
	if t.Year() < MinYear {
		return time.Time{}, false
	}
	return t, true
}

// Time is a JSON-decodable timestamp accepting either encoding. Valid is false
// when the field was absent or not a real timestamp.
type Time struct {
	time.Time
	Valid bool
}

// UnmarshalJSON never fails; unusable input leaves the value invalid.
func (t *Time) UnmarshalJSON(data []byte) error {
	t.Time, t.Valid = Parse(data)
	return nil
}

// MarshalJSON writes RFC 3339 or null.
func (t Time) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// SameDate reports whether a and b fall on the same calendar date, each read
// in its own location.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// First returns the first valid time among candidates.
func First(candidates ...Time) (time.Time, bool) {
	for _, c := range candidates {
		if c.Valid {
			return c.Time, true
		}
	}
	return time.Time{}, false
}
