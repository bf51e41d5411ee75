package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"yeoneunal/internal/logging"
)

// The backend wraps some payloads in {"data": ...} and returns others bare.
// Everything in this file exists to absorb that.

var (
	wardIDKeys     = []string{"wardId", "id"}
	recordIDKeys   = []string{"recordId", "id"}
	reportIDKeys   = []string{"reportId", "id"}
	guardianIDKeys = []string{"guardianId", "id"}
)

var errNotObject = errors.New("response body is not a JSON object")

// flexID decodes an identifier sent as a JSON number or a numeric string.
type flexID int64

func (f *flexID) UnmarshalJSON(b []byte) error {
	*f = 0
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
	}
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = flexID(n)
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && v == float64(int64(v)) {
		*f = flexID(int64(v))
	}
	return nil
}

// firstID returns the first positive id among candidates.
func firstID(candidates ...flexID) int64 {
	for _, c := range candidates {
		if c > 0 {
			return int64(c)
		}
	}
	return 0
}

func objectFields(raw []byte) (map[string]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	return m, true
}

// extractID looks for an identifier under data.<key> for each key, then at
// the top level for each key.
func extractID(body []byte, keys []string) (int64, bool) {
	top, ok := objectFields(body)
	if !ok {
		return 0, false
	}
	lookup := func(m map[string]json.RawMessage) int64 {
		for _, k := range keys {
			raw, ok := m[k]
			if !ok {
				continue
			}
			var id flexID
			_ = id.UnmarshalJSON(raw)
			if id > 0 {
				return int64(id)
			}
		}
		return 0
	}
	if data, ok := objectFields(top["data"]); ok {
		if id := lookup(data); id > 0 {
			return id, true
		}
	}
	if id := lookup(top); id > 0 {
		return id, true
	}
	return 0, false
}

// unwrap returns the "data" member when the body is an envelope holding an
// object or array, and the body itself otherwise.
func unwrap(body []byte) []byte {
	top, ok := objectFields(body)
	if !ok {
		return bytes.TrimSpace(body)
	}
	data := bytes.TrimSpace(top["data"])
	if len(data) > 0 && (data[0] == '{' || data[0] == '[') {
		return data
	}
	return bytes.TrimSpace(body)
}

// decodeObject decodes the (unwrapped) object payload into v.
func decodeObject(op Operation, body []byte, v interface{}) error {
	payload := unwrap(body)
	if len(payload) == 0 || payload[0] != '{' {
		return decodeError(op, errNotObject)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return decodeError(op, err)
	}
	return nil
}

// decodeList decodes a "data" array or a bare array. Anything else is
// treated as an empty list.
func decodeList[T any](op Operation, body []byte) ([]T, error) {
	payload := unwrap(body)
	if len(payload) == 0 || payload[0] != '[' {
		logging.APIDebug("%s: response is not a list, treating as empty", op)
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, decodeError(op, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
