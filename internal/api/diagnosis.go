package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DiagnosisSchema selects the wire shape of a self-diagnosis payload.
type DiagnosisSchema string

const (
	// DiagnosisV1 is an object keyed by question text.
	DiagnosisV1 DiagnosisSchema = "v1"
	// DiagnosisV2 is an array of {text, answer} items.
	DiagnosisV2 DiagnosisSchema = "v2"
)

// DiagnosisItem is one answered survey question.
type DiagnosisItem struct {
	Text   string `json:"text"`
	Answer int    `json:"answer"`
}

// DiagnosisPayload is a versioned self-diagnosis blob.
type DiagnosisPayload struct {
	Schema DiagnosisSchema
	Items  []DiagnosisItem
}

// Answers returns the answer values in question order.
func (p DiagnosisPayload) Answers() []int {
	out := make([]int, len(p.Items))
	for i, it := range p.Items {
		out[i] = it.Answer
	}
	return out
}

func (p DiagnosisPayload) MarshalJSON() ([]byte, error) {
	switch p.Schema {
	case DiagnosisV1:
		// Written by hand so keys keep question order.
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, it := range p.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(it.Text)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			fmt.Fprintf(&buf, ":%d", it.Answer)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	case DiagnosisV2, "":
		items := p.Items
		if items == nil {
			items = []DiagnosisItem{}
		}
		return json.Marshal(items)
	default:
		return nil, fmt.Errorf("unknown diagnosis schema %q", p.Schema)
	}
}

// UnmarshalJSON accepts either schema, and either schema wrapped in a JSON
// string (the form ward creation uses).
func (p *DiagnosisPayload) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*p = DiagnosisPayload{}
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		return p.UnmarshalJSON([]byte(s))
	case '[':
		var items []DiagnosisItem
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		p.Schema, p.Items = DiagnosisV2, items
		return nil
	case '{':
		items, err := decodeOrderedAnswers(b)
		if err != nil {
			return err
		}
		p.Schema, p.Items = DiagnosisV1, items
		return nil
	default:
		return fmt.Errorf("diagnosis: unexpected JSON %q", b[:1])
	}
}

func decodeOrderedAnswers(b []byte) ([]DiagnosisItem, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var items []DiagnosisItem
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("diagnosis: non-string key %v", tok)
		}
		var answer int
		if err := dec.Decode(&answer); err != nil {
			return nil, fmt.Errorf("diagnosis: answer for %q: %w", key, err)
		}
		items = append(items, DiagnosisItem{Text: key, Answer: answer})
	}
	return items, nil
}
