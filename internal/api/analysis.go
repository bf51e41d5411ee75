package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// AnalysisKind tags the state of an analysisResult field.
type AnalysisKind int

const (
	// AnalysisAbsent means the field was missing, null or empty.
	AnalysisAbsent AnalysisKind = iota
	// AnalysisParsed means an object was decoded, directly or from a JSON string.
	AnalysisParsed
	// AnalysisMalformed means a string arrived that is not a JSON object.
	AnalysisMalformed
)

func (k AnalysisKind) String() string {
	switch k {
	case AnalysisParsed:
		return "parsed"
	case AnalysisMalformed:
		return "malformed"
	default:
		return "absent"
	}
}

// Percentages is a list of percentages that tolerates numeric strings.
type Percentages []float64

func (p *Percentages) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		*p = nil
		return nil
	}
	out := make(Percentages, 0, len(raw))
	for _, r := range raw {
		var f float64
		if err := json.Unmarshal(r, &f); err != nil {
			var s string
			if json.Unmarshal(r, &s) == nil {
				f, _ = strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
			}
		}
		out = append(out, f)
	}
	*p = out
	return nil
}

// Analysis is the AI model output attached to a report.
//
// Accuracy is ordered [stroke, degenerative, normal]. Risk and Explain are
// parallel lists ordered by severity.
type Analysis struct {
	Accuracy Percentages `json:"accuracy,omitempty"`
	ASR      string      `json:"asr,omitempty"`
	Risk     []string    `json:"risk,omitempty"`
	Explain  []string    `json:"explain,omitempty"`
	Summary  string      `json:"summary,omitempty"`
	Total    string      `json:"total,omitempty"`
}

// Narrative is the summary text, falling back to the "total" field.
func (a Analysis) Narrative() string {
	if s := strings.TrimSpace(a.Summary); s != "" {
		return s
	}
	return strings.TrimSpace(a.Total)
}

// AnalysisResult is the decoded analysisResult field. The backend sends it
// either as an object or as a string containing JSON; the variant is fixed
// once here so no other code has to guess.
type AnalysisResult struct {
	Kind     AnalysisKind
	Analysis Analysis
	// Raw is the original string for Malformed results.
	Raw string
	// Encoded is true when a Parsed result arrived as a JSON string.
	Encoded bool
}

// ParseAnalysis resolves a raw analysisResult value.
func ParseAnalysis(raw []byte) AnalysisResult {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return AnalysisResult{Kind: AnalysisAbsent}
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return AnalysisResult{Kind: AnalysisMalformed, Raw: string(raw)}
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return AnalysisResult{Kind: AnalysisAbsent}
		}
		var a Analysis
		if !strings.HasPrefix(s, "{") || json.Unmarshal([]byte(s), &a) != nil {
			return AnalysisResult{Kind: AnalysisMalformed, Raw: s}
		}
		return AnalysisResult{Kind: AnalysisParsed, Analysis: a, Encoded: true}
	case '{':
		var a Analysis
		if err := json.Unmarshal(raw, &a); err != nil {
			return AnalysisResult{Kind: AnalysisMalformed, Raw: string(raw)}
		}
		return AnalysisResult{Kind: AnalysisParsed, Analysis: a}
	default:
		return AnalysisResult{Kind: AnalysisMalformed, Raw: string(raw)}
	}
}

func (r *AnalysisResult) UnmarshalJSON(b []byte) error {
	*r = ParseAnalysis(b)
	return nil
}

func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case AnalysisParsed:
		return json.Marshal(r.Analysis)
	case AnalysisMalformed:
		return json.Marshal(r.Raw)
	default:
		return []byte("null"), nil
	}
}

// Get returns the analysis when it was parsed.
func (r AnalysisResult) Get() (Analysis, bool) {
	return r.Analysis, r.Kind == AnalysisParsed
}

// HasAccuracy reports whether a usable accuracy vector is present.
func (r AnalysisResult) HasAccuracy() bool {
	return r.Kind == AnalysisParsed && len(r.Analysis.Accuracy) > 0
}
