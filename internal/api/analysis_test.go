package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		kind    AnalysisKind
		encoded bool
	}{
		{"missing", ``, AnalysisAbsent, false},
		{"null", `null`, AnalysisAbsent, false},
		{"empty string", `"  "`, AnalysisAbsent, false},
		{"object", `{"accuracy":[1,2,3]}`, AnalysisParsed, false},
		{"json string", `"{\"accuracy\":[1,2,3]}"`, AnalysisParsed, true},
		{"plain string", `"분석 실패"`, AnalysisMalformed, false},
		{"broken json string", `"{\"accuracy\":"`, AnalysisMalformed, false},
		{"number", `42`, AnalysisMalformed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAnalysis([]byte(tt.raw))
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.encoded, got.Encoded)
		})
	}
}

func TestAnalysisNarrativeFallsBackToTotal(t *testing.T) {
	assert.Equal(t, "요약", Analysis{Summary: " 요약 ", Total: "전체"}.Narrative())
	assert.Equal(t, "전체", Analysis{Total: "전체"}.Narrative())
	assert.Equal(t, "", Analysis{}.Narrative())
}

func TestPercentagesTolerateStrings(t *testing.T) {
	var a Analysis
	err := json.Unmarshal([]byte(`{"accuracy":["81.5%", 12, "x"]}`), &a)
	assert.NoError(t, err)
	assert.Equal(t, Percentages{81.5, 12, 0}, a.Accuracy)
}

func TestAnalysisResultMarshal(t *testing.T) {
	parsed := ParseAnalysis([]byte(`"{\"risk\":[\"뇌졸중\"]}"`))
	out, err := json.Marshal(parsed)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"risk":["뇌졸중"]}`, string(out))

	out, err = json.Marshal(AnalysisResult{})
	assert.NoError(t, err)
	assert.Equal(t, "null", string(out))

	out, err = json.Marshal(ParseAnalysis([]byte(`"broken"`)))
	assert.NoError(t, err)
	assert.Equal(t, `"broken"`, string(out))
}
