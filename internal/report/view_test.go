package report

import (
	"strings"
	"testing"
	"time"

	"yeoneunal/internal/api"
	"yeoneunal/internal/datetime"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func reportWith(analysis string) *api.Report {
	return &api.Report{
		ID:        3,
		RecordID:  501,
		Analysis:  api.ParseAnalysis([]byte(analysis)),
		CreatedAt: datetime.Time{Time: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), Valid: true},
	}
}

func TestNewViewFull(t *testing.T) {
	rep := reportWith(`{
		"accuracy": [82, 30.5, 10],
		"asr": " 여보세요 ",
		"risk": ["뇌졸중", "퇴행성 뇌질환"],
		"explain": ["발음이 불분명합니다"],
		"total": "뇌졸중 위험이 높습니다"
	}`)

	got := NewView(rep, "김영희")
	want := View{
		Available:       true,
		WardName:        "김영희",
		RecordID:        501,
		PrimaryDisease:  "뇌졸중",
		PrimaryAccuracy: 82,
		Dominant:        ConditionBrain,
		Probabilities: []Probability{
			{Name: "뇌졸중", Percent: 82, Tier: TierDanger},
			{Name: "퇴행성 뇌질환", Percent: 30.5, Tier: TierWatch},
			{Name: "정상", Percent: 10, Tier: TierNormal},
		},
		Risks: []RiskCard{
			{Disease: "뇌졸중", Percent: 82, HasPercent: true, Tier: TierDanger, Explanation: "발음이 불분명합니다"},
			{Disease: "퇴행성 뇌질환", Percent: 30.5, HasPercent: true, Tier: TierWatch, Explanation: "퇴행성 뇌질환 관련 설명입니다."},
		},
		Transcript: "여보세요",
		Summary:    "뇌졸중 위험이 높습니다",
		CreatedAt:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		HasDate:    true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NewView mismatch (-want +got):\n%s", diff)
	}
}

func TestNewViewFallbacks(t *testing.T) {
	got := NewView(reportWith(`{"accuracy":[5,5,90]}`), "")
	assert.True(t, got.Available)
	assert.Equal(t, PendingDisease, got.PrimaryDisease)
	assert.Equal(t, PendingSummary, got.Summary)
	assert.Equal(t, ConditionNormal, got.Dominant)
	assert.Empty(t, got.Risks)
}

func TestNewViewUnavailable(t *testing.T) {
	for _, analysis := range []string{``, `"not json"`, `{"risk":["뇌졸중"]}`, `{"accuracy":[]}`} {
		v := NewView(reportWith(analysis), "x")
		assert.False(t, v.Available, analysis)
		assert.True(t, v.HasDate)
	}
	assert.False(t, NewView(nil, "x").Available)
}

func TestMarkdown(t *testing.T) {
	v := NewView(reportWith(`{"accuracy":[82,30.5,10],"asr":"a\nb","risk":["뇌졸중"],"summary":"요약"}`), "김영희")
	md := Markdown(v, Korean)

	assert.True(t, strings.HasPrefix(md, "# 김영희님의 음성 분석 리포트\n"))
	assert.Contains(t, md, "| 뇌졸중 | 82% | 위험 |")
	assert.Contains(t, md, "| 퇴행성 뇌질환 | 30.5% | 관심 |")
	assert.Contains(t, md, "> a\n> b\n")
	assert.Contains(t, md, "뇌졸중 관련 설명입니다.")
	assert.True(t, strings.HasSuffix(md, "요약\n"))

	en := Markdown(NewView(reportWith(`"broken"`), ""), English)
	assert.Contains(t, en, "# Voice analysis report\n")
	assert.Contains(t, en, "not available")
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "82%", FormatPercent(82))
	assert.Equal(t, "30.5%", FormatPercent(30.5))
	assert.Equal(t, "33.3%", FormatPercent(33.333))
}
