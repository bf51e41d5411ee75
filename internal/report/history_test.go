package report

import (
	"testing"
	"time"

	"yeoneunal/internal/api"

	"github.com/google/go-cmp/cmp"
)

func entryAt(id int64, y int, m time.Month, d int, analysis string) Entry {
	return Entry{
		RecordID: id,
		Time:     time.Date(y, m, d, 9, 0, 0, 0, time.Local),
		HasTime:  true,
		Analysis: api.ParseAnalysis([]byte(analysis)),
	}
}

func TestGroupByMonth(t *testing.T) {
	entries := []Entry{
		entryAt(1, 2024, time.February, 3, ``),
		entryAt(2, 2024, time.March, 1, ``),
		{RecordID: 3},
		entryAt(4, 2024, time.March, 20, ``),
		entryAt(5, 2023, time.December, 31, ``),
	}
	groups := GroupByMonth(entries)

	type shape struct {
		Label string
		IDs   []int64
	}
	var got []shape
	for _, g := range groups {
		s := shape{Label: g.Label(Korean)}
		for _, e := range g.Entries {
			s.IDs = append(s.IDs, e.RecordID)
		}
		got = append(got, s)
	}
	want := []shape{
		{"2024년 3월", []int64{4, 2}},
		{"2024년 2월", []int64{1}},
		{"2023년 12월", []int64{5}},
		{"날짜 없음", []int64{3}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GroupByMonth mismatch (-want +got):\n%s", diff)
	}
	if got := groups[0].Label(English); got != "March 2024" {
		t.Errorf("English label = %q", got)
	}
}

func TestEntrySummaryAndAlert(t *testing.T) {
	tests := []struct {
		name     string
		analysis string
		summary  string
		alert    string
	}{
		{"absent", ``, SummaryAwaiting, ""},
		{"malformed", `"oops"`, SummaryDisplaying, ""},
		{"no narrative", `{"risk":["치매"]}`, SummaryAnalyzing, "위험질환: 치매"},
		{"summary", `{"summary":"양호","risk":[]}`, "양호", ""},
		{"total fallback", `"{\"total\":\"전체 소견\",\"risk\":[\"뇌졸중\"]}"`, "전체 소견", "위험질환: 뇌졸중"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Entry{Analysis: api.ParseAnalysis([]byte(tt.analysis))}
			if got := e.SummaryLine(); got != tt.summary {
				t.Errorf("SummaryLine() = %q, want %q", got, tt.summary)
			}
			if got := e.Alert(); got != tt.alert {
				t.Errorf("Alert() = %q, want %q", got, tt.alert)
			}
		})
	}
}
