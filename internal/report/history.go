package report

import (
	"fmt"
	"sort"
	"time"

	"yeoneunal/internal/api"
)

// List summary text.
const (
	SummaryAwaiting   = "분석 대기 중..."
	SummaryAnalyzing  = "분석 중..."
	SummaryDisplaying = "분석 결과 표시 중..."
	alertPrefix       = "위험질환: "
)

// Entry is one recording in the history list.
type Entry struct {
	RecordID int64
	Time     time.Time
	HasTime  bool
	Status   api.RecordStatus
	Analysis api.AnalysisResult
}

// SummaryLine is the one-line description shown in the list.
func (e Entry) SummaryLine() string {
	switch e.Analysis.Kind {
	case api.AnalysisParsed:
		if s := e.Analysis.Analysis.Narrative(); s != "" {
			return s
		}
		return SummaryAnalyzing
	case api.AnalysisMalformed:
		return SummaryDisplaying
	default:
		return SummaryAwaiting
	}
}

// Alert names the top risk, or "" when there is none.
func (e Entry) Alert() string {
	if a, ok := e.Analysis.Get(); ok && len(a.Risk) > 0 && a.Risk[0] != "" {
		return alertPrefix + a.Risk[0]
	}
	return ""
}

// MonthGroup holds the entries of one calendar month. Undated entries are
// collected in a group with Year 0.
type MonthGroup struct {
	Year    int
	Month   time.Month
	Entries []Entry
}

// Label renders the month heading.
func (g MonthGroup) Label(lang Language) string {
	if g.Year == 0 {
		if lang == English {
			return "Undated"
		}
		return "날짜 없음"
	}
	if lang == English {
		return fmt.Sprintf("%s %d", g.Month, g.Year)
	}
	return fmt.Sprintf("%d년 %d월", g.Year, int(g.Month))
}

// GroupByMonth groups entries by calendar month, newest month first and
// newest entry first within a month.
func GroupByMonth(entries []Entry) []MonthGroup {
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.HasTime != b.HasTime {
			return a.HasTime
		}
		return a.Time.After(b.Time)
	})

	var groups []MonthGroup
	for _, e := range sorted {
		year, month := 0, time.Month(0)
		if e.HasTime {
			year, month = e.Time.Year(), e.Time.Month()
		}
		if n := len(groups); n > 0 && groups[n-1].Year == year && groups[n-1].Month == month {
			groups[n-1].Entries = append(groups[n-1].Entries, e)
			continue
		}
		groups = append(groups, MonthGroup{Year: year, Month: month, Entries: []Entry{e}})
	}
	return groups
}
