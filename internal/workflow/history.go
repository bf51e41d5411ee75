package workflow

import (
	"context"
	"time"

	"yeoneunal/internal/api"
	"yeoneunal/internal/logging"

	"golang.org/x/sync/errgroup"
)

// HistorySource lists a ward's recordings and reports.
type HistorySource interface {
	ListRecords(ctx context.Context, wardID int64) ([]api.AudioRecord, error)
	ListReportsByWard(ctx context.Context, wardID int64) ([]api.Report, error)
}

// HistoryEntry is a recording joined with its report, if any. Reports whose
// recording is not listed appear with only Report set.
type HistoryEntry struct {
	Record *api.AudioRecord
	Report *api.Report
}

// RecordID returns the id the entry is keyed by.
func (h HistoryEntry) RecordID() int64 {
	if h.Record != nil {
		return h.Record.ID
	}
	if h.Report != nil {
		return h.Report.RecordID
	}
	return 0
}

// Analysis prefers the report's analysis over one embedded in the record.
func (h HistoryEntry) Analysis() api.AnalysisResult {
	if h.Report != nil && h.Report.Analysis.Kind != api.AnalysisAbsent {
		return h.Report.Analysis
	}
	if h.Record != nil {
		return h.Record.Analysis
	}
	return api.AnalysisResult{}
}

// Timestamp is the record's date, else the report's.
func (h HistoryEntry) Timestamp() (time.Time, bool) {
	if h.Record != nil {
		if t, ok := h.Record.Timestamp(); ok {
			return t, true
		}
	}
	if h.Report != nil {
		return h.Report.Timestamp()
	}
	return time.Time{}, false
}

// LoadHistory fetches recordings and reports concurrently and joins them.
// A ward with no reports yet (404) still returns its recordings.
func LoadHistory(ctx context.Context, src HistorySource, wardID int64) ([]HistoryEntry, error) {
	var (
		records []api.AudioRecord
		reports []api.Report
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = src.ListRecords(gctx, wardID)
		return err
	})
	g.Go(func() error {
		var err error
		reports, err = src.ListReportsByWard(gctx, wardID)
		if api.IsNotFound(err) {
			reports, err = nil, nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byRecord := make(map[int64]*api.Report, len(reports))
	for i := range reports {
		if id := reports[i].RecordID; id > 0 {
			byRecord[id] = &reports[i]
		}
	}

	entries := make([]HistoryEntry, 0, len(records)+len(byRecord))
	for i := range records {
		rec := &records[i]
		entries = append(entries, HistoryEntry{Record: rec, Report: byRecord[rec.ID]})
		delete(byRecord, rec.ID)
	}
	for i := range reports {
		rep := &reports[i]
		if rep.RecordID <= 0 || byRecord[rep.RecordID] == rep {
			entries = append(entries, HistoryEntry{Report: rep})
		}
	}
	logging.WorkflowDebug("history for ward %d: %d records, %d reports", wardID, len(records), len(reports))
	return entries, nil
}
