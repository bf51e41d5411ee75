package workflow

import (
	"context"
	"strconv"
	"sync"

	"yeoneunal/internal/api"
	"yeoneunal/internal/logging"

	"golang.org/x/sync/singleflight"
)

// FetchFunc loads the report for a record.
type FetchFunc func(ctx context.Context, recordID int64) (*api.Report, error)

// ReportCache keeps fetched reports by record id. Concurrent requests for
// the same record share one fetch.
type ReportCache struct {
	mu      sync.RWMutex
	reports map[int64]*api.Report
	group   singleflight.Group
}

// NewReportCache creates an empty cache.
func NewReportCache() *ReportCache {
	return &ReportCache{reports: make(map[int64]*api.Report)}
}

// Peek returns a cached report without fetching.
func (c *ReportCache) Peek(recordID int64) (*api.Report, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.reports[recordID]
	return r, ok
}

// Get returns the cached report or fetches it. Only reports with a parsed
// analysis are kept; anything else may still change on the server.
//
// The shared fetch runs detached from any one caller's cancellation, so a
// caller that gives up returns ctx.Err() while the others still receive the
// report. The client's request timeout bounds the detached fetch.
func (c *ReportCache) Get(ctx context.Context, recordID int64, fetch FetchFunc) (*api.Report, error) {
	if r, ok := c.Peek(recordID); ok {
		return r, nil
	}
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(strconv.FormatInt(recordID, 10), func() (interface{}, error) {
		if r, ok := c.Peek(recordID); ok {
			return r, nil
		}
		r, err := fetch(fetchCtx, recordID)
		if err != nil {
			return nil, err
		}
		if r.Analysis.Kind == api.AnalysisParsed {
			c.mu.Lock()
			c.reports[recordID] = r
			c.mu.Unlock()
		}
		return r, nil
	})
	select {
	case <-ctx.Done():
		logging.WorkflowDebug("report %d: caller left before fetch finished", recordID)
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			logging.WorkflowDebug("report %d fetch shared between callers", recordID)
		}
		return res.Val.(*api.Report), nil
	}
}

// Len returns the number of cached reports.
func (c *ReportCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.reports)
}
