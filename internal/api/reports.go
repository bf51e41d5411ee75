package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// reportPayload picks the object a report is decoded from. An
// analysisResult at the top level wins over one inside "data".
func reportPayload(body []byte) []byte {
	if top, ok := objectFields(body); ok {
		if _, has := top["analysisResult"]; has {
			return bytes.TrimSpace(body)
		}
	}
	return unwrap(body)
}

func decodeReport(op Operation, body []byte) (*Report, error) {
	payload := reportPayload(body)
	if len(payload) == 0 || payload[0] != '{' {
		return nil, decodeError(op, errNotObject)
	}
	var rep Report
	if err := json.Unmarshal(payload, &rep); err != nil {
		return nil, decodeError(op, err)
	}
	rep.Body = append([]byte(nil), body...)
	return &rep, nil
}

// GetReportByRecord fetches the report generated for a recording.
func (c *Client) GetReportByRecord(ctx context.Context, recordID int64) (*Report, error) {
	body, err := c.do(ctx, request{op: OpReportByRecord, method: http.MethodGet, path: fmt.Sprintf("/reports/record/%d", recordID)})
	if err != nil {
		return nil, err
	}
	rep, err := decodeReport(OpReportByRecord, body)
	if err != nil {
		return nil, err
	}
	if rep.RecordID == 0 {
		rep.RecordID = recordID
	}
	return rep, nil
}

// ListReportsByWard returns every report for a ward.
func (c *Client) ListReportsByWard(ctx context.Context, wardID int64) ([]Report, error) {
	body, err := c.do(ctx, request{op: OpReportsByWard, method: http.MethodGet, path: fmt.Sprintf("/reports/ward/%d", wardID)})
	if err != nil {
		return nil, err
	}
	return decodeList[Report](OpReportsByWard, body)
}

// GetReport fetches a report by its own id.
func (c *Client) GetReport(ctx context.Context, reportID int64) (*Report, error) {
	body, err := c.do(ctx, request{op: OpGetReport, method: http.MethodGet, path: "/reports/" + pathID(reportID)})
	if err != nil {
		return nil, err
	}
	rep, err := decodeReport(OpGetReport, body)
	if err != nil {
		return nil, err
	}
	if rep.ID == 0 {
		rep.ID = reportID
	}
	return rep, nil
}

type reportWrite struct {
	RecordID       int64  `json:"recordId,omitempty"`
	AnalysisResult string `json:"analysisResult"`
}

// CreateReport stores an analysis for a recording. analysis is the raw
// JSON text of the analysis object.
func (c *Client) CreateReport(ctx context.Context, recordID int64, analysis string) (*Report, error) {
	req, err := c.jsonRequest(OpCreateReport, http.MethodPost, "/reports", reportWrite{RecordID: recordID, AnalysisResult: analysis})
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeReport(OpCreateReport, body)
}

// UpdateReport replaces a report's analysis.
func (c *Client) UpdateReport(ctx context.Context, reportID int64, analysis string) (*Report, error) {
	req, err := c.jsonRequest(OpUpdateReport, http.MethodPut, "/reports/"+pathID(reportID), reportWrite{AnalysisResult: analysis})
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeReport(OpUpdateReport, body)
}

// DeleteReport removes a report.
func (c *Client) DeleteReport(ctx context.Context, reportID int64) error {
	_, err := c.do(ctx, request{op: OpDeleteReport, method: http.MethodDelete, path: "/reports/" + pathID(reportID)})
	return err
}

// RecentReports lists the newest reports. A non-positive limit uses 10.
func (c *Client) RecentReports(ctx context.Context, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = 10
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	body, err := c.do(ctx, request{op: OpRecentReports, method: http.MethodGet, path: "/reports", query: q})
	if err != nil {
		return nil, err
	}
	return decodeList[Report](OpRecentReports, body)
}
