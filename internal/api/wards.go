package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"yeoneunal/internal/logging"
)

// CreateWard registers a ward and returns its id.
func (c *Client) CreateWard(ctx context.Context, in WardInput) (int64, error) {
	req, err := c.jsonRequest(OpCreateWard, http.MethodPost, "/wards", in)
	if err != nil {
		return 0, err
	}
	body, err := c.do(ctx, req)
	if err != nil {
		return 0, err
	}
	id, ok := extractID(body, wardIDKeys)
	if !ok {
		return 0, decodeError(OpCreateWard, ErrNoID)
	}
	logging.API("ward %d created for guardian %d", id, in.GuardianID)
	return id, nil
}

// GetWard loads one ward.
func (c *Client) GetWard(ctx context.Context, wardID int64) (*Ward, error) {
	body, err := c.do(ctx, request{op: OpGetWard, method: http.MethodGet, path: "/wards/" + pathID(wardID)})
	if err != nil {
		return nil, err
	}
	var w Ward
	if err := decodeObject(OpGetWard, body, &w); err != nil {
		return nil, err
	}
	if w.ID == 0 {
		w.ID = wardID
	}
	return &w, nil
}

// ListWards returns the wards registered by a guardian.
func (c *Client) ListWards(ctx context.Context, guardianID int64) ([]Ward, error) {
	q := url.Values{}
	q.Set("guardianId", strconv.FormatInt(guardianID, 10))
	body, err := c.do(ctx, request{op: OpListWards, method: http.MethodGet, path: "/wards", query: q})
	if err != nil {
		return nil, err
	}
	return decodeList[Ward](OpListWards, body)
}

// UpdateDiagnosis replaces a ward's self-diagnosis answers.
func (c *Client) UpdateDiagnosis(ctx context.Context, wardID int64, payload DiagnosisPayload) error {
	req, err := c.jsonRequest(OpUpdateDiagnosis, http.MethodPut, fmt.Sprintf("/wards/%d/diagnosis", wardID), payload)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, req)
	return err
}
