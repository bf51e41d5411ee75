package api

import (
	"context"
	"net/http"
	"net/url"
)

// Signup creates a guardian account.
func (c *Client) Signup(ctx context.Context, in GuardianSignup) (*Guardian, error) {
	req, err := c.jsonRequest(OpSignup, http.MethodPost, "/guardians/signup", in)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeGuardian(OpSignup, body)
}

// Login authenticates a guardian. Credentials travel as query parameters.
func (c *Client) Login(ctx context.Context, email, password string) (*Guardian, error) {
	q := url.Values{}
	q.Set("email", email)
	q.Set("password", password)
	body, err := c.do(ctx, request{
		op:          OpLogin,
		method:      http.MethodPost,
		path:        "/guardians/login",
		query:       q,
		contentType: "application/json",
	})
	if err != nil {
		return nil, err
	}
	return decodeGuardian(OpLogin, body)
}

func decodeGuardian(op Operation, body []byte) (*Guardian, error) {
	var g Guardian
	if err := decodeObject(op, body, &g); err != nil {
		return nil, err
	}
	if g.ID == 0 {
		id, ok := extractID(body, guardianIDKeys)
		if !ok {
			return nil, decodeError(op, ErrNoID)
		}
		g.ID = id
	}
	return &g, nil
}
