package adminsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client is a client for the back-office admin API. It covers the
// unauthenticated endpoints and creates Sessions.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client with a 10s request timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Login runs the password step and, for principals with MFA enabled, the
// code check. It returns *MFARequiredError when a code is needed and
// *EnrollmentRequiredError when the principal must enroll first.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	resp, err := c.postJSON(ctx, "/v1/session/login", req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusAccepted {
		var enroll EnrollmentResponse
		if err := decodeJSON(resp, &enroll, http.StatusAccepted); err != nil {
			return nil, err
		}
		return nil, &EnrollmentRequiredError{EnrollmentResponse: enroll}
	}

	var sessResp SessionResponse
	if err := decodeJSON(resp, &sessResp, http.StatusOK); err != nil {
		return nil, err
	}
	return newSession(c, &sessResp), nil
}

// Provision discards the pending enrollment behind mfaToken and returns a
// fresh bundle.
func (c *Client) Provision(ctx context.Context, mfaToken string) (*ProvisioningResponse, error) {
	resp, err := c.postJSON(ctx, "/v1/mfa/provision", MFATokenRequest{MFAToken: mfaToken})
	if err != nil {
		return nil, err
	}

	var prov ProvisioningResponse
	if err := decodeJSON(resp, &prov, http.StatusOK); err != nil {
		return nil, err
	}
	return &prov, nil
}

// ConfirmEnrollment submits the first TOTP code and returns the principal's
// first session.
func (c *Client) ConfirmEnrollment(ctx context.Context, mfaToken, code string) (*Session, error) {
	resp, err := c.postJSON(ctx, "/v1/mfa/confirm", ConfirmRequest{MFAToken: mfaToken, Code: code})
	if err != nil {
		return nil, err
	}

	var sessResp SessionResponse
	if err := decodeJSON(resp, &sessResp, http.StatusOK); err != nil {
		return nil, err
	}
	return newSession(c, &sessResp), nil
}

// NewSessionFromToken wraps a token obtained elsewhere.
func (c *Client) NewSessionFromToken(token string) *Session {
	s := &Session{client: c}
	s.setToken(token)
	return s
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return c.doRequest(ctx, http.MethodPost, path, bytes.NewReader(buf), map[string]string{
		"Content-Type": "application/json",
	})
}
