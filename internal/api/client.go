// Package api is the HTTP client for the evaluation service. It owns request
// building, bearer authorization and failure classification; it does not
// interpret history payload shapes beyond handing back the raw body.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/Thekirgo/calcwatch/internal/errors"
)

// TokenSource supplies the current bearer token, or "" when logged out.
type TokenSource interface {
	Token() string
}

// Client talks to the evaluation service REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// NewClient creates a Client for the given base URL. tokens may be nil for a
// client that only performs unauthorized calls.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
	}
}

// JobStatus is one status query response. HasResult distinguishes a missing
// result field from a zero value.
type JobStatus struct {
	Status    string
	Result    any
	HasResult bool
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, login, password string) (string, error) {
	body, err := c.postJSON(ctx, "/api/v1/login", map[string]string{
		"login":    login,
		"password": password,
	}, false)
	if err != nil {
		return "", err
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", apperrors.Wrap(apperrors.KindMalformedResponse, "login response is not valid JSON", err)
	}
	if resp.Token == "" {
		return "", apperrors.New(apperrors.KindMalformedResponse, "login response carried no token")
	}
	return resp.Token, nil
}

// Register creates an account. A server message containing "already exists"
// is reported as a distinct duplicate-account condition.
func (c *Client) Register(ctx context.Context, login, password string) error {
	_, err := c.postJSON(ctx, "/api/v1/register", map[string]string{
		"login":    login,
		"password": password,
	}, false)
	if err != nil {
		classified := apperrors.AsClassified(err)
		if !classified.Transport() && strings.Contains(strings.ToLower(classified.Message), "already exists") {
			return apperrors.New(apperrors.KindDuplicateAccount, "a user with this login already exists")
		}
		return err
	}
	return nil
}

// SubmitExpression sends an expression for evaluation and returns the job id.
func (c *Client) SubmitExpression(ctx context.Context, expression string) (string, error) {
	body, err := c.postJSON(ctx, "/api/v1/calculate", map[string]string{
		"expression": expression,
	}, true)
	if err != nil {
		return "", err
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", apperrors.Wrap(apperrors.KindMalformedResponse, "submission response is not valid JSON", err)
	}
	if resp.ID == "" {
		return "", apperrors.New(apperrors.KindMalformedResponse, "submission response carried no job id")
	}
	return resp.ID, nil
}

// GetExpression queries the status of one job.
func (c *Client) GetExpression(ctx context.Context, id string) (*JobStatus, error) {
	body, err := c.get(ctx, "/api/v1/expressions/"+id)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Status string          `json:"status"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.Wrap(apperrors.KindServiceUnavailable, "status response is not valid JSON", err)
	}

	status := &JobStatus{Status: resp.Status}
	if len(resp.Result) > 0 && string(resp.Result) != "null" {
		var result any
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			return nil, apperrors.Wrap(apperrors.KindServiceUnavailable, "status response carried an unreadable result", err)
		}
		status.Result = result
		status.HasResult = true
	}
	return status, nil
}

// GetHistory fetches the raw history payload. Shape interpretation belongs to
// the normalization pipeline, not the transport.
func (c *Client) GetHistory(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/api/v1/history")
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, authorized bool) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, authorized)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return c.do(req, true)
}

func (c *Client) do(req *http.Request, authorized bool) ([]byte, error) {
	if authorized {
		token := ""
		if c.tokens != nil {
			token = c.tokens.Token()
		}
		if token == "" {
			return nil, apperrors.New(apperrors.KindAuth, "not logged in")
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Unavailable(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Unavailable(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.FromStatus(resp.StatusCode, failureDetail(body)).
			WithContext("status", resp.StatusCode)
	}

	return body, nil
}

// failureDetail extracts the best failure text from an error response body:
// a structured "error" or "message" field, otherwise the raw body.
func failureDetail(body []byte) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return strings.TrimSpace(string(body))
}
