package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout   = 5 * time.Minute
	defaultUserAgent = "paperask-go-sdk"
)

// Client talks to a paperask API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// New creates a client for the server at baseURL (e.g. "http://localhost:5001").
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("paperask: base URL required")
	}

	cfg := &clientConfig{
		timeout:   defaultTimeout,
		userAgent: defaultUserAgent,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
		userAgent:  cfg.userAgent,
	}, nil
}

// Ask sends a question and returns the grounded answer with its sources.
func (c *Client) Ask(ctx context.Context, req AskRequest) (Answer, error) {
	var answer Answer
	err := c.do(ctx, http.MethodPost, "/api/ask", req, &answer)
	return answer, err
}

// IndexStatus reports the server's index state.
func (c *Client) IndexStatus(ctx context.Context) (IndexStatus, error) {
	var status IndexStatus
	err := c.do(ctx, http.MethodGet, "/api/index/status", nil, &status)
	return status, err
}

// ReloadIndex asks the server to reload the persisted index, e.g. after an
// ingestion run finished.
func (c *Client) ReloadIndex(ctx context.Context) (IndexStatus, error) {
	var status IndexStatus
	err := c.do(ctx, http.MethodPost, "/api/index/load", nil, &status)
	return status, err
}

// Providers lists the generation backends the server offers.
func (c *Client) Providers(ctx context.Context) (Providers, error) {
	var providers Providers
	err := c.do(ctx, http.MethodGet, "/api/providers", nil, &providers)
	return providers, err
}

// Health fetches the server health report.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var health Health
	err := c.do(ctx, http.MethodGet, "/api/health", nil, &health)
	return health, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("paperask: encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("paperask: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("paperask: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("paperask: decode response: %w", err)
		}
	}
	return nil
}

// apiError decodes an error body and wraps it with the matching sentinel.
func apiError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	} else {
		apiErr.Code = "unknown"
		apiErr.Message = resp.Status
	}

	if sentinel := sentinelFor(apiErr.Code); sentinel != nil {
		return fmt.Errorf("%w: %w", sentinel, apiErr)
	}
	return apiErr
}
