package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"inksync/internal/config"
	"inksync/internal/logging"
)

const (
	userAgent       = "inksync/0.1.0"
	listPageSize    = 200
	defaultMaxPages = 50
)

// HTTPDoer describes the HTTP client used by the scanner client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// API is the full capability set of the remote scanning service. Both the
// HTTP-backed client and the in-memory mock implement it; call sites never
// branch on the concrete type.
type API interface {
	Upload(ctx context.Context, files []UploadFile) (*UploadResult, error)
	ListJobs(ctx context.Context, status JobStatus) ([]Job, error)
	GetJob(ctx context.Context, id string) (*Job, error)
	GetResult(ctx context.Context, id string) (*Note, error)
	RetryJob(ctx context.Context, id string) error
	DeleteJob(ctx context.Context, id string) error
	CheckHealth(ctx context.Context) (*Health, error)
}

// Client talks to the remote scanning service over HTTP with bearer-token
// authentication. It performs no internal retries; every failure is returned
// typed so retry policy stays a caller concern.
type Client struct {
	baseURL      string
	apiKey       string
	client       HTTPDoer
	logger       *slog.Logger
	maxBatchSize int
	maxFileBytes int64
}

var _ API = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// New creates an HTTP-backed scanner client.
func New(baseURL, apiKey string, maxBatchSize int, maxFileBytes int64, logger *slog.Logger, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: scanner base url required", ErrValidation)
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: scanner api key required", ErrAuthentication)
	}
	if maxBatchSize <= 0 {
		maxBatchSize = 10
	}
	if maxFileBytes <= 0 {
		maxFileBytes = 10 << 20
	}
	client := &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		client:       &http.Client{Timeout: 30 * time.Second},
		logger:       logging.NewComponentLogger(logger, "scanner"),
		maxBatchSize: maxBatchSize,
		maxFileBytes: maxFileBytes,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewFromConfig selects the API implementation by configuration presence:
// with an api_key the HTTP client is returned, without one the in-memory mock
// serves canned jobs so the rest of the system can be exercised offline.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, opts ...Option) (API, error) {
	if cfg == nil || strings.TrimSpace(cfg.API.APIKey) == "" {
		return NewMock(), nil
	}
	httpClient := &http.Client{Timeout: time.Duration(cfg.API.RequestTimeout) * time.Second}
	combined := append([]Option{WithHTTPClient(httpClient)}, opts...)
	return New(
		cfg.API.BaseURL,
		cfg.API.APIKey,
		cfg.Upload.MaxBatchSize,
		int64(cfg.Upload.MaxFileSizeMiB)<<20,
		logger,
		combined...,
	)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// doJSON executes a request and decodes a 2xx JSON response into out. Non-2xx
// responses become typed APIErrors; transport failures map to ErrNetwork.
func (c *Client) doJSON(req *http.Request, operation string, out any) error {
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return networkError(operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp)
		c.logger.Debug("scanner request failed",
			logging.String("operation", operation),
			logging.Int("status", resp.StatusCode),
			logging.Duration("latency", time.Since(start)),
		)
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

type jobsPage struct {
	Jobs   []Job `json:"jobs"`
	Total  int   `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// ListJobs returns a fresh full listing, optionally filtered server-side by
// status. Results are never cached locally.
func (c *Client) ListJobs(ctx context.Context, status JobStatus) ([]Job, error) {
	var jobs []Job
	offset := 0
	for page := 0; page < defaultMaxPages; page++ {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(listPageSize))
		params.Set("offset", strconv.Itoa(offset))
		if status != "" {
			params.Set("status", string(status))
		}
		req, err := c.newRequest(ctx, http.MethodGet, "/api/jobs?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
		var payload jobsPage
		if err := c.doJSON(req, "list jobs", &payload); err != nil {
			return nil, err
		}
		jobs = append(jobs, payload.Jobs...)
		offset += len(payload.Jobs)
		if len(payload.Jobs) == 0 || offset >= payload.Total {
			break
		}
	}
	return jobs, nil
}

// GetJob fetches a single job snapshot by identifier.
func (c *Client) GetJob(ctx context.Context, id string) (*Job, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Job Job `json:"job"`
	}
	if err := c.doJSON(req, "get job", &payload); err != nil {
		return nil, err
	}
	return &payload.Job, nil
}

// GetResult fetches the processed note for a completed job.
func (c *Client) GetResult(ctx context.Context, id string) (*Note, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/results/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Result Note `json:"result"`
	}
	if err := c.doJSON(req, "get result", &payload); err != nil {
		return nil, err
	}
	payload.Result.Category = CanonicalCategory(string(payload.Result.Category))
	return &payload.Result, nil
}

// RetryJob asks the service to re-run a failed job. The service resets the
// job to pending with zero attempts; retrying a non-failed job yields
// ErrJobNotFailed.
func (c *Client) RetryJob(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/retry", nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, "retry job", nil)
}

// DeleteJob removes a job and its stored result from the service.
func (c *Client) DeleteJob(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/jobs/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, "delete job", nil)
}

// CheckHealth probes the service health endpoint.
func (c *Client) CheckHealth(ctx context.Context) (*Health, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/health", nil)
	if err != nil {
		return nil, err
	}
	var payload Health
	if err := c.doJSON(req, "health check", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func marshalBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return bytes.NewReader(data), nil
}
