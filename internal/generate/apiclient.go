package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ferrors "github.com/darkmc/plugin-forge/internal/errors"
	"github.com/darkmc/plugin-forge/internal/jobs"
)

// APIClient talks to the forge HTTP API. It implements Streamer, JobService
// and jobs.StatusFetcher.
type APIClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// APIOption configures the client.
type APIOption func(*APIClient)

// WithToken attaches a bearer session token to every request.
func WithToken(token string) APIOption {
	return func(c *APIClient) { c.token = token }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) APIOption {
	return func(c *APIClient) { c.client = hc }
}

// NewAPIClient creates a client for the given base URL.
func NewAPIClient(baseURL string, opts ...APIOption) *APIClient {
	c := &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// OpenStream starts a streaming generation and returns the SSE body. A JSON
// reply instead of an event stream is the server declining the request; its
// error message comes back as an error.
func (c *APIClient) OpenStream(ctx context.Context, req Request) (io.ReadCloser, error) {
	resp, err := c.post(ctx, "/api/generate", req)
	if err != nil {
		return nil, err
	}

	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		defer resp.Body.Close()
		var body struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("generate returned status %d", resp.StatusCode)
		}
		if body.Error != "" {
			return nil, fmt.Errorf("%w: %s", ferrors.ErrUnclearRequest, body.Error)
		}
		return nil, fmt.Errorf("generate returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// CreateJob queues a background generation and returns the job ID.
func (c *APIClient) CreateJob(ctx context.Context, req Request) (string, error) {
	resp, err := c.post(ctx, "/api/generation-jobs", req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create job returned status %d", resp.StatusCode)
	}

	var body struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode create job response: %w", err)
	}
	if body.JobID == "" {
		return "", fmt.Errorf("create job returned no job_id")
	}
	return body.JobID, nil
}

// StartJob triggers server-side processing of a queued job.
func (c *APIClient) StartJob(ctx context.Context, jobID string) error {
	resp, err := c.post(ctx, "/api/generate/background", map[string]string{"job_id": jobID})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("start job returned status %d", resp.StatusCode)
	}
	return nil
}

// FetchStatus reads the current state of a job.
func (c *APIClient) FetchStatus(ctx context.Context, jobID string) (jobs.Status, error) {
	resp, err := c.post(ctx, "/api/generation-status", map[string]string{"job_id": jobID})
	if err != nil {
		return jobs.Status{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return jobs.Status{}, fmt.Errorf("generation status returned %d", resp.StatusCode)
	}

	var body struct {
		Success bool        `json:"success"`
		Job     jobs.Status `json:"job"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return jobs.Status{}, fmt.Errorf("decode status response: %w", err)
	}
	if !body.Success {
		return jobs.Status{}, fmt.Errorf("generation status request rejected")
	}
	return body.Job, nil
}

func (c *APIClient) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return resp, nil
}
