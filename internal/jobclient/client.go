// Package jobclient talks to the video job service: it submits generation
// requests and fetches job status snapshots. It performs no retries.
package jobclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iavido/iavido-agent/internal/generation"
)

const (
	maxErrorBody  = 4096
	maxStatusBody = 1 << 20

	userAgent = "iavido-agent"
)

type Submitter interface {
	Submit(ctx context.Context, req generation.Request) (generation.JobID, error)
}

type StatusFetcher interface {
	FetchStatus(ctx context.Context, id generation.JobID) (generation.Status, error)
}

// Client is the full job service surface used by the session.
type Client interface {
	Submitter
	StatusFetcher
}

type submitResponse struct {
	JobID string `json:"job_id"`
}

// HTTPClient is the Client implementation for the job service HTTP API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

func (c *HTTPClient) Submit(ctx context.Context, req generation.Request) (generation.JobID, error) {
	body, err := json.Marshal(req.Normalize())
	if err != nil {
		return "", fmt.Errorf("marshal generation request: %w", err)
	}

	endpoint := c.baseURL + "/api/generate"
	httpReq, err := c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Info("submitting generation request",
		"url", endpoint,
		"num_scenes", req.NumScenes,
		"enable_music", req.EnableMusic,
		"body_bytes", len(body),
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &TransportError{Op: "submit", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &ValidationError{StatusCode: resp.StatusCode, Message: serviceMessage(resp.StatusCode, respBody)}
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return "", &TransportError{Op: "submit", Err: err}
	}

	var result submitResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &ProtocolError{Op: "submit", Detail: err.Error()}
	}
	if result.JobID == "" {
		return "", &ProtocolError{Op: "submit", Detail: "missing job_id"}
	}

	c.logger.Info("generation job created", "job_id", result.JobID)
	return generation.JobID(result.JobID), nil
}

func (c *HTTPClient) FetchStatus(ctx context.Context, id generation.JobID) (generation.Status, error) {
	endpoint := c.baseURL + "/api/status/" + url.PathEscape(id.String())
	httpReq, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return generation.Status{}, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return generation.Status{}, &TransportError{Op: "fetch status", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxStatusBody))
	if err != nil {
		return generation.Status{}, &TransportError{Op: "fetch status", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return generation.Status{}, &ProtocolError{
			Op:         "fetch status",
			StatusCode: resp.StatusCode,
			Detail:     serviceMessage(resp.StatusCode, truncate(respBody, maxErrorBody)),
		}
	}

	var status generation.Status
	if err := json.Unmarshal(respBody, &status); err != nil {
		return generation.Status{}, &ProtocolError{Op: "fetch status", Detail: err.Error()}
	}
	if status.Status == "" {
		return generation.Status{}, &ProtocolError{Op: "fetch status", Detail: "missing status"}
	}

	c.logger.Debug("job status fetched",
		"job_id", id,
		"status", status.Status,
		"progress", status.Progress,
		"has_script", status.Script != nil,
	)
	return status, nil
}

// Download streams the finished video to w and returns the byte count.
func (c *HTTPClient) Download(ctx context.Context, videoURL string, w io.Writer) (int64, error) {
	endpoint, err := c.ResolveURL(videoURL)
	if err != nil {
		return 0, err
	}

	httpReq, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}

	// Videos can take longer than a status call; rely on ctx instead of the client timeout.
	dl := &http.Client{Transport: c.httpClient.Transport}
	resp, err := dl.Do(httpReq)
	if err != nil {
		return 0, &TransportError{Op: "download video", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return 0, &ProtocolError{Op: "download video", StatusCode: resp.StatusCode, Detail: serviceMessage(resp.StatusCode, respBody)}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &TransportError{Op: "download video", Err: err}
	}

	c.logger.Info("video downloaded", "url", endpoint, "bytes", n)
	return n, nil
}

// ResolveURL turns a service-relative video URL into an absolute one.
func (c *HTTPClient) ResolveURL(videoURL string) (string, error) {
	if videoURL == "" {
		return "", fmt.Errorf("empty video url")
	}
	ref, err := url.Parse(videoURL)
	if err != nil {
		return "", fmt.Errorf("invalid video url %q: %w", videoURL, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", c.baseURL, err)
	}
	return base.ResolveReference(ref).String(), nil
}

func (c *HTTPClient) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())
	return req, nil
}

// serviceMessage extracts a human readable message from an error body.
// FastAPI style services answer {"detail": ...}; others {"error": ...}.
func serviceMessage(statusCode int, body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Error   string          `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if len(payload.Detail) > 0 {
			var s string
			if json.Unmarshal(payload.Detail, &s) == nil {
				return s
			}
			return string(payload.Detail)
		}
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return http.StatusText(statusCode)
	}
	return msg
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}

// Downloader fetches finished videos.
type Downloader interface {
	Download(ctx context.Context, videoURL string, w io.Writer) (int64, error)
}
