package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"scribe/internal/api"
	"scribe/internal/workflow"
)

const defaultTimeout = 30 * time.Second

// Error is a non-2xx response from the daemon.
type Error struct {
	StatusCode int
	Kind       string
	Message    string
	Hint       string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Hint != "" {
		return fmt.Sprintf("%s (hint: %s)", msg, e.Hint)
	}
	return msg
}

// IsNotFound reports whether err is a 404 from the daemon.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client talks to a running scribed instance.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Dial returns a client for the daemon at baseURL. No connection is made
// until the first request.
func Dial(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// BaseURL returns the daemon address the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CreateJob submits a new transcription job.
func (c *Client) CreateJob(ctx context.Context, req api.CreateJobRequest) (api.CreateJobResponse, error) {
	var resp api.CreateJobResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/jobs", req, &resp)
	return resp, err
}

// JobStatus fetches the status payload of a job.
func (c *Client) JobStatus(ctx context.Context, id string) (api.JobStatus, error) {
	var resp api.JobStatus
	err := c.doJSON(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id)+"/status", nil, &resp)
	return resp, err
}

// Job fetches the full job record.
func (c *Client) Job(ctx context.Context, id string) (api.Job, error) {
	var resp api.Job
	err := c.doJSON(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// ListJobs returns jobs, optionally filtered by status.
func (c *Client) ListJobs(ctx context.Context, statuses []string) ([]api.Job, error) {
	path := "/api/jobs"
	if len(statuses) > 0 {
		query := url.Values{}
		for _, status := range statuses {
			query.Add("status", status)
		}
		path += "?" + query.Encode()
	}
	var resp api.JobListResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// Stats returns job counts per status.
func (c *Client) Stats(ctx context.Context) (map[string]int, error) {
	var resp api.QueueStatsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/jobs/stats", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Counts, nil
}

// Cancel requests cancellation of a job.
func (c *Client) Cancel(ctx context.Context, id string) (api.CancelResponse, error) {
	var resp api.CancelResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/cancel", nil, &resp)
	return resp, err
}

// Delete removes a terminal job.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/jobs/"+url.PathEscape(id), nil, nil)
}

// Export downloads a rendered transcript. FileName carries the name suggested
// by the daemon's Content-Disposition header, if any.
func (c *Client) Export(ctx context.Context, id, format string) (api.ExportFile, error) {
	path := "/api/jobs/" + url.PathEscape(id) + "/export?" + url.Values{"format": {format}}.Encode()
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return api.ExportFile{}, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return api.ExportFile{}, fmt.Errorf("read export: %w", err)
	}
	file := api.ExportFile{Data: data, ContentType: resp.Header.Get("Content-Type")}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		file.FileName = filepath.Base(params["filename"])
	}
	return file, nil
}

// QA runs the heuristic review of a completed job.
func (c *Client) QA(ctx context.Context, id string) (api.QAResponse, error) {
	var resp api.QAResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id)+"/qa", nil, &resp)
	return resp, err
}

// Status retrieves the daemon status.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var resp api.DaemonStatus
	err := c.doJSON(ctx, http.MethodGet, "/api/status", nil, &resp)
	return resp, err
}

// WatchEvents streams a job's events to fn until the daemon closes the
// stream, fn returns an error, or ctx is cancelled.
func (c *Client) WatchEvents(ctx context.Context, id string, fn func(workflow.Event) error) error {
	target, err := url.Parse(c.baseURL + "/api/jobs/" + url.PathEscape(id) + "/events")
	if err != nil {
		return fmt.Errorf("build events url: %w", err)
	}
	switch target.Scheme {
	case "https":
		target.Scheme = "wss"
	default:
		target.Scheme = "ws"
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target.String(), header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return decodeError(resp)
		}
		return wrapDialError(err, c.baseURL)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var event workflow.Event
		if err := conn.ReadJSON(&event); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read event: %w", err)
		}
		if err := fn(event); err != nil {
			return err
		}
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = buf
	}
	resp, err := c.do(ctx, method, path, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do sends the request and returns the response only for 2xx statuses.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, wrapDialError(err, c.baseURL)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode}
	var payload api.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); err == nil {
		apiErr.Kind = payload.Kind
		apiErr.Message = payload.Error
		apiErr.Hint = payload.Hint
	}
	return apiErr
}

func wrapDialError(err error, baseURL string) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon: %s refused the connection; start it with `scribed`", baseURL)
	}
	return fmt.Errorf("connect to daemon: %w", err)
}
