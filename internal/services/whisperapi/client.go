package whisperapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scribe/internal/engine"
	"scribe/internal/language"
	"scribe/internal/transcript"
)

// Name is the engine name used in config and on job records.
const Name = "whisper_api"

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "whisper-1"
	defaultHTTPTimeout = 15 * time.Minute
	maxErrorSnippet    = 512
)

// RetryPolicy bounds how one chunk upload is repeated after a transient
// failure (5xx or a dropped connection). Attempts counts the first try, so 1
// disables retries. The wait before retry n is BaseDelay * 2^(n-1).
// Timeouts, quota and other rejections are never retried.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

// DefaultRetryPolicy is used when Config.Retry is left zero.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 2, BaseDelay: 2 * time.Second}
}

// Delay returns the wait before the given retry (1-based).
func (p RetryPolicy) Delay(retry int) time.Duration {
	if retry < 1 || p.BaseDelay <= 0 {
		return 0
	}
	return p.BaseDelay * time.Duration(1<<(retry-1))
}

// Config captures the runtime settings required to talk to the endpoint.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	TimeoutSeconds int
	Retry          RetryPolicy
}

// Client is the whisper_api engine adapter.
type Client struct {
	cfg        Config
	httpClient *http.Client
	sleeper    func(context.Context, time.Duration) error
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs the adapter.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
			Retry:          cfg.Retry,
		},
		httpClient: &http.Client{Timeout: timeout},
		sleeper:    sleepContext,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	if client.cfg.Retry.Attempts < 1 {
		client.cfg.Retry = DefaultRetryPolicy()
	}
	if client.cfg.Retry.BaseDelay < 0 {
		client.cfg.Retry.BaseDelay = 0
	}
	return client
}

// Name implements engine.Adapter.
func (c *Client) Name() string { return Name }

// Transcribe uploads one audio handle and decodes the verbose_json response.
func (c *Client) Transcribe(ctx context.Context, req engine.Request) (transcript.Result, error) {
	var empty transcript.Result
	body, contentType, err := c.buildBody(req)
	if err != nil {
		return empty, err
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "audio", "transcriptions")
	if err != nil {
		return empty, engine.NewError(Name, engine.ReasonRejected, "build url", err)
	}

	var lastErr error
	policy := c.cfg.Retry
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		result, retry, err := c.send(ctx, endpoint, contentType, body)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retry || attempt == policy.Attempts {
			break
		}
		if sleepErr := c.sleeper(ctx, policy.Delay(attempt)); sleepErr != nil {
			return empty, sleepErr
		}
	}
	return empty, lastErr
}

func (c *Client) buildBody(req engine.Request) ([]byte, string, error) {
	path := strings.TrimSpace(req.AudioPath)
	if path == "" {
		return nil, "", engine.NewError(Name, engine.ReasonRejected, "audio path required", nil)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, "", engine.NewError(Name, engine.ReasonRejected, "open audio", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"model", c.cfg.Model},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "segment"},
		{"timestamp_granularities[]", "word"},
	}
	if code, err := language.Normalize(req.Language); err == nil && code != "" {
		fields = append(fields, [2]string{"language", code})
	}
	if prompt := strings.TrimSpace(req.Prompt); prompt != "" {
		fields = append(fields, [2]string{"prompt", prompt})
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", field[0], err)
		}
	}
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", engine.NewError(Name, engine.ReasonRejected, "read audio", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

func (c *Client) send(ctx context.Context, endpoint, contentType string, body []byte) (transcript.Result, bool, error) {
	var empty transcript.Result
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return empty, false, engine.NewError(Name, engine.ReasonRejected, "new request", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return empty, false, ctx.Err()
		}
		if isTimeout(err) {
			return empty, false, engine.NewError(Name, engine.ReasonTimeout, fmt.Sprintf("no response within %s", c.httpClient.Timeout), err)
		}
		return empty, true, engine.NewError(Name, engine.ReasonExecution, "http error", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return empty, false, engine.NewError(Name, engine.ReasonTimeout, "read body", err)
		}
		return empty, true, engine.NewError(Name, engine.ReasonExecution, "read body", err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		detail := fmt.Sprintf("http %d: %s", resp.StatusCode, snippet(payload))
		switch resp.StatusCode {
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return empty, false, engine.NewError(Name, engine.ReasonTimeout, detail, nil)
		case http.StatusTooManyRequests:
			return empty, false, engine.NewError(Name, engine.ReasonQuota, detail, nil)
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
			return empty, true, engine.NewError(Name, engine.ReasonExecution, detail, nil)
		default:
			return empty, false, engine.NewError(Name, engine.ReasonRejected, detail, nil)
		}
	}

	result, err := decodeVerbose(payload)
	if err != nil {
		return empty, false, engine.NewError(Name, engine.ReasonMalformed, snippet(payload), err)
	}
	return result, false, nil
}

type verboseResponse struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Duration *float64         `json:"duration"`
	Segments []verboseSegment `json:"segments"`
	Words    []verboseWord    `json:"words"`
}

type verboseSegment struct {
	ID           int           `json:"id"`
	Start        float64       `json:"start"`
	End          float64       `json:"end"`
	Text         string        `json:"text"`
	AvgLogProb   float64       `json:"avg_logprob"`
	NoSpeechProb float64       `json:"no_speech_prob"`
	Words        []verboseWord `json:"words"`
}

type verboseWord struct {
	Word        string   `json:"word"`
	Start       float64  `json:"start"`
	End         float64  `json:"end"`
	Probability *float64 `json:"probability"`
}

// decodeVerbose maps a verbose_json body into an engine result. Words without
// a probability inherit exp(avg_logprob) of the segment that contains them.
func decodeVerbose(payload []byte) (transcript.Result, error) {
	var resp verboseResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return transcript.Result{}, fmt.Errorf("decode verbose_json: %w", err)
	}
	if resp.Duration == nil && resp.Segments == nil && strings.TrimSpace(resp.Text) == "" {
		return transcript.Result{}, errors.New("response carries no transcript fields")
	}

	result := transcript.Result{
		Text:     strings.TrimSpace(resp.Text),
		Language: normalizeLanguage(resp.Language),
		Segments: make([]transcript.Segment, 0, len(resp.Segments)),
	}
	if resp.Duration != nil {
		result.DurationSeconds = *resp.Duration
	}
	for _, seg := range resp.Segments {
		segment := transcript.Segment{
			ID:           seg.ID,
			Start:        seg.Start,
			End:          seg.End,
			Text:         strings.TrimSpace(seg.Text),
			AvgLogProb:   seg.AvgLogProb,
			NoSpeechProb: seg.NoSpeechProb,
		}
		for _, w := range seg.Words {
			segment.Words = append(segment.Words, toWord(w, math.Exp(seg.AvgLogProb)))
		}
		result.Segments = append(result.Segments, segment)
	}

	words := resp.Words
	if len(words) == 0 {
		for _, seg := range resp.Segments {
			words = append(words, seg.Words...)
		}
	}
	for _, w := range words {
		result.Words = append(result.Words, toWord(w, segmentProbability(resp.Segments, w.Start)))
	}
	if result.Text == "" {
		parts := make([]string, 0, len(result.Segments))
		for _, seg := range result.Segments {
			if seg.Text != "" {
				parts = append(parts, seg.Text)
			}
		}
		result.Text = strings.Join(parts, " ")
	}
	if result.DurationSeconds == 0 && len(result.Segments) > 0 {
		result.DurationSeconds = result.Segments[len(result.Segments)-1].End
	}
	return result, nil
}

func toWord(w verboseWord, fallback float64) transcript.Word {
	prob := fallback
	if w.Probability != nil {
		prob = *w.Probability
	}
	return transcript.Word{
		Text:        strings.TrimSpace(w.Word),
		Start:       w.Start,
		End:         w.End,
		Probability: prob,
	}
}

func segmentProbability(segments []verboseSegment, at float64) float64 {
	for _, seg := range segments {
		if at >= seg.Start && at <= seg.End {
			return math.Exp(seg.AvgLogProb)
		}
	}
	return 1
}

func normalizeLanguage(value string) string {
	code, err := language.Normalize(value)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(value))
	}
	return code
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func snippet(payload []byte) string {
	text := strings.TrimSpace(string(payload))
	if len(text) > maxErrorSnippet {
		text = text[:maxErrorSnippet] + "..."
	}
	return text
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
