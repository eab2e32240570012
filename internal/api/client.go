package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/deepdefend/deepdefend-cli/pkg/logger"
)

// DefaultIntervalDuration is the analysis window passed to the service when
// the caller does not override it.
const DefaultIntervalDuration = 2.0

// Client talks to the DeepDefend detection service. It performs no retries:
// a failed call surfaces immediately to the caller as a *RequestError.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New builds a client against the given base endpoint. The base is resolved
// once at process start by the config package and is read-only afterwards.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		log:        logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// do issues one request and decodes the response. The body is parsed as JSON
// regardless of status; a non-JSON body parses to an empty object rather than
// failing. Non-2xx responses become a *RequestError whose message comes from
// the error/detail/message body fields.
func (c *Client) do(ctx context.Context, method, url string, body io.Reader, contentType, fallback string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return &RequestError{Message: err.Error(), URL: url}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.log.Debugf("%s %s", method, url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RequestError{Message: err.Error(), URL: url}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{Message: err.Error(), Status: resp.StatusCode, URL: url}
	}

	parsed := map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &parsed); err != nil {
			parsed = map[string]any{}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RequestError{
			Message: extractMessage(parsed, fallback),
			Status:  resp.StatusCode,
			URL:     url,
		}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			// Undecodable success bodies degrade to the zero value so the
			// presentation layer's defensive field checks take over.
			c.log.Warnf("response from %s did not decode: %v", url, err)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, c.baseURL+path, nil, "", fallbackRequestFailed, out)
}

// SubmitAnalysis uploads a video as multipart form field "file" and blocks
// until the service returns a verdict or fails. intervalDuration must be > 0.
func (c *Client) SubmitAnalysis(ctx context.Context, videoPath string, intervalDuration float64) (*AnalysisResult, error) {
	if intervalDuration <= 0 {
		intervalDuration = DefaultIntervalDuration
	}

	file, err := os.Open(videoPath)
	if err != nil {
		return nil, fmt.Errorf("opening video: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(videoPath))
	if err != nil {
		return nil, fmt.Errorf("building multipart body: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("reading video: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing multipart body: %w", err)
	}

	url := fmt.Sprintf("%s/analyze?interval_duration=%s",
		c.baseURL, strconv.FormatFloat(intervalDuration, 'f', -1, 64))

	var result AnalysisResult
	if err := c.do(ctx, http.MethodPost, url, &buf, writer.FormDataContentType(), fallbackAnalysisFailed, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// History fetches the most recent analyses, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]HistoryItem, error) {
	var items []HistoryItem
	if err := c.get(ctx, fmt.Sprintf("/history?limit=%d", limit), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Stats fetches the aggregate service counters.
func (c *Client) Stats(ctx context.Context) (*StatsSnapshot, error) {
	var stats StatsSnapshot
	if err := c.get(ctx, "/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Intervals fetches per-interval detail for a finished analysis. The full set
// is returned; display-side filtering to SUSPICIOUS happens in the report
// package.
func (c *Client) Intervals(ctx context.Context, analysisID string) ([]IntervalDetail, error) {
	var resp intervalsResponse
	if err := c.get(ctx, "/intervals/"+analysisID, &resp); err != nil {
		return nil, err
	}
	return resp.Intervals, nil
}
