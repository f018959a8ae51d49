package herald

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"policyscan-backend/internal/shared/metrics"
)

const defaultBaseURL = "https://sandbox.heraldapi.com"

// ErrNotConfigured is returned when the API key is missing. The caller maps
// this to an explicit 500 rather than degrading silently.
var ErrNotConfigured = errors.New("herald api key not configured")

// Result carries the upstream status code and decoded JSON body. Non-2xx
// responses are not errors: their status and body are forwarded to the
// caller verbatim.
type Result struct {
	StatusCode int
	Body       map[string]any
}

// OK reports whether the upstream call succeeded.
func (r Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client is a thin HTTP client for the Herald document-extraction API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a Client. An empty API key is allowed; calls will
// return ErrNotConfigured until one is provided.
func NewClient(apiKey, baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	timeout := 60 * time.Second
	if raw := strings.TrimSpace(os.Getenv("HERALD_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// UploadFile submits a document binary and returns the upstream response.
func (c *Client) UploadFile(ctx context.Context, fileName string, r io.Reader) (Result, error) {
	if !c.Configured() {
		return Result{}, ErrNotConfigured
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return Result{}, fmt.Errorf("herald upload: create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return Result{}, fmt.Errorf("herald upload: copy file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Result{}, fmt.Errorf("herald upload: close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", &body)
	if err != nil {
		return Result{}, fmt.Errorf("herald upload: build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(req)
}

// SubmitExtraction starts an extraction for an uploaded file.
func (c *Client) SubmitExtraction(ctx context.Context, fileID string) (Result, error) {
	if !c.Configured() {
		return Result{}, ErrNotConfigured
	}

	payload, err := json.Marshal(map[string]string{"file_id": fileID})
	if err != nil {
		return Result{}, fmt.Errorf("herald submit: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/data_extractions", bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("herald submit: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// GetExtraction polls an extraction job by its extraction id.
func (c *Client) GetExtraction(ctx context.Context, extractionID string) (Result, error) {
	if !c.Configured() {
		return Result{}, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/data_extractions/"+extractionID, nil)
	if err != nil {
		return Result{}, fmt.Errorf("herald poll: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req)
}

func (c *Client) do(req *http.Request) (Result, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := metrics.NowMillis()
	resp, err := c.httpClient.Do(req)
	metrics.ObserveHeraldDurationMs(metrics.NowMillis() - start)
	if err != nil {
		return Result{}, fmt.Errorf("herald %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	// An undecodable body degrades to an empty object; the status code still
	// decides success.
	body := map[string]any{}
	if raw, readErr := io.ReadAll(resp.Body); readErr == nil && len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}

	return Result{StatusCode: resp.StatusCode, Body: body}, nil
}
