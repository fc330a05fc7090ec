package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/denguewatch/denguewatch/internal/aggregate"
	"github.com/denguewatch/denguewatch/internal/chart"
	"github.com/denguewatch/denguewatch/internal/dashboard"
	"github.com/denguewatch/denguewatch/internal/ingest"
	"github.com/denguewatch/denguewatch/internal/records"
)

// APIClient handles HTTP communication with the denguewatch server.
type APIClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
	Field      string `json:"field"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("API error (%d): %s (field %s)", e.StatusCode, e.Message, e.Field)
	}
	if e.Message != "" {
		return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error (%d)", e.StatusCode)
}

// NewClient creates an APIClient for serverURL.
func NewClient(serverURL string) *APIClient {
	return &APIClient{
		BaseURL: strings.TrimRight(serverURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *APIClient) do(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}
	return c.send(ctx, method, path, "application/json", bodyReader, result)
}

func (c *APIClient) send(ctx context.Context, method, path, contentType string, body io.Reader, result interface{}) error {
	url := c.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(respBody, apiErr)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// HealthResponse is the body of /health. Store is only reported by servers
// backed by PostgreSQL.
type HealthResponse struct {
	Status  string       `json:"status"`
	Loaded  bool         `json:"loaded"`
	Records int          `json:"records"`
	Store   *StoreCounts `json:"store,omitempty"`
}

// StoreCounts are row counts read directly from the database.
type StoreCounts struct {
	Records  int64 `json:"records"`
	Regions  int64 `json:"regions"`
	Activity int64 `json:"activity_entries"`
}

// Health queries the server health endpoint.
func (c *APIClient) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListRecords fetches one page of the listing, filtered by search.
func (c *APIClient) ListRecords(ctx context.Context, search string, page, size int) (*dashboard.Page, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if size > 0 {
		q.Set("size", strconv.Itoa(size))
	}
	var resp dashboard.Page
	if err := c.do(ctx, http.MethodGet, withQuery("/api/v1/records", q), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateRecord adds a record and returns it with its new id.
func (c *APIClient) CreateRecord(ctx context.Context, f records.Fields) (*records.CaseRecord, error) {
	var resp records.CaseRecord
	if err := c.do(ctx, http.MethodPost, "/api/v1/records", f, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateRecord replaces every field of record id.
func (c *APIClient) UpdateRecord(ctx context.Context, id string, f records.Fields) (*records.CaseRecord, error) {
	var resp records.CaseRecord
	if err := c.do(ctx, http.MethodPut, "/api/v1/records/"+url.PathEscape(id), f, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteRecord removes record id.
func (c *APIClient) DeleteRecord(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/records/"+url.PathEscape(id), nil, nil)
}

// ImportResponse is the outcome of a CSV upload.
type ImportResponse struct {
	Accepted   int                `json:"accepted"`
	Rejected   int                `json:"rejected"`
	Rejections []ingest.Rejection `json:"rejections"`
	IDs        []records.ID       `json:"ids"`
	DryRun     bool               `json:"dry_run,omitempty"`
}

// Import uploads a CSV file as multipart form data.
func (c *APIClient) Import(ctx context.Context, name string, data io.Reader, policy string, dryRun bool) (*ImportResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, data); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	q := url.Values{}
	if policy != "" {
		q.Set("policy", policy)
	}
	if dryRun {
		q.Set("dry_run", "true")
	}
	var resp ImportResponse
	if err := c.send(ctx, http.MethodPost, withQuery("/api/v1/records/import", q), mw.FormDataContentType(), &buf, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TotalsResponse is the body of the totals endpoints.
type TotalsResponse struct {
	aggregate.Totals
	Records int `json:"records"`
}

// Totals fetches the grand totals, of the live records or of the bundled
// snapshot.
func (c *APIClient) Totals(ctx context.Context, snapshot bool) (*TotalsResponse, error) {
	path := "/api/v1/stats/totals"
	if snapshot {
		path = "/api/v1/snapshot/totals"
	}
	var resp TotalsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RegionsResponse lists per-region totals.
type RegionsResponse struct {
	Regions   []aggregate.RegionTotals `json:"regions"`
	Unmatched []string                 `json:"unmatched"`
}

// Regions fetches per-region totals, largest first.
func (c *APIClient) Regions(ctx context.Context) (*RegionsResponse, error) {
	var resp RegionsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/stats/regions", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Chart fetches a chart series. month and year are sent only when non-zero.
func (c *APIClient) Chart(ctx context.Context, kind, mode string, month, year int) (*chart.Series, error) {
	q := url.Values{}
	if mode != "" {
		q.Set("mode", mode)
	}
	if month != 0 {
		q.Set("month", strconv.Itoa(month))
	}
	if year != 0 {
		q.Set("year", strconv.Itoa(year))
	}
	var resp chart.Series
	if err := c.do(ctx, http.MethodGet, withQuery("/api/v1/charts/"+url.PathEscape(kind), q), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh asks the server to reload its records from the store.
func (c *APIClient) Refresh(ctx context.Context) (int, error) {
	var resp struct {
		Records int `json:"records"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/records/refresh", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Records, nil
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
