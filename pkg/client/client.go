package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/terra-clan/compete-engine/internal/models"
)

// Client is a Go SDK for compete-engine API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new compete-engine client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is returned when the server answers with an error envelope
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s - %s", e.Status, e.Code, e.Message)
}

// Urgency is the urgency classification attached to a competition
type Urgency struct {
	Tier      string `json:"tier"`
	DaysUntil int    `json:"daysUntil"`
	Label     string `json:"label"`
}

// Competition is a catalog record decorated with urgency and saved state
type Competition struct {
	models.Competition
	Urgency      *Urgency `json:"urgency,omitempty"`
	UrgencyError string   `json:"urgencyError,omitempty"`
	Saved        bool     `json:"saved"`
}

// ListOptions contains options for listing competitions
type ListOptions struct {
	Filter    models.FilterSpec
	Sort      string
	Ascending bool
	Limit     int
	Offset    int
}

// CompetitionList is one page of matching competitions
type CompetitionList struct {
	Competitions []Competition `json:"competitions"`
	Total        int           `json:"total"`
	Count        int           `json:"count"`
}

// SyncReport summarises a saved-items sync run
type SyncReport struct {
	Flushed int `json:"flushed"`
	Failed  int `json:"failed"`
	Sync    struct {
		Added   []string `json:"added"`
		Removed []string `json:"removed"`
		Kept    []string `json:"kept"`
	} `json:"sync"`
}

// ListCompetitions retrieves competitions matching opts
func (c *Client) ListCompetitions(ctx context.Context, opts ListOptions) (*CompetitionList, error) {
	params := url.Values{}
	if opts.Filter.Search != "" {
		params.Set("search", opts.Filter.Search)
	}
	for _, v := range opts.Filter.Category {
		params.Add("category", v)
	}
	for _, v := range opts.Filter.Difficulty {
		params.Add("difficulty", v)
	}
	for _, v := range opts.Filter.TimeCommitment {
		params.Add("timeCommitment", v)
	}
	for _, v := range opts.Filter.QuickFilters {
		params.Add("quick", v)
	}
	if opts.Sort != "" {
		params.Set("sort", opts.Sort)
		if opts.Ascending {
			params.Set("order", "asc")
		}
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}

	path := "/api/v1/competitions"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var result CompetitionList
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetCompetition retrieves a competition by ID
func (c *Client) GetCompetition(ctx context.Context, id string) (*Competition, error) {
	var result Competition
	if err := c.do(ctx, http.MethodGet, "/api/v1/competitions/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Facets retrieves the distinct values of every filterable field
func (c *Client) Facets(ctx context.Context) (map[models.Field][]string, error) {
	var result map[models.Field][]string
	if err := c.do(ctx, http.MethodGet, "/api/v1/facets", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// QuickFilters retrieves the names of the available quick filters
func (c *Client) QuickFilters(ctx context.Context) ([]string, error) {
	var result struct {
		QuickFilters []string `json:"quickFilters"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/quick-filters", nil, &result); err != nil {
		return nil, err
	}
	return result.QuickFilters, nil
}

// Save marks a competition as saved
func (c *Client) Save(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, "/api/v1/saved/"+url.PathEscape(id), nil, nil)
}

// Unsave removes a competition from the saved list
func (c *Client) Unsave(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/saved/"+url.PathEscape(id), nil, nil)
}

// ListSaved retrieves the saved competitions
func (c *Client) ListSaved(ctx context.Context) ([]Competition, error) {
	var result struct {
		Competitions []Competition `json:"competitions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/saved", nil, &result); err != nil {
		return nil, err
	}
	return result.Competitions, nil
}

// Sync triggers a saved-items sync with the server of record
func (c *Client) Sync(ctx context.Context) (*SyncReport, error) {
	var result SyncReport
	if err := c.do(ctx, http.MethodPost, "/api/v1/saved/sync", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// do performs an HTTP request and decodes the data field of the envelope into out
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		if resp.StatusCode >= 400 {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !envelope.Success || resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}
