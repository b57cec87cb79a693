// Package socrata is a minimal client for Socrata JSON query endpoints:
// SoQL query encoding, app-token auth, and lazy limit/offset pagination.
package socrata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"nyc311/internal/config"
)

// appTokenHeader is the Socrata application token header. Requests without it
// are served but throttled more aggressively.
const appTokenHeader = "X-App-Token"

// Record is one row as returned by the endpoint. The server emits a varying
// superset of fields per row, so rows stay schemaless until aggregation.
type Record map[string]any

// Query describes one paginated request against the dataset endpoint
type Query struct {
	Where  string
	Order  string
	Limit  int
	Offset int
}

// Values encodes the query as Socrata (SoQL) request parameters
func (q Query) Values() url.Values {
	values := url.Values{}
	if q.Where != "" {
		values.Set("$where", q.Where)
	}
	if q.Order != "" {
		values.Set("$order", q.Order)
	}
	values.Set("$limit", strconv.Itoa(q.Limit))
	if q.Offset > 0 {
		values.Set("$offset", strconv.Itoa(q.Offset))
	}
	return values
}

// Client issues range-filtered queries against a Socrata JSON endpoint
type Client struct {
	baseURL    string
	appToken   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a client for the configured endpoint
func NewClient(cfg config.SourceConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:  cfg.BaseURL,
		appToken: cfg.AppToken,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// WithPageDelay returns a copy of the client that spaces successive requests
// by at least d. A zero or negative delay disables pacing. The receiver is
// left untouched so one client can serve differently paced scopes.
func (c *Client) WithPageDelay(d time.Duration) *Client {
	clone := *c
	if d <= 0 {
		clone.limiter = nil
	} else {
		clone.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
	return &clone
}

// FetchPage fetches a single page of records.
// An empty result signals exhaustion of the query. Any transport failure or
// non-success status is returned as an error; there is no retry.
func (c *Client) FetchPage(ctx context.Context, q Query) ([]Record, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait interrupted: %w", err)
		}
	}

	reqURL := c.baseURL + "?" + q.Values().Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.appToken != "" {
		req.Header.Set(appTokenHeader, c.appToken)
	}

	c.logger.Debug("Fetching page",
		slog.String("where", q.Where),
		slog.Int("limit", q.Limit),
		slog.Int("offset", q.Offset))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed for offset %d: %w", q.Offset, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("bad status for offset %d: %s: %s", q.Offset, resp.Status, string(body))
	}

	var records []Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode response for offset %d: %w", q.Offset, err)
	}

	return records, nil
}
