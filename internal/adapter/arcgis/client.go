// Package arcgis fetches NMED inspection rows from the department's ArcGIS
// FeatureServer, falling back to the Apigee REST endpoint when the feature
// query fails.
package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultFeatureURL = "https://services.arcgis.com/NMED/FeatureServer/0/query"
	defaultApigeeURL  = "https://api.env.nm.gov/v1/inspections"

	// maxRecords is the FeatureServer per-request cap.
	maxRecords = 5000
)

// Client queries the NMED endpoints for raw inspection attribute rows.
type Client struct {
	featureURL string
	apigeeURL  string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option overrides a Client default.
type Option func(*Client)

// WithFeatureURL overrides the ArcGIS FeatureServer query URL.
func WithFeatureURL(u string) Option { return func(c *Client) { c.featureURL = u } }

// WithApigeeURL overrides the Apigee REST endpoint URL.
func WithApigeeURL(u string) Option { return func(c *Client) { c.apigeeURL = u } }

// NewClient creates an NMED client. apiKey may be empty; the ArcGIS endpoint
// is public, the Apigee fallback sends it as a bearer token when set.
func NewClient(apiKey string, timeout time.Duration, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		featureURL: defaultFeatureURL,
		apigeeURL:  defaultApigeeURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchInspections returns raw attribute rows for the given cities and date
// range, trying ArcGIS first and Apigee second. An error is returned only
// when both endpoints fail.
func (c *Client) FetchInspections(ctx context.Context, cities []string, start, end time.Time) ([]map[string]json.RawMessage, error) {
	rows, arcErr := c.fetchFromArcGIS(ctx, cities, start, end)
	if arcErr == nil {
		return rows, nil
	}
	c.logger.Warn("arcgis fetch failed, trying apigee", "error", arcErr)

	rows, apigeeErr := c.fetchFromApigee(ctx, cities, start, end)
	if apigeeErr == nil {
		return rows, nil
	}
	return nil, fmt.Errorf("arcgis: %w; apigee: %w", arcErr, apigeeErr)
}

func (c *Client) fetchFromArcGIS(ctx context.Context, cities []string, start, end time.Time) ([]map[string]json.RawMessage, error) {
	filters := make([]string, len(cities))
	for i, city := range cities {
		filters[i] = fmt.Sprintf("CITY = '%s'", strings.ReplaceAll(city, "'", "''"))
	}
	where := fmt.Sprintf("(%s) AND (INSPECTION_DATE >= '%s' AND INSPECTION_DATE <= '%s')",
		strings.Join(filters, " OR "),
		start.Format("2006-01-02"), end.Format("2006-01-02"))

	params := url.Values{
		"where":             {where},
		"outFields":         {"*"},
		"f":                 {"json"},
		"resultRecordCount": {fmt.Sprint(maxRecords)},
	}

	var resp struct {
		Features []struct {
			Attributes map[string]json.RawMessage `json:"attributes"`
		} `json:"features"`
	}
	if err := c.get(ctx, c.featureURL+"?"+params.Encode(), false, &resp); err != nil {
		return nil, err
	}
	if resp.Features == nil {
		return nil, fmt.Errorf("unexpected arcgis response: no features field")
	}

	rows := make([]map[string]json.RawMessage, len(resp.Features))
	for i, f := range resp.Features {
		rows[i] = f.Attributes
	}
	return rows, nil
}

func (c *Client) fetchFromApigee(ctx context.Context, cities []string, start, end time.Time) ([]map[string]json.RawMessage, error) {
	params := url.Values{
		"cities":     {strings.Join(cities, ",")},
		"start_date": {start.Format("2006-01-02")},
		"end_date":   {end.Format("2006-01-02")},
		"limit":      {fmt.Sprint(maxRecords)},
	}

	var resp struct {
		Inspections []map[string]json.RawMessage `json:"inspections"`
	}
	if err := c.get(ctx, c.apigeeURL+"?"+params.Encode(), true, &resp); err != nil {
		return nil, err
	}
	if resp.Inspections == nil {
		return nil, fmt.Errorf("unexpected apigee response: no inspections field")
	}
	return resp.Inspections, nil
}

func (c *Client) get(ctx context.Context, fullURL string, auth bool, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if auth && c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("nmed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("nmed API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
