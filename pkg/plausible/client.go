package plausible

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	pkgerrors "github.com/coursekit-app/coursekit-backend/pkg/errors"
)

const (
	defaultBaseURL             = "https://plausible.io/api/v1"
	breakdownPageLimit         = 100
	responseBodyReadLimit int64 = 1024

	retryBase     = 200 * time.Millisecond
	retryAttempts = 2
)

var (
	errAPIKeyRequired = errors.New("plausible api key is required")
	errSiteIDRequired = errors.New("plausible site id is required")
)

// Client wraps the Plausible Stats API used for traffic insights.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	siteID     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured stats base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the Plausible client for one site.
func NewClient(apiKey, siteID string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}
	trimmedSite := strings.TrimSpace(siteID)
	if trimmedSite == "" {
		return nil, errSiteIDRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		siteID:     trimmedSite,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

// AggregateStats is the site-wide rollup for a date range.
type AggregateStats struct {
	Visitors   int64
	Pageviews  int64
	BounceRate float64
}

// DayStats is one day of the visitors timeseries.
type DayStats struct {
	Date      string
	Visitors  int64
	Pageviews int64
}

// SourceVisitors is one referral source row from the source breakdown.
type SourceVisitors struct {
	Source   string
	Visitors int64
}

// PageVisitors is one page row from the page breakdown.
type PageVisitors struct {
	Page     string
	Visitors int64
}

// Aggregate fetches visitors, pageviews, and bounce rate for the range.
func (c *Client) Aggregate(ctx context.Context, from, to string) (*AggregateStats, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "plausible client not configured")
	}

	query := url.Values{}
	query.Set("site_id", c.siteID)
	query.Set("period", "custom")
	query.Set("date", fmt.Sprintf("%s,%s", from, to))
	query.Set("metrics", "visitors,pageviews,bounce_rate")

	var apiResp struct {
		Results struct {
			Visitors struct {
				Value int64 `json:"value"`
			} `json:"visitors"`
			Pageviews struct {
				Value int64 `json:"value"`
			} `json:"pageviews"`
			BounceRate struct {
				Value float64 `json:"value"`
			} `json:"bounce_rate"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, "stats/aggregate", query, &apiResp); err != nil {
		return nil, err
	}

	return &AggregateStats{
		Visitors:   apiResp.Results.Visitors.Value,
		Pageviews:  apiResp.Results.Pageviews.Value,
		BounceRate: apiResp.Results.BounceRate.Value,
	}, nil
}

// Timeseries fetches the per-day visitor counts for the range, ascending.
func (c *Client) Timeseries(ctx context.Context, from, to string) ([]DayStats, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "plausible client not configured")
	}

	query := url.Values{}
	query.Set("site_id", c.siteID)
	query.Set("period", "custom")
	query.Set("date", fmt.Sprintf("%s,%s", from, to))
	query.Set("interval", "date")
	query.Set("metrics", "visitors,pageviews")

	var apiResp struct {
		Results []struct {
			Date      string `json:"date"`
			Visitors  int64  `json:"visitors"`
			Pageviews int64  `json:"pageviews"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, "stats/timeseries", query, &apiResp); err != nil {
		return nil, err
	}

	days := make([]DayStats, 0, len(apiResp.Results))
	for _, row := range apiResp.Results {
		days = append(days, DayStats{Date: row.Date, Visitors: row.Visitors, Pageviews: row.Pageviews})
	}
	return days, nil
}

// SourceBreakdown fetches visitors per referral source for the range, walking
// the numeric page pagination until a short page signals the end.
func (c *Client) SourceBreakdown(ctx context.Context, from, to string) ([]SourceVisitors, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "plausible client not configured")
	}

	var sources []SourceVisitors
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("site_id", c.siteID)
		query.Set("period", "custom")
		query.Set("date", fmt.Sprintf("%s,%s", from, to))
		query.Set("property", "visit:source")
		query.Set("metrics", "visitors")
		query.Set("limit", fmt.Sprint(breakdownPageLimit))
		query.Set("page", fmt.Sprint(page))

		var apiResp struct {
			Results []struct {
				Source   string `json:"source"`
				Visitors int64  `json:"visitors"`
			} `json:"results"`
		}
		if err := c.getJSON(ctx, "stats/breakdown", query, &apiResp); err != nil {
			return nil, err
		}

		for _, row := range apiResp.Results {
			sources = append(sources, SourceVisitors{Source: row.Source, Visitors: row.Visitors})
		}
		if len(apiResp.Results) < breakdownPageLimit {
			break
		}
	}
	return sources, nil
}

// PageBreakdown fetches visitors per page path for the range, paginated the
// same way as the source breakdown.
func (c *Client) PageBreakdown(ctx context.Context, from, to string) ([]PageVisitors, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "plausible client not configured")
	}

	var pages []PageVisitors
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("site_id", c.siteID)
		query.Set("period", "custom")
		query.Set("date", fmt.Sprintf("%s,%s", from, to))
		query.Set("property", "event:page")
		query.Set("metrics", "visitors")
		query.Set("limit", fmt.Sprint(breakdownPageLimit))
		query.Set("page", fmt.Sprint(page))

		var apiResp struct {
			Results []struct {
				Page     string `json:"page"`
				Visitors int64  `json:"visitors"`
			} `json:"results"`
		}
		if err := c.getJSON(ctx, "stats/breakdown", query, &apiResp); err != nil {
			return nil, err
		}

		for _, row := range apiResp.Results {
			pages = append(pages, PageVisitors{Page: row.Page, Visitors: row.Visitors})
		}
		if len(apiResp.Results) < breakdownPageLimit {
			break
		}
	}
	return pages, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := fmt.Sprintf("%s/%s?%s", strings.TrimRight(c.baseURL, "/"), strings.TrimLeft(path, "/"), query.Encode())

	var body []byte
	backoff := retry.WithMaxRetries(retryAttempts, retry.NewFibonacci(retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build plausible request")
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			// transport failures are worth another attempt
			return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute plausible request"))
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
			wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "plausible request failed")
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
				return retry.RetryableError(wrapped)
			}
			return wrapped
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read plausible response"))
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode plausible response")
	}
	return nil
}
