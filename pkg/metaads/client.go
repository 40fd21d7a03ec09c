package metaads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	pkgerrors "github.com/coursekit-app/coursekit-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://graph.facebook.com/v21.0"
	responseBodyReadLimit int64 = 1024

	retryBase     = 200 * time.Millisecond
	retryAttempts = 2
)

var (
	errAccessTokenRequired = errors.New("meta ads access token is required")
	errAccountIDRequired   = errors.New("meta ads account id is required")
)

// Client wraps the Meta Marketing API for one ad account.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	accountID   string
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

// WithBaseURL overrides the configured Graph API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the Meta Marketing API client for one ad account.
func NewClient(accessToken, accountID string, opts ...Option) (*Client, error) {
	trimmedToken := strings.TrimSpace(accessToken)
	if trimmedToken == "" {
		return nil, errAccessTokenRequired
	}
	trimmedAccount := strings.TrimSpace(accountID)
	if trimmedAccount == "" {
		return nil, errAccountIDRequired
	}

	client := &Client{
		accessToken: trimmedToken,
		accountID:   strings.TrimPrefix(trimmedAccount, "act_"),
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
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

// Insights is one spend/clicks/impressions rollup row.
type Insights struct {
	Spend       float64
	Clicks      int64
	Impressions int64
}

// DayInsights is one daily row from a time_increment=1 breakdown.
type DayInsights struct {
	Date        string
	Spend       float64
	Clicks      int64
	Impressions int64
}

// Campaign is one campaign under the account.
type Campaign struct {
	ID   string
	Name string
}

// insightRow mirrors the Graph API insight payload; numeric fields arrive as
// strings.
type insightRow struct {
	Spend       string `json:"spend"`
	Clicks      string `json:"clicks"`
	Impressions string `json:"impressions"`
	DateStart   string `json:"date_start"`
}

type paging struct {
	Cursors struct {
		After string `json:"after"`
	} `json:"cursors"`
	Next string `json:"next"`
}

// AccountInsights fetches the account-level spend/clicks/impressions rollup
// for the inclusive date range.
func (c *Client) AccountInsights(ctx context.Context, from, to string) (*Insights, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "meta ads client not configured")
	}

	rows, err := c.fetchInsights(ctx, fmt.Sprintf("act_%s/insights", c.accountID), from, to, false)
	if err != nil {
		return nil, err
	}

	total := &Insights{}
	for _, row := range rows {
		total.Spend += parseFloat(row.Spend)
		total.Clicks += parseInt(row.Clicks)
		total.Impressions += parseInt(row.Impressions)
	}
	return total, nil
}

// CampaignDailyInsights fetches the per-day breakdown for one campaign,
// ascending by date.
func (c *Client) CampaignDailyInsights(ctx context.Context, campaignID, from, to string) ([]DayInsights, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "meta ads client not configured")
	}
	if strings.TrimSpace(campaignID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign id is required")
	}

	rows, err := c.fetchInsights(ctx, fmt.Sprintf("%s/insights", campaignID), from, to, true)
	if err != nil {
		return nil, err
	}

	days := make([]DayInsights, 0, len(rows))
	for _, row := range rows {
		days = append(days, DayInsights{
			Date:        row.DateStart,
			Spend:       parseFloat(row.Spend),
			Clicks:      parseInt(row.Clicks),
			Impressions: parseInt(row.Impressions),
		})
	}
	return days, nil
}

// ListCampaigns returns every campaign under the account, walking the cursor
// pagination until the API stops returning a next page.
func (c *Client) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "meta ads client not configured")
	}

	var campaigns []Campaign
	after := ""
	for {
		query := url.Values{}
		query.Set("fields", "id,name")
		if after != "" {
			query.Set("after", after)
		}

		var apiResp struct {
			Data []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"data"`
			Paging paging `json:"paging"`
		}
		if err := c.getJSON(ctx, fmt.Sprintf("act_%s/campaigns", c.accountID), query, &apiResp); err != nil {
			return nil, err
		}

		for _, row := range apiResp.Data {
			campaigns = append(campaigns, Campaign{ID: row.ID, Name: row.Name})
		}

		if apiResp.Paging.Next == "" || apiResp.Paging.Cursors.After == "" {
			break
		}
		after = apiResp.Paging.Cursors.After
	}
	return campaigns, nil
}

func (c *Client) fetchInsights(ctx context.Context, path, from, to string, daily bool) ([]insightRow, error) {
	var rows []insightRow
	after := ""
	for {
		query := url.Values{}
		query.Set("fields", "spend,clicks,impressions")
		query.Set("time_range", fmt.Sprintf(`{"since":"%s","until":"%s"}`, from, to))
		if daily {
			query.Set("time_increment", "1")
		}
		if after != "" {
			query.Set("after", after)
		}

		var apiResp struct {
			Data   []insightRow `json:"data"`
			Paging paging       `json:"paging"`
		}
		if err := c.getJSON(ctx, path, query, &apiResp); err != nil {
			return nil, err
		}

		rows = append(rows, apiResp.Data...)

		if apiResp.Paging.Next == "" || apiResp.Paging.Cursors.After == "" {
			break
		}
		after = apiResp.Paging.Cursors.After
	}
	return rows, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	query.Set("access_token", c.accessToken)
	endpoint := fmt.Sprintf("%s/%s?%s", strings.TrimRight(c.baseURL, "/"), strings.TrimLeft(path, "/"), query.Encode())

	var body []byte
	backoff := retry.WithMaxRetries(retryAttempts, retry.NewFibonacci(retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build meta ads request")
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute meta ads request"))
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
			wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "meta ads request failed")
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
				return retry.RetryableError(wrapped)
			}
			return wrapped
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read meta ads response"))
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode meta ads response")
	}
	return nil
}

func parseFloat(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(raw string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
