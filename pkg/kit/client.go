package kit

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
	defaultBaseURL              = "https://api.convertkit.com/v3"
	responseBodyReadLimit int64 = 1024

	retryBase     = 200 * time.Millisecond
	retryAttempts = 2
)

var errAPISecretRequired = errors.New("kit api secret is required")

// Client wraps the Kit (ConvertKit) v3 API used for email list insights.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiSecret  string
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

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the Kit client given the account API secret.
func NewClient(apiSecret string, opts ...Option) (*Client, error) {
	trimmedSecret := strings.TrimSpace(apiSecret)
	if trimmedSecret == "" {
		return nil, errAPISecretRequired
	}

	client := &Client{
		apiSecret:  trimmedSecret,
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

// Subscriber is one confirmed list member.
type Subscriber struct {
	ID        int64
	CreatedAt time.Time
}

// Tag is one list tag.
type Tag struct {
	ID   int64
	Name string
}

type subscribersPage struct {
	TotalSubscribers int64 `json:"total_subscribers"`
	Page             int   `json:"page"`
	TotalPages       int   `json:"total_pages"`
	Subscribers      []struct {
		ID        int64  `json:"id"`
		CreatedAt string `json:"created_at"`
	} `json:"subscribers"`
}

// TotalSubscribers returns the unranged running total for the list.
func (c *Client) TotalSubscribers(ctx context.Context) (int64, error) {
	if c == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "kit client not configured")
	}

	query := url.Values{}
	query.Set("page", "1")

	var page subscribersPage
	if err := c.getJSON(ctx, "subscribers", query, &page); err != nil {
		return 0, err
	}
	return page.TotalSubscribers, nil
}

// ListSubscribers returns every subscriber created inside [from, to], walking
// the page/total_pages pagination to the end.
func (c *Client) ListSubscribers(ctx context.Context, from, to time.Time) ([]Subscriber, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "kit client not configured")
	}

	var subscribers []Subscriber
	for pageNum := 1; ; pageNum++ {
		query := url.Values{}
		query.Set("page", fmt.Sprint(pageNum))
		query.Set("created_after", from.UTC().Format("2006-01-02"))
		query.Set("created_before", to.UTC().Format("2006-01-02"))

		var page subscribersPage
		if err := c.getJSON(ctx, "subscribers", query, &page); err != nil {
			return nil, err
		}

		for _, sub := range page.Subscribers {
			entry := Subscriber{ID: sub.ID}
			if ts, err := time.Parse(time.RFC3339, sub.CreatedAt); err == nil {
				entry.CreatedAt = ts.UTC()
			}
			subscribers = append(subscribers, entry)
		}

		if pageNum >= page.TotalPages {
			break
		}
	}
	return subscribers, nil
}

// ListTags returns all tags on the account.
func (c *Client) ListTags(ctx context.Context) ([]Tag, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "kit client not configured")
	}

	var apiResp struct {
		Tags []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"tags"`
	}
	if err := c.getJSON(ctx, "tags", url.Values{}, &apiResp); err != nil {
		return nil, err
	}

	tags := make([]Tag, 0, len(apiResp.Tags))
	for _, tag := range apiResp.Tags {
		tags = append(tags, Tag{ID: tag.ID, Name: tag.Name})
	}
	return tags, nil
}

// TagSubscriberCount returns the number of subscriptions on one tag.
func (c *Client) TagSubscriberCount(ctx context.Context, tagID int64) (int64, error) {
	if c == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "kit client not configured")
	}

	var apiResp struct {
		TotalSubscriptions int64 `json:"total_subscriptions"`
	}
	path := fmt.Sprintf("tags/%d/subscriptions", tagID)
	if err := c.getJSON(ctx, path, url.Values{}, &apiResp); err != nil {
		return 0, err
	}
	return apiResp.TotalSubscriptions, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	query.Set("api_secret", c.apiSecret)
	endpoint := fmt.Sprintf("%s/%s?%s", strings.TrimRight(c.baseURL, "/"), strings.TrimLeft(path, "/"), query.Encode())

	var body []byte
	backoff := retry.WithMaxRetries(retryAttempts, retry.NewFibonacci(retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build kit request")
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute kit request"))
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
			wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "kit request failed")
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
				return retry.RetryableError(wrapped)
			}
			return wrapped
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read kit response"))
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode kit response")
	}
	return nil
}
