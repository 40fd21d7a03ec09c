package plausible

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/coursekit-app/coursekit-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient("key", "coursekit.app",
		WithHTTPClient(&http.Client{Transport: rt}),
		WithBaseURL("https://plausible.test/api/v1"),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient("", "site"); err == nil {
		t.Fatal("expected error for missing api key")
	}
	if _, err := NewClient("key", " "); err == nil {
		t.Fatal("expected error for missing site id")
	}
}

func TestNewClientCarriesConfiguredTimeout(t *testing.T) {
	client, err := NewClient("key", "site",
		WithHTTPClient(&http.Client{Timeout: 3 * time.Second}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.httpClient.Timeout != 3*time.Second {
		t.Fatalf("expected configured timeout, got %v", client.httpClient.Timeout)
	}
}

func TestAggregateParsesMetrics(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if got := req.Header.Get("Authorization"); got != "Bearer key" {
			t.Fatalf("unexpected auth header %q", got)
		}
		q := req.URL.Query()
		if q.Get("date") != "2026-01-01,2026-01-31" {
			t.Fatalf("unexpected date param %q", q.Get("date"))
		}
		return jsonResponse(http.StatusOK, `{"results":{"visitors":{"value":1200},"pageviews":{"value":4800},"bounce_rate":{"value":42.5}}}`), nil
	})

	stats, err := client.Aggregate(context.Background(), "2026-01-01", "2026-01-31")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if stats.Visitors != 1200 || stats.Pageviews != 4800 || stats.BounceRate != 42.5 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestSourceBreakdownWalksPagesUntilShortPage(t *testing.T) {
	var calls int
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		calls++
		page := req.URL.Query().Get("page")
		switch page {
		case "1":
			rows := make([]string, breakdownPageLimit)
			for i := range rows {
				rows[i] = fmt.Sprintf(`{"source":"ref-%d","visitors":1}`, i)
			}
			return jsonResponse(http.StatusOK, `{"results":[`+strings.Join(rows, ",")+`]}`), nil
		case "2":
			return jsonResponse(http.StatusOK, `{"results":[{"source":"Google","visitors":42}]}`), nil
		default:
			t.Fatalf("unexpected page %q", page)
			return nil, nil
		}
	})

	sources, err := client.SourceBreakdown(context.Background(), "2026-01-01", "2026-01-31")
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 pages fetched, got %d", calls)
	}
	if len(sources) != breakdownPageLimit+1 {
		t.Fatalf("expected %d sources, got %d", breakdownPageLimit+1, len(sources))
	}
	last := sources[len(sources)-1]
	if last.Source != "Google" || last.Visitors != 42 {
		t.Fatalf("unexpected final row %+v", last)
	}
}

func TestTimeseriesParsesDays(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"results":[{"date":"2026-01-14","visitors":10,"pageviews":25},{"date":"2026-01-15","visitors":12,"pageviews":30}]}`), nil
	})

	days, err := client.Timeseries(context.Background(), "2026-01-14", "2026-01-15")
	if err != nil {
		t.Fatalf("timeseries: %v", err)
	}
	if len(days) != 2 || days[0].Date != "2026-01-14" || days[1].Visitors != 12 {
		t.Fatalf("unexpected series %+v", days)
	}
}

func TestNon2xxMapsToDependencyError(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, `{"error":"invalid key"}`), nil
	})

	_, err := client.Aggregate(context.Background(), "2026-01-01", "2026-01-31")
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	cause := typed.Unwrap()
	if cause == nil || !strings.Contains(cause.Error(), "401") {
		t.Fatalf("error should carry upstream status, got %v", cause)
	}
}

func TestServerErrorsAreRetried(t *testing.T) {
	var calls int
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return jsonResponse(http.StatusInternalServerError, `boom`), nil
		}
		return jsonResponse(http.StatusOK, `{"results":{"visitors":{"value":5},"pageviews":{"value":9},"bounce_rate":{"value":0}}}`), nil
	})

	stats, err := client.Aggregate(context.Background(), "2026-01-01", "2026-01-02")
	if err != nil {
		t.Fatalf("aggregate after retry: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected retry, calls=%d", calls)
	}
	if stats.Visitors != 5 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
