package insights

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coursekit-app/coursekit-backend/pkg/kit"
)

type stubEmail struct {
	total       int64
	subscribers []kit.Subscriber
	tags        []kit.Tag
	tagCounts   map[int64]int64
	err         error
	calls       int
}

func (s *stubEmail) TotalSubscribers(ctx context.Context) (int64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.total, nil
}

func (s *stubEmail) ListSubscribers(ctx context.Context, from, to time.Time) ([]kit.Subscriber, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.subscribers, nil
}

func (s *stubEmail) ListTags(ctx context.Context) ([]kit.Tag, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.tags, nil
}

func (s *stubEmail) TagSubscriberCount(ctx context.Context, tagID int64) (int64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.tagCounts[tagID], nil
}

func TestEmailKPIsCombineTotalAndRange(t *testing.T) {
	api := &stubEmail{
		total: 8421,
		subscribers: []kit.Subscriber{
			{ID: 1, CreatedAt: day(2026, 1, 5)},
			{ID: 2, CreatedAt: day(2026, 1, 9)},
		},
	}
	svc := NewEmailService(api, testCache(), time.Minute, testLogger())

	res := svc.KPIs(context.Background(), day(2026, 1, 1), day(2026, 1, 31))
	if !res.IsOK() {
		t.Fatalf("expected ok, got %+v", res)
	}
	if res.Data.Subscribers != 8421 || res.Data.NewSubscribers != 2 {
		t.Fatalf("unexpected kpis %+v", res.Data)
	}
	// rate metrics the provider cannot supply are the literal "N/A"
	if res.Data.OpenRate != NotAvailable || res.Data.ClickRate != NotAvailable {
		t.Fatalf("rates should be N/A, got %+v", res.Data)
	}
}

func TestGrowthSeriesCumulative(t *testing.T) {
	api := &stubEmail{subscribers: []kit.Subscriber{
		{ID: 1, CreatedAt: day(2026, 1, 14)},
		{ID: 2, CreatedAt: day(2026, 1, 16)},
		{ID: 3, CreatedAt: day(2026, 1, 16)},
	}}
	svc := NewEmailService(api, testCache(), time.Minute, testLogger())

	res := svc.GrowthSeries(context.Background(), day(2026, 1, 14), day(2026, 1, 16))
	if !res.IsOK() {
		t.Fatalf("expected ok, got %+v", res)
	}
	series := res.Data
	if len(series) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(series))
	}
	if series[0].NewSubscribers != 1 || series[0].Cumulative != 1 {
		t.Fatalf("unexpected day 1 %+v", series[0])
	}
	if series[1].NewSubscribers != 0 || series[1].Cumulative != 1 {
		t.Fatalf("empty day should keep running total, got %+v", series[1])
	}
	if series[2].NewSubscribers != 2 || series[2].Cumulative != 3 {
		t.Fatalf("unexpected day 3 %+v", series[2])
	}
}

func TestTagBreakdownSortedDescending(t *testing.T) {
	api := &stubEmail{
		tags:      []kit.Tag{{ID: 11, Name: "course-a"}, {ID: 12, Name: "newsletter"}, {ID: 13, Name: "webinar"}},
		tagCounts: map[int64]int64{11: 120, 12: 300, 13: 45},
	}
	svc := NewEmailService(api, testCache(), time.Minute, testLogger())

	res := svc.TagBreakdown(context.Background())
	if !res.IsOK() {
		t.Fatalf("expected ok, got %+v", res)
	}
	tags := res.Data
	if len(tags) != 3 {
		t.Fatalf("expected 3 tags, got %d", len(tags))
	}
	if tags[0].Name != "newsletter" || tags[1].Name != "course-a" || tags[2].Name != "webinar" {
		t.Fatalf("tags not sorted by count desc: %+v", tags)
	}
}

func TestEmailNotConfigured(t *testing.T) {
	svc := NewEmailService(nil, testCache(), time.Minute, testLogger())
	res := svc.KPIs(context.Background(), day(2026, 1, 1), day(2026, 1, 2))
	if res.IsOK() || res.Error == "" {
		t.Fatalf("expected unavailable with reason, got %+v", res)
	}
}

func TestEmailUpstreamErrorBecomesUnavailable(t *testing.T) {
	api := &stubEmail{err: errors.New("status 500: kit down")}
	svc := NewEmailService(api, testCache(), time.Minute, testLogger())

	res := svc.GrowthSeries(context.Background(), day(2026, 1, 1), day(2026, 1, 2))
	if res.IsOK() || res.Error == "" {
		t.Fatalf("expected unavailable, got %+v", res)
	}
}
