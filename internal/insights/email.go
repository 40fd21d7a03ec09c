package insights

import (
	"context"
	"sort"
	"time"

	"github.com/coursekit-app/coursekit-backend/pkg/cache"
	"github.com/coursekit-app/coursekit-backend/pkg/kit"
	"github.com/coursekit-app/coursekit-backend/pkg/logger"
)

const emailProvider = "kit"

// EmailAPI is the slice of the Kit client the adapter consumes.
type EmailAPI interface {
	TotalSubscribers(ctx context.Context) (int64, error)
	ListSubscribers(ctx context.Context, from, to time.Time) ([]kit.Subscriber, error)
	ListTags(ctx context.Context) ([]kit.Tag, error)
	TagSubscriberCount(ctx context.Context, tagID int64) (int64, error)
}

// EmailKPIs is the list rollup. OpenRate and ClickRate are "N/A": the
// provider cannot supply them, which is not the same as being unavailable.
type EmailKPIs struct {
	Subscribers    int64  `json:"subscribers"`
	NewSubscribers int64  `json:"newSubscribers"`
	OpenRate       string `json:"openRate"`
	ClickRate      string `json:"clickRate"`
	Kpis           []Kpi  `json:"kpis"`
}

// GrowthDay is one day of the cumulative subscriber growth series.
type GrowthDay struct {
	Date           string `json:"date"`
	NewSubscribers int64  `json:"newSubscribers"`
	Cumulative     int64  `json:"cumulative"`
}

// TagCount is one tag with its subscription count.
type TagCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// EmailService aggregates Kit list data. A nil api means the provider is not
// connected.
type EmailService struct {
	api   EmailAPI
	cache *cache.Cache
	ttl   time.Duration
	logg  *logger.Logger
}

func NewEmailService(api EmailAPI, store *cache.Cache, ttl time.Duration, logg *logger.Logger) *EmailService {
	return &EmailService{api: api, cache: store, ttl: ttl, logg: logg}
}

// KPIs returns the running list total plus the period's new subscriber count.
func (s *EmailService) KPIs(ctx context.Context, from, to time.Time) Result[EmailKPIs] {
	if s.api == nil {
		return Unavailable[EmailKPIs]("kit api secret not configured")
	}

	key := cache.Key(emailProvider, "kpis", dateKey(from), dateKey(to))
	if cached, ok := s.cache.Get(key); ok {
		if kpis, ok := cached.(EmailKPIs); ok {
			return OK(kpis)
		}
	}

	ctx = s.logg.WithProvider(ctx, emailProvider)
	total, err := s.api.TotalSubscribers(ctx)
	if err != nil {
		s.logg.Error(ctx, "email total fetch failed", err)
		return Unavailable[EmailKPIs](err.Error())
	}

	recent, err := s.api.ListSubscribers(ctx, dayStart(from), dayStart(to).AddDate(0, 0, 1))
	if err != nil {
		s.logg.Error(ctx, "email range fetch failed", err)
		return Unavailable[EmailKPIs](err.Error())
	}

	kpis := EmailKPIs{
		Subscribers:    total,
		NewSubscribers: int64(len(recent)),
		OpenRate:       NotAvailable,
		ClickRate:      NotAvailable,
		Kpis: []Kpi{
			{Label: "Subscribers", Value: total, Format: FormatNumber},
			{Label: "New subscribers", Value: int64(len(recent)), Format: FormatNumber},
			{Label: "Open rate", Value: NotAvailable},
			{Label: "Click rate", Value: NotAvailable},
		},
	}

	s.cache.Set(key, kpis, s.ttl)
	return OK(kpis)
}

// GrowthSeries returns one entry per day in [from, to]: new subscriptions
// that day plus a running cumulative total across the range.
func (s *EmailService) GrowthSeries(ctx context.Context, from, to time.Time) Result[[]GrowthDay] {
	if s.api == nil {
		return Unavailable[[]GrowthDay]("kit api secret not configured")
	}

	key := cache.Key(emailProvider, "growth", dateKey(from), dateKey(to))
	if cached, ok := s.cache.Get(key); ok {
		if series, ok := cached.([]GrowthDay); ok {
			return OK(series)
		}
	}

	ctx = s.logg.WithProvider(ctx, emailProvider)
	subscribers, err := s.api.ListSubscribers(ctx, dayStart(from), dayStart(to).AddDate(0, 0, 1))
	if err != nil {
		s.logg.Error(ctx, "email range fetch failed", err)
		return Unavailable[[]GrowthDay](err.Error())
	}

	days := daysInRange(from, to)
	series := make([]GrowthDay, len(days))
	index := make(map[string]int, len(days))
	for i, day := range days {
		series[i] = GrowthDay{Date: dateKey(day)}
		index[dateKey(day)] = i
	}

	for _, sub := range subscribers {
		if i, ok := index[dateKey(sub.CreatedAt)]; ok {
			series[i].NewSubscribers++
		}
	}

	var running int64
	for i := range series {
		running += series[i].NewSubscribers
		series[i].Cumulative = running
	}

	s.cache.Set(key, series, s.ttl)
	return OK(series)
}

// TagBreakdown lists every tag with its subscription count, sorted descending
// by count.
func (s *EmailService) TagBreakdown(ctx context.Context) Result[[]TagCount] {
	if s.api == nil {
		return Unavailable[[]TagCount]("kit api secret not configured")
	}

	key := cache.Key(emailProvider, "tags", "all", "all")
	if cached, ok := s.cache.Get(key); ok {
		if tags, ok := cached.([]TagCount); ok {
			return OK(tags)
		}
	}

	ctx = s.logg.WithProvider(ctx, emailProvider)
	tags, err := s.api.ListTags(ctx)
	if err != nil {
		s.logg.Error(ctx, "email tags fetch failed", err)
		return Unavailable[[]TagCount](err.Error())
	}

	counts := make([]TagCount, 0, len(tags))
	for _, tag := range tags {
		count, err := s.api.TagSubscriberCount(ctx, tag.ID)
		if err != nil {
			s.logg.Error(ctx, "email tag count fetch failed", err)
			return Unavailable[[]TagCount](err.Error())
		}
		counts = append(counts, TagCount{Name: tag.Name, Count: count})
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})

	s.cache.Set(key, counts, s.ttl)
	return OK(counts)
}
