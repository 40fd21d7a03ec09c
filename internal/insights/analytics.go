package insights

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/coursekit-app/coursekit-backend/pkg/cache"
	"github.com/coursekit-app/coursekit-backend/pkg/logger"
	"github.com/coursekit-app/coursekit-backend/pkg/plausible"
)

const analyticsProvider = "plausible"

// Traffic categories for the daily sessions series.
const (
	TrafficDirect   = "direct"
	TrafficOrganic  = "organic"
	TrafficAds      = "ads"
	TrafficSocial   = "social"
	TrafficReferral = "referral"
)

// Landing variant path prefixes. Each variant has its own signup confirmation
// path so conversions can be attributed without a goals API.
var variantPaths = []struct {
	Variant string
	Landing string
	Signup  string
}{
	{Variant: "A", Landing: "/start/a", Signup: "/signup/a"},
	{Variant: "B", Landing: "/start/b", Signup: "/signup/b"},
	{Variant: "C", Landing: "/start/c", Signup: "/signup/c"},
}

// sourceCategories classifies Plausible visit sources. Anything unlisted
// falls back to referral.
var sourceCategories = map[string]string{
	"Direct / None": TrafficDirect,
	"Google":        TrafficOrganic,
	"Bing":          TrafficOrganic,
	"DuckDuckGo":    TrafficOrganic,
	"Yahoo!":        TrafficOrganic,
	"Google Ads":    TrafficAds,
	"Facebook Ads":  TrafficAds,
	"Meta Ads":      TrafficAds,
	"Facebook":      TrafficSocial,
	"Instagram":     TrafficSocial,
	"Twitter":       TrafficSocial,
	"X":             TrafficSocial,
	"LinkedIn":      TrafficSocial,
	"YouTube":       TrafficSocial,
	"TikTok":        TrafficSocial,
	"Reddit":        TrafficSocial,
}

// AnalyticsAPI is the slice of the Plausible client the adapter consumes.
type AnalyticsAPI interface {
	Aggregate(ctx context.Context, from, to string) (*plausible.AggregateStats, error)
	Timeseries(ctx context.Context, from, to string) ([]plausible.DayStats, error)
	SourceBreakdown(ctx context.Context, from, to string) ([]plausible.SourceVisitors, error)
	PageBreakdown(ctx context.Context, from, to string) ([]plausible.PageVisitors, error)
}

// AnalyticsKPIs is the range rollup for web traffic.
type AnalyticsKPIs struct {
	Visitors   int64   `json:"visitors"`
	Pageviews  int64   `json:"pageviews"`
	BounceRate float64 `json:"bounceRate"`
	Kpis       []Kpi   `json:"kpis"`
}

// TrafficDay is one day of visitors bucketed by traffic category.
type TrafficDay struct {
	Date       string           `json:"date"`
	Categories map[string]int64 `json:"categories"`
}

// VariantStats compares one landing page variant.
type VariantStats struct {
	Variant        string  `json:"variant"`
	Visitors       int64   `json:"visitors"`
	Signups        int64   `json:"signups"`
	ConversionRate float64 `json:"conversionRate"`
}

// AnalyticsService aggregates Plausible stats. A nil api means the provider
// is not connected.
type AnalyticsService struct {
	api   AnalyticsAPI
	cache *cache.Cache
	ttl   time.Duration
	logg  *logger.Logger
}

func NewAnalyticsService(api AnalyticsAPI, store *cache.Cache, ttl time.Duration, logg *logger.Logger) *AnalyticsService {
	return &AnalyticsService{api: api, cache: store, ttl: ttl, logg: logg}
}

// KPIs returns visitors, pageviews, and bounce rate for [from, to].
func (s *AnalyticsService) KPIs(ctx context.Context, from, to time.Time) Result[AnalyticsKPIs] {
	if s.api == nil {
		return Unavailable[AnalyticsKPIs]("plausible api key not configured")
	}

	key := cache.Key(analyticsProvider, "kpis", dateKey(from), dateKey(to))
	if cached, ok := s.cache.Get(key); ok {
		if kpis, ok := cached.(AnalyticsKPIs); ok {
			return OK(kpis)
		}
	}

	ctx = s.logg.WithProvider(ctx, analyticsProvider)
	stats, err := s.api.Aggregate(ctx, dateKey(from), dateKey(to))
	if err != nil {
		s.logg.Error(ctx, "analytics aggregate failed", err)
		return Unavailable[AnalyticsKPIs](err.Error())
	}

	series, err := s.api.Timeseries(ctx, dateKey(from), dateKey(to))
	if err != nil {
		s.logg.Error(ctx, "analytics timeseries failed", err)
		return Unavailable[AnalyticsKPIs](err.Error())
	}
	visitorSpark := make([]float64, 0, len(series))
	pageviewSpark := make([]float64, 0, len(series))
	for _, dayStats := range series {
		visitorSpark = append(visitorSpark, float64(dayStats.Visitors))
		pageviewSpark = append(pageviewSpark, float64(dayStats.Pageviews))
	}

	kpis := AnalyticsKPIs{
		Visitors:   stats.Visitors,
		Pageviews:  stats.Pageviews,
		BounceRate: stats.BounceRate,
		Kpis: []Kpi{
			{Label: "Visitors", Value: stats.Visitors, Format: FormatNumber, Sparkline: visitorSpark},
			{Label: "Pageviews", Value: stats.Pageviews, Format: FormatNumber, Sparkline: pageviewSpark},
			{Label: "Bounce rate", Value: stats.BounceRate, Format: FormatPercent},
		},
	}

	s.cache.Set(key, kpis, s.ttl)
	return OK(kpis)
}

// TrafficSeries returns one entry per day in [from, to], each bucketing that
// day's visitors by traffic category. Sources outside the lookup table count
// as referral.
func (s *AnalyticsService) TrafficSeries(ctx context.Context, from, to time.Time) Result[[]TrafficDay] {
	if s.api == nil {
		return Unavailable[[]TrafficDay]("plausible api key not configured")
	}

	key := cache.Key(analyticsProvider, "traffic", dateKey(from), dateKey(to))
	if cached, ok := s.cache.Get(key); ok {
		if series, ok := cached.([]TrafficDay); ok {
			return OK(series)
		}
	}

	ctx = s.logg.WithProvider(ctx, analyticsProvider)
	days := daysInRange(from, to)
	series := make([]TrafficDay, 0, len(days))
	for _, day := range days {
		date := dateKey(day)
		sources, err := s.api.SourceBreakdown(ctx, date, date)
		if err != nil {
			s.logg.Error(ctx, "analytics source breakdown failed", err)
			return Unavailable[[]TrafficDay](err.Error())
		}

		buckets := map[string]int64{
			TrafficDirect:   0,
			TrafficOrganic:  0,
			TrafficAds:      0,
			TrafficSocial:   0,
			TrafficReferral: 0,
		}
		for _, src := range sources {
			buckets[classifySource(src.Source)] += src.Visitors
		}
		series = append(series, TrafficDay{Date: date, Categories: buckets})
	}

	s.cache.Set(key, series, s.ttl)
	return OK(series)
}

// VariantComparison reports visitors, signups, and conversion per landing
// variant. Conversion = signups/visitors*100 rounded to one decimal, 0 when
// the variant had no visitors.
func (s *AnalyticsService) VariantComparison(ctx context.Context, from, to time.Time) Result[[]VariantStats] {
	if s.api == nil {
		return Unavailable[[]VariantStats]("plausible api key not configured")
	}

	key := cache.Key(analyticsProvider, "variants", dateKey(from), dateKey(to))
	if cached, ok := s.cache.Get(key); ok {
		if variants, ok := cached.([]VariantStats); ok {
			return OK(variants)
		}
	}

	ctx = s.logg.WithProvider(ctx, analyticsProvider)
	pages, err := s.api.PageBreakdown(ctx, dateKey(from), dateKey(to))
	if err != nil {
		s.logg.Error(ctx, "analytics page breakdown failed", err)
		return Unavailable[[]VariantStats](err.Error())
	}

	variants := make([]VariantStats, 0, len(variantPaths))
	for _, vp := range variantPaths {
		stats := VariantStats{Variant: vp.Variant}
		for _, page := range pages {
			switch {
			case strings.HasPrefix(page.Page, vp.Landing):
				stats.Visitors += page.Visitors
			case strings.HasPrefix(page.Page, vp.Signup):
				stats.Signups += page.Visitors
			}
		}
		if stats.Visitors > 0 {
			stats.ConversionRate = round1(float64(stats.Signups) / float64(stats.Visitors) * 100)
		}
		variants = append(variants, stats)
	}

	s.cache.Set(key, variants, s.ttl)
	return OK(variants)
}

func classifySource(source string) string {
	if category, ok := sourceCategories[source]; ok {
		return category
	}
	return TrafficReferral
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
