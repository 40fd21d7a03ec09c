package insights

import (
	"context"
	"time"

	"github.com/coursekit-app/coursekit-backend/pkg/cache"
	"github.com/coursekit-app/coursekit-backend/pkg/logger"
	"github.com/coursekit-app/coursekit-backend/pkg/metaads"
)

const adsProvider = "metaads"

// Campaign status classification.
const (
	CampaignActive    = "active"
	CampaignPaused    = "paused"
	CampaignCompleted = "completed"
)

// AdsAPI is the slice of the Meta Marketing client the adapter consumes.
type AdsAPI interface {
	AccountInsights(ctx context.Context, from, to string) (*metaads.Insights, error)
	ListCampaigns(ctx context.Context) ([]metaads.Campaign, error)
	CampaignDailyInsights(ctx context.Context, campaignID, from, to string) ([]metaads.DayInsights, error)
}

// AdsKPIs is the account-level rollup for the range.
type AdsKPIs struct {
	Spend       float64 `json:"spend"`
	Clicks      int64   `json:"clicks"`
	Impressions int64   `json:"impressions"`
	CTR         float64 `json:"ctr"`
	CPC         float64 `json:"cpc"`
	Kpis        []Kpi   `json:"kpis"`
}

// CampaignStats is one campaign with its daily spend sparkline and status.
type CampaignStats struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Spend     float64   `json:"spend"`
	Sparkline []float64 `json:"sparkline"`
}

// AdsService aggregates Meta ad insights. A nil api means the provider is not
// connected.
type AdsService struct {
	api   AdsAPI
	cache *cache.Cache
	ttl   time.Duration
	logg  *logger.Logger
}

func NewAdsService(api AdsAPI, store *cache.Cache, ttl time.Duration, logg *logger.Logger) *AdsService {
	return &AdsService{api: api, cache: store, ttl: ttl, logg: logg}
}

// KPIs returns spend, CTR, and CPC for [from, to]. CTR and CPC report 0 when
// their denominator is 0.
func (s *AdsService) KPIs(ctx context.Context, from, to time.Time) Result[AdsKPIs] {
	if s.api == nil {
		return Unavailable[AdsKPIs]("meta ads credentials not configured")
	}

	key := cache.Key(adsProvider, "kpis", dateKey(from), dateKey(to))
	if cached, ok := s.cache.Get(key); ok {
		if kpis, ok := cached.(AdsKPIs); ok {
			return OK(kpis)
		}
	}

	ctx = s.logg.WithProvider(ctx, adsProvider)
	insights, err := s.api.AccountInsights(ctx, dateKey(from), dateKey(to))
	if err != nil {
		s.logg.Error(ctx, "ads insights fetch failed", err)
		return Unavailable[AdsKPIs](err.Error())
	}

	ctr := 0.0
	if insights.Impressions > 0 {
		ctr = float64(insights.Clicks) / float64(insights.Impressions) * 100
	}
	cpc := 0.0
	if insights.Clicks > 0 {
		cpc = insights.Spend / float64(insights.Clicks)
	}

	kpis := AdsKPIs{
		Spend:       insights.Spend,
		Clicks:      insights.Clicks,
		Impressions: insights.Impressions,
		CTR:         ctr,
		CPC:         cpc,
		Kpis: []Kpi{
			{Label: "Ad spend", Value: insights.Spend, Format: FormatCurrency},
			{Label: "CTR", Value: ctr, Format: FormatPercent},
			{Label: "CPC", Value: cpc, Format: FormatCurrency},
		},
	}

	s.cache.Set(key, kpis, s.ttl)
	return OK(kpis)
}

// Campaigns lists every campaign with total spend, a daily spend sparkline,
// and a status derived from the spend pattern: spending on the most recent
// day means active, no spend at all means paused, historical spend that has
// stopped means completed.
func (s *AdsService) Campaigns(ctx context.Context, from, to time.Time) Result[[]CampaignStats] {
	if s.api == nil {
		return Unavailable[[]CampaignStats]("meta ads credentials not configured")
	}

	key := cache.Key(adsProvider, "campaigns", dateKey(from), dateKey(to))
	if cached, ok := s.cache.Get(key); ok {
		if campaigns, ok := cached.([]CampaignStats); ok {
			return OK(campaigns)
		}
	}

	ctx = s.logg.WithProvider(ctx, adsProvider)
	campaigns, err := s.api.ListCampaigns(ctx)
	if err != nil {
		s.logg.Error(ctx, "ads campaign list failed", err)
		return Unavailable[[]CampaignStats](err.Error())
	}

	stats := make([]CampaignStats, 0, len(campaigns))
	for _, campaign := range campaigns {
		days, err := s.api.CampaignDailyInsights(ctx, campaign.ID, dateKey(from), dateKey(to))
		if err != nil {
			s.logg.Error(ctx, "ads campaign insights failed", err)
			return Unavailable[[]CampaignStats](err.Error())
		}

		entry := CampaignStats{
			ID:        campaign.ID,
			Name:      campaign.Name,
			Sparkline: make([]float64, 0, len(days)),
		}
		for _, day := range days {
			entry.Spend += day.Spend
			entry.Sparkline = append(entry.Sparkline, day.Spend)
		}
		entry.Status = classifyCampaign(entry.Sparkline)
		stats = append(stats, entry)
	}

	s.cache.Set(key, stats, s.ttl)
	return OK(stats)
}

func classifyCampaign(dailySpend []float64) string {
	if len(dailySpend) > 0 && dailySpend[len(dailySpend)-1] > 0 {
		return CampaignActive
	}
	for _, spend := range dailySpend {
		if spend > 0 {
			return CampaignCompleted
		}
	}
	return CampaignPaused
}
