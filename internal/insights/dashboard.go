package insights

import (
	"context"
	"sync"
	"time"
)

// DashboardSummary is the composite read model: every field carries its own
// provider's Result so one outage never hides the rest.
type DashboardSummary struct {
	Payments      Result[PaymentsKPIs]   `json:"payments"`
	RevenueSeries Result[[]RevenueDay]   `json:"revenueSeries"`
	Analytics     Result[AnalyticsKPIs]  `json:"analytics"`
	Variants      Result[[]VariantStats] `json:"variants"`
	Email         Result[EmailKPIs]      `json:"email"`
	Ads           Result[AdsKPIs]        `json:"ads"`
	Internal      Result[InternalKPIs]   `json:"internal"`
}

// KPIBundle carries only the per-provider KPI rollups; it is what the
// snapshot engine consumes for a single day.
type KPIBundle struct {
	Payments  Result[PaymentsKPIs]
	Analytics Result[AnalyticsKPIs]
	Email     Result[EmailKPIs]
	Ads       Result[AdsKPIs]
	Internal  Result[InternalKPIs]
}

// PaymentsDetail is the full payments view for the detail endpoint.
type PaymentsDetail struct {
	KPIs   Result[PaymentsKPIs] `json:"kpis"`
	Series Result[[]RevenueDay] `json:"series"`
}

// AnalyticsDetail is the full traffic view for the detail endpoint.
type AnalyticsDetail struct {
	KPIs     Result[AnalyticsKPIs]  `json:"kpis"`
	Traffic  Result[[]TrafficDay]   `json:"traffic"`
	Variants Result[[]VariantStats] `json:"variants"`
}

// EmailDetail is the full list view for the detail endpoint.
type EmailDetail struct {
	KPIs   Result[EmailKPIs]   `json:"kpis"`
	Growth Result[[]GrowthDay] `json:"growth"`
	Tags   Result[[]TagCount]  `json:"tags"`
}

// AdsDetail is the full ads view for the detail endpoint.
type AdsDetail struct {
	KPIs      Result[AdsKPIs]         `json:"kpis"`
	Campaigns Result[[]CampaignStats] `json:"campaigns"`
}

// Orchestrator fans out to every adapter concurrently and merges the results.
type Orchestrator struct {
	payments  *PaymentsService
	analytics *AnalyticsService
	email     *EmailService
	ads       *AdsService
	internal  *InternalStatsService
}

func NewOrchestrator(
	payments *PaymentsService,
	analytics *AnalyticsService,
	email *EmailService,
	ads *AdsService,
	internal *InternalStatsService,
) *Orchestrator {
	return &Orchestrator{
		payments:  payments,
		analytics: analytics,
		email:     email,
		ads:       ads,
		internal:  internal,
	}
}

// Dashboard runs every composite read concurrently. It never fails as a
// whole; each field degrades independently.
func (o *Orchestrator) Dashboard(ctx context.Context, from, to time.Time) DashboardSummary {
	var summary DashboardSummary
	var wg sync.WaitGroup

	run(&wg, func() { summary.Payments = o.payments.KPIs(ctx, from, to) })
	run(&wg, func() { summary.RevenueSeries = o.payments.DailySeries(ctx, from, to) })
	run(&wg, func() { summary.Analytics = o.analytics.KPIs(ctx, from, to) })
	run(&wg, func() { summary.Variants = o.analytics.VariantComparison(ctx, from, to) })
	run(&wg, func() { summary.Email = o.email.KPIs(ctx, from, to) })
	run(&wg, func() { summary.Ads = o.ads.KPIs(ctx, from, to) })
	run(&wg, func() { summary.Internal = o.internal.KPIs(ctx, from, to) })

	wg.Wait()
	return summary
}

// KPIs fans out only the per-provider rollups. Used by the snapshot engine.
func (o *Orchestrator) KPIs(ctx context.Context, from, to time.Time) KPIBundle {
	var bundle KPIBundle
	var wg sync.WaitGroup

	run(&wg, func() { bundle.Payments = o.payments.KPIs(ctx, from, to) })
	run(&wg, func() { bundle.Analytics = o.analytics.KPIs(ctx, from, to) })
	run(&wg, func() { bundle.Email = o.email.KPIs(ctx, from, to) })
	run(&wg, func() { bundle.Ads = o.ads.KPIs(ctx, from, to) })
	run(&wg, func() { bundle.Internal = o.internal.KPIs(ctx, from, to) })

	wg.Wait()
	return bundle
}

// PaymentsDetail runs the payments reads concurrently.
func (o *Orchestrator) PaymentsDetail(ctx context.Context, from, to time.Time) PaymentsDetail {
	var detail PaymentsDetail
	var wg sync.WaitGroup

	run(&wg, func() { detail.KPIs = o.payments.KPIs(ctx, from, to) })
	run(&wg, func() { detail.Series = o.payments.DailySeries(ctx, from, to) })

	wg.Wait()
	return detail
}

// AnalyticsDetail runs the traffic reads concurrently.
func (o *Orchestrator) AnalyticsDetail(ctx context.Context, from, to time.Time) AnalyticsDetail {
	var detail AnalyticsDetail
	var wg sync.WaitGroup

	run(&wg, func() { detail.KPIs = o.analytics.KPIs(ctx, from, to) })
	run(&wg, func() { detail.Traffic = o.analytics.TrafficSeries(ctx, from, to) })
	run(&wg, func() { detail.Variants = o.analytics.VariantComparison(ctx, from, to) })

	wg.Wait()
	return detail
}

// EmailDetail runs the list reads concurrently.
func (o *Orchestrator) EmailDetail(ctx context.Context, from, to time.Time) EmailDetail {
	var detail EmailDetail
	var wg sync.WaitGroup

	run(&wg, func() { detail.KPIs = o.email.KPIs(ctx, from, to) })
	run(&wg, func() { detail.Growth = o.email.GrowthSeries(ctx, from, to) })
	run(&wg, func() { detail.Tags = o.email.TagBreakdown(ctx) })

	wg.Wait()
	return detail
}

// AdsDetail runs the ads reads concurrently.
func (o *Orchestrator) AdsDetail(ctx context.Context, from, to time.Time) AdsDetail {
	var detail AdsDetail
	var wg sync.WaitGroup

	run(&wg, func() { detail.KPIs = o.ads.KPIs(ctx, from, to) })
	run(&wg, func() { detail.Campaigns = o.ads.Campaigns(ctx, from, to) })

	wg.Wait()
	return detail
}

// InternalDetail returns the internal aggregates.
func (o *Orchestrator) InternalDetail(ctx context.Context, from, to time.Time) Result[InternalKPIs] {
	return o.internal.KPIs(ctx, from, to)
}

func run(wg *sync.WaitGroup, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn()
	}()
}
