package insights

import (
	"context"
	"testing"
	"time"

	"github.com/coursekit-app/coursekit-backend/pkg/plausible"
	"github.com/coursekit-app/coursekit-backend/pkg/square"
)

func newTestOrchestrator(payments PaymentsLister, analytics AnalyticsAPI, email EmailAPI, ads AdsAPI) *Orchestrator {
	store := testCache()
	logg := testLogger()
	return NewOrchestrator(
		NewPaymentsService(payments, store, time.Minute, logg),
		NewAnalyticsService(analytics, store, time.Minute, logg),
		NewEmailService(email, store, time.Minute, logg),
		NewAdsService(ads, store, time.Minute, logg),
		NewInternalStatsService(nil, store, time.Minute, logg),
	)
}

func TestDashboardSurvivesUnavailableProviders(t *testing.T) {
	payments := &stubLister{payments: []square.Payment{
		{ID: "p1", Status: "COMPLETED", AmountCents: 29700, CreatedAt: day(2026, 1, 15)},
	}}
	analytics := &stubAnalytics{
		aggregate: &plausible.AggregateStats{Visitors: 100, Pageviews: 250, BounceRate: 40},
		pages:     []plausible.PageVisitors{{Page: "/start/a", Visitors: 10}},
	}
	// email and ads not connected at all
	orch := newTestOrchestrator(payments, analytics, nil, nil)

	summary := orch.Dashboard(context.Background(), day(2026, 1, 1), day(2026, 1, 31))

	if !summary.Payments.IsOK() || summary.Payments.Data.Revenue != 297.00 {
		t.Fatalf("payments should be ok, got %+v", summary.Payments)
	}
	if !summary.RevenueSeries.IsOK() || len(summary.RevenueSeries.Data) != 31 {
		t.Fatalf("revenue series should pre-fill the full month, got %+v", summary.RevenueSeries)
	}
	if !summary.Analytics.IsOK() || summary.Analytics.Data.Visitors != 100 {
		t.Fatalf("analytics should be ok, got %+v", summary.Analytics)
	}
	if !summary.Variants.IsOK() {
		t.Fatalf("variants should be ok, got %+v", summary.Variants)
	}

	if summary.Email.IsOK() || summary.Email.Error == "" {
		t.Fatalf("email should be unavailable with reason, got %+v", summary.Email)
	}
	if summary.Ads.IsOK() || summary.Ads.Error == "" {
		t.Fatalf("ads should be unavailable with reason, got %+v", summary.Ads)
	}
	if summary.Internal.IsOK() {
		t.Fatalf("internal should be unavailable without a database, got %+v", summary.Internal)
	}
}

func TestKPIBundleFanOut(t *testing.T) {
	payments := &stubLister{payments: []square.Payment{
		{ID: "p1", Status: "COMPLETED", AmountCents: 10000, CreatedAt: day(2026, 1, 15)},
	}}
	orch := newTestOrchestrator(payments, nil, nil, nil)

	bundle := orch.KPIs(context.Background(), day(2026, 1, 15), day(2026, 1, 15))

	if !bundle.Payments.IsOK() || bundle.Payments.Data.Revenue != 100.00 {
		t.Fatalf("payments should be ok, got %+v", bundle.Payments)
	}
	for name, unavailable := range map[string]bool{
		"analytics": bundle.Analytics.IsOK(),
		"email":     bundle.Email.IsOK(),
		"ads":       bundle.Ads.IsOK(),
		"internal":  bundle.Internal.IsOK(),
	} {
		if unavailable {
			t.Fatalf("%s should be unavailable", name)
		}
	}
}

func TestDetailCompositesKeepTrueState(t *testing.T) {
	orch := newTestOrchestrator(nil, nil, nil, nil)

	detail := orch.PaymentsDetail(context.Background(), day(2026, 1, 1), day(2026, 1, 2))
	if detail.KPIs.IsOK() || detail.Series.IsOK() {
		t.Fatalf("unconfigured payments must stay unavailable, got %+v", detail)
	}
	if detail.KPIs.Error == "" || detail.Series.Error == "" {
		t.Fatal("unavailable results must carry reasons")
	}
}
