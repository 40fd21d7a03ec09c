package snapshots

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/coursekit-app/coursekit-backend/internal/insights"
	"github.com/coursekit-app/coursekit-backend/pkg/db/models"
	pkgerrors "github.com/coursekit-app/coursekit-backend/pkg/errors"
	"github.com/coursekit-app/coursekit-backend/pkg/logger"
	"github.com/coursekit-app/coursekit-backend/pkg/metrics"
)

// KPIProvider is the orchestrator slice the engine drives once per day.
type KPIProvider interface {
	KPIs(ctx context.Context, from, to time.Time) insights.KPIBundle
}

// Store is the persistence slice the engine writes through.
type Store interface {
	Upsert(ctx context.Context, snapshot *models.DailySnapshot) error
	ListRange(ctx context.Context, from, to time.Time) ([]models.DailySnapshot, error)
}

// CaptureResult reports one day's capture. OK means every provider answered;
// the row is written either way.
type CaptureResult struct {
	Date   string   `json:"date"`
	OK     bool     `json:"ok"`
	Errors []string `json:"errors"`
}

// BackfillResult aggregates a sequential range recompute.
type BackfillResult struct {
	Results  []CaptureResult `json:"results"`
	Captured int             `json:"captured"`
	Failed   int             `json:"failed"`
}

// Service drives the orchestrator for single days and persists the reduced
// snapshot. Partial provider failure degrades that provider's contribution to
// zero instead of aborting the write.
type Service struct {
	provider KPIProvider
	store    Store
	logg     *logger.Logger
	jobs     *metrics.JobMetrics

	now func() time.Time
}

func NewService(provider KPIProvider, store Store, logg *logger.Logger, jobs *metrics.JobMetrics) *Service {
	return &Service{
		provider: provider,
		store:    store,
		logg:     logg,
		jobs:     jobs,
		now:      time.Now,
	}
}

// CaptureYesterday captures the most recent complete UTC day.
func (s *Service) CaptureYesterday(ctx context.Context) (CaptureResult, error) {
	yesterday := dayStart(s.now().UTC().AddDate(0, 0, -1))
	return s.CaptureDay(ctx, yesterday)
}

// CaptureDay runs the orchestrator for [day, day], substitutes zero for every
// unavailable provider, computes the derived metrics, and upserts the row.
// The returned error is non-nil only when the datastore write itself failed.
func (s *Service) CaptureDay(ctx context.Context, day time.Time) (CaptureResult, error) {
	day = dayStart(day)
	date := day.Format(dateLayout)
	ctx = s.logg.WithFields(ctx, map[string]any{"snapshot_date": date})

	bundle := s.provider.KPIs(ctx, day, day)

	var failures error
	note := func(provider, reason string) {
		failures = multierr.Append(failures, fmt.Errorf("%s: %s", provider, reason))
		s.jobs.IncProviderUnavailable(provider)
	}

	snapshot := &models.DailySnapshot{SnapshotDate: day}

	if bundle.Payments.IsOK() {
		snapshot.Revenue = bundle.Payments.Data.Revenue
		snapshot.Purchases = bundle.Payments.Data.Purchases
		snapshot.RefundRate = bundle.Payments.Data.RefundRate
	} else {
		note("payments", bundle.Payments.Error)
	}

	if bundle.Analytics.IsOK() {
		snapshot.Visitors = bundle.Analytics.Data.Visitors
		snapshot.Pageviews = bundle.Analytics.Data.Pageviews
		snapshot.BounceRate = bundle.Analytics.Data.BounceRate
	} else {
		note("analytics", bundle.Analytics.Error)
	}

	if bundle.Email.IsOK() {
		snapshot.Subscribers = bundle.Email.Data.Subscribers
		snapshot.NewSubscribers = bundle.Email.Data.NewSubscribers
	} else {
		note("email", bundle.Email.Error)
	}

	if bundle.Ads.IsOK() {
		snapshot.AdSpend = bundle.Ads.Data.Spend
		snapshot.AdClicks = bundle.Ads.Data.Clicks
		snapshot.AdImpressions = bundle.Ads.Data.Impressions
	} else {
		note("ads", bundle.Ads.Error)
	}

	if bundle.Internal.IsOK() {
		snapshot.TotalUsers = bundle.Internal.Data.TotalUsers
		snapshot.PurchasedUsers = bundle.Internal.Data.PurchasedUsers
		snapshot.AvgTimeToPurchase = bundle.Internal.Data.AvgTimeToPurchaseHours
	} else {
		note("internal", bundle.Internal.Error)
	}

	applyDerivedMetrics(snapshot)

	reasons := make([]string, 0)
	for _, err := range multierr.Errors(failures) {
		reasons = append(reasons, err.Error())
	}
	snapshot.CaptureErrors = strings.Join(reasons, "; ")

	if err := s.store.Upsert(ctx, snapshot); err != nil {
		s.logg.Error(ctx, "snapshot upsert failed", err)
		return CaptureResult{Date: date, OK: false, Errors: append(reasons, err.Error())}, err
	}

	if len(reasons) > 0 {
		s.logg.Warn(ctx, fmt.Sprintf("snapshot captured with %d degraded providers", len(reasons)))
	} else {
		s.logg.Info(ctx, "snapshot captured")
	}

	return CaptureResult{Date: date, OK: len(reasons) == 0, Errors: reasons}, nil
}

// Backfill recomputes every day in the inclusive [from, to] range
// sequentially, ascending. Each day fans out internally; days never run in
// parallel because upstream providers rate-limit per caller.
func (s *Service) Backfill(ctx context.Context, from, to time.Time) (BackfillResult, error) {
	from = dayStart(from)
	to = dayStart(to)
	if to.Before(from) {
		return BackfillResult{}, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to")
	}

	var out BackfillResult
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		result, err := s.CaptureDay(ctx, day)
		if err != nil {
			result.OK = false
		}
		if result.OK {
			out.Captured++
		} else {
			out.Failed++
		}
		out.Results = append(out.Results, result)
	}
	return out, nil
}

// List returns the persisted snapshots inside [from, to], ascending.
func (s *Service) List(ctx context.Context, from, to time.Time) ([]models.DailySnapshot, error) {
	if dayStart(to).Before(dayStart(from)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to")
	}
	return s.store.ListRange(ctx, dayStart(from), dayStart(to))
}

// applyDerivedMetrics computes the cross-provider ratios, reporting 0
// whenever a denominator is 0.
func applyDerivedMetrics(snapshot *models.DailySnapshot) {
	if snapshot.Purchases > 0 {
		snapshot.CPA = snapshot.AdSpend / float64(snapshot.Purchases)
	}
	if snapshot.AdSpend > 0 {
		snapshot.ROAS = snapshot.Revenue / snapshot.AdSpend
	}
	if snapshot.NewSubscribers > 0 {
		snapshot.CPL = snapshot.AdSpend / float64(snapshot.NewSubscribers)
	}
	if snapshot.Visitors > 0 {
		snapshot.SignupRate = float64(snapshot.NewSubscribers) / float64(snapshot.Visitors) * 100
	}
	if snapshot.Subscribers > 0 {
		snapshot.EmailPurchaseRate = float64(snapshot.Purchases) / float64(snapshot.Subscribers) * 100
	}
}

const dateLayout = "2006-01-02"

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
