package insights

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coursekit-app/coursekit-backend/pkg/cache"
	"github.com/coursekit-app/coursekit-backend/pkg/logger"
	"github.com/coursekit-app/coursekit-backend/pkg/square"
)

const paymentsProvider = "square"

// PaymentsLister is the slice of the Square client the payments adapter needs.
type PaymentsLister interface {
	ListPayments(ctx context.Context, from, to time.Time) ([]square.Payment, error)
}

// PaymentsKPIs is the range rollup for the payments provider.
type PaymentsKPIs struct {
	Revenue    float64 `json:"revenue"`
	Purchases  int64   `json:"purchases"`
	RefundRate float64 `json:"refundRate"`
	Kpis       []Kpi   `json:"kpis"`
}

// RevenueDay is one pre-filled entry of the daily revenue series.
type RevenueDay struct {
	Date      string  `json:"date"`
	Revenue   float64 `json:"revenue"`
	Purchases int64   `json:"purchases"`
}

// PaymentsService aggregates Square payments into dashboard metrics. A nil
// lister means the provider is not connected; every operation then reports
// Unavailable without touching the network.
type PaymentsService struct {
	lister PaymentsLister
	cache  *cache.Cache
	ttl    time.Duration
	logg   *logger.Logger
}

func NewPaymentsService(lister PaymentsLister, store *cache.Cache, ttl time.Duration, logg *logger.Logger) *PaymentsService {
	return &PaymentsService{lister: lister, cache: store, ttl: ttl, logg: logg}
}

// KPIs returns revenue, purchase count, and refund rate for [from, to].
func (s *PaymentsService) KPIs(ctx context.Context, from, to time.Time) Result[PaymentsKPIs] {
	if s.lister == nil {
		return Unavailable[PaymentsKPIs]("square access token not configured")
	}

	key := cache.Key(paymentsProvider, "kpis", dateKey(from), dateKey(to))
	if cached, ok := s.cache.Get(key); ok {
		if kpis, ok := cached.(PaymentsKPIs); ok {
			return OK(kpis)
		}
	}

	payments, err := s.fetch(ctx, from, to)
	if err != nil {
		return Unavailable[PaymentsKPIs](err.Error())
	}

	var revenueCents int64
	var purchases, refunded int64
	for _, p := range payments {
		if !p.Completed() {
			continue
		}
		purchases++
		revenueCents += p.AmountCents
		if p.RefundedCents > 0 {
			refunded++
		}
	}

	revenue := dollars(revenueCents)
	refundRate := 0.0
	if purchases > 0 {
		refundRate = float64(refunded) / float64(purchases) * 100
	}

	kpis := PaymentsKPIs{
		Revenue:    revenue,
		Purchases:  purchases,
		RefundRate: refundRate,
		Kpis: []Kpi{
			{Label: "Revenue", Value: revenue, Format: FormatCurrency},
			{Label: "Purchases", Value: purchases, Format: FormatNumber},
			{Label: "Refund rate", Value: refundRate, Format: FormatPercent},
		},
	}

	s.cache.Set(key, kpis, s.ttl)
	return OK(kpis)
}

// DailySeries buckets completed payments by UTC calendar day, pre-filling
// every day in range with zeros so the output has exactly one ascending entry
// per day.
func (s *PaymentsService) DailySeries(ctx context.Context, from, to time.Time) Result[[]RevenueDay] {
	if s.lister == nil {
		return Unavailable[[]RevenueDay]("square access token not configured")
	}

	key := cache.Key(paymentsProvider, "series", dateKey(from), dateKey(to))
	if cached, ok := s.cache.Get(key); ok {
		if series, ok := cached.([]RevenueDay); ok {
			return OK(series)
		}
	}

	payments, err := s.fetch(ctx, from, to)
	if err != nil {
		return Unavailable[[]RevenueDay](err.Error())
	}

	days := daysInRange(from, to)
	series := make([]RevenueDay, len(days))
	index := make(map[string]int, len(days))
	for i, day := range days {
		series[i] = RevenueDay{Date: dateKey(day)}
		index[dateKey(day)] = i
	}

	cents := make([]int64, len(days))
	for _, p := range payments {
		if !p.Completed() {
			continue
		}
		i, ok := index[dateKey(p.CreatedAt)]
		if !ok {
			continue
		}
		cents[i] += p.AmountCents
		series[i].Purchases++
	}
	for i := range series {
		series[i].Revenue = dollars(cents[i])
	}

	s.cache.Set(key, series, s.ttl)
	return OK(series)
}

func (s *PaymentsService) fetch(ctx context.Context, from, to time.Time) ([]square.Payment, error) {
	ctx = s.logg.WithProvider(ctx, paymentsProvider)
	// inclusive day range, exclusive upper instant
	payments, err := s.lister.ListPayments(ctx, dayStart(from), dayStart(to).AddDate(0, 0, 1))
	if err != nil {
		s.logg.Error(ctx, "payments fetch failed", err)
		return nil, err
	}
	return payments, nil
}

func dollars(cents int64) float64 {
	value, _ := decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).Float64()
	return value
}
