package insights

import (
	"context"
	"net/http"
	"time"

	"github.com/coursekit-app/coursekit-backend/api/responses"
	"github.com/coursekit-app/coursekit-backend/api/validators"
	insightsvc "github.com/coursekit-app/coursekit-backend/internal/insights"
	"github.com/coursekit-app/coursekit-backend/pkg/logger"
)

// Service is the orchestrator surface the insight endpoints consume.
type Service interface {
	Dashboard(ctx context.Context, from, to time.Time) insightsvc.DashboardSummary
	PaymentsDetail(ctx context.Context, from, to time.Time) insightsvc.PaymentsDetail
	AnalyticsDetail(ctx context.Context, from, to time.Time) insightsvc.AnalyticsDetail
	EmailDetail(ctx context.Context, from, to time.Time) insightsvc.EmailDetail
	AdsDetail(ctx context.Context, from, to time.Time) insightsvc.AdsDetail
	InternalDetail(ctx context.Context, from, to time.Time) insightsvc.Result[insightsvc.InternalKPIs]
}

// Dashboard serves the composite summary. Provider outages degrade their own
// section; the endpoint itself always answers 200.
func Dashboard(service Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		from, to, err := validators.ResolveDateRange(r, timeNowUTC())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, service.Dashboard(ctx, from, to))
	}
}

// Detail endpoints require explicit from/to bounds; only the dashboard gets a
// default window.
func PaymentsDetail(service Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		from, to, err := validators.RequireDateRange(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, service.PaymentsDetail(ctx, from, to))
	}
}

func AnalyticsDetail(service Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		from, to, err := validators.RequireDateRange(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, service.AnalyticsDetail(ctx, from, to))
	}
}

func EmailDetail(service Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		from, to, err := validators.RequireDateRange(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, service.EmailDetail(ctx, from, to))
	}
}

func AdsDetail(service Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		from, to, err := validators.RequireDateRange(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, service.AdsDetail(ctx, from, to))
	}
}

func InternalDetail(service Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		from, to, err := validators.RequireDateRange(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, service.InternalDetail(ctx, from, to))
	}
}
