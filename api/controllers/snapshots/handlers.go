package snapshots

import (
	"context"
	"net/http"
	"time"

	"github.com/coursekit-app/coursekit-backend/api/responses"
	"github.com/coursekit-app/coursekit-backend/api/validators"
	snapshotsvc "github.com/coursekit-app/coursekit-backend/internal/snapshots"
	"github.com/coursekit-app/coursekit-backend/pkg/db/models"
	pkgerrors "github.com/coursekit-app/coursekit-backend/pkg/errors"
	"github.com/coursekit-app/coursekit-backend/pkg/logger"
)

var timeNowUTC = func() time.Time {
	return time.Now().UTC()
}

// Service is the snapshot engine surface the endpoints consume.
type Service interface {
	CaptureDay(ctx context.Context, day time.Time) (snapshotsvc.CaptureResult, error)
	Backfill(ctx context.Context, from, to time.Time) (snapshotsvc.BackfillResult, error)
	List(ctx context.Context, from, to time.Time) ([]models.DailySnapshot, error)
}

type captureRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type backfillRequest struct {
	From string `json:"from" validate:"required,datetime=2006-01-02"`
	To   string `json:"to" validate:"required,datetime=2006-01-02"`
}

// Capture triggers a single-day capture. Without a date in the body it
// captures the most recent complete UTC day.
func Capture(service Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req captureRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		day := timeNowUTC().AddDate(0, 0, -1)
		if req.Date != "" {
			parsed, err := validators.ParseDate(req.Date)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid date"))
				return
			}
			day = parsed
		}

		result, err := service.CaptureDay(ctx, day)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Backfill recomputes every day in the inclusive range named by the body.
func Backfill(service Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req backfillRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		from, err := validators.ParseDate(req.From)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid from date"))
			return
		}
		to, err := validators.ParseDate(req.To)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid to date"))
			return
		}

		result, err := service.Backfill(ctx, from, to)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// List returns the persisted snapshots for the requested range.
func List(service Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		from, to, err := validators.ResolveDateRange(r, timeNowUTC())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, err := service.List(ctx, from, to)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if rows == nil {
			rows = []models.DailySnapshot{}
		}
		responses.WriteSuccess(w, rows)
	}
}
