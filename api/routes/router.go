package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coursekit-app/coursekit-backend/api/controllers"
	insightcontrollers "github.com/coursekit-app/coursekit-backend/api/controllers/insights"
	snapshotcontrollers "github.com/coursekit-app/coursekit-backend/api/controllers/snapshots"
	"github.com/coursekit-app/coursekit-backend/api/middleware"
	"github.com/coursekit-app/coursekit-backend/pkg/config"
	"github.com/coursekit-app/coursekit-backend/pkg/db"
	"github.com/coursekit-app/coursekit-backend/pkg/logger"
	"github.com/coursekit-app/coursekit-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	insightService insightcontrollers.Service,
	snapshotService snapshotcontrollers.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1/insights", func(r chi.Router) {
		r.Get("/dashboard", insightcontrollers.Dashboard(insightService, logg))
		r.Get("/payments", insightcontrollers.PaymentsDetail(insightService, logg))
		r.Get("/analytics", insightcontrollers.AnalyticsDetail(insightService, logg))
		r.Get("/email", insightcontrollers.EmailDetail(insightService, logg))
		r.Get("/ads", insightcontrollers.AdsDetail(insightService, logg))
		r.Get("/internal", insightcontrollers.InternalDetail(insightService, logg))
	})

	r.Route("/api/v1/snapshots", func(r chi.Router) {
		r.Get("/", snapshotcontrollers.List(snapshotService, logg))
		r.Post("/capture", snapshotcontrollers.Capture(snapshotService, logg))
		r.Post("/backfill", snapshotcontrollers.Backfill(snapshotService, logg))
	})

	return r
}
