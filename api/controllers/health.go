package controllers

import (
	"net/http"

	"github.com/coursekit-app/coursekit-backend/api/responses"
	"github.com/coursekit-app/coursekit-backend/pkg/config"
	"github.com/coursekit-app/coursekit-backend/pkg/db"
	pkgerrors "github.com/coursekit-app/coursekit-backend/pkg/errors"
	"github.com/coursekit-app/coursekit-backend/pkg/logger"
	"github.com/coursekit-app/coursekit-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CourseKit-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set("X-CourseKit-Env", cfg.App.Env)

		checks := map[string]string{}
		healthy := true

		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				checks["db"] = "down"
				healthy = false
			} else {
				checks["db"] = "up"
			}
		}
		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				checks["redis"] = "down"
				healthy = false
			} else {
				checks["redis"] = "up"
			}
		}

		if !healthy {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks)
			responses.WriteError(ctx, logg, w, err)
			return
		}
		checks["status"] = "ready"
		responses.WriteSuccess(w, checks)
	}
}
