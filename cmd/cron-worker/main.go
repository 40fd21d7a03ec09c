package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/coursekit-app/coursekit-backend/internal/cron"
	"github.com/coursekit-app/coursekit-backend/internal/insights"
	"github.com/coursekit-app/coursekit-backend/internal/snapshots"
	"github.com/coursekit-app/coursekit-backend/pkg/cache"
	"github.com/coursekit-app/coursekit-backend/pkg/config"
	"github.com/coursekit-app/coursekit-backend/pkg/db"
	"github.com/coursekit-app/coursekit-backend/pkg/kit"
	"github.com/coursekit-app/coursekit-backend/pkg/logger"
	"github.com/coursekit-app/coursekit-backend/pkg/metaads"
	"github.com/coursekit-app/coursekit-backend/pkg/metrics"
	"github.com/coursekit-app/coursekit-backend/pkg/migrate"
	"github.com/coursekit-app/coursekit-backend/pkg/plausible"
	"github.com/coursekit-app/coursekit-backend/pkg/redis"
	"github.com/coursekit-app/coursekit-backend/pkg/square"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)

	orchestrator, err := buildOrchestrator(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build insight services", err)
		os.Exit(1)
	}
	snapshotService := snapshots.NewService(orchestrator, snapshots.NewRepo(dbClient.DB()), logg, jobMetrics)

	captureJob, err := cron.NewSnapshotCaptureJob(cron.SnapshotCaptureJobParams{
		Logger:   logg,
		Capturer: snapshotService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create snapshot job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+cfg.App.Env), cfg.Snapshots.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(captureJob),
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Snapshots.CronInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// buildOrchestrator mirrors the API wiring: providers without credentials
// stay nil and report Unavailable when the capture runs.
func buildOrchestrator(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*insights.Orchestrator, error) {
	store := cache.New()

	var paymentsAPI insights.PaymentsLister
	if cfg.Square.Configured() {
		client, err := square.NewClient(context.Background(), cfg.Square, logg)
		if err != nil {
			return nil, err
		}
		paymentsAPI = client
	}

	var analyticsAPI insights.AnalyticsAPI
	if cfg.Plausible.Configured() {
		client, err := plausible.NewClient(cfg.Plausible.APIKey, cfg.Plausible.SiteID,
			plausible.WithBaseURL(cfg.Plausible.BaseURL),
			plausible.WithHTTPClient(&http.Client{Timeout: cfg.Plausible.HTTPTimeout}))
		if err != nil {
			return nil, err
		}
		analyticsAPI = client
	}

	var emailAPI insights.EmailAPI
	if cfg.Kit.Configured() {
		client, err := kit.NewClient(cfg.Kit.APISecret,
			kit.WithBaseURL(cfg.Kit.BaseURL),
			kit.WithHTTPClient(&http.Client{Timeout: cfg.Kit.HTTPTimeout}))
		if err != nil {
			return nil, err
		}
		emailAPI = client
	}

	var adsAPI insights.AdsAPI
	if cfg.MetaAds.Configured() {
		client, err := metaads.NewClient(cfg.MetaAds.AccessToken, cfg.MetaAds.AccountID,
			metaads.WithBaseURL(cfg.MetaAds.BaseURL),
			metaads.WithHTTPClient(&http.Client{Timeout: cfg.MetaAds.HTTPTimeout}))
		if err != nil {
			return nil, err
		}
		adsAPI = client
	}

	return insights.NewOrchestrator(
		insights.NewPaymentsService(paymentsAPI, store, cfg.Insights.PaymentsTTL, logg),
		insights.NewAnalyticsService(analyticsAPI, store, cfg.Insights.AnalyticsTTL, logg),
		insights.NewEmailService(emailAPI, store, cfg.Insights.EmailTTL, logg),
		insights.NewAdsService(adsAPI, store, cfg.Insights.AdsTTL, logg),
		insights.NewInternalStatsService(dbClient.DB(), store, cfg.Insights.InternalTTL, logg),
	), nil
}
