package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/coursekit-app/coursekit-backend/api/routes"
	"github.com/coursekit-app/coursekit-backend/internal/insights"
	"github.com/coursekit-app/coursekit-backend/internal/snapshots"
	"github.com/coursekit-app/coursekit-backend/pkg/cache"
	"github.com/coursekit-app/coursekit-backend/pkg/config"
	"github.com/coursekit-app/coursekit-backend/pkg/db"
	"github.com/coursekit-app/coursekit-backend/pkg/kit"
	"github.com/coursekit-app/coursekit-backend/pkg/logger"
	"github.com/coursekit-app/coursekit-backend/pkg/metaads"
	"github.com/coursekit-app/coursekit-backend/pkg/migrate"
	"github.com/coursekit-app/coursekit-backend/pkg/plausible"
	"github.com/coursekit-app/coursekit-backend/pkg/redis"
	"github.com/coursekit-app/coursekit-backend/pkg/square"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	orchestrator, err := buildOrchestrator(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build insight services", err)
		os.Exit(1)
	}
	snapshotService := snapshots.NewService(orchestrator, snapshots.NewRepo(dbClient.DB()), logg, nil)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, orchestrator, snapshotService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// buildOrchestrator wires every provider that has credentials. Unconfigured
// providers get a nil adapter and degrade to Unavailable at read time.
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
