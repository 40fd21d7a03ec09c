package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Square       SquareConfig
	Plausible    PlausibleConfig
	Kit          KitConfig
	MetaAds      MetaAdsConfig
	Insights     InsightsConfig
	Snapshots    SnapshotsConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"COURSEKIT_APP_ENV" required:"true"`
	Port         string `envconfig:"COURSEKIT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"COURSEKIT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COURSEKIT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"COURSEKIT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"COURSEKIT_DB_DSN"`
	Driver string `envconfig:"COURSEKIT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"COURSEKIT_DB_HOST"`
	LegacyPort     int    `envconfig:"COURSEKIT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"COURSEKIT_DB_USER"`
	LegacyPassword string `envconfig:"COURSEKIT_DB_PASSWORD"`
	LegacyName     string `envconfig:"COURSEKIT_DB_NAME"`
	LegacySSLMode  string `envconfig:"COURSEKIT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COURSEKIT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COURSEKIT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COURSEKIT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COURSEKIT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COURSEKIT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"COURSEKIT_REDIS_ADDR"`
	Password     string        `envconfig:"COURSEKIT_REDIS_PASSWORD"`
	DB           int           `envconfig:"COURSEKIT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COURSEKIT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COURSEKIT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COURSEKIT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COURSEKIT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COURSEKIT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SquareConfig holds the payments provider credentials. An empty access token
// means the provider is not connected; insight services degrade instead of
// refusing to boot.
type SquareConfig struct {
	AccessToken string        `envconfig:"COURSEKIT_SQUARE_ACCESS_TOKEN"`
	Env         string        `envconfig:"COURSEKIT_SQUARE_ENV" default:"sandbox"`
	HTTPTimeout time.Duration `envconfig:"COURSEKIT_SQUARE_HTTP_TIMEOUT" default:"15s"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

// Configured reports whether a Square access token is present.
func (s SquareConfig) Configured() bool {
	return strings.TrimSpace(s.AccessToken) != ""
}

type PlausibleConfig struct {
	APIKey      string        `envconfig:"COURSEKIT_PLAUSIBLE_API_KEY"`
	SiteID      string        `envconfig:"COURSEKIT_PLAUSIBLE_SITE_ID"`
	BaseURL     string        `envconfig:"COURSEKIT_PLAUSIBLE_BASE_URL" default:"https://plausible.io/api/v1"`
	HTTPTimeout time.Duration `envconfig:"COURSEKIT_PLAUSIBLE_HTTP_TIMEOUT" default:"10s"`
}

// Configured reports whether the analytics provider credentials are present.
func (p PlausibleConfig) Configured() bool {
	return strings.TrimSpace(p.APIKey) != "" && strings.TrimSpace(p.SiteID) != ""
}

type KitConfig struct {
	APISecret   string        `envconfig:"COURSEKIT_KIT_API_SECRET"`
	BaseURL     string        `envconfig:"COURSEKIT_KIT_BASE_URL" default:"https://api.convertkit.com/v3"`
	HTTPTimeout time.Duration `envconfig:"COURSEKIT_KIT_HTTP_TIMEOUT" default:"15s"`
}

// Configured reports whether the email provider secret is present.
func (k KitConfig) Configured() bool {
	return strings.TrimSpace(k.APISecret) != ""
}

type MetaAdsConfig struct {
	AccessToken string        `envconfig:"COURSEKIT_META_ADS_ACCESS_TOKEN"`
	AccountID   string        `envconfig:"COURSEKIT_META_ADS_ACCOUNT_ID"`
	BaseURL     string        `envconfig:"COURSEKIT_META_ADS_BASE_URL" default:"https://graph.facebook.com/v21.0"`
	HTTPTimeout time.Duration `envconfig:"COURSEKIT_META_ADS_HTTP_TIMEOUT" default:"15s"`
}

// Configured reports whether the ads provider token and account are present.
func (m MetaAdsConfig) Configured() bool {
	return strings.TrimSpace(m.AccessToken) != "" && strings.TrimSpace(m.AccountID) != ""
}

// InsightsConfig carries the per-provider cache TTLs. Payments and analytics
// data moves quickly so their windows are short; email and ads lists change
// slowly.
type InsightsConfig struct {
	PaymentsTTL  time.Duration `envconfig:"COURSEKIT_INSIGHTS_PAYMENTS_TTL" default:"5m"`
	AnalyticsTTL time.Duration `envconfig:"COURSEKIT_INSIGHTS_ANALYTICS_TTL" default:"5m"`
	EmailTTL     time.Duration `envconfig:"COURSEKIT_INSIGHTS_EMAIL_TTL" default:"30m"`
	AdsTTL       time.Duration `envconfig:"COURSEKIT_INSIGHTS_ADS_TTL" default:"30m"`
	InternalTTL  time.Duration `envconfig:"COURSEKIT_INSIGHTS_INTERNAL_TTL" default:"2m"`
}

type SnapshotsConfig struct {
	CronInterval time.Duration `envconfig:"COURSEKIT_SNAPSHOT_CRON_INTERVAL" default:"24h"`
	LockTTL      time.Duration `envconfig:"COURSEKIT_SNAPSHOT_LOCK_TTL" default:"25h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"COURSEKIT_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
