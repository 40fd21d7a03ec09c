package config

// EnvPrefix is intentionally empty: each field names its full COURSEKIT_*
// variable in its envconfig tag.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "COURSEKIT_APP_ENV"
	EnvPort     = "COURSEKIT_APP_PORT"
	EnvRedisURL = "COURSEKIT_REDIS_URL"

	EnvDBDSN  = "COURSEKIT_DB_DSN"
	EnvDBHost = "COURSEKIT_DB_HOST"
	EnvDBUser = "COURSEKIT_DB_USER"
	EnvDBName = "COURSEKIT_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
