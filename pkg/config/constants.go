package config

const (
	EnvPrefix = "SALESSAVVY"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv        = "SALESSAVVY_APP_ENV"
	EnvLogLevel      = "SALESSAVVY_LOG_LEVEL"
	EnvAPIBaseURL    = "SALESSAVVY_API_BASE_URL"
	EnvAPITimeout    = "SALESSAVVY_API_TIMEOUT"
	EnvStorageDriver = "SALESSAVVY_STORAGE_DRIVER"
	EnvStorageFile   = "SALESSAVVY_STORAGE_FILE"
	EnvRedisURL      = "SALESSAVVY_REDIS_URL"
	EnvDBDSN         = "SALESSAVVY_DB_DSN"
	EnvDevPort       = "SALESSAVVY_DEV_PORT"
	EnvDevJWTSecret  = "SALESSAVVY_DEV_JWT_SECRET"

	StorageDriverFile     = "file"
	StorageDriverRedis    = "redis"
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
)

var storageDrivers = []string{
	StorageDriverFile,
	StorageDriverRedis,
	StorageDriverSQLite,
	StorageDriverPostgres,
}
