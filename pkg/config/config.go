package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	Backend   BackendConfig
	Storage   StorageConfig
	Redis     RedisConfig
	DB        DBConfig
	DevServer DevServerConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Backend.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SALESSAVVY_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"SALESSAVVY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SALESSAVVY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// BackendConfig points the client at the REST API.
type BackendConfig struct {
	BaseURL string        `envconfig:"SALESSAVVY_API_BASE_URL" default:"http://localhost:8080/api"`
	Timeout time.Duration `envconfig:"SALESSAVVY_API_TIMEOUT" default:"15s"`
}

func (b *BackendConfig) validate() error {
	trimmed := strings.TrimRight(strings.TrimSpace(b.BaseURL), "/")
	if trimmed == "" {
		return fmt.Errorf("%s is required", EnvAPIBaseURL)
	}
	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute url, got %q", EnvAPIBaseURL, b.BaseURL)
	}
	b.BaseURL = trimmed
	return nil
}

// StorageConfig selects where the credential token and cached identity live between runs.
type StorageConfig struct {
	Driver    string `envconfig:"SALESSAVVY_STORAGE_DRIVER" default:"file"`
	FilePath  string `envconfig:"SALESSAVVY_STORAGE_FILE" default:".salessavvy/session.json"`
	Namespace string `envconfig:"SALESSAVVY_STORAGE_NAMESPACE" default:"default"`
}

func (s *StorageConfig) validate() error {
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	switch s.Driver {
	case StorageDriverFile:
		if strings.TrimSpace(s.FilePath) == "" {
			return fmt.Errorf("%s is required for the file storage driver", EnvStorageFile)
		}
	case StorageDriverRedis, StorageDriverSQLite, StorageDriverPostgres:
	default:
		return fmt.Errorf("%s must be one of %s, got %q", EnvStorageDriver,
			strings.Join(storageDrivers, ", "), s.Driver)
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"SALESSAVVY_REDIS_URL"`
	Address      string        `envconfig:"SALESSAVVY_REDIS_ADDR"`
	Password     string        `envconfig:"SALESSAVVY_REDIS_PASSWORD"`
	DB           int           `envconfig:"SALESSAVVY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SALESSAVVY_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"SALESSAVVY_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"SALESSAVVY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SALESSAVVY_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"SALESSAVVY_REDIS_WRITE_TIMEOUT" default:"3s"`
	SessionTTL   time.Duration `envconfig:"SALESSAVVY_REDIS_SESSION_TTL" default:"720h"`
}

type DBConfig struct {
	DSN             string        `envconfig:"SALESSAVVY_DB_DSN" default:"file:.salessavvy/session.db"`
	MaxOpenConns    int           `envconfig:"SALESSAVVY_DB_MAX_OPEN_CONNS" default:"4"`
	MaxIdleConns    int           `envconfig:"SALESSAVVY_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"SALESSAVVY_DB_CONN_MAX_LIFETIME" default:"1h"`
}

// DevServerConfig drives the in-memory contract backend.
type DevServerConfig struct {
	Port              string `envconfig:"SALESSAVVY_DEV_PORT" default:"8080"`
	JWTSecret         string `envconfig:"SALESSAVVY_DEV_JWT_SECRET" default:"dev-secret-change-me"`
	JWTIssuer         string `envconfig:"SALESSAVVY_DEV_JWT_ISSUER" default:"salessavvy-dev"`
	ExpirationMinutes int    `envconfig:"SALESSAVVY_DEV_JWT_EXPIRATION_MINUTES" default:"1440"`
	ArgonMemoryKB     int    `envconfig:"SALESSAVVY_DEV_ARGON_MEMORY_KB" default:"19456"`
	ArgonTime         int    `envconfig:"SALESSAVVY_DEV_ARGON_TIME" default:"2"`
	ArgonParallelism  int    `envconfig:"SALESSAVVY_DEV_ARGON_PARALLELISM" default:"1"`
	ArgonSaltLen      int    `envconfig:"SALESSAVVY_DEV_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen       int    `envconfig:"SALESSAVVY_DEV_ARGON_KEY_LEN" default:"32"`
	SeedCatalog       bool   `envconfig:"SALESSAVVY_DEV_SEED_CATALOG" default:"true"`

	AuthRateWindow     time.Duration `envconfig:"SALESSAVVY_DEV_AUTH_RATE_WINDOW" default:"1m"`
	AuthRateIPLimit    int           `envconfig:"SALESSAVVY_DEV_AUTH_RATE_IP_LIMIT" default:"30"`
	AuthRateIdentLimit int           `envconfig:"SALESSAVVY_DEV_AUTH_RATE_IDENT_LIMIT" default:"10"`
	CORSOrigins        []string      `envconfig:"SALESSAVVY_DEV_CORS_ORIGINS" default:"http://localhost:5173,http://localhost:5174,http://localhost:3000"`
	UseRedis           bool          `envconfig:"SALESSAVVY_DEV_USE_REDIS" default:"false"`
	SweepInterval      time.Duration `envconfig:"SALESSAVVY_DEV_SWEEP_INTERVAL" default:"10m"`
}

// TokenTTL returns the access token lifetime minted by the dev server.
func (d DevServerConfig) TokenTTL() time.Duration {
	if d.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(d.ExpirationMinutes) * time.Minute
}
