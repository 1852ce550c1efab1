package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "stockroom"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Audit        AuditConfig
	Idempotency  IdempotencyConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOCKROOM_APP_ENV" default:"dev"`
	Port         string `envconfig:"STOCKROOM_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOCKROOM_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOCKROOM_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// DBConfig selects the backing store. The engine only needs a store with
// serializable read-modify-write transactions, so either a client-server
// Postgres (DSN) or an embedded file-backed SQLite database will do.
type DBConfig struct {
	Driver string `envconfig:"STOCKROOM_DB_DRIVER" default:"postgres"`
	DSN    string `envconfig:"STOCKROOM_DB_DSN"`
	Path   string `envconfig:"STOCKROOM_DB_PATH" default:"stockroom.db"`

	MaxOpenConns    int           `envconfig:"STOCKROOM_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOCKROOM_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOCKROOM_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOCKROOM_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db *DBConfig) validate() error {
	switch db.Driver {
	case DBDriverPostgres:
		if db.DSN == "" {
			return fmt.Errorf("STOCKROOM_DB_DSN is required for the postgres driver")
		}
	case DBDriverSQLite:
		if db.Path == "" {
			return fmt.Errorf("STOCKROOM_DB_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported db driver %q", db.Driver)
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"STOCKROOM_REDIS_URL"`
	Address      string        `envconfig:"STOCKROOM_REDIS_ADDR"`
	Password     string        `envconfig:"STOCKROOM_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOCKROOM_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOCKROOM_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOCKROOM_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOCKROOM_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOCKROOM_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOCKROOM_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured at all. Idempotent
// replay and the audit lock degrade gracefully without one.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOCKROOM_AUTO_MIGRATE" default:"false"`
}

type AuditConfig struct {
	Interval time.Duration `envconfig:"STOCKROOM_AUDIT_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"STOCKROOM_AUDIT_LOCK_TTL" default:"10m"`
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"STOCKROOM_IDEMPOTENCY_TTL" default:"24h"`
}
