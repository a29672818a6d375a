package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "samia"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SAMIA_DB_DSN"
	EnvDBHost = "SAMIA_DB_HOST"
	EnvDBUser = "SAMIA_DB_USER"
	EnvDBName = "SAMIA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	RateLimit    RateLimitConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"SAMIA_APP_ENV" required:"true"`
	Port         string `envconfig:"SAMIA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SAMIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SAMIA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SAMIA_DB_DSN"`
	Driver string `envconfig:"SAMIA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SAMIA_DB_HOST"`
	LegacyPort     int    `envconfig:"SAMIA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SAMIA_DB_USER"`
	LegacyPassword string `envconfig:"SAMIA_DB_PASSWORD"`
	LegacyName     string `envconfig:"SAMIA_DB_NAME"`
	LegacySSLMode  string `envconfig:"SAMIA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SAMIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SAMIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SAMIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SAMIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SAMIA_REDIS_URL"`
	Address      string        `envconfig:"SAMIA_REDIS_ADDR"`
	Password     string        `envconfig:"SAMIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"SAMIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SAMIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SAMIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SAMIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SAMIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SAMIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SAMIA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SAMIA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SAMIA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SAMIA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SAMIA_AUTO_MIGRATE" default:"false"`
}

type RateLimitConfig struct {
	TransitionsPerWindow int64         `envconfig:"SAMIA_RATE_LIMIT_TRANSITIONS" default:"30"`
	Window               time.Duration `envconfig:"SAMIA_RATE_LIMIT_WINDOW" default:"1m"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SAMIA_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SAMIA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SAMIA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"SAMIA_PUBSUB_ORDERS_TOPIC" default:"samia-order-events"`
	OrdersSubscription string `envconfig:"SAMIA_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SAMIA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SAMIA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SAMIA_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
