package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "markethub"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN  = "MARKETHUB_DB_DSN"
	EnvDBHost = "MARKETHUB_DB_HOST"
	EnvDBUser = "MARKETHUB_DB_USER"
	EnvDBName = "MARKETHUB_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App     AppConfig
	DB      DBConfig
	Gateway GatewayConfig
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
	Env          string `envconfig:"MARKETHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"MARKETHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MARKETHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MARKETHUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MARKETHUB_DB_DSN"`
	Driver string `envconfig:"MARKETHUB_DB_DRIVER" default:"postgres"`

	// AutoMigrate runs pending migrations at API startup in development.
	AutoMigrate bool `envconfig:"MARKETHUB_DB_AUTO_MIGRATE" default:"false"`

	LegacyHost     string `envconfig:"MARKETHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"MARKETHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MARKETHUB_DB_USER"`
	LegacyPassword string `envconfig:"MARKETHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"MARKETHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"MARKETHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MARKETHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MARKETHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MARKETHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MARKETHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// GatewayConfig bounds outbound payment-gateway calls. Timed-out refunds are
// treated as failed-pending and land in the reconciliation queue.
type GatewayConfig struct {
	RefundTimeout time.Duration `envconfig:"MARKETHUB_GATEWAY_REFUND_TIMEOUT" default:"10s"`
	QueryTimeout  time.Duration `envconfig:"MARKETHUB_GATEWAY_QUERY_TIMEOUT" default:"5s"`
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
