package config

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds the whole application configuration.
// It is populated from environment variables (optionally via a .env file).
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	SMTP     SMTPConfig
	Stripe   StripeConfig
	Pricing  PricingConfig
	Jobs     JobConfig
}

type AppConfig struct {
	Name         string `env:"APP_NAME" envDefault:"Cleaning Booking API"`
	Environment  string `env:"APP_ENV" envDefault:"development"` // development, staging, production
	Port         string `env:"APP_PORT" envDefault:"8080"`
	Version      string `env:"APP_VERSION" envDefault:"1.0.0"`
	CompanyEmail string `env:"COMPANY_EMAIL" envDefault:"bookings@cleaning.local"`
	CompanyPhone string `env:"COMPANY_PHONE" envDefault:"+10000000000"`
}

type DatabaseConfig struct {
	Host              string        `env:"DB_HOST" envDefault:"localhost"`
	Port              int           `env:"DB_PORT" envDefault:"5432"`
	User              string        `env:"DB_USER" envDefault:"cleaning"`
	Password          string        `env:"DB_PASSWORD"`
	Name              string        `env:"DB_NAME" envDefault:"cleaning_dev"`
	SSLMode           string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConns          int32         `env:"DB_MAX_CONNS" envDefault:"25"`
	MinConns          int32         `env:"DB_MIN_CONNS" envDefault:"5"`
	MaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"5m"`
	MaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"1m"`
	HealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
	MaxRetries        int           `env:"DB_MAX_RETRIES" envDefault:"5"`
	RetryDelay        time.Duration `env:"DB_RETRY_DELAY" envDefault:"1s"`
	ConnectTimeout    time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"10s"`
}

type RedisConfig struct {
	Host       string        `env:"REDIS_HOST" envDefault:"localhost:6379"`
	Password   string        `env:"REDIS_PASSWORD"`
	DB         int           `env:"REDIS_DB" envDefault:"0"`
	CatalogTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"10m"`
}

type JWTConfig struct {
	Secret            string `env:"JWT_SECRET" envDefault:"your-secret-key-change-in-production"`
	AccessTokenExpiry int    `env:"JWT_ACCESS_EXPIRY" envDefault:"15"` // minutes
}

type SMTPConfig struct {
	Host string `env:"SMTP_HOST" envDefault:"localhost"`
	Port string `env:"SMTP_PORT" envDefault:"1025"`
	From string `env:"SMTP_FROM" envDefault:"noreply@cleaning.local"`
}

type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	AccountID     string `env:"STRIPE_ACCOUNT_ID"`
	UseMock       bool   `env:"PAYMENT_USE_MOCK" envDefault:"false"`

	MaxRetries    uint64        `env:"PAYMENT_MAX_RETRIES" envDefault:"3"`
	RetryInterval time.Duration `env:"PAYMENT_RETRY_INTERVAL" envDefault:"500ms"`
}

// PricingConfig carries the numeric policy of the pricing engine.
type PricingConfig struct {
	TaxRate                  decimal.Decimal `env:"TAX_RATE" envDefault:"0.08875"`
	DurationToleranceMinutes int             `env:"DURATION_TOLERANCE_MINUTES" envDefault:"5"`
	MinDurationMinutes       int             `env:"MIN_DURATION_MINUTES" envDefault:"60"`
	HoursPerMaid             int             `env:"HOURS_PER_MAID" envDefault:"6"`
	ExtraCleanerBase         decimal.Decimal `env:"EXTRA_CLEANER_BASE" envDefault:"40"`
	ExtraCleanerDeep         decimal.Decimal `env:"EXTRA_CLEANER_DEEP" envDefault:"60"`
	ExtraCleanerSuperDeep    decimal.Decimal `env:"EXTRA_CLEANER_SUPER_DEEP" envDefault:"80"`
	FirstTimeDiscountPercent decimal.Decimal `env:"FIRST_TIME_DISCOUNT_PERCENT" envDefault:"0"`
	Currency                 string          `env:"CURRENCY" envDefault:"usd"`
}

type JobConfig struct {
	ReconcileCron     string        `env:"JOB_RECONCILE_CRON" envDefault:"*/15 * * * *"`
	ReconcileMinAge   time.Duration `env:"JOB_RECONCILE_MIN_AGE" envDefault:"5m"`
	ReconcileBatch    int           `env:"JOB_RECONCILE_BATCH" envDefault:"100"`
	NotificationRetry int           `env:"JOB_NOTIFICATION_RETRY" envDefault:"5"`
	Concurrency       int           `env:"WORKER_CONCURRENCY" envDefault:"10"`
	ShutdownTimeout   time.Duration `env:"WORKER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HealthAddr        string        `env:"WORKER_HEALTH_ADDR" envDefault:":9999"`
}

// Load reads .env (when present) and parses the environment into Config.
func Load() (*Config, error) {
	// .env is optional; production uses real environment variables
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{FuncMap: decimalParsers()}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for values that must be set.
func (c *Config) Validate() error {
	if c.Pricing.TaxRate.IsNegative() {
		return errors.New("TAX_RATE must not be negative")
	}
	if c.Pricing.MinDurationMinutes <= 0 {
		return errors.New("MIN_DURATION_MINUTES must be positive")
	}
	if c.Pricing.HoursPerMaid <= 0 {
		return errors.New("HOURS_PER_MAID must be positive")
	}
	if c.Pricing.DurationToleranceMinutes < 0 {
		return errors.New("DURATION_TOLERANCE_MINUTES must not be negative")
	}

	if c.IsProduction() {
		if c.JWT.Secret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be set in production")
		}
		if c.Database.Password == "" {
			return errors.New("DB_PASSWORD must be set in production")
		}
		if c.Stripe.UseMock {
			return errors.New("PAYMENT_USE_MOCK is not allowed in production")
		}
		if c.Stripe.SecretKey == "" {
			return errors.New("STRIPE_SECRET_KEY must be set in production")
		}
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func decimalParsers() map[reflect.Type]env.ParserFunc {
	return map[reflect.Type]env.ParserFunc{
		reflect.TypeOf(decimal.Decimal{}): func(v string) (interface{}, error) {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return nil, fmt.Errorf("invalid decimal %q: %w", v, err)
			}
			return d, nil
		},
	}
}
