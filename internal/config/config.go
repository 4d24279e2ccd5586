package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"github.com/diamondsistem/offerpricing/internal/schedule"
)

type Config struct {
	CatalogPath string `env:"CATALOG_PATH" envDefault:"catalog.yaml" validate:"required"`

	TaxRatePercent    float64 `env:"TAX_RATE_PERCENT" envDefault:"7" validate:"gte=0,lte=100"`
	ServiceFeePercent float64 `env:"SERVICE_FEE_PERCENT" envDefault:"18" validate:"gte=0,lte=100"`
	Curfew            string  `env:"CURFEW" envDefault:"02:00" validate:"required"`
	EarliestStart     string  `env:"EARLIEST_START" envDefault:"10:00"`

	DepositAmount        float64 `env:"FINANCING_DEPOSIT" envDefault:"500" validate:"gte=0"`
	SecondPaymentAmount  float64 `env:"FINANCING_SECOND_PAYMENT" envDefault:"1000" validate:"gte=0"`
	MaxFinancingMonths   int     `env:"FINANCING_MAX_MONTHS" envDefault:"24" validate:"gte=1,lte=120"`
	CardSurchargePercent float64 `env:"CARD_SURCHARGE_PERCENT" envDefault:"3.8" validate:"gte=0,lte=100"`
	CommissionPercent    float64 `env:"COMMISSION_PERCENT" envDefault:"10" validate:"gte=0,lte=100"`

	QuoteTTL           time.Duration `env:"QUOTE_TTL" envDefault:"24h" validate:"gt=0"`
	QuoteStoreProvider string        `env:"QUOTE_STORE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory postgres"`
	DatabaseURL        string        `env:"DATABASE_URL" validate:"required_if=QuoteStoreProvider postgres"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	CacheSize             int    `env:"CACHE_SIZE" envDefault:"1024" validate:"gte=1"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis"`

	SentryDSN         string `env:"SENTRY_DSN"`
	SentryEnvironment string `env:"SENTRY_ENVIRONMENT" envDefault:"development"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`

	// AllowedOrigins lists browser origins, besides the API's own host, that may submit quotes.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	if _, err := schedule.ParseTimeOfDay(c.Curfew); err != nil {
		return fmt.Errorf("CURFEW: %w", err)
	}

	if strings.TrimSpace(c.EarliestStart) != "" {
		if _, err := schedule.ParseTimeOfDay(c.EarliestStart); err != nil {
			return fmt.Errorf("EARLIEST_START: %w", err)
		}
	}

	if c.QuoteStoreProvider == "postgres" {
		parsed, err := url.Parse(strings.TrimSpace(c.DatabaseURL))
		if err != nil || (parsed.Scheme != "postgres" && parsed.Scheme != "postgresql") {
			return fmt.Errorf("DATABASE_URL must be a postgres:// URL")
		}
	}

	for _, origin := range c.AllowedOrigins {
		parsed, err := url.Parse(strings.TrimSpace(origin))
		if err != nil || parsed.Host == "" {
			return fmt.Errorf("ALLOWED_ORIGINS: invalid origin %q", origin)
		}
	}

	return nil
}

// CurfewCutoff is the configured curfew on the day after the event starts.
func (c *Config) CurfewCutoff() schedule.Curfew {
	return schedule.NextDayCurfew(schedule.MustParseTimeOfDay(c.Curfew))
}

// EarliestStartTime is nil when no opening time is enforced.
func (c *Config) EarliestStartTime() *schedule.TimeOfDay {
	if strings.TrimSpace(c.EarliestStart) == "" {
		return nil
	}
	t := schedule.MustParseTimeOfDay(c.EarliestStart)
	return &t
}
