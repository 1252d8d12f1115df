package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
)

// Config is the root of the gateway's configuration tree, loaded from
// environment variables (spec.md §9 AMBIENT STACK). Grounded on
// internal/config/config.go's koanf-provider shape.
type Config struct {
	Primary  Primary        `koanf:"primary"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Bank     BankConfig     `koanf:"bank_client"`
	Logger   LoggerConfig   `koanf:"logger"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
	// RequestTimeout bounds how long a handler may run before the
	// timeout middleware responds 503, without cancelling the context
	// passed further down (SPEC_FULL.md §5).
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

// BreakerConfig configures the circuit breaker wrapped around the bank
// client (SPEC_FULL.md §4.1a — has no teacher equivalent).
type BreakerConfig struct {
	FailureThreshold int           `koanf:"failure_threshold" validate:"required"`
	Window           time.Duration `koanf:"window" validate:"required"`
	Cooldown         time.Duration `koanf:"cooldown" validate:"required"`
}

// BankConfig configures the bank simulator transport, retry policy, and
// breaker (spec.md §4.1 defaults: 2s connect timeout, 5s read timeout,
// 3 retries).
type BankConfig struct {
	BaseURL        string        `koanf:"base_url" validate:"required"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"required"`
	ReadTimeout    time.Duration `koanf:"read_timeout" validate:"required"`
	MaxRetries     int           `koanf:"max_retries" validate:"required"`
	RetryBaseDelay time.Duration `koanf:"retry_base_delay" validate:"required"`
	Breaker        BreakerConfig `koanf:"breaker"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

// LoadConfig reads GATEWAY_-prefixed environment variables into Config,
// using "__" as the koanf nesting delimiter (e.g. GATEWAY_BANK_CLIENT__BASE_URL),
// and validates required fields. Grounded on internal/config/config.go's
// LoadConfig almost verbatim.
func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	err := k.Load(env.Provider("GATEWAY_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "GATEWAY_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return cfg, nil
}
