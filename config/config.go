// Package config loads service configuration from environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"8081"`
	// ProfilingAddr enables net/http/pprof when set.
	ProfilingAddr string `env:"PROFILING_ADDR"`
	LogVerbosity  int    `env:"LOG_VERBOSITY" envDefault:"0"`
	LogCaller     bool   `env:"LOG_CALLER" envDefault:"false"`
	ZipkinURL     string `env:"ZIPKIN_URL"`
	ServiceName   string `env:"SERVICE_NAME" envDefault:"account-aggregator"`

	Postgres Postgres `envPrefix:"POSTGRES_"`
	// Serializer is the payload format of persisted events: msgpack or json.
	Serializer string `env:"EVENT_SERIALIZER" envDefault:"msgpack"`
}

type Postgres struct {
	Host         string `env:"HOST"`
	Port         int    `env:"PORT" envDefault:"5432"`
	User         string `env:"USER"`
	Password     string `env:"PASSWORD"`
	DB           string `env:"DB" envDefault:"event_store"`
	SSLMode      string `env:"SSLMODE" envDefault:"disable"`
	MaxOpenConns int    `env:"MAX_OPEN_CONNS" envDefault:"5"`
}

// Enabled reports whether a PostgreSQL event store is configured.
func (p Postgres) Enabled() bool {
	return p.Host != ""
}

func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host,
		p.Port,
		p.User,
		p.Password,
		p.DB,
		p.SSLMode,
	)
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Serializer {
	case "msgpack", "json":
	default:
		return fmt.Errorf("unsupported EVENT_SERIALIZER %q", c.Serializer)
	}
	if c.Postgres.Enabled() && (c.Postgres.User == "" || c.Postgres.Password == "") {
		return fmt.Errorf("POSTGRES_USER and POSTGRES_PASSWORD are required with POSTGRES_HOST")
	}
	return nil
}
