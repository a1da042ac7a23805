package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Store selects the persistence backend: "postgres" or "memory".
	Store       string   `env:"STORE" envDefault:"postgres"`
	DatabaseURL string   `env:"DATABASE_URL"`
	Postgres    Postgres `envPrefix:"PSQL_"`
	DBMaxConns  int      `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`

	JWTSecret           string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTExpiresInSeconds int64  `env:"JWT_EXPIRES_IN_SECONDS" envDefault:"86400"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	OTELEndpoint string `env:"OTEL_EXPORTER_ENDPOINT"`
	ServiceName  string `env:"SERVICE_NAME" envDefault:"venue-permits"`

	MaxDocumentBytes int64 `env:"MAX_DOCUMENT_BYTES" envDefault:"10485760"`
}

// Postgres holds the connection parts used when DATABASE_URL is unset.
type Postgres struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD" envDefault:"postgres"`
	DBName   string `env:"DB_NAME" envDefault:"venue_permits"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = cfg.Postgres.URL()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (p Postgres) URL() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   p.Host + ":" + p.Port,
		Path:   p.DBName,
	}
	q := u.Query()
	q.Set("sslmode", p.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Config) Validate() error {
	switch c.Store {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unsupported store %q", c.Store)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.IsProduction() && c.JWTSecret == "dev-secret-change-me" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
