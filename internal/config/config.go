package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	EnvDevelopment = "development"

	GeocoderNominatim = "nominatim"
	GeocoderGoogle    = "google"

	CacheMemory   = "memory"
	CacheSQLite   = "sqlite"
	CachePostgres = "postgres"
)

// ErrInvalidConfig is wrapped by every ValidationError.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError reports a single rejected setting.
type ValidationError struct {
	Var    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Var, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"production"`
	Port   string `envconfig:"PORT" default:"8080"`

	CacheTTLMinutes int `envconfig:"FORECAST_CACHE_TTL_MINUTES" default:"30"`

	// Outbound HTTP.
	ConnectTimeout time.Duration `envconfig:"HTTP_CONNECT_TIMEOUT" default:"5s"`
	ReadTimeout    time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"5s"`
	UserAgent      string        `envconfig:"USER_AGENT" default:"address-forecast/1.0"`

	// SkipSSLVerify is forced off outside development.
	SkipSSLVerify bool `envconfig:"SKIP_SSL_VERIFY" default:"false"`

	GeocoderProvider string `envconfig:"GEOCODER_PROVIDER" default:"nominatim"`
	GeocoderURL      string `envconfig:"GEOCODER_URL" default:"https://nominatim.openstreetmap.org/search"`
	GoogleAPIKey     string `envconfig:"GOOGLE_GEOCODER_API_KEY"`
	WeatherURL       string `envconfig:"WEATHER_URL" default:"https://api.open-meteo.com/v1/forecast"`

	BreakerMaxFailures uint32        `envconfig:"BREAKER_MAX_FAILURES" default:"5"`
	BreakerOpenTimeout time.Duration `envconfig:"BREAKER_OPEN_TIMEOUT" default:"30s"`

	CacheBackend       string        `envconfig:"CACHE_BACKEND" default:"memory"`
	CacheDSN           string        `envconfig:"CACHE_DSN" default:"forecast_cache.db"`
	CacheSweepInterval time.Duration `envconfig:"CACHE_SWEEP_INTERVAL" default:"10m"`

	// Addresses refreshed in the background so they are always served warm.
	// Separated by ";" since addresses contain commas.
	WarmAddressList string        `envconfig:"WARM_ADDRESSES"`
	WarmAddresses   []string      `ignored:"true"`
	WarmInterval    time.Duration `envconfig:"WARM_INTERVAL" default:"25m"`

	ZipkinEndpoint string `envconfig:"ZIPKIN_ENDPOINT"`

	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile       string `envconfig:"LOG_FILE"`
	LogMaxSizeMB  int    `envconfig:"LOG_MAX_SIZE_MB" default:"100"`
	LogMaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"3"`
	LogMaxAgeDays int    `envconfig:"LOG_MAX_AGE_DAYS" default:"28"`
}

// Load reads .env (if present) and the process environment.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", "service", "config", "detail", err.Error())
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error loading configuration data, %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate normalizes cfg in place and rejects unusable settings.
func (c *AppConfig) Validate() error {
	c.AppEnv = strings.ToLower(strings.TrimSpace(c.AppEnv))
	c.GeocoderProvider = strings.ToLower(strings.TrimSpace(c.GeocoderProvider))
	c.CacheBackend = strings.ToLower(strings.TrimSpace(c.CacheBackend))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))

	if c.CacheTTLMinutes <= 0 {
		return &ValidationError{Var: "FORECAST_CACHE_TTL_MINUTES", Reason: "must be a positive number of minutes"}
	}
	if c.ConnectTimeout <= 0 {
		return &ValidationError{Var: "HTTP_CONNECT_TIMEOUT", Reason: "must be positive"}
	}
	if c.ReadTimeout <= 0 {
		return &ValidationError{Var: "HTTP_READ_TIMEOUT", Reason: "must be positive"}
	}

	switch c.GeocoderProvider {
	case GeocoderNominatim:
	case GeocoderGoogle:
		if strings.TrimSpace(c.GoogleAPIKey) == "" {
			return &ValidationError{Var: "GOOGLE_GEOCODER_API_KEY", Reason: "required when GEOCODER_PROVIDER=google"}
		}
	default:
		return &ValidationError{Var: "GEOCODER_PROVIDER", Reason: fmt.Sprintf("unknown provider %q", c.GeocoderProvider)}
	}

	switch c.CacheBackend {
	case CacheMemory:
	case CacheSQLite, CachePostgres:
		if strings.TrimSpace(c.CacheDSN) == "" {
			return &ValidationError{Var: "CACHE_DSN", Reason: "required for " + c.CacheBackend}
		}
	default:
		return &ValidationError{Var: "CACHE_BACKEND", Reason: fmt.Sprintf("unknown backend %q", c.CacheBackend)}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Var: "LOG_LEVEL", Reason: fmt.Sprintf("unknown level %q", c.LogLevel)}
	}

	if c.CacheSweepInterval < 0 {
		return &ValidationError{Var: "CACHE_SWEEP_INTERVAL", Reason: "must not be negative"}
	}

	var warm []string
	for _, a := range strings.Split(c.WarmAddressList, ";") {
		if a = strings.TrimSpace(a); a != "" {
			warm = append(warm, a)
		}
	}
	c.WarmAddresses = warm
	if len(c.WarmAddresses) > 0 && c.WarmInterval <= 0 {
		return &ValidationError{Var: "WARM_INTERVAL", Reason: "must be positive when WARM_ADDRESSES is set"}
	}

	if c.SkipSSLVerify && !c.IsDevelopment() {
		slog.Warn("SKIP_SSL_VERIFY ignored outside development", "service", "config", "app_env", c.AppEnv)
		c.SkipSSLVerify = false
	}
	return nil
}

func (c *AppConfig) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// CacheTTL is how long a fetched forecast stays servable.
func (c *AppConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}
