package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.AppEnv != "production" || cfg.Port != "8080" {
		t.Errorf("unexpected env/port: %q %q", cfg.AppEnv, cfg.Port)
	}
	if cfg.CacheTTL() != 30*time.Minute {
		t.Errorf("CacheTTL() = %v", cfg.CacheTTL())
	}
	if cfg.ConnectTimeout != 5*time.Second || cfg.ReadTimeout != 5*time.Second {
		t.Errorf("timeouts = %v/%v", cfg.ConnectTimeout, cfg.ReadTimeout)
	}
	if cfg.GeocoderProvider != GeocoderNominatim || cfg.CacheBackend != CacheMemory {
		t.Errorf("provider/backend = %q/%q", cfg.GeocoderProvider, cfg.CacheBackend)
	}
	if cfg.SkipSSLVerify {
		t.Errorf("SkipSSLVerify must default to false")
	}
	if cfg.BreakerMaxFailures != 5 || cfg.BreakerOpenTimeout != 30*time.Second {
		t.Errorf("breaker = %d/%v", cfg.BreakerMaxFailures, cfg.BreakerOpenTimeout)
	}
	if len(cfg.WarmAddresses) != 0 {
		t.Errorf("expected no warm addresses, got %v", cfg.WarmAddresses)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("FORECAST_CACHE_TTL_MINUTES", "5")
	t.Setenv("HTTP_READ_TIMEOUT", "2s")
	t.Setenv("CACHE_BACKEND", "SQLite")
	t.Setenv("CACHE_DSN", "/tmp/cache.db")
	t.Setenv("WARM_ADDRESSES", "Chicago, IL; ;10001 ")
	t.Setenv("BREAKER_MAX_FAILURES", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CacheTTL() != 5*time.Minute {
		t.Errorf("CacheTTL() = %v", cfg.CacheTTL())
	}
	if cfg.ReadTimeout != 2*time.Second {
		t.Errorf("ReadTimeout = %v", cfg.ReadTimeout)
	}
	if cfg.CacheBackend != CacheSQLite {
		t.Errorf("CacheBackend = %q", cfg.CacheBackend)
	}
	want := []string{"Chicago, IL", "10001"}
	if len(cfg.WarmAddresses) != len(want) {
		t.Fatalf("WarmAddresses = %v", cfg.WarmAddresses)
	}
	for i := range want {
		if cfg.WarmAddresses[i] != want[i] {
			t.Errorf("WarmAddresses[%d] = %q, want %q", i, cfg.WarmAddresses[i], want[i])
		}
	}
	if cfg.BreakerMaxFailures != 2 {
		t.Errorf("BreakerMaxFailures = %d", cfg.BreakerMaxFailures)
	}
}

func TestLoad_SkipSSLVerifyOnlyInDevelopment(t *testing.T) {
	t.Setenv("SKIP_SSL_VERIFY", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SkipSSLVerify {
		t.Fatalf("SKIP_SSL_VERIFY must be ignored in production")
	}

	t.Setenv("APP_ENV", "development")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.SkipSSLVerify {
		t.Fatalf("SKIP_SSL_VERIFY should be honoured in development")
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantVar string
	}{
		{"zero ttl", map[string]string{"FORECAST_CACHE_TTL_MINUTES": "0"}, "FORECAST_CACHE_TTL_MINUTES"},
		{"negative ttl", map[string]string{"FORECAST_CACHE_TTL_MINUTES": "-3"}, "FORECAST_CACHE_TTL_MINUTES"},
		{"unknown provider", map[string]string{"GEOCODER_PROVIDER": "bing"}, "GEOCODER_PROVIDER"},
		{"google without key", map[string]string{"GEOCODER_PROVIDER": "google"}, "GOOGLE_GEOCODER_API_KEY"},
		{"unknown backend", map[string]string{"CACHE_BACKEND": "redis"}, "CACHE_BACKEND"},
		{"postgres without dsn", map[string]string{"CACHE_BACKEND": "postgres", "CACHE_DSN": " "}, "CACHE_DSN"},
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"zero read timeout", map[string]string{"HTTP_READ_TIMEOUT": "0s"}, "HTTP_READ_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if verr.Var != tt.wantVar {
				t.Errorf("Var = %q, want %q", verr.Var, tt.wantVar)
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected error to wrap ErrInvalidConfig")
			}
		})
	}
}

func TestLoad_MalformedValue(t *testing.T) {
	t.Setenv("HTTP_CONNECT_TIMEOUT", "soon")

	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error for malformed duration")
	}
}
