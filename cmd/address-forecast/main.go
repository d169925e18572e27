package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/i474232898/address-forecast/internal/api/http"
	"github.com/i474232898/address-forecast/internal/config"
	"github.com/i474232898/address-forecast/internal/logging"
	"github.com/i474232898/address-forecast/internal/scheduler"
	"github.com/i474232898/address-forecast/internal/store"
	"github.com/i474232898/address-forecast/internal/tracing"
	"github.com/i474232898/address-forecast/internal/weather"
	"github.com/i474232898/address-forecast/internal/weather/providers"
)

// cacheBackend is a weather.Cache the scheduler can sweep and main can close.
type cacheBackend interface {
	weather.Cache
	scheduler.Sweeper
	Close() error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		slog.Error("address-forecast stopped", "service", "main", "detail", err.Error())
		os.Exit(1)
	}
}

// run starts the service and blocks until ctx is done or the listener fails.
// Every resource it opens is released before it returns.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCloser := logging.Setup(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	defer logCloser.Close()
	log := slog.Default().With("service", "main")

	shutdownTracing, err := tracing.Setup("address-forecast", cfg.ZipkinEndpoint)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Error("error flushing traces", "detail", err.Error())
		}
	}()

	cache, err := openCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s cache: %w", cfg.CacheBackend, err)
	}
	defer cache.Close()

	httpCfg := providers.HTTPClientConfig{
		ConnectTimeout: cfg.ConnectTimeout,
		ReadTimeout:    cfg.ReadTimeout,
		UserAgent:      cfg.UserAgent,
		SkipTLSVerify:  cfg.SkipSSLVerify,
	}
	breakerCfg := providers.BreakerConfig{
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	}
	if cfg.SkipSSLVerify {
		log.Warn("TLS certificate verification disabled for outbound requests", "app_env", cfg.AppEnv)
	}

	// Core service orchestrating geocoding, cache and weather.
	service := weather.NewService(
		newGeocoder(cfg, httpCfg, breakerCfg),
		providers.NewOpenMeteoProvider(cfg.WeatherURL, httpCfg, breakerCfg),
		cache,
		cfg.CacheTTL(),
	)

	// Background sweeps and warm refreshes.
	sched := scheduler.New(scheduler.Config{
		SweepInterval: cfg.CacheSweepInterval,
		Sweeper:       cache,
		WarmInterval:  cfg.WarmInterval,
		WarmAddresses: cfg.WarmAddresses,
		Fetcher:       service,
	})
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	app := httpapi.NewApp(service)

	listenErr := make(chan error, 1)
	go func() {
		log.Info("listening", "port", cfg.Port, "geocoder", cfg.GeocoderProvider, "cache", cfg.CacheBackend, "ttl", weather.TTLDisplay(cfg.CacheTTL()))
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("fiber server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "detail", err.Error())
	}
	log.Info("stopped")
	return nil
}

func newGeocoder(cfg *config.AppConfig, httpCfg providers.HTTPClientConfig, breakerCfg providers.BreakerConfig) weather.Geocoder {
	if cfg.GeocoderProvider == config.GeocoderGoogle {
		return providers.NewGoogleGeocoder(cfg.GoogleAPIKey, breakerCfg)
	}
	return providers.NewNominatimGeocoder(cfg.GeocoderURL, httpCfg, breakerCfg)
}

func openCache(ctx context.Context, cfg *config.AppConfig) (cacheBackend, error) {
	switch cfg.CacheBackend {
	case config.CacheMemory:
		return store.NewMemoryCache(), nil
	case config.CacheSQLite:
		return store.OpenSQLCache(ctx, store.DialectSQLite, cfg.CacheDSN)
	case config.CachePostgres:
		return store.OpenSQLCache(ctx, store.DialectPostgres, cfg.CacheDSN)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
