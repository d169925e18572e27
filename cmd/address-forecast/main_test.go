package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/i474232898/address-forecast/internal/config"
	"github.com/i474232898/address-forecast/internal/store"
)

func TestRun_InvalidConfigReturnsError(t *testing.T) {
	t.Setenv("FORECAST_CACHE_TTL_MINUTES", "0")

	err := run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "FORECAST_CACHE_TTL_MINUTES") {
		t.Fatalf("expected a config error, got %v", err)
	}
}

func TestRun_CacheOpenFailureReturnsError(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CACHE_BACKEND", "sqlite")
	t.Setenv("CACHE_DSN", filepath.Join(dir, "missing", "cache.db"))
	t.Setenv("LOG_FILE", filepath.Join(dir, "app.log"))

	err := run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "sqlite cache") {
		t.Fatalf("expected a cache error, got %v", err)
	}
}

func TestRun_ShutsDownCleanly(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "cache.db")
	logFile := filepath.Join(dir, "app.log")
	t.Setenv("PORT", "0")
	t.Setenv("CACHE_BACKEND", "sqlite")
	t.Setenv("CACHE_DSN", dsn)
	t.Setenv("LOG_FILE", logFile)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run() error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatalf("run did not return after cancellation")
	}

	logged, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(logged), `"msg":"stopped"`) {
		t.Fatalf("expected the shutdown to be logged, got %s", logged)
	}

	// the cache database was closed and can be opened again
	reopened, err := store.OpenSQLCache(context.Background(), store.DialectSQLite, dsn)
	if err != nil {
		t.Fatalf("reopening cache: %v", err)
	}
	_ = reopened.Close()
}

func TestOpenCache(t *testing.T) {
	cfg := &config.AppConfig{CacheBackend: config.CacheMemory}
	cache, err := openCache(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openCache() error = %v", err)
	}
	_ = cache.Close()

	cfg.CacheBackend = "redis"
	if _, err := openCache(context.Background(), cfg); err == nil {
		t.Fatalf("expected an error for an unknown backend")
	}
}
