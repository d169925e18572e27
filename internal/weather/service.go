package weather

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultCacheTTL is used when NewService receives a non-positive TTL.
const DefaultCacheTTL = 30 * time.Minute

// Service resolves an address to a forecast: geocode, check the cache, and on
// a miss fetch the weather, normalize it and cache the result.
type Service struct {
	geocoder   Geocoder
	forecaster Forecaster
	cache      Cache
	ttl        time.Duration

	log    *slog.Logger
	tracer trace.Tracer
}

// NewService creates a new Service.
func NewService(geocoder Geocoder, forecaster Forecaster, cache Cache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{
		geocoder:   geocoder,
		forecaster: forecaster,
		cache:      cache,
		ttl:        ttl,
		log:        slog.Default().With("service", "forecast"),
		tracer:     otel.Tracer("github.com/i474232898/address-forecast/internal/weather"),
	}
}

// CacheTTL returns the TTL applied to written results.
func (s *Service) CacheTTL() time.Duration {
	return s.ttl
}

// Fetch returns either a Result or the first provider error, never both.
// Provider errors are returned as produced, so callers can errors.As them
// into *Error. A cache hit never touches the providers.
func (s *Service) Fetch(ctx context.Context, address string) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "forecast.fetch")
	defer span.End()

	loc, err := s.geocode(ctx, address)
	if err != nil {
		return Result{}, err
	}

	key := CacheKey(loc)
	span.SetAttributes(attribute.String("cache_key", key))

	if cached, ok := s.read(ctx, key); ok {
		s.log.InfoContext(ctx, "cache hit", "event", "cache_hit", "cache_key", key)
		span.SetAttributes(attribute.Bool("cache_hit", true))
		cached.FromCache = true
		cached.CacheKey = key
		return cached, nil
	}

	s.log.InfoContext(ctx, "cache miss", "event", "cache_miss", "cache_key", key)
	span.SetAttributes(attribute.Bool("cache_hit", false))

	raw, err := s.forecast(ctx, loc)
	if err != nil {
		return Result{}, err
	}

	result := Normalize(loc, raw)
	s.write(ctx, key, result)

	return result, nil
}

func (s *Service) geocode(ctx context.Context, address string) (Location, error) {
	ctx, span := s.tracer.Start(ctx, "geocode", trace.WithAttributes(attribute.String("provider", s.geocoder.Name())))
	defer span.End()

	loc, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Location{}, err
	}
	return loc, nil
}

func (s *Service) forecast(ctx context.Context, loc Location) (Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "weather", trace.WithAttributes(attribute.String("provider", s.forecaster.Name())))
	defer span.End()

	raw, err := s.forecaster.Forecast(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Snapshot{}, err
	}
	return raw, nil
}

// read treats a failing cache backend as a miss.
func (s *Service) read(ctx context.Context, key string) (Result, bool) {
	cached, ok, err := s.cache.Read(ctx, key)
	if err != nil {
		s.log.WarnContext(ctx, "cache read failed", "event", "cache_read_failed", "cache_key", key, "detail", err.Error())
		return Result{}, false
	}
	return cached, ok
}

func (s *Service) write(ctx context.Context, key string, result Result) {
	// Only the read path marks a result as cached.
	result.FromCache = false
	result.CacheKey = ""

	if err := s.cache.Write(ctx, key, result, s.ttl); err != nil {
		s.log.WarnContext(ctx, "cache write failed", "event", "cache_write_failed", "cache_key", key, "detail", err.Error())
	}
}
