package weather

import (
	"context"
	"time"
)

// Geocoder resolves a free-text address to a Location.
// Failures are returned as *Error.
type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, address string) (Location, error)
}

// Forecaster fetches the raw weather payload for a coordinate pair.
// Failures are returned as *Error.
type Forecaster interface {
	Name() string
	Forecast(ctx context.Context, lat, lon float64) (Snapshot, error)
}

// Cache is the contract every result cache backend must satisfy.
// Read reports found=false for missing and expired keys.
type Cache interface {
	Read(ctx context.Context, key string) (Result, bool, error)
	Write(ctx context.Context, key string, value Result, ttl time.Duration) error
}
