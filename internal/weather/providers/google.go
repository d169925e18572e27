package providers

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"

	"github.com/i474232898/address-forecast/internal/common"
	"github.com/i474232898/address-forecast/internal/weather"
)

// GoogleGeocoder implements weather.Geocoder with the Google Geocoding API.
// The forward lookup only yields coordinates, so a reverse lookup fills in
// the display name, postal code and country.
type GoogleGeocoder struct {
	name    string
	circuit *gobreaker.CircuitBreaker
	log     *slog.Logger

	forward func(geocoder.Address) (geocoder.Location, error)
	reverse func(geocoder.Location) ([]geocoder.Address, error)
}

func NewGoogleGeocoder(apiKey string, breakerCfg BreakerConfig) *GoogleGeocoder {
	// The library reads its key from a package variable.
	geocoder.ApiKey = apiKey
	log := slog.Default().With("service", "google_geocoder")

	return &GoogleGeocoder{
		name:    "google",
		circuit: newCircuitBreaker("google_geocoder", breakerCfg, log),
		log:     log,
		forward: geocoder.Geocoding,
		reverse: geocoder.GeocodingReverse,
	}
}

func (g *GoogleGeocoder) Name() string {
	return g.name
}

// Geocode ignores ctx cancellation: the underlying library has no context
// support.
func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (weather.Location, error) {
	q := strings.TrimSpace(address)
	if q == "" {
		g.log.WarnContext(ctx, "blank address", "event", weather.CodeBlankAddress, "detail", "blank address")
		return weather.Location{}, weather.NewError(weather.CodeBlankAddress, msgBlankAddress)
	}

	result, err := g.circuit.Execute(func() (interface{}, error) {
		loc, err := g.forward(geocoder.Address{Street: q})
		if err != nil {
			if isNoResults(err) {
				// a miss is not a provider failure
				return nil, nil
			}
			return nil, err
		}
		return &loc, nil
	})
	if err != nil {
		return weather.Location{}, g.lookupError(ctx, err)
	}
	found, _ := result.(*geocoder.Location)
	if found == nil {
		g.log.WarnContext(ctx, "address not found", "event", weather.CodeAddressNotFound, "detail", "no results")
		return weather.Location{}, weather.NewError(weather.CodeAddressNotFound, msgAddressNotFound)
	}

	loc := weather.Location{
		Latitude:    found.Latitude,
		Longitude:   found.Longitude,
		DisplayName: q,
	}

	// Reverse lookup failures only cost the optional fields.
	addresses, err := g.reverse(*found)
	if err != nil || len(addresses) == 0 {
		if err != nil {
			g.log.InfoContext(ctx, "reverse lookup failed", "event", "reverse_failed", "detail", err.Error())
		}
		return loc, nil
	}

	first := addresses[0]
	if name := displayName(first); name != "" {
		loc.DisplayName = name
	}
	if zip := strings.TrimSpace(first.PostalCode); zip != "" {
		loc.PostalCode = &zip
	}
	// Country may come back as a name rather than an ISO code.
	if cc := strings.ToUpper(strings.TrimSpace(first.Country)); len(cc) == 2 {
		loc.CountryCode = &cc
	}
	return loc, nil
}

func (g *GoogleGeocoder) lookupError(ctx context.Context, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		g.log.WarnContext(ctx, "geocoding circuit open", "event", weather.CodeGeocodingUnavailable, "detail", err.Error())
		return weather.NewError(weather.CodeGeocodingUnavailable, msgGeocodingUnavailable)
	}

	switch {
	case isTLSError(err):
		g.log.WarnContext(ctx, "geocoding request failed", "event", weather.CodeSSL, "detail", err.Error())
		return weather.NewError(weather.CodeSSL, msgGeocodingSSL)
	case common.ContainsAnyFold(err.Error(), "timeout", "connection refused", "connection reset", "no such host", "network is unreachable", "unexpected end of json", "invalid character"):
		g.log.WarnContext(ctx, "geocoding request failed", "event", weather.CodeNetwork, "detail", transportDetail(err))
		return weather.NewError(weather.CodeNetwork, msgGeocodingNetwork)
	default:
		g.log.WarnContext(ctx, "geocoding request failed", "event", weather.CodeGeocodingUnavailable, "detail", err.Error())
		return weather.NewError(weather.CodeGeocodingUnavailable, msgGeocodingUnavailable)
	}
}

func isNoResults(err error) bool {
	return common.ContainsAnyFold(err.Error(), "no results", "zero_results")
}

func displayName(a geocoder.Address) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Street, a.City, a.State, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
