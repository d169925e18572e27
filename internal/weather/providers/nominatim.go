package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/i474232898/address-forecast/internal/weather"
)

// NominatimURL is the public OpenStreetMap search endpoint.
// Usage policy: ~1 request/second sustained, results must be cached.
// This client does not throttle; the forecast cache keeps volume low.
const NominatimURL = "https://nominatim.openstreetmap.org/search"

const (
	msgBlankAddress         = "Please enter an address."
	msgGeocodingUnavailable = "Geocoding service unavailable."
	msgAddressNotFound      = "Address not found."
	msgGeocodingNetwork     = "Could not look up address. Please try again."
	msgGeocodingSSL         = "Geocoding failed due to SSL certificate verification. For local dev only, you can set SKIP_SSL_VERIFY=1 in .env and restart the server (see README)."
	msgGeocodingSSLSkipped  = "Could not look up address (SSL error). Check your network or certificates."
)

// NominatimGeocoder implements weather.Geocoder against the Nominatim search API.
type NominatimGeocoder struct {
	name       string
	baseURL    string
	client     *resty.Client
	circuit    *gobreaker.CircuitBreaker
	sslSkipped bool
	log        *slog.Logger
}

func NewNominatimGeocoder(baseURL string, httpCfg HTTPClientConfig, breakerCfg BreakerConfig) *NominatimGeocoder {
	if baseURL == "" {
		baseURL = NominatimURL
	}
	log := slog.Default().With("service", "nominatim")

	return &NominatimGeocoder{
		name:       "nominatim",
		baseURL:    baseURL,
		client:     newRestyClient(httpCfg, log),
		circuit:    newCircuitBreaker("nominatim", breakerCfg, log),
		sslSkipped: httpCfg.SkipTLSVerify,
		log:        log,
	}
}

func (g *NominatimGeocoder) Name() string {
	return g.name
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, address string) (weather.Location, error) {
	q := strings.TrimSpace(address)
	if q == "" {
		g.log.WarnContext(ctx, "blank address", "event", weather.CodeBlankAddress, "detail", "blank address")
		return weather.Location{}, weather.NewError(weather.CodeBlankAddress, msgBlankAddress)
	}

	resp, err := doGet(ctx, g.client, g.circuit, g.baseURL, map[string]string{
		"q":              q,
		"format":         "json",
		"addressdetails": "1",
		"limit":          "1",
	})
	if err != nil {
		return weather.Location{}, g.transportError(ctx, err)
	}

	if !resp.IsSuccess() {
		g.log.WarnContext(ctx, "geocoding request failed", "event", weather.CodeGeocodingUnavailable, "status", resp.StatusCode())
		return weather.Location{}, weather.NewError(weather.CodeGeocodingUnavailable, msgGeocodingUnavailable)
	}

	var results []nominatimResult
	if err := json.Unmarshal(resp.Body(), &results); err != nil {
		g.log.WarnContext(ctx, "malformed geocoding response", "event", weather.CodeNetwork, "detail", err.Error())
		return weather.Location{}, weather.NewError(weather.CodeNetwork, msgGeocodingNetwork)
	}
	if len(results) == 0 {
		g.log.WarnContext(ctx, "address not found", "event", weather.CodeAddressNotFound, "detail", "no results")
		return weather.Location{}, weather.NewError(weather.CodeAddressNotFound, msgAddressNotFound)
	}

	return results[0].toLocation(), nil
}

func (g *NominatimGeocoder) transportError(ctx context.Context, err error) error {
	if errors.Is(err, errCircuitOpen) {
		g.log.WarnContext(ctx, "geocoding circuit open", "event", weather.CodeGeocodingUnavailable, "detail", err.Error())
		return weather.NewError(weather.CodeGeocodingUnavailable, msgGeocodingUnavailable)
	}

	code := classify(err)
	g.log.WarnContext(ctx, "geocoding request failed", "event", code, "detail", transportDetail(err))
	if code == weather.CodeSSL {
		if g.sslSkipped {
			return weather.NewError(code, msgGeocodingSSLSkipped)
		}
		return weather.NewError(code, msgGeocodingSSL)
	}
	return weather.NewError(code, msgGeocodingNetwork)
}

type nominatimResult struct {
	Lat         coordinate `json:"lat"`
	Lon         coordinate `json:"lon"`
	DisplayName string     `json:"display_name"`
	Address     struct {
		Postcode    *string `json:"postcode"`
		CountryCode *string `json:"country_code"`
	} `json:"address"`
}

func (r nominatimResult) toLocation() weather.Location {
	loc := weather.Location{
		Latitude:    float64(r.Lat),
		Longitude:   float64(r.Lon),
		DisplayName: r.DisplayName,
	}
	if r.Address.Postcode != nil {
		if zip := strings.TrimSpace(*r.Address.Postcode); zip != "" {
			loc.PostalCode = &zip
		}
	}
	if r.Address.CountryCode != nil {
		if cc := strings.ToUpper(strings.TrimSpace(*r.Address.CountryCode)); cc != "" {
			loc.CountryCode = &cc
		}
	}
	return loc
}

// coordinate accepts both the quoted ("41.88") and bare (41.88) forms.
type coordinate float64

func (c *coordinate) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid coordinate %s: %w", b, err)
	}
	*c = coordinate(f)
	return nil
}
