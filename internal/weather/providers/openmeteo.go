package providers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/i474232898/address-forecast/internal/weather"
)

// OpenMeteoURL is the public Open-Meteo forecast endpoint (no API key).
const OpenMeteoURL = "https://api.open-meteo.com/v1/forecast"

const (
	msgWeatherUnavailable = "Weather service unavailable."
	msgWeatherNetwork     = "Could not fetch weather. Please try again."
	msgWeatherSSL         = "Weather request failed (SSL). Set SKIP_SSL_VERIFY=1 in .env for local dev (see README)."
)

// OpenMeteoProvider implements the weather.Forecaster interface for Open-Meteo.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	client  *resty.Client
	circuit *gobreaker.CircuitBreaker
	log     *slog.Logger
}

func NewOpenMeteoProvider(baseURL string, httpCfg HTTPClientConfig, breakerCfg BreakerConfig) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = OpenMeteoURL
	}
	log := slog.Default().With("service", "openmeteo")

	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: baseURL,
		client:  newRestyClient(httpCfg, log),
		circuit: newCircuitBreaker("openmeteo", breakerCfg, log),
		log:     log,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// Forecast returns the parsed payload untouched; extraction is the
// Service's job.
func (p *OpenMeteoProvider) Forecast(ctx context.Context, lat, lon float64) (weather.Snapshot, error) {
	resp, err := doGet(ctx, p.client, p.circuit, p.baseURL, map[string]string{
		"latitude":  strconv.FormatFloat(lat, 'f', -1, 64),
		"longitude": strconv.FormatFloat(lon, 'f', -1, 64),
		"current":   "temperature_2m,weather_code",
		"daily":     "temperature_2m_max,temperature_2m_min",
		"timezone":  "auto",
	})
	if err != nil {
		return weather.Snapshot{}, p.transportError(ctx, err)
	}

	if !resp.IsSuccess() {
		p.log.WarnContext(ctx, "weather request failed", "event", weather.CodeWeatherUnavailable, "status", resp.StatusCode())
		return weather.Snapshot{}, weather.NewError(weather.CodeWeatherUnavailable, msgWeatherUnavailable)
	}

	var payload weather.Snapshot
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		p.log.WarnContext(ctx, "malformed weather response", "event", weather.CodeNetwork, "detail", err.Error())
		return weather.Snapshot{}, weather.NewError(weather.CodeNetwork, msgWeatherNetwork)
	}

	return payload, nil
}

func (p *OpenMeteoProvider) transportError(ctx context.Context, err error) error {
	if errors.Is(err, errCircuitOpen) {
		p.log.WarnContext(ctx, "weather circuit open", "event", weather.CodeWeatherUnavailable, "detail", err.Error())
		return weather.NewError(weather.CodeWeatherUnavailable, msgWeatherUnavailable)
	}

	code := classify(err)
	p.log.WarnContext(ctx, "weather request failed", "event", code, "detail", transportDetail(err))
	if code == weather.CodeSSL {
		return weather.NewError(code, msgWeatherSSL)
	}
	return weather.NewError(code, msgWeatherNetwork)
}
