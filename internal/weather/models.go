package weather

// Location is a geocoded address. PostalCode and CountryCode are nil when the
// geocoding provider did not return them.
type Location struct {
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lon"`
	DisplayName string  `json:"display_name"`
	PostalCode  *string `json:"postcode,omitempty"`
	CountryCode *string `json:"country_code,omitempty"`
}

// Snapshot is the raw weather payload as returned by a Forecaster.
// Only the groups the Service extracts from are modelled.
type Snapshot struct {
	Current *CurrentConditions `json:"current,omitempty"`
	Daily   *DailySeries       `json:"daily,omitempty"`
}

// CurrentConditions holds instantaneous readings.
type CurrentConditions struct {
	Temperature *float64 `json:"temperature_2m,omitempty"`
	WeatherCode *int     `json:"weather_code,omitempty"`
}

// DailySeries holds per-day values ordered by date, first element = today.
// Elements are pointers because providers emit null for missing days.
type DailySeries struct {
	TemperatureMax []*float64 `json:"temperature_2m_max,omitempty"`
	TemperatureMin []*float64 `json:"temperature_2m_min,omitempty"`
}

// Result is the normalized forecast returned to callers and stored in the cache.
type Result struct {
	Address            string   `json:"address"`
	Latitude           float64  `json:"lat"`
	Longitude          float64  `json:"lon"`
	CurrentTemperature *float64 `json:"current_temp,omitempty"`
	WeatherCode        *int     `json:"weather_code,omitempty"`
	High               *float64 `json:"high,omitempty"`
	Low                *float64 `json:"low,omitempty"`
	FromCache          bool     `json:"from_cache"`

	// CacheKey is only set on results served from the cache.
	CacheKey string `json:"cache_key,omitempty"`
}
