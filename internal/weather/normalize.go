package weather

// Normalize builds a Result from a Location and the raw weather payload.
// Fields missing from the payload stay nil.
func Normalize(loc Location, raw Snapshot) Result {
	res := Result{
		Address:   loc.DisplayName,
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
	}

	if raw.Current != nil {
		res.CurrentTemperature = raw.Current.Temperature
		res.WeatherCode = raw.Current.WeatherCode
	}
	if raw.Daily != nil {
		res.High = first(raw.Daily.TemperatureMax)
		res.Low = first(raw.Daily.TemperatureMin)
	}

	return res
}

func first(values []*float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	return values[0]
}
