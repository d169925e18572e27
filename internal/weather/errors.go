package weather

// Code identifies a failure kind for telemetry and tests.
type Code string

const (
	CodeBlankAddress         Code = "blank_address"
	CodeGeocodingUnavailable Code = "geocoding_unavailable"
	CodeAddressNotFound      Code = "address_not_found"
	CodeWeatherUnavailable   Code = "weather_unavailable"
	CodeSSL                  Code = "ssl_error"
	CodeNetwork              Code = "timeout_or_network"
)

// Error is the user-facing failure produced by a Geocoder or Forecaster.
// Message is safe to display; internal detail is logged by the producer.
type Error struct {
	Code    Code   `json:"error_code"`
	Message string `json:"error"`
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// NewError builds an Error.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}
