package weather

import (
	"math"
	"strconv"
	"strings"
)

const (
	zipKeyPrefix = "forecast/zip/"
	llKeyPrefix  = "forecast/ll/"
)

// CacheKey returns the cache key for a location. A postal code takes
// precedence; otherwise the coordinates are bucketed to two decimal places.
func CacheKey(loc Location) string {
	if loc.PostalCode != nil {
		zip := strings.Join(strings.Fields(*loc.PostalCode), "")
		if zip != "" {
			return zipKeyPrefix + strings.ToLower(zip)
		}
	}
	return llKeyPrefix + formatCoord(loc.Latitude) + "/" + formatCoord(loc.Longitude)
}

func formatCoord(v float64) string {
	r := math.Round(v*100) / 100
	if r == 0 {
		// avoid "-0.00"
		r = 0
	}
	return strconv.FormatFloat(r, 'f', 2, 64)
}
