// Package geo selects broadcast recipients by great-circle distance.
package geo

import (
	"math"

	"cash-request-service/internal/models"
)

// EarthRadiusMeters is the WGS-84 equatorial radius.
const EarthRadiusMeters = 6378137.0

// Distance returns the haversine distance in meters between a and b.
// A nil or malformed coordinate yields +Inf so it can never fall inside a radius.
func Distance(a, b *models.Coordinate) float64 {
	if a == nil || b == nil || !a.Valid() || !b.Valid() {
		return math.Inf(1)
	}

	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := lat2 - lat1
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
