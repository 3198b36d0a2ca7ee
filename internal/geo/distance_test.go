package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"cash-request-service/internal/models"
)

func TestDistanceKnownPoints(t *testing.T) {
	bangalore := &models.Coordinate{Latitude: 12.9716, Longitude: 77.5946}
	chennai := &models.Coordinate{Latitude: 13.0827, Longitude: 80.2707}

	d := Distance(bangalore, chennai)
	assert.InDelta(t, 290_500, d, 2_000)
}

func TestDistanceSamePointIsZero(t *testing.T) {
	p := &models.Coordinate{Latitude: 12.90, Longitude: 77.59}
	assert.InDelta(t, 0, Distance(p, p), 1e-9)
}

func TestDistanceMissingOrInvalidIsInfinite(t *testing.T) {
	p := &models.Coordinate{Latitude: 12.90, Longitude: 77.59}

	assert.True(t, math.IsInf(Distance(nil, p), 1))
	assert.True(t, math.IsInf(Distance(p, nil), 1))
	assert.True(t, math.IsInf(Distance(p, &models.Coordinate{Latitude: math.NaN(), Longitude: 1}), 1))
	assert.True(t, math.IsInf(Distance(p, &models.Coordinate{Latitude: 91, Longitude: 1}), 1))
	assert.True(t, math.IsInf(Distance(p, &models.Coordinate{Latitude: 1, Longitude: math.Inf(1)}), 1))
}
