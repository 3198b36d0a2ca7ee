package geo

import (
	"errors"
	"math"

	"cash-request-service/internal/models"
)

var (
	ErrMissingOrigin = errors.New("requester location is required")
	ErrInvalidRadius = errors.New("radius must be a positive number of kilometers")
)

// SelectRecipients returns the candidates within radiusKm of origin. The
// requester is expected to be filtered out of candidates by the caller; it is
// skipped here as well when requesterID is non-empty.
func SelectRecipients(origin *models.Coordinate, radiusKm float64, requesterID string, candidates []models.Candidate) ([]models.Candidate, error) {
	if origin == nil || !origin.Valid() {
		return nil, ErrMissingOrigin
	}
	if math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) || radiusKm <= 0 {
		return nil, ErrInvalidRadius
	}

	limit := radiusKm * 1000
	selected := make([]models.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == requesterID {
			continue
		}
		loc := c.ResolveLocation()
		if loc == nil {
			continue
		}
		point := loc.Coordinate()
		if Distance(origin, &point) <= limit {
			selected = append(selected, c)
		}
	}
	return selected, nil
}
