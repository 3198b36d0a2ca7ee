package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cash-request-service/internal/models"
)

// metersPerDegreeLat is the arc length of one degree of latitude on EarthRadiusMeters.
const metersPerDegreeLat = EarthRadiusMeters * 3.141592653589793 / 180

func northOf(origin models.Coordinate, meters float64) *models.Location {
	return &models.Location{Latitude: origin.Latitude + meters/metersPerDegreeLat, Longitude: origin.Longitude}
}

func ids(cs []models.Candidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

func TestSelectRecipientsScenario(t *testing.T) {
	origin := models.Coordinate{Latitude: 12.90, Longitude: 77.59}
	candidates := []models.Candidate{
		{ID: "near", Current: northOf(origin, 500)},
		{ID: "mid", Current: northOf(origin, 1500)},
		{ID: "far", Current: northOf(origin, 3000)},
		{ID: "nowhere"},
	}

	got, err := SelectRecipients(&origin, 2, "requester", candidates)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"near", "mid"}, ids(got))
}

func TestSelectRecipientsFallsBackToHistory(t *testing.T) {
	origin := models.Coordinate{Latitude: 12.90, Longitude: 77.59}
	candidates := []models.Candidate{
		{ID: "history-only", Latest: northOf(origin, 800)},
		{ID: "current-wins", Current: northOf(origin, 5000), Latest: northOf(origin, 100)},
	}

	got, err := SelectRecipients(&origin, 1, "", candidates)
	require.NoError(t, err)
	assert.Equal(t, []string{"history-only"}, ids(got))
}

func TestSelectRecipientsExcludesRequester(t *testing.T) {
	origin := models.Coordinate{Latitude: 12.90, Longitude: 77.59}
	candidates := []models.Candidate{
		{ID: "requester", Current: northOf(origin, 0)},
		{ID: "other", Current: northOf(origin, 10)},
	}

	got, err := SelectRecipients(&origin, 1, "requester", candidates)
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, ids(got))
}

func TestSelectRecipientsNoLocationNeverMatches(t *testing.T) {
	origin := models.Coordinate{Latitude: 0, Longitude: 0}
	got, err := SelectRecipients(&origin, 20_000, "", []models.Candidate{{ID: "ghost"}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSelectRecipientsValidation(t *testing.T) {
	_, err := SelectRecipients(nil, 2, "", nil)
	assert.ErrorIs(t, err, ErrMissingOrigin)

	_, err = SelectRecipients(&models.Coordinate{Latitude: 200}, 2, "", nil)
	assert.ErrorIs(t, err, ErrMissingOrigin)

	_, err = SelectRecipients(&models.Coordinate{}, 0, "", nil)
	assert.ErrorIs(t, err, ErrInvalidRadius)

	got, err := SelectRecipients(&models.Coordinate{}, 1, "", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
