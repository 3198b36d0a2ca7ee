package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cash-request-service/internal/models"
)

func TestNextLegalTransitions(t *testing.T) {
	cases := []struct {
		role  models.Role
		from  models.Status
		event Event
		want  models.Status
	}{
		{models.RoleIncoming, models.StatusPending, EventAccept, models.StatusAccepted},
		{models.RoleSent, models.StatusPending, EventAcceptorAppended, models.StatusActive},
		{models.RoleSent, models.StatusActive, EventComplete, models.StatusCompleted},
		{models.RoleSent, models.StatusPending, EventExpire, models.StatusExpired},
		{models.RoleIncoming, models.StatusPending, EventExpire, models.StatusExpired},
	}
	for _, tc := range cases {
		got, err := Next(tc.role, tc.from, tc.event)
		require.NoError(t, err, "%s %s %s", tc.role, tc.from, tc.event)
		assert.Equal(t, tc.want, got)
	}
}

func TestNextRejectsIllegalTransitions(t *testing.T) {
	cases := []struct {
		role  models.Role
		from  models.Status
		event Event
	}{
		{models.RoleIncoming, models.StatusAccepted, EventAccept},
		{models.RoleIncoming, models.StatusExpired, EventAccept},
		{models.RoleSent, models.StatusPending, EventAccept},
		{models.RoleSent, models.StatusCompleted, EventComplete},
		{models.RoleSent, models.StatusPending, EventComplete},
		{models.RoleSent, models.StatusCompleted, EventExpire},
		{models.RoleSent, models.StatusActive, EventExpire},
		{models.RoleIncoming, models.StatusCompleted, EventExpire},
	}
	for _, tc := range cases {
		got, err := Next(tc.role, tc.from, tc.event)
		var illegal *IllegalTransitionError
		require.ErrorAs(t, err, &illegal)
		assert.Equal(t, tc.from, got)
	}
}

func TestCompletedAndExpiredAreAbsorbing(t *testing.T) {
	events := []Event{EventAccept, EventAcceptorAppended, EventComplete, EventExpire}
	for _, status := range []models.Status{models.StatusCompleted, models.StatusExpired} {
		assert.True(t, Terminal(status))
		for _, role := range []models.Role{models.RoleSent, models.RoleIncoming} {
			for _, ev := range events {
				_, err := Next(role, status, ev)
				assert.Error(t, err)
			}
		}
	}
}

func TestSources(t *testing.T) {
	assert.Equal(t, []models.Status{models.StatusPending}, Sources(models.RoleIncoming, EventAccept))
	assert.Equal(t, []models.Status{models.StatusActive}, Sources(models.RoleSent, EventComplete))
	assert.Equal(t, []models.Status{models.StatusPending}, Sources(models.RoleSent, EventExpire))
	assert.Empty(t, Sources(models.RoleIncoming, EventComplete))
}

func TestStale(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, Stale(now.Add(-25*time.Hour), now, DefaultTTL))
	assert.False(t, Stale(now.Add(-23*time.Hour), now, DefaultTTL))
	assert.False(t, Stale(now.Add(-DefaultTTL), now, DefaultTTL))
}
