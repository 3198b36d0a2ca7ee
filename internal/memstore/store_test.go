package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cash-request-service/internal/models"
	"cash-request-service/internal/repositories"
)

func seedRequest(t *testing.T, s *Store, createdAt time.Time, recipients ...string) models.Request {
	t.Helper()
	req := models.Request{ID: "req-1", RequesterID: "alice", RequesterName: "Alice", Amount: 100, Kind: models.KindCash, CreatedAt: createdAt}
	require.NoError(t, s.CreateRequest(context.Background(), req))
	n, err := s.CreateIncomingCopies(context.Background(), req, recipients)
	require.NoError(t, err)
	require.Equal(t, len(recipients), n)
	return req
}

func TestTransitionCopyOnlyOneWinner(t *testing.T) {
	s := New()
	seedRequest(t, s, time.Now(), "bob")
	key := repositories.CopyKey{RequestID: "req-1", UserID: "bob", Role: models.RoleIncoming}

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.TransitionCopy(context.Background(), key, []models.Status{models.StatusPending}, models.StatusAccepted)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	cp, err := s.GetCopy(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, cp.Status)
}

func TestExpireCopiesHonoursCutoffAndSources(t *testing.T) {
	s := New()
	now := time.Now()
	seedRequest(t, s, now.Add(-25*time.Hour), "bob", "carol")
	_, err := s.TransitionCopy(context.Background(), repositories.CopyKey{RequestID: "req-1", UserID: "carol", Role: models.RoleIncoming},
		[]models.Status{models.StatusPending}, models.StatusAccepted)
	require.NoError(t, err)

	n, err := s.ExpireCopies(context.Background(), "bob", models.RoleIncoming, []models.Status{models.StatusPending}, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = s.ExpireCopies(context.Background(), "carol", models.RoleIncoming, []models.Status{models.StatusPending}, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	n, err = s.ExpireCopies(context.Background(), "alice", models.RoleSent, []models.Status{models.StatusPending}, now.Add(-26*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestDeleteIncomingCopiesKeepsCompleted(t *testing.T) {
	s := New()
	seedRequest(t, s, time.Now(), "bob", "carol", "dave")
	_, err := s.TransitionCopy(context.Background(), repositories.CopyKey{RequestID: "req-1", UserID: "bob", Role: models.RoleIncoming},
		[]models.Status{models.StatusPending}, models.StatusCompleted)
	require.NoError(t, err)

	n, err := s.DeleteIncomingCopies(context.Background(), "req-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = s.GetCopy(context.Background(), repositories.CopyKey{RequestID: "req-1", UserID: "carol", Role: models.RoleIncoming})
	assert.ErrorIs(t, err, repositories.ErrCopyNotFound)
	_, err = s.GetCopy(context.Background(), repositories.CopyKey{RequestID: "req-1", UserID: "bob", Role: models.RoleIncoming})
	assert.NoError(t, err)
	_, err = s.GetCopy(context.Background(), repositories.CopyKey{RequestID: "req-1", UserID: "alice", Role: models.RoleSent})
	assert.NoError(t, err)
}

func TestAppendAcceptorRequiresOpenRequest(t *testing.T) {
	s := New()
	seedRequest(t, s, time.Now(), "bob", "carol")
	ctx := context.Background()
	sent := repositories.CopyKey{RequestID: "req-1", UserID: "alice", Role: models.RoleSent}

	require.NoError(t, s.AppendAcceptor(ctx, "req-1", models.Acceptor{AcceptorID: "bob"}))
	ok, err := s.TransitionCopy(ctx, sent, []models.Status{models.StatusPending}, models.StatusActive)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.AppendAcceptor(ctx, "req-1", models.Acceptor{AcceptorID: "carol"}))

	ok, err = s.TransitionCopy(ctx, sent, []models.Status{models.StatusActive}, models.StatusCompleted)
	require.NoError(t, err)
	require.True(t, ok)
	err = s.AppendAcceptor(ctx, "req-1", models.Acceptor{AcceptorID: "dave"})
	assert.ErrorIs(t, err, repositories.ErrRequestClosed)

	cp, err := s.GetCopy(ctx, sent)
	require.NoError(t, err)
	assert.Len(t, cp.Acceptors, 2)
}

func TestRecordLocationCapsHistory(t *testing.T) {
	s := New()
	s.AddUser(models.User{ID: "bob"})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		require.NoError(t, s.RecordLocation(context.Background(), "bob", models.Location{Latitude: float64(i), Timestamp: base.Add(time.Duration(i) * time.Minute)}))
	}

	u, err := s.GetUser(context.Background(), "bob")
	require.NoError(t, err)
	require.Len(t, u.LocationHistory, models.LocationHistoryLimit)
	assert.Equal(t, 6.0, u.LocationHistory[0].Latitude)
	assert.Equal(t, 6.0, u.CurrentLocation.Latitude)

	assert.ErrorIs(t, s.RecordLocation(context.Background(), "ghost", models.Location{}), repositories.ErrUserNotFound)
}

func TestUpsertProfileMatchesByPhone(t *testing.T) {
	s := New()
	first, created, err := s.UpsertProfile(context.Background(), models.Profile{Phone: "+15550001", ExternalUID: "uid-1"})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := s.UpsertProfile(context.Background(), models.Profile{Phone: "+15550001", Name: "Bob", DeviceToken: "tok"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Bob", second.Name)
	assert.Equal(t, "tok", second.Token())
}

func TestClearDeviceTokens(t *testing.T) {
	s := New()
	tokA, tokB := "a", "b"
	s.AddUser(models.User{ID: "u1", DeviceToken: &tokA})
	s.AddUser(models.User{ID: "u2", DeviceToken: &tokB})

	n, err := s.ClearDeviceTokens(context.Background(), []string{"a", "zzz"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	u1, _ := s.GetUser(context.Background(), "u1")
	u2, _ := s.GetUser(context.Background(), "u2")
	assert.Nil(t, u1.DeviceToken)
	assert.Equal(t, "b", u2.Token())
}

func TestCallSessionExpiry(t *testing.T) {
	s := New()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })
	conv, err := s.CreateConversation(context.Background(), "req-1", "alice", "bob")
	require.NoError(t, err)

	session := models.CallSession{ConversationID: conv.ID, CallerID: "alice", RecipientID: "bob", Status: models.CallRinging, ExpiresAt: now.Add(time.Minute)}
	require.NoError(t, s.StartCall(context.Background(), session))
	assert.ErrorIs(t, s.StartCall(context.Background(), session), repositories.ErrCallInProgress)

	now = now.Add(2 * time.Minute)
	_, err = s.GetCall(context.Background(), conv.ID, now)
	assert.ErrorIs(t, err, repositories.ErrCallNotFound)
	session.ExpiresAt = now.Add(time.Minute)
	assert.NoError(t, s.StartCall(context.Background(), session))
}
