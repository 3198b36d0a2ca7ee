// Package memstore is an in-process implementation of every repository
// interface. It backs STORE=memory deployments and the service tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"cash-request-service/internal/models"
	"cash-request-service/internal/repositories"
)

type copyEntry struct {
	key            repositories.CopyKey
	status         models.Status
	conversationID *string
	seq            int64
}

// Store keeps all state behind a single mutex so each method is atomic.
type Store struct {
	mu  sync.Mutex
	now func() time.Time
	seq int64

	users     map[string]*models.User
	externals map[string]string

	requests  map[string]models.Request
	copies    map[repositories.CopyKey]*copyEntry
	acceptors map[string][]models.Acceptor

	conversations map[string]models.Conversation
	messages      map[string][]models.Message
	calls         map[string]models.CallSession
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		now:           time.Now,
		users:         make(map[string]*models.User),
		externals:     make(map[string]string),
		requests:      make(map[string]models.Request),
		copies:        make(map[repositories.CopyKey]*copyEntry),
		acceptors:     make(map[string][]models.Acceptor),
		conversations: make(map[string]models.Conversation),
		messages:      make(map[string][]models.Message),
		calls:         make(map[string]models.CallSession),
	}
}

// SetClock overrides the clock used for timestamps and call expiry.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

var (
	_ repositories.UserRepository         = (*Store)(nil)
	_ repositories.RequestRepository      = (*Store)(nil)
	_ repositories.ConversationRepository = (*Store)(nil)
	_ repositories.MessageRepository      = (*Store)(nil)
	_ repositories.CallRepository         = (*Store)(nil)
)

// AddUser inserts or replaces a user as-is.
func (s *Store) AddUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	cp := cloneUser(u)
	s.users[u.ID] = &cp
}

// GetUser returns a copy of the stored user.
func (s *Store) GetUser(_ context.Context, userID string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return models.User{}, repositories.ErrUserNotFound
	}
	return cloneUser(*u), nil
}

// UpsertProfile matches on email, phone or external uid before creating a new user.
func (s *Store) UpsertProfile(ctx context.Context, p models.Profile) (models.User, bool, error) {
	s.mu.Lock()
	u := s.matchProfile(p)
	created := u == nil
	if created {
		u = &models.User{ID: uuid.NewString(), CreatedAt: s.now().UTC()}
		s.users[u.ID] = u
	}
	if p.Email != "" {
		email := p.Email
		u.Email = &email
	}
	if p.Phone != "" {
		phone := p.Phone
		u.Phone = &phone
	}
	if p.ExternalUID != "" {
		s.externals[p.ExternalUID] = u.ID
	}
	setIfNotEmpty(&u.Name, p.Name)
	setIfNotEmpty(&u.GivenName, p.GivenName)
	setIfNotEmpty(&u.FamilyName, p.FamilyName)
	setIfNotEmpty(&u.Picture, p.Picture)
	if p.DeviceToken != "" {
		token := p.DeviceToken
		u.DeviceToken = &token
	}
	userID := u.ID
	s.mu.Unlock()

	if p.Location != nil {
		if err := s.RecordLocation(ctx, userID, *p.Location); err != nil {
			return models.User{}, false, err
		}
	}
	user, err := s.GetUser(ctx, userID)
	return user, created, err
}

func (s *Store) matchProfile(p models.Profile) *models.User {
	if p.ExternalUID != "" {
		if id, ok := s.externals[p.ExternalUID]; ok {
			return s.users[id]
		}
	}
	for _, u := range s.users {
		if p.Email != "" && u.Email != nil && *u.Email == p.Email {
			return u
		}
		if p.Phone != "" && u.Phone != nil && *u.Phone == p.Phone {
			return u
		}
	}
	return nil
}

// RecordLocation prepends to the capped history and sets the current location.
func (s *Store) RecordLocation(_ context.Context, userID string, loc models.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	if loc.Timestamp.IsZero() {
		loc.Timestamp = s.now().UTC()
	}
	current := loc
	u.CurrentLocation = &current
	u.LocationHistory = append([]models.Location{loc}, u.LocationHistory...)
	if len(u.LocationHistory) > models.LocationHistoryLimit {
		u.LocationHistory = u.LocationHistory[:models.LocationHistoryLimit]
	}
	return nil
}

// SetDeviceToken stores or clears the push token for a user.
func (s *Store) SetDeviceToken(_ context.Context, userID string, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	if token == "" {
		u.DeviceToken = nil
		return nil
	}
	u.DeviceToken = &token
	return nil
}

// ListCandidates returns every other user with its last known locations.
func (s *Store) ListCandidates(_ context.Context, excludeUserID string) ([]models.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Candidate, 0, len(s.users))
	for _, u := range s.users {
		if u.ID == excludeUserID {
			continue
		}
		c := models.Candidate{ID: u.ID, Name: u.DisplayName(), DeviceToken: u.Token()}
		if u.CurrentLocation != nil {
			loc := *u.CurrentLocation
			c.Current = &loc
		}
		if len(u.LocationHistory) > 0 {
			loc := u.LocationHistory[0]
			c.Latest = &loc
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ClearDeviceTokens unsets the given tokens wherever they are stored.
func (s *Store) ClearDeviceTokens(_ context.Context, tokens []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		drop[t] = struct{}{}
	}
	var cleared int64
	for _, u := range s.users {
		if u.DeviceToken == nil {
			continue
		}
		if _, ok := drop[*u.DeviceToken]; ok {
			u.DeviceToken = nil
			cleared++
		}
	}
	return cleared, nil
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func cloneUser(u models.User) models.User {
	if u.CurrentLocation != nil {
		loc := *u.CurrentLocation
		u.CurrentLocation = &loc
	}
	if u.LocationHistory != nil {
		u.LocationHistory = append([]models.Location(nil), u.LocationHistory...)
	}
	return u
}
