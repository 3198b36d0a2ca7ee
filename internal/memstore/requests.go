package memstore

import (
	"context"
	"sort"
	"time"

	"cash-request-service/internal/lifecycle"
	"cash-request-service/internal/models"
	"cash-request-service/internal/repositories"
)

// CreateRequest stores the canonical request and the requester's sent copy.
func (s *Store) CreateRequest(_ context.Context, req models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = req
	key := repositories.CopyKey{RequestID: req.ID, UserID: req.RequesterID, Role: models.RoleSent}
	s.copies[key] = &copyEntry{key: key, status: models.StatusPending, seq: s.nextSeq()}
	return nil
}

// CreateIncomingCopies adds a pending incoming copy for every recipient.
func (s *Store) CreateIncomingCopies(_ context.Context, req models.Request, recipientIDs []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := 0
	for _, id := range recipientIDs {
		key := repositories.CopyKey{RequestID: req.ID, UserID: id, Role: models.RoleIncoming}
		if _, exists := s.copies[key]; exists {
			continue
		}
		s.copies[key] = &copyEntry{key: key, status: models.StatusPending, seq: s.nextSeq()}
		created++
	}
	return created, nil
}

// GetCopy returns the copy addressed by key.
func (s *Store) GetCopy(_ context.Context, key repositories.CopyKey) (models.RequestCopy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.copies[key]
	if !ok {
		return models.RequestCopy{}, repositories.ErrCopyNotFound
	}
	return s.project(entry), nil
}

// TransitionCopy applies to only when the current status is one of from.
func (s *Store) TransitionCopy(_ context.Context, key repositories.CopyKey, from []models.Status, to models.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.copies[key]
	if !ok || !containsStatus(from, entry.status) {
		return false, nil
	}
	entry.status = to
	return true, nil
}

// SetCopyConversation records the conversation opened on a copy.
func (s *Store) SetCopyConversation(_ context.Context, key repositories.CopyKey, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.copies[key]
	if !ok {
		return repositories.ErrCopyNotFound
	}
	entry.conversationID = &conversationID
	return nil
}

// AppendAcceptor records an acceptor on the request.
func (s *Store) AppendAcceptor(_ context.Context, requestID string, a models.Acceptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return repositories.ErrCopyNotFound
	}
	sent, ok := s.copies[repositories.CopyKey{RequestID: requestID, UserID: req.RequesterID, Role: models.RoleSent}]
	if !ok || !containsStatus(lifecycle.AcceptingStatuses(), sent.status) {
		return repositories.ErrRequestClosed
	}
	s.acceptors[requestID] = append(s.acceptors[requestID], a)
	return nil
}

// DeleteIncomingCopies removes every incoming copy of the request that is not completed.
func (s *Store) DeleteIncomingCopies(_ context.Context, requestID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for key, entry := range s.copies {
		if key.RequestID != requestID || key.Role != models.RoleIncoming || entry.status == models.StatusCompleted {
			continue
		}
		delete(s.copies, key)
		removed++
	}
	return removed, nil
}

// ExpireCopies flips the user's copies in from that were created before the cutoff.
func (s *Store) ExpireCopies(_ context.Context, userID string, role models.Role, from []models.Status, createdBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired int64
	for key, entry := range s.copies {
		if key.UserID != userID || key.Role != role || !containsStatus(from, entry.status) {
			continue
		}
		if !s.requests[key.RequestID].CreatedAt.Before(createdBefore) {
			continue
		}
		entry.status = models.StatusExpired
		expired++
	}
	return expired, nil
}

// ListCopies returns the user's copies for a role, newest first.
func (s *Store) ListCopies(_ context.Context, userID string, role models.Role) ([]models.RequestCopy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []*copyEntry
	for key, entry := range s.copies {
		if key.UserID == userID && key.Role == role {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		ci := s.requests[entries[i].key.RequestID].CreatedAt
		cj := s.requests[entries[j].key.RequestID].CreatedAt
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return entries[i].seq > entries[j].seq
	})
	out := make([]models.RequestCopy, 0, len(entries))
	for _, entry := range entries {
		out = append(out, s.project(entry))
	}
	return out, nil
}

// CountCopies counts the user's copies in a status.
func (s *Store) CountCopies(_ context.Context, userID string, role models.Role, status models.Status) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for key, entry := range s.copies {
		if key.UserID == userID && key.Role == role && entry.status == status {
			count++
		}
	}
	return count, nil
}

func (s *Store) project(entry *copyEntry) models.RequestCopy {
	cp := models.RequestCopy{
		Request: s.requests[entry.key.RequestID],
		OwnerID: entry.key.UserID,
		Role:    entry.key.Role,
		Status:  entry.status,
	}
	if entry.conversationID != nil {
		id := *entry.conversationID
		cp.ConversationID = &id
	}
	if entry.key.Role == models.RoleSent {
		cp.Acceptors = append([]models.Acceptor(nil), s.acceptors[entry.key.RequestID]...)
	}
	return cp
}

func containsStatus(set []models.Status, status models.Status) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}
