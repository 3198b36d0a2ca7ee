package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"cash-request-service/internal/models"
	"cash-request-service/internal/repositories"
)

// CreateConversation opens a conversation or returns the one already open for the pair.
func (s *Store) CreateConversation(_ context.Context, requestID, requesterID, recipientID string) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conversations {
		if c.RequestID == requestID && c.RecipientID == recipientID {
			return c, nil
		}
	}
	conv := models.Conversation{
		ID:          uuid.NewString(),
		RequestID:   requestID,
		RequesterID: requesterID,
		RecipientID: recipientID,
		CreatedAt:   s.now().UTC(),
	}
	s.conversations[conv.ID] = conv
	return conv, nil
}

// GetConversation fetches a conversation by id.
func (s *Store) GetConversation(_ context.Context, conversationID string) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return models.Conversation{}, repositories.ErrConversationNotFound
	}
	return conv, nil
}

// IsParticipant checks conversation membership.
func (s *Store) IsParticipant(_ context.Context, conversationID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[conversationID]
	return ok && conv.HasParticipant(userID), nil
}

// CreateMessage appends a message to its conversation.
func (s *Store) CreateMessage(_ context.Context, msg models.Message) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[msg.ConversationID]; !ok {
		return models.Message{}, repositories.ErrConversationNotFound
	}
	msg.ID = s.nextSeq()
	msg.CreatedAt = s.now().UTC()
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], msg)
	return msg, nil
}

// ListMessages returns the conversation's messages in creation order.
func (s *Store) ListMessages(_ context.Context, conversationID string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message{}, s.messages[conversationID]...), nil
}

// StartCall creates a ringing session unless a live one exists.
func (s *Store) StartCall(_ context.Context, session models.CallSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if existing, ok := s.calls[session.ConversationID]; ok && existing.ExpiresAt.After(now) {
		return repositories.ErrCallInProgress
	}
	session.UpdatedAt = now.UTC()
	s.calls[session.ConversationID] = session
	return nil
}

// UpdateCallStatus moves a live session between statuses.
func (s *Store) UpdateCallStatus(_ context.Context, conversationID string, from, to models.CallStatus, expiresAt time.Time) (models.CallSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	session, ok := s.calls[conversationID]
	if !ok || session.Status != from || !session.ExpiresAt.After(now) {
		return models.CallSession{}, repositories.ErrCallNotFound
	}
	session.Status = to
	session.ExpiresAt = expiresAt
	session.UpdatedAt = now.UTC()
	s.calls[conversationID] = session
	return session, nil
}

// GetCall returns the live session for a conversation.
func (s *Store) GetCall(_ context.Context, conversationID string, now time.Time) (models.CallSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.calls[conversationID]
	if !ok || !session.ExpiresAt.After(now) {
		return models.CallSession{}, repositories.ErrCallNotFound
	}
	return session, nil
}

// EndCall removes the session.
func (s *Store) EndCall(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.calls, conversationID)
	return nil
}
