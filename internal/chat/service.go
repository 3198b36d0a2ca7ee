// Package chat implements the conversations opened by accepted requests:
// messages and call signaling between the two participants.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cash-request-service/internal/logger"
	"cash-request-service/internal/models"
	"cash-request-service/internal/notify"
	"cash-request-service/internal/repositories"
)

var (
	ErrNotParticipant = errors.New("user is not a participant of the conversation")
	ErrEmptyMessage   = errors.New("message text is empty")
)

// Notifier delivers push notifications best-effort.
type Notifier interface {
	Dispatch(ctx context.Context, n notify.Notification) notify.Report
}

// Relay emits realtime events to a conversation room.
type Relay interface {
	EmitToConversation(conversationID, event string, payload any)
}

// Runner schedules background side effects.
type Runner interface {
	Go(name string, fn func(ctx context.Context))
}

// Dependencies wires the chat service.
type Dependencies struct {
	Conversations repositories.ConversationRepository
	Messages      repositories.MessageRepository
	Calls         repositories.CallRepository
	Users         repositories.UserRepository
	Notifier      Notifier
	Relay         Relay
	Tasks         Runner
	Logger        *logger.Logger
	CallTTL       time.Duration
	Now           func() time.Time
}

// Service implements messaging and call signaling.
type Service struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	calls         repositories.CallRepository
	users         repositories.UserRepository
	notifier      Notifier
	relay         Relay
	tasks         Runner
	log           *logger.Logger
	callTTL       time.Duration
	now           func() time.Time
}

// New constructs a Service.
func New(deps Dependencies) *Service {
	s := &Service{
		conversations: deps.Conversations,
		messages:      deps.Messages,
		calls:         deps.Calls,
		users:         deps.Users,
		notifier:      deps.Notifier,
		relay:         deps.Relay,
		tasks:         deps.Tasks,
		log:           deps.Logger,
		callTTL:       deps.CallTTL,
		now:           deps.Now,
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	s.log = s.log.Named("chat")
	if s.callTTL <= 0 {
		s.callTTL = 2 * time.Minute
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.tasks == nil {
		s.tasks = inlineRunner{}
	}
	return s
}

type inlineRunner struct{}

func (inlineRunner) Go(_ string, fn func(ctx context.Context)) {
	fn(context.Background())
}

// conversation loads the conversation and checks userID belongs to it.
func (s *Service) conversation(ctx context.Context, conversationID, userID string) (models.Conversation, error) {
	if _, err := uuid.Parse(conversationID); err != nil {
		return models.Conversation{}, repositories.ErrConversationNotFound
	}
	conv, err := s.conversations.GetConversation(ctx, conversationID)
	if err != nil {
		return models.Conversation{}, err
	}
	if !conv.HasParticipant(userID) {
		return models.Conversation{}, ErrNotParticipant
	}
	return conv, nil
}

// SendMessage stores a message, pushes it to the other participant unless it
// is a system message, and emits it to the conversation room.
func (s *Service) SendMessage(ctx context.Context, conversationID, senderID, text string, isSystem bool) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, ErrEmptyMessage
	}
	conv, err := s.conversation(ctx, conversationID, senderID)
	if err != nil {
		return models.Message{}, err
	}
	sender, err := s.users.GetUser(ctx, senderID)
	if err != nil {
		return models.Message{}, fmt.Errorf("load sender: %w", err)
	}

	msg, err := s.messages.CreateMessage(ctx, models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Text:           text,
		IsSystem:       isSystem,
	})
	if err != nil {
		return models.Message{}, fmt.Errorf("store message: %w", err)
	}
	msg.SenderName = sender.DisplayName()

	recipientID := conv.Other(senderID)
	s.tasks.Go("chat.message", func(ctx context.Context) {
		if s.relay != nil {
			s.relay.EmitToConversation(conv.ID, models.EventNewMessage, msg)
		}
		if isSystem || s.notifier == nil {
			return
		}
		recipient, err := s.users.GetUser(ctx, recipientID)
		if err != nil {
			s.log.Warn("skip message notification", zap.String("recipient_id", recipientID), zap.Error(err))
			return
		}
		s.notifier.Dispatch(ctx, notify.NewChatMessage(recipient.Token(), msg.SenderName, msg))
	})

	return msg, nil
}

// ListMessages returns the conversation's messages with sender names filled in.
func (s *Service) ListMessages(ctx context.Context, conversationID, userID string) ([]models.Message, error) {
	conv, err := s.conversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, 2)
	for _, id := range []string{conv.RequesterID, conv.RecipientID} {
		if u, err := s.users.GetUser(ctx, id); err == nil {
			names[id] = u.DisplayName()
		}
	}
	for i := range msgs {
		msgs[i].SenderName = names[msgs[i].SenderID]
	}
	return msgs, nil
}
