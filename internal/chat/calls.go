package chat

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"cash-request-service/internal/models"
	"cash-request-service/internal/repositories"
)

// maxCallDuration bounds how long an answered call keeps its session.
const maxCallDuration = 2 * time.Hour

// InitiateCall rings the other participant unless a call is already live.
func (s *Service) InitiateCall(ctx context.Context, conversationID, callerID string) (models.CallSession, error) {
	conv, err := s.conversation(ctx, conversationID, callerID)
	if err != nil {
		return models.CallSession{}, err
	}

	session := models.CallSession{
		ConversationID: conv.ID,
		CallerID:       callerID,
		RecipientID:    conv.Other(callerID),
		Status:         models.CallRinging,
		ExpiresAt:      s.now().Add(s.callTTL).UTC(),
	}
	if err := s.calls.StartCall(ctx, session); err != nil {
		return models.CallSession{}, err
	}
	s.log.Info("call initiated", zap.String("conversation_id", conv.ID), zap.String("caller_id", callerID))

	s.emit(conv.ID, models.EventIncomingCall, models.CallSignal{
		ChatID:      conv.ID,
		CallerID:    session.CallerID,
		RecipientID: session.RecipientID,
	})
	return session, nil
}

// AcceptCall answers a ringing call. Only the callee may answer.
func (s *Service) AcceptCall(ctx context.Context, conversationID, userID string) (models.CallSession, error) {
	conv, err := s.conversation(ctx, conversationID, userID)
	if err != nil {
		return models.CallSession{}, err
	}
	current, err := s.calls.GetCall(ctx, conv.ID, s.now())
	if err != nil {
		return models.CallSession{}, err
	}
	if current.RecipientID != userID {
		return models.CallSession{}, ErrNotParticipant
	}

	session, err := s.calls.UpdateCallStatus(ctx, conv.ID, models.CallRinging, models.CallActive, s.now().Add(maxCallDuration).UTC())
	if err != nil {
		return models.CallSession{}, err
	}
	s.emit(conv.ID, models.EventCallAccepted, models.CallSignal{ChatID: conv.ID, AcceptorID: userID})
	return session, nil
}

// EndCall hangs up. Ending when no call is live still signals the room.
func (s *Service) EndCall(ctx context.Context, conversationID, userID string) error {
	conv, err := s.conversation(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if err := s.calls.EndCall(ctx, conv.ID); err != nil {
		return err
	}
	s.emit(conv.ID, models.EventCallEnded, models.CallSignal{ChatID: conv.ID, EnderID: userID})
	return nil
}

// CallStatus reports the live session, or an idle one when there is none.
func (s *Service) CallStatus(ctx context.Context, conversationID, userID string) (models.CallSession, error) {
	conv, err := s.conversation(ctx, conversationID, userID)
	if err != nil {
		return models.CallSession{}, err
	}
	session, err := s.calls.GetCall(ctx, conv.ID, s.now())
	if errors.Is(err, repositories.ErrCallNotFound) {
		return models.CallSession{ConversationID: conv.ID, Status: models.CallIdle}, nil
	}
	return session, err
}

func (s *Service) emit(conversationID, event string, signal models.CallSignal) {
	if s.relay == nil {
		return
	}
	s.tasks.Go("chat."+event, func(context.Context) {
		s.relay.EmitToConversation(conversationID, event, signal)
	})
}
