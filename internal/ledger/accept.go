package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"cash-request-service/internal/lifecycle"
	"cash-request-service/internal/models"
	"cash-request-service/internal/notify"
	"cash-request-service/internal/observability"
	"cash-request-service/internal/repositories"
	"cash-request-service/internal/telemetry"
)

// AcceptResult is the recipient's updated copy and the conversation it opened.
type AcceptResult struct {
	Request      models.RequestCopy
	Conversation models.Conversation
}

// Accept moves the recipient's incoming copy from pending to accepted, opens a
// conversation with the requester and records the acceptor on the sent copy.
// The pending check and the status write are a single conditional update, so
// of two racing calls exactly one opens a conversation.
func (s *Service) Accept(ctx context.Context, recipientID, requestID string) (AcceptResult, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Accept")
	defer span.End()
	span.SetAttributes(attribute.String("request.id", requestID))

	if err := checkIDs(recipientID, requestID); err != nil {
		return AcceptResult{}, err
	}
	recipient, err := s.users.GetUser(ctx, recipientID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return AcceptResult{}, notFoundf("recipient")
	}
	if err != nil {
		return AcceptResult{}, fmt.Errorf("load recipient: %w", err)
	}

	if err := s.Sweep(ctx, recipientID); err != nil {
		s.log.Warn("sweep before accept failed", zap.String("user_id", recipientID), zap.Error(err))
	}

	key := repositories.CopyKey{RequestID: requestID, UserID: recipientID, Role: models.RoleIncoming}
	to, _ := lifecycle.Next(models.RoleIncoming, models.StatusPending, lifecycle.EventAccept)
	ok, err := s.requests.TransitionCopy(ctx, key, lifecycle.Sources(models.RoleIncoming, lifecycle.EventAccept), to)
	if err != nil {
		return AcceptResult{}, fmt.Errorf("accept copy: %w", err)
	}
	if !ok {
		return AcceptResult{}, s.rejected(ctx, "accept", key)
	}
	observability.IncTransition(string(models.RoleIncoming), string(to))

	// From here on a failure hands the copy back so the recipient can retry.
	revert := func() {
		if _, err := s.requests.TransitionCopy(ctx, key, []models.Status{to}, models.StatusPending); err != nil {
			s.log.Error("revert accept failed", zap.String("request_id", requestID), zap.String("user_id", recipientID), zap.Error(err))
		}
	}

	incoming, err := s.requests.GetCopy(ctx, key)
	if err != nil {
		revert()
		return AcceptResult{}, fmt.Errorf("reload copy: %w", err)
	}

	sentKey := repositories.CopyKey{RequestID: requestID, UserID: incoming.RequesterID, Role: models.RoleSent}
	sent, err := s.requests.GetCopy(ctx, sentKey)
	if err != nil {
		revert()
		return AcceptResult{}, fmt.Errorf("load sent copy: %w", err)
	}
	if !slices.Contains(lifecycle.AcceptingStatuses(), sent.Status) {
		revert()
		observability.IncConflict("accept")
		return AcceptResult{}, &StateConflictError{Op: "accept", Status: sent.Status}
	}

	conv, err := s.conversations.CreateConversation(ctx, requestID, incoming.RequesterID, recipientID)
	if err != nil {
		revert()
		return AcceptResult{}, fmt.Errorf("create conversation: %w", err)
	}

	if err := s.requests.SetCopyConversation(ctx, key, conv.ID); err != nil {
		revert()
		return AcceptResult{}, fmt.Errorf("link conversation: %w", err)
	}
	incoming.Status = to
	incoming.ConversationID = &conv.ID

	acceptor := models.Acceptor{
		AcceptorID:     recipientID,
		AcceptorName:   recipient.DisplayName(),
		ConversationID: conv.ID,
		AcceptedAt:     s.now().UTC(),
	}
	if err := s.requests.AppendAcceptor(ctx, requestID, acceptor); err != nil {
		revert()
		if errors.Is(err, repositories.ErrRequestClosed) {
			return AcceptResult{}, s.rejected(ctx, "accept", sentKey)
		}
		return AcceptResult{}, fmt.Errorf("append acceptor: %w", err)
	}

	active, err := s.requests.TransitionCopy(ctx, sentKey, lifecycle.Sources(models.RoleSent, lifecycle.EventAcceptorAppended), models.StatusActive)
	switch {
	case err != nil:
		s.log.Error("activate sent copy failed", zap.String("request_id", requestID), zap.Error(err))
	case active:
		observability.IncTransition(string(models.RoleSent), string(models.StatusActive))
	}

	s.log.Info("request accepted",
		zap.String("request_id", requestID),
		zap.String("acceptor_id", recipientID),
		zap.String("conversation_id", conv.ID))

	payload := models.RequestAcceptedPayload{
		RequestID:           requestID,
		ChatID:              conv.ID,
		AcceptorID:          recipientID,
		AcceptorName:        acceptor.AcceptorName,
		RequestAmount:       notify.FormatAmount(incoming.Amount),
		RequestTip:          notify.FormatAmount(incoming.Tip),
		RequestInstructions: incoming.Instructions,
		RequestType:         string(incoming.Kind),
		RequesterID:         incoming.RequesterID,
	}
	s.tasks.Go("request.accepted", func(ctx context.Context) {
		s.relay.EmitToUser(payload.RequesterID, models.EventRequestAccepted, payload)
		if requester, err := s.users.GetUser(ctx, payload.RequesterID); err == nil {
			s.notifier.Dispatch(ctx, notify.RequestAccepted(requester.Token(), payload))
		} else {
			s.log.Warn("skip accept notification", zap.String("requester_id", payload.RequesterID), zap.Error(err))
		}
		s.events.Emit(ctx, telemetry.EventRequestAccepted, requestID, recipientID, map[string]any{
			"conversationId": conv.ID,
		})
	})

	return AcceptResult{Request: incoming, Conversation: conv}, nil
}

// rejected turns a failed conditional write into not-found or a state conflict.
func (s *Service) rejected(ctx context.Context, op string, key repositories.CopyKey) error {
	current, err := s.requests.GetCopy(ctx, key)
	if errors.Is(err, repositories.ErrCopyNotFound) {
		return notFoundf("request %s", key.RequestID)
	}
	if err != nil {
		return fmt.Errorf("reload copy: %w", err)
	}
	observability.IncConflict(op)
	return &StateConflictError{Op: op, Status: current.Status}
}
