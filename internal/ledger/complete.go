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

// Complete closes the request in favour of one acceptor and withdraws it from
// every recipient. Withdrawal is best-effort: copies left behind expire.
func (s *Service) Complete(ctx context.Context, requesterID, requestID, acceptorID string) (models.RequestCopy, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Complete")
	defer span.End()
	span.SetAttributes(attribute.String("request.id", requestID))

	if err := checkIDs(requesterID, requestID, acceptorID); err != nil {
		return models.RequestCopy{}, err
	}
	key := repositories.CopyKey{RequestID: requestID, UserID: requesterID, Role: models.RoleSent}
	sent, err := s.requests.GetCopy(ctx, key)
	if errors.Is(err, repositories.ErrCopyNotFound) {
		return models.RequestCopy{}, notFoundf("request %s", requestID)
	}
	if err != nil {
		return models.RequestCopy{}, fmt.Errorf("load sent copy: %w", err)
	}
	if !slices.Contains(lifecycle.Sources(models.RoleSent, lifecycle.EventComplete), sent.Status) {
		observability.IncConflict("complete")
		return models.RequestCopy{}, &StateConflictError{Op: "complete", Status: sent.Status}
	}
	if _, ok := sent.FindAcceptor(acceptorID); !ok {
		return models.RequestCopy{}, notFoundf("acceptor %s", acceptorID)
	}

	to, _ := lifecycle.Next(models.RoleSent, models.StatusActive, lifecycle.EventComplete)
	ok, err := s.requests.TransitionCopy(ctx, key, lifecycle.Sources(models.RoleSent, lifecycle.EventComplete), to)
	if err != nil {
		return models.RequestCopy{}, fmt.Errorf("complete copy: %w", err)
	}
	if !ok {
		return models.RequestCopy{}, s.rejected(ctx, "complete", key)
	}
	observability.IncTransition(string(models.RoleSent), string(to))
	sent.Status = to

	removed, err := s.requests.DeleteIncomingCopies(ctx, requestID)
	if err != nil {
		s.log.Warn("withdraw incoming copies failed", zap.String("request_id", requestID), zap.Error(err))
	}
	s.log.Info("request completed",
		zap.String("request_id", requestID),
		zap.String("acceptor_id", acceptorID),
		zap.Int64("withdrawn", removed))

	requesterName := sent.RequesterName
	if requester, err := s.users.GetUser(ctx, requesterID); err == nil {
		requesterName = requester.DisplayName()
	}
	payload := models.RequestCompletedPayload{
		RequestID:     requestID,
		RequesterID:   requesterID,
		RequesterName: requesterName,
		Amount:        notify.FormatAmount(sent.Amount),
	}
	s.tasks.Go("request.completed", func(ctx context.Context) {
		s.relay.EmitToUser(acceptorID, models.EventRequestCompleted, payload)
		if acceptor, err := s.users.GetUser(ctx, acceptorID); err == nil {
			s.notifier.Dispatch(ctx, notify.TransactionCompleted(acceptor.Token(), payload))
		} else {
			s.log.Warn("skip completion notification", zap.String("acceptor_id", acceptorID), zap.Error(err))
		}
		s.events.Emit(ctx, telemetry.EventRequestCompleted, requestID, requesterID, map[string]any{
			"acceptorId": acceptorID,
			"withdrawn":  removed,
		})
	})

	return sent, nil
}
