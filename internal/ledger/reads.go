package ledger

import (
	"context"
	"errors"
	"fmt"

	"cash-request-service/internal/models"
	"cash-request-service/internal/repositories"
)

// AcceptorsView is the requester's view of who accepted a request.
type AcceptorsView struct {
	Acceptors []models.Acceptor `json:"acceptors"`
	Request   models.Request    `json:"requestDetails"`
	Status    models.Status     `json:"status"`
}

// ListIncoming returns the user's incoming copies after sweeping.
func (s *Service) ListIncoming(ctx context.Context, userID string) ([]models.RequestCopy, error) {
	return s.list(ctx, userID, models.RoleIncoming)
}

// ListSent returns the user's sent copies after sweeping.
func (s *Service) ListSent(ctx context.Context, userID string) ([]models.RequestCopy, error) {
	return s.list(ctx, userID, models.RoleSent)
}

// CountPending counts the user's pending incoming copies after sweeping.
func (s *Service) CountPending(ctx context.Context, userID string) (int, error) {
	if err := s.prepareRead(ctx, userID); err != nil {
		return 0, err
	}
	return s.requests.CountCopies(ctx, userID, models.RoleIncoming, models.StatusPending)
}

// GetAcceptors returns the acceptors of one of the requester's sent requests.
func (s *Service) GetAcceptors(ctx context.Context, requesterID, requestID string) (AcceptorsView, error) {
	if err := s.prepareRead(ctx, requesterID); err != nil {
		return AcceptorsView{}, err
	}
	if err := checkIDs(requestID); err != nil {
		return AcceptorsView{}, err
	}
	sent, err := s.requests.GetCopy(ctx, repositories.CopyKey{RequestID: requestID, UserID: requesterID, Role: models.RoleSent})
	if errors.Is(err, repositories.ErrCopyNotFound) {
		return AcceptorsView{}, notFoundf("request %s", requestID)
	}
	if err != nil {
		return AcceptorsView{}, fmt.Errorf("load sent copy: %w", err)
	}
	acceptors := sent.Acceptors
	if acceptors == nil {
		acceptors = []models.Acceptor{}
	}
	return AcceptorsView{Acceptors: acceptors, Request: sent.Request, Status: sent.Status}, nil
}

func (s *Service) list(ctx context.Context, userID string, role models.Role) ([]models.RequestCopy, error) {
	if err := s.prepareRead(ctx, userID); err != nil {
		return nil, err
	}
	copies, err := s.requests.ListCopies(ctx, userID, role)
	if err != nil {
		return nil, fmt.Errorf("list %s copies: %w", role, err)
	}
	if copies == nil {
		copies = []models.RequestCopy{}
	}
	return copies, nil
}

func (s *Service) prepareRead(ctx context.Context, userID string) error {
	if err := checkIDs(userID); err != nil {
		return err
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return notFoundf("user")
		}
		return fmt.Errorf("load user: %w", err)
	}
	return s.Sweep(ctx, userID)
}
