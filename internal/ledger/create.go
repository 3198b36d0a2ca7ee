package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"cash-request-service/internal/geo"
	"cash-request-service/internal/lifecycle"
	"cash-request-service/internal/models"
	"cash-request-service/internal/notify"
	"cash-request-service/internal/observability"
	"cash-request-service/internal/repositories"
	"cash-request-service/internal/telemetry"
)

// CreateInput is a new request as submitted by the requester. Amount and Tip
// are kept as text so non-numeric input is rejected here rather than at the edge.
type CreateInput struct {
	RequesterID  string
	Amount       string
	Tip          string
	Instructions string
	Kind         models.Kind
	Origin       *models.Coordinate
	RadiusKm     float64
}

// CreateResult is the requester's sent copy plus the size of the fan-out.
type CreateResult struct {
	Request    models.RequestCopy
	Recipients int
}

// Create validates the request, selects nearby recipients, stores the sent
// copy and one incoming copy per recipient, then notifies them. The call
// succeeds once the sent copy is stored; a failed incoming write is logged.
func (s *Service) Create(ctx context.Context, in CreateInput) (CreateResult, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Create")
	defer span.End()

	if _, err := uuid.Parse(in.RequesterID); err != nil {
		return CreateResult{}, validationf("invalid requester id")
	}
	amount, err := parseMoney(in.Amount, true)
	if err != nil {
		return CreateResult{}, validationf("amount: %v", err)
	}
	tip, err := parseMoney(in.Tip, false)
	if err != nil {
		return CreateResult{}, validationf("tip: %v", err)
	}
	kind := in.Kind
	if kind == "" {
		kind = models.KindCash
	}
	if !kind.Valid() {
		return CreateResult{}, validationf("unknown request kind %q", kind)
	}
	radius := in.RadiusKm
	if radius == 0 {
		radius = s.radiusKm
	}

	requester, err := s.users.GetUser(ctx, in.RequesterID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return CreateResult{}, validationf("requester does not exist")
	}
	if err != nil {
		return CreateResult{}, fmt.Errorf("load requester: %w", err)
	}

	origin := in.Origin
	if origin == nil {
		origin = requesterOrigin(requester)
	}

	candidates, err := s.users.ListCandidates(ctx, requester.ID)
	if err != nil {
		return CreateResult{}, fmt.Errorf("list candidates: %w", err)
	}
	recipients, err := geo.SelectRecipients(origin, radius, requester.ID, candidates)
	if err != nil {
		return CreateResult{}, validationf("%v", err)
	}

	req := models.Request{
		ID:            uuid.NewString(),
		RequesterID:   requester.ID,
		RequesterName: requester.DisplayName(),
		Amount:        amount,
		Tip:           tip,
		Instructions:  strings.TrimSpace(in.Instructions),
		Kind:          kind,
		CreatedAt:     s.now().UTC(),
	}
	span.SetAttributes(attribute.String("request.id", req.ID), attribute.Int("request.recipients", len(recipients)))

	if err := s.requests.CreateRequest(ctx, req); err != nil {
		return CreateResult{}, fmt.Errorf("store request: %w", err)
	}

	ids := make([]string, 0, len(recipients))
	tokens := make([]string, 0, len(recipients))
	for _, r := range recipients {
		ids = append(ids, r.ID)
		tokens = append(tokens, r.DeviceToken)
	}
	stored, err := s.requests.CreateIncomingCopies(ctx, req, ids)
	if err != nil {
		s.log.Error("fan-out incomplete",
			zap.String("request_id", req.ID),
			zap.Int("recipients", len(ids)),
			zap.Int("stored", stored),
			zap.Error(err))
		tokens = nil
	}
	observability.ObserveRequestCreated(string(req.Kind), stored)
	s.log.Info("request created",
		zap.String("request_id", req.ID),
		zap.String("requester_id", req.RequesterID),
		zap.Int("recipients", stored))

	requesterToken := requester.Token()
	s.tasks.Go("request.created", func(ctx context.Context) {
		s.notifier.Dispatch(ctx, notify.NewRequestReceived(req, tokens, requesterToken))
		s.events.Emit(ctx, telemetry.EventRequestCreated, req.ID, req.RequesterID, map[string]any{
			"amount":     req.Amount,
			"kind":       req.Kind,
			"recipients": stored,
		})
	})

	return CreateResult{
		Request: models.RequestCopy{
			Request: req,
			OwnerID: req.RequesterID,
			Role:    models.RoleSent,
			Status:  lifecycle.Initial(),
		},
		Recipients: stored,
	}, nil
}

func requesterOrigin(u models.User) *models.Coordinate {
	if u.CurrentLocation != nil {
		c := u.CurrentLocation.Coordinate()
		return &c
	}
	if len(u.LocationHistory) > 0 {
		c := u.LocationHistory[0].Coordinate()
		return &c
	}
	return nil
}

// maxMoney is the first value that no longer fits a NUMERIC(14,2) column.
const maxMoney = 1e12

func parseMoney(raw string, required bool) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if required {
			return 0, errors.New("is required")
		}
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a number", raw)
	}
	if required && v <= 0 {
		return 0, errors.New("must be greater than zero")
	}
	if v < 0 {
		return 0, errors.New("must not be negative")
	}
	if v >= maxMoney {
		return 0, fmt.Errorf("must be less than %.0f", maxMoney)
	}
	if cents := math.Round(v*100) / 100; math.Abs(cents-v) > 1e-9*math.Max(1, v) {
		return 0, errors.New("must not have more than two decimal places")
	}
	return v, nil
}
