package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"cash-request-service/internal/lifecycle"
	"cash-request-service/internal/models"
	"cash-request-service/internal/observability"
	"cash-request-service/internal/telemetry"
)

// Sweep expires the user's copies that outlived the TTL in a status expiry
// applies to. It is idempotent and safe to call on every read.
func (s *Service) Sweep(ctx context.Context, userID string) error {
	cutoff := s.now().Add(-s.ttl)
	for _, role := range []models.Role{models.RoleSent, models.RoleIncoming} {
		from := lifecycle.Sources(role, lifecycle.EventExpire)
		if len(from) == 0 {
			continue
		}
		n, err := s.requests.ExpireCopies(ctx, userID, role, from, cutoff)
		if err != nil {
			return fmt.Errorf("expire %s copies: %w", role, err)
		}
		if n == 0 {
			continue
		}
		observability.AddSwept(string(role), n)
		s.log.Debug("expired stale copies", zap.String("user_id", userID), zap.String("role", string(role)), zap.Int64("count", n))
		if role == models.RoleSent {
			s.tasks.Go("request.expired", func(ctx context.Context) {
				s.events.Emit(ctx, telemetry.EventRequestExpired, "", userID, map[string]any{"count": n})
			})
		}
	}
	return nil
}
