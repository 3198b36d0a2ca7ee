package telemetry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"cash-request-service/internal/logger"
)

// Lifecycle event types published for downstream consumers.
const (
	EventRequestCreated   = "request.created"
	EventRequestAccepted  = "request.accepted"
	EventRequestCompleted = "request.completed"
	EventRequestExpired   = "request.expired"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// LifecycleEmitter publishes request lifecycle envelopes to the event bus.
// Publishing is best-effort: failures are logged and never reach the caller.
type LifecycleEmitter struct {
	publisher   Publisher
	service     string
	environment string
	log         *logger.Logger
}

type LifecycleEnvelope struct {
	SchemaVersion int            `json:"schema_version"`
	EventType     string         `json:"event_type"`
	OccurredAt    string         `json:"occurred_at"`
	Service       string         `json:"service"`
	Environment   string         `json:"environment"`
	RequestID     string         `json:"request_id"`
	ActorID       string         `json:"actor_id,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
}

func NewLifecycleEmitter(publisher Publisher, service, environment string, log *logger.Logger) *LifecycleEmitter {
	if log == nil {
		log = logger.NewNop()
	}
	return &LifecycleEmitter{
		publisher:   publisher,
		service:     service,
		environment: environment,
		log:         log.Named("lifecycle"),
	}
}

// Emit publishes eventType with routing key equal to the event type.
func (e *LifecycleEmitter) Emit(ctx context.Context, eventType, requestID, actorID string, payload map[string]any) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := LifecycleEnvelope{
		SchemaVersion: 1,
		EventType:     eventType,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		ActorID:       actorID,
		Payload:       payload,
	}

	if err := e.publisher.Publish(ctx, eventType, envelope); err != nil {
		e.log.Warn("lifecycle publish failed",
			zap.String("event_type", eventType),
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}
