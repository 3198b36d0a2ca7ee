// Package ledger owns the request lifecycle: creating a request together with
// its fan-out copies, accepting, completing and lazily expiring them.
//
// Authoritative writes happen inline. Push notifications, realtime emits and
// lifecycle events are scheduled on the task runner after the write commits
// and never affect the result of the call.
package ledger

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"cash-request-service/internal/lifecycle"
	"cash-request-service/internal/logger"
	"cash-request-service/internal/notify"
	"cash-request-service/internal/repositories"
)

// Notifier delivers push notifications best-effort.
type Notifier interface {
	Dispatch(ctx context.Context, n notify.Notification) notify.Report
}

// Relay emits realtime events to a user's room.
type Relay interface {
	EmitToUser(userID, event string, payload any)
}

// EventEmitter publishes lifecycle events to the event bus.
type EventEmitter interface {
	Emit(ctx context.Context, eventType, requestID, actorID string, payload map[string]any)
}

// Runner schedules background side effects.
type Runner interface {
	Go(name string, fn func(ctx context.Context))
}

// Dependencies wires the ledger to its collaborators. Users, Requests and
// Conversations are required; the rest fall back to no-ops.
type Dependencies struct {
	Users         repositories.UserRepository
	Requests      repositories.RequestRepository
	Conversations repositories.ConversationRepository

	Notifier Notifier
	Relay    Relay
	Events   EventEmitter
	Tasks    Runner
	Logger   *logger.Logger

	TTL             time.Duration
	DefaultRadiusKm float64
	Now             func() time.Time
}

// Service implements the request ledger.
type Service struct {
	users         repositories.UserRepository
	requests      repositories.RequestRepository
	conversations repositories.ConversationRepository

	notifier Notifier
	relay    Relay
	events   EventEmitter
	tasks    Runner
	log      *logger.Logger
	tracer   trace.Tracer

	ttl      time.Duration
	radiusKm float64
	now      func() time.Time
}

// New constructs a Service.
func New(deps Dependencies) *Service {
	s := &Service{
		users:         deps.Users,
		requests:      deps.Requests,
		conversations: deps.Conversations,
		notifier:      deps.Notifier,
		relay:         deps.Relay,
		events:        deps.Events,
		tasks:         deps.Tasks,
		log:           deps.Logger,
		tracer:        otel.Tracer("cash-request-service/ledger"),
		ttl:           deps.TTL,
		radiusKm:      deps.DefaultRadiusKm,
		now:           deps.Now,
	}
	if s.notifier == nil {
		s.notifier = noopNotifier{}
	}
	if s.relay == nil {
		s.relay = noopRelay{}
	}
	if s.events == nil {
		s.events = noopEvents{}
	}
	if s.tasks == nil {
		s.tasks = inlineRunner{}
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	s.log = s.log.Named("ledger")
	if s.ttl <= 0 {
		s.ttl = lifecycle.DefaultTTL
	}
	if s.radiusKm <= 0 {
		s.radiusKm = 5
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

type noopNotifier struct{}

func (noopNotifier) Dispatch(context.Context, notify.Notification) notify.Report {
	return notify.Report{Skipped: true}
}

type noopRelay struct{}

func (noopRelay) EmitToUser(string, string, any) {}

type noopEvents struct{}

func (noopEvents) Emit(context.Context, string, string, string, map[string]any) {}

// inlineRunner runs tasks synchronously on a detached context.
type inlineRunner struct{}

func (inlineRunner) Go(_ string, fn func(ctx context.Context)) {
	fn(context.Background())
}
