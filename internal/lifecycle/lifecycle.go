// Package lifecycle defines the legal status transitions of a request copy.
//
// Each stored copy of a request runs its own small automaton:
//
//	pending --accept (incoming)--------------> accepted
//	pending --acceptor appended (sent)-------> active
//	active  --complete (sent)----------------> completed   absorbing
//	pending --expire (sweeper, age > TTL)----> expired     absorbing
//
// Persistence applies a transition as a conditional write whose predicate is
// the set returned by Sources, so two racing writers cannot both succeed.
package lifecycle

import (
	"fmt"
	"time"

	"cash-request-service/internal/models"
)

// Event drives a transition.
type Event string

const (
	EventAccept           Event = "accept"
	EventAcceptorAppended Event = "acceptor_appended"
	EventComplete         Event = "complete"
	EventExpire           Event = "expire"
)

// DefaultTTL is the age after which a pending copy expires.
const DefaultTTL = 24 * time.Hour

// IllegalTransitionError reports an event that is not allowed from a status.
type IllegalTransitionError struct {
	Role  models.Role
	From  models.Status
	Event Event
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition: %s copy in %s cannot %s", e.Role, e.From, e.Event)
}

type edge struct {
	role  models.Role
	from  models.Status
	event Event
}

var transitions = map[edge]models.Status{
	{models.RoleIncoming, models.StatusPending, EventAccept}:       models.StatusAccepted,
	{models.RoleSent, models.StatusPending, EventAcceptorAppended}: models.StatusActive,
	{models.RoleSent, models.StatusActive, EventComplete}:          models.StatusCompleted,
	{models.RoleSent, models.StatusPending, EventExpire}:           models.StatusExpired,
	{models.RoleIncoming, models.StatusPending, EventExpire}:       models.StatusExpired,
}

var order = []models.Status{
	models.StatusPending,
	models.StatusAccepted,
	models.StatusDeclined,
	models.StatusActive,
	models.StatusCompleted,
	models.StatusExpired,
}

// Initial is the status every copy is created with.
func Initial() models.Status {
	return models.StatusPending
}

// Next returns the status reached by applying event to a copy in from.
func Next(role models.Role, from models.Status, event Event) (models.Status, error) {
	to, ok := transitions[edge{role, from, event}]
	if !ok {
		return from, &IllegalTransitionError{Role: role, From: from, Event: event}
	}
	return to, nil
}

// Sources lists the statuses from which event is legal for role, in a stable order.
func Sources(role models.Role, event Event) []models.Status {
	var out []models.Status
	for _, s := range order {
		if _, ok := transitions[edge{role, s, event}]; ok {
			out = append(out, s)
		}
	}
	return out
}

// AcceptingStatuses lists the sent-copy statuses that still take new acceptors.
func AcceptingStatuses() []models.Status {
	return []models.Status{models.StatusPending, models.StatusActive}
}

// Terminal reports whether no event can move a copy out of s.
func Terminal(s models.Status) bool {
	return s == models.StatusCompleted || s == models.StatusExpired
}

// Stale reports whether a copy created at createdAt is older than ttl at now.
func Stale(createdAt, now time.Time, ttl time.Duration) bool {
	return now.Sub(createdAt) > ttl
}
