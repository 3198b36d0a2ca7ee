package models

import "time"

// Kind is the settlement type of a request.
type Kind string

const (
	KindCash   Kind = "cash"
	KindOnline Kind = "online"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindCash || k == KindOnline
}

// Status is the state of one stored copy of a request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusDeclined  Status = "declined"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// Role distinguishes the requester's copy from a recipient's copy.
type Role string

const (
	RoleSent     Role = "sent"
	RoleIncoming Role = "incoming"
)

// Request holds the immutable fields shared by every copy.
type Request struct {
	ID            string    `db:"id" json:"id"`
	RequesterID   string    `db:"requester_id" json:"requesterId"`
	RequesterName string    `db:"requester_name" json:"requesterName"`
	Amount        float64   `db:"amount" json:"amount"`
	Tip           float64   `db:"tip" json:"tip"`
	Instructions  string    `db:"instructions" json:"instructions"`
	Kind          Kind      `db:"kind" json:"kind"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// Acceptor is a recipient who accepted a request, recorded on the sent copy.
type Acceptor struct {
	AcceptorID     string    `db:"acceptor_id" json:"acceptorId"`
	AcceptorName   string    `db:"acceptor_name" json:"acceptorName"`
	ConversationID string    `db:"conversation_id" json:"conversationId"`
	AcceptedAt     time.Time `db:"accepted_at" json:"acceptedAt"`
}

// RequestCopy is one user's projection of a request.
type RequestCopy struct {
	Request
	OwnerID        string     `db:"user_id" json:"-"`
	Role           Role       `db:"role" json:"-"`
	Status         Status     `db:"status" json:"status"`
	ConversationID *string    `db:"conversation_id" json:"conversationId,omitempty"`
	Acceptors      []Acceptor `db:"-" json:"acceptors,omitempty"`
}

// FindAcceptor returns the acceptor record for userID, if any.
func (c RequestCopy) FindAcceptor(userID string) (Acceptor, bool) {
	for _, a := range c.Acceptors {
		if a.AcceptorID == userID {
			return a, true
		}
	}
	return Acceptor{}, false
}
