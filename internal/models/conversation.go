package models

import "time"

// Conversation is a private chat opened by accepting a request.
type Conversation struct {
	ID          string    `db:"id" json:"id"`
	RequestID   string    `db:"request_id" json:"requestId"`
	RequesterID string    `db:"requester_id" json:"requesterId"`
	RecipientID string    `db:"recipient_id" json:"recipientId"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// HasParticipant reports whether userID belongs to the conversation.
func (c Conversation) HasParticipant(userID string) bool {
	return c.RequesterID == userID || c.RecipientID == userID
}

// Other returns the participant that is not userID.
func (c Conversation) Other(userID string) string {
	if c.RequesterID == userID {
		return c.RecipientID
	}
	return c.RequesterID
}

// Message is a chat message inside a conversation.
type Message struct {
	ID             int64     `db:"id" json:"id"`
	ConversationID string    `db:"conversation_id" json:"conversationId"`
	SenderID       string    `db:"sender_id" json:"senderId"`
	SenderName     string    `db:"-" json:"senderName,omitempty"`
	Text           string    `db:"text" json:"text"`
	IsSystem       bool      `db:"is_system" json:"isSystemMessage"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// CallStatus is the state of a call session on a conversation.
type CallStatus string

const (
	CallIdle    CallStatus = "idle"
	CallRinging CallStatus = "calling"
	CallActive  CallStatus = "active"
)

// CallSession is the signaling state for a call, kept with an explicit expiry.
type CallSession struct {
	ConversationID string     `db:"conversation_id" json:"chatId"`
	CallerID       string     `db:"caller_id" json:"callerId"`
	RecipientID    string     `db:"recipient_id" json:"recipientId"`
	Status         CallStatus `db:"status" json:"callStatus"`
	ExpiresAt      time.Time  `db:"expires_at" json:"expiresAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}
