package models

// Realtime event names emitted to user and conversation rooms.
const (
	EventRequestAccepted  = "requestAccepted"
	EventRequestCompleted = "requestCompleted"
	EventNewMessage       = "newMessage"
	EventIncomingCall     = "incomingCall"
	EventCallAccepted     = "callAccepted"
	EventCallEnded        = "callEnded"
)

// RealtimeEvent is the frame written to websocket clients.
type RealtimeEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// RequestAcceptedPayload carries everything the requester needs to deep-link into the chat.
type RequestAcceptedPayload struct {
	RequestID           string `json:"requestId"`
	ChatID              string `json:"chatId"`
	AcceptorID          string `json:"acceptorId"`
	AcceptorName        string `json:"acceptorName"`
	RequestAmount       string `json:"requestAmount"`
	RequestTip          string `json:"requestTip"`
	RequestInstructions string `json:"requestInstructions"`
	RequestType         string `json:"requestType"`
	RequesterID         string `json:"requesterId"`
}

// RequestCompletedPayload tells the chosen acceptor the deal is closed.
type RequestCompletedPayload struct {
	RequestID     string `json:"requestId"`
	RequesterID   string `json:"requesterId"`
	RequesterName string `json:"requesterName"`
	Amount        string `json:"amount"`
}

// CallSignal is emitted to a conversation room for call signaling.
type CallSignal struct {
	ChatID      string `json:"chatId"`
	CallerID    string `json:"callerId,omitempty"`
	RecipientID string `json:"recipientId,omitempty"`
	AcceptorID  string `json:"acceptorId,omitempty"`
	EnderID     string `json:"enderId,omitempty"`
}
