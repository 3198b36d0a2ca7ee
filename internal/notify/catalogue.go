package notify

import (
	"fmt"
	"strconv"

	"cash-request-service/internal/models"
)

// Notification types understood by the mobile client.
const (
	TypeNewRequest      = "NEW_REQUEST_RECEIVED"
	TypeRequestAccepted = "REQUEST_ACCEPTED_BY_USER"
	TypeTransactionDone = "TRANSACTION_COMPLETED"
	TypeNewChatMessage  = "NEW_CHAT_MESSAGE"
)

// FormatAmount renders an amount without trailing zeros.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// NewRequestReceived is the broadcast sent to every selected recipient.
func NewRequestReceived(req models.Request, tokens []string, requesterToken string) Notification {
	typeText := "Online Payment"
	if req.Kind == models.KindCash {
		typeText = "Cash"
	}
	return Notification{
		Type:    TypeNewRequest,
		Tokens:  tokens,
		Exclude: []string{requesterToken},
		Title:   fmt.Sprintf("💰 New %s Request Nearby!", typeText),
		Body:    fmt.Sprintf("%s is looking for ₹%s. Tap to view and accept.", req.RequesterName, FormatAmount(req.Amount)),
		Data:    map[string]string{"requestId": req.ID},
	}
}

// RequestAccepted tells the requester someone accepted, with deep-link data.
func RequestAccepted(token string, p models.RequestAcceptedPayload) Notification {
	return Notification{
		Type:   TypeRequestAccepted,
		Tokens: []string{token},
		Title:  "🤝 Offer Accepted!",
		Body:   fmt.Sprintf("%s has accepted your request for ₹%s. Tap to chat.", p.AcceptorName, p.RequestAmount),
		Data: map[string]string{
			"requestId":           p.RequestID,
			"chatId":              p.ChatID,
			"acceptorId":          p.AcceptorID,
			"acceptorName":        p.AcceptorName,
			"requestAmount":       p.RequestAmount,
			"requestTip":          p.RequestTip,
			"requestInstructions": p.RequestInstructions,
			"requestType":         p.RequestType,
			"requesterId":         p.RequesterID,
		},
	}
}

// TransactionCompleted tells the chosen acceptor the deal is closed.
func TransactionCompleted(token string, p models.RequestCompletedPayload) Notification {
	return Notification{
		Type:   TypeTransactionDone,
		Tokens: []string{token},
		Title:  "✅ Transaction Complete!",
		Body:   fmt.Sprintf("%s has marked the deal for ₹%s as completed.", p.RequesterName, p.Amount),
		Data:   map[string]string{"requestId": p.RequestID},
	}
}

// NewChatMessage notifies the other participant of a conversation.
func NewChatMessage(token, senderName string, msg models.Message) Notification {
	return Notification{
		Type:   TypeNewChatMessage,
		Tokens: []string{token},
		Title:  fmt.Sprintf("💬 New message from %s", senderName),
		Body:   msg.Text,
		Data: map[string]string{
			"chatId":   msg.ConversationID,
			"senderId": msg.SenderID,
		},
	}
}
