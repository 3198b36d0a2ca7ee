package ws

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"cash-request-service/internal/logger"
	"cash-request-service/internal/models"
)

const relaySubjectPrefix = "relay."

// relayFrame is what travels over NATS between instances.
type relayFrame struct {
	Room    string          `json:"room"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NATSBridge publishes emits to NATS so every instance delivers them to its
// own sockets. If publishing fails the event is delivered locally only.
type NATSBridge struct {
	nc  *nats.Conn
	sub *nats.Subscription
	hub *Hub
	log *logger.Logger
}

// NewNATSBridge connects to url and starts relaying into hub.
func NewNATSBridge(url string, hub *Hub, log *logger.Logger) (*NATSBridge, error) {
	if log == nil {
		log = logger.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("cash-request-service"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	b := &NATSBridge{nc: nc, hub: hub, log: log.Named("relay")}
	sub, err := nc.Subscribe(relaySubjectPrefix+">", b.handle)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe relay: %w", err)
	}
	b.sub = sub
	return b, nil
}

// EmitToUser relays an event to a user room on every instance.
func (b *NATSBridge) EmitToUser(userID, event string, payload any) {
	b.publish(relaySubjectPrefix+"user."+userID, UserRoom(userID), event, payload)
}

// EmitToConversation relays an event to a conversation room on every instance.
func (b *NATSBridge) EmitToConversation(conversationID, event string, payload any) {
	b.publish(relaySubjectPrefix+"conversation."+conversationID, ConversationRoom(conversationID), event, payload)
}

func (b *NATSBridge) publish(subject, room, event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		b.log.Error("encode relay payload", zap.String("event", event), zap.Error(err))
		return
	}
	data, err := json.Marshal(relayFrame{Room: room, Type: event, Payload: raw})
	if err != nil {
		b.log.Error("encode relay frame", zap.String("event", event), zap.Error(err))
		return
	}
	if err := b.nc.Publish(subject, data); err != nil {
		b.log.Warn("relay publish failed, delivering locally", zap.String("subject", subject), zap.Error(err))
		b.hub.Broadcast(room, models.RealtimeEvent{Type: event, Payload: json.RawMessage(raw)})
	}
}

func (b *NATSBridge) handle(msg *nats.Msg) {
	var frame relayFrame
	if err := json.Unmarshal(msg.Data, &frame); err != nil {
		b.log.Warn("drop malformed relay frame", zap.String("subject", msg.Subject), zap.Error(err))
		return
	}
	event := models.RealtimeEvent{Type: frame.Type}
	if len(frame.Payload) > 0 {
		event.Payload = frame.Payload
	}
	b.hub.Broadcast(frame.Room, event)
}

// Close drains the subscription and the connection.
func (b *NATSBridge) Close() error {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	return b.nc.Drain()
}
