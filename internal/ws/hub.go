package ws

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cash-request-service/internal/logger"
	"cash-request-service/internal/models"
	"cash-request-service/internal/observability"
)

const (
	userRoomPrefix         = "user:"
	conversationRoomPrefix = "conversation:"
)

// UserRoom names the room every socket of a user joins.
func UserRoom(userID string) string {
	return userRoomPrefix + userID
}

// ConversationRoom names the room of a conversation.
func ConversationRoom(conversationID string) string {
	return conversationRoomPrefix + conversationID
}

func roomKind(room string) string {
	if strings.HasPrefix(room, conversationRoomPrefix) {
		return "conversation"
	}
	return "user"
}

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Emitter delivers realtime events to user and conversation rooms. Emits are
// fire-and-forget.
type Emitter interface {
	EmitToUser(userID, event string, payload any)
	EmitToConversation(conversationID, event string, payload any)
}

type client struct {
	conn Conn
	info ConnInfo
	mu   sync.Mutex
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub maintains active websocket rooms on this instance.
type Hub struct {
	rooms map[string]map[Conn]*client
	mu    sync.RWMutex
	log   *logger.Logger
}

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.NewNop()
	}
	return &Hub{
		rooms: make(map[string]map[Conn]*client),
		log:   log.Named("ws"),
	}
}

// Add registers a connection in a room.
func (h *Hub) Add(room string, conn Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[Conn]*client)
	}
	h.rooms[room][conn] = &client{conn: conn, info: info}
}

// Remove drops a connection from a room.
func (h *Hub) Remove(room string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[room]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, room)
		}
	}
}

// RoomSize returns the number of connections in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// EmitToUser delivers to the local sockets of a user.
func (h *Hub) EmitToUser(userID, event string, payload any) {
	h.Broadcast(UserRoom(userID), models.RealtimeEvent{Type: event, Payload: payload})
}

// EmitToConversation delivers to the local sockets joined to a conversation.
func (h *Hub) EmitToConversation(conversationID, event string, payload any) {
	h.Broadcast(ConversationRoom(conversationID), models.RealtimeEvent{Type: event, Payload: payload})
}

// Broadcast writes event to every connection in room. Broken connections are
// closed and removed.
func (h *Hub) Broadcast(room string, event models.RealtimeEvent) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.rooms[room]))
	for _, c := range h.rooms[room] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	if len(clients) == 0 {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("encode realtime event", zap.String("event", event.Type), zap.Error(err))
		return
	}

	kind := roomKind(room)
	for _, c := range clients {
		if err := c.write(payload); err != nil {
			h.log.Warn("websocket write error", zap.String("room", room), zap.String("conn_id", c.info.ConnID), zap.Error(err))
			c.conn.Close()
			h.Remove(room, c.conn)
			h.publishWSError(kind, room, c.info, err)
			continue
		}
		observability.IncWSEvent(kind, event.Type)
	}
}

func (h *Hub) publishWSError(kind, room string, info ConnInfo, err error) {
	publishWSEvent(context.Background(), kind, room, "ws_error", info, err.Error())
}

func publishWSEvent(ctx context.Context, kind, room, name string, info ConnInfo, reason string) {
	var duration int64
	if !info.ConnectedAt.IsZero() {
		duration = time.Since(info.ConnectedAt).Milliseconds()
	}
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        kind,
			"room":        room,
			"event":       name,
			"conn_id":     info.ConnID,
			"duration_ms": duration,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id": info.UserID,
			"ip":      info.IP,
		},
	}

	_ = observability.PublishEvent(ctx, "ws_events."+kind, payload, observability.BuildHeaders(info.RequestID, info.TraceID))
	observability.IncWSEvent(kind, name)
}
