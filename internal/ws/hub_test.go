package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cash-request-service/internal/models"
)

type fakeConn struct {
	mu      sync.Mutex
	frames  [][]byte
	failErr error
	closed  bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failErr != nil {
		return c.failErr
	}
	c.frames = append(c.frames, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(f, &m))
		out = append(out, m)
	}
	return out
}

func TestHubAddAndRemove(t *testing.T) {
	hub := NewHub(nil)
	conn := &fakeConn{}

	hub.Add(UserRoom("u1"), conn, ConnInfo{})
	assert.Equal(t, 1, hub.RoomSize(UserRoom("u1")))

	hub.Remove(UserRoom("u1"), conn)
	assert.Equal(t, 0, hub.RoomSize(UserRoom("u1")))
	assert.Empty(t, hub.rooms)
}

func TestEmitToUserReachesOnlyThatRoom(t *testing.T) {
	hub := NewHub(nil)
	mine, other := &fakeConn{}, &fakeConn{}
	hub.Add(UserRoom("requester"), mine, ConnInfo{})
	hub.Add(UserRoom("someone"), other, ConnInfo{})

	hub.EmitToUser("requester", models.EventRequestAccepted, models.RequestAcceptedPayload{RequestID: "r1", ChatID: "c1"})

	events := mine.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventRequestAccepted, events[0]["type"])
	assert.Equal(t, "c1", events[0]["payload"].(map[string]any)["chatId"])
	assert.Empty(t, other.events(t))
}

func TestBroadcastDropsBrokenConnections(t *testing.T) {
	hub := NewHub(nil)
	good, bad := &fakeConn{}, &fakeConn{failErr: errors.New("broken pipe")}
	room := ConversationRoom("c1")
	hub.Add(room, good, ConnInfo{})
	hub.Add(room, bad, ConnInfo{})

	hub.EmitToConversation("c1", models.EventNewMessage, map[string]string{"text": "hi"})

	assert.Len(t, good.events(t), 1)
	assert.True(t, bad.closed)
	assert.Equal(t, 1, hub.RoomSize(room))
}

func TestBridgeHandleDeliversFrame(t *testing.T) {
	hub := NewHub(nil)
	conn := &fakeConn{}
	hub.Add(ConversationRoom("c1"), conn, ConnInfo{})
	b := &NATSBridge{hub: hub, log: hub.log}

	data, err := json.Marshal(relayFrame{Room: ConversationRoom("c1"), Type: models.EventCallEnded, Payload: json.RawMessage(`{"chatId":"c1"}`)})
	require.NoError(t, err)
	b.handle(&nats.Msg{Subject: "relay.conversation.c1", Data: data})
	b.handle(&nats.Msg{Subject: "relay.conversation.c1", Data: []byte("not json")})

	events := conn.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventCallEnded, events[0]["type"])
	assert.Equal(t, "c1", events[0]["payload"].(map[string]any)["chatId"])
}
