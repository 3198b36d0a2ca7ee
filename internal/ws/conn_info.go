package ws

import "time"

// ConnInfo identifies a websocket connection in logs and ws events.
type ConnInfo struct {
	ConnID      string
	UserID      string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
