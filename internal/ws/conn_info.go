package ws

import (
	"time"

	"github.com/google/uuid"
)

// ConnInfo is the per-connection metadata captured at handshake time and
// attached to every published socket event.
type ConnInfo struct {
	ConnID      string
	UserID      int
	Username    string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func newConnID() string {
	return uuid.NewString()
}
