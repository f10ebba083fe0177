package realtime

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/firstflame-backend/internal/platform/logger"
)

type SSEEvent string

// SSEEventReady tells subscribers that the user's ritual state may have changed.
const SSEEventReady SSEEvent = "ready"

const userChannelPrefix = "ritual:"

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// UserChannel is the per-user channel every ritual session subscribes to.
func UserChannel(userID uuid.UUID) string {
	return userChannelPrefix + userID.String()
}

// UserFromChannel parses a channel produced by UserChannel.
func UserFromChannel(channel string) (uuid.UUID, bool) {
	if !strings.HasPrefix(channel, userChannelPrefix) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimPrefix(channel, userChannelPrefix))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

type SSEClient struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
	once     sync.Once
	Logger   *logger.Logger
}

// Done is closed when the client is closed by the hub.
func (c *SSEClient) Done() <-chan struct{} { return c.done }
