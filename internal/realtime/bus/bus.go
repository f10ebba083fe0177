package bus

import (
	"context"

	"github.com/yungbote/firstflame-backend/internal/platform/logger"
	"github.com/yungbote/firstflame-backend/internal/realtime"
)

// Bus fans SSE messages out across server instances.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}

// ForwardToHub delivers bus traffic to the streams connected to hub until ctx ends. Only
// ready events on per-user channels pass; the bus channel may be shared with other
// publishers.
func ForwardToHub(ctx context.Context, b Bus, hub *realtime.SSEHub, log *logger.Logger) error {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With("component", "bus.ForwardToHub")
	return b.StartForwarder(ctx, func(m realtime.SSEMessage) {
		userID, ok := realtime.UserFromChannel(m.Channel)
		if !ok || m.Event != realtime.SSEEventReady {
			log.Debug("dropping foreign SSE message", "channel", m.Channel, "event", m.Event)
			return
		}
		if n := hub.Broadcast(m); n == 0 {
			log.Debug("no local streams for user", "user_id", userID)
		}
	})
}
