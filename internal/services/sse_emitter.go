package services

import (
	"context"
	"fmt"

	"github.com/yungbote/firstflame-backend/internal/realtime"
	"github.com/yungbote/firstflame-backend/internal/realtime/bus"
)

type SSEEmitter interface {
	Emit(ctx context.Context, msg realtime.SSEMessage) error
}

// HubEmitter delivers to the streams connected to this instance.
type HubEmitter struct{ Hub *realtime.SSEHub }

func (e *HubEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) error {
	if e == nil || e.Hub == nil {
		return fmt.Errorf("sse hub not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	e.Hub.Broadcast(msg)
	return nil
}

// RedisEmitter publishes to the bus; every instance's forwarder feeds its own hub.
type RedisEmitter struct{ Bus bus.Bus }

func (e *RedisEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) error {
	if e == nil || e.Bus == nil {
		return fmt.Errorf("sse bus not configured")
	}
	return e.Bus.Publish(ctx, msg)
}
