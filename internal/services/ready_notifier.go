package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/firstflame-backend/internal/domain/ritual"
	"github.com/yungbote/firstflame-backend/internal/observability"
	"github.com/yungbote/firstflame-backend/internal/platform/ctxutil"
	"github.com/yungbote/firstflame-backend/internal/platform/logger"
	"github.com/yungbote/firstflame-backend/internal/realtime"
)

const DefaultNotifyTimeout = 5 * time.Second

// ReadyNotifier tells every session of a user that their ritual state may have changed.
// Delivery is at most once and never blocks the caller.
type ReadyNotifier interface {
	NotifyReady(ctx context.Context, userID uuid.UUID)
	// Wait blocks until in-flight notifications finish or time out.
	Wait()
}

type readyNotifier struct {
	emit    SSEEmitter
	log     *logger.Logger
	metrics *observability.Metrics
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewReadyNotifier(emit SSEEmitter, log *logger.Logger, metrics *observability.Metrics, timeout time.Duration) ReadyNotifier {
	if log == nil {
		log = logger.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	return &readyNotifier{
		emit:    emit,
		log:     log.With("service", "ReadyNotifier"),
		metrics: metrics,
		timeout: timeout,
	}
}

func (n *readyNotifier) NotifyReady(ctx context.Context, userID uuid.UUID) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	// Detached from the request so a finished handler does not cancel delivery.
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	log := n.log.With(ctxutil.LogFields(ctx)...)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer cancel()
		err := n.publish(nctx, userID)
		switch {
		case err == nil:
			n.metrics.IncNotification("success")
		case errors.Is(err, ritual.ErrNotifyTimeout):
			n.metrics.IncNotification("timeout")
			log.Error("ready notification timed out", "user_id", userID, "timeout_ms", n.timeout.Milliseconds(), "error", err)
		default:
			n.metrics.IncNotification("error")
			log.Error("ready notification failed", "user_id", userID, "error", err)
		}
	}()
}

// publish bounds the emitter by ctx even when the emitter itself ignores cancellation.
func (n *readyNotifier) publish(ctx context.Context, userID uuid.UUID) error {
	done := make(chan error, 1)
	go func() {
		done <- n.emit.Emit(ctx, realtime.SSEMessage{
			Channel: realtime.UserChannel(userID),
			Event:   realtime.SSEEventReady,
		})
	}()
	select {
	case err := <-done:
		if errors.Is(err, context.DeadlineExceeded) {
			return errors.Join(ritual.ErrNotifyTimeout, err)
		}
		return err
	case <-ctx.Done():
		return errors.Join(ritual.ErrNotifyTimeout, ctx.Err())
	}
}

func (n *readyNotifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}
