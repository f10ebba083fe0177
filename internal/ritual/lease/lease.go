// Package lease guards a user's ritual advancement so only one attempt per (user, quest) is
// in flight. Leases carry a TTL so a crashed holder never blocks the user for good.
package lease

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultTTL = 30 * time.Second

// Manager hands out exclusive advancement leases. Acquire returns ritual.ErrAlreadyActive
// when a live lease is held by another attempt.
type Manager interface {
	Acquire(ctx context.Context, userID uuid.UUID, questID string) (*Handle, error)
}

// Handle is a held lease. Release is safe to call more than once.
type Handle struct {
	UserID    uuid.UUID
	QuestID   string
	Token     string
	ExpiresAt time.Time

	once    sync.Once
	release func(ctx context.Context) error
}

func newHandle(userID uuid.UUID, questID, token string, expiresAt time.Time, release func(ctx context.Context) error) *Handle {
	return &Handle{UserID: userID, QuestID: questID, Token: token, ExpiresAt: expiresAt, release: release}
}

func (h *Handle) Release(ctx context.Context) error {
	if h == nil || h.release == nil {
		return nil
	}
	var err error
	h.once.Do(func() { err = h.release(ctx) })
	return err
}
