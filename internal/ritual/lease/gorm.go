package lease

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/firstflame-backend/internal/data/repos"
	"github.com/yungbote/firstflame-backend/internal/domain/ritual"
	"github.com/yungbote/firstflame-backend/internal/platform/dbctx"
	"github.com/yungbote/firstflame-backend/internal/platform/logger"
)

// GormManager stores leases in ritual_advancement_lease. Expired rows are taken over on
// acquire and removed by the Sweeper.
type GormManager struct {
	repo repos.LeaseRepo
	ttl  time.Duration
	log  *logger.Logger
	now  func() time.Time
}

func NewGormManager(repo repos.LeaseRepo, ttl time.Duration, baseLog *logger.Logger) *GormManager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &GormManager{
		repo: repo,
		ttl:  ttl,
		log:  baseLog.With("service", "GormLeaseManager"),
		now:  func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (m *GormManager) Acquire(ctx context.Context, userID uuid.UUID, questID string) (*Handle, error) {
	now := m.now()
	row := &ritual.Lease{
		UserID:     userID,
		QuestID:    questID,
		Token:      uuid.NewString(),
		AcquiredAt: now,
		ExpiresAt:  now.Add(m.ttl),
	}
	ok, err := m.repo.TryAcquire(dbctx.Of(ctx), row)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ritual.ErrAlreadyActive
	}
	return newHandle(userID, questID, row.Token, row.ExpiresAt, func(ctx context.Context) error {
		released, err := m.repo.Release(dbctx.Of(ctx), userID, questID, row.Token)
		if err != nil {
			return err
		}
		if !released {
			m.log.Warn("lease expired before release", "user_id", userID, "quest_id", questID)
		}
		return nil
	}), nil
}

// Sweep deletes every lease whose TTL has passed.
func (m *GormManager) Sweep(ctx context.Context) (int64, error) {
	return m.repo.DeleteExpired(dbctx.Of(ctx), m.now())
}
