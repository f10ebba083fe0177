package ritual

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/firstflame-backend/internal/domain/ritual"
	"github.com/yungbote/firstflame-backend/internal/platform/dbctx"
	"github.com/yungbote/firstflame-backend/internal/platform/logger"
)

type LeaseRepo interface {
	// TryAcquire inserts the lease, or takes over an expired one. It reports false when a live
	// lease is held by someone else.
	TryAcquire(dbc dbctx.Context, l *types.Lease) (bool, error)
	Release(dbc dbctx.Context, userID uuid.UUID, questID, token string) (bool, error)
	DeleteExpired(dbc dbctx.Context, now time.Time) (int64, error)
	Get(dbc dbctx.Context, userID uuid.UUID, questID string) (*types.Lease, error)
}

type leaseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLeaseRepo(db *gorm.DB, baseLog *logger.Logger) LeaseRepo {
	return &leaseRepo{db: db, log: baseLog.With("repo", "LeaseRepo")}
}

func (r *leaseRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *leaseRepo) TryAcquire(dbc dbctx.Context, l *types.Lease) (bool, error) {
	t := r.dbx(dbc).WithContext(dbc.Ctx)
	res := t.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "quest_id"}},
		DoNothing: true,
	}).Create(l)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	// Reclaim only if the current holder has expired; the expires_at predicate is the CAS.
	res = t.Model(&types.Lease{}).
		Where("user_id = ? AND quest_id = ? AND expires_at <= ?", l.UserID, l.QuestID, l.AcquiredAt).
		Updates(map[string]any{
			"token":       l.Token,
			"acquired_at": l.AcquiredAt,
			"expires_at":  l.ExpiresAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *leaseRepo) Release(dbc dbctx.Context, userID uuid.UUID, questID, token string) (bool, error) {
	t := r.dbx(dbc)
	res := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND quest_id = ? AND token = ?", userID, questID, token).
		Delete(&types.Lease{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *leaseRepo) DeleteExpired(dbc dbctx.Context, now time.Time) (int64, error) {
	t := r.dbx(dbc)
	res := t.WithContext(dbc.Ctx).Where("expires_at <= ?", now.UTC()).Delete(&types.Lease{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *leaseRepo) Get(dbc dbctx.Context, userID uuid.UUID, questID string) (*types.Lease, error) {
	t := r.dbx(dbc)
	var rows []*types.Lease
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND quest_id = ?", userID, questID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}
