package ritual

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/firstflame-backend/internal/domain/ritual"
	"github.com/yungbote/firstflame-backend/internal/platform/dbctx"
	"github.com/yungbote/firstflame-backend/internal/platform/logger"
)

type ProgressProjectionRepo interface {
	// GetByUser returns (nil, nil) when the user has no projection yet.
	GetByUser(dbc dbctx.Context, userID uuid.UUID) (*types.ProgressProjection, error)
	// CreateIfMissing inserts p unless a row exists. The bool reports whether p was inserted.
	CreateIfMissing(dbc dbctx.Context, p *types.ProgressProjection) (bool, error)
	ListUserIDs(dbc dbctx.Context, afterUserID uuid.UUID, limit int) ([]uuid.UUID, error)
}

type progressProjectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressProjectionRepo(db *gorm.DB, baseLog *logger.Logger) ProgressProjectionRepo {
	return &progressProjectionRepo{db: db, log: baseLog.With("repo", "ProgressProjectionRepo")}
}

func (r *progressProjectionRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *progressProjectionRepo) GetByUser(dbc dbctx.Context, userID uuid.UUID) (*types.ProgressProjection, error) {
	t := r.dbx(dbc)
	if userID == uuid.Nil {
		return nil, nil
	}
	var row types.ProgressProjection
	err := t.WithContext(dbc.Ctx).Where("user_id = ?", userID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *progressProjectionRepo) CreateIfMissing(dbc dbctx.Context, p *types.ProgressProjection) (bool, error) {
	t := r.dbx(dbc)
	if p == nil || p.UserID == uuid.Nil {
		return false, nil
	}
	res := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(p)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListUserIDs pages through projection owners in user_id order.
func (r *progressProjectionRepo) ListUserIDs(dbc dbctx.Context, afterUserID uuid.UUID, limit int) ([]uuid.UUID, error) {
	t := r.dbx(dbc)
	if limit <= 0 {
		limit = 500
	}
	q := t.WithContext(dbc.Ctx).Model(&types.ProgressProjection{}).Order("user_id ASC").Limit(limit)
	if afterUserID != uuid.Nil {
		q = q.Where("user_id > ?", afterUserID)
	}
	out := []uuid.UUID{}
	if err := q.Pluck("user_id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
