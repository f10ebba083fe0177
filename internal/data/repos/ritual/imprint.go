package ritual

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/firstflame-backend/internal/domain/ritual"
	"github.com/yungbote/firstflame-backend/internal/platform/dbctx"
	"github.com/yungbote/firstflame-backend/internal/platform/logger"
)

type ImprintRepo interface {
	Create(dbc dbctx.Context, row *types.Imprint) (*types.Imprint, error)
	ListByUserQuest(dbc dbctx.Context, userID uuid.UUID, questID string) ([]*types.Imprint, error)
}

type imprintRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewImprintRepo(db *gorm.DB, baseLog *logger.Logger) ImprintRepo {
	return &imprintRepo{db: db, log: baseLog.With("repo", "ImprintRepo")}
}

func (r *imprintRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *imprintRepo) Create(dbc dbctx.Context, row *types.Imprint) (*types.Imprint, error) {
	t := r.dbx(dbc)
	if row == nil {
		return nil, nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}
	if err := t.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *imprintRepo) ListByUserQuest(dbc dbctx.Context, userID uuid.UUID, questID string) ([]*types.Imprint, error) {
	t := r.dbx(dbc)
	out := []*types.Imprint{}
	if userID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND quest_id = ?", userID, questID).
		Order("day ASC, created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
