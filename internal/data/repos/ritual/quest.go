package ritual

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/firstflame-backend/internal/domain/ritual"
	"github.com/yungbote/firstflame-backend/internal/platform/dbctx"
	"github.com/yungbote/firstflame-backend/internal/platform/logger"
)

type QuestRepo interface {
	GetBySlug(dbc dbctx.Context, slug string) (*types.Quest, error)
	// EnsureBySlug inserts q when its slug is unknown and returns the stored row either way.
	EnsureBySlug(dbc dbctx.Context, q *types.Quest) (*types.Quest, error)
}

type questRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestRepo(db *gorm.DB, baseLog *logger.Logger) QuestRepo {
	return &questRepo{db: db, log: baseLog.With("repo", "QuestRepo")}
}

func (r *questRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *questRepo) GetBySlug(dbc dbctx.Context, slug string) (*types.Quest, error) {
	t := r.dbx(dbc)
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, nil
	}
	var row types.Quest
	err := t.WithContext(dbc.Ctx).Where("slug = ?", slug).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *questRepo) EnsureBySlug(dbc dbctx.Context, q *types.Quest) (*types.Quest, error) {
	t := r.dbx(dbc)
	if q == nil || strings.TrimSpace(q.Slug) == "" {
		return nil, errors.New("quest slug is required")
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	q.UpdatedAt = now
	if err := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
		Create(q).Error; err != nil {
		return nil, err
	}
	return r.GetBySlug(dbc, q.Slug)
}
