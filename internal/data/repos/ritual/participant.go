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

type QuestParticipantRepo interface {
	Ensure(dbc dbctx.Context, questID, userID uuid.UUID, role string) (bool, error)
	Exists(dbc dbctx.Context, questID, userID uuid.UUID) (bool, error)
}

type questParticipantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestParticipantRepo(db *gorm.DB, baseLog *logger.Logger) QuestParticipantRepo {
	return &questParticipantRepo{db: db, log: baseLog.With("repo", "QuestParticipantRepo")}
}

func (r *questParticipantRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

// Ensure adds the membership row when missing. The bool reports whether a row was inserted.
func (r *questParticipantRepo) Ensure(dbc dbctx.Context, questID, userID uuid.UUID, role string) (bool, error) {
	t := r.dbx(dbc)
	if questID == uuid.Nil || userID == uuid.Nil {
		return false, nil
	}
	if role == "" {
		role = types.RoleParticipant
	}
	row := &types.QuestParticipant{
		ID:        uuid.New(),
		QuestID:   questID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	res := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "quest_id"}, {Name: "user_id"}}, DoNothing: true}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *questParticipantRepo) Exists(dbc dbctx.Context, questID, userID uuid.UUID) (bool, error) {
	t := r.dbx(dbc)
	var n int64
	if err := t.WithContext(dbc.Ctx).
		Model(&types.QuestParticipant{}).
		Where("quest_id = ? AND user_id = ?", questID, userID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
