package ritual

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/firstflame-backend/internal/domain/ritual"
	"github.com/yungbote/firstflame-backend/internal/platform/dbctx"
	"github.com/yungbote/firstflame-backend/internal/platform/logger"
)

// ProgressionEventRepo is append-only. There is intentionally no Update or Delete.
type ProgressionEventRepo interface {
	Append(dbc dbctx.Context, rows []*types.ProgressionEvent) ([]*types.ProgressionEvent, error)
	NextTimestamp(dbc dbctx.Context, userID uuid.UUID, questID string, now time.Time) (time.Time, error)
	ListByUserQuest(dbc dbctx.Context, userID uuid.UUID, questID string) ([]*types.ProgressionEvent, error)
	ListByUserQuestAfter(dbc dbctx.Context, userID uuid.UUID, questID string, after time.Time) ([]*types.ProgressionEvent, error)
	ListRecentByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.ProgressionEvent, error)
	CountByUserAndStage(dbc dbctx.Context, userID uuid.UUID, stage types.Stage) (int64, error)
}

type progressionEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressionEventRepo(db *gorm.DB, baseLog *logger.Logger) ProgressionEventRepo {
	return &progressionEventRepo{db: db, log: baseLog.With("repo", "ProgressionEventRepo")}
}

func (r *progressionEventRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

// Append stamps missing ids (UUIDv7) and timestamps, then inserts rows in order. Rows in one
// call share a timestamp unless the caller set one, so their ids decide the order. Stamped
// timestamps never go behind the user's latest event for the quest, whatever this host's clock says.
func (r *progressionEventRepo) Append(dbc dbctx.Context, rows []*types.ProgressionEvent) ([]*types.ProgressionEvent, error) {
	t := r.dbx(dbc)
	if len(rows) == 0 {
		return []*types.ProgressionEvent{}, nil
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	stamps := map[string]time.Time{}
	out := make([]*types.ProgressionEvent, 0, len(rows))
	for _, x := range rows {
		if x == nil {
			continue
		}
		if !x.Stage.Valid() {
			return nil, fmt.Errorf("invalid progression stage %q", x.Stage)
		}
		if x.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return nil, err
			}
			x.ID = id
		}
		if x.CreatedAt.IsZero() {
			at := now
			if x.UserID != nil {
				key := x.UserID.String() + "/" + x.QuestID
				stamp, ok := stamps[key]
				if !ok {
					var err error
					if stamp, err = r.NextTimestamp(dbc, *x.UserID, x.QuestID, now); err != nil {
						return nil, err
					}
					stamps[key] = stamp
				}
				at = stamp
			}
			x.CreatedAt = at
		}
		out = append(out, x)
	}
	if len(out) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// NextTimestamp returns now, or one microsecond past the latest event of userID/questID when
// that event is not older than now. It keeps the per-quest log ordered across hosts whose
// clocks disagree.
func (r *progressionEventRepo) NextTimestamp(dbc dbctx.Context, userID uuid.UUID, questID string, now time.Time) (time.Time, error) {
	now = now.UTC().Truncate(time.Microsecond)
	if userID == uuid.Nil || questID == "" {
		return now, nil
	}
	var latest types.ProgressionEvent
	err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ? AND quest_id = ?", userID, questID).
		Order("created_at DESC, id DESC").
		Take(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return now, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	if last := latest.CreatedAt.UTC(); !now.After(last) {
		return last.Add(time.Microsecond), nil
	}
	return now, nil
}

func (r *progressionEventRepo) ListByUserQuest(dbc dbctx.Context, userID uuid.UUID, questID string) ([]*types.ProgressionEvent, error) {
	t := r.dbx(dbc)
	out := []*types.ProgressionEvent{}
	if userID == uuid.Nil || questID == "" {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND quest_id = ?", userID, questID).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListByUserQuestAfter returns events strictly newer than after, oldest first.
func (r *progressionEventRepo) ListByUserQuestAfter(dbc dbctx.Context, userID uuid.UUID, questID string, after time.Time) ([]*types.ProgressionEvent, error) {
	t := r.dbx(dbc)
	out := []*types.ProgressionEvent{}
	if userID == uuid.Nil || questID == "" {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND quest_id = ? AND created_at > ?", userID, questID, after.UTC()).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *progressionEventRepo) ListRecentByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.ProgressionEvent, error) {
	t := r.dbx(dbc)
	out := []*types.ProgressionEvent{}
	if userID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > 5000 {
		limit = 5000
	}
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *progressionEventRepo) CountByUserAndStage(dbc dbctx.Context, userID uuid.UUID, stage types.Stage) (int64, error) {
	t := r.dbx(dbc)
	var n int64
	q := t.WithContext(dbc.Ctx).Model(&types.ProgressionEvent{}).Where("stage = ?", stage)
	if userID == uuid.Nil {
		q = q.Where("user_id IS NULL")
	} else {
		q = q.Where("user_id = ?", userID)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
