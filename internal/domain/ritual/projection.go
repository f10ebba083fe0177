package ritual

import (
	"time"

	"github.com/google/uuid"
)

// DayCount is the fixed number of ritual days (N).
const DayCount = 5

// FirstFlameSlug identifies the only quest the ritual currently ships.
const FirstFlameSlug = "first_flame"

// ProgressProjection is the current-state summary of a user's ritual, kept equal to the
// fold of the user's progression events.
type ProgressProjection struct {
	UserID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"user_id"`
	QuestID           string     `gorm:"column:quest_id;not null;index" json:"quest_id"`
	CurrentDayTarget  int        `gorm:"column:current_day_target;not null;check:chk_ritual_day_range,current_day_target >= 1 AND current_day_target <= 5" json:"current_day_target"`
	IsQuestComplete   bool       `gorm:"column:is_quest_complete;not null" json:"is_quest_complete"`
	LastAdvancementAt *time.Time `gorm:"column:last_advancement_at" json:"last_advancement_at,omitempty"`
	Version           int        `gorm:"column:version;not null" json:"version"`
	CreatedAt         time.Time  `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;not null;index" json:"updated_at"`
}

func (ProgressProjection) TableName() string { return "ritual_progress_projection" }

// NewProjection returns the day-1 starting state.
func NewProjection(userID uuid.UUID, questID string, now time.Time) *ProgressProjection {
	return &ProgressProjection{
		UserID:           userID,
		QuestID:          questID,
		CurrentDayTarget: 1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// SameState compares the replay-relevant fields of two projections.
func (p ProgressProjection) SameState(o ProgressProjection) bool {
	if p.CurrentDayTarget != o.CurrentDayTarget || p.IsQuestComplete != o.IsQuestComplete {
		return false
	}
	switch {
	case p.LastAdvancementAt == nil && o.LastAdvancementAt == nil:
		return true
	case p.LastAdvancementAt == nil || o.LastAdvancementAt == nil:
		return false
	default:
		return p.LastAdvancementAt.Equal(*o.LastAdvancementAt)
	}
}

func ClampDay(day int) int {
	if day < 1 {
		return 1
	}
	if day > DayCount {
		return DayCount
	}
	return day
}
