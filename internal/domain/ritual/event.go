package ritual

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Stage string

const (
	StageAttempt              Stage = "attempt"
	StageSuccess              Stage = "success"
	StageFailureDB            Stage = "failure_db"
	StageFailureRateLimit     Stage = "failure_rate_limit"
	StageFailureAlreadyActive Stage = "failure_already_active"
	StageImprintSubmitted     Stage = "imprint_submitted"
	StageDayCompleted         Stage = "day_completed"
	StageQuestCompleted       Stage = "quest_completed"
)

var allStages = []Stage{
	StageAttempt,
	StageSuccess,
	StageFailureDB,
	StageFailureRateLimit,
	StageFailureAlreadyActive,
	StageImprintSubmitted,
	StageDayCompleted,
	StageQuestCompleted,
}

func (s Stage) Valid() bool {
	for _, x := range allStages {
		if s == x {
			return true
		}
	}
	return false
}

// Advances reports whether the stage moves the projection when folded.
func (s Stage) Advances() bool {
	return s == StageDayCompleted || s == StageQuestCompleted
}

// ProgressionEvent is an append-only audit/replay record. Rows are never updated or deleted.
// IDs are UUIDv7 so (created_at, id) gives a total order per user/quest.
type ProgressionEvent struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    *uuid.UUID     `gorm:"type:uuid;index:idx_ritual_event_user_time,priority:1" json:"user_id,omitempty"`
	QuestID   string         `gorm:"column:quest_id;not null;index" json:"quest_id"`
	Stage     Stage          `gorm:"column:stage;type:varchar(32);not null;index" json:"stage"`
	Context   datatypes.JSON `gorm:"column:context;type:jsonb" json:"context,omitempty"`
	CreatedAt time.Time      `gorm:"column:created_at;not null;index:idx_ritual_event_user_time,priority:2" json:"created_at"`
}

func (ProgressionEvent) TableName() string { return "ritual_progression_event" }

// Day returns the day an advancing event completed, read from its context. Events
// written without a day report false.
func (e *ProgressionEvent) Day() (int, bool) {
	if e == nil || len(e.Context) == 0 {
		return 0, false
	}
	var body struct {
		Day *int `json:"day"`
	}
	if err := json.Unmarshal(e.Context, &body); err != nil || body.Day == nil {
		return 0, false
	}
	return *body.Day, true
}
