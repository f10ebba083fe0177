package ritual

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Quest struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Slug      string    `gorm:"column:slug;not null;uniqueIndex" json:"slug"`
	Title     string    `gorm:"column:title;not null" json:"title"`
	Type      string    `gorm:"column:type;not null" json:"type"`
	Realm     string    `gorm:"column:realm;not null" json:"realm"`
	IsPinned  bool      `gorm:"column:is_pinned;not null" json:"is_pinned"`
	DayCount  int       `gorm:"column:day_count;not null" json:"day_count"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Quest) TableName() string { return "ritual_quest" }

// FirstFlameQuest is the catalog row seeded for the First-Flame ritual.
func FirstFlameQuest() Quest {
	return Quest{
		Slug:     FirstFlameSlug,
		Title:    "First Flame Ritual",
		Type:     "ritual",
		Realm:    FirstFlameSlug,
		IsPinned: true,
		DayCount: DayCount,
	}
}

type QuestParticipant struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	QuestID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_ritual_participant,priority:1" json:"quest_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_ritual_participant,priority:2" json:"user_id"`
	Role      string    `gorm:"column:role;not null" json:"role"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (QuestParticipant) TableName() string { return "ritual_quest_participant" }

const RoleParticipant = "participant"

// Imprint is the content a user submits to complete a ritual day.
type Imprint struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_ritual_imprint_user_day,priority:1" json:"user_id"`
	QuestID   string         `gorm:"column:quest_id;not null" json:"quest_id"`
	Day       int            `gorm:"column:day;not null;index:idx_ritual_imprint_user_day,priority:2" json:"day"`
	Payload   datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
}

func (Imprint) TableName() string { return "ritual_imprint" }

// Lease marks an in-flight advancement for (user, quest).
type Lease struct {
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	QuestID    string    `gorm:"column:quest_id;primaryKey" json:"quest_id"`
	Token      string    `gorm:"column:token;not null" json:"token"`
	AcquiredAt time.Time `gorm:"column:acquired_at;not null" json:"acquired_at"`
	ExpiresAt  time.Time `gorm:"column:expires_at;not null;index" json:"expires_at"`
}

func (Lease) TableName() string { return "ritual_advancement_lease" }

// Models lists every table owned by the ritual domain, in migration order.
func Models() []any {
	return []any{
		&Quest{},
		&QuestParticipant{},
		&ProgressionEvent{},
		&ProgressProjection{},
		&Imprint{},
		&Lease{},
	}
}

// DayDefinition is the content of day-<n>.json.
type DayDefinition struct {
	Day     int      `json:"day" yaml:"day"`
	Title   string   `json:"title,omitempty" yaml:"title,omitempty"`
	Intro   string   `json:"intro,omitempty" yaml:"intro,omitempty"`
	Prompts []string `json:"prompts" yaml:"prompts"`
}
