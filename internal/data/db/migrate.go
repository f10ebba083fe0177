package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/firstflame-backend/internal/domain/ritual"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(ritual.Models()...)
}

// EnsureRitualIndexes adds the composite indexes the replay and reconcile reads rely on.
func EnsureRitualIndexes(db *gorm.DB) error {
	// Replay walks a user's log in (created_at, id) order per quest.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_ritual_event_replay
		ON ritual_progression_event (user_id, quest_id, created_at, id);
	`).Error; err != nil {
		return fmt.Errorf("create idx_ritual_event_replay: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_ritual_imprint_user_quest
		ON ritual_imprint (user_id, quest_id, day);
	`).Error; err != nil {
		return fmt.Errorf("create idx_ritual_imprint_user_quest: %w", err)
	}
	return nil
}

// Migrate runs the schema migration and the extra indexes.
func Migrate(db *gorm.DB) error {
	if err := AutoMigrateAll(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return EnsureRitualIndexes(db)
}
