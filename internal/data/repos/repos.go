package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/firstflame-backend/internal/data/repos/ritual"
	"github.com/yungbote/firstflame-backend/internal/platform/logger"
)

type ProgressionEventRepo = ritual.ProgressionEventRepo
type ProgressProjectionRepo = ritual.ProgressProjectionRepo
type ImprintRepo = ritual.ImprintRepo
type QuestRepo = ritual.QuestRepo
type QuestParticipantRepo = ritual.QuestParticipantRepo
type LeaseRepo = ritual.LeaseRepo

// Ritual groups the table repos of the ritual domain.
type Ritual struct {
	Events       ProgressionEventRepo
	Projections  ProgressProjectionRepo
	Imprints     ImprintRepo
	Quests       QuestRepo
	Participants QuestParticipantRepo
	Leases       LeaseRepo
}

func NewRitual(db *gorm.DB, log *logger.Logger) Ritual {
	return Ritual{
		Events:       ritual.NewProgressionEventRepo(db, log),
		Projections:  ritual.NewProgressProjectionRepo(db, log),
		Imprints:     ritual.NewImprintRepo(db, log),
		Quests:       ritual.NewQuestRepo(db, log),
		Participants: ritual.NewQuestParticipantRepo(db, log),
		Leases:       ritual.NewLeaseRepo(db, log),
	}
}
