package aggregates

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/yungbote/firstflame-backend/internal/domain/ritual"
)

var ProgressionAggregateContract = Contract{
	Name:             "Ritual.ProgressionAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	LeaseScope:       ScopeUserQuest,
	Ordering:         "(created_at, id) per user and quest",
	Stages: []ritual.Stage{
		ritual.StageAttempt,
		ritual.StageImprintSubmitted,
		ritual.StageDayCompleted,
		ritual.StageQuestCompleted,
		ritual.StageFailureDB,
		ritual.StageFailureRateLimit,
		ritual.StageFailureAlreadyActive,
	},
	Notes: "Owns the progression log append and the projection update for day advancement.",
}

// ProgressionAggregate owns the day-advancement invariants of a ritual quest.
//
// Advance returns the ritual package's typed errors (ErrUnauthorized, ErrAlreadyActive,
// *RateLimitedError, *DayMismatchError, ErrAlreadyComplete, *StorageFailureError).
// Reconcile and Verify return *aggregates.Error on storage problems.
type ProgressionAggregate interface {
	Aggregate

	// Advance validates a day submission and, when valid, appends the advancement events
	// and moves the projection in one transaction.
	Advance(ctx context.Context, in AdvanceInput) (ritual.ProgressProjection, error)

	// Reconcile folds events newer than the stored projection onto it and persists the result.
	Reconcile(ctx context.Context, userID uuid.UUID, questID string) (ReconcileResult, error)

	// Verify replays the whole log and compares it with the stored projection. It never writes.
	Verify(ctx context.Context, userID uuid.UUID, questID string) (VerifyResult, error)
}

type AdvanceInput struct {
	UserID       uuid.UUID
	QuestID      string
	SubmittedDay int
	Imprint      json.RawMessage
}

type ReconcileResult struct {
	Projection    ritual.ProgressProjection
	EventsApplied int
	Changed       bool
}

type VerifyResult struct {
	Stored   *ritual.ProgressProjection
	Replayed ritual.ProgressProjection
	Events   int
	Diverged bool
}
