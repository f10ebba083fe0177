package aggregates

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/firstflame-backend/internal/data/repos"
	domainagg "github.com/yungbote/firstflame-backend/internal/domain/aggregates"
	"github.com/yungbote/firstflame-backend/internal/domain/ritual"
	"github.com/yungbote/firstflame-backend/internal/platform/ctxutil"
	"github.com/yungbote/firstflame-backend/internal/platform/dbctx"
	"github.com/yungbote/firstflame-backend/internal/ritual/lease"
	"github.com/yungbote/firstflame-backend/internal/ritual/ratelimit"
)

const (
	opAdvance   = "ritual.progression.advance"
	opReconcile = "ritual.progression.reconcile"
	opVerify    = "ritual.progression.verify"

	projectionTable = "ritual_progress_projection"
)

// Advancement outcomes reported to hooks and stored in failure event context.
const (
	OutcomeSuccess         = "success"
	OutcomeUnauthorized    = "unauthorized"
	OutcomeAlreadyActive   = "already_active"
	OutcomeRateLimited     = "rate_limited"
	OutcomeDayMismatch     = "day_mismatch"
	OutcomeAlreadyComplete = "already_complete"
	OutcomeStorageFailure  = "storage_failure"
	OutcomeUnknownQuest    = "unknown_quest"
)

type ProgressionAggregateDeps struct {
	Base        BaseDeps
	Events      repos.ProgressionEventRepo
	Projections repos.ProgressProjectionRepo
	Imprints    repos.ImprintRepo
	Leases      lease.Manager
	Limiter     ratelimit.Limiter
	// QuestSlug is the quest this deployment advances; empty means ritual.FirstFlameSlug.
	QuestSlug string
	Now       func() time.Time
}

type progressionAggregate struct {
	deps ProgressionAggregateDeps
}

func NewProgressionAggregate(deps ProgressionAggregateDeps) domainagg.ProgressionAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Leases == nil {
		deps.Leases = lease.NewLocal(lease.DefaultTTL)
	}
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.Noop{}
	}
	if strings.TrimSpace(deps.QuestSlug) == "" {
		deps.QuestSlug = ritual.FirstFlameSlug
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }
	}
	return &progressionAggregate{deps: deps}
}

func (a *progressionAggregate) Contract() domainagg.Contract {
	return domainagg.ProgressionAggregateContract
}

// Advance runs the guards in order (identity, lease, cooldown, completion, day match) and
// commits the advancement. The lease is released on every path.
func (a *progressionAggregate) Advance(ctx context.Context, in domainagg.AdvanceInput) (ritual.ProgressProjection, error) {
	log := a.deps.Base.Log
	questID := strings.TrimSpace(in.QuestID)
	if questID == "" {
		questID = a.deps.QuestSlug
	}
	attemptCtx := map[string]any{"submitted_day": in.SubmittedDay}

	rd := ctxutil.GetRequestData(ctx)
	if in.UserID == uuid.Nil || rd == nil || rd.UserID == uuid.Nil || rd.UserID != in.UserID {
		attemptCtx["outcome"] = OutcomeUnauthorized
		a.recordFailure(ctx, nil, questID, ritual.StageAttempt, attemptCtx)
		a.deps.Base.Hooks.IncOutcome(opAdvance, OutcomeUnauthorized)
		return ritual.ProgressProjection{}, ritual.ErrUnauthorized
	}
	if questID != a.deps.QuestSlug {
		a.deps.Base.Hooks.IncOutcome(opAdvance, OutcomeUnknownQuest)
		return ritual.ProgressProjection{}, ritual.ErrUnknownQuest
	}
	userID := in.UserID

	handle, err := a.deps.Leases.Acquire(ctx, userID, questID)
	if errors.Is(err, ritual.ErrAlreadyActive) {
		attemptCtx["outcome"] = OutcomeAlreadyActive
		a.recordFailure(ctx, &userID, questID, ritual.StageFailureAlreadyActive, attemptCtx)
		a.deps.Base.Hooks.IncOutcome(opAdvance, OutcomeAlreadyActive)
		return ritual.ProgressProjection{}, ritual.ErrAlreadyActive
	}
	if err != nil {
		return ritual.ProgressProjection{}, a.storageFailure(ctx, userID, questID, "lease.acquire", err, attemptCtx)
	}
	defer func() {
		if rerr := handle.Release(context.WithoutCancel(ctx)); rerr != nil {
			log.Warn("release advancement lease failed", "user_id", userID, "error", rerr)
		}
	}()

	wait, err := a.deps.Limiter.Reserve(ctx, userID.String())
	if err != nil {
		return ritual.ProgressProjection{}, a.storageFailure(ctx, userID, questID, "ratelimit.reserve", err, attemptCtx)
	}
	if wait > 0 {
		attemptCtx["outcome"] = OutcomeRateLimited
		attemptCtx["retry_after_ms"] = wait.Milliseconds()
		a.recordFailure(ctx, &userID, questID, ritual.StageFailureRateLimit, attemptCtx)
		a.deps.Base.Hooks.IncOutcome(opAdvance, OutcomeRateLimited)
		return ritual.ProgressProjection{}, &ritual.RateLimitedError{RetryAfter: wait}
	}

	var out ritual.ProgressProjection
	err = executeWrite(ctx, a.deps.Base, opAdvance, func(dbc dbctx.Context) error {
		now, err := a.deps.Events.NextTimestamp(dbc, userID, questID, a.deps.Now())
		if err != nil {
			return err
		}
		current, err := a.loadOrCreateProjection(dbc, userID, questID, now)
		if err != nil {
			return err
		}
		if !now.After(current.UpdatedAt) {
			now = current.UpdatedAt.UTC().Add(time.Microsecond)
		}
		if current.IsQuestComplete {
			return ritual.ErrAlreadyComplete
		}
		if in.SubmittedDay != current.CurrentDayTarget {
			return &ritual.DayMismatchError{Submitted: in.SubmittedDay, Authoritative: current.CurrentDayTarget}
		}

		day := current.CurrentDayTarget
		stage := ritual.StageDayCompleted
		if day >= ritual.DayCount {
			stage = ritual.StageQuestCompleted
		}
		evtCtx := mustJSON(map[string]any{"day": day})
		uid := userID
		events := []*ritual.ProgressionEvent{
			{UserID: &uid, QuestID: questID, Stage: ritual.StageAttempt, Context: mustJSON(map[string]any{"submitted_day": day, "outcome": OutcomeSuccess}), CreatedAt: now},
			{UserID: &uid, QuestID: questID, Stage: ritual.StageImprintSubmitted, Context: evtCtx, CreatedAt: now},
			{UserID: &uid, QuestID: questID, Stage: stage, Context: evtCtx, CreatedAt: now},
		}
		if _, err := a.deps.Events.Append(dbc, events); err != nil {
			return err
		}
		if _, err := a.deps.Imprints.Create(dbc, &ritual.Imprint{
			UserID:    userID,
			QuestID:   questID,
			Day:       day,
			Payload:   imprintJSON(in.Imprint),
			CreatedAt: now,
		}); err != nil {
			return err
		}

		next := *current
		if !ritual.Apply(&next, events[2]) {
			return InvariantError("advancing event did not move the projection")
		}
		ok, err := a.deps.Base.CASGuard.UpdateByVersion(dbc, projectionTable, "user_id", userID, current.Version, map[string]any{
			"current_day_target":  next.CurrentDayTarget,
			"is_quest_complete":   next.IsQuestComplete,
			"last_advancement_at": next.LastAdvancementAt,
			"updated_at":          now,
		})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "projection changed during advancement"); err != nil {
			return err
		}
		next.UpdatedAt = now
		next.Version = current.Version + 1
		out = next
		return nil
	})

	var mismatch *ritual.DayMismatchError
	switch {
	case err == nil:
		a.deps.Base.Hooks.IncOutcome(opAdvance, OutcomeSuccess)
		log.Info("ritual day advanced", "user_id", userID, "day", out.CurrentDayTarget, "complete", out.IsQuestComplete)
		return out, nil
	case errors.As(err, &mismatch):
		a.deps.Base.Hooks.IncOutcome(opAdvance, OutcomeDayMismatch)
		return ritual.ProgressProjection{}, mismatch
	case errors.Is(err, ritual.ErrAlreadyComplete):
		a.deps.Base.Hooks.IncOutcome(opAdvance, OutcomeAlreadyComplete)
		return ritual.ProgressProjection{}, ritual.ErrAlreadyComplete
	default:
		return ritual.ProgressProjection{}, a.storageFailure(ctx, userID, questID, opAdvance, err, attemptCtx)
	}
}

func (a *progressionAggregate) loadOrCreateProjection(dbc dbctx.Context, userID uuid.UUID, questID string, now time.Time) (*ritual.ProgressProjection, error) {
	p, err := a.deps.Projections.GetByUser(dbc, userID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}
	if _, err := a.deps.Projections.CreateIfMissing(dbc, ritual.NewProjection(userID, questID, now)); err != nil {
		return nil, err
	}
	p, err = a.deps.Projections.GetByUser(dbc, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, RetryableError("projection not visible after create")
	}
	return p, nil
}

// Reconcile folds events newer than the projection's updated_at onto it; events it already
// reflects are skipped. A missing projection is rebuilt from the whole log. When nothing
// would change no write transaction is opened.
func (a *progressionAggregate) Reconcile(ctx context.Context, userID uuid.UUID, questID string) (domainagg.ReconcileResult, error) {
	if questID == "" {
		questID = a.deps.QuestSlug
	}
	if res, current, err := a.upToDate(ctx, userID, questID); err != nil {
		return domainagg.ReconcileResult{}, MapError(opReconcile, err)
	} else if current {
		return res, nil
	}

	var res domainagg.ReconcileResult
	err := executeWrite(ctx, a.deps.Base, opReconcile, func(dbc dbctx.Context) error {
		stored, err := a.deps.Projections.GetByUser(dbc, userID)
		if err != nil {
			return err
		}
		if stored == nil {
			events, err := a.deps.Events.ListByUserQuest(dbc, userID, questID)
			if err != nil {
				return err
			}
			rebuilt := ritual.Fold(userID, questID, events)
			now := a.deps.Now()
			rebuilt.CreatedAt = now
			if rebuilt.UpdatedAt.IsZero() {
				rebuilt.UpdatedAt = now
			}
			if _, err := a.deps.Projections.CreateIfMissing(dbc, &rebuilt); err != nil {
				return err
			}
			res = domainagg.ReconcileResult{Projection: rebuilt, EventsApplied: len(events), Changed: true}
			return nil
		}

		events, err := a.deps.Events.ListByUserQuestAfter(dbc, userID, questID, stored.UpdatedAt)
		if err != nil {
			return err
		}
		next := *stored
		applied := 0
		for _, evt := range events {
			if ritual.Apply(&next, evt) {
				applied++
			}
		}
		res = domainagg.ReconcileResult{Projection: next, EventsApplied: applied}
		if applied == 0 {
			return nil
		}
		ok, err := a.deps.Base.CASGuard.UpdateByVersion(dbc, projectionTable, "user_id", userID, stored.Version, map[string]any{
			"current_day_target":  next.CurrentDayTarget,
			"is_quest_complete":   next.IsQuestComplete,
			"last_advancement_at": next.LastAdvancementAt,
			"updated_at":          next.UpdatedAt,
		})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "projection changed during reconcile"); err != nil {
			return err
		}
		next.Version = stored.Version + 1
		res.Projection = next
		res.Changed = true
		return nil
	})
	if err != nil {
		return domainagg.ReconcileResult{}, err
	}
	if res.Changed {
		a.deps.Base.Log.Warn("projection reconciled from log", "user_id", userID, "applied", res.EventsApplied, "day", res.Projection.CurrentDayTarget)
	}
	return res, nil
}

// upToDate reports, without a write transaction, whether the stored projection already
// reflects every event newer than its updated_at.
func (a *progressionAggregate) upToDate(ctx context.Context, userID uuid.UUID, questID string) (domainagg.ReconcileResult, bool, error) {
	dbc := dbctx.Context{Ctx: ctx, Tx: dbctx.TxFrom(ctx)}
	stored, err := a.deps.Projections.GetByUser(dbc, userID)
	if err != nil || stored == nil {
		return domainagg.ReconcileResult{}, false, err
	}
	events, err := a.deps.Events.ListByUserQuestAfter(dbc, userID, questID, stored.UpdatedAt)
	if err != nil {
		return domainagg.ReconcileResult{}, false, err
	}
	next := *stored
	for _, evt := range events {
		if ritual.Apply(&next, evt) {
			return domainagg.ReconcileResult{}, false, nil
		}
	}
	return domainagg.ReconcileResult{Projection: *stored}, true, nil
}

func (a *progressionAggregate) Verify(ctx context.Context, userID uuid.UUID, questID string) (domainagg.VerifyResult, error) {
	if questID == "" {
		questID = a.deps.QuestSlug
	}
	dbc := dbctx.Of(ctx)
	events, err := a.deps.Events.ListByUserQuest(dbc, userID, questID)
	if err != nil {
		return domainagg.VerifyResult{}, MapError(opVerify, err)
	}
	stored, err := a.deps.Projections.GetByUser(dbc, userID)
	if err != nil {
		return domainagg.VerifyResult{}, MapError(opVerify, err)
	}
	replayed := ritual.Fold(userID, questID, events)
	res := domainagg.VerifyResult{Stored: stored, Replayed: replayed, Events: len(events)}
	if stored == nil {
		res.Diverged = !replayed.SameState(*ritual.NewProjection(userID, questID, time.Time{}))
	} else {
		res.Diverged = !stored.SameState(replayed)
	}
	return res, nil
}

// recordFailure appends an audit event outside any transaction. Failures here are logged
// and never surface to the caller.
func (a *progressionAggregate) recordFailure(ctx context.Context, userID *uuid.UUID, questID string, stage ritual.Stage, fields map[string]any) {
	dbc := dbctx.Of(context.WithoutCancel(ctx))
	_, err := a.deps.Events.Append(dbc, []*ritual.ProgressionEvent{{
		UserID:  userID,
		QuestID: questID,
		Stage:   stage,
		Context: mustJSON(fields),
	}})
	if err != nil {
		a.deps.Base.Log.Error("record progression failure event", "stage", stage, "error", err)
	}
}

func (a *progressionAggregate) storageFailure(ctx context.Context, userID uuid.UUID, questID, op string, cause error, fields map[string]any) error {
	fields["outcome"] = OutcomeStorageFailure
	fields["op"] = op
	a.recordFailure(ctx, &userID, questID, ritual.StageFailureDB, fields)
	a.deps.Base.Hooks.IncOutcome(opAdvance, OutcomeStorageFailure)
	a.deps.Base.Log.Error("ritual advancement failed", "user_id", userID, "op", op, "error", cause)
	return &ritual.StorageFailureError{Op: op, Cause: cause}
}

func mustJSON(v map[string]any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(raw)
}

func imprintJSON(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 || !json.Valid(raw) {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(raw)
}
