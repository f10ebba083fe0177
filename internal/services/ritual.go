package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/firstflame-backend/internal/data/aggregates"
	"github.com/yungbote/firstflame-backend/internal/data/repos"
	domainagg "github.com/yungbote/firstflame-backend/internal/domain/aggregates"
	"github.com/yungbote/firstflame-backend/internal/domain/ritual"
	"github.com/yungbote/firstflame-backend/internal/platform/dbctx"
	"github.com/yungbote/firstflame-backend/internal/platform/logger"
	"github.com/yungbote/firstflame-backend/internal/ritual/daydef"
)

// RitualStatus is what a client renders: the authoritative day plus its content.
type RitualStatus struct {
	QuestID           string                `json:"quest_id"`
	CurrentDayTarget  int                   `json:"current_day_target"`
	IsQuestComplete   bool                  `json:"is_quest_complete"`
	LastAdvancementAt *time.Time            `json:"last_advancement_at"`
	DayDefinition     *ritual.DayDefinition `json:"day_definition"`
	Imprints          []*ritual.Imprint     `json:"imprints"`
}

type SubmitImprintInput struct {
	UserID  uuid.UUID
	QuestID string
	Day     int
	Payload json.RawMessage
}

// FlameState is the outcome of EnsureFlameState.
type FlameState struct {
	Projection    ritual.ProgressProjection `json:"projection"`
	Created       bool                      `json:"created"`
	DayDefinition *ritual.DayDefinition     `json:"day_definition"`
}

type RitualService interface {
	Status(ctx context.Context, userID uuid.UUID) (*RitualStatus, error)
	SubmitImprint(ctx context.Context, in SubmitImprintInput) (ritual.ProgressProjection, error)
	EnsureFlameState(ctx context.Context, userID uuid.UUID) (*FlameState, error)
}

type RitualServiceDeps struct {
	Log         *logger.Logger
	Repos       repos.Ritual
	Runner      aggregates.TxRunner
	Progression domainagg.ProgressionAggregate
	Days        daydef.Source
	Notifier    ReadyNotifier
	QuestSlug   string
	// ReconcileOnRead folds unapplied events into the projection on every status read.
	ReconcileOnRead bool
}

type ritualService struct {
	deps RitualServiceDeps
	log  *logger.Logger
}

func NewRitualService(deps RitualServiceDeps) RitualService {
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	if strings.TrimSpace(deps.QuestSlug) == "" {
		deps.QuestSlug = ritual.FirstFlameSlug
	}
	return &ritualService{deps: deps, log: deps.Log.With("service", "RitualService")}
}

func (s *ritualService) Status(ctx context.Context, userID uuid.UUID) (*RitualStatus, error) {
	if userID == uuid.Nil {
		return nil, ritual.ErrUnauthorized
	}
	dbc := dbctx.Of(ctx)
	p, err := s.deps.Repos.Projections.GetByUser(dbc, userID)
	if err != nil {
		return nil, aggregates.MapError("ritual.status", err)
	}
	if p == nil {
		p = ritual.NewProjection(userID, s.deps.QuestSlug, time.Time{})
	} else if s.deps.ReconcileOnRead && s.deps.Progression != nil {
		res, rerr := s.deps.Progression.Reconcile(ctx, userID, p.QuestID)
		if rerr != nil {
			s.log.Warn("reconcile on read failed; serving stored projection", "user_id", userID, "error", rerr)
		} else {
			p = &res.Projection
		}
	}

	imprints, err := s.deps.Repos.Imprints.ListByUserQuest(dbc, userID, p.QuestID)
	if err != nil {
		return nil, aggregates.MapError("ritual.status", err)
	}
	return &RitualStatus{
		QuestID:           p.QuestID,
		CurrentDayTarget:  p.CurrentDayTarget,
		IsQuestComplete:   p.IsQuestComplete,
		LastAdvancementAt: p.LastAdvancementAt,
		DayDefinition:     s.dayDefinition(ctx, p.CurrentDayTarget),
		Imprints:          imprints,
	}, nil
}

// SubmitImprint advances the user's ritual and notifies their sessions once the
// advancement is committed.
func (s *ritualService) SubmitImprint(ctx context.Context, in SubmitImprintInput) (ritual.ProgressProjection, error) {
	if in.Day < 1 || in.Day > ritual.DayCount {
		return ritual.ProgressProjection{}, ritual.ErrInvalidDay
	}
	if s.deps.Progression == nil {
		return ritual.ProgressProjection{}, domainagg.NewError(domainagg.CodeInternal, "ritual.submit", "progression aggregate not configured", nil)
	}
	p, err := s.deps.Progression.Advance(ctx, domainagg.AdvanceInput{
		UserID:       in.UserID,
		QuestID:      in.QuestID,
		SubmittedDay: in.Day,
		Imprint:      in.Payload,
	})
	if err != nil {
		return ritual.ProgressProjection{}, err
	}
	if s.deps.Notifier != nil {
		s.deps.Notifier.NotifyReady(ctx, in.UserID)
	}
	return p, nil
}

// EnsureFlameState seeds the quest, the user's participation and a day-1 projection. It is
// idempotent; only the call that creates the projection records a success event.
func (s *ritualService) EnsureFlameState(ctx context.Context, userID uuid.UUID) (*FlameState, error) {
	if userID == uuid.Nil {
		return nil, ritual.ErrUnauthorized
	}
	runner := s.deps.Runner
	if runner == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, "ritual.ensure", "transaction runner not configured", nil)
	}
	slug := s.deps.QuestSlug
	out := &FlameState{}
	err := runner.InTx(ctx, func(dbc dbctx.Context) error {
		q := ritual.FirstFlameQuest()
		q.Slug = slug
		quest, err := s.deps.Repos.Quests.EnsureBySlug(dbc, &q)
		if err != nil {
			return err
		}
		if _, err := s.deps.Repos.Participants.Ensure(dbc, quest.ID, userID, ritual.RoleParticipant); err != nil {
			return err
		}
		now := time.Now().UTC().Truncate(time.Microsecond)
		created, err := s.deps.Repos.Projections.CreateIfMissing(dbc, ritual.NewProjection(userID, slug, now))
		if err != nil {
			return err
		}
		if !created && s.deps.Progression != nil {
			// Runs in a savepoint of this transaction.
			if _, err := s.deps.Progression.Reconcile(dbc.Ctx, userID, slug); err != nil {
				return err
			}
		}
		if created {
			uid := userID
			raw, _ := json.Marshal(map[string]any{"day": 1, "source": "ensure"})
			if _, err := s.deps.Repos.Events.Append(dbc, []*ritual.ProgressionEvent{{
				UserID:    &uid,
				QuestID:   slug,
				Stage:     ritual.StageSuccess,
				Context:   raw,
				CreatedAt: now,
			}}); err != nil {
				return err
			}
		}
		p, err := s.deps.Repos.Projections.GetByUser(dbc, userID)
		if err != nil {
			return err
		}
		if p == nil {
			return aggregates.RetryableError("projection not visible after ensure")
		}
		out.Projection = *p
		out.Created = created
		return nil
	})
	if err != nil {
		return nil, aggregates.MapError("ritual.ensure", err)
	}
	out.DayDefinition = s.dayDefinition(ctx, out.Projection.CurrentDayTarget)
	if out.Created {
		s.log.Info("flame state created", "user_id", userID)
	}
	if s.deps.Notifier != nil {
		s.deps.Notifier.NotifyReady(ctx, userID)
	}
	return out, nil
}

func (s *ritualService) dayDefinition(ctx context.Context, day int) *ritual.DayDefinition {
	if s.deps.Days == nil {
		return nil
	}
	def, err := s.deps.Days.Load(ctx, day)
	if err != nil {
		if !errors.Is(err, daydef.ErrNotFound) {
			s.log.Warn("load day definition failed", "day", day, "error", err)
		}
		return nil
	}
	return def
}
