package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/firstflame-backend/internal/app"
	"github.com/yungbote/firstflame-backend/internal/data/aggregates"
	"github.com/yungbote/firstflame-backend/internal/data/db"
	"github.com/yungbote/firstflame-backend/internal/data/repos"
	domainagg "github.com/yungbote/firstflame-backend/internal/domain/aggregates"
	"github.com/yungbote/firstflame-backend/internal/platform/dbctx"
	"github.com/yungbote/firstflame-backend/internal/platform/logger"
	"github.com/yungbote/firstflame-backend/internal/realtime/bus"
	"github.com/yungbote/firstflame-backend/internal/ritual/daydef"
	"github.com/yungbote/firstflame-backend/internal/services"
)

// runtime is the slice of the service a command needs: the store, the progression aggregate
// and the ritual service. Commands never advance a user, so no lease or limiter is wired.
type runtime struct {
	log         *logger.Logger
	cfg         app.Config
	db          *db.Service
	repos       repos.Ritual
	progression domainagg.ProgressionAggregate
	ritual      services.RitualService
	notifier    services.ReadyNotifier
	sseBus      bus.Bus
}

func loadConfig() (*logger.Logger, app.Config, error) {
	log, err := app.NewLogger()
	if err != nil {
		return nil, app.Config{}, err
	}
	return log, app.LoadConfig(log), nil
}

func openRuntime(ctx context.Context) (*runtime, error) {
	log, cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	dbs, err := app.OpenDB(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	rt := &runtime{log: log, cfg: cfg, db: dbs, repos: repos.NewRitual(dbs.DB(), log)}

	runner := aggregates.NewGormTxRunner(dbs.DB())
	rt.progression = aggregates.NewProgressionAggregate(aggregates.ProgressionAggregateDeps{
		Base:        aggregates.BaseDeps{DB: dbs.DB(), Log: log, Runner: runner},
		Events:      rt.repos.Events,
		Projections: rt.repos.Projections,
		Imprints:    rt.repos.Imprints,
		QuestSlug:   cfg.QuestSlug,
	})

	// Seeding over redis lets connected sessions refetch right away.
	if cfg.RedisAddr != "" {
		b, err := bus.NewRedisBus(bus.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Channel:  cfg.SSEChannel,
		}, log)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("init redis SSE bus: %w", err)
		}
		rt.sseBus = b
		rt.notifier = services.NewReadyNotifier(&services.RedisEmitter{Bus: b}, log, nil, cfg.NotifyTimeout)
	}

	var days daydef.Source
	if cfg.DayDefDir != "" {
		days = daydef.NewDir(cfg.DayDefDir)
	}
	rt.ritual = services.NewRitualService(services.RitualServiceDeps{
		Log:         log,
		Repos:       rt.repos,
		Runner:      runner,
		Progression: rt.progression,
		Days:        days,
		Notifier:    rt.notifier,
		QuestSlug:   cfg.QuestSlug,
	})
	return rt, nil
}

func (rt *runtime) Close() {
	if rt == nil {
		return
	}
	if rt.notifier != nil {
		rt.notifier.Wait()
	}
	if rt.sseBus != nil {
		_ = rt.sseBus.Close()
	}
	if rt.db != nil {
		_ = rt.db.Close()
	}
	rt.log.Sync()
}

// forEachUser runs fn for one user, or for every user with a projection when all is set.
func (rt *runtime) forEachUser(ctx context.Context, user string, all bool, fn func(uuid.UUID) error) error {
	if !all {
		id, err := parseUser(user)
		if err != nil {
			return err
		}
		return fn(id)
	}
	after := uuid.Nil
	for {
		ids, err := rt.repos.Projections.ListUserIDs(dbctx.Of(ctx), after, 500)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		for _, id := range ids {
			if err := fn(id); err != nil {
				return err
			}
		}
		if len(ids) < 500 {
			return nil
		}
		after = ids[len(ids)-1]
	}
}

func parseUser(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, fmt.Errorf("--user is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid --user %q", raw)
	}
	return id, nil
}
