package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/firstflame-backend/internal/data/aggregates"
	"github.com/yungbote/firstflame-backend/internal/data/repos"
	domainagg "github.com/yungbote/firstflame-backend/internal/domain/aggregates"
	"github.com/yungbote/firstflame-backend/internal/observability"
	"github.com/yungbote/firstflame-backend/internal/platform/logger"
	"github.com/yungbote/firstflame-backend/internal/realtime"
	"github.com/yungbote/firstflame-backend/internal/ritual/lease"
	"github.com/yungbote/firstflame-backend/internal/ritual/ratelimit"
	"github.com/yungbote/firstflame-backend/internal/services"
	"github.com/yungbote/firstflame-backend/internal/temporalx/flamestate"
	"github.com/yungbote/firstflame-backend/internal/temporalx/temporalworker"
)

type Services struct {
	Auth        services.AuthService
	Notifier    services.ReadyNotifier
	Progression domainagg.ProgressionAggregate
	Ritual      services.RitualService
	FlameState  services.FlameStateRunner

	Leases         lease.Manager
	LeaseSweeper   *lease.Sweeper
	TemporalWorker *temporalworker.Runner
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r repos.Ritual, clients Clients, hub *realtime.SSEHub, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	auth, err := services.NewAuthService(log, cfg.JWTSecretKey, cfg.JWTIssuer, cfg.AccessTokenTTL)
	if err != nil {
		return Services{}, fmt.Errorf("init auth: %w", err)
	}

	var emitter services.SSEEmitter = &services.HubEmitter{Hub: hub}
	if clients.SSEBus != nil {
		emitter = &services.RedisEmitter{Bus: clients.SSEBus}
	}
	notifier := services.NewReadyNotifier(emitter, log, metrics, cfg.NotifyTimeout)

	leases, sweepable, err := wireLeases(log, cfg, r, clients)
	if err != nil {
		return Services{}, err
	}
	var limiter ratelimit.Limiter = ratelimit.NewMemory(cfg.Cooldown)
	if clients.Redis != nil {
		limiter = ratelimit.NewRedis(clients.Redis, "ritual:cooldown", cfg.Cooldown)
	}

	var hooks aggregates.Hooks
	if metrics != nil {
		hooks = aggregates.NewObservabilityHooks(metrics)
	}
	runner := aggregates.NewGormTxRunner(db)
	progression := aggregates.NewProgressionAggregate(aggregates.ProgressionAggregateDeps{
		Base:        aggregates.BaseDeps{DB: db, Log: log, Runner: runner, Hooks: hooks},
		Events:      r.Events,
		Projections: r.Projections,
		Imprints:    r.Imprints,
		Leases:      leases,
		Limiter:     limiter,
		QuestSlug:   cfg.QuestSlug,
	})

	ritualSvc := services.NewRitualService(services.RitualServiceDeps{
		Log:             log,
		Repos:           r,
		Runner:          runner,
		Progression:     progression,
		Days:            clients.Days,
		Notifier:        notifier,
		QuestSlug:       cfg.QuestSlug,
		ReconcileOnRead: cfg.ReconcileOnRead,
	})

	out := Services{
		Auth:        auth,
		Notifier:    notifier,
		Progression: progression,
		Ritual:      ritualSvc,
		FlameState:  services.NewInlineFlameStateRunner(ritualSvc),
		Leases:      leases,
	}
	if sweepable != nil {
		out.LeaseSweeper = lease.NewSweeper(sweepable, cfg.SweepInterval, log, func(n int64) {
			if metrics != nil {
				metrics.AddLeasesSwept(n)
			}
		})
	}

	if clients.Temporal != nil {
		fs, err := flamestate.NewRunner(log, clients.Temporal, cfg.Temporal.TaskQueue)
		if err != nil {
			return Services{}, fmt.Errorf("init flame state runner: %w", err)
		}
		worker, err := temporalworker.NewRunner(log, cfg.Temporal, clients.Temporal, ritualSvc)
		if err != nil {
			return Services{}, fmt.Errorf("init temporal worker: %w", err)
		}
		out.FlameState = fs
		out.TemporalWorker = worker
	}
	return out, nil
}

func wireLeases(log *logger.Logger, cfg Config, r repos.Ritual, clients Clients) (lease.Manager, lease.Sweepable, error) {
	switch cfg.LeaseBackend {
	case LeaseBackendRedis:
		if clients.Redis == nil {
			return nil, nil, fmt.Errorf("lease backend %q requires REDIS_ADDR", cfg.LeaseBackend)
		}
		// Redis expiry reclaims stale keys; there is nothing to sweep.
		return lease.NewRedisManager(clients.Redis, "ritual:lease", cfg.LeaseTTL, log), nil, nil
	case LeaseBackendDB:
		m := lease.NewGormManager(r.Leases, cfg.LeaseTTL, log)
		return m, m, nil
	case LeaseBackendLocal:
		m := lease.NewLocal(cfg.LeaseTTL)
		return m, m, nil
	default:
		return nil, nil, fmt.Errorf("unknown lease backend %q", cfg.LeaseBackend)
	}
}
