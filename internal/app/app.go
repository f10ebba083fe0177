package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/firstflame-backend/internal/data/db"
	"github.com/yungbote/firstflame-backend/internal/data/repos"
	apphttp "github.com/yungbote/firstflame-backend/internal/http"
	"github.com/yungbote/firstflame-backend/internal/observability"
	"github.com/yungbote/firstflame-backend/internal/platform/envutil"
	"github.com/yungbote/firstflame-backend/internal/platform/logger"
	"github.com/yungbote/firstflame-backend/internal/realtime"
	"github.com/yungbote/firstflame-backend/internal/realtime/bus"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *db.Service
	Clients  Clients
	Repos    repos.Ritual
	Services Services
	Hub      *realtime.SSEHub
	Metrics  *observability.Metrics
	Server   *apphttp.Server

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewLogger builds the process logger from LOG_MODE.
func NewLogger() (*logger.Logger, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// OpenDB connects and migrates the ritual schema.
func OpenDB(log *logger.Logger, cfg Config) (*db.Service, error) {
	svc, err := db.Open(db.Config{
		Driver:        cfg.DBDriver,
		DSN:           cfg.DBDSN,
		SlowThreshold: cfg.DBSlowThreshold,
		MaxOpenConns:  cfg.DBMaxOpenConns,
		MaxIdleConns:  cfg.DBMaxIdleConns,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := db.Migrate(svc.DB()); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return svc, nil
}

func New(ctx context.Context) (*App, error) {
	log, err := NewLogger()
	if err != nil {
		return nil, err
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Version:     cfg.Version,
	})
	metrics := observability.Init(log)

	dbs, err := OpenDB(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = dbs.Close()
		log.Sync()
		return nil, err
	}

	hub := realtime.NewSSEHub(log)
	reposet := repos.NewRitual(dbs.DB(), log)

	serviceset, err := wireServices(dbs.DB(), log, cfg, reposet, clients, hub, metrics)
	if err != nil {
		clients.Close()
		_ = dbs.Close()
		log.Sync()
		return nil, err
	}

	server := wireServer(log, cfg, serviceset, clients, dbs.DB(), hub, metrics)

	return &App{
		Log:          log,
		Cfg:          cfg,
		DB:           dbs,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Hub:          hub,
		Metrics:      metrics,
		Server:       server,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background loops: the cross-instance SSE forwarder, the lease sweeper,
// the Temporal worker and the metrics collectors.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if a.Clients.SSEBus != nil {
		if err := bus.ForwardToHub(ctx, a.Clients.SSEBus, a.Hub, a.Log); err != nil {
			return fmt.Errorf("start SSE forwarder: %w", err)
		}
	}
	if a.Services.LeaseSweeper != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.Services.LeaseSweeper.Run(ctx)
		}()
	}
	if a.Services.TemporalWorker != nil {
		if err := a.Services.TemporalWorker.Start(ctx); err != nil {
			return fmt.Errorf("start temporal worker: %w", err)
		}
	}
	if a.Metrics != nil {
		a.Metrics.StartDBCollector(ctx, a.Log, a.DB.DB())
		if a.Clients.Redis != nil {
			a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis)
		}
	}
	return nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("Serving", "addr", a.Cfg.Addr)
	return a.Server.Run(ctx, a.Cfg.Addr, a.Cfg.ShutdownGrace)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.wg.Wait()
	if a.Services.Notifier != nil {
		a.Services.Notifier.Wait()
	}
	if a.Hub != nil {
		a.Hub.CloseAll()
	}
	a.Clients.Close()
	if a.DB != nil {
		_ = a.DB.Close()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownGrace)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	a.Log.Sync()
}
