package app

import (
	"context"

	"gorm.io/gorm"

	apphttp "github.com/yungbote/firstflame-backend/internal/http"
	httpH "github.com/yungbote/firstflame-backend/internal/http/handlers"
	httpMW "github.com/yungbote/firstflame-backend/internal/http/middleware"
	"github.com/yungbote/firstflame-backend/internal/observability"
	"github.com/yungbote/firstflame-backend/internal/platform/logger"
	"github.com/yungbote/firstflame-backend/internal/realtime"
)

func wireServer(log *logger.Logger, cfg Config, services Services, clients Clients, db *gorm.DB, hub *realtime.SSEHub, metrics *observability.Metrics) *apphttp.Server {
	log.Info("Wiring HTTP server...")

	checks := map[string]func(ctx context.Context) error{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if clients.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return clients.Redis.Ping(ctx).Err() }
	}

	srv := apphttp.NewServer(apphttp.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		ServiceName:    cfg.ServiceName,
		CORSOrigins:    cfg.CORSOrigins,
		AuthMiddleware: httpMW.NewAuthMiddleware(log, services.Auth),
		RitualHandler: httpH.NewRitualHandlerWithDeps(httpH.RitualHandlerDeps{
			Log:        log,
			Ritual:     services.Ritual,
			FlameState: services.FlameState,
		}),
		RealtimeHandler: httpH.NewRealtimeHandler(log, hub),
		HealthHandler:   httpH.NewHealthHandler(checks),
	})
	// Open streams never finish on their own; end them so Shutdown can drain.
	srv.OnShutdown = append(srv.OnShutdown, hub.CloseAll)
	return srv
}
