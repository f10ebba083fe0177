package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/firstflame-backend/internal/http/handlers"
	httpMW "github.com/yungbote/firstflame-backend/internal/http/middleware"
	"github.com/yungbote/firstflame-backend/internal/observability"
	"github.com/yungbote/firstflame-backend/internal/platform/logger"
)

const streamRoute = "/api/ritual/stream"

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	CORSOrigins    []string
	AuthMiddleware *httpMW.AuthMiddleware

	RitualHandler   *httpH.RitualHandler
	RealtimeHandler *httpH.RealtimeHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log, httpMW.RequestLogOptions{
		QuietPaths:  []string{"/healthcheck", "/readyz", "/metrics"},
		StreamPaths: []string{streamRoute},
	}))
	r.Use(httpMW.Metrics(cfg.Metrics, streamRoute))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	protected := r.Group("/api/ritual")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.RitualHandler != nil {
			protected.GET("/status", cfg.RitualHandler.GetStatus)
			protected.POST("/days/:day/imprint", cfg.RitualHandler.SubmitImprint)
			protected.POST("/ensure", cfg.RitualHandler.EnsureFlameState)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/stream", cfg.RealtimeHandler.SSEStream)
		}
	}

	return r
}
