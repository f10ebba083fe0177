package app

import (
	"time"

	"github.com/yungbote/firstflame-backend/internal/platform/envutil"
	"github.com/yungbote/firstflame-backend/internal/platform/logger"
	"github.com/yungbote/firstflame-backend/internal/ritual/lease"
	"github.com/yungbote/firstflame-backend/internal/temporalx"
)

const (
	LeaseBackendLocal = "local"
	LeaseBackendDB    = "db"
	LeaseBackendRedis = "redis"
)

type Config struct {
	Env         string
	ServiceName string
	Version     string

	Addr          string
	ShutdownGrace time.Duration
	CORSOrigins   []string

	JWTSecretKey   string
	JWTIssuer      string
	AccessTokenTTL time.Duration

	DBDriver        string
	DBDSN           string
	DBSlowThreshold time.Duration
	DBMaxOpenConns  int
	DBMaxIdleConns  int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SSEChannel    string

	QuestSlug       string
	Cooldown        time.Duration
	LeaseBackend    string
	LeaseTTL        time.Duration
	SweepInterval   time.Duration
	NotifyTimeout   time.Duration
	ReconcileOnRead bool

	DayDefBucket       string
	DayDefPrefix       string
	DayDefDir          string
	GCSCredentialsFile string
	GCSEmulatorHost    string

	Temporal temporalx.Config
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Env:         envutil.String("APP_ENV", "development"),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "firstflame-api"),
		Version:     envutil.String("APP_VERSION", "dev"),

		Addr:          ":" + envutil.String("PORT", "8080"),
		ShutdownGrace: envutil.Millis("SHUTDOWN_GRACE_MS", 10*time.Second),
		CORSOrigins:   envutil.List("CORS_ALLOWED_ORIGINS", nil),

		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", ""),
		JWTIssuer:      envutil.String("JWT_ISSUER", ""),
		AccessTokenTTL: time.Duration(envutil.Int("ACCESS_TOKEN_TTL", 3600)) * time.Second,

		DBDriver:        envutil.String("DB_DRIVER", "postgres"),
		DBDSN:           envutil.String("DATABASE_URL", ""),
		DBSlowThreshold: envutil.Millis("DB_SLOW_QUERY_MS", time.Second),
		DBMaxOpenConns:  envutil.Int("DB_MAX_OPEN_CONNS", 20),
		DBMaxIdleConns:  envutil.Int("DB_MAX_IDLE_CONNS", 10),

		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		RedisPassword: envutil.String("REDIS_PASSWORD", ""),
		RedisDB:       envutil.Int("REDIS_DB", 0),
		SSEChannel:    envutil.String("REDIS_SSE_CHANNEL", "ritual:sse"),

		QuestSlug:       envutil.String("RITUAL_QUEST_SLUG", "first_flame"),
		Cooldown:        envutil.Millis("RITUAL_COOLDOWN_MS", 3*time.Second),
		LeaseBackend:    envutil.String("RITUAL_LEASE_BACKEND", ""),
		LeaseTTL:        envutil.Millis("RITUAL_LEASE_TTL_MS", lease.DefaultTTL),
		SweepInterval:   envutil.Millis("RITUAL_LEASE_SWEEP_MS", time.Minute),
		NotifyTimeout:   envutil.Millis("RITUAL_NOTIFY_TIMEOUT_MS", 5*time.Second),
		ReconcileOnRead: envutil.Bool("RITUAL_RECONCILE_ON_READ", true),

		DayDefBucket:       envutil.String("RITUAL_DAYS_BUCKET", ""),
		DayDefPrefix:       envutil.String("RITUAL_DAYS_PREFIX", "days"),
		DayDefDir:          envutil.String("RITUAL_DAYS_DIR", ""),
		GCSCredentialsFile: envutil.String("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GCSEmulatorHost:    envutil.String("STORAGE_EMULATOR_HOST", ""),

		Temporal: temporalx.LoadConfig(),
	}

	if cfg.LeaseBackend == "" {
		// Instances sharing redis share the lease there; otherwise the database holds it.
		if cfg.RedisAddr != "" {
			cfg.LeaseBackend = LeaseBackendRedis
		} else {
			cfg.LeaseBackend = LeaseBackendDB
		}
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = lease.DefaultTTL
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 5 * time.Second
	}
	if log != nil {
		log.Info("Config loaded", "env", cfg.Env, "db_driver", cfg.DBDriver, "lease_backend", cfg.LeaseBackend, "temporal", cfg.Temporal.Enabled())
	}
	return cfg
}
