package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/firstflame-backend/internal/platform/logger"
	"github.com/yungbote/firstflame-backend/internal/realtime/bus"
	"github.com/yungbote/firstflame-backend/internal/ritual/daydef"
	"github.com/yungbote/firstflame-backend/internal/temporalx"
)

type Clients struct {
	// Redis backs the shared lease and cooldown. The SSE bus holds its own connection for
	// its long-lived subscription.
	Redis    goredis.UniversalClient
	SSEBus   bus.Bus
	Days     daydef.Source
	Temporal temporalsdkclient.Client

	gcs *daydef.GCS
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			DialTimeout: 5 * time.Second,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("redis ping: %w", err)
		}
		out.Redis = rdb

		b, err := bus.NewRedisBus(bus.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Channel:  cfg.SSEChannel,
		}, log)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
		out.SSEBus = b
	}

	switch {
	case cfg.DayDefBucket != "":
		g, err := daydef.NewGCS(ctx, daydef.GCSConfig{
			Bucket:          cfg.DayDefBucket,
			Prefix:          cfg.DayDefPrefix,
			CredentialsFile: cfg.GCSCredentialsFile,
			EmulatorHost:    cfg.GCSEmulatorHost,
		}, log)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init day definition bucket: %w", err)
		}
		out.gcs = g
		out.Days = daydef.NewCache(g)
	case cfg.DayDefDir != "":
		out.Days = daydef.NewCache(daydef.NewDir(cfg.DayDefDir))
	default:
		log.Warn("No day definition source configured; status responses omit day content")
	}

	tc, err := temporalx.NewClient(ctx, cfg.Temporal, log)
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init temporal client: %w", err)
	}
	out.Temporal = tc
	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.gcs != nil {
		_ = c.gcs.Close()
	}
	if c.SSEBus != nil {
		_ = c.SSEBus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
