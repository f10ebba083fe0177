package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/firstflame-backend/internal/data/repos"
	repotest "github.com/yungbote/firstflame-backend/internal/data/repos/testutil"
	"github.com/yungbote/firstflame-backend/internal/realtime"
	"github.com/yungbote/firstflame-backend/internal/realtime/bus"
	"github.com/yungbote/firstflame-backend/internal/ritual/lease"
)

func TestLoadConfigPicksLeaseBackend(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("RITUAL_LEASE_BACKEND", "")
	t.Setenv("RITUAL_NOTIFY_TIMEOUT_MS", "")
	cfg := LoadConfig(nil)
	if cfg.LeaseBackend != LeaseBackendDB {
		t.Fatalf("lease backend without redis: want=%s got=%s", LeaseBackendDB, cfg.LeaseBackend)
	}
	if cfg.NotifyTimeout != 5*time.Second || cfg.Cooldown != 3*time.Second || cfg.LeaseTTL != lease.DefaultTTL {
		t.Fatalf("defaults: notify=%v cooldown=%v ttl=%v", cfg.NotifyTimeout, cfg.Cooldown, cfg.LeaseTTL)
	}

	t.Setenv("REDIS_ADDR", "localhost:6379")
	if got := LoadConfig(nil).LeaseBackend; got != LeaseBackendRedis {
		t.Fatalf("lease backend with redis: want=%s got=%s", LeaseBackendRedis, got)
	}
	t.Setenv("RITUAL_LEASE_BACKEND", LeaseBackendLocal)
	if got := LoadConfig(nil).LeaseBackend; got != LeaseBackendLocal {
		t.Fatalf("explicit lease backend: want=%s got=%s", LeaseBackendLocal, got)
	}
}

func testConfig() Config {
	return Config{
		JWTSecretKey:   "app-test-secret",
		AccessTokenTTL: time.Hour,
		QuestSlug:      "first_flame",
		Cooldown:       0,
		LeaseBackend:   LeaseBackendLocal,
		LeaseTTL:       lease.DefaultTTL,
		SweepInterval:  time.Minute,
		NotifyTimeout:  time.Second,
	}
}

func TestWireServicesRunsEnsureInlineWithoutTemporal(t *testing.T) {
	db := repotest.SQLiteDB(t)
	log := repotest.Logger(t)
	hub := realtime.NewSSEHub(log)
	svcs, err := wireServices(db, log, testConfig(), repos.NewRitual(db, log), Clients{}, hub, nil)
	if err != nil {
		t.Fatalf("wireServices: %v", err)
	}
	t.Cleanup(svcs.Notifier.Wait)
	if svcs.TemporalWorker != nil {
		t.Fatalf("temporal worker wired without a client")
	}
	if svcs.LeaseSweeper == nil {
		t.Fatalf("local leases need a sweeper")
	}

	userID := uuid.New()
	fs, err := svcs.FlameState.Ensure(context.Background(), userID)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !fs.Created || fs.Projection.CurrentDayTarget != 1 {
		t.Fatalf("flame state: %+v", fs)
	}
}

func TestWireServicesSharesRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db := repotest.SQLiteDB(t)
	log := repotest.Logger(t)
	cfg := testConfig()
	cfg.LeaseBackend = LeaseBackendRedis
	clients := Clients{Redis: rdb, SSEBus: bus.NewRedisBusWithClient(rdb, "test:sse", log)}

	svcs, err := wireServices(db, log, cfg, repos.NewRitual(db, log), clients, realtime.NewSSEHub(log), nil)
	if err != nil {
		t.Fatalf("wireServices: %v", err)
	}
	t.Cleanup(svcs.Notifier.Wait)
	if _, ok := svcs.Leases.(*lease.RedisManager); !ok {
		t.Fatalf("leases: want *lease.RedisManager got %T", svcs.Leases)
	}
	if svcs.LeaseSweeper != nil {
		t.Fatalf("redis leases expire on their own; no sweeper expected")
	}
}

func TestWireLeasesRejectsRedisWithoutClient(t *testing.T) {
	db := repotest.SQLiteDB(t)
	log := repotest.Logger(t)
	cfg := testConfig()
	cfg.LeaseBackend = LeaseBackendRedis
	if _, _, err := wireLeases(log, cfg, repos.NewRitual(db, log), Clients{}); err == nil {
		t.Fatalf("expected error for redis leases without redis")
	}
	cfg.LeaseBackend = "zookeeper"
	if _, _, err := wireLeases(log, cfg, repos.NewRitual(db, log), Clients{}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
