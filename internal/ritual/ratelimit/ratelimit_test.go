package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryCooldown(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	m := NewMemory(3 * time.Second)
	m.now = func() time.Time { return now }

	if d, _ := m.Reserve(ctx, "u1"); d != 0 {
		t.Fatalf("first attempt: want=0 got=%v", d)
	}
	now = base.Add(time.Second)
	d, _ := m.Reserve(ctx, "u1")
	if d <= 0 || d > 2*time.Second {
		t.Fatalf("within cooldown: want (0,2s] got=%v", d)
	}
	// Rejections do not push the window out.
	now = base.Add(1500 * time.Millisecond)
	if d2, _ := m.Reserve(ctx, "u1"); d2 <= 0 || d2 > 1500*time.Millisecond {
		t.Fatalf("second rejection: got=%v", d2)
	}
	if d, _ := m.Reserve(ctx, "u2"); d != 0 {
		t.Fatalf("other key: want=0 got=%v", d)
	}
	now = base.Add(3 * time.Second)
	if d, _ := m.Reserve(ctx, "u1"); d != 0 {
		t.Fatalf("after cooldown: want=0 got=%v", d)
	}
}

func TestMemoryZeroCooldownAllowsAll(t *testing.T) {
	m := NewMemory(0)
	for i := 0; i < 3; i++ {
		if d, err := m.Reserve(context.Background(), "u"); d != 0 || err != nil {
			t.Fatalf("attempt %d: d=%v err=%v", i, d, err)
		}
	}
}

func TestRedisCooldown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	l := NewRedis(rdb, "test:cooldown", 3*time.Second)
	if d, err := l.Reserve(ctx, "u1"); err != nil || d != 0 {
		t.Fatalf("first attempt: d=%v err=%v", d, err)
	}
	d, err := l.Reserve(ctx, "u1")
	if err != nil || d <= 0 || d > 3*time.Second {
		t.Fatalf("within cooldown: d=%v err=%v", d, err)
	}
	mr.FastForward(3 * time.Second)
	if d, err := l.Reserve(ctx, "u1"); err != nil || d != 0 {
		t.Fatalf("after cooldown: d=%v err=%v", d, err)
	}
}
