package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis shares the cooldown across instances with a SET NX PX marker per key.
type Redis struct {
	rdb      redis.UniversalClient
	prefix   string
	cooldown time.Duration
}

func NewRedis(rdb redis.UniversalClient, prefix string, cooldown time.Duration) *Redis {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "ritual:cooldown"
	}
	return &Redis{rdb: rdb, prefix: prefix, cooldown: cooldown}
}

func (l *Redis) Reserve(ctx context.Context, key string) (time.Duration, error) {
	if l.cooldown <= 0 {
		return 0, nil
	}
	k := l.prefix + ":" + key
	ok, err := l.rdb.SetNX(ctx, k, "1", l.cooldown).Result()
	if err != nil {
		return 0, fmt.Errorf("reserve cooldown: %w", err)
	}
	if ok {
		return 0, nil
	}
	ttl, err := l.rdb.PTTL(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("read cooldown: %w", err)
	}
	if ttl <= 0 {
		// Expired between the two calls (or no expiry set); report the smallest wait.
		return time.Millisecond, nil
	}
	return ttl, nil
}
