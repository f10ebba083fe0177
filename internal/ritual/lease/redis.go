package lease

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yungbote/firstflame-backend/internal/domain/ritual"
	"github.com/yungbote/firstflame-backend/internal/platform/logger"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisManager keeps leases as SET NX PX keys so several API instances share one guard.
// Redis expiry reclaims stale leases.
type RedisManager struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedisManager(rdb redis.UniversalClient, prefix string, ttl time.Duration, baseLog *logger.Logger) *RedisManager {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "ritual:lease"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisManager{rdb: rdb, prefix: prefix, ttl: ttl, log: baseLog.With("service", "RedisLeaseManager")}
}

func (m *RedisManager) key(userID uuid.UUID, questID string) string {
	return fmt.Sprintf("%s:%s:%s", m.prefix, questID, userID.String())
}

func (m *RedisManager) Acquire(ctx context.Context, userID uuid.UUID, questID string) (*Handle, error) {
	key := m.key(userID, questID)
	token := uuid.NewString()
	ok, err := m.rdb.SetNX(ctx, key, token, m.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lease: %w", err)
	}
	if !ok {
		return nil, ritual.ErrAlreadyActive
	}
	return newHandle(userID, questID, token, time.Now().UTC().Add(m.ttl), func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, m.rdb, []string{key}, token).Int64()
		if err != nil {
			return fmt.Errorf("release lease: %w", err)
		}
		if n == 0 {
			m.log.Warn("lease expired before release", "user_id", userID, "quest_id", questID)
		}
		return nil
	}), nil
}
