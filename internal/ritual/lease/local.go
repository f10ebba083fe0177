package lease

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/firstflame-backend/internal/domain/ritual"
)

type localEntry struct {
	token     string
	expiresAt time.Time
}

// Local keeps leases in process memory. It only guards a single instance.
type Local struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]localEntry
}

func NewLocal(ttl time.Duration) *Local {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Local{ttl: ttl, now: time.Now, entries: map[string]localEntry{}}
}

func (l *Local) Acquire(_ context.Context, userID uuid.UUID, questID string) (*Handle, error) {
	key := questID + ":" + userID.String()
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.entries[key]; ok && now.Before(cur.expiresAt) {
		return nil, ritual.ErrAlreadyActive
	}
	token := uuid.NewString()
	exp := now.Add(l.ttl)
	l.entries[key] = localEntry{token: token, expiresAt: exp}
	return newHandle(userID, questID, token, exp, func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if cur, ok := l.entries[key]; ok && cur.token == token {
			delete(l.entries, key)
		}
		return nil
	}), nil
}

func (l *Local) Sweep(context.Context) (int64, error) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for k, e := range l.entries {
		if !now.Before(e.expiresAt) {
			delete(l.entries, k)
			n++
		}
	}
	return n, nil
}
