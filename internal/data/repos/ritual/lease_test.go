package ritual

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/firstflame-backend/internal/data/repos/testutil"
	types "github.com/yungbote/firstflame-backend/internal/domain/ritual"
	"github.com/yungbote/firstflame-backend/internal/platform/dbctx"
)

func TestLeaseRepoAcquireReclaimRelease(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Of(context.Background())
	repo := NewLeaseRepo(db, testutil.Logger(t))

	userID := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)
	first := &types.Lease{UserID: userID, QuestID: types.FirstFlameSlug, Token: "a", AcquiredAt: now, ExpiresAt: now.Add(time.Minute)}
	ok, err := repo.TryAcquire(dbc, first)
	if err != nil || !ok {
		t.Fatalf("TryAcquire(first): ok=%v err=%v", ok, err)
	}

	second := &types.Lease{UserID: userID, QuestID: types.FirstFlameSlug, Token: "b", AcquiredAt: now.Add(time.Second), ExpiresAt: now.Add(time.Minute)}
	ok, err = repo.TryAcquire(dbc, second)
	if err != nil || ok {
		t.Fatalf("TryAcquire(live): ok=%v err=%v", ok, err)
	}

	// After expiry the lease can be taken over.
	later := now.Add(2 * time.Minute)
	third := &types.Lease{UserID: userID, QuestID: types.FirstFlameSlug, Token: "c", AcquiredAt: later, ExpiresAt: later.Add(time.Minute)}
	ok, err = repo.TryAcquire(dbc, third)
	if err != nil || !ok {
		t.Fatalf("TryAcquire(expired): ok=%v err=%v", ok, err)
	}

	// The stale holder cannot release the new lease.
	released, err := repo.Release(dbc, userID, types.FirstFlameSlug, "a")
	if err != nil || released {
		t.Fatalf("Release(stale): released=%v err=%v", released, err)
	}
	released, err = repo.Release(dbc, userID, types.FirstFlameSlug, "c")
	if err != nil || !released {
		t.Fatalf("Release(owner): released=%v err=%v", released, err)
	}
	got, err := repo.Get(dbc, userID, types.FirstFlameSlug)
	if err != nil || got != nil {
		t.Fatalf("Get(after release): %+v %v", got, err)
	}
}

func TestLeaseRepoDeleteExpired(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Of(context.Background())
	repo := NewLeaseRepo(db, testutil.Logger(t))

	now := time.Now().UTC().Truncate(time.Microsecond)
	stale := &types.Lease{UserID: uuid.New(), QuestID: types.FirstFlameSlug, Token: "s", AcquiredAt: now.Add(-time.Hour), ExpiresAt: now.Add(-time.Minute)}
	live := &types.Lease{UserID: uuid.New(), QuestID: types.FirstFlameSlug, Token: "l", AcquiredAt: now, ExpiresAt: now.Add(time.Hour)}
	for _, l := range []*types.Lease{stale, live} {
		if ok, err := repo.TryAcquire(dbc, l); err != nil || !ok {
			t.Fatalf("TryAcquire(%s): ok=%v err=%v", l.Token, ok, err)
		}
	}
	n, err := repo.DeleteExpired(dbc, now)
	if err != nil || n != 1 {
		t.Fatalf("DeleteExpired: want=1 got=%d err=%v", n, err)
	}
	if got, _ := repo.Get(dbc, live.UserID, types.FirstFlameSlug); got == nil {
		t.Fatalf("live lease was swept")
	}
}
