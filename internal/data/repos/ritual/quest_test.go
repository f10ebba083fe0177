package ritual

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/firstflame-backend/internal/data/repos/testutil"
	types "github.com/yungbote/firstflame-backend/internal/domain/ritual"
	"github.com/yungbote/firstflame-backend/internal/platform/dbctx"
)

func TestQuestAndParticipantRepos(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	log := testutil.Logger(t)
	quests := NewQuestRepo(db, log)
	participants := NewQuestParticipantRepo(db, log)

	q1 := types.FirstFlameQuest()
	first, err := quests.EnsureBySlug(dbc, &q1)
	if err != nil || first == nil {
		t.Fatalf("EnsureBySlug: %+v %v", first, err)
	}
	q2 := types.FirstFlameQuest()
	second, err := quests.EnsureBySlug(dbc, &q2)
	if err != nil {
		t.Fatalf("EnsureBySlug(again): %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("EnsureBySlug not idempotent: %s vs %s", first.ID, second.ID)
	}
	if second.DayCount != types.DayCount {
		t.Fatalf("DayCount: want=%d got=%d", types.DayCount, second.DayCount)
	}

	userID := uuid.New()
	inserted, err := participants.Ensure(dbc, first.ID, userID, "")
	if err != nil || !inserted {
		t.Fatalf("Ensure: inserted=%v err=%v", inserted, err)
	}
	inserted, err = participants.Ensure(dbc, first.ID, userID, "")
	if err != nil || inserted {
		t.Fatalf("Ensure(again): inserted=%v err=%v", inserted, err)
	}
	ok, err := participants.Exists(dbc, first.ID, userID)
	if err != nil || !ok {
		t.Fatalf("Exists: ok=%v err=%v", ok, err)
	}
}

func TestImprintRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewImprintRepo(db, testutil.Logger(t))

	userID := uuid.New()
	for _, day := range []int{2, 1} {
		if _, err := repo.Create(dbc, &types.Imprint{
			UserID:    userID,
			QuestID:   types.FirstFlameSlug,
			Day:       day,
			Payload:   datatypes.JSON(`{"text":"ember"}`),
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			t.Fatalf("Create(day %d): %v", day, err)
		}
	}
	rows, err := repo.ListByUserQuest(dbc, userID, types.FirstFlameSlug)
	if err != nil {
		t.Fatalf("ListByUserQuest: %v", err)
	}
	if len(rows) != 2 || rows[0].Day != 1 || rows[1].Day != 2 {
		t.Fatalf("ListByUserQuest: unexpected %+v", rows)
	}
}
