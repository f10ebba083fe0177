package aggregates_test

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/firstflame-backend/internal/data/aggregates"
	"github.com/yungbote/firstflame-backend/internal/data/repos"
	repotest "github.com/yungbote/firstflame-backend/internal/data/repos/testutil"
	"github.com/yungbote/firstflame-backend/internal/domain/ritual"
	"github.com/yungbote/firstflame-backend/internal/platform/dbctx"
)

func TestNestedInTxRollsBackOnlyTheSavepoint(t *testing.T) {
	db := repotest.SQLiteDB(t)
	r := repos.NewRitual(db, repotest.Logger(t))
	runner := aggregates.NewGormTxRunner(db)
	boom := errors.New("boom")

	quest := func(slug string) *ritual.Quest {
		q := ritual.FirstFlameQuest()
		q.Slug = slug
		return &q
	}

	err := runner.InTx(context.Background(), func(dbc dbctx.Context) error {
		if _, err := r.Quests.EnsureBySlug(dbc, quest("outer")); err != nil {
			return err
		}
		inner := runner.InTx(dbc.Ctx, func(inner dbctx.Context) error {
			if _, err := r.Quests.EnsureBySlug(inner, quest("inner")); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(inner, boom) {
			t.Fatalf("inner: want=%v got=%v", boom, inner)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("outer InTx: %v", err)
	}

	dbc := dbctx.Of(context.Background())
	if q, err := r.Quests.GetBySlug(dbc, "outer"); err != nil || q == nil {
		t.Fatalf("outer quest: want committed got=%+v err=%v", q, err)
	}
	if q, err := r.Quests.GetBySlug(dbc, "inner"); err != nil || q != nil {
		t.Fatalf("inner quest: want rolled back got=%+v err=%v", q, err)
	}
}

func TestInTxWithoutDB(t *testing.T) {
	err := aggregates.NewGormTxRunner(nil).InTx(context.Background(), func(dbctx.Context) error { return nil })
	if err == nil {
		t.Fatalf("expected error for nil db")
	}
}
