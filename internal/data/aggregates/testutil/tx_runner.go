package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/firstflame-backend/internal/data/aggregates"
	"github.com/yungbote/firstflame-backend/internal/platform/dbctx"
)

// InjectedTxRunner wraps an optional real runner and injects failures or pauses around the
// transaction body. Without Inner the body runs with no transaction.
type InjectedTxRunner struct {
	Inner aggregates.TxRunner

	// BeforeBody runs before the transaction opens, e.g. to hold one writer at a barrier.
	BeforeBody func(ctx context.Context)

	mu sync.Mutex

	FailBegin      error
	FailBeforeBody error
	FailCommit     error

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	failBegin := r.FailBegin
	failBeforeBody := r.FailBeforeBody
	failCommit := r.FailCommit
	before := r.BeforeBody
	r.mu.Unlock()

	if before != nil {
		before(ctx)
	}
	if failBegin != nil {
		return failBegin
	}
	if failBeforeBody != nil {
		r.rollback()
		return failBeforeBody
	}

	body := func(dbc dbctx.Context) error {
		if fn != nil {
			if err := fn(dbc); err != nil {
				return err
			}
		}
		// Returning the commit error from inside the body makes a real inner runner roll back.
		return failCommit
	}

	var err error
	if r.Inner != nil {
		err = r.Inner.InTx(ctx, body)
	} else {
		err = body(dbctx.Context{Ctx: ctx})
	}
	if err != nil {
		r.rollback()
		return err
	}
	r.mu.Lock()
	r.CommitCalls++
	r.mu.Unlock()
	return nil
}

func (r *InjectedTxRunner) rollback() {
	r.mu.Lock()
	r.RollbackCalls++
	r.mu.Unlock()
}
