package aggregates

import (
	"context"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/firstflame-backend/internal/domain/aggregates"
	"github.com/yungbote/firstflame-backend/internal/platform/dbctx"
)

// TxRunner is the transaction boundary used by aggregate writes.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

// InTx commits fn's writes atomically. Called under a ctx that already carries a
// transaction, fn runs in a savepoint of that transaction and commits with it.
func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if outer := dbctx.TxFrom(ctx); outer != nil {
		return outer.Transaction(func(tx *gorm.DB) error {
			return fn(dbctx.Context{Ctx: dbctx.WithTx(ctx, tx), Tx: tx})
		})
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "transaction runner has nil db", nil)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: dbctx.WithTx(ctx, tx), Tx: tx})
	})
}
