package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// Or returns the transaction when set, otherwise db, bound to the context.
func (c Context) Or(db *gorm.DB) *gorm.DB {
	tx := c.Tx
	if tx == nil {
		tx = db
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return tx.WithContext(ctx)
}
