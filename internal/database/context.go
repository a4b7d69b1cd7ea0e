package database

import (
	"tupledb/internal/page"
	"tupledb/internal/transaction"
)

// TransactionContext threads one transaction, the catalog, and the page
// store through planning and execution. The engine only ever reads through
// it; nested execution shares a single context.
type TransactionContext struct {
	Txn *transaction.Transaction
	DB  *Database
	PM  *page.Manager
}

// Commit pre-commits and releases the transaction's locks.
func (ctx *TransactionContext) Commit() error {
	if err := ctx.Txn.PreCommit(); err != nil {
		return err
	}
	ctx.Txn.Commit()
	return nil
}

// Abort rolls the transaction back.
func (ctx *TransactionContext) Abort() error {
	return ctx.Txn.Abort()
}
