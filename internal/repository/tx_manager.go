package repository

import (
	"context"

	"gorm.io/gorm"
)

type contextKey string

const txKey contextKey = "gorm_tx"

// TransactionManager manages database transactions via context injection.
// Atomic reports whether a failed fn rolls back every write made through txCtx.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
	Atomic() bool
}

type transactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if _, ok := ctx.Value(txKey).(*gorm.DB); ok {
		// already inside a transaction, join it
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txKey, tx)
		return fn(txCtx)
	})
}

func (t *transactionManager) Atomic() bool { return true }

// sequentialTxManager runs fn without a transaction: every statement commits on its own.
// It models a store with per-statement atomicity only, where a multi-row write that fails
// midway leaves the earlier rows in place.
type sequentialTxManager struct{}

func NewSequentialTxManager() TransactionManager {
	return sequentialTxManager{}
}

func (sequentialTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

func (sequentialTxManager) Atomic() bool { return false }

// GetDB extracts the transaction DB from context if present, otherwise returns root DB.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}

func pageOffset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}

// lastNumber reads MAX(column) among rows whose column starts with prefix.
// Numbers are zero padded, so the lexical maximum is the numeric one.
func lastNumber(q *gorm.DB, column, prefix string) (string, error) {
	var last struct {
		Value *string
	}
	if err := q.Select("MAX("+column+") as value").Where(column+" LIKE ?", prefix+"%").Scan(&last).Error; err != nil {
		return "", err
	}
	if last.Value == nil {
		return "", nil
	}
	return *last.Value, nil
}
