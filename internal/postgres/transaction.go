package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/fourgeeks/accrual-engine/internal/types"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Postgres SQLSTATE codes a concurrent batch run over overlapping
// contracts can trigger purely from transaction isolation, distinct from
// the aggregate's own optimistic-concurrency version check (spec.md SS5).
const (
	sqlstateSerializationFailure = "40001"
	sqlstateDeadlockDetected     = "40P01"
)

// TxKey is the context key type for storing a transaction.
type TxKey struct{}

// Tx wraps sqlx.Tx to support nested transactions via savepoints, so that
// internal/aggregate.Mutator's three write primitives can each open a
// transaction without caring whether a caller already opened one.
type Tx struct {
	*sqlx.Tx
	savepointID int
	ID          string
}

// GetTx retrieves a transaction from the context if it exists.
func GetTx(ctx context.Context) (*Tx, bool) {
	tx, ok := ctx.Value(TxKey{}).(*Tx)
	return tx, ok
}

// BeginTx starts a new transaction, or a savepoint if one is already open
// in ctx.
func (db *DB) BeginTx(ctx context.Context) (context.Context, *Tx, error) {
	if tx, ok := GetTx(ctx); ok {
		tx.savepointID++
		savepoint := fmt.Sprintf("sp_%d", tx.savepointID)

		db.logger.Debugw("creating savepoint",
			"tx_id", tx.ID,
			"savepoint", savepoint,
		)

		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SAVEPOINT %s", savepoint)); err != nil {
			return ctx, nil, fmt.Errorf("failed to create savepoint: %w", err)
		}
		return ctx, tx, nil
	}

	sqlxTx, err := db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
		ReadOnly:  false,
	})
	if err != nil {
		return ctx, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	tx := &Tx{Tx: sqlxTx, ID: types.GenerateID()}
	db.logger.Debugw("starting new transaction", "tx_id", tx.ID)

	return context.WithValue(ctx, TxKey{}, tx), tx, nil
}

// CommitTx commits the current transaction level.
func (db *DB) CommitTx(ctx context.Context) error {
	tx, ok := GetTx(ctx)
	if !ok {
		return fmt.Errorf("no transaction in context")
	}

	if tx.savepointID > 0 {
		savepoint := fmt.Sprintf("sp_%d", tx.savepointID)
		db.logger.Debugw("releasing savepoint", "tx_id", tx.ID, "savepoint", savepoint)
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("RELEASE SAVEPOINT %s", savepoint)); err != nil {
			return fmt.Errorf("failed to release savepoint: %w", err)
		}
		tx.savepointID--
		return nil
	}

	db.logger.Debugw("committing transaction", "tx_id", tx.ID)
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTx rolls back the current transaction level.
func (db *DB) RollbackTx(ctx context.Context) error {
	tx, ok := GetTx(ctx)
	if !ok {
		return fmt.Errorf("no transaction in context")
	}

	if tx.savepointID > 0 {
		savepoint := fmt.Sprintf("sp_%d", tx.savepointID)
		db.logger.Debugw("rolling back to savepoint", "tx_id", tx.ID, "savepoint", savepoint)
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ROLLBACK TO SAVEPOINT %s", savepoint)); err != nil {
			return fmt.Errorf("failed to rollback to savepoint: %w", err)
		}
		tx.savepointID--
		return nil
	}

	db.logger.Debugw("rolling back transaction", "tx_id", tx.ID)
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// WithTx executes fn within a transaction, committing on success and
// rolling back (then re-panicking) on error or panic. This is the
// aggregate.Transactor implementation backing internal/aggregate.Mutator
// in production.
//
// A top-level call (no transaction already in ctx) retries the entire
// attempt, with exponential backoff, when Postgres reports the attempt
// lost a serialization race against another concurrent batch run: two
// runs over disjoint contract sets can still briefly conflict at the
// storage layer even though they never touch the same contract (spec.md
// SS5). A nested call — already running inside an outer WithTx, via
// savepoints — never retries on its own; only the outermost transaction
// owns that decision, since retrying a savepoint alone can't undo what
// the outer transaction already wrote.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, nested := GetTx(ctx); nested {
		return db.runTx(ctx, fn)
	}

	maxRetries := db.serializationMaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(maxRetries-1))

	attempt := 0
	var lastErr error
	_ = backoff.Retry(func() error {
		attempt++
		lastErr = db.runTx(ctx, fn)
		if lastErr != nil && isSerializationConflict(lastErr) {
			db.logger.Warnw("retrying transaction after serialization conflict",
				"attempt", attempt, "error", lastErr)
			return lastErr
		}
		return nil
	}, bo)
	return lastErr
}

func (db *DB) runTx(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, tx, err := db.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			db.logger.Errorw("panic in transaction", "tx_id", tx.ID, "panic", r)
			_ = db.RollbackTx(ctx)
			panic(r)
		}
	}()

	if err := fn(ctx); err != nil {
		db.logger.Errorw("transaction failed", "tx_id", tx.ID, "error", err)
		if rbErr := db.RollbackTx(ctx); rbErr != nil {
			return fmt.Errorf("error rolling back transaction: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := db.CommitTx(ctx); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

// isSerializationConflict reports whether err is a Postgres serialization
// failure or deadlock, the two SQLSTATEs worth retrying a whole
// transaction for.
func isSerializationConflict(err error) bool {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return pqErr.Code == sqlstateSerializationFailure || pqErr.Code == sqlstateDeadlockDetected
	}
	return false
}
