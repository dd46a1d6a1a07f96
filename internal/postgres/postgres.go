// Package postgres provides the sqlx-backed database connection and
// transaction-in-context plumbing the repository/postgres implementations
// and internal/aggregate.Mutator run against.
package postgres

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fourgeeks/accrual-engine/internal/config"
	"github.com/fourgeeks/accrual-engine/internal/logger"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// DB wraps sqlx.DB to provide transaction management.
type DB struct {
	*sqlx.DB
	logger                  *logger.Logger
	serializationMaxRetries int
}

// Querier interface defines all database operations. Both *sqlx.DB and
// *sqlx.Tx implement these methods.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExec(query string, arg interface{}) (sql.Result, error)
	NamedQuery(query string, arg interface{}) (*sqlx.Rows, error)
	PrepareNamed(query string) (*sqlx.NamedStmt, error)
	Preparex(query string) (*sqlx.Stmt, error)
}

// NewDB creates a new DB instance, retrying the initial connection with
// exponential backoff: the batch driver's server entrypoint (cmd/server)
// is frequently rolled out alongside its database, and a cold start
// shouldn't crash-loop against a Postgres that hasn't accepted
// connections yet.
func NewDB(cfg *config.Configuration, log *logger.Logger) (*DB, error) {
	dsn := cfg.Postgres.GetDSN()

	maxRetries := cfg.Postgres.ConnectMaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(maxRetries-1))

	var db *sqlx.DB
	attempt := 0
	err := backoff.RetryNotify(
		func() error {
			attempt++
			var connErr error
			db, connErr = sqlx.Connect("postgres", dsn)
			return connErr
		},
		bo,
		func(connErr error, wait time.Duration) {
			log.Warnw("postgres connection attempt failed, retrying",
				"attempt", attempt, "wait", wait, "error", connErr)
		},
	)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetimeMinutes) * time.Minute)

	return &DB{DB: db, logger: log, serializationMaxRetries: cfg.Postgres.SerializationMaxRetries}, nil
}

// Close closes the database connection.
func (db *DB) Close() {
	if err := db.DB.Close(); err != nil {
		log.Printf("error closing database: %v", err)
	}
}

// GetQuerier returns either the transaction from context or the base DB,
// both traced.
func (db *DB) GetQuerier(ctx context.Context) Querier {
	if tx, ok := GetTx(ctx); ok {
		return NewTracedQuerier(tx.Tx, db.logger, tx.ID)
	}
	return NewTracedQuerier(db.DB, db.logger, "")
}
