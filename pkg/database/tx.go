package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// SQLSTATE codes that are safe to retry: the transaction was aborted before any business decision stuck.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

type txKey struct{}

// Executor is satisfied by both *sqlx.DB and *sqlx.Tx.
type Executor interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

// Conn returns the transaction bound to ctx, falling back to db.
func Conn(ctx context.Context, db *sqlx.DB) Executor {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok && tx != nil {
		return tx
	}
	return db
}

// InTx reports whether ctx already carries a transaction.
func InTx(ctx context.Context) bool {
	tx, ok := ctx.Value(txKey{}).(*sqlx.Tx)
	return ok && tx != nil
}

// RetryObserver is notified every time a transaction is retried.
type RetryObserver func(attempt int, err error)

// TxManager runs units of work inside a single transaction with bounded retry on serialization failures.
type TxManager struct {
	db         *sqlx.DB
	opts       *sql.TxOptions
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
	onRetry    RetryObserver
}

// NewTxManager constructs a TxManager. Transactions run at READ COMMITTED with explicit row locks.
func NewTxManager(db *sqlx.DB, maxRetries int, backoff time.Duration, logger *zap.Logger) *TxManager {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoff <= 0 {
		backoff = 25 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TxManager{db: db, opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted}, maxRetries: maxRetries, backoff: backoff, logger: logger}
}

// OnRetry registers an observer for retried transactions.
func (m *TxManager) OnRetry(fn RetryObserver) {
	m.onRetry = fn
}

// WithinTx executes fn with a transaction bound to the context passed to it.
// Nested calls join the outer transaction. Only serialization failures and deadlocks are retried.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}

	var err error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		if attempt > 0 {
			if m.onRetry != nil {
				m.onRetry(attempt, err)
			}
			m.logger.Warn("retrying transaction", zap.Int("attempt", attempt), zap.Error(err))
			wait := m.backoff * time.Duration(1<<uint(attempt-1))
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		err = m.run(ctx, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
	}
	return fmt.Errorf("transaction retries exhausted: %w", err)
}

func (m *TxManager) run(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := m.db.BeginTxx(ctx, m.opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// IsRetryable reports whether err is a serialization failure or deadlock from either postgres driver.
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		return code == sqlStateSerializationFailure || code == sqlStateDeadlockDetected
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
	}
	return false
}
