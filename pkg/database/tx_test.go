package database

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTxMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTxManagerCommits(t *testing.T) {
	db, mock, cleanup := newTxMock(t)
	defer cleanup()
	mgr := NewTxManager(db, 2, time.Millisecond, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE groups").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := mgr.WithinTx(context.Background(), func(ctx context.Context) error {
		assert.True(t, InTx(ctx))
		_, err := Conn(ctx, db).ExecContext(ctx, "UPDATE groups SET cupo_actual = 1")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManagerRetriesSerializationFailure(t *testing.T) {
	db, mock, cleanup := newTxMock(t)
	defer cleanup()
	mgr := NewTxManager(db, 2, time.Millisecond, zap.NewNop())
	var retries int
	mgr.OnRetry(func(attempt int, err error) { retries++ })

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE groups").WillReturnError(&pq.Error{Code: "40001"})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE groups").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := mgr.WithinTx(context.Background(), func(ctx context.Context) error {
		_, err := Conn(ctx, db).ExecContext(ctx, "UPDATE groups SET cupo_actual = 1")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, retries)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManagerDoesNotRetryBusinessErrors(t *testing.T) {
	db, mock, cleanup := newTxMock(t)
	defer cleanup()
	mgr := NewTxManager(db, 3, time.Millisecond, zap.NewNop())
	businessErr := errors.New("group full")

	mock.ExpectBegin()
	mock.ExpectRollback()

	calls := 0
	err := mgr.WithinTx(context.Background(), func(ctx context.Context) error {
		calls++
		return businessErr
	})
	require.ErrorIs(t, err, businessErr)
	assert.Equal(t, 1, calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManagerNestedJoinsOuter(t *testing.T) {
	db, mock, cleanup := newTxMock(t)
	defer cleanup()
	mgr := NewTxManager(db, 0, time.Millisecond, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := mgr.WithinTx(context.Background(), func(ctx context.Context) error {
		return mgr.WithinTx(ctx, func(inner context.Context) error {
			assert.True(t, InTx(inner))
			return nil
		})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pq.Error{Code: "40P01"}))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40001"}))
	assert.False(t, IsRetryable(&pq.Error{Code: "23505"}))
	assert.False(t, IsRetryable(errors.New("boom")))
}
