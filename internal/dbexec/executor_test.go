package dbexec

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return db, mock
}

func TestStandardExecutor_NilDB(t *testing.T) {
	e := NewStandardExecutor(nil)

	_, err := e.QueryContext(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, sql.ErrConnDone)

	_, err = e.ExecContext(context.Background(), "DELETE FROM t")
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestStandardExecutor_PassesThrough(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT 1`).WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	e := NewStandardExecutor(db)
	rows, err := e.QueryContext(context.Background(), "SELECT 1")
	require.NoError(t, err)
	require.True(t, rows.Next())
	var got int
	require.NoError(t, rows.Scan(&got))
	assert.Equal(t, 1, got)
	require.NoError(t, rows.Close())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransaction_Commits(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE .articles.`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := WithTransaction(context.Background(), db, func(exec QueryExecutor) error {
		_, err := exec.ExecContext(context.Background(), "UPDATE `articles` SET `slug` = ?", "home")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := WithTransaction(context.Background(), db, func(exec QueryExecutor) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransaction_NilDB(t *testing.T) {
	err := WithTransaction(context.Background(), nil, func(exec QueryExecutor) error {
		return nil
	})
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestTxExecutor_NilTx(t *testing.T) {
	e := NewTxExecutor(nil)

	_, err := e.QueryContext(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, sql.ErrTxDone)

	_, err = e.ExecContext(context.Background(), "DELETE FROM t")
	assert.ErrorIs(t, err, sql.ErrTxDone)
}
