// internal/subscription/postgresstore_test.go
package subscription

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "menubot/internal/common/errors"
	"menubot/internal/common/logger"
)

func newTestPostgresStore(t *testing.T, rows *sqlmock.Rows) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS subscriptions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT recipient, notify_at, last_notified FROM subscriptions").
		WillReturnRows(rows)

	s, err := NewPostgresStore(context.Background(), db, logger.NewTestLogger(t))
	require.NoError(t, err)
	return s, mock
}

func TestPostgresStore_LoadsExistingRows(t *testing.T) {
	rows := sqlmock.NewRows([]string{"recipient", "notify_at", "last_notified"}).
		AddRow("alice@example.org", "08:30", "2026-01-05").
		AddRow("bob@example.org", "12:00", nil)

	s, mock := newTestPostgresStore(t, rows)

	sub, ok, err := s.Get(context.Background(), "alice@example.org")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, TimeOfDay{Hour: 8, Minute: 30}, sub.NotifyAt)
	require.NotNil(t, sub.LastNotified)
	assert.Equal(t, "2026-01-05", *sub.LastNotified)

	sub, ok, err = s.Get(context.Background(), "bob@example.org")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, sub.LastNotified)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SubscribeRewritesTable(t *testing.T) {
	s, mock := newTestPostgresStore(t, sqlmock.NewRows([]string{"recipient", "notify_at", "last_notified"}))

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM subscriptions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO subscriptions").
		WithArgs("alice@example.org", "08:30", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.Subscribe(context.Background(), "alice@example.org", TimeOfDay{Hour: 8, Minute: 30})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MarkNotifiedWritesOnce(t *testing.T) {
	rows := sqlmock.NewRows([]string{"recipient", "notify_at", "last_notified"}).
		AddRow("alice@example.org", "08:30", nil).
		AddRow("bob@example.org", "12:00", nil)

	s, mock := newTestPostgresStore(t, rows)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM subscriptions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO subscriptions").
		WithArgs("alice@example.org", "08:30", "2026-01-05").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO subscriptions").
		WithArgs("bob@example.org", "12:00", "2026-01-05").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.MarkNotified(context.Background(), []string{"alice@example.org", "bob@example.org"}, "2026-01-05")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PersistFailureRollsBack(t *testing.T) {
	s, mock := newTestPostgresStore(t, sqlmock.NewRows([]string{"recipient", "notify_at", "last_notified"}))

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM subscriptions").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := s.Subscribe(context.Background(), "alice@example.org", TimeOfDay{Hour: 8, Minute: 30})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodePersistenceFailed, apperrors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
