// internal/store/inbox/store_test.go
package inbox

import (
	"context"
	"testing"
	"time"

	"reminder-engine/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestStore_Insert(t *testing.T) {
	store, mock := newTestStore(t)
	createdAt := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO notifications`).
		WithArgs("notif-1", "user-1", models.CategoryAppointment, "Upcoming appointment for Rex",
			"Reminder: Rex has an appointment on 12 March 2024 10:00.", "appt-42", createdAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Insert(context.Background(), &models.Notification{
		ID:              "notif-1",
		UserID:          "user-1",
		Category:        models.CategoryAppointment,
		Title:           "Upcoming appointment for Rex",
		Message:         "Reminder: Rex has an appointment on 12 March 2024 10:00.",
		RelatedEntityID: "appt-42",
		CreatedAt:       createdAt,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_MarkRead(t *testing.T) {
	store, mock := newTestStore(t)
	at := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE notifications SET is_read = true`).
		WithArgs("notif-1", "user-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.MarkRead(context.Background(), "notif-1", "user-1", at)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_MarkAllRead(t *testing.T) {
	store, mock := newTestStore(t)
	at := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE notifications SET is_read = true`).
		WithArgs("user-1", at).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := store.MarkAllRead(context.Background(), "user-1", at)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestStore_UnreadCount(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := store.UnreadCount(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}
