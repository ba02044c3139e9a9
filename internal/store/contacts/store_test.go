// internal/store/contacts/store_test.go
package contacts

import (
	"context"
	"testing"

	engineerrors "reminder-engine/internal/common/errors"
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

func TestStore_Contact(t *testing.T) {
	tests := []struct {
		name    string
		channel string
		query   string
		column  string
		address string
	}{
		{name: "email", channel: models.ChannelEmail, query: `SELECT email FROM users`, column: "email", address: "owner@example.com"},
		{name: "sms uses phone", channel: models.ChannelSMS, query: `SELECT phone FROM users`, column: "phone", address: "+15550100"},
		{name: "whatsapp uses phone", channel: models.ChannelWhatsApp, query: `SELECT phone FROM users`, column: "phone", address: "+15550100"},
		{name: "push uses device endpoint", channel: models.ChannelPush, query: `SELECT endpoint_arn FROM user_devices`, column: "endpoint_arn", address: "arn:aws:sns:eu-west-1:123:endpoint/APNS/app/abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newTestStore(t)

			mock.ExpectQuery(tt.query).
				WithArgs("user-1").
				WillReturnRows(sqlmock.NewRows([]string{tt.column}).AddRow(tt.address))

			address, err := store.Contact(context.Background(), "user-1", tt.channel)
			require.NoError(t, err)
			assert.Equal(t, tt.address, address)
		})
	}
}

func TestStore_Contact_Missing(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT email FROM users`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"email"}))

	_, err := store.Contact(context.Background(), "user-1", models.ChannelEmail)
	require.Error(t, err)
	assert.Equal(t, engineerrors.ErrCodeContactNotFound, engineerrors.AsStandard(err).Code)
}

func TestStore_Contact_UnknownChannel(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Contact(context.Background(), "user-1", "pigeon")
	require.Error(t, err)
}
