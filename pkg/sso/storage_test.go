package sso

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStorage(db), mock
}

func TestCreateProvider(t *testing.T) {
	storage, mock := newTestStorage(t)

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO sso_providers`).
		WithArgs(int64(7), true, true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(1, now, now))

	provider := &Provider{GroupID: 7, Enforced: true, Enabled: true}
	require.NoError(t, storage.CreateProvider(context.Background(), provider))
	assert.Equal(t, int64(1), provider.ID)
	assert.Equal(t, now, provider.CreatedAt)
}

func TestGetProviderForGroup(t *testing.T) {
	storage, mock := newTestStorage(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "group_id", "enforced", "enabled", "created_at", "updated_at"}).
		AddRow(1, 7, true, true, now, now)
	mock.ExpectQuery(`SELECT id, group_id, enforced, enabled, created_at, updated_at\s+FROM sso_providers`).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	provider, err := storage.GetProviderForGroup(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.Equal(t, int64(1), provider.ID)
	assert.True(t, provider.Enforced)
}

func TestGetProviderForGroup_Absent(t *testing.T) {
	storage, mock := newTestStorage(t)

	mock.ExpectQuery(`SELECT id, group_id, enforced, enabled, created_at, updated_at\s+FROM sso_providers`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "group_id", "enforced", "enabled", "created_at", "updated_at"}))

	provider, err := storage.GetProviderForGroup(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, provider)
}

func TestListProviders_EnabledOnly(t *testing.T) {
	storage, mock := newTestStorage(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "group_id", "enforced", "enabled", "created_at", "updated_at"}).
		AddRow(1, 7, false, true, now, now).
		AddRow(2, 9, true, true, now, now)
	mock.ExpectQuery(`FROM sso_providers\s+WHERE enabled = true`).
		WillReturnRows(rows)

	providers, err := storage.ListProviders(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, int64(9), providers[1].GroupID)
}

func TestUpdateProvider(t *testing.T) {
	storage, mock := newTestStorage(t)

	mock.ExpectExec(`UPDATE sso_providers`).
		WithArgs(false, true, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	provider := &Provider{ID: 1, Enforced: false, Enabled: true}
	require.NoError(t, storage.UpdateProvider(context.Background(), provider))
	assert.NoError(t, mock.ExpectationsWereMet())
}
