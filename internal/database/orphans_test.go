package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luca1234105/torren/internal/models"
)

const testHash = "0123456789abcdef0123456789abcdef01234567"

func TestOrphanStore_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS orphaned_resources")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewOrphanStore(db)
	assert.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrphanStore_RecordOrphan(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orphaned_resources")).
		WithArgs(sqlmock.AnyArg(), "realdebrid", "R1", testHash, "fp123", models.PhaseCompensating, "delete torrent: boom", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewOrphanStore(db)
	err = store.RecordOrphan(context.Background(), models.OrphanedResource{
		Service:               "realdebrid",
		ResourceID:            "R1",
		ContentHash:           testHash,
		CredentialFingerprint: "fp123",
		Phase:                 models.PhaseCompensating,
		Error:                 "delete torrent: boom",
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrphanStore_RecordOrphanError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orphaned_resources")).
		WillReturnError(errors.New("connection reset"))

	store := NewOrphanStore(db)
	err = store.RecordOrphan(context.Background(), models.OrphanedResource{ResourceID: "R9"})
	assert.ErrorContains(t, err, "insert orphaned resource R9")
}

func TestOrphanStore_ListRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	created := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "service", "resource_id", "content_hash", "credential_fingerprint", "phase", "error", "created_at"}).
		AddRow(id.String(), "realdebrid", "R1", testHash, "fp123", models.PhasePrimary, "boom", created)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, service, resource_id")).
		WithArgs(DefaultOrphanListLimit).
		WillReturnRows(rows)

	store := NewOrphanStore(db)
	got, err := store.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, models.ContentHash(testHash), got[0].ContentHash)
	assert.Equal(t, models.PhasePrimary, got[0].Phase)
	assert.True(t, created.Equal(got[0].CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrphanStore_ListRecentCapsLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM orphaned_resources")).
		WithArgs(MaxOrphanListLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	store := NewOrphanStore(db)
	got, err := store.ListRecent(context.Background(), 10000)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
