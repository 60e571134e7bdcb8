package geocache

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwparking/parksafe/internal/model"
)

func TestPostgresStore_Migrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS geocode_cache").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	store := NewPostgresFromPool(mock)
	assert.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadAll(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	resolvedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT address, latitude, longitude, resolved_at, confidence FROM geocode_cache").
		WillReturnRows(pgxmock.NewRows([]string{"address", "latitude", "longitude", "resolved_at", "confidence"}).
			AddRow("42 king st n, waterloo, on, canada", 43.47, -80.52, resolvedAt, 1.0).
			AddRow("15 erb st w, waterloo, on, canada", 43.46, -80.53, resolvedAt, 0.8))

	store := NewPostgresFromPool(mock)
	entries, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	entry := entries["42 king st n, waterloo, on, canada"]
	assert.InDelta(t, 43.47, entry.Lat, 0.0001)
	assert.Equal(t, model.SourceCache, entry.Source)
	assert.Equal(t, resolvedAt, entry.ResolvedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadAll_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT address").WillReturnError(assert.AnError)

	store := NewPostgresFromPool(mock)
	_, err = store.LoadAll(context.Background())

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "load", storageErr.Op)
}

func TestPostgresStore_Upsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	entry := model.GeocodeEntry{
		Address:    "10 victoria st s, waterloo, on, canada",
		Lat:        43.4601,
		Lng:        -80.5223,
		ResolvedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Confidence: 1.0,
	}

	mock.ExpectExec("INSERT INTO geocode_cache").
		WithArgs(entry.Address, entry.Lat, entry.Lng, entry.ResolvedAt, entry.Confidence).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewPostgresFromPool(mock)
	assert.NoError(t, store.Upsert(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Clear(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM geocode_cache").
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	store := NewPostgresFromPool(mock)
	n, err := store.Clear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}
