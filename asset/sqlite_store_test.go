package asset

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbpkg "github.com/teranos/dialogue/db"
	"github.com/teranos/dialogue/errors"
	qtesting "github.com/teranos/dialogue/internal/testing"
)

func TestSQLiteStoreSaveLoad(t *testing.T) {
	ctx := context.Background()
	db := qtesting.CreateMigratedTestDB(t)
	store := NewSQLiteStore(db, nil)

	a := New(sampleGraph(t))
	require.NoError(t, store.Save(ctx, "intro", a))

	// Saved assets are immediately ready
	got, ok := store.Get("intro")
	require.True(t, ok)
	assert.Same(t, a, got)

	// A fresh store sees nothing until it loads
	fresh := NewSQLiteStore(db, nil)
	_, ok = fresh.Get("intro")
	assert.False(t, ok)

	loaded, err := fresh.Load(ctx, "intro")
	require.NoError(t, err)
	assert.Equal(t, "Intro", loaded.Name())
	assert.Equal(t, a.Graph.Edges(), loaded.Graph.Edges())

	_, ok = fresh.Get("intro")
	assert.True(t, ok)
}

func TestSQLiteStoreUpsert(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(qtesting.CreateMigratedTestDB(t), nil)

	a := New(sampleGraph(t))
	require.NoError(t, store.Save(ctx, "intro", a))
	a.Graph.SetName("Renamed")
	require.NoError(t, store.Save(ctx, "intro", a))

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Renamed", records[0].Name)
	assert.Equal(t, Handle("intro"), records[0].Handle)
	assert.False(t, records[0].CreatedAt.IsZero())
	assert.False(t, records[0].UpdatedAt.Before(records[0].CreatedAt))
}

func TestSQLiteStoreLoadAll(t *testing.T) {
	ctx := context.Background()
	db := qtesting.CreateMigratedTestDB(t)
	writer := NewSQLiteStore(db, nil)

	require.NoError(t, writer.Save(ctx, "a", New(sampleGraph(t))))
	require.NoError(t, writer.Save(ctx, "b", New(sampleGraph(t))))
	_, err := db.Exec(`INSERT INTO dialogue_assets (handle, name, document, created_at, updated_at)
		VALUES ('broken', '', '{not json', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`)
	require.NoError(t, err)

	reader := NewSQLiteStore(db, nil)
	n, err := reader.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, h := range []Handle{"a", "b"} {
		_, ok := reader.Get(h)
		assert.True(t, ok, string(h))
	}
	_, ok := reader.Get("broken")
	assert.False(t, ok)
}

func TestSQLiteStoreMissing(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(qtesting.CreateMigratedTestDB(t), nil)

	_, err := store.Load(ctx, "nope")
	assert.ErrorIs(t, err, ErrAssetNotFound)
	assert.True(t, errors.IsNotFoundError(err))

	assert.ErrorIs(t, store.Delete(ctx, "nope"), ErrAssetNotFound)
}

func TestSQLiteStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(qtesting.CreateMigratedTestDB(t), nil)
	require.NoError(t, store.Save(ctx, "intro", New(sampleGraph(t))))

	require.NoError(t, store.Delete(ctx, "intro"))

	_, ok := store.Get("intro")
	assert.False(t, ok)
	records, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLiteStoreClosedDatabase(t *testing.T) {
	ctx := context.Background()
	db := qtesting.CreateMigratedTestDB(t)
	store := NewSQLiteStore(db, nil)
	require.NoError(t, db.Close())

	err := store.Save(ctx, "intro", New(sampleGraph(t)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dbpkg.ErrDatabaseClosed))
	assert.Contains(t, err.Error(), "failed to save asset intro")

	_, err = store.List(ctx)
	assert.True(t, dbpkg.IsDatabaseClosed(err))
}

func TestSQLiteStoreSave_Sqlmock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO dialogue_assets").
		WithArgs("intro", "Intro", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("disk I/O error"))

	store := NewSQLiteStore(db, nil)
	err = store.Save(context.Background(), "intro", New(sampleGraph(t)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save asset intro")
	assert.Contains(t, err.Error(), "disk I/O error")

	// A failed save must not publish the asset
	_, ok := store.Get("intro")
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStoreLoad_Sqlmock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT document FROM dialogue_assets").
		WithArgs("intro").
		WillReturnRows(sqlmock.NewRows([]string{"document"}).AddRow(`{"start_node":1,"nodes":[{"kind":"text","id":1}],"edges":[]}`))

	store := NewSQLiteStore(db, nil)
	_, err = store.Load(context.Background(), "intro")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text node without text")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStoreLoadWrappedNoRows_Sqlmock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT document FROM dialogue_assets").
		WithArgs("intro").
		WillReturnError(errors.Wrap(sql.ErrNoRows, "driver"))

	store := NewSQLiteStore(db, nil)
	_, err = store.Load(context.Background(), "intro")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAssetNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStoreListBadTimestamp_Sqlmock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT handle, name, created_at, updated_at FROM dialogue_assets").
		WillReturnRows(sqlmock.NewRows([]string{"handle", "name", "created_at", "updated_at"}).
			AddRow("intro", "Intro", "yesterday", "2026-10-01T09:00:00Z"))

	store := NewSQLiteStore(db, nil)
	_, err = store.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid created_at for asset intro")

	assert.NoError(t, mock.ExpectationsWereMet())
}
