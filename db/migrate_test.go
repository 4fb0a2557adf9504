package db_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/dialogue/db"
	qtesting "github.com/teranos/dialogue/internal/testing"
)

func TestMigrateIsIdempotent(t *testing.T) {
	conn := qtesting.CreateTestDB(t)

	require.NoError(t, db.Migrate(conn, nil))
	require.NoError(t, db.Migrate(conn, nil))

	var versions []string
	rows, err := conn.Query("SELECT version FROM schema_migrations ORDER BY version")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var v string
		require.NoError(t, rows.Scan(&v))
		versions = append(versions, v)
	}
	require.NoError(t, rows.Err())

	assert.Equal(t, []string{"000", "001"}, versions)
}

func TestMigrateCreatesAssetTable(t *testing.T) {
	conn := qtesting.CreateTestDB(t)
	require.NoError(t, db.Migrate(conn, nil))

	_, err := conn.Exec(
		`INSERT INTO dialogue_assets (handle, name, document, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		"h1", "Intro", `{"start_node":1,"nodes":[],"edges":[]}`, "2026-01-01T00:00:00Z", "2026-01-01T00:00:00Z",
	)
	assert.NoError(t, err)
}
