package database

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRawDB(t *testing.T, name string) *DB {
	t.Helper()

	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: ProfileStandard,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func withoutSchemas(t *testing.T) {
	t.Helper()

	orig := findSchemas
	findSchemas = func() (string, error) {
		return "", fmt.Errorf("schemas directory not found")
	}
	t.Cleanup(func() { findSchemas = orig })
}

func TestMigrate_CreatesTables(t *testing.T) {
	db := newRawDB(t, "tracking")

	require.NoError(t, db.Migrate())

	var tables int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'").Scan(&tables)
	require.NoError(t, err)
	assert.Greater(t, tables, 0)
}

func TestMigrate_MissingSchemasFailsOnEmptyDatabase(t *testing.T) {
	db := newRawDB(t, "tracking")
	withoutSchemas(t)

	err := db.Migrate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no tables")
}

func TestMigrate_MissingSchemasAcceptedOncePopulated(t *testing.T) {
	db := newRawDB(t, "tracking")
	require.NoError(t, db.Migrate())

	// Same database restarted without the schema files on disk
	withoutSchemas(t)
	assert.NoError(t, db.Migrate())
}

func TestMigrate_UnknownNameIsSkipped(t *testing.T) {
	db := newRawDB(t, "scratch")
	withoutSchemas(t)

	// Databases outside the known set carry no schema and migrate to nothing
	assert.NoError(t, db.Migrate())
}
