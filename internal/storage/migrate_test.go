package storage

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func migrationNames(ms []schemaMigration) []string {
	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = m.Name
	}
	return names
}

func TestLoadMigrations_Embedded(t *testing.T) {
	migrations, err := loadMigrations(migrationFS)
	require.NoError(t, err)

	assert.Equal(t, []string{"001_competitions.sql", "002_saved_competitions.sql"}, migrationNames(migrations))
	assert.Equal(t, 1, migrations[0].Version)
	assert.Contains(t, migrations[0].SQL, "CREATE TABLE IF NOT EXISTS competitions")
	assert.Contains(t, migrations[1].SQL, "saved_competitions")
}

func TestLoadMigrations_OrdersByVersionNumber(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/10_late.sql":  {Data: []byte("SELECT 10")},
		"migrations/2_early.sql":  {Data: []byte("SELECT 2")},
		"migrations/README.md":    {Data: []byte("notes")},
		"migrations/001_init.sql": {Data: []byte("SELECT 1")},
	}

	migrations, err := loadMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init.sql", "2_early.sql", "10_late.sql"}, migrationNames(migrations))
}

func TestLoadMigrations_RejectsBadNames(t *testing.T) {
	_, err := loadMigrations(fstest.MapFS{"migrations/init.sql": {Data: []byte("SELECT 1")}})
	assert.ErrorContains(t, err, "positive version number")

	_, err = loadMigrations(fstest.MapFS{"migrations/000_zero.sql": {Data: []byte("SELECT 1")}})
	assert.ErrorContains(t, err, "positive version number")

	_, err = loadMigrations(fstest.MapFS{
		"migrations/003_a.sql": {Data: []byte("SELECT 1")},
		"migrations/3_b.sql":   {Data: []byte("SELECT 1")},
	})
	assert.ErrorContains(t, err, "share version 3")
}

func TestPendingMigrations(t *testing.T) {
	all := []schemaMigration{{Version: 1, Name: "a"}, {Version: 2, Name: "b"}, {Version: 5, Name: "c"}}

	assert.Equal(t, []string{"a", "b", "c"}, migrationNames(pendingMigrations(all, 0)))
	assert.Equal(t, []string{"c"}, migrationNames(pendingMigrations(all, 2)))
	assert.Equal(t, []string{"c"}, migrationNames(pendingMigrations(all, 4)))
	assert.Empty(t, pendingMigrations(all, 5))
}
