package seed

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/markup/internal/db"
	"github.com/Simplici0/markup/internal/migrations"
)

func newSeedTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "seed-test.db")
	database, err := db.Open(dbPath)
	require.NoError(t, err, "open sqlite database")
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, migrations.Up(context.Background(), database), "run migrations")
	return database
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	database := newSeedTestDB(t)
	cfg := Config{
		AdminEmail:    "admin@markup.local",
		AdminPassword: "12345",
	}

	for i := 0; i < 10; i++ {
		stats, err := Run(database, cfg)
		require.NoError(t, err, "run seed (iteration=%d)", i)
		if i == 0 {
			assert.Equal(t, 1, stats.Inserts, "first run inserts the admin")
			continue
		}
		assert.Zero(t, stats.Inserts, "iteration %d", i)
		assert.Zero(t, stats.Updates, "iteration %d", i)
	}

	assertCount(t, database, `SELECT COUNT(*) FROM users WHERE email = ?`, "admin@markup.local", 1)

	var hash string
	require.NoError(t, database.QueryRow(`SELECT password_hash FROM users WHERE email = ?`, "admin@markup.local").Scan(&hash))
	assert.True(t, CheckPassword(hash, "12345"))
}

func TestRunUpdatesChangedPassword(t *testing.T) {
	t.Parallel()

	database := newSeedTestDB(t)

	_, err := Run(database, Config{AdminEmail: "admin@markup.local", AdminPassword: "old"})
	require.NoError(t, err)

	stats, err := Run(database, Config{AdminEmail: "admin@markup.local", AdminPassword: "new"})
	require.NoError(t, err)
	assert.Equal(t, Stats{Updates: 1}, stats)

	var hash string
	require.NoError(t, database.QueryRow(`SELECT password_hash FROM users WHERE email = ?`, "admin@markup.local").Scan(&hash))
	assert.True(t, CheckPassword(hash, "new"))
	assert.False(t, CheckPassword(hash, "old"))
}

func TestRunSkipsWithoutCredentials(t *testing.T) {
	t.Parallel()

	database := newSeedTestDB(t)

	stats, err := Run(database, Config{AdminEmail: "admin@markup.local"})
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
	assertCount(t, database, `SELECT COUNT(*) FROM users WHERE email = ?`, "admin@markup.local", 0)
}

func TestHashPasswordIsSaltedBcrypt(t *testing.T) {
	t.Parallel()

	first, err := HashPassword("12345")
	require.NoError(t, err)
	second, err := HashPassword("12345")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(first, "$2"), "bcrypt hash, got %q", first)
	assert.NotEqual(t, first, second, "each hash carries its own salt")
	assert.True(t, CheckPassword(first, "12345"))
	assert.True(t, CheckPassword(second, "12345"))
	assert.False(t, CheckPassword(first, "1234"))
	assert.False(t, CheckPassword("5994471abb01112afcc18159f6cc74b4f511b99806da59b3caf5a9c173cacfc5", "12345"),
		"unsalted digests are not accepted")
}

func assertCount(t *testing.T, database *sql.DB, query string, arg any, expected int) {
	t.Helper()

	var count int
	require.NoError(t, database.QueryRow(query, arg).Scan(&count), "count query")
	assert.Equal(t, expected, count, query)
}
