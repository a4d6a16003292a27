package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewAndMigrate(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "po.db"), MaxOpenConns: 4}, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate())
	require.NoError(t, db.Migrate(), "migrating an up-to-date database is a no-op")

	for _, table := range []string{"users", "purchase_orders", "approval_entries", "schema_migrations"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		assert.NoError(t, err, table)
	}

	var fk int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestNew_BadPath(t *testing.T) {
	_, err := New(Config{Path: filepath.Join(t.TempDir(), "missing", "dir", "po.db")}, zap.NewNop())
	assert.Error(t, err)
}
