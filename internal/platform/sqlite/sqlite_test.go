package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenMigrates(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "agent.db")

	db, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO kv (key, value) VALUES ('k', 'v')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening applies no migrations and keeps data.
	db, err = Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	var value string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = 'k'`).Scan(&value))
	require.Equal(t, "v", value)
}
