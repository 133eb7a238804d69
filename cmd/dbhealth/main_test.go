package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdf-compare/constants"
	"github.com/joseph-ayodele/pdf-compare/internal/store"
)

func runHealth(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRequiresDatabase(t *testing.T) {
	t.Setenv("DB_URL", "")
	code, _, stderr := runHealth()
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "DB_URL")
}

func TestMigrateAndList(t *testing.T) {
	t.Setenv("DB_URL", "")
	dsn := "sqlite://" + filepath.Join(t.TempDir(), "runs.db")

	code, out, stderr := runHealth("-db", dsn)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "DB health: OK (sqlite3)")
	assert.Contains(t, stderr, "listing runs")

	code, out, _ = runHealth("-db", dsn, "-migrate")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "recent runs: 0")

	ctx := context.Background()
	db, err := store.Open(ctx, store.Config{DSN: dsn}, nil)
	require.NoError(t, err)
	runs := store.NewRunRepository(db, nil)
	for _, id := range []string{"older", "newer"} {
		_, err := runs.Start(ctx, store.NewRun{Identifier: id, File1: id + "1.pdf", File2: id + "2.pdf", Mode: constants.ModeText, Strategy: constants.StrategyExact})
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	code, out, _ = runHealth("-db", dsn, "-n", "5")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "recent runs: 2")
	assert.Contains(t, out, "older")
	assert.Contains(t, out, "RUNNING")

	code, out, _ = runHealth("-db", dsn, "-n", "1")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "recent runs: 1")
}

func TestBadFlag(t *testing.T) {
	code, _, _ := runHealth("-no-such-flag")
	assert.Equal(t, 2, code)
}
