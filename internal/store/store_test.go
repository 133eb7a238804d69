package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdf-compare/constants"
	"github.com/joseph-ayodele/pdf-compare/internal/common"
	"github.com/joseph-ayodele/pdf-compare/internal/compare"
	"github.com/joseph-ayodele/pdf-compare/internal/pages"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, Config{DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))
	return db
}

func newVisualRun() NewRun {
	return NewRun{
		Identifier: "report",
		File1:      "a/report.pdf",
		File2:      "b/report.pdf",
		Mode:       constants.ModeVisual,
		Strategy:   constants.StrategyExact,
		StartPage:  pages.Unspecified,
		EndPage:    pages.Unspecified,
	}
}

func TestOpen_RejectsEmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestIsPostgres(t *testing.T) {
	assert.True(t, IsPostgres("postgres://u@h/db"))
	assert.True(t, IsPostgres("postgresql://u@h/db"))
	assert.False(t, IsPostgres("sqlite://runs.db"))
	assert.False(t, IsPostgres(":memory:"))
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))
	assert.Equal(t, "sqlite3", db.Dialect())
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewRunRepository(openTestDB(t), nil)

	run, err := repo.Start(ctx, newVisualRun())
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusRunning, run.Status)

	out := &compare.Outcome{
		Matched:    false,
		Mode:       constants.ModeVisual,
		PageCount1: 3,
		PageCount2: 3,
		Range:      pages.Range{Start: 1, End: 3},
		Pages: []compare.PageResult{
			{Page: 1, Matched: true},
			{Page: 2, Matched: false, Differing: 16, Image: "report_2_diff"},
		},
		Duration: 1500 * time.Millisecond,
	}
	require.NoError(t, repo.Finish(ctx, run.ID, out))

	got, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, constants.RunStatusMismatched, got.Status)
	assert.Equal(t, 1, got.StartPage)
	assert.Equal(t, 3, got.EndPage)
	assert.Equal(t, 3, got.PageCount1)
	assert.Equal(t, 1, got.MismatchedPages)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.False(t, got.FinishedAt.IsZero())
	require.Len(t, got.Pages, 2)
	assert.Equal(t, Page{Page: 1, Matched: true}, got.Pages[0])
	assert.Equal(t, Page{Page: 2, Matched: false, Differing: 16, Image: "report_2_diff"}, got.Pages[1])
}

func TestFinishFailure(t *testing.T) {
	ctx := context.Background()
	repo := NewRunRepository(openTestDB(t), nil)

	run, err := repo.Start(ctx, newVisualRun())
	require.NoError(t, err)
	require.NoError(t, repo.FinishFailure(ctx, run.ID, "pdftoppm exited 1"))

	got, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.RunStatusFailed, got.Status)
	assert.Equal(t, "pdftoppm exited 1", got.ErrorMessage)
	assert.Empty(t, got.Pages)
}

func TestGet_NotFound(t *testing.T) {
	repo := NewRunRepository(openTestDB(t), nil)
	_, err := repo.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestFinish_UnknownRun(t *testing.T) {
	repo := NewRunRepository(openTestDB(t), nil)
	err := repo.Finish(context.Background(), uuid.New(), &compare.Outcome{Matched: true, Mode: constants.ModeText})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestList_FiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	repo := NewRunRepository(openTestDB(t), nil)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		run, err := repo.Start(ctx, newVisualRun())
		require.NoError(t, err)
		ids = append(ids, run.ID)
		time.Sleep(5 * time.Millisecond)
	}
	require.NoError(t, repo.Finish(ctx, ids[0], &compare.Outcome{Matched: true, Mode: constants.ModeText}))
	require.NoError(t, repo.FinishFailure(ctx, ids[1], "boom"))

	all, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")
	assert.Equal(t, ids[0], all[2].ID)

	matched, err := repo.List(ctx, ListFilter{Status: constants.RunStatusMatched})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, ids[0], matched[0].ID)

	limited, err := repo.List(ctx, ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
