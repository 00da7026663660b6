package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/wiki-generator/internal/types"
)

func openTestSQLite(t *testing.T) *SQLiteDB {
	t.Helper()
	s, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLite_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	runID, err := s.CreateRun(ctx, "abc12345", KindGenerate, string(types.ModeFull), 3)
	require.NoError(t, err)

	run, err := s.GetRun(ctx, runID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, StatusRunning, run.Status)
	assert.Equal(t, 3, run.Total)
	assert.Nil(t, run.CompletedAt)

	require.NoError(t, s.RecordPage(ctx, runID, "Bet Stop", PageSuccess, ""))
	require.NoError(t, s.RecordPage(ctx, runID, "ACMA", PageFailed, "model unavailable"))
	require.NoError(t, s.RecordPage(ctx, runID, "Lifeline", PageSuccess, ""))

	result := types.NewBatchResult()
	result.AddSuccess("Bet Stop")
	result.AddFailure("ACMA", errors.New("model unavailable"))
	result.AddSuccess("Lifeline")
	require.NoError(t, s.CompleteRun(ctx, runID, StatusComplete, result, ""))

	run, err = s.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, run.Status)
	assert.Equal(t, 2, run.SuccessCount)
	assert.Equal(t, 1, run.FailedCount)
	require.NotNil(t, run.CompletedAt)
	assert.False(t, run.CompletedAt.Before(run.CreatedAt))

	pages, err := s.ListPageResults(ctx, runID)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, "ACMA", pages[1].Title)
	assert.Equal(t, "model unavailable", pages[1].Error)
	assert.Equal(t, runID, pages[1].RunID)
}

func TestSQLite_GetRunMissing(t *testing.T) {
	run, err := openTestSQLite(t).GetRun(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestSQLite_ListRuns(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	for i, project := range []string{"p1", "p2", "p1"} {
		at := base.Add(time.Duration(i) * time.Second)
		s.now = func() time.Time { return at }
		id, err := s.CreateRun(ctx, project, KindUpload, "", 1)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	all, err := s.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)

	p1, err := s.ListRuns(ctx, "p1", 10)
	require.NoError(t, err)
	require.Len(t, p1, 2)
	assert.Equal(t, []uuid.UUID{ids[2], ids[0]}, []uuid.UUID{p1[0].ID, p1[1].ID})

	limited, err := s.ListRuns(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestOpen_SQLiteFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	ledger, err := Open(ctx, "sqlite:"+path)
	require.NoError(t, err)
	id, err := ledger.CreateRun(ctx, "p", KindGenerate, "full", 1)
	require.NoError(t, err)
	require.NoError(t, ledger.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()
	run, err := reopened.GetRun(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "p", run.ProjectID)
}

func TestOpen_Empty(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}
