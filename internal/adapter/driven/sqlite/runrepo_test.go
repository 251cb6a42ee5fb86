package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewlens/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/reviewlens/internal/domain/model"
)

// newTestRepo opens a throwaway migrated database.
func newTestRepo(t *testing.T) *sqlite.RunRepo {
	t.Helper()

	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	require.NoError(t, sqlite.RunMigrations(db.Writer))
	return sqlite.NewRunRepo(db)
}

func sampleRun(repo string, finished time.Time) model.CollectionRun {
	return model.CollectionRun{
		RepoFullName: repo,
		WindowStart:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:    time.Date(2024, 2, 16, 0, 0, 0, 0, time.UTC),
		RowCount:     1234,
		OutputPath:   "data/metrics_" + repo + ".csv",
		StartedAt:    finished.Add(-20 * time.Minute),
		FinishedAt:   finished,
	}
}

func TestRecordAssignsID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	run, err := repo.Record(ctx, sampleRun("owner/repo", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Positive(t, run.ID)
}

func TestListByRepo_MostRecentFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	older := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)

	_, err := repo.Record(ctx, sampleRun("owner/repo", older))
	require.NoError(t, err)
	_, err = repo.Record(ctx, sampleRun("owner/repo", newer))
	require.NoError(t, err)
	_, err = repo.Record(ctx, sampleRun("other/repo", newer))
	require.NoError(t, err)

	runs, err := repo.ListByRepo(ctx, "owner/repo")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer, runs[0].FinishedAt.UTC())
	assert.Equal(t, older, runs[1].FinishedAt.UTC())
	assert.Equal(t, 1234, runs[0].RowCount)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestListByRepo_Empty(t *testing.T) {
	repo := newTestRepo(t)

	runs, err := repo.ListByRepo(context.Background(), "nobody/nothing")
	require.NoError(t, err)
	assert.Empty(t, runs)
}
