package csvstore_test

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewlens/internal/adapter/driven/csvstore"
	"github.com/ericfisherdev/reviewlens/internal/domain/model"
	"github.com/ericfisherdev/reviewlens/internal/domain/port/driven"
)

var testRepo = model.Repository{FullName: "owner/repo", DisplayName: "Repo", IndustryBacked: true}

func newStore(t *testing.T) *csvstore.Store {
	t.Helper()
	store, err := csvstore.NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func sampleRows() []model.PRMetrics {
	created := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	merged := created.Add(30 * time.Hour)
	resp := 4.5
	review := 30.0
	loc := 150

	return []model.PRMetrics{
		{
			Repo:                  "owner/repo",
			Number:                42,
			Author:                "alice",
			CreatedAt:             model.DateTime{Time: created},
			MergedAt:              model.DateTime{Time: merged},
			ClosedAt:              model.DateTime{Time: merged},
			NumReviews:            2,
			Reviewers:             model.JoinReviewers([]string{"bob", "carol"}),
			ReviewerResponseTimes: model.JoinResponseTimes([]float64{4.5, 12.25}),
			ResponseTimeHours:     &resp,
			ReviewTimeHours:       &review,
			LinesOfCode:           &loc,
			ChangedFiles:          3,
			URL:                   "https://api.github.com/repos/owner/repo/pulls/42",
		},
	}
}

func TestWriteLoadRoundTrip(t *testing.T) {
	store := newStore(t)

	require.NoError(t, store.Write(testRepo, sampleRows()))
	assert.True(t, store.Exists(testRepo))

	rows, err := store.Load(testRepo)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, 42, row.Number)
	assert.Equal(t, "alice", row.Author)
	assert.Equal(t, []string{"bob", "carol"}, row.ReviewerList())
	times, err := row.ResponseTimeList()
	require.NoError(t, err)
	assert.Equal(t, []float64{4.5, 12.25}, times)
	require.NotNil(t, row.ResponseTimeHours)
	assert.InDelta(t, 4.5, *row.ResponseTimeHours, 1e-9)
	require.NotNil(t, row.LinesOfCode)
	assert.Equal(t, 150, *row.LinesOfCode)
	assert.Equal(t, time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC), row.CreatedAt.Time)
}

func TestWriteMissingOptionalsSerializeEmpty(t *testing.T) {
	store := newStore(t)

	rows := sampleRows()
	rows[0].MergedAt = model.DateTime{}
	rows[0].ReviewTimeHours = nil
	rows[0].LinesOfCode = nil
	require.NoError(t, store.Write(testRepo, rows))

	raw, err := os.ReadFile(store.Path(testRepo))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t,
		"repo,pr_number,user,created_at,merged_at,closed_at,num_reviews,reviewers,reviewer_response_times,response_time_hours,review_time_hours,lines_of_code,changed_files,url",
		lines[0])

	loaded, err := store.Load(testRepo)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.True(t, loaded[0].MergedAt.IsZero())
	assert.Nil(t, loaded[0].ReviewTimeHours)
	assert.Nil(t, loaded[0].LinesOfCode)
}

func TestLoadMissingTable(t *testing.T) {
	store := newStore(t)

	_, err := store.Load(testRepo)
	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrNoMetrics)
}

func TestWriteReplacesExistingTable(t *testing.T) {
	store := newStore(t)

	require.NoError(t, store.Write(testRepo, sampleRows()))
	require.NoError(t, store.Write(testRepo, nil))

	rows, err := store.Load(testRepo)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
