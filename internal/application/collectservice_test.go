package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewlens/internal/domain/model"
)

// --- Mock implementations for CollectService tests ---

type mockForge struct {
	summaries []model.PullRequestSummary
	reviews   map[int][]model.Review
	details   map[int]model.PRDetail
	listErr   error
}

func (m *mockForge) FetchClosedPullRequests(_ context.Context, _ string, _ model.Window) ([]model.PullRequestSummary, error) {
	return m.summaries, m.listErr
}

func (m *mockForge) FetchReviews(_ context.Context, _ string, prNumber int) ([]model.Review, error) {
	return m.reviews[prNumber], nil
}

func (m *mockForge) FetchPRDetail(_ context.Context, _ string, prNumber int) (*model.PRDetail, error) {
	d, ok := m.details[prNumber]
	if !ok {
		return &model.PRDetail{}, nil
	}
	return &d, nil
}

type mockMetricStore struct {
	written map[string][]model.PRMetrics
}

func (m *mockMetricStore) Write(repo model.Repository, rows []model.PRMetrics) error {
	if m.written == nil {
		m.written = make(map[string][]model.PRMetrics)
	}
	m.written[repo.FullName] = rows
	return nil
}

func (m *mockMetricStore) Load(repo model.Repository) ([]model.PRMetrics, error) {
	return m.written[repo.FullName], nil
}

func (m *mockMetricStore) Exists(repo model.Repository) bool {
	_, ok := m.written[repo.FullName]
	return ok
}

func (m *mockMetricStore) Path(repo model.Repository) string {
	return fmt.Sprintf("data/metrics_%s.csv", repo.Slug())
}

type mockRunStore struct {
	runs []model.CollectionRun
}

func (m *mockRunStore) Record(_ context.Context, run model.CollectionRun) (model.CollectionRun, error) {
	run.ID = int64(len(m.runs) + 1)
	m.runs = append(m.runs, run)
	return run, nil
}

func (m *mockRunStore) ListByRepo(_ context.Context, _ string) ([]model.CollectionRun, error) {
	return m.runs, nil
}

func (m *mockRunStore) ListAll(_ context.Context) ([]model.CollectionRun, error) {
	return m.runs, nil
}

// --- Tests ---

var (
	testRepo   = model.Repository{FullName: "owner/repo", DisplayName: "Repo", IndustryBacked: true}
	testWindow = model.Window{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 2, 16, 0, 0, 0, 0, time.UTC),
	}
)

func hoursAfter(base time.Time, h float64) time.Time {
	return base.Add(time.Duration(h * float64(time.Hour)))
}

func TestResponseLatencies_ChainAndAuthorExclusion(t *testing.T) {
	created := time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)
	pr := model.PullRequestSummary{Number: 1, Author: "alice", CreatedAt: created}

	// Deliberately unordered, with a self-review mixed in.
	reviews := []model.Review{
		{ReviewerLogin: "carol", SubmittedAt: hoursAfter(created, 10)},
		{ReviewerLogin: "alice", SubmittedAt: hoursAfter(created, 1)}, // author, excluded
		{ReviewerLogin: "bob", SubmittedAt: hoursAfter(created, 4)},
	}

	reviewers, latencies := responseLatencies(pr, reviews)

	require.Equal(t, len(reviewers), len(latencies))
	assert.Equal(t, []string{"bob", "carol"}, reviewers)
	require.Len(t, latencies, 2)
	assert.InDelta(t, 4.0, latencies[0], 1e-9)  // from creation
	assert.InDelta(t, 6.0, latencies[1], 1e-9)  // from bob's review
	for _, l := range latencies {
		assert.GreaterOrEqual(t, l, 0.0)
	}
}

func TestResponseLatencies_NoQualifyingReviews(t *testing.T) {
	created := time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)
	pr := model.PullRequestSummary{Number: 1, Author: "alice", CreatedAt: created}

	reviewers, latencies := responseLatencies(pr, []model.Review{
		{ReviewerLogin: "alice", SubmittedAt: hoursAfter(created, 2)},
	})

	assert.Empty(t, reviewers)
	assert.Empty(t, latencies)
}

func TestCollectRepo_WritesRowsAndRecordsRun(t *testing.T) {
	created := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	merged := hoursAfter(created, 50)

	forge := &mockForge{
		summaries: []model.PullRequestSummary{
			{
				Number:    7,
				Author:    "alice",
				CreatedAt: created,
				MergedAt:  merged,
				ClosedAt:  merged,
				URL:       "https://api.github.com/repos/owner/repo/pulls/7",
			},
		},
		reviews: map[int][]model.Review{
			7: {
				{ReviewerLogin: "bob", SubmittedAt: hoursAfter(created, 2.5)},
			},
		},
		details: map[int]model.PRDetail{
			7: {Additions: 100, Deletions: 40, ChangedFiles: 5},
		},
	}
	metrics := &mockMetricStore{}
	runs := &mockRunStore{}

	svc := NewCollectService(forge, metrics, runs, DefaultOptions())
	count, err := svc.CollectRepo(context.Background(), testRepo, testWindow)

	require.NoError(t, err)
	assert.Equal(t, 1, count)

	rows := metrics.written["owner/repo"]
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, 7, row.Number)
	assert.Equal(t, 1, row.NumReviews)
	assert.Equal(t, "bob", row.Reviewers)
	assert.Equal(t, "2.50", row.ReviewerResponseTimes)
	require.NotNil(t, row.ResponseTimeHours)
	assert.InDelta(t, 2.5, *row.ResponseTimeHours, 1e-9)
	require.NotNil(t, row.ReviewTimeHours)
	assert.InDelta(t, 50.0, *row.ReviewTimeHours, 1e-9)
	require.NotNil(t, row.LinesOfCode)
	assert.Equal(t, 140, *row.LinesOfCode)
	assert.Equal(t, 5, row.ChangedFiles)

	require.Len(t, runs.runs, 1)
	run := runs.runs[0]
	assert.Equal(t, "owner/repo", run.RepoFullName)
	assert.Equal(t, 1, run.RowCount)
	assert.Equal(t, "data/metrics_owner_repo.csv", run.OutputPath)
	assert.Equal(t, testWindow.Start, run.WindowStart)
}

func TestCollectRepo_SkipsBotAndUnreviewedPRs(t *testing.T) {
	created := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	forge := &mockForge{
		summaries: []model.PullRequestSummary{
			{Number: 1, Author: "dependabot[bot]", AuthorIsBot: true, CreatedAt: created, ClosedAt: hoursAfter(created, 1)},
			{Number: 2, Author: "alice", CreatedAt: created, ClosedAt: hoursAfter(created, 1)}, // no reviews
			{Number: 3, Author: "alice", CreatedAt: created, ClosedAt: hoursAfter(created, 1)},
		},
		reviews: map[int][]model.Review{
			3: {{ReviewerLogin: "bob", SubmittedAt: hoursAfter(created, 0.5)}},
		},
	}
	metrics := &mockMetricStore{}
	runs := &mockRunStore{}

	svc := NewCollectService(forge, metrics, runs, DefaultOptions())
	count, err := svc.CollectRepo(context.Background(), testRepo, testWindow)

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, metrics.written["owner/repo"], 1)
	assert.Equal(t, 3, metrics.written["owner/repo"][0].Number)
}

func TestCollectRepo_KeepsUnreviewedWhenConfigured(t *testing.T) {
	created := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	forge := &mockForge{
		summaries: []model.PullRequestSummary{
			{Number: 2, Author: "alice", CreatedAt: created, ClosedAt: hoursAfter(created, 12)},
		},
	}
	metrics := &mockMetricStore{}
	runs := &mockRunStore{}

	opts := DefaultOptions()
	opts.SkipNoReviews = false
	svc := NewCollectService(forge, metrics, runs, opts)

	count, err := svc.CollectRepo(context.Background(), testRepo, testWindow)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	row := metrics.written["owner/repo"][0]
	assert.Zero(t, row.NumReviews)
	assert.Nil(t, row.ResponseTimeHours)
	require.NotNil(t, row.ReviewTimeHours) // closed_at fallback
	assert.InDelta(t, 12.0, *row.ReviewTimeHours, 1e-9)
}

func TestCollectRepo_CapsCandidates(t *testing.T) {
	created := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	var summaries []model.PullRequestSummary
	reviews := make(map[int][]model.Review)
	for i := 1; i <= 5; i++ {
		summaries = append(summaries, model.PullRequestSummary{
			Number: i, Author: "alice", CreatedAt: created, ClosedAt: hoursAfter(created, 1),
		})
		reviews[i] = []model.Review{{ReviewerLogin: "bob", SubmittedAt: hoursAfter(created, 1)}}
	}

	forge := &mockForge{summaries: summaries, reviews: reviews}
	metrics := &mockMetricStore{}
	runs := &mockRunStore{}

	opts := DefaultOptions()
	opts.MaxPRsPerRepo = 3
	svc := NewCollectService(forge, metrics, runs, opts)

	count, err := svc.CollectRepo(context.Background(), testRepo, testWindow)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestCollectAll_ContinuesPastFailures(t *testing.T) {
	goodForge := &mockForge{}
	metrics := &mockMetricStore{}
	runs := &mockRunStore{}

	svc := NewCollectService(goodForge, metrics, runs, DefaultOptions())
	goodForge.listErr = errors.New("boom")

	failures, err := svc.CollectAll(context.Background(), []model.Repository{testRepo, {FullName: "other/repo"}}, testWindow)
	require.NoError(t, err)
	assert.Equal(t, 2, failures)
}
