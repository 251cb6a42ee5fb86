// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/reviewlens/internal/domain/model"
	"github.com/ericfisherdev/reviewlens/internal/domain/port/driven"
)

// Options controls collection policy.
type Options struct {
	// SkipBotPRs drops pull requests authored by accounts GitHub marks as bots.
	SkipBotPRs bool
	// SkipNoReviews drops pull requests that received no qualifying human review.
	SkipNoReviews bool
	// Concurrency bounds the per-PR enrichment fan-out (reviews + detail fetch).
	Concurrency int
	// MaxPRsPerRepo caps how many listed pull requests are enriched per repository.
	MaxPRsPerRepo int
}

// DefaultOptions mirror the collection policy the study data was gathered with.
func DefaultOptions() Options {
	return Options{
		SkipBotPRs:    true,
		SkipNoReviews: true,
		Concurrency:   10,
		MaxPRsPerRepo: 2300,
	}
}

// CollectService orchestrates the collection pipeline: list closed pull
// requests in a window, enrich each with reviews and size details, compute
// timing metrics, and persist one table per repository plus a run record.
type CollectService struct {
	forge   driven.ForgeClient
	metrics driven.MetricStore
	runs    driven.RunStore
	opts    Options
}

// NewCollectService creates a new CollectService with all required dependencies.
func NewCollectService(forge driven.ForgeClient, metrics driven.MetricStore, runs driven.RunStore, opts Options) *CollectService {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultOptions().Concurrency
	}
	return &CollectService{
		forge:   forge,
		metrics: metrics,
		runs:    runs,
		opts:    opts,
	}
}

// CollectAll collects every repository in the registry for the given window.
// A failed repository is logged and skipped; the remaining repositories are
// still collected. Returns the number of repositories that failed.
func (s *CollectService) CollectAll(ctx context.Context, repos []model.Repository, window model.Window) (int, error) {
	start := time.Now()
	var failures int

	for _, repo := range repos {
		if ctx.Err() != nil {
			return failures, ctx.Err()
		}

		rows, err := s.CollectRepo(ctx, repo, window)
		if err != nil {
			slog.Error("repo collection failed", "repo", repo.FullName, "error", err)
			failures++
			continue
		}
		slog.Info("repo collected", "repo", repo.FullName, "rows", rows)
	}

	slog.Info("collection complete",
		"repos", len(repos),
		"failures", failures,
		"duration", time.Since(start).Round(time.Second),
	)

	return failures, nil
}

// CollectRepo runs the pipeline for one repository and returns the number of
// rows written. Listing is sequential (the window boundary is detected while
// paging); enrichment fans out under the configured concurrency bound.
func (s *CollectService) CollectRepo(ctx context.Context, repo model.Repository, window model.Window) (int, error) {
	started := time.Now()

	summaries, err := s.forge.FetchClosedPullRequests(ctx, repo.FullName, window)
	if err != nil {
		return 0, fmt.Errorf("listing window for %s: %w", repo.FullName, err)
	}

	candidates := summaries[:0:len(summaries)]
	for _, pr := range summaries {
		if s.opts.SkipBotPRs && pr.AuthorIsBot {
			continue
		}
		candidates = append(candidates, pr)
	}

	if s.opts.MaxPRsPerRepo > 0 && len(candidates) > s.opts.MaxPRsPerRepo {
		slog.Warn("capping pull requests for repo",
			"repo", repo.FullName,
			"listed", len(candidates),
			"cap", s.opts.MaxPRsPerRepo,
		)
		candidates = candidates[:s.opts.MaxPRsPerRepo]
	}

	slog.Info("enriching pull requests",
		"repo", repo.FullName,
		"candidates", len(candidates),
		"concurrency", s.opts.Concurrency,
	)

	// Completion order across PRs is unconstrained; each result lands in its
	// own slot so the table keeps the listing order (newest first).
	results := make([]*model.PRMetrics, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for i, pr := range candidates {
		g.Go(func() error {
			row, err := s.buildRow(gctx, repo, pr)
			if err != nil {
				return fmt.Errorf("enriching %s#%d: %w", repo.FullName, pr.Number, err)
			}
			results[i] = row
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	rows := make([]model.PRMetrics, 0, len(results))
	for _, row := range results {
		if row != nil {
			rows = append(rows, *row)
		}
	}

	if err := s.metrics.Write(repo, rows); err != nil {
		return 0, fmt.Errorf("writing table for %s: %w", repo.FullName, err)
	}

	run := model.CollectionRun{
		RepoFullName: repo.FullName,
		WindowStart:  window.Start,
		WindowEnd:    window.End,
		RowCount:     len(rows),
		OutputPath:   s.metrics.Path(repo),
		StartedAt:    started,
		FinishedAt:   time.Now(),
	}
	if _, err := s.runs.Record(ctx, run); err != nil {
		return 0, fmt.Errorf("recording run for %s: %w", repo.FullName, err)
	}

	return len(rows), nil
}

// buildRow turns one listed pull request into a metrics row, or nil when the
// PR is skipped under SkipNoReviews.
func (s *CollectService) buildRow(ctx context.Context, repo model.Repository, pr model.PullRequestSummary) (*model.PRMetrics, error) {
	reviews, err := s.forge.FetchReviews(ctx, repo.FullName, pr.Number)
	if err != nil {
		return nil, err
	}

	reviewers, latencies := responseLatencies(pr, reviews)

	if s.opts.SkipNoReviews && len(reviewers) == 0 {
		return nil, nil
	}

	detail, err := s.forge.FetchPRDetail(ctx, repo.FullName, pr.Number)
	if err != nil {
		return nil, err
	}

	row := model.PRMetrics{
		Repo:                  repo.FullName,
		Number:                pr.Number,
		Author:                pr.Author,
		CreatedAt:             model.DateTime{Time: pr.CreatedAt},
		MergedAt:              model.DateTime{Time: pr.MergedAt},
		ClosedAt:              model.DateTime{Time: pr.ClosedAt},
		NumReviews:            len(reviewers),
		Reviewers:             model.JoinReviewers(reviewers),
		ReviewerResponseTimes: model.JoinResponseTimes(latencies),
		ChangedFiles:          detail.ChangedFiles,
		URL:                   pr.URL,
	}

	if len(latencies) > 0 {
		first := latencies[0]
		row.ResponseTimeHours = &first
	}

	if reviewTime, ok := reviewTimeHours(pr); ok {
		row.ReviewTimeHours = &reviewTime
	}

	loc := detail.Additions + detail.Deletions
	row.LinesOfCode = &loc

	return &row, nil
}

// responseLatencies orders a PR's reviews by submission time, drops the
// author's own reviews, and computes the latency chain: the first latency is
// measured from PR creation, each subsequent one from the previous review.
// The returned slices are always the same length.
func responseLatencies(pr model.PullRequestSummary, reviews []model.Review) ([]string, []float64) {
	qualifying := make([]model.Review, 0, len(reviews))
	for _, r := range reviews {
		if r.ReviewerLogin == pr.Author {
			continue
		}
		qualifying = append(qualifying, r)
	}

	sort.SliceStable(qualifying, func(i, j int) bool {
		return qualifying[i].SubmittedAt.Before(qualifying[j].SubmittedAt)
	})

	reviewers := make([]string, 0, len(qualifying))
	latencies := make([]float64, 0, len(qualifying))
	lastActivity := pr.CreatedAt

	for _, r := range qualifying {
		reviewers = append(reviewers, r.ReviewerLogin)
		latencies = append(latencies, r.SubmittedAt.Sub(lastActivity).Hours())
		lastActivity = r.SubmittedAt
	}

	return reviewers, latencies
}

// reviewTimeHours is the time from creation to merge, falling back to close.
// Both absent means the metric is missing, not zero.
func reviewTimeHours(pr model.PullRequestSummary) (float64, bool) {
	switch {
	case !pr.MergedAt.IsZero():
		return pr.MergedAt.Sub(pr.CreatedAt).Hours(), true
	case !pr.ClosedAt.IsZero():
		return pr.ClosedAt.Sub(pr.CreatedAt).Hours(), true
	default:
		return 0, false
	}
}
