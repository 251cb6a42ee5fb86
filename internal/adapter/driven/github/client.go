// Package github implements the ForgeClient port using the go-github library.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/reviewlens/internal/domain/model"
	"github.com/ericfisherdev/reviewlens/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ForgeClient = (*Client)(nil)

// rateThreshold is the remaining-request floor below which the client waits
// for the primary rate limit window to reset before issuing the next call.
const rateThreshold = 25

// rateState tracks the most recently observed primary rate limit. It is
// owned by one Client; there is no package-level rate state.
type rateState struct {
	mu        sync.Mutex
	remaining int
	reset     time.Time
	observed  bool
}

// update records the rate limit headers from a response.
func (r *rateState) update(rate gh.Rate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remaining = rate.Remaining
	r.reset = rate.Reset.Time
	r.observed = true
}

// waitUntilReset returns how long to sleep before the next request, or zero
// when the budget is healthy.
func (r *rateState) waitUntilReset(now time.Time) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.observed || r.remaining > rateThreshold {
		return 0
	}
	wait := r.reset.Sub(now)
	if wait < 0 {
		return 0
	}
	// Small buffer so we do not race the reset boundary.
	return wait + 5*time.Second
}

// Client implements the driven.ForgeClient port using the go-github library.
type Client struct {
	gh           *gh.Client
	rate         *rateState
	retryMaxWait time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithRetryMaxElapsed caps the total time spent retrying a single API call
// before the failure is surfaced to the caller.
func WithRetryMaxElapsed(d time.Duration) Option {
	return func(c *Client) { c.retryMaxWait = d }
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
func NewClient(token string, opts ...Option) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	c := &Client{
		gh:           client,
		rate:         &rateState{},
		retryMaxWait: 15 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, opts ...Option) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	c := &Client{
		gh:           client,
		rate:         &rateState{},
		retryMaxWait: 15 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchClosedPullRequests lists closed pull requests created inside the
// window. It pages backwards through the creation-sorted (descending)
// listing; pagination stops as soon as an item older than the window start
// is seen, since everything after it is older still. Items at or after the
// window end are skipped, not terminal.
func (c *Client) FetchClosedPullRequests(ctx context.Context, repoFullName string, window model.Window) ([]model.PullRequestSummary, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.PullRequestListOptions{
		State:     "closed",
		Sort:      "created",
		Direction: "desc",
		ListOptions: gh.ListOptions{
			PerPage: 100,
		},
	}

	var summaries []model.PullRequestSummary

	for {
		var (
			prs  []*gh.PullRequest
			resp *gh.Response
		)
		err := c.call(ctx, fmt.Sprintf("list pulls %s page %d", repoFullName, opts.Page), func() error {
			var callErr error
			prs, resp, callErr = c.gh.PullRequests.List(ctx, owner, repo, opts)
			c.observe(resp, repoFullName, opts.Page, len(prs))
			return callErr
		})
		if err != nil {
			return nil, fmt.Errorf("listing pull requests for %s (page %d): %w", repoFullName, opts.Page, err)
		}

		for _, pr := range prs {
			created := pr.GetCreatedAt().Time
			if created.Before(window.Start) {
				return summaries, nil
			}
			if !created.Before(window.End) {
				continue
			}
			summaries = append(summaries, mapPullRequestSummary(pr))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return summaries, nil
}

// FetchReviews retrieves all reviews for a pull request. Reviews missing a
// submitter or submission timestamp are dropped here; author self-review
// exclusion is policy and happens in the collection service.
func (c *Client) FetchReviews(ctx context.Context, repoFullName string, prNumber int) ([]model.Review, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.ListOptions{PerPage: 100}
	var allReviews []model.Review

	for {
		var (
			reviews []*gh.PullRequestReview
			resp    *gh.Response
		)
		err := c.call(ctx, fmt.Sprintf("list reviews %s#%d page %d", repoFullName, prNumber, opts.Page), func() error {
			var callErr error
			reviews, resp, callErr = c.gh.PullRequests.ListReviews(ctx, owner, repo, prNumber, opts)
			c.observe(resp, fmt.Sprintf("%s#%d/reviews", repoFullName, prNumber), opts.Page, len(reviews))
			return callErr
		})
		if err != nil {
			return nil, fmt.Errorf("listing reviews for %s#%d (page %d): %w", repoFullName, prNumber, opts.Page, err)
		}

		for _, r := range reviews {
			if r.GetUser().GetLogin() == "" || r.GetSubmittedAt().IsZero() {
				continue
			}
			allReviews = append(allReviews, model.Review{
				ReviewerLogin: r.GetUser().GetLogin(),
				SubmittedAt:   r.GetSubmittedAt().Time,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allReviews, nil
}

// FetchPRDetail returns diff size fields for a single PR.
func (c *Client) FetchPRDetail(ctx context.Context, repoFullName string, prNumber int) (*model.PRDetail, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	var pr *gh.PullRequest
	err = c.call(ctx, fmt.Sprintf("get pull %s#%d", repoFullName, prNumber), func() error {
		var (
			resp    *gh.Response
			callErr error
		)
		pr, resp, callErr = c.gh.PullRequests.Get(ctx, owner, repo, prNumber)
		c.observe(resp, fmt.Sprintf("%s#%d/detail", repoFullName, prNumber), 0, 1)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("fetching PR detail for %s#%d: %w", repoFullName, prNumber, err)
	}

	return &model.PRDetail{
		Additions:    pr.GetAdditions(),
		Deletions:    pr.GetDeletions(),
		ChangedFiles: pr.GetChangedFiles(),
	}, nil
}

// call runs one API operation under the client's retry policy: wait out the
// primary rate limit when near exhaustion, then retry transient failures
// with capped exponential backoff. Client errors other than rate limiting
// are permanent and surface immediately.
func (c *Client) call(ctx context.Context, op string, fn func() error) error {
	if wait := c.rate.waitUntilReset(time.Now()); wait > 0 {
		slog.Warn("rate limit near exhaustion, waiting for reset", "op", op, "wait", wait.Round(time.Second))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.MaxInterval = 2 * time.Minute
	bo.MaxElapsedTime = c.retryMaxWait

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}

		var rateErr *gh.RateLimitError
		if errors.As(err, &rateErr) {
			c.rate.update(rateErr.Rate)
			slog.Warn("primary rate limit hit", "op", op, "reset", rateErr.Rate.Reset.Time)
			return err
		}

		var abuseErr *gh.AbuseRateLimitError
		if errors.As(err, &abuseErr) {
			slog.Warn("secondary rate limit hit", "op", op, "retry_after", abuseErr.GetRetryAfter())
			return err
		}

		var respErr *gh.ErrorResponse
		if errors.As(err, &respErr) && respErr.Response != nil {
			code := respErr.Response.StatusCode
			if code >= 400 && code < 500 && code != http.StatusTooManyRequests && code != http.StatusForbidden {
				return backoff.Permanent(err)
			}
		}

		slog.Warn("api call failed, retrying", "op", op, "attempt", attempt, "error", err)
		return err
	}, backoff.WithContext(bo, ctx))
}

// observe logs the GitHub API rate limit status after each call and updates
// the client's rate state.
func (c *Client) observe(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	c.rate.update(resp.Rate)

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// mapPullRequestSummary converts a go-github PullRequest to a listing summary.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapPullRequestSummary(pr *gh.PullRequest) model.PullRequestSummary {
	return model.PullRequestSummary{
		Number:      pr.GetNumber(),
		Author:      pr.GetUser().GetLogin(),
		AuthorIsBot: pr.GetUser().GetType() == "Bot",
		CreatedAt:   pr.GetCreatedAt().Time,
		MergedAt:    pr.GetMergedAt().Time,
		ClosedAt:    pr.GetClosedAt().Time,
		URL:         pr.GetHTMLURL(),
	}
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
