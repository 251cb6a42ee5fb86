// Package driven defines the outbound port interfaces implemented by adapters.
package driven

import (
	"context"

	"github.com/ericfisherdev/reviewlens/internal/domain/model"
)

// ForgeClient defines the driven port for reading pull request data from the
// code forge's REST API.
type ForgeClient interface {
	// FetchClosedPullRequests lists closed pull requests created inside the
	// window, newest first. Implementations page backwards through the
	// creation-sorted listing and stop once a page's oldest item precedes
	// the window start.
	FetchClosedPullRequests(ctx context.Context, repoFullName string, window model.Window) ([]model.PullRequestSummary, error)

	// FetchReviews returns all review events for a pull request, in API
	// order. Reviews without a submitter or submission timestamp are
	// dropped by the implementation.
	FetchReviews(ctx context.Context, repoFullName string, prNumber int) ([]model.Review, error)

	// FetchPRDetail returns diff size fields for a single pull request.
	FetchPRDetail(ctx context.Context, repoFullName string, prNumber int) (*model.PRDetail, error)
}
