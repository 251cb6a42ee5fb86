package model

import "time"

// Window is a half-open [Start, End) interval over pull request creation
// times. Both bounds are interpreted in UTC.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// PullRequestSummary is the listing-level view of a closed pull request,
// as returned by the paginated pulls endpoint. Size fields live in PRDetail
// because the listing response does not carry them.
type PullRequestSummary struct {
	Number      int
	Author      string
	AuthorIsBot bool
	CreatedAt   time.Time
	MergedAt    time.Time // Zero if never merged.
	ClosedAt    time.Time // Zero if still open (should not happen for closed listings).
	URL         string
}

// PRDetail holds the diff size fields fetched per pull request.
type PRDetail struct {
	Additions    int
	Deletions    int
	ChangedFiles int
}
