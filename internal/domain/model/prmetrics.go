package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// reviewerSep joins the reviewer and latency lists in the persisted table.
const reviewerSep = ", "

// DateTime wraps time.Time so the CSV codec round-trips RFC 3339 timestamps
// and maps an empty cell to the zero time (missing merged_at/closed_at).
type DateTime struct {
	time.Time
}

// MarshalCSV renders the timestamp as RFC 3339, or an empty cell when zero.
func (d DateTime) MarshalCSV() (string, error) {
	if d.IsZero() {
		return "", nil
	}
	return d.UTC().Format(time.RFC3339), nil
}

// UnmarshalCSV parses an RFC 3339 timestamp; an empty cell yields the zero time.
func (d *DateTime) UnmarshalCSV(s string) error {
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// PRMetrics is one collected pull request: a single row in a repository's
// metrics table. It is created once by the collector and immutable afterward.
type PRMetrics struct {
	Repo                  string   `csv:"repo"`
	Number                int      `csv:"pr_number"`
	Author                string   `csv:"user"`
	CreatedAt             DateTime `csv:"created_at"`
	MergedAt              DateTime `csv:"merged_at"`
	ClosedAt              DateTime `csv:"closed_at"`
	NumReviews            int      `csv:"num_reviews"`
	Reviewers             string   `csv:"reviewers"`
	ReviewerResponseTimes string   `csv:"reviewer_response_times"`
	ResponseTimeHours     *float64 `csv:"response_time_hours"`
	ReviewTimeHours       *float64 `csv:"review_time_hours"`
	LinesOfCode           *int     `csv:"lines_of_code"`
	ChangedFiles          int      `csv:"changed_files"`
	URL                   string   `csv:"url"`
}

// ReviewerList returns the parsed, ordered reviewer logins for this PR.
func (m PRMetrics) ReviewerList() []string {
	if m.Reviewers == "" {
		return nil
	}
	return strings.Split(m.Reviewers, reviewerSep)
}

// ResponseTimeList returns the parsed per-reviewer response latencies in
// hours, ordered to match ReviewerList.
func (m PRMetrics) ResponseTimeList() ([]float64, error) {
	if m.ReviewerResponseTimes == "" {
		return nil, nil
	}
	parts := strings.Split(m.ReviewerResponseTimes, reviewerSep)
	times := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing response time %q: %w", p, err)
		}
		times = append(times, v)
	}
	return times, nil
}

// FirstReviewer returns the login of the first reviewer to respond, or ""
// when the PR has no qualifying reviews.
func (m PRMetrics) FirstReviewer() string {
	reviewers := m.ReviewerList()
	if len(reviewers) == 0 {
		return ""
	}
	return reviewers[0]
}

// HasReviewer reports whether login appears in the reviewer list. Matching
// is by exact token against the parsed list, never by substring, so logins
// that are prefixes of one another are not conflated.
func (m PRMetrics) HasReviewer(login string) bool {
	for _, r := range m.ReviewerList() {
		if r == login {
			return true
		}
	}
	return false
}

// JoinReviewers renders a reviewer login list in table form.
func JoinReviewers(logins []string) string {
	return strings.Join(logins, reviewerSep)
}

// JoinResponseTimes renders a latency list in table form with two-decimal
// formatting.
func JoinResponseTimes(hours []float64) string {
	parts := make([]string, 0, len(hours))
	for _, h := range hours {
		parts = append(parts, strconv.FormatFloat(h, 'f', 2, 64))
	}
	return strings.Join(parts, reviewerSep)
}
