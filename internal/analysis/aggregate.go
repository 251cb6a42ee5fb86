// Package analysis derives per-reviewer aggregates from collected metrics
// tables and runs the comparative statistics on them. Everything here is a
// pure function of loaded rows; nothing writes back to disk.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/ericfisherdev/reviewlens/internal/domain/model"
	"github.com/ericfisherdev/reviewlens/internal/domain/port/driven"
)

// Aggregate maps a reviewer login to a scalar metric value for one repository.
type Aggregate map[string]float64

// Values returns the aggregate's values in unspecified order.
func (a Aggregate) Values() []float64 {
	vals := make([]float64, 0, len(a))
	for _, v := range a {
		vals = append(vals, v)
	}
	return vals
}

// Aggregator derives one per-reviewer aggregate from a repository's rows.
type Aggregator func(rows []model.PRMetrics) Aggregate

// Metric names an aggregator for CLI selection and plot labels.
type Metric struct {
	Name       string
	Label      string
	Aggregator Aggregator
}

// Metrics returns the four studied per-reviewer metrics.
func Metrics() []Metric {
	return []Metric{
		{Name: "num_reviews", Label: "Number of Reviews per Reviewer", Aggregator: ReviewCounts},
		{Name: "loc", Label: "Number of Reviewed LOC per Reviewer", Aggregator: ReviewedLOC},
		{Name: "review_time", Label: "Total Review Time (hours) per Reviewer", Aggregator: ReviewTime},
		{Name: "response_time", Label: "Average Response Time (hours) per Reviewer", Aggregator: AvgResponseTime},
	}
}

// AllReviewers returns the sorted set of distinct reviewer logins across rows.
func AllReviewers(rows []model.PRMetrics) []string {
	set := make(map[string]struct{})
	for _, row := range rows {
		for _, r := range row.ReviewerList() {
			set[r] = struct{}{}
		}
	}

	reviewers := make([]string, 0, len(set))
	for r := range set {
		reviewers = append(reviewers, r)
	}
	sort.Strings(reviewers)
	return reviewers
}

// ReviewCounts counts, per reviewer, the pull requests whose reviewer list
// contains them. Matching is exact-token against the parsed list.
func ReviewCounts(rows []model.PRMetrics) Aggregate {
	agg := make(Aggregate)
	for _, row := range rows {
		for _, r := range row.ReviewerList() {
			agg[r]++
		}
	}
	return agg
}

// ReviewedLOC sums lines_of_code over the pull requests a reviewer touched
// at least once. Rows without a size value contribute nothing.
func ReviewedLOC(rows []model.PRMetrics) Aggregate {
	agg := make(Aggregate)
	for _, row := range rows {
		if row.LinesOfCode == nil {
			continue
		}
		for _, r := range uniqueReviewers(row) {
			agg[r] += float64(*row.LinesOfCode)
		}
	}
	return agg
}

// ReviewTime sums review_time_hours over the pull requests a reviewer
// touched at least once.
func ReviewTime(rows []model.PRMetrics) Aggregate {
	agg := make(Aggregate)
	for _, row := range rows {
		if row.ReviewTimeHours == nil {
			continue
		}
		for _, r := range uniqueReviewers(row) {
			agg[r] += *row.ReviewTimeHours
		}
	}
	return agg
}

// AvgResponseTime averages response_time_hours over the pull requests where
// the reviewer was the first to respond. Reviewers who were never first do
// not appear.
func AvgResponseTime(rows []model.PRMetrics) Aggregate {
	sums := make(map[string]float64)
	counts := make(map[string]float64)

	for _, row := range rows {
		first := row.FirstReviewer()
		if first == "" || row.ResponseTimeHours == nil {
			continue
		}
		sums[first] += *row.ResponseTimeHours
		counts[first]++
	}

	agg := make(Aggregate, len(sums))
	for r, sum := range sums {
		agg[r] = sum / counts[r]
	}
	return agg
}

// uniqueReviewers returns a row's reviewer list with repeat reviews by the
// same login collapsed, so a PR counts once per reviewer for sum metrics.
func uniqueReviewers(row model.PRMetrics) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range row.ReviewerList() {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Merge combines several per-repository aggregates into one mapping. A
// reviewer active in more than one repository keeps the value from the last
// aggregate listing them; cross-repository identity is rare enough in the
// studied set that no summing is attempted.
func Merge(aggs ...Aggregate) Aggregate {
	merged := make(Aggregate)
	for _, a := range aggs {
		for r, v := range a {
			merged[r] = v
		}
	}
	return merged
}

// TrimOutliers drops entries outside [Q1-1.5*IQR, Q3+1.5*IQR]. Applying it
// to an aggregate already inside the bounds returns an equal aggregate, so
// the operation is idempotent.
func TrimOutliers(a Aggregate) Aggregate {
	if len(a) < 4 {
		return a
	}

	vals := a.Values()
	sort.Float64s(vals)
	q1 := stat.Quantile(0.25, stat.LinInterp, vals, nil)
	q3 := stat.Quantile(0.75, stat.LinInterp, vals, nil)
	iqr := q3 - q1
	lo := q1 - 1.5*iqr
	hi := q3 + 1.5*iqr

	trimmed := make(Aggregate, len(a))
	for r, v := range a {
		if v < lo || v > hi {
			continue
		}
		trimmed[r] = v
	}
	return trimmed
}

// LogTransform maps values through log10(1+x). Zero maps to zero and the
// transform is monotonic over non-negative inputs; negative inputs are
// excluded from the output rather than producing NaN.
func LogTransform(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v < 0 {
			continue
		}
		out = append(out, math.Log10(1+v))
	}
	return out
}

// Reader loads repository tables and produces aggregates with the configured
// outlier policy.
type Reader struct {
	store        driven.MetricStore
	trimOutliers bool
}

// NewReader creates a Reader over the given store. When trimOutliers is set,
// every aggregate is IQR-trimmed after derivation.
func NewReader(store driven.MetricStore, trimOutliers bool) *Reader {
	return &Reader{store: store, trimOutliers: trimOutliers}
}

// CollectedRepos filters the registry down to repositories that have a
// metrics table on disk.
func (r *Reader) CollectedRepos(repos []model.Repository) []model.Repository {
	var out []model.Repository
	for _, repo := range repos {
		if r.store.Exists(repo) {
			out = append(out, repo)
		}
	}
	return out
}

// Aggregate loads a repository's table and derives one per-reviewer aggregate.
func (r *Reader) Aggregate(repo model.Repository, agg Aggregator) (Aggregate, error) {
	rows, err := r.store.Load(repo)
	if err != nil {
		return nil, err
	}
	result := agg(rows)
	if r.trimOutliers {
		result = TrimOutliers(result)
	}
	return result, nil
}

// DateRange returns the creation time of the oldest collected PR and the
// close time of the newest, plus the row and distinct reviewer counts.
func (r *Reader) DateRange(repo model.Repository) (start, end time.Time, rows, reviewers int, err error) {
	records, err := r.store.Load(repo)
	if err != nil {
		return time.Time{}, time.Time{}, 0, 0, err
	}
	if len(records) == 0 {
		return time.Time{}, time.Time{}, 0, 0, fmt.Errorf("no rows collected for %s", repo.FullName)
	}

	start = records[0].CreatedAt.Time
	for _, rec := range records {
		if rec.CreatedAt.Before(start) {
			start = rec.CreatedAt.Time
		}
		if rec.ClosedAt.After(end) {
			end = rec.ClosedAt.Time
		}
	}

	return start, end, len(records), len(AllReviewers(records)), nil
}
