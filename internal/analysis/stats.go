package analysis

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aclements/go-moremath/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrTooFewSamples indicates a statistical test's minimum sample size was
// not met. Callers log and skip rather than abort.
var ErrTooFewSamples = errors.New("too few samples for test")

// TestResult carries a test statistic and its p-value.
type TestResult struct {
	Statistic float64
	PValue    float64
}

// MannWhitneyU runs the two-sided Mann-Whitney U test on two independent
// samples. Ties are handled by the underlying implementation (exact
// distribution for small untied samples, normal approximation otherwise).
func MannWhitneyU(x, y []float64) (TestResult, error) {
	if len(x) == 0 || len(y) == 0 {
		return TestResult{}, fmt.Errorf("mann-whitney: %w", ErrTooFewSamples)
	}

	res, err := stats.MannWhitneyUTest(x, y, stats.LocationDiffers)
	if err != nil {
		return TestResult{}, fmt.Errorf("mann-whitney: %w", err)
	}

	return TestResult{Statistic: res.U, PValue: res.P}, nil
}

// KruskalWallis runs the tie-corrected Kruskal-Wallis H test across two or
// more groups. The p-value comes from the chi-squared approximation with
// k-1 degrees of freedom.
func KruskalWallis(groups ...[]float64) (TestResult, error) {
	if len(groups) < 2 {
		return TestResult{}, fmt.Errorf("kruskal-wallis: need at least 2 groups: %w", ErrTooFewSamples)
	}

	var combined []float64
	for _, g := range groups {
		if len(g) == 0 {
			return TestResult{}, fmt.Errorf("kruskal-wallis: empty group: %w", ErrTooFewSamples)
		}
		combined = append(combined, g...)
	}
	n := len(combined)
	if n <= len(groups) {
		return TestResult{}, fmt.Errorf("kruskal-wallis: %w", ErrTooFewSamples)
	}

	ranks := rankWithTies(combined)

	h := 0.0
	offset := 0
	for _, g := range groups {
		var rankSum float64
		for i := range g {
			rankSum += ranks[offset+i]
		}
		h += rankSum * rankSum / float64(len(g))
		offset += len(g)
	}
	h = 12.0/(float64(n)*float64(n+1))*h - 3.0*float64(n+1)

	// Tie correction.
	correction := 1.0 - tieTerm(combined)/(float64(n)*float64(n)*float64(n)-float64(n))
	if correction > 0 {
		h /= correction
	}

	chi2 := distuv.ChiSquared{K: float64(len(groups) - 1)}
	return TestResult{Statistic: h, PValue: chi2.Survival(h)}, nil
}

// CliffsDelta computes the non-parametric effect size between two samples:
// the normalized difference between the counts of pairwise "greater" and
// "less" outcomes. Identical samples give 0; a sample strictly dominating
// the other gives 1 (or -1 in the other direction).
func CliffsDelta(x, y []float64) float64 {
	if len(x) == 0 || len(y) == 0 {
		return 0
	}

	var greater, less int
	for _, a := range x {
		for _, b := range y {
			switch {
			case a > b:
				greater++
			case a < b:
				less++
			}
		}
	}
	return float64(greater-less) / float64(len(x)*len(y))
}

// Spearman computes the Spearman rank correlation of two paired samples.
func Spearman(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, fmt.Errorf("spearman: sample lengths differ (%d vs %d)", len(x), len(y))
	}
	if len(x) < 3 {
		return 0, fmt.Errorf("spearman: %w", ErrTooFewSamples)
	}

	rx := rankWithTies(x)
	ry := rankWithTies(y)
	return stat.Correlation(rx, ry, nil), nil
}

// SpearmanByReviewer correlates two per-reviewer aggregates over the
// reviewers present in both. Returns the correlation and the number of
// paired reviewers.
func SpearmanByReviewer(a, b Aggregate) (float64, int, error) {
	var x, y []float64
	for reviewer, va := range a {
		vb, ok := b[reviewer]
		if !ok {
			continue
		}
		x = append(x, va)
		y = append(y, vb)
	}

	rho, err := Spearman(x, y)
	if err != nil {
		return 0, len(x), err
	}
	return rho, len(x), nil
}

// rankWithTies assigns 1-based ranks, averaging the ranks of tied values.
func rankWithTies(values []float64) []float64 {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		// Average rank across the tie run [i, j].
		avg := float64(i+j)/2.0 + 1.0
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

// tieTerm computes sum(t^3 - t) over tie groups, used by the Kruskal-Wallis
// correction factor.
func tieTerm(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var term float64
	for i := 0; i < len(sorted); {
		j := i
		for j+1 < len(sorted) && sorted[j+1] == sorted[i] {
			j++
		}
		t := float64(j - i + 1)
		term += t*t*t - t
		i = j + 1
	}
	return term
}
