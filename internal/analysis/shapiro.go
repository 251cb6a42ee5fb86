package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// stdNormal is the reference distribution for the Shapiro-Wilk quantiles and
// p-value transform.
var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// ShapiroWilk tests the null hypothesis that the sample comes from a normal
// distribution, following Royston's AS R94 approximation (the same algorithm
// behind the common reference implementations). Valid for 3 <= n <= 5000;
// larger samples are accepted with degraded p-value accuracy.
func ShapiroWilk(x []float64) (TestResult, error) {
	n := len(x)
	if n < 3 {
		return TestResult{}, fmt.Errorf("shapiro-wilk: %w", ErrTooFewSamples)
	}

	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	if sorted[0] == sorted[n-1] {
		return TestResult{}, fmt.Errorf("shapiro-wilk: all sample values are identical")
	}

	w := shapiroW(sorted)
	p := shapiroP(w, n)
	return TestResult{Statistic: w, PValue: p}, nil
}

// shapiroW computes the W statistic from an ascending sample.
func shapiroW(sorted []float64) float64 {
	n := len(sorted)

	// Blom scores: expected normal order statistics approximation.
	m := make([]float64, n)
	var ssm float64
	for i := 0; i < n; i++ {
		m[i] = stdNormal.Quantile((float64(i+1) - 0.375) / (float64(n) + 0.25))
		ssm += m[i] * m[i]
	}

	a := make([]float64, n)
	if n == 3 {
		a[0] = -math.Sqrt(0.5)
		a[2] = math.Sqrt(0.5)
	} else {
		u := 1.0 / math.Sqrt(float64(n))
		cn := m[n-1] / math.Sqrt(ssm)
		an := cn + u*(0.221157+u*(-0.147981+u*(-2.071190+u*(4.434685+u*-2.706056))))

		var an1, phi float64
		if n > 5 {
			cn1 := m[n-2] / math.Sqrt(ssm)
			an1 = cn1 + u*(0.042981+u*(-0.293762+u*(-1.752461+u*(5.682633+u*-3.582633))))
			phi = (ssm - 2*m[n-1]*m[n-1] - 2*m[n-2]*m[n-2]) / (1 - 2*an*an - 2*an1*an1)
		} else {
			phi = (ssm - 2*m[n-1]*m[n-1]) / (1 - 2*an*an)
		}

		for i := 0; i < n; i++ {
			a[i] = m[i] / math.Sqrt(phi)
		}
		a[n-1] = an
		a[0] = -an
		if n > 5 {
			a[n-2] = an1
			a[1] = -an1
		}
	}

	var mean float64
	for _, v := range sorted {
		mean += v
	}
	mean /= float64(n)

	var num, den float64
	for i, v := range sorted {
		num += a[i] * v
		den += (v - mean) * (v - mean)
	}
	return num * num / den
}

// shapiroP maps the W statistic to an upper-tail p-value using Royston's
// normalizing transforms.
func shapiroP(w float64, n int) float64 {
	switch {
	case n == 3:
		// Exact for n=3.
		p := 6.0 / math.Pi * (math.Asin(math.Sqrt(w)) - math.Asin(math.Sqrt(0.75)))
		return math.Max(0, math.Min(1, p))
	case n <= 11:
		fn := float64(n)
		gamma := -2.273 + 0.459*fn
		wTrans := -math.Log(gamma - math.Log(1-w))
		mu := 0.5440 + fn*(-0.39978+fn*(0.025054+fn*-0.0006714))
		sigma := math.Exp(1.3822 + fn*(-0.77857+fn*(0.062767+fn*-0.0020322)))
		return stdNormal.Survival((wTrans - mu) / sigma)
	default:
		lnn := math.Log(float64(n))
		wTrans := math.Log(1 - w)
		mu := -1.5861 + lnn*(-0.31082+lnn*(-0.083751+lnn*0.0038915))
		sigma := math.Exp(-0.4803 + lnn*(-0.082676+lnn*0.0030302))
		return stdNormal.Survival((wTrans - mu) / sigma)
	}
}
