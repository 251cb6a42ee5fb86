package plot

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// gaussianKDE evaluates a Gaussian kernel density estimate of the sample on
// an evenly spaced grid spanning the data range padded by one bandwidth on
// each side. Bandwidth follows Silverman's rule of thumb.
func gaussianKDE(sample []float64, gridN int) (xs, ys []float64) {
	h := silvermanBandwidth(sample)
	if h <= 0 {
		h = 1
	}

	lo, hi := sample[0], sample[0]
	for _, v := range sample {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	lo -= h
	hi += h

	xs = make([]float64, gridN)
	ys = make([]float64, gridN)
	step := (hi - lo) / float64(gridN-1)
	norm := 1.0 / (float64(len(sample)) * h * math.Sqrt(2*math.Pi))

	for i := range xs {
		x := lo + float64(i)*step
		var density float64
		for _, v := range sample {
			z := (x - v) / h
			density += math.Exp(-0.5 * z * z)
		}
		xs[i] = x
		ys[i] = density * norm
	}
	return xs, ys
}

// silvermanBandwidth is 0.9 * min(sd, IQR/1.34) * n^(-1/5).
func silvermanBandwidth(sample []float64) float64 {
	sorted := append([]float64(nil), sample...)
	sort.Float64s(sorted)

	sd := stat.StdDev(sorted, nil)
	iqr := stat.Quantile(0.75, stat.LinInterp, sorted, nil) - stat.Quantile(0.25, stat.LinInterp, sorted, nil)

	spread := sd
	if iqr > 0 && iqr/1.34 < spread {
		spread = iqr / 1.34
	}
	return 0.9 * spread * math.Pow(float64(len(sorted)), -0.2)
}
