// Package plot renders the comparative figures: box plots, histograms,
// density curves, and scatter plots with linear fits. Figures are written
// as PNG files into a target directory.
package plot

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/ericfisherdev/reviewlens/internal/analysis"
)

// Category colors, matching the study's original palette: light blue for
// industry-backed repositories, thistle for community-driven ones.
var (
	industryColor  = color.RGBA{R: 173, G: 216, B: 230, A: 255}
	communityColor = color.RGBA{R: 216, G: 191, B: 216, A: 255}

	industryStrong  = color.RGBA{B: 255, A: 255}
	communityStrong = color.RGBA{R: 255, A: 255}
)

const (
	figWidth  = 12 * vg.Inch
	figHeight = 6 * vg.Inch
)

// Series is one labeled group of metric values to plot.
type Series struct {
	Name           string
	IndustryBacked bool
	Values         []float64
}

// Renderer writes figures into a directory, optionally log-transforming
// every value first.
type Renderer struct {
	dir          string
	logTransform bool
}

// NewRenderer creates a Renderer targeting dir, creating it if needed.
func NewRenderer(dir string, logTransform bool) (*Renderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating images directory %s: %w", dir, err)
	}
	return &Renderer{dir: dir, logTransform: logTransform}, nil
}

// prepare applies the optional log transform to a value set.
func (r *Renderer) prepare(values []float64) []float64 {
	if r.logTransform {
		return analysis.LogTransform(values)
	}
	return values
}

// axisLabel suffixes the label when values are log-transformed.
func (r *Renderer) axisLabel(label string) string {
	if r.logTransform {
		return label + " (log)"
	}
	return label
}

// BoxPlot draws one box per series, colored by category, and saves it under
// filename.
func (r *Renderer) BoxPlot(filename, xlabel, ylabel string, series []Series) error {
	p := plot.New()
	p.X.Label.Text = xlabel
	p.Y.Label.Text = r.axisLabel(ylabel)
	p.Add(plotter.NewGrid())

	names := make([]string, 0, len(series))
	for i, s := range series {
		values := r.prepare(s.Values)
		names = append(names, s.Name)
		if len(values) == 0 {
			continue
		}

		box, err := plotter.NewBoxPlot(vg.Points(30), float64(i), plotter.Values(values))
		if err != nil {
			return fmt.Errorf("box for %s: %w", s.Name, err)
		}
		box.FillColor = industryColor
		if !s.IndustryBacked {
			box.FillColor = communityColor
		}
		p.Add(box)
	}
	p.NominalX(names...)

	return r.save(p, filename)
}

// Histogram draws a single distribution as a 40-bin histogram.
func (r *Renderer) Histogram(filename, xlabel string, values []float64, industryBacked bool) error {
	values = r.prepare(values)
	if len(values) == 0 {
		return fmt.Errorf("histogram %s: no values", filename)
	}

	p := plot.New()
	p.X.Label.Text = r.axisLabel(xlabel)
	p.Y.Label.Text = "Frequency"
	p.Add(plotter.NewGrid())

	hist, err := plotter.NewHist(plotter.Values(values), 40)
	if err != nil {
		return fmt.Errorf("histogram %s: %w", filename, err)
	}
	hist.FillColor = industryColor
	if !industryBacked {
		hist.FillColor = communityColor
	}
	p.Add(hist)

	return r.save(p, filename)
}

// DensityComparison overlays kernel density estimates of the industry and
// community distributions.
func (r *Renderer) DensityComparison(filename, xlabel string, industry, community []float64) error {
	industry = r.prepare(industry)
	community = r.prepare(community)
	if len(industry) < 2 || len(community) < 2 {
		return fmt.Errorf("density %s: %w", filename, analysis.ErrTooFewSamples)
	}

	p := plot.New()
	p.X.Label.Text = r.axisLabel(xlabel)
	p.X.Min = 0
	p.Y.Label.Text = "Density"
	p.Add(plotter.NewGrid())

	for _, group := range []struct {
		name   string
		values []float64
		color  color.Color
	}{
		{"Industry", industry, industryStrong},
		{"Community", community, communityStrong},
	} {
		xs, ys := gaussianKDE(group.values, 200)
		pts := make(plotter.XYs, len(xs))
		for i := range xs {
			pts[i].X = xs[i]
			pts[i].Y = ys[i]
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("density %s: %w", filename, err)
		}
		line.LineStyle.Width = vg.Points(2)
		line.LineStyle.Color = group.color
		p.Add(line)
		p.Legend.Add(group.name, line)
	}

	return r.save(p, filename)
}

// ScatterWithFit draws industry and community reviewer points for a pair of
// metrics and overlays a least-squares line per category.
func (r *Renderer) ScatterWithFit(filename, xlabel, ylabel string, industryX, industryY, communityX, communityY []float64) error {
	p := plot.New()
	p.X.Label.Text = r.axisLabel(xlabel)
	p.Y.Label.Text = r.axisLabel(ylabel)
	p.Add(plotter.NewGrid())

	indX, indY := r.preparePaired(industryX, industryY)
	comX, comY := r.preparePaired(communityX, communityY)

	for _, group := range []struct {
		name  string
		x, y  []float64
		color color.Color
	}{
		{"Industry", indX, indY, industryStrong},
		{"Community", comX, comY, communityStrong},
	} {
		if len(group.x) == 0 {
			continue
		}

		pts := make(plotter.XYs, len(group.x))
		for i := range group.x {
			pts[i].X = group.x[i]
			pts[i].Y = group.y[i]
		}

		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("scatter %s: %w", filename, err)
		}
		scatter.GlyphStyle.Color = group.color
		scatter.GlyphStyle.Radius = vg.Points(2)
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(scatter)
		p.Legend.Add(group.name, scatter)

		if len(group.x) > 1 {
			alpha, beta := stat.LinearRegression(group.x, group.y, nil, false)
			fit := plotter.NewFunction(func(x float64) float64 { return alpha + beta*x })
			fit.LineStyle.Color = group.color
			fit.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
			p.Add(fit)
		}
	}

	return r.save(p, filename)
}

// preparePaired applies the log transform to a paired sample, dropping pairs
// where either side is negative so the two slices stay aligned.
func (r *Renderer) preparePaired(x, y []float64) ([]float64, []float64) {
	if !r.logTransform {
		return x, y
	}

	var tx, ty []float64
	for i := range x {
		if x[i] < 0 || y[i] < 0 {
			continue
		}
		tx = append(tx, math.Log10(1+x[i]))
		ty = append(ty, math.Log10(1+y[i]))
	}
	return tx, ty
}

func (r *Renderer) save(p *plot.Plot, filename string) error {
	path := filepath.Join(r.dir, filename)
	if err := p.Save(figWidth, figHeight, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
