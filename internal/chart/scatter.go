// Package chart renders the scatter plot with an OLS trendline shown next to
// correlation results.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/KaramelBytes/corrlab/internal/analysis"
)

// ErrNoFit is returned when a trendline cannot be fitted.
var ErrNoFit = errors.New("cannot fit trendline")

// Options controls chart labels and size.
type Options struct {
	Title  string
	XLabel string
	YLabel string
	Width  vg.Length
	Height vg.Length
}

// DefaultOptions returns a 6x4 inch chart.
func DefaultOptions() Options {
	return Options{Width: 6 * vg.Inch, Height: 4 * vg.Inch}
}

// Trend is an ordinary least squares line y = Intercept + Slope·x.
type Trend struct {
	Intercept float64
	Slope     float64
}

// FitTrend fits an OLS line over the pairwise-complete points of xs, ys.
func FitTrend(xs, ys []float64) (Trend, error) {
	if len(xs) != len(ys) {
		return Trend{}, fmt.Errorf("%w: %d x values, %d y values", ErrNoFit, len(xs), len(ys))
	}
	x, y := analysis.CompletePairs(xs, ys)
	if len(x) < 2 {
		return Trend{}, fmt.Errorf("%w: need at least 2 points", ErrNoFit)
	}
	if floats.Min(x) == floats.Max(x) {
		return Trend{}, fmt.Errorf("%w: x has no variation", ErrNoFit)
	}
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return Trend{}, ErrNoFit
	}
	return Trend{Intercept: alpha, Slope: beta}, nil
}

// At evaluates the line at x.
func (t Trend) At(x float64) float64 { return t.Intercept + t.Slope*x }

// Scatter renders y against x with the fitted trendline as PNG bytes.
func Scatter(xs, ys []float64, opt Options) ([]byte, error) {
	trend, err := FitTrend(xs, ys)
	if err != nil {
		return nil, err
	}
	x, y := analysis.CompletePairs(xs, ys)
	if opt.Width <= 0 {
		opt.Width = 6 * vg.Inch
	}
	if opt.Height <= 0 {
		opt.Height = 4 * vg.Inch
	}

	p := plot.New()
	p.Title.Text = opt.Title
	p.X.Label.Text = opt.XLabel
	p.Y.Label.Text = opt.YLabel
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i].X = x[i]
		pts[i].Y = y[i]
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fmt.Errorf("scatter: %w", err)
	}
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	s.GlyphStyle.Radius = vg.Points(3)

	lo, hi := floats.Min(x), floats.Max(x)
	l, err := plotter.NewLine(plotter.XYs{{X: lo, Y: trend.At(lo)}, {X: hi, Y: trend.At(hi)}})
	if err != nil {
		return nil, fmt.Errorf("trendline: %w", err)
	}
	l.LineStyle.Width = vg.Points(2)
	l.LineStyle.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	p.Add(s, l)

	wt, err := p.WriterTo(opt.Width, opt.Height, "png")
	if err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}
