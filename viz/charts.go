package viz

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
)

var (
	meanColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	gray      = color.Gray{Y: 128}
)

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	return p
}

func verticalLine(x, y0, y1 float64, c color.Color) (*plotter.Line, error) {
	l, err := plotter.NewLine(plotter.XYs{{X: x, Y: y0}, {X: x, Y: y1}})
	if err != nil {
		return nil, err
	}
	l.Color = c
	l.Width = vg.Points(1.5)
	l.Dashes = []vg.Length{vg.Points(5), vg.Points(3)}
	return l, nil
}

// Histogram draws vals in bins with a dashed line at the mean.
func Histogram(title, xLabel string, vals []float64, bins int, fill color.Color) (*plot.Plot, error) {
	if len(vals) == 0 {
		return nil, lrErrors.NewValueError("viz.Histogram", "no values")
	}
	p := newPlot(title, xLabel, "Count")
	h, err := plotter.NewHist(plotter.Values(vals), bins)
	if err != nil {
		return nil, err
	}
	if fill != nil {
		h.FillColor = fill
	}
	p.Add(h)

	top := 0.0
	for _, b := range h.Bins {
		top = math.Max(top, b.Weight)
	}
	mean := stat.Mean(vals, nil)
	line, err := verticalLine(mean, 0, top, meanColor)
	if err != nil {
		return nil, err
	}
	p.Add(line)
	p.Legend.Add(fmt.Sprintf("Mean: %.2f", mean), line)
	p.Legend.Top = true
	return p, nil
}

// BoxPlots draws one box per group, without outlier markers, and marks
// each group mean with a labelled red tick.
func BoxPlots(title, xLabel, yLabel string, names []string, groups [][]float64, showMeans bool) (*plot.Plot, error) {
	if len(names) != len(groups) {
		return nil, lrErrors.NewDimensionError("viz.BoxPlots", len(names), len(groups), 0)
	}
	p := newPlot(title, xLabel, yLabel)
	w := vg.Points(40)
	var means plotter.XYs
	var labels []string
	for i, g := range groups {
		b, err := plotter.NewBoxPlot(w, float64(i), plotter.Values(g))
		if err != nil {
			return nil, err
		}
		b.GlyphStyle.Radius = 0
		b.FillColor = plotutil.Color(i)
		p.Add(b)
		m := stat.Mean(g, nil)
		means = append(means, plotter.XY{X: float64(i), Y: m})
		labels = append(labels, fmt.Sprintf("Mean: %.2f", m))
	}
	if showMeans {
		s, err := plotter.NewScatter(means)
		if err != nil {
			return nil, err
		}
		s.GlyphStyle.Color = meanColor
		s.GlyphStyle.Shape = draw.BoxGlyph{}
		s.GlyphStyle.Radius = vg.Points(3)
		lbl, err := plotter.NewLabels(plotter.XYLabels{XYs: means, Labels: labels})
		if err != nil {
			return nil, err
		}
		lbl.Offset = vg.Point{X: vg.Points(6), Y: vg.Points(2)}
		p.Add(s, lbl)
	}
	p.NominalX(names...)
	return p, nil
}

// Bars draws one vertical bar per name. label, when not nil, renders the
// text drawn above each bar.
func Bars(title, xLabel, yLabel string, names []string, values []float64, fill color.Color, label func(i int, v float64) string) (*plot.Plot, error) {
	if len(names) != len(values) {
		return nil, lrErrors.NewDimensionError("viz.Bars", len(names), len(values), 0)
	}
	p := newPlot(title, xLabel, yLabel)
	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(30))
	if err != nil {
		return nil, err
	}
	bars.Color = fill
	if fill == nil {
		bars.Color = plotutil.Color(0)
	}
	p.Add(bars)
	if label != nil {
		if err := addBarLabels(p, values, 0, label); err != nil {
			return nil, err
		}
	}
	p.NominalX(names...)
	return p, nil
}

func addBarLabels(p *plot.Plot, values []float64, offset vg.Length, label func(i int, v float64) string) error {
	xys := make(plotter.XYs, len(values))
	texts := make([]string, len(values))
	for i, v := range values {
		xys[i] = plotter.XY{X: float64(i), Y: v}
		texts[i] = label(i, v)
	}
	lbl, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return err
	}
	for i := range lbl.TextStyle {
		lbl.TextStyle[i].XAlign = draw.XCenter
	}
	lbl.Offset = vg.Point{X: offset, Y: vg.Points(3)}
	p.Add(lbl)
	return nil
}

// Series is one named group of bar heights.
type Series struct {
	Name   string
	Values []float64
}

// GroupedBars places the bars of every series side by side for each
// category, with a legend and the bar value above each bar.
func GroupedBars(title, xLabel, yLabel string, categories []string, series []Series) (*plot.Plot, error) {
	p := newPlot(title, xLabel, yLabel)
	w := vg.Points(18)
	k := float64(len(series))
	for i, s := range series {
		if len(s.Values) != len(categories) {
			return nil, lrErrors.NewDimensionError("viz.GroupedBars", len(categories), len(s.Values), 0)
		}
		bars, err := plotter.NewBarChart(plotter.Values(s.Values), w)
		if err != nil {
			return nil, err
		}
		off := vg.Length(float64(i)-(k-1)/2) * w
		bars.Offset = off
		bars.Color = plotutil.Color(i)
		p.Add(bars)
		p.Legend.Add(s.Name, bars)
		if err := addBarLabels(p, s.Values, off, func(_ int, v float64) string { return fmt.Sprintf("%.0f", v) }); err != nil {
			return nil, err
		}
	}
	p.Legend.Top = true
	p.NominalX(categories...)
	return p, nil
}

// HorizontalBars draws bars left to right with the first name on top.
func HorizontalBars(title, xLabel string, names []string, values []float64, fill color.Color) (*plot.Plot, error) {
	if len(names) != len(values) {
		return nil, lrErrors.NewDimensionError("viz.HorizontalBars", len(names), len(values), 0)
	}
	n := len(values)
	rev := make([]float64, n)
	revNames := make([]string, n)
	for i := range values {
		rev[n-1-i] = values[i]
		revNames[n-1-i] = names[i]
	}
	p := newPlot(title, xLabel, "")
	bars, err := plotter.NewBarChart(plotter.Values(rev), vg.Points(14))
	if err != nil {
		return nil, err
	}
	bars.Horizontal = true
	bars.Color = fill
	if fill == nil {
		bars.Color = plotutil.Color(0)
	}
	p.Add(bars)
	p.NominalY(revNames...)
	return p, nil
}

// grid adapts a matrix to plotter.GridXYZ with row 0 drawn at the top.
type grid struct{ m mat.Matrix }

func (g grid) Dims() (c, r int) {
	r, c = g.m.Dims()
	return c, r
}

func (g grid) Z(c, r int) float64 {
	rows, _ := g.m.Dims()
	return g.m.At(rows-1-r, c)
}

func (g grid) X(c int) float64 { return float64(c) }
func (g grid) Y(r int) float64 { return float64(r) }

// HeatmapOptions controls colouring and cell annotations.
type HeatmapOptions struct {
	// Diverging uses a blue-red map centred on zero over [-Bound, Bound];
	// otherwise a white-to-blue ramp spans [0, max].
	Diverging bool
	Bound     float64
	Format    string // fmt verb for cell text, e.g. "%.2f" or "%.0f"
}

// Heatmap draws m with annotated cells. xNames label columns and yNames
// label rows, top to bottom.
func Heatmap(title string, xNames, yNames []string, m mat.Matrix, opts HeatmapOptions) (*plot.Plot, error) {
	r, c := m.Dims()
	if len(xNames) != c || len(yNames) != r {
		return nil, lrErrors.NewDimensionError("viz.Heatmap", r*c, len(xNames)*len(yNames), 0)
	}
	var pal palette.Palette
	lo, hi := 0.0, mat.Max(m)
	if opts.Diverging {
		bound := opts.Bound
		if bound == 0 {
			bound = 1
		}
		cm := moreland.SmoothBlueRed()
		cm.SetMin(-bound)
		cm.SetMax(bound)
		lo, hi = -bound, bound
		pal = cm.Palette(256)
	} else {
		dark, err := moreland.NewLuminance([]color.Color{
			color.NRGBA{R: 8, G: 48, B: 107, A: 255},
			color.NRGBA{R: 247, G: 251, B: 255, A: 255},
		})
		if err != nil {
			return nil, err
		}
		cm := palette.Reverse(dark)
		if hi <= lo {
			hi = lo + 1
		}
		cm.SetMin(lo)
		cm.SetMax(hi)
		pal = cm.Palette(256)
	}

	p := newPlot(title, "", "")
	hm := plotter.NewHeatMap(grid{m}, pal)
	hm.Min, hm.Max = lo, hi
	p.Add(hm)

	format := opts.Format
	if format == "" {
		format = "%.2f"
	}
	xys := make(plotter.XYs, 0, r*c)
	texts := make([]string, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			xys = append(xys, plotter.XY{X: float64(j), Y: float64(r - 1 - i)})
			texts = append(texts, fmt.Sprintf(format, m.At(i, j)))
		}
	}
	lbl, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return nil, err
	}
	for i := range lbl.TextStyle {
		lbl.TextStyle[i].XAlign = draw.XCenter
		lbl.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(lbl)

	revY := make([]string, r)
	for i, n := range yNames {
		revY[r-1-i] = n
	}
	p.NominalX(xNames...)
	p.NominalY(revY...)
	return p, nil
}

// ScatterByClass colours points by their class label, one legend entry
// per class in ascending label order.
func ScatterByClass(title, xLabel, yLabel string, x, y, class []float64, names map[float64]string) (*plot.Plot, error) {
	if len(x) != len(y) || len(x) != len(class) {
		return nil, lrErrors.NewDimensionError("viz.ScatterByClass", len(x), len(y), 0)
	}
	p := newPlot(title, xLabel, yLabel)
	labels := append([]float64(nil), class...)
	labels = uniqueSorted(labels)
	for k, c := range labels {
		var pts plotter.XYs
		for i := range x {
			if class[i] == c {
				pts = append(pts, plotter.XY{X: x[i], Y: y[i]})
			}
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, err
		}
		s.GlyphStyle.Color = plotutil.Color(k)
		s.GlyphStyle.Radius = vg.Points(1.5)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
		name, ok := names[c]
		if !ok {
			name = fmt.Sprintf("%g", c)
		}
		p.Legend.Add(name, s)
	}
	p.Legend.Top = true
	return p, nil
}

func uniqueSorted(v []float64) []float64 {
	sort.Float64s(v)
	var out []float64
	for i, x := range v {
		if i == 0 || x != v[i-1] {
			out = append(out, x)
		}
	}
	return out
}

// Curve is a named polyline.
type Curve struct {
	Name string
	X, Y []float64
}

// ROC draws one line per curve plus the dashed chance diagonal.
func ROC(title string, curves []Curve) (*plot.Plot, error) {
	p := newPlot(title, "False Positive Rate", "True Positive Rate")
	for i, c := range curves {
		if len(c.X) != len(c.Y) {
			return nil, lrErrors.NewDimensionError("viz.ROC", len(c.X), len(c.Y), 0)
		}
		pts := make(plotter.XYs, len(c.X))
		for k := range c.X {
			pts[k] = plotter.XY{X: c.X[k], Y: c.Y[k]}
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		l.Color = plotutil.Color(i)
		l.Width = vg.Points(1.5)
		p.Add(l)
		p.Legend.Add(c.Name, l)
	}
	diag, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return nil, err
	}
	diag.Color = gray
	diag.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(diag)
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.Legend.Left = false
	return p, nil
}
