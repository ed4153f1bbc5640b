package viz

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
)

// PairGrid returns the lower triangle of a scatter matrix: histograms on
// the diagonal, class-coloured scatters below it and nil above. Pass the
// result to SaveGrid.
func PairGrid(names []string, cols [][]float64, class []float64) ([][]*plot.Plot, error) {
	if len(names) != len(cols) {
		return nil, lrErrors.NewDimensionError("viz.PairGrid", len(names), len(cols), 0)
	}
	labels := uniqueSorted(append([]float64(nil), class...))
	grid := make([][]*plot.Plot, len(cols))
	for r := range cols {
		grid[r] = make([]*plot.Plot, len(cols))
		for c := 0; c <= r; c++ {
			var xLabel, yLabel string
			if r == len(cols)-1 {
				xLabel = names[c]
			}
			if c == 0 {
				yLabel = names[r]
			}
			p := newPlot("", xLabel, yLabel)
			if r == c {
				h, err := plotter.NewHist(plotter.Values(cols[c]), 20)
				if err != nil {
					return nil, err
				}
				p.Add(h)
			} else {
				for k, lab := range labels {
					var pts plotter.XYs
					for i := range class {
						if class[i] == lab {
							pts = append(pts, plotter.XY{X: cols[c][i], Y: cols[r][i]})
						}
					}
					s, err := plotter.NewScatter(pts)
					if err != nil {
						return nil, err
					}
					s.GlyphStyle.Color = plotutil.Color(k)
					s.GlyphStyle.Radius = vg.Points(1)
					s.GlyphStyle.Shape = draw.CircleGlyph{}
					p.Add(s)
				}
			}
			grid[r][c] = p
		}
	}
	return grid, nil
}
