// Package viz builds the pipeline's charts with gonum/plot and writes them
// as PNG files.
package viz

import (
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
	"github.com/kari1998/loan-default-prediction/pkg/log"
)

// Default figure sizes.
var (
	Width  = 8 * vg.Inch
	Height = 6 * vg.Inch
)

func ensureDir(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return lrErrors.Wrapf(err, "create %s", dir)
		}
	}
	return nil
}

// Save writes p to path, creating parent directories. The format follows
// the file extension.
func Save(p *plot.Plot, path string, w, h vg.Length) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := p.Save(w, h, path); err != nil {
		return lrErrors.Wrapf(err, "save plot %s", path)
	}
	log.GetLoggerWithName("viz").Debug("plot saved", log.PathKey, path)
	return nil
}

// SaveGrid draws plots as a row-major grid with aligned data areas and
// writes a PNG. Nil entries leave their tile blank.
func SaveGrid(path string, plots [][]*plot.Plot, w, h vg.Length) error {
	if len(plots) == 0 || len(plots[0]) == 0 {
		return lrErrors.NewValueError("viz.SaveGrid", "no plots")
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	img := vgimg.New(w, h)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      len(plots[0]),
		PadTop:    vg.Points(4),
		PadBottom: vg.Points(4),
		PadLeft:   vg.Points(4),
		PadRight:  vg.Points(4),
		PadX:      vg.Points(12),
		PadY:      vg.Points(12),
	}
	canvases := plot.Align(plots, tiles, dc)
	for j, row := range plots {
		for i, p := range row {
			if p != nil {
				p.Draw(canvases[j][i])
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return lrErrors.Wrapf(err, "create %s", path)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		_ = f.Close()
		return lrErrors.Wrapf(err, "write %s", path)
	}
	log.GetLoggerWithName("viz").Debug("grid saved", log.PathKey, path, "rows", tiles.Rows, "cols", tiles.Cols)
	return f.Close()
}
