package artifact

import (
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/cropyield/pkg/errors"
	"github.com/YuminosukeSato/cropyield/pkg/log"
)

// SavePredictionPlot writes a predicted-vs-actual scatter plot as PNG, with
// the y = x reference line.
func (s *Store) SavePredictionPlot(path string, yTrue, yPred []float64) error {
	path = s.Path(path)
	if len(yTrue) != len(yPred) {
		return errors.NewArtifactIOError("Store.SavePredictionPlot", path,
			errors.NewDimensionError("Store.SavePredictionPlot", len(yTrue), len(yPred), 0))
	}
	if len(yTrue) == 0 {
		return errors.NewArtifactIOError("Store.SavePredictionPlot", path, errors.ErrEmptyData)
	}

	p := plot.New()
	p.Title.Text = "Predicted vs actual yield"
	p.X.Label.Text = "actual (t/ha)"
	p.Y.Label.Text = "predicted (t/ha)"

	pts := make(plotter.XYs, len(yTrue))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range yTrue {
		pts[i].X = yTrue[i]
		pts[i].Y = yPred[i]
		lo = math.Min(lo, math.Min(yTrue[i], yPred[i]))
		hi = math.Max(hi, math.Max(yTrue[i], yPred[i]))
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.NewArtifactIOError("Store.SavePredictionPlot", "build scatter", err)
	}
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(1.5)

	ref, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return errors.NewArtifactIOError("Store.SavePredictionPlot", "build reference line", err)
	}
	ref.LineStyle.Width = vg.Points(1)
	ref.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(scatter, ref, plotter.NewGrid())
	p.Legend.Add("samples", scatter)
	p.Legend.Add("y = x", ref)

	wt, err := p.WriterTo(6*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return errors.NewArtifactIOError("Store.SavePredictionPlot", "render", err)
	}
	err = writeFileAtomic(path, func(w io.Writer) error {
		_, err := wt.WriteTo(w)
		return err
	})
	if err != nil {
		return errors.NewArtifactIOError("Store.SavePredictionPlot", path, err)
	}
	s.logger.Debug("Prediction plot saved", log.ArtifactPathKey, path, log.SamplesKey, len(yTrue))
	return nil
}
