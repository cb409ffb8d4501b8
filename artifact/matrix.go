package artifact

import (
	"io"

	"github.com/parquet-go/parquet-go"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cropyield/pkg/errors"
	"github.com/YuminosukeSato/cropyield/pkg/log"
)

// MatrixRow is one transformed sample as stored in Parquet.
type MatrixRow struct {
	Features []float64 `parquet:"features,list"`
	Target   float64   `parquet:"target"`
}

// SaveMatrix writes X with y appended as the final column. One Parquet row
// per sample.
func (s *Store) SaveMatrix(path string, X mat.Matrix, y []float64) error {
	path = s.Path(path)
	r, c := X.Dims()
	if len(y) != r {
		return errors.NewArtifactIOError("Store.SaveMatrix", path,
			errors.NewDimensionError("Store.SaveMatrix", r, len(y), 0))
	}
	rows := make([]MatrixRow, r)
	for i := range rows {
		rows[i] = MatrixRow{Features: mat.Row(make([]float64, c), i, X), Target: y[i]}
	}
	err := writeFileAtomic(path, func(w io.Writer) error {
		return parquet.Write(w, rows)
	})
	if err != nil {
		return errors.NewArtifactIOError("Store.SaveMatrix", path, err)
	}
	s.logger.Debug("Matrix saved", log.ArtifactPathKey, path, log.SamplesKey, r, log.FeaturesKey, c)
	return nil
}

// LoadMatrix reads a matrix written by SaveMatrix. Rows of unequal width
// are rejected.
func (s *Store) LoadMatrix(path string) (*mat.Dense, []float64, error) {
	path = s.Path(path)
	rows, err := parquet.ReadFile[MatrixRow](path)
	if err != nil {
		return nil, nil, errors.NewArtifactIOError("Store.LoadMatrix", path, err)
	}
	if len(rows) == 0 {
		return nil, nil, errors.NewArtifactIOError("Store.LoadMatrix", path, errors.ErrEmptyData)
	}
	c := len(rows[0].Features)
	if c == 0 {
		return nil, nil, errors.NewArtifactIOError("Store.LoadMatrix", path+": no feature columns", nil)
	}
	X := mat.NewDense(len(rows), c, nil)
	y := make([]float64, len(rows))
	for i, row := range rows {
		if len(row.Features) != c {
			return nil, nil, errors.NewArtifactIOError("Store.LoadMatrix", path,
				errors.NewDimensionError("Store.LoadMatrix", c, len(row.Features), 1))
		}
		X.SetRow(i, row.Features)
		y[i] = row.Target
	}
	return X, y, nil
}
