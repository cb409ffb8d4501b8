package preprocessing

import (
	"fmt"

	"github.com/YuminosukeSato/cropyield/core/model"
	"github.com/YuminosukeSato/cropyield/dataset"
	"github.com/YuminosukeSato/cropyield/pkg/errors"
	"github.com/YuminosukeSato/cropyield/pkg/log"
)

// OneHotEncoder is a drop-first one-hot encoding stage.
//
// For every column the distinct values are recorded in first-appearance
// order. The first one becomes the reference level (Dropped) and is encoded
// as an all-zero block; the remaining ones (Categories) get one indicator
// each. A value never seen during Fit also encodes as an all-zero block.
type OneHotEncoder struct {
	model.BaseEstimator

	Columns    []string
	Dropped    []string
	Categories [][]string

	logger log.Logger
}

// NewOneHotEncoder returns an unfit encoder over columns.
func NewOneHotEncoder(columns []string) *OneHotEncoder {
	return &OneHotEncoder{Columns: append([]string(nil), columns...)}
}

// SetLogger sets the logger used to report unseen categories. It is not
// persisted.
func (e *OneHotEncoder) SetLogger(l log.Logger) {
	e.logger = l
}

// Fit learns the vocabulary of every column, replacing any previous one.
func (e *OneHotEncoder) Fit(t *dataset.Table) error {
	if t.Len() == 0 {
		return errors.NewModelError("OneHotEncoder.Fit", "empty data", errors.ErrEmptyData)
	}

	dropped := make([]string, len(e.Columns))
	categories := make([][]string, len(e.Columns))
	for j, col := range e.Columns {
		seen := make(map[string]struct{})
		var order []string
		for i, r := range t.Rows {
			v, err := r.String(col)
			if err != nil {
				return errors.Wrapf(err, "OneHotEncoder.Fit: row %d", i)
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			order = append(order, v)
		}
		dropped[j] = order[0]
		categories[j] = order[1:]
	}

	e.Dropped = dropped
	e.Categories = categories
	e.SetFitted()
	return nil
}

// TransformRow writes the indicator blocks of r into dst.
func (e *OneHotEncoder) TransformRow(r dataset.Record, dst []float64) error {
	if err := e.RequireFitted("OneHotEncoder", "TransformRow"); err != nil {
		return err
	}
	if w := e.Width(); len(dst) != w {
		return errors.NewDimensionError("OneHotEncoder.TransformRow", w, len(dst), 1)
	}

	offset := 0
	for j, col := range e.Columns {
		v, err := r.String(col)
		if err != nil {
			return err
		}
		block := dst[offset : offset+len(e.Categories[j])]
		for k := range block {
			block[k] = 0
		}
		if idx := indexOf(e.Categories[j], v); idx >= 0 {
			block[idx] = 1
		} else if v != e.Dropped[j] && e.logger != nil {
			e.logger.Debug("Unseen category encoded as reference level",
				log.ColumnKey, col,
				"category", v,
			)
		}
		offset += len(e.Categories[j])
	}
	return nil
}

func indexOf(vocab []string, v string) int {
	for i, c := range vocab {
		if c == v {
			return i
		}
	}
	return -1
}

// FeatureNames returns "<column>_<category>" for every indicator.
func (e *OneHotEncoder) FeatureNames() []string {
	names := make([]string, 0, e.Width())
	for j, col := range e.Columns {
		if j >= len(e.Categories) {
			break
		}
		for _, c := range e.Categories[j] {
			names = append(names, col+"_"+c)
		}
	}
	return names
}

// Width is the total number of indicators. It is zero before Fit.
func (e *OneHotEncoder) Width() int {
	w := 0
	for _, c := range e.Categories {
		w += len(c)
	}
	return w
}

func (e *OneHotEncoder) String() string {
	if !e.IsFitted() {
		return fmt.Sprintf("OneHotEncoder(columns=%v, drop=first)", e.Columns)
	}
	return fmt.Sprintf("OneHotEncoder(columns=%v, drop=first, width=%d)", e.Columns, e.Width())
}
