package preprocessing

import (
	"fmt"

	"github.com/YuminosukeSato/cropyield/core/model"
	"github.com/YuminosukeSato/cropyield/dataset"
	"github.com/YuminosukeSato/cropyield/pkg/errors"
)

// Passthrough forwards every column that the schema does not declare,
// unchanged and in table order. Values must be numeric; flag columns
// arrive here already mapped to 1/0 by the feature engineer.
type Passthrough struct {
	model.BaseEstimator

	// Exclude lists the declared columns and the target.
	Exclude []string
	// Columns is learned by Fit.
	Columns []string
}

// NewPassthrough returns an unfit stage that skips the excluded columns.
func NewPassthrough(exclude []string) *Passthrough {
	return &Passthrough{Exclude: append([]string(nil), exclude...)}
}

// Fit records the remaining columns of t and checks that they are numeric.
func (p *Passthrough) Fit(t *dataset.Table) error {
	if t.Len() == 0 {
		return errors.NewModelError("Passthrough.Fit", "empty data", errors.ErrEmptyData)
	}
	excluded := make(map[string]struct{}, len(p.Exclude))
	for _, c := range p.Exclude {
		excluded[c] = struct{}{}
	}

	var cols []string
	for _, c := range t.Columns {
		if _, skip := excluded[c]; skip {
			continue
		}
		if _, err := t.Floats(c); err != nil {
			return errors.Wrapf(err, "Passthrough.Fit: column %q must be numeric", c)
		}
		cols = append(cols, c)
	}

	p.Columns = cols
	p.SetFitted()
	return nil
}

// TransformRow copies the passthrough values of r into dst.
func (p *Passthrough) TransformRow(r dataset.Record, dst []float64) error {
	if err := p.RequireFitted("Passthrough", "TransformRow"); err != nil {
		return err
	}
	if len(dst) != len(p.Columns) {
		return errors.NewDimensionError("Passthrough.TransformRow", len(p.Columns), len(dst), 1)
	}
	for j, col := range p.Columns {
		v, err := r.Float(col)
		if err != nil {
			return err
		}
		dst[j] = v
	}
	return nil
}

func (p *Passthrough) FeatureNames() []string { return append([]string(nil), p.Columns...) }
func (p *Passthrough) Width() int             { return len(p.Columns) }

func (p *Passthrough) String() string {
	return fmt.Sprintf("Passthrough(columns=%v)", p.Columns)
}
