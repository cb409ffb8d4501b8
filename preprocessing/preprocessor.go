// Package preprocessing turns engineered records into fixed-width feature
// vectors.
//
// A Preprocessor is the concatenation of three stages in a fixed order:
//
//	StandardScaler(numeric columns) | OneHotEncoder(categorical columns) | Passthrough(everything else)
//
// Fit learns every parameter from a training table. After Fit the output
// width and the position of every feature are frozen, and TransformRecord
// replays exactly the same mapping on any later record using only the
// persisted parameters. The whole value is gob-serializable.
package preprocessing

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cropyield/core/model"
	"github.com/YuminosukeSato/cropyield/core/parallel"
	"github.com/YuminosukeSato/cropyield/dataset"
	"github.com/YuminosukeSato/cropyield/pkg/errors"
	"github.com/YuminosukeSato/cropyield/pkg/log"
	"github.com/YuminosukeSato/cropyield/schema"
)

// Preprocessor is the fitted column transformer shared by training and
// serving. Once fit it is read-only and safe for concurrent TransformRecord
// calls.
type Preprocessor struct {
	model.BaseEstimator

	NumericColumns     []string
	CategoricalColumns []string
	TargetColumn       string

	Scaler      *StandardScaler
	Encoder     *OneHotEncoder
	Passthrough *Passthrough

	// Names and NFeatures are frozen by Fit.
	Names     []string
	NFeatures int

	logger    log.Logger
	threshold int
}

// Option configures a Preprocessor.
type Option func(*Preprocessor)

// WithLogger sets the logger. It is not persisted; call SetLogger after
// loading a saved preprocessor.
func WithLogger(l log.Logger) Option {
	return func(p *Preprocessor) {
		p.logger = l
	}
}

// WithParallelThreshold sets the row count above which Transform splits
// work across CPU cores.
func WithParallelThreshold(n int) Option {
	return func(p *Preprocessor) {
		p.threshold = n
	}
}

// NewPreprocessor returns an unfit preprocessor for s.
func NewPreprocessor(s *schema.Schema, opts ...Option) *Preprocessor {
	p := &Preprocessor{
		NumericColumns:     s.NumericColumns(),
		CategoricalColumns: s.CategoricalColumns(),
		TargetColumn:       s.TargetColumn(),
		threshold:          parallel.DefaultThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.Scaler, p.Encoder, p.Passthrough = p.newStages()
	return p
}

// SetLogger replaces the logger, typically after loading from an artifact.
func (p *Preprocessor) SetLogger(l log.Logger) {
	p.logger = l
	if p.Encoder != nil {
		p.Encoder.SetLogger(l)
	}
}

func (p *Preprocessor) log() log.Logger {
	return log.OrNop(p.logger)
}

func (p *Preprocessor) newStages() (*StandardScaler, *OneHotEncoder, *Passthrough) {
	exclude := make([]string, 0, len(p.NumericColumns)+len(p.CategoricalColumns)+1)
	exclude = append(exclude, p.NumericColumns...)
	exclude = append(exclude, p.CategoricalColumns...)
	exclude = append(exclude, p.TargetColumn)

	enc := NewOneHotEncoder(p.CategoricalColumns)
	enc.SetLogger(p.logger)
	return NewStandardScaler(p.NumericColumns), enc, NewPassthrough(exclude)
}

// Stages returns the stages in output order.
func (p *Preprocessor) Stages() []model.Stage {
	return []model.Stage{p.Scaler, p.Encoder, p.Passthrough}
}

// Fit learns all stage parameters from t. Every call starts from fresh
// stages, so a second Fit replaces the first and a failed Fit leaves the
// previous parameters in place.
func (p *Preprocessor) Fit(t *dataset.Table) error {
	start := time.Now()
	if t.Len() == 0 {
		return errors.NewTransformationError("Preprocessor.Fit", "training table is empty", errors.ErrEmptyData)
	}
	for _, cols := range [][]string{p.NumericColumns, p.CategoricalColumns} {
		for _, c := range cols {
			if !t.HasColumn(c) {
				return errors.NewTransformationError("Preprocessor.Fit",
					fmt.Sprintf("declared column %q not in table", c), errors.ErrMissingColumn)
			}
		}
	}

	scaler, encoder, pass := p.newStages()
	stages := []model.Stage{scaler, encoder, pass}
	var names []string
	for _, st := range stages {
		if err := st.Fit(t); err != nil {
			return errors.NewTransformationError("Preprocessor.Fit", "", err)
		}
		names = append(names, st.FeatureNames()...)
	}
	if len(names) == 0 {
		return errors.NewTransformationError("Preprocessor.Fit", "no feature columns", errors.ErrEmptyData)
	}

	p.Scaler, p.Encoder, p.Passthrough = scaler, encoder, pass
	p.Names = names
	p.NFeatures = len(names)
	p.SetFitted()

	logger := p.log().With(log.ComponentKey, "preprocessing")
	for j, col := range encoder.Columns {
		logger.Debug("Category vocabulary learned",
			log.ColumnKey, col,
			log.CategoriesKey, len(encoder.Categories[j])+1,
			"dropped", encoder.Dropped[j],
		)
	}
	logger.Info("Preprocessor fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, t.Len(),
		log.FeaturesKey, p.NFeatures,
		"passthrough", pass.Columns,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// TransformRecord maps one engineered record to its feature vector.
//
// A categorical value not seen during Fit yields an all-zero block. A
// missing declared column, a non-numeric value in a numeric or passthrough
// column, or a call before Fit returns a transformation error.
func (p *Preprocessor) TransformRecord(r dataset.Record) ([]float64, error) {
	if err := p.RequireFitted("Preprocessor", "TransformRecord"); err != nil {
		return nil, errors.NewTransformationError("Preprocessor.TransformRecord", "", err)
	}
	out := make([]float64, p.NFeatures)
	offset := 0
	for _, st := range p.Stages() {
		w := st.Width()
		if offset+w > len(out) {
			return nil, errors.NewTransformationError("Preprocessor.TransformRecord", "stage widths exceed feature count",
				errors.NewDimensionError("Preprocessor.TransformRecord", p.NFeatures, offset+w, 1))
		}
		if err := st.TransformRow(r, out[offset:offset+w]); err != nil {
			return nil, errors.NewTransformationError("Preprocessor.TransformRecord", "", err)
		}
		offset += w
	}
	if offset != p.NFeatures {
		return nil, errors.NewTransformationError("Preprocessor.TransformRecord", "stage widths do not match feature count",
			errors.NewDimensionError("Preprocessor.TransformRecord", p.NFeatures, offset, 1))
	}
	return out, nil
}

// Transform maps every row of t. Rows are processed in parallel above the
// configured threshold; the error reports the lowest failing row.
func (p *Preprocessor) Transform(t *dataset.Table) (*mat.Dense, error) {
	if err := p.RequireFitted("Preprocessor", "Transform"); err != nil {
		return nil, errors.NewTransformationError("Preprocessor.Transform", "", err)
	}
	n := t.Len()
	if n == 0 {
		return nil, errors.NewTransformationError("Preprocessor.Transform", "table is empty", errors.ErrEmptyData)
	}

	threshold := p.threshold
	if threshold <= 0 {
		threshold = parallel.DefaultThreshold
	}

	X := mat.NewDense(n, p.NFeatures, nil)
	err := parallel.ForEachRange(n, threshold, func(start, end int) error {
		for i := start; i < end; i++ {
			row, err := p.TransformRecord(t.Rows[i])
			if err != nil {
				return errors.Wrapf(err, "row %d", i)
			}
			X.SetRow(i, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return X, nil
}

// FitTransform fits on t and transforms it.
func (p *Preprocessor) FitTransform(t *dataset.Table) (*mat.Dense, error) {
	if err := p.Fit(t); err != nil {
		return nil, err
	}
	return p.Transform(t)
}

// FeatureNames returns the output column names, e.g. "Rainfall_mm",
// "Soil_Type_Sandy", "Fertilizer_Used".
func (p *Preprocessor) FeatureNames() []string {
	return append([]string(nil), p.Names...)
}

// Width returns the feature vector width, zero before Fit.
func (p *Preprocessor) Width() int {
	return p.NFeatures
}

func (p *Preprocessor) String() string {
	return fmt.Sprintf("Preprocessor(state=%s, width=%d, stages=[%v, %v, %v])",
		p.State, p.NFeatures, p.Scaler, p.Encoder, p.Passthrough)
}
