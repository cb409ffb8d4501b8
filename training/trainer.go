// Package training fits and evaluates the yield model and runs the batch
// job that produces every serving artifact.
package training

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cropyield/core/model"
	"github.com/YuminosukeSato/cropyield/linear"
	"github.com/YuminosukeSato/cropyield/metrics"
	"github.com/YuminosukeSato/cropyield/pkg/errors"
	"github.com/YuminosukeSato/cropyield/pkg/log"
)

// Metrics summarizes model quality on one table.
type Metrics struct {
	R2   float64 `json:"r2"`
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
}

// Trainer fits linear models. It has no persistence side effects.
type Trainer struct {
	options []linear.Option
	logger  log.Logger
}

// NewTrainer returns a trainer that builds models with opts.
func NewTrainer(logger log.Logger, opts ...linear.Option) *Trainer {
	return &Trainer{
		options: opts,
		logger:  log.OrNop(logger).With(log.ComponentKey, "training"),
	}
}

// Fit trains a new model on X and y. An empty X, mismatched row counts or a
// failed solve is returned as a training error wrapping the cause.
func (t *Trainer) Fit(X mat.Matrix, y []float64) (*linear.LinearRegression, error) {
	start := time.Now()
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewTrainingError("Trainer.Fit", "feature matrix is empty", errors.ErrEmptyData)
	}
	if len(y) != r {
		return nil, errors.NewTrainingError("Trainer.Fit", "target length differs from row count",
			errors.NewDimensionError("Trainer.Fit", r, len(y), 0))
	}

	m := linear.NewLinearRegression(t.options...)
	if err := m.Fit(X, mat.NewDense(r, 1, append([]float64(nil), y...))); err != nil {
		return nil, errors.NewTrainingError("Trainer.Fit", "", err)
	}

	t.logger.Info("Model fitted",
		log.OperationKey, log.OperationFit,
		log.ModelNameKey, linear.ModelType,
		log.SamplesKey, r,
		log.FeaturesKey, c,
		"solver", m.Solver,
		"rank", m.Rank,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return m, nil
}

// Evaluate scores m on X and y.
func (t *Trainer) Evaluate(m model.LinearModel, X mat.Matrix, y []float64) (Metrics, error) {
	r, _ := X.Dims()
	if r == 0 {
		return Metrics{}, errors.NewTrainingError("Trainer.Evaluate", "feature matrix is empty", errors.ErrEmptyData)
	}
	if len(y) != r {
		return Metrics{}, errors.NewTrainingError("Trainer.Evaluate", "target length differs from row count",
			errors.NewDimensionError("Trainer.Evaluate", r, len(y), 0))
	}

	pred, err := m.Predict(X)
	if err != nil {
		return Metrics{}, errors.NewTrainingError("Trainer.Evaluate", "predict", err)
	}
	yPred, err := metrics.ColumnVector("Trainer.Evaluate", pred)
	if err != nil {
		return Metrics{}, errors.NewTrainingError("Trainer.Evaluate", "", err)
	}
	yTrue := mat.NewVecDense(r, append([]float64(nil), y...))

	var out Metrics
	if out.R2, err = metrics.R2Score(yTrue, yPred); err != nil {
		return Metrics{}, errors.NewTrainingError("Trainer.Evaluate", "r2", err)
	}
	if out.RMSE, err = metrics.RMSE(yTrue, yPred); err != nil {
		return Metrics{}, errors.NewTrainingError("Trainer.Evaluate", "rmse", err)
	}
	if out.MAE, err = metrics.MAE(yTrue, yPred); err != nil {
		return Metrics{}, errors.NewTrainingError("Trainer.Evaluate", "mae", err)
	}
	return out, nil
}

// Predictions returns m's predictions for X as a slice.
func Predictions(m model.Predictor, X mat.Matrix) ([]float64, error) {
	pred, err := m.Predict(X)
	if err != nil {
		return nil, err
	}
	return mat.Col(nil, 0, pred), nil
}
