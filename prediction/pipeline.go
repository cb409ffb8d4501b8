// Package prediction serves single-record yield predictions from the
// artifacts written by a training run.
package prediction

import (
	"context"

	"github.com/YuminosukeSato/cropyield/artifact"
	"github.com/YuminosukeSato/cropyield/core/model"
	"github.com/YuminosukeSato/cropyield/dataset"
	"github.com/YuminosukeSato/cropyield/features"
	"github.com/YuminosukeSato/cropyield/pkg/errors"
	"github.com/YuminosukeSato/cropyield/pkg/log"
	"github.com/YuminosukeSato/cropyield/preprocessing"
)

// Pipeline replays the training-time feature path on one record and applies
// the fitted model. None of its parts is mutated after construction, so a
// Pipeline is safe for concurrent use without locking.
type Pipeline struct {
	engineer *features.Engineer
	pre      *preprocessing.Preprocessor
	model    model.LinearModel
	logger   log.Logger
}

// New assembles a pipeline from already loaded parts.
func New(engineer *features.Engineer, pre *preprocessing.Preprocessor, m model.LinearModel, logger log.Logger) *Pipeline {
	return &Pipeline{
		engineer: engineer,
		pre:      pre,
		model:    m,
		logger:   log.OrNop(logger).With(log.ComponentKey, "prediction"),
	}
}

// Load reads the preprocessor and the model once and builds a pipeline
// whose engineer maps flagColumns.
func Load(store *artifact.Store, paths artifact.Paths, flagColumns []string, logger log.Logger) (*Pipeline, error) {
	pre, err := store.LoadPreprocessor(paths.Preprocessor)
	if err != nil {
		return nil, err
	}
	m, err := store.LoadModel(paths.Model)
	if err != nil {
		return nil, err
	}
	engineer := features.NewEngineer(flagColumns, pre.TargetColumn)
	p := New(engineer, pre, m, logger)
	p.logger.Info("Prediction pipeline loaded",
		log.FeaturesKey, pre.Width(),
		log.ModelNameKey, m.String(),
		log.ArtifactPathKey, paths.Model,
	)
	return p, nil
}

// Predict returns the predicted yield for r.
//
// Every failure, including a panic, comes back as a prediction error whose
// cause chain holds the original feature engineering, transformation or
// artifact error.
func (p *Pipeline) Predict(r dataset.Record) (float64, error) {
	var y float64
	err := errors.SafeExecute("Pipeline.Predict", func() error {
		var err error
		y, err = p.predict(r)
		return err
	})
	if err != nil {
		return 0, errors.NewPredictionError("Pipeline.Predict", err)
	}
	if p.logger.Enabled(context.Background(), log.LevelDebug) {
		p.logger.Debug("Prediction served",
			log.OperationKey, log.OperationPredict,
			log.PredictionKey, y,
		)
	}
	return y, nil
}

func (p *Pipeline) predict(r dataset.Record) (float64, error) {
	engineered, err := p.engineer.Record(r)
	if err != nil {
		return 0, err
	}
	x, err := p.pre.TransformRecord(engineered)
	if err != nil {
		return 0, err
	}
	if want := p.model.NFeatures(); len(x) != want {
		return 0, errors.NewArtifactIOError("Pipeline.Predict", "preprocessor and model disagree on feature width",
			errors.NewDimensionError("Pipeline.Predict", want, len(x), 1))
	}
	return p.model.PredictRow(x)
}

// Width is the feature vector width produced by the preprocessor.
func (p *Pipeline) Width() int {
	return p.pre.Width()
}

// FeatureNames lists the model inputs in order.
func (p *Pipeline) FeatureNames() []string {
	return p.pre.FeatureNames()
}
