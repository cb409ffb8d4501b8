package training

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cropyield/artifact"
	"github.com/YuminosukeSato/cropyield/config"
	"github.com/YuminosukeSato/cropyield/dataset"
	"github.com/YuminosukeSato/cropyield/features"
	"github.com/YuminosukeSato/cropyield/linear"
	"github.com/YuminosukeSato/cropyield/pkg/errors"
	"github.com/YuminosukeSato/cropyield/pkg/log"
	"github.com/YuminosukeSato/cropyield/preprocessing"
	"github.com/YuminosukeSato/cropyield/schema"
)

// Result describes one completed training run.
type Result struct {
	RunID        string
	Features     []string
	TrainMetrics Metrics
	TestMetrics  Metrics
	Paths        artifact.Paths
}

// Job is the batch pipeline: ingest, engineer, transform, fit, evaluate and
// persist. It is sequential apart from the row-parallel transform.
type Job struct {
	cfg    config.Config
	schema *schema.Schema
	store  *artifact.Store
	paths  artifact.Paths
	logger log.Logger
}

// NewJob loads the schema named by cfg and prepares the artifact store.
func NewJob(cfg config.Config, logger log.Logger) (*Job, error) {
	s, err := schema.Load(cfg.SchemaPath)
	if err != nil {
		return nil, err
	}
	return NewJobWithSchema(cfg, s, logger), nil
}

// NewJobWithSchema builds a job around an already loaded schema.
func NewJobWithSchema(cfg config.Config, s *schema.Schema, logger log.Logger) *Job {
	logger = log.OrNop(logger)
	return &Job{
		cfg:    cfg,
		schema: s,
		store:  artifact.NewStore("", logger),
		paths:  artifact.DefaultPaths(cfg.Artifacts.Dir),
		logger: logger,
	}
}

// Paths returns where the job writes its artifacts.
func (j *Job) Paths() artifact.Paths {
	return j.paths
}

// Run executes the job. The context is checked between stages; a
// cancelled run returns an error matching ctx.Err() and leaves any
// artifacts already written in place.
func (j *Job) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	start := time.Now()
	logger := j.logger.With(log.RunIDKey, runID)
	j.store.Metadata["run_id"] = runID
	j.store.Metadata["schema"] = j.schema.String()

	logger.Info("Training job started",
		log.PhaseKey, log.PhaseIngestion,
		"schema", j.schema.String(),
		"artifacts", j.cfg.Artifacts.Dir,
	)

	// ingestion
	if j.cfg.Data.RawPath != "" {
		if err := j.ingest(logger); err != nil {
			return nil, err
		}
	}
	if err := checkpoint(ctx, "ingestion"); err != nil {
		return nil, err
	}
	trainRaw, err := readTable(j.cfg.Data.TrainPath)
	if err != nil {
		return nil, err
	}
	testRaw, err := readTable(j.cfg.Data.TestPath)
	if err != nil {
		return nil, err
	}

	// feature engineering
	engineer := features.NewEngineer(j.cfg.Features.FlagColumns, j.schema.TargetColumn())
	trainTbl, err := engineer.Table(trainRaw)
	if err != nil {
		return nil, errors.Wrap(err, "train table")
	}
	testTbl, err := engineer.Table(testRaw)
	if err != nil {
		return nil, errors.Wrap(err, "test table")
	}
	yTrain, err := j.target(trainTbl)
	if err != nil {
		return nil, err
	}
	yTest, err := j.target(testTbl)
	if err != nil {
		return nil, err
	}
	if err := checkpoint(ctx, "feature engineering"); err != nil {
		return nil, err
	}

	// preprocessing
	pre := preprocessing.NewPreprocessor(j.schema,
		preprocessing.WithLogger(logger),
		preprocessing.WithParallelThreshold(j.cfg.Training.ParallelThreshold),
	)
	XTrain, err := pre.FitTransform(trainTbl)
	if err != nil {
		return nil, errors.Wrap(err, "train table")
	}
	XTest, err := pre.Transform(testTbl)
	if err != nil {
		return nil, errors.Wrap(err, "test table")
	}
	if err := j.store.SaveMatrix(j.paths.TrainMatrix, XTrain, yTrain); err != nil {
		return nil, err
	}
	if err := j.store.SaveMatrix(j.paths.TestMatrix, XTest, yTest); err != nil {
		return nil, err
	}
	if err := j.store.SavePreprocessor(j.paths.Preprocessor, pre); err != nil {
		return nil, err
	}
	logger.Info("Data transformation complete",
		log.PhaseKey, log.PhasePreprocessing,
		"train_rows", len(yTrain),
		"test_rows", len(yTest),
		log.FeaturesKey, pre.Width(),
	)
	if err := checkpoint(ctx, "preprocessing"); err != nil {
		return nil, err
	}

	// training
	opts := []linear.Option{linear.WithParallelThreshold(j.cfg.Training.ParallelThreshold)}
	if fi := j.cfg.Training.FitIntercept; fi != nil {
		opts = append(opts, linear.WithFitIntercept(*fi))
	}
	trainer := NewTrainer(logger, opts...)
	m, err := trainer.Fit(XTrain, yTrain)
	if err != nil {
		return nil, err
	}
	if err := checkpoint(ctx, "training"); err != nil {
		return nil, err
	}

	// evaluation
	trainMetrics, err := trainer.Evaluate(m, XTrain, yTrain)
	if err != nil {
		return nil, err
	}
	testMetrics, err := trainer.Evaluate(m, XTest, yTest)
	if err != nil {
		return nil, err
	}
	for _, split := range []struct {
		name string
		m    Metrics
	}{{"train", trainMetrics}, {"test", testMetrics}} {
		logger.Info("Model evaluated",
			log.PhaseKey, log.PhaseEvaluation,
			log.OperationKey, log.OperationScore,
			"split", split.name,
			log.R2ScoreKey, split.m.R2,
			log.RMSEKey, split.m.RMSE,
			log.MAEKey, split.m.MAE,
		)
	}

	if err := j.saveModel(m, pre.FeatureNames(), runID, testMetrics); err != nil {
		return nil, err
	}
	if save := j.cfg.Training.SavePlot; save == nil || *save {
		if err := j.savePlot(m, XTest, yTest); err != nil {
			// diagnostics only
			logger.Warn("Prediction plot not written", log.ErrorKey, err)
		}
	}

	logger.Info("Training job finished",
		log.DurationMsKey, time.Since(start).Milliseconds(),
		log.ArtifactPathKey, j.paths.Model,
	)
	return &Result{
		RunID:        runID,
		Features:     pre.FeatureNames(),
		TrainMetrics: trainMetrics,
		TestMetrics:  testMetrics,
		Paths:        j.paths,
	}, nil
}

// ingest splits the raw CSV into the configured train and test files.
func (j *Job) ingest(logger log.Logger) error {
	raw, err := readTable(j.cfg.Data.RawPath)
	if err != nil {
		return err
	}
	train, test, err := dataset.TrainTestSplit(raw, j.cfg.Data.TestRatio, j.cfg.Data.Seed)
	if err != nil {
		return errors.NewTrainingError("Job.ingest", "split raw data", err)
	}
	if err := dataset.WriteCSV(j.cfg.Data.TrainPath, train); err != nil {
		return errors.NewArtifactIOError("Job.ingest", j.cfg.Data.TrainPath, err)
	}
	if err := dataset.WriteCSV(j.cfg.Data.TestPath, test); err != nil {
		return errors.NewArtifactIOError("Job.ingest", j.cfg.Data.TestPath, err)
	}
	logger.Info("Data ingestion complete",
		log.PhaseKey, log.PhaseIngestion,
		log.SamplesKey, raw.Len(),
		"train_rows", train.Len(),
		"test_rows", test.Len(),
		"seed", j.cfg.Data.Seed,
	)
	return nil
}

func (j *Job) target(t *dataset.Table) ([]float64, error) {
	col := j.schema.TargetColumn()
	if !t.HasColumn(col) {
		return nil, errors.NewTrainingError("Job.target", "target column "+strconv.Quote(col)+" not in table", errors.ErrMissingColumn)
	}
	y, err := t.Floats(col)
	if err != nil {
		return nil, errors.NewTrainingError("Job.target", "", err)
	}
	return y, nil
}

func (j *Job) saveModel(m *linear.LinearRegression, names []string, runID string, test Metrics) error {
	if err := j.store.SaveModel(j.paths.Model, m); err != nil {
		return err
	}
	mw, err := m.ExportWeights(names)
	if err != nil {
		return errors.NewTrainingError("Job.saveModel", "export weights", err)
	}
	mw.Metadata["run_id"] = runID
	mw.Metadata["test_r2"] = strconv.FormatFloat(test.R2, 'g', -1, 64)
	mw.Metadata["test_rmse"] = strconv.FormatFloat(test.RMSE, 'g', -1, 64)
	return j.store.SaveWeights(j.paths.Weights, mw)
}

func (j *Job) savePlot(m *linear.LinearRegression, X *mat.Dense, y []float64) error {
	pred, err := Predictions(m, X)
	if err != nil {
		return err
	}
	return j.store.SavePredictionPlot(j.paths.Plot, y, pred)
}

func readTable(path string) (*dataset.Table, error) {
	t, err := dataset.ReadCSV(path)
	if err != nil {
		return nil, errors.NewArtifactIOError("readTable", path, err)
	}
	return t, nil
}

func checkpoint(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "training interrupted after %s", stage)
	}
	return nil
}
