package artifact

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/cropyield/core/model"
	"github.com/YuminosukeSato/cropyield/linear"
	"github.com/YuminosukeSato/cropyield/pkg/errors"
	"github.com/YuminosukeSato/cropyield/preprocessing"
)

// Paths is the on-disk layout of one training run.
type Paths struct {
	Preprocessor string
	TrainMatrix  string
	TestMatrix   string
	Model        string
	Weights      string
	Plot         string
}

// DefaultPaths returns the standard layout under dir.
func DefaultPaths(dir string) Paths {
	join := func(sub, file string) string {
		return filepath.Join(dir, sub, file)
	}
	return Paths{
		Preprocessor: join("data_transformation", "preprocessor.gob"),
		TrainMatrix:  join("data_transformation", "train.parquet"),
		TestMatrix:   join("data_transformation", "test.parquet"),
		Model:        join("model_trainer", "model.gob"),
		Weights:      join("model_trainer", "weights.json"),
		Plot:         join("model_trainer", "test_predictions.png"),
	}
}

// SavePreprocessor writes a fitted preprocessor.
func (s *Store) SavePreprocessor(path string, p *preprocessing.Preprocessor) error {
	if !p.IsFitted() {
		return errors.NewArtifactIOError("Store.SavePreprocessor", "preprocessor is not fitted", nil)
	}
	return s.Save(path, KindPreprocessor, p)
}

// LoadPreprocessor reads a preprocessor and attaches the logger the store
// was created with.
func (s *Store) LoadPreprocessor(path string) (*preprocessing.Preprocessor, error) {
	var p preprocessing.Preprocessor
	if err := s.Load(path, KindPreprocessor, &p); err != nil {
		return nil, err
	}
	if !p.IsFitted() || p.NFeatures == 0 || p.NFeatures != len(p.Names) {
		return nil, errors.NewArtifactIOError("Store.LoadPreprocessor", s.Path(path)+": preprocessor state is incomplete", nil)
	}
	p.SetLogger(s.base)
	return &p, nil
}

// SaveModel writes a fitted linear model.
func (s *Store) SaveModel(path string, m *linear.LinearRegression) error {
	if !m.IsFitted() {
		return errors.NewArtifactIOError("Store.SaveModel", "model is not fitted", nil)
	}
	return s.Save(path, KindModel, m)
}

// LoadModel reads a linear model.
func (s *Store) LoadModel(path string) (*linear.LinearRegression, error) {
	var m linear.LinearRegression
	if err := s.Load(path, KindModel, &m); err != nil {
		return nil, err
	}
	if !m.IsFitted() || m.NFeaturesIn == 0 || len(m.Coef) != m.NFeaturesIn {
		return nil, errors.NewArtifactIOError("Store.LoadModel", s.Path(path)+": model state is incomplete", nil)
	}
	return &m, nil
}

// SaveWeights writes the human readable coefficients as JSON.
func (s *Store) SaveWeights(path string, mw *model.ModelWeights) error {
	path = s.Path(path)
	data, err := mw.ToJSON()
	if err != nil {
		return errors.NewArtifactIOError("Store.SaveWeights", "encode weights", err)
	}
	err = writeFileAtomic(path, func(w io.Writer) error {
		_, err := w.Write(append(data, '\n'))
		return err
	})
	if err != nil {
		return errors.NewArtifactIOError("Store.SaveWeights", path, err)
	}
	return nil
}

// LoadWeights reads and validates a weights file.
func (s *Store) LoadWeights(path string) (*model.ModelWeights, error) {
	path = s.Path(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewArtifactIOError("Store.LoadWeights", path, err)
	}
	var mw model.ModelWeights
	if err := json.Unmarshal(data, &mw); err != nil {
		return nil, errors.NewArtifactIOError("Store.LoadWeights", path+": invalid JSON", err)
	}
	if err := mw.Validate(); err != nil {
		return nil, errors.NewArtifactIOError("Store.LoadWeights", path, err)
	}
	return &mw, nil
}
