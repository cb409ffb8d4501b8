package artifact

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cropyield/dataset"
	"github.com/YuminosukeSato/cropyield/linear"
	"github.com/YuminosukeSato/cropyield/pkg/errors"
	"github.com/YuminosukeSato/cropyield/pkg/log"
	"github.com/YuminosukeSato/cropyield/preprocessing"
	"github.com/YuminosukeSato/cropyield/schema"
)

func trainingTable() *dataset.Table {
	return &dataset.Table{
		Columns: []string{"Region", "Rainfall_mm", "Irrigation_Used", "Yield"},
		Rows: []dataset.Record{
			{"Region": "North", "Rainfall_mm": 120.0, "Irrigation_Used": 1.0, "Yield": 4.5},
			{"Region": "South", "Rainfall_mm": 80.0, "Irrigation_Used": 0.0, "Yield": 3.1},
			{"Region": "East", "Rainfall_mm": 200.0, "Irrigation_Used": 1.0, "Yield": 6.0},
			{"Region": "North", "Rainfall_mm": 150.0, "Irrigation_Used": 0.0, "Yield": 4.2},
			{"Region": "South", "Rainfall_mm": 95.0, "Irrigation_Used": 1.0, "Yield": 3.9},
		},
	}
}

func fittedPreprocessor(t *testing.T) *preprocessing.Preprocessor {
	t.Helper()
	s, err := schema.New([]string{"Rainfall_mm"}, []string{"Region"}, "Yield")
	if err != nil {
		t.Fatal(err)
	}
	p := preprocessing.NewPreprocessor(s)
	if err := p.Fit(trainingTable()); err != nil {
		t.Fatal(err)
	}
	return p
}

func fittedModel(t *testing.T) *linear.LinearRegression {
	t.Helper()
	X := mat.NewDense(4, 2, []float64{1, 0, 2, 1, 3, 5, 4, 2})
	y := mat.NewDense(4, 1, []float64{1, 3, 0, 5})
	m := linear.NewLinearRegression()
	if err := m.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestPreprocessorRoundTrip(t *testing.T) {
	logger := log.NewTestLogger(log.LevelDebug)
	store := NewStore(t.TempDir(), logger)
	pre := fittedPreprocessor(t)

	path := DefaultPaths("").Preprocessor
	if err := store.SavePreprocessor(path, pre); err != nil {
		t.Fatalf("SavePreprocessor() error = %v", err)
	}
	if _, err := os.Stat(store.Path(path)); err != nil {
		t.Fatalf("artifact not written: %v", err)
	}
	if !logger.ContainsMessage("Artifact saved") {
		t.Error("save was not logged")
	}

	loaded, err := store.LoadPreprocessor(path)
	if err != nil {
		t.Fatalf("LoadPreprocessor() error = %v", err)
	}
	if loaded.Width() != pre.Width() {
		t.Fatalf("width = %d, want %d", loaded.Width(), pre.Width())
	}
	probe := dataset.Record{"Region": "West", "Rainfall_mm": 110.0, "Irrigation_Used": 1.0}
	for _, r := range append(trainingTable().Rows, probe) {
		a, err := pre.TransformRecord(r)
		if err != nil {
			t.Fatal(err)
		}
		b, err := loaded.TransformRecord(r)
		if err != nil {
			t.Fatal(err)
		}
		for j := range a {
			if a[j] != b[j] {
				t.Fatalf("record %v feature %d: %v != %v", r, j, a[j], b[j])
			}
		}
	}
}

func TestModelRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	m := fittedModel(t)
	if err := store.SaveModel("model_trainer/model.gob", m); err != nil {
		t.Fatalf("SaveModel() error = %v", err)
	}
	loaded, err := store.LoadModel("model_trainer/model.gob")
	if err != nil {
		t.Fatalf("LoadModel() error = %v", err)
	}
	x := []float64{2.5, 3}
	a, _ := m.PredictRow(x)
	b, err := loaded.PredictRow(x)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("loaded prediction %v != %v", b, a)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, nil)
	if err := store.SaveModel("model.gob", fittedModel(t)); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "corrupt.gob"), []byte("not a gob stream"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		load func() error
	}{
		{"missing file", func() error { _, err := store.LoadModel("nope.gob"); return err }},
		{"corrupt file", func() error { _, err := store.LoadModel("corrupt.gob"); return err }},
		{"wrong kind", func() error { _, err := store.LoadPreprocessor("model.gob"); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.ErrArtifactIO) {
				t.Errorf("error %v is not an artifact I/O error", err)
			}
		})
	}
}

func TestSaveUnfitted(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	if err := store.SaveModel("m.gob", linear.NewLinearRegression()); !errors.Is(err, errors.ErrArtifactIO) {
		t.Errorf("SaveModel(unfit) error = %v", err)
	}
	s, _ := schema.New([]string{"a"}, nil, "y")
	if err := store.SavePreprocessor("p.gob", preprocessing.NewPreprocessor(s)); !errors.Is(err, errors.ErrArtifactIO) {
		t.Errorf("SavePreprocessor(unfit) error = %v", err)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, nil)
	if err := store.SaveModel("nested/dir/model.gob", fittedModel(t)); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "nested", "dir"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "model.gob" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contents = %v, want [model.gob]", names)
	}
}

func TestMatrixRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	X := mat.NewDense(3, 2, []float64{0.5, -1, 1.25, 0, -2, 3})
	y := []float64{4.1, 3.3, 5.8}

	if err := store.SaveMatrix("train.parquet", X, y); err != nil {
		t.Fatalf("SaveMatrix() error = %v", err)
	}
	gotX, gotY, err := store.LoadMatrix("train.parquet")
	if err != nil {
		t.Fatalf("LoadMatrix() error = %v", err)
	}
	if !mat.Equal(X, gotX) {
		t.Errorf("X = %v, want %v", mat.Formatted(gotX), mat.Formatted(X))
	}
	for i := range y {
		if gotY[i] != y[i] {
			t.Errorf("y[%d] = %v, want %v", i, gotY[i], y[i])
		}
	}

	if err := store.SaveMatrix("bad.parquet", X, y[:2]); !errors.Is(err, errors.ErrArtifactIO) {
		t.Errorf("SaveMatrix(short y) error = %v", err)
	}
	if _, _, err := store.LoadMatrix("missing.parquet"); !errors.Is(err, errors.ErrArtifactIO) {
		t.Errorf("LoadMatrix(missing) error = %v", err)
	}
}

func TestWeightsRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	mw, err := fittedModel(t).ExportWeights([]string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SaveWeights("weights.json", mw); err != nil {
		t.Fatalf("SaveWeights() error = %v", err)
	}
	got, err := store.LoadWeights("weights.json")
	if err != nil {
		t.Fatalf("LoadWeights() error = %v", err)
	}
	if got.Checksum != mw.Checksum || got.Features[1] != "b" {
		t.Errorf("loaded weights = %+v", got)
	}
}

func TestSavePredictionPlot(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	if err := store.SavePredictionPlot("plot.png", []float64{1, 2, 3}, []float64{1.1, 1.9, 3.2}); err != nil {
		t.Fatalf("SavePredictionPlot() error = %v", err)
	}
	data, err := os.ReadFile(store.Path("plot.png"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("plot is not a PNG file")
	}
	if err := store.SavePredictionPlot("empty.png", nil, nil); err == nil {
		t.Error("expected error for empty input")
	}
}
