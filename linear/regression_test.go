package linear

import (
	"bytes"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cropyield/core/model"
	"github.com/YuminosukeSato/cropyield/pkg/errors"
)

const tol = 1e-8

func TestLinearRegressionRecoversCoefficients(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
	}{
		{"sequential", 1 << 20},
		{"parallel", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// y = 2 + 3*x0 - 1.5*x1
			X := mat.NewDense(6, 2, []float64{
				1, 0,
				2, 1,
				3, 5,
				4, 2,
				5, 3,
				6, 8,
			})
			y := mat.NewDense(6, 1, nil)
			for i := 0; i < 6; i++ {
				y.Set(i, 0, 2+3*X.At(i, 0)-1.5*X.At(i, 1))
			}

			lr := NewLinearRegression(WithParallelThreshold(tt.threshold))
			if err := lr.Fit(X, y); err != nil {
				t.Fatalf("Fit() error = %v", err)
			}
			if lr.Solver != SolverQR {
				t.Errorf("Solver = %q, want %q", lr.Solver, SolverQR)
			}
			want := []float64{3, -1.5}
			for j, w := range lr.Weights() {
				if math.Abs(w-want[j]) > tol {
					t.Errorf("coef[%d] = %v, want %v", j, w, want[j])
				}
			}
			if math.Abs(lr.Intercept()-2) > tol {
				t.Errorf("Intercept() = %v, want 2", lr.Intercept())
			}
			if lr.NFeatures() != 2 {
				t.Errorf("NFeatures() = %d, want 2", lr.NFeatures())
			}

			score, err := lr.Score(X, y)
			if err != nil {
				t.Fatalf("Score() error = %v", err)
			}
			if math.Abs(score-1) > tol {
				t.Errorf("Score() = %v, want 1", score)
			}
		})
	}
}

func TestLinearRegressionWithoutIntercept(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{2, 4, 6, 8})

	lr := NewLinearRegression(WithFitIntercept(false))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if math.Abs(lr.Coef[0]-2) > tol || lr.Bias != 0 {
		t.Errorf("got coef=%v bias=%v, want coef=[2] bias=0", lr.Coef, lr.Bias)
	}
}

func TestLinearRegressionRankDeficient(t *testing.T) {
	// 2列目は1列目の複製、3列目は定数
	X := mat.NewDense(5, 3, []float64{
		1, 1, 1,
		2, 2, 1,
		3, 3, 1,
		4, 4, 1,
		5, 5, 1,
	})
	y := mat.NewDense(5, 1, []float64{3, 5, 7, 9, 11})

	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if lr.Solver != SolverSVD {
		t.Errorf("Solver = %q, want %q", lr.Solver, SolverSVD)
	}
	if lr.Rank != 2 {
		t.Errorf("Rank = %d, want 2", lr.Rank)
	}
	// 最小ノルム解でも予測値は一致する
	for i := 0; i < 5; i++ {
		got, err := lr.PredictRow(mat.Row(nil, i, X))
		if err != nil {
			t.Fatalf("PredictRow() error = %v", err)
		}
		if math.Abs(got-y.At(i, 0)) > 1e-6 {
			t.Errorf("row %d: got %v, want %v", i, got, y.At(i, 0))
		}
	}
	// 複製列には重みが均等に配分される
	if math.Abs(lr.Coef[0]-lr.Coef[1]) > 1e-6 {
		t.Errorf("duplicated columns got different weights: %v", lr.Coef)
	}
}

func TestLinearRegressionUnderdetermined(t *testing.T) {
	X := mat.NewDense(2, 3, []float64{
		1, 0, 2,
		0, 1, 1,
	})
	y := mat.NewDense(2, 1, []float64{4, 1})

	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if lr.Solver != SolverSVD {
		t.Errorf("Solver = %q, want %q", lr.Solver, SolverSVD)
	}
	pred, err := lr.Predict(X)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if math.Abs(pred.At(i, 0)-y.At(i, 0)) > 1e-6 {
			t.Errorf("row %d: got %v, want %v", i, pred.At(i, 0), y.At(i, 0))
		}
	}
}

func TestLinearRegressionFitErrors(t *testing.T) {
	tests := []struct {
		name  string
		X     mat.Matrix
		y     mat.Matrix
		opts  []Option
		check func(error) bool
	}{
		{
			name:  "row mismatch",
			X:     mat.NewDense(3, 1, []float64{1, 2, 3}),
			y:     mat.NewDense(2, 1, []float64{1, 2}),
			check: func(err error) bool { var d *errors.DimensionError; return errors.As(err, &d) },
		},
		{
			name:  "y not a column",
			X:     mat.NewDense(2, 1, []float64{1, 2}),
			y:     mat.NewDense(2, 2, []float64{1, 2, 3, 4}),
			check: func(err error) bool { var v *errors.ValueError; return errors.As(err, &v) },
		},
		{
			name:  "NaN in X",
			X:     mat.NewDense(2, 1, []float64{1, math.NaN()}),
			y:     mat.NewDense(2, 1, []float64{1, 2}),
			check: func(err error) bool { var n *errors.NumericalInstabilityError; return errors.As(err, &n) },
		},
		{
			name:  "all zero design without intercept",
			X:     mat.NewDense(3, 1, []float64{0, 0, 0}),
			y:     mat.NewDense(3, 1, []float64{1, 2, 3}),
			opts:  []Option{WithFitIntercept(false)},
			check: func(err error) bool { return errors.Is(err, errors.ErrSingularMatrix) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := NewLinearRegression(tt.opts...)
			err := lr.Fit(tt.X, tt.y)
			if err == nil {
				t.Fatal("Fit() expected error")
			}
			if !tt.check(err) {
				t.Errorf("unexpected error type: %v", err)
			}
			if lr.IsFitted() {
				t.Error("model marked fitted after failed Fit")
			}
		})
	}
}

func TestLinearRegressionNotFitted(t *testing.T) {
	lr := NewLinearRegression()
	var nf *errors.NotFittedError
	if _, err := lr.PredictRow([]float64{1}); !errors.As(err, &nf) {
		t.Errorf("PredictRow() error = %v, want NotFittedError", err)
	}
	if _, err := lr.Predict(mat.NewDense(1, 1, []float64{1})); !errors.As(err, &nf) {
		t.Errorf("Predict() error = %v, want NotFittedError", err)
	}
	if _, err := lr.ExportWeights(nil); !errors.As(err, &nf) {
		t.Errorf("ExportWeights() error = %v, want NotFittedError", err)
	}
}

func TestLinearRegressionPredictWidth(t *testing.T) {
	X, y := createBenchmarkData(50, 3)
	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	var d *errors.DimensionError
	if _, err := lr.PredictRow([]float64{1, 2}); !errors.As(err, &d) {
		t.Errorf("PredictRow() error = %v, want DimensionError", err)
	}
	if _, err := lr.Predict(mat.NewDense(2, 4, nil)); !errors.As(err, &d) {
		t.Errorf("Predict() error = %v, want DimensionError", err)
	}
}

func TestLinearRegressionPredictMatchesPredictRow(t *testing.T) {
	X, y := createBenchmarkData(200, 5)
	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	pred, err := lr.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 200; i++ {
		got, err := lr.PredictRow(mat.Row(nil, i, X))
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got-pred.At(i, 0)) > 1e-12 {
			t.Fatalf("row %d: PredictRow=%v Predict=%v", i, got, pred.At(i, 0))
		}
	}
	// 真の重みは 0.5(j+1)
	for j, w := range lr.Coef {
		if math.Abs(w-0.5*float64(j+1)) > 0.05 {
			t.Errorf("coef[%d] = %v, want ≈ %v", j, w, 0.5*float64(j+1))
		}
	}
}

func TestLinearRegressionWeightsRoundTrip(t *testing.T) {
	X, y := createBenchmarkData(100, 3)
	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	mw, err := lr.ExportWeights([]string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("ExportWeights() error = %v", err)
	}
	data, err := mw.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	var decoded model.ModelWeights
	if err := decoded.FromJSON(data); err != nil {
		t.Fatal(err)
	}

	restored := NewLinearRegression()
	if err := restored.ImportWeights(&decoded); err != nil {
		t.Fatalf("ImportWeights() error = %v", err)
	}
	for i := 0; i < 100; i++ {
		row := mat.Row(nil, i, X)
		a, _ := lr.PredictRow(row)
		b, _ := restored.PredictRow(row)
		if a != b {
			t.Fatalf("row %d: %v != %v", i, a, b)
		}
	}

	decoded.Coefficients[0] += 1
	if err := NewLinearRegression().ImportWeights(&decoded); err == nil {
		t.Error("ImportWeights() accepted weights with a stale checksum")
	}

	if _, err := lr.ExportWeights([]string{"only-one"}); err == nil {
		t.Error("ExportWeights() accepted a wrong number of feature names")
	}
}

func TestLinearRegressionGobRoundTrip(t *testing.T) {
	X, y := createBenchmarkData(100, 4)
	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := model.Encode(&buf, lr); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	var loaded LinearRegression
	if err := model.Decode(&buf, &loaded); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !loaded.IsFitted() {
		t.Fatal("decoded model is not fitted")
	}
	row := mat.Row(nil, 7, X)
	a, _ := lr.PredictRow(row)
	b, err := loaded.PredictRow(row)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("decoded prediction %v != %v", b, a)
	}
}
