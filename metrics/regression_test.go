package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cropyield/pkg/errors"
)

type metricCase struct {
	name    string
	yTrue   *mat.VecDense
	yPred   *mat.VecDense
	want    float64
	wantErr bool
}

const tolerance = 1e-10

func runMetric(t *testing.T, name string, fn func(a, b *mat.VecDense) (float64, error), cases []metricCase) {
	t.Helper()
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fn(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Fatalf("%s() error = %v, wantErr %v", name, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if math.Abs(got-tt.want) > tolerance {
				t.Errorf("%s() = %v, want %v", name, got, tt.want)
			}
		})
	}
}

func vec(v ...float64) *mat.VecDense {
	return mat.NewVecDense(len(v), v)
}

func TestMSE(t *testing.T) {
	runMetric(t, "MSE", MSE, []metricCase{
		{name: "perfect prediction", yTrue: vec(1, 2, 3, 4, 5), yPred: vec(1, 2, 3, 4, 5), want: 0},
		// (0.25 * 4) / 4
		{name: "half unit errors", yTrue: vec(1, 2, 3, 4), yPred: vec(1.5, 2.5, 2.5, 3.5), want: 0.25},
		{name: "larger errors", yTrue: vec(10, 20, 30), yPred: vec(12, 18, 33), want: 17.0 / 3.0},
		{name: "dimension mismatch", yTrue: vec(1, 2, 3), yPred: vec(1, 2), wantErr: true},
		{name: "empty vectors", yTrue: &mat.VecDense{}, yPred: &mat.VecDense{}, wantErr: true},
	})
}

func TestRMSE(t *testing.T) {
	runMetric(t, "RMSE", RMSE, []metricCase{
		{name: "perfect prediction", yTrue: vec(1, 2, 3), yPred: vec(1, 2, 3), want: 0},
		{name: "constant offset", yTrue: vec(1, 2, 3, 4), yPred: vec(3, 4, 5, 6), want: 2},
		{name: "dimension mismatch", yTrue: vec(1, 2, 3), yPred: vec(1), wantErr: true},
	})
}

func TestMAE(t *testing.T) {
	runMetric(t, "MAE", MAE, []metricCase{
		{name: "perfect prediction", yTrue: vec(1, 2, 3), yPred: vec(1, 2, 3), want: 0},
		{name: "mixed signs", yTrue: vec(1, 2, 3, 4), yPred: vec(2, 1, 5, 4), want: 1},
		{name: "empty vectors", yTrue: &mat.VecDense{}, yPred: &mat.VecDense{}, wantErr: true},
	})
}

func TestR2Score(t *testing.T) {
	runMetric(t, "R2Score", R2Score, []metricCase{
		{name: "perfect prediction", yTrue: vec(1, 2, 3, 4), yPred: vec(1, 2, 3, 4), want: 1},
		{name: "mean prediction", yTrue: vec(1, 2, 3, 4, 5), yPred: vec(3, 3, 3, 3, 3), want: 0},
		// TSS = 10, RSS = 1
		{name: "partial fit", yTrue: vec(1, 2, 3, 4, 5), yPred: vec(1, 2, 3, 4, 6), want: 0.9},
		{name: "worse than mean", yTrue: vec(1, 2, 3), yPred: vec(3, 2, 1), want: -3},
		{name: "constant target exact", yTrue: vec(2, 2, 2), yPred: vec(2, 2, 2), want: 1},
		{name: "constant target miss", yTrue: vec(2, 2, 2), yPred: vec(1, 2, 3), want: 0},
		{name: "dimension mismatch", yTrue: vec(1, 2), yPred: vec(1, 2, 3), wantErr: true},
	})
}

func TestMSEMatrix(t *testing.T) {
	yTrue := mat.NewDense(3, 1, []float64{10, 20, 30})
	yPred := mat.NewDense(3, 1, []float64{12, 18, 33})
	got, err := MSEMatrix(yTrue, yPred)
	if err != nil {
		t.Fatalf("MSEMatrix() error = %v", err)
	}
	if math.Abs(got-17.0/3.0) > tolerance {
		t.Errorf("MSEMatrix() = %v, want %v", got, 17.0/3.0)
	}

	wide := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	if _, err := MSEMatrix(wide, wide); err == nil {
		t.Error("MSEMatrix() accepted a 2x2 matrix")
	}
}

func TestDimensionErrorType(t *testing.T) {
	_, err := MAE(vec(1, 2, 3), vec(1, 2))
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected DimensionError, got %T", err)
	}
	if dimErr.Expected != 3 || dimErr.Got != 2 {
		t.Errorf("DimensionError = %+v", dimErr)
	}
}

func BenchmarkMSE(b *testing.B) {
	n := 10000
	yTrue := mat.NewVecDense(n, nil)
	yPred := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		yTrue.SetVec(i, float64(i))
		yPred.SetVec(i, float64(i)+0.1)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = MSE(yTrue, yPred)
	}
}
