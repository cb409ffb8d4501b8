package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		kind     string
		err      error
		wantMsg  string
		hasStack bool
	}{
		{
			name:     "with original error",
			op:       "Fit",
			kind:     "invalid input",
			err:      fmt.Errorf("test error"),
			wantMsg:  "cropyield: Fit: invalid input: test error",
			hasStack: true,
		},
		{
			name:     "without original error",
			op:       "Predict",
			kind:     "not fitted",
			err:      nil,
			wantMsg:  "cropyield: Predict: not fitted",
			hasStack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			// 基本的なエラーメッセージの確認
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			if tt.hasStack {
				formatted := fmt.Sprintf("%+v", err)
				if !strings.Contains(formatted, "errors_test.go") {
					t.Error("Expected stack trace to contain test file name")
				}
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 12, 10, 1)

	want := "cropyield: Predict: dimension mismatch on axis 1 (features). Expected 12, got 10"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("Preprocessor", "Transform")

	want := "cropyield: Preprocessor: this model is not fitted yet. Call Fit() before using Transform()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("Rainfall_mm", "must be >= 0", -3.5)

	want := "cropyield: validation failed for parameter 'Rainfall_mm': must be >= 0 (got: -3.5)"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestPipelineError_KindMatching(t *testing.T) {
	cause := NewTransformationError("Preprocessor.TransformRecord", "column \"Region\"", ErrMissingColumn)
	err := NewPredictionError("Pipeline.Predict", cause)

	// 外側の種類と内側の種類の両方に一致すること
	if !Is(err, ErrPrediction) {
		t.Error("Expected Is(err, ErrPrediction) to be true")
	}
	if !Is(err, ErrTransformation) {
		t.Error("Expected Is(err, ErrTransformation) to be true")
	}
	if !Is(err, ErrMissingColumn) {
		t.Error("Expected Is(err, ErrMissingColumn) to be true")
	}
	if Is(err, ErrFeatureEngineering) {
		t.Error("Expected Is(err, ErrFeatureEngineering) to be false")
	}

	kind, ok := KindOf(err)
	if !ok || kind != KindPrediction {
		t.Errorf("KindOf() = %v, %v, want %v", kind, ok, KindPrediction)
	}

	// 原因のメッセージが保持されていること
	if !strings.Contains(err.Error(), "Region") {
		t.Errorf("Expected message to keep the original cause, got %q", err.Error())
	}
}

func TestPipelineError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "message and cause",
			err:  NewSchemaError("schema.Load", "columns overlap", New("Crop")),
			want: "cropyield: schema.Load: schema: columns overlap: Crop",
		},
		{
			name: "message only",
			err:  NewTrainingError("Trainer.Fit", "X is empty", nil),
			want: "cropyield: Trainer.Fit: training: X is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.want)
			}
		})
	}
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d, got %d", "Predict", 10, 5)

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}

	expectedMsg := "in Predict: expected 10, got 5"
	if !strings.Contains(wrapped.Error(), expectedMsg) {
		t.Errorf("Expected wrapped error to contain %q", expectedMsg)
	}
}

func TestCheckNumericalStability(t *testing.T) {
	if err := CheckNumericalStability("ols_solve", []float64{1, 2, 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := CheckNumericalStability("ols_solve", []float64{1, math.NaN()})
	var instErr *NumericalInstabilityError
	if !As(err, &instErr) {
		t.Fatalf("Expected NumericalInstabilityError, got %v", err)
	}
	if instErr.Index != 1 {
		t.Errorf("Index = %d, want 1", instErr.Index)
	}
}
