package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/cropyield/pkg/errors"
)

const validYAML = `
numerical_columns:
  - Rainfall_mm
  - Temperature_Celsius
  - Days_to_Harvest
ohe_columns:
  - Region
  - Soil_Type
  - Crop
  - Weather_Condition
target_column: Yield_tons_per_hectare
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	wantNum := []string{"Rainfall_mm", "Temperature_Celsius", "Days_to_Harvest"}
	got := s.NumericColumns()
	if strings.Join(got, ",") != strings.Join(wantNum, ",") {
		t.Errorf("NumericColumns = %v, want %v", got, wantNum)
	}
	if len(s.CategoricalColumns()) != 4 || s.CategoricalColumns()[0] != "Region" {
		t.Errorf("CategoricalColumns = %v", s.CategoricalColumns())
	}
	if s.TargetColumn() != "Yield_tons_per_hectare" {
		t.Errorf("TargetColumn = %q", s.TargetColumn())
	}
	if !s.Declared("Crop") || !s.Declared("Yield_tons_per_hectare") || s.Declared("Fertilizer_Used") {
		t.Error("Declared reports wrong membership")
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	s, err := New([]string{"a"}, []string{"b"}, "y")
	if err != nil {
		t.Fatal(err)
	}
	s.NumericColumns()[0] = "mutated"
	s.CategoricalColumns()[0] = "mutated"
	if s.NumericColumns()[0] != "a" || s.CategoricalColumns()[0] != "b" {
		t.Error("schema was mutated through an accessor")
	}
}

func TestNewCopiesInput(t *testing.T) {
	num := []string{"a"}
	s, err := New(num, nil, "y")
	if err != nil {
		t.Fatal(err)
	}
	num[0] = "mutated"
	if s.NumericColumns()[0] != "a" {
		t.Error("schema aliases the caller's slice")
	}
}

func TestParseRejections(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"invalid yaml", "numerical_columns: [a\n", "invalid YAML"},
		{"missing target", "numerical_columns: [a]\nohe_columns: [b]\n", "target_column is required"},
		{"empty target", "numerical_columns: [a]\nohe_columns: [b]\ntarget_column: ''\n", "target_column is required"},
		{"missing numeric key", "ohe_columns: [b]\ntarget_column: y\n", "numerical_columns"},
		{"missing ohe key", "numerical_columns: [a]\ntarget_column: y\n", "ohe_columns"},
		{"overlap", "numerical_columns: [a, b]\nohe_columns: [b]\ntarget_column: y\n", "appears in both"},
		{"duplicate", "numerical_columns: [a, a]\nohe_columns: []\ntarget_column: y\n", "listed twice"},
		{"target in list", "numerical_columns: [y]\nohe_columns: []\ntarget_column: y\n", "must not appear"},
		{"blank name", "numerical_columns: ['']\nohe_columns: []\ntarget_column: y\n", "empty column name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.ErrSchema) {
				t.Errorf("error %v is not a schema error", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestParseEmptyListsAllowed(t *testing.T) {
	s, err := Parse([]byte("numerical_columns: []\nohe_columns: []\ntarget_column: y\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(s.NumericColumns()) != 0 || len(s.CategoricalColumns()) != 0 {
		t.Error("expected empty lists")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, errors.ErrSchema) {
		t.Errorf("Load of missing file = %v, want schema error", err)
	}
}
