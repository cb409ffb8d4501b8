// Package schema loads the declarative column schema that drives the
// preprocessor: which columns are standardized, which are one-hot encoded,
// and which one is the regression target.
//
// The YAML source looks like:
//
//	numerical_columns: [Rainfall_mm, Temperature_Celsius, Days_to_Harvest]
//	ohe_columns: [Region, Soil_Type, Crop, Weather_Condition]
//	target_column: Yield_tons_per_hectare
//
// A Schema is immutable once built. Accessors return copies.
package schema

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/cropyield/pkg/errors"
)

// Schema is the validated column schema.
type Schema struct {
	numeric     []string
	categorical []string
	target      string
}

type document struct {
	NumericalColumns *[]string `yaml:"numerical_columns"`
	OHEColumns       *[]string `yaml:"ohe_columns"`
	TargetColumn     string    `yaml:"target_column"`
}

// Load reads and validates the schema file at path.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewSchemaError("schema.Load", "cannot read "+path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "schema file %s", path)
	}
	return s, nil
}

// Parse validates a schema from YAML bytes. The numerical_columns,
// ohe_columns and target_column keys are required; the lists may be empty.
func Parse(data []byte) (*Schema, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewSchemaError("schema.Parse", "invalid YAML", err)
	}
	if doc.NumericalColumns == nil {
		return nil, errors.NewSchemaError("schema.Parse", "missing key numerical_columns", nil)
	}
	if doc.OHEColumns == nil {
		return nil, errors.NewSchemaError("schema.Parse", "missing key ohe_columns", nil)
	}
	return New(*doc.NumericalColumns, *doc.OHEColumns, doc.TargetColumn)
}

// New builds a schema programmatically with the same validation as Parse.
func New(numeric, categorical []string, target string) (*Schema, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.NewSchemaError("schema.New", "target_column is required", nil)
	}

	seen := make(map[string]string, len(numeric)+len(categorical))
	check := func(list string, cols []string) error {
		for _, c := range cols {
			if strings.TrimSpace(c) == "" {
				return errors.NewSchemaError("schema.New", list+" contains an empty column name", nil)
			}
			if c == target {
				return errors.NewSchemaError("schema.New",
					fmt.Sprintf("target column %q must not appear in %s", c, list), nil)
			}
			if prev, dup := seen[c]; dup {
				if prev == list {
					return errors.NewSchemaError("schema.New",
						fmt.Sprintf("column %q is listed twice in %s", c, list), nil)
				}
				return errors.NewSchemaError("schema.New",
					fmt.Sprintf("column %q appears in both %s and %s", c, prev, list), nil)
			}
			seen[c] = list
		}
		return nil
	}
	if err := check("numerical_columns", numeric); err != nil {
		return nil, err
	}
	if err := check("ohe_columns", categorical); err != nil {
		return nil, err
	}

	return &Schema{
		numeric:     append([]string(nil), numeric...),
		categorical: append([]string(nil), categorical...),
		target:      target,
	}, nil
}

// NumericColumns returns the standardized columns in declared order.
func (s *Schema) NumericColumns() []string {
	return append([]string(nil), s.numeric...)
}

// CategoricalColumns returns the one-hot encoded columns in declared order.
func (s *Schema) CategoricalColumns() []string {
	return append([]string(nil), s.categorical...)
}

// TargetColumn returns the name of the regression target.
func (s *Schema) TargetColumn() string {
	return s.target
}

// Declared reports whether col is a numeric, categorical or target column.
func (s *Schema) Declared(col string) bool {
	if col == s.target {
		return true
	}
	for _, c := range s.numeric {
		if c == col {
			return true
		}
	}
	for _, c := range s.categorical {
		if c == col {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer for log lines.
func (s *Schema) String() string {
	return fmt.Sprintf("Schema(numeric=%v, categorical=%v, target=%s)", s.numeric, s.categorical, s.target)
}
