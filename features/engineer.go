// Package features performs the row-level normalization that runs before
// the preprocessor, both at training time and at serving time.
package features

import (
	"fmt"
	"strings"

	"github.com/YuminosukeSato/cropyield/dataset"
	"github.com/YuminosukeSato/cropyield/pkg/errors"
)

// DefaultFlagColumns are the yes/no columns of the crop yield dataset.
var DefaultFlagColumns = []string{"Fertilizer_Used", "Irrigation_Used"}

// Engineer maps yes/no flag columns to 1/0 and clips the target at zero.
// It depends on no other row and holds no mutable state, so one value can
// be shared by concurrent callers.
type Engineer struct {
	FlagColumns  []string
	TargetColumn string
}

// NewEngineer returns an Engineer for the given flag columns and target.
func NewEngineer(flagColumns []string, target string) *Engineer {
	return &Engineer{
		FlagColumns:  append([]string(nil), flagColumns...),
		TargetColumn: target,
	}
}

// Record returns an engineered copy of r.
//
// Flag values accepted: "yes"/"no" and "true"/"false" in any case with
// surrounding whitespace, the strings "1"/"0", bool, and numeric 1 or 0.
// Flag columns absent from r stay absent. A present target is parsed as a
// number and clipped to max(0, y).
func (e *Engineer) Record(r dataset.Record) (dataset.Record, error) {
	out := r.Clone()
	for _, col := range e.FlagColumns {
		v, ok := r[col]
		if !ok {
			continue
		}
		flag, err := parseFlag(v)
		if err != nil {
			return nil, errors.NewFeatureEngineeringError("Engineer.Record",
				fmt.Sprintf("column %q", col), err)
		}
		out[col] = flag
	}

	if e.TargetColumn != "" {
		if v, ok := r[e.TargetColumn]; ok {
			y, err := dataset.ToFloat(v)
			if err != nil {
				return nil, errors.NewFeatureEngineeringError("Engineer.Record",
					fmt.Sprintf("target column %q", e.TargetColumn), err)
			}
			if y < 0 {
				y = 0
			}
			out[e.TargetColumn] = y
		}
	}
	return out, nil
}

// Table engineers every row of t. The error names the failing row.
func (e *Engineer) Table(t *dataset.Table) (*dataset.Table, error) {
	rows := make([]dataset.Record, len(t.Rows))
	for i, r := range t.Rows {
		er, err := e.Record(r)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		rows[i] = er
	}
	return t.WithRows(rows), nil
}

func parseFlag(v any) (float64, error) {
	switch x := v.(type) {
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "yes", "true", "1":
			return 1, nil
		case "no", "false", "0":
			return 0, nil
		}
		return 0, errors.NewValueError("parseFlag", fmt.Sprintf("%q is not a yes/no value", x))
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case float64, float32, int, int32, int64:
		f, err := dataset.ToFloat(x)
		if err != nil {
			return 0, err
		}
		if f == 1 || f == 0 {
			return f, nil
		}
		return 0, errors.NewValueError("parseFlag", fmt.Sprintf("%v is not 0 or 1", x))
	default:
		return 0, errors.NewValueError("parseFlag", fmt.Sprintf("unsupported flag value %v", v))
	}
}
