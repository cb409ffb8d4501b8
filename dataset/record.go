// Package dataset holds the raw tabular types that flow into the pipeline:
// a Record is one row keyed by column name and a Table is an ordered list of
// rows sharing the same columns.
package dataset

import (
	"math"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/cropyield/pkg/errors"
)

// Record is one raw row keyed by column name.
//
// Accepted value types are string, float64, float32, int, int32, int64 and
// bool. Pipeline stages never modify a Record they receive; they return a
// new one.
type Record map[string]any

// Clone returns a shallow copy of r. Values are immutable scalars so a
// shallow copy is a full copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Float returns the value of column as a float64. The column must be present
// and coercible, see ToFloat.
func (r Record) Float(column string) (float64, error) {
	v, ok := r[column]
	if !ok {
		return 0, errors.Wrapf(errors.ErrMissingColumn, "column %q", column)
	}
	f, err := ToFloat(v)
	if err != nil {
		return 0, errors.Wrapf(err, "column %q", column)
	}
	return f, nil
}

// String returns the categorical value of column, see ToCategory.
func (r Record) String(column string) (string, error) {
	v, ok := r[column]
	if !ok {
		return "", errors.Wrapf(errors.ErrMissingColumn, "column %q", column)
	}
	s, err := ToCategory(v)
	if err != nil {
		return "", errors.Wrapf(err, "column %q", column)
	}
	return s, nil
}

// ToFloat converts a raw value to float64. Strings are trimmed and parsed as
// decimal numbers; bool maps to 1 or 0. NaN and ±Inf are rejected.
func ToFloat(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, errors.NewValueError("ToFloat", "empty string is not a number")
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errors.NewValueError("ToFloat", "cannot parse "+strconv.Quote(x)+" as a number")
		}
		f = parsed
	case nil:
		return 0, errors.NewValueError("ToFloat", "value is null")
	default:
		return 0, errors.NewValueError("ToFloat", "unsupported value type")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.NewValueError("ToFloat", "value is not finite")
	}
	return f, nil
}

// ToCategory converts a raw value to the string used as a category label.
// Strings are used verbatim. Numbers use their shortest decimal form so that
// 3, int64(3) and "3" all name the same category.
func ToCategory(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case int:
		return strconv.Itoa(x), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case bool:
		return strconv.FormatBool(x), nil
	case nil:
		return "", errors.NewValueError("ToCategory", "value is null")
	default:
		return "", errors.NewValueError("ToCategory", "unsupported value type")
	}
}
