package dataset

import (
	"math"
	"math/rand"

	"github.com/YuminosukeSato/cropyield/pkg/errors"
)

// TrainTestSplit shuffles the rows of t with a seeded source and splits off
// round(n*testRatio) rows as the test table. The same seed always yields
// the same split. Both tables get at least one row.
func TrainTestSplit(t *Table, testRatio float64, seed int64) (train, test *Table, err error) {
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, errors.NewValidationError("test_ratio", "must be in (0, 1)", testRatio)
	}
	n := t.Len()
	if n < 2 {
		return nil, nil, errors.Wrapf(errors.ErrEmptyData, "need at least 2 rows to split, got %d", n)
	}

	nTest := int(math.Round(float64(n) * testRatio))
	if nTest < 1 {
		nTest = 1
	}
	if nTest > n-1 {
		nTest = n - 1
	}

	indices := rand.New(rand.NewSource(seed)).Perm(n)
	testRows := make([]Record, 0, nTest)
	trainRows := make([]Record, 0, n-nTest)
	for i, idx := range indices {
		if i < nTest {
			testRows = append(testRows, t.Rows[idx])
		} else {
			trainRows = append(trainRows, t.Rows[idx])
		}
	}
	return t.WithRows(trainRows), t.WithRows(testRows), nil
}
