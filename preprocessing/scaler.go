package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/cropyield/core/model"
	"github.com/YuminosukeSato/cropyield/dataset"
	"github.com/YuminosukeSato/cropyield/pkg/errors"
)

// minScale 未満の標準偏差は 1 として扱う（定数列でのゼロ除算を避ける）
const minScale = 1e-8

// StandardScaler は指定した数値列を平均0、標準偏差1に変換するステージ
//
// 標準偏差は母標準偏差（ddof=0）で、scikit-learn の StandardScaler と同じ。
type StandardScaler struct {
	model.BaseEstimator

	// Columns は対象の列名（スキーマの宣言順）
	Columns []string

	// Mean は各列の平均値
	Mean []float64

	// Scale は各列の標準偏差
	Scale []float64
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler([]string{"Rainfall_mm", "Temperature_Celsius"})
//	err := scaler.Fit(table)
//	err = scaler.TransformRow(record, dst)
func NewStandardScaler(columns []string) *StandardScaler {
	return &StandardScaler{Columns: append([]string(nil), columns...)}
}

// Fit は訓練テーブルから統計情報（平均、標準偏差）を計算する
//
// 既存の統計情報は置き換えられる。失敗した場合は以前の状態のまま。
func (s *StandardScaler) Fit(t *dataset.Table) error {
	if t.Len() == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	mean := make([]float64, len(s.Columns))
	scale := make([]float64, len(s.Columns))
	for j, col := range s.Columns {
		x, err := t.Floats(col)
		if err != nil {
			return errors.Wrapf(err, "StandardScaler.Fit")
		}
		m, std := stat.PopMeanStdDev(x, nil)
		// 標準偏差が0に近い場合は1に設定（ゼロ除算を避ける）
		if math.IsNaN(std) || std < minScale {
			std = 1.0
		}
		mean[j] = m
		scale[j] = std
	}
	if err := errors.CheckNumericalStability("StandardScaler.Fit", mean); err != nil {
		return err
	}

	s.Mean = mean
	s.Scale = scale
	s.SetFitted()
	return nil
}

// TransformRow は学習済みの統計情報で1行を標準化し dst に書き込む
func (s *StandardScaler) TransformRow(r dataset.Record, dst []float64) error {
	if err := s.RequireFitted("StandardScaler", "TransformRow"); err != nil {
		return err
	}
	if len(dst) != len(s.Columns) {
		return errors.NewDimensionError("StandardScaler.TransformRow", len(s.Columns), len(dst), 1)
	}
	for j, col := range s.Columns {
		v, err := r.Float(col)
		if err != nil {
			return err
		}
		dst[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return nil
}

// InverseTransformRow は標準化された値を元のスケールに戻す
func (s *StandardScaler) InverseTransformRow(scaled []float64) ([]float64, error) {
	if err := s.RequireFitted("StandardScaler", "InverseTransformRow"); err != nil {
		return nil, err
	}
	if len(scaled) != len(s.Columns) {
		return nil, errors.NewDimensionError("StandardScaler.InverseTransformRow", len(s.Columns), len(scaled), 1)
	}
	out := make([]float64, len(scaled))
	for j, v := range scaled {
		out[j] = v*s.Scale[j] + s.Mean[j]
	}
	return out, nil
}

// FeatureNames は出力列名を返す（入力列名と同じ）
func (s *StandardScaler) FeatureNames() []string {
	return append([]string(nil), s.Columns...)
}

// Width は出力列数を返す
func (s *StandardScaler) Width() int {
	return len(s.Columns)
}

// String はスケーラーの文字列表現を返す
func (s *StandardScaler) String() string {
	if !s.IsFitted() {
		return fmt.Sprintf("StandardScaler(columns=%v)", s.Columns)
	}
	return fmt.Sprintf("StandardScaler(columns=%v, mean=%v, scale=%v)", s.Columns, s.Mean, s.Scale)
}
