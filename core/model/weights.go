package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/YuminosukeSato/cropyield/pkg/errors"
)

// ModelWeights はモデルの重みを表す構造体（人が読める形式での書き出し用）
type ModelWeights struct {
	// ModelType はモデルの種類（LinearRegression等）
	ModelType string `json:"model_type"`

	// Coefficients は重み係数
	Coefficients []float64 `json:"coefficients"`

	// Intercept は切片
	Intercept float64 `json:"intercept"`

	// Features は特徴量の名前（Coefficients と同じ順序）
	Features []string `json:"features,omitempty"`

	// Metadata は追加のメタデータ（学習ランID、評価指標等）
	Metadata map[string]string `json:"metadata,omitempty"`

	// Checksum は係数と切片から計算したSHA-256
	Checksum string `json:"checksum"`
}

// ComputeChecksum は係数と切片のチェックサムを計算する
func (mw *ModelWeights) ComputeChecksum() string {
	h := sha256.New()
	for _, c := range mw.Coefficients {
		fmt.Fprintf(h, "%.17g,", c)
	}
	fmt.Fprintf(h, "%.17g", mw.Intercept)
	return hex.EncodeToString(h.Sum(nil))
}

// ToJSON はModelWeightsをJSON形式にシリアライズ
func (mw *ModelWeights) ToJSON() ([]byte, error) {
	return json.MarshalIndent(mw, "", "  ")
}

// FromJSON はJSON形式からModelWeightsをデシリアライズ
func (mw *ModelWeights) FromJSON(data []byte) error {
	return json.Unmarshal(data, mw)
}

// Validate はModelWeightsの妥当性を検証
func (mw *ModelWeights) Validate() error {
	if mw.ModelType == "" {
		return errors.NewValidationError("model_type", "is required", mw.ModelType)
	}
	if len(mw.Coefficients) == 0 {
		return errors.NewValidationError("coefficients", "fitted model must have coefficients", len(mw.Coefficients))
	}
	if len(mw.Features) > 0 && len(mw.Features) != len(mw.Coefficients) {
		return errors.NewDimensionError("ModelWeights.Validate", len(mw.Coefficients), len(mw.Features), 1)
	}
	if mw.Checksum != "" && mw.Checksum != mw.ComputeChecksum() {
		return errors.NewValidationError("checksum", "does not match coefficients", mw.Checksum)
	}
	return errors.CheckNumericalStability("ModelWeights.Validate", append(append([]float64{}, mw.Coefficients...), mw.Intercept))
}
