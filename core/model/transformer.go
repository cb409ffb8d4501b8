package model

import (
	"github.com/YuminosukeSato/cropyield/dataset"
)

// Stage は列単位の変換ステージのインターフェース
//
// Preprocessor は宣言順に並べたステージの出力を連結して特徴ベクトルを作る。
type Stage interface {
	// Fit は学習テーブルから変換パラメータを学習する。既存のパラメータは置き換える
	Fit(t *dataset.Table) error

	// TransformRow は1行を変換し、dst（長さ Width()）に書き込む
	TransformRow(r dataset.Record, dst []float64) error

	// FeatureNames は出力列の名前を返す
	FeatureNames() []string

	// Width は出力列数を返す。Fit 後に固定される
	Width() int

	// IsFitted は学習済みかどうかを返す
	IsFitted() bool
}
