package model

import (
	"github.com/YuminosukeSato/cropyield/pkg/errors"
)

// EstimatorState はモデルの学習状態を表す
type EstimatorState int

const (
	// NotFitted はモデルが未学習の状態
	NotFitted EstimatorState = iota
	// Fitted はモデルが学習済みの状態
	Fitted
)

// String は状態名を返す
func (s EstimatorState) String() string {
	if s == Fitted {
		return "fit"
	}
	return "unfit"
}

// BaseEstimator は全てのステージとモデルの基底となる構造体
//
// State はgobで永続化されるようエクスポートしている。
// 読み込んだ成果物は学習済みのまま復元される。
type BaseEstimator struct {
	State EstimatorState
}

// IsFitted はモデルが学習済みかどうかを返す
func (e *BaseEstimator) IsFitted() bool {
	return e.State == Fitted
}

// SetFitted はモデルを学習済み状態に設定する
func (e *BaseEstimator) SetFitted() {
	e.State = Fitted
}

// Reset はモデルを初期状態にリセットする
func (e *BaseEstimator) Reset() {
	e.State = NotFitted
}

// RequireFitted は未学習の場合に NotFittedError を返す
func (e *BaseEstimator) RequireFitted(name, method string) error {
	if e.State != Fitted {
		return errors.NewNotFittedError(name, method)
	}
	return nil
}
