// Package linear は最小二乗法による線形回帰モデルを提供する
package linear

import (
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cropyield/core/model"
	"github.com/YuminosukeSato/cropyield/core/parallel"
	"github.com/YuminosukeSato/cropyield/metrics"
	"github.com/YuminosukeSato/cropyield/pkg/errors"
)

// ModelType は書き出した重みに記録されるモデル名
const ModelType = "LinearRegression"

const (
	SolverQR  = "qr"
	SolverSVD = "svd"
)

const (
	// defaultRcond が0のときは 機械イプシロン×max(n, p) を使う
	defaultRcond = 0
	// qrRankTol 未満の |R_jj|/max|R_ii| はランク落ちとみなす
	qrRankTol = 1e-12
)

// LinearRegression は通常最小二乗法（OLS）による線形回帰モデル
//
// 学習済みのパラメータはすべて公開フィールドで、gob でそのまま保存できる。
type LinearRegression struct {
	model.BaseEstimator

	FitIntercept bool
	Coef         []float64 // 重み（係数）
	Bias         float64   // 切片
	NFeaturesIn  int       // 特徴量の数
	Rank         int       // 計画行列のランク
	Solver       string    // 実際に使った解法（qr または svd）

	threshold int
	rcond     float64
}

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression(opts ...Option) *LinearRegression {
	lr := &LinearRegression{
		FitIntercept: true,
		threshold:    parallel.DefaultThreshold,
		rcond:        defaultRcond,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// Fit はモデルを訓練データで学習させる
//
// 計画行列 [1, X] を QR 分解して最小二乗解を求める。行列がランク落ちしている
// 場合（定数列や完全な共線性）は SVD による最小ノルム解に切り替える。
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	// 入力の検証
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError("LinearRegression.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("LinearRegression.Fit", "y must be a column vector")
	}
	if err := errors.CheckMatrix("LinearRegression.Fit", X, r, c); err != nil {
		return err
	}
	if err := errors.CheckMatrix("LinearRegression.Fit", y, ry, 1); err != nil {
		return err
	}

	design := lr.designMatrix(X, r, c)
	_, p := design.Dims()
	target := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		target.SetVec(i, y.At(i, 0))
	}

	beta := mat.NewVecDense(p, nil)
	solver, rank, err := lr.solve(design, target, beta)
	if err != nil {
		return err
	}

	coef := make([]float64, c)
	bias := 0.0
	if lr.FitIntercept {
		bias = beta.AtVec(0)
		for j := 0; j < c; j++ {
			coef[j] = beta.AtVec(j + 1)
		}
	} else {
		for j := 0; j < c; j++ {
			coef[j] = beta.AtVec(j)
		}
	}
	if err := errors.CheckNumericalStability("LinearRegression.Fit", append(append([]float64{}, coef...), bias)); err != nil {
		return errors.NewModelError("LinearRegression.Fit", "unstable solution", err)
	}

	lr.Coef = coef
	lr.Bias = bias
	lr.NFeaturesIn = c
	lr.Rank = rank
	lr.Solver = solver
	lr.SetFitted()
	return nil
}

// designMatrix は切片用の1の列を先頭に付けた計画行列を作る
func (lr *LinearRegression) designMatrix(X mat.Matrix, r, c int) *mat.Dense {
	offset := 0
	if lr.FitIntercept {
		offset = 1
	}
	design := mat.NewDense(r, c+offset, nil)

	threshold := lr.threshold
	if threshold <= 0 {
		threshold = parallel.DefaultThreshold
	}
	// 各ゴルーチンは自分の行範囲だけに書き込む
	parallel.ParallelizeWithThreshold(r, threshold, func(start, end int) {
		for i := start; i < end; i++ {
			if offset == 1 {
				design.Set(i, 0, 1.0)
			}
			for j := 0; j < c; j++ {
				design.Set(i, j+offset, X.At(i, j))
			}
		}
	})
	return design
}

// solve は design·beta ≈ target を解き、使った解法とランクを返す
func (lr *LinearRegression) solve(design *mat.Dense, target, beta *mat.VecDense) (string, int, error) {
	r, p := design.Dims()
	if r >= p {
		var qr mat.QR
		qr.Factorize(design)
		var R mat.Dense
		qr.RTo(&R)
		if diagRatio(&R, p) > qrRankTol {
			err := qr.SolveVecTo(beta, false, target)
			if err == nil {
				return SolverQR, p, nil
			}
			var cond mat.Condition
			if !errors.As(err, &cond) {
				return "", 0, errors.NewModelError("LinearRegression.Fit", "QR solve failed", err)
			}
		}
		// ランク落ちまたは条件数が大きすぎる場合は SVD にフォールバック
	}

	var svd mat.SVD
	if ok := svd.Factorize(design, mat.SVDThin); !ok {
		return "", 0, errors.NewModelError("LinearRegression.Fit", "SVD factorization failed", errors.ErrSingularMatrix)
	}
	rcond := lr.rcond
	if rcond <= 0 {
		rcond = float64(max(r, p)) * eps
	}
	rank := svd.Rank(rcond)
	if rank == 0 {
		return "", 0, errors.NewModelError("LinearRegression.Fit", "design matrix has rank 0", errors.ErrSingularMatrix)
	}
	var sol mat.Dense
	svd.SolveTo(&sol, target, rank)
	for j := 0; j < p; j++ {
		beta.SetVec(j, sol.At(j, 0))
	}
	return SolverSVD, rank, nil
}

// eps は float64 の機械イプシロン
var eps = math.Nextafter(1, 2) - 1

// diagRatio は R の対角成分の絶対値の最小/最大比を返す
func diagRatio(R *mat.Dense, p int) float64 {
	lo, hi := math.Inf(1), 0.0
	for j := 0; j < p; j++ {
		d := math.Abs(R.At(j, j))
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	if hi == 0 {
		return 0
	}
	return lo / hi
}

// Predict は入力データに対する予測を行う（n×1 行列を返す）
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.RequireFitted(ModelType, "Predict"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if c != lr.NFeaturesIn {
		return nil, errors.NewDimensionError("LinearRegression.Predict", lr.NFeaturesIn, c, 1)
	}

	// y = X * w + b
	w := mat.NewVecDense(c, lr.Coef)
	var out mat.VecDense
	out.MulVec(X, w)
	pred := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		pred.Set(i, 0, out.AtVec(i)+lr.Bias)
	}
	return pred, nil
}

// PredictRow は1サンプル分の予測値を返す
func (lr *LinearRegression) PredictRow(x []float64) (float64, error) {
	if err := lr.RequireFitted(ModelType, "PredictRow"); err != nil {
		return 0, err
	}
	if len(x) != lr.NFeaturesIn {
		return 0, errors.NewDimensionError("LinearRegression.PredictRow", lr.NFeaturesIn, len(x), 1)
	}
	return floats.Dot(lr.Coef, x) + lr.Bias, nil
}

// Score は決定係数 R² を返す
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	pred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	yTrue, err := metrics.ColumnVector("LinearRegression.Score", y)
	if err != nil {
		return 0, err
	}
	yPred, err := metrics.ColumnVector("LinearRegression.Score", pred)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(yTrue, yPred)
}

// Weights は学習された重み（係数）のコピーを返す
func (lr *LinearRegression) Weights() []float64 {
	return append([]float64(nil), lr.Coef...)
}

// Intercept は学習された切片を返す
func (lr *LinearRegression) Intercept() float64 {
	return lr.Bias
}

// NFeatures は入力として期待する特徴量の数を返す
func (lr *LinearRegression) NFeatures() int {
	return lr.NFeaturesIn
}

// ExportWeights は人が読める形式の重みを返す。featureNames は空でもよい。
func (lr *LinearRegression) ExportWeights(featureNames []string) (*model.ModelWeights, error) {
	if err := lr.RequireFitted(ModelType, "ExportWeights"); err != nil {
		return nil, err
	}
	if len(featureNames) > 0 && len(featureNames) != lr.NFeaturesIn {
		return nil, errors.NewDimensionError("LinearRegression.ExportWeights", lr.NFeaturesIn, len(featureNames), 1)
	}
	mw := &model.ModelWeights{
		ModelType:    ModelType,
		Coefficients: lr.Weights(),
		Intercept:    lr.Bias,
		Features:     append([]string(nil), featureNames...),
		Metadata: map[string]string{
			"fit_intercept": fmt.Sprint(lr.FitIntercept),
			"solver":        lr.Solver,
			"rank":          fmt.Sprint(lr.Rank),
		},
	}
	mw.Checksum = mw.ComputeChecksum()
	return mw, nil
}

// ImportWeights は書き出した重みからモデルを復元する
func (lr *LinearRegression) ImportWeights(mw *model.ModelWeights) error {
	if err := mw.Validate(); err != nil {
		return err
	}
	if mw.ModelType != ModelType {
		return errors.NewValidationError("model_type", "expected "+ModelType, mw.ModelType)
	}
	lr.Coef = append([]float64(nil), mw.Coefficients...)
	lr.Bias = mw.Intercept
	lr.NFeaturesIn = len(mw.Coefficients)
	lr.FitIntercept = mw.Metadata["fit_intercept"] != "false"
	lr.Solver = mw.Metadata["solver"]
	lr.Rank, _ = strconv.Atoi(mw.Metadata["rank"])
	lr.SetFitted()
	return nil
}

func (lr *LinearRegression) String() string {
	if !lr.IsFitted() {
		return fmt.Sprintf("LinearRegression(fit_intercept=%t)", lr.FitIntercept)
	}
	return fmt.Sprintf("LinearRegression(fit_intercept=%t, n_features=%d, solver=%s)", lr.FitIntercept, lr.NFeaturesIn, lr.Solver)
}

var _ model.LinearModel = (*LinearRegression)(nil)
