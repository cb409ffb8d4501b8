// Package cropyield trains and serves a linear crop-yield model whose
// feature path is identical at training and prediction time.
//
// A training run reads a CSV of field observations, maps yes/no flag
// columns to 1/0, clips the yield target at zero, and fits a Preprocessor
// (standard scaling of numeric columns, drop-first one-hot encoding of
// categorical columns, passthrough of the rest). The fitted preprocessor,
// the transformed train/test matrices, and an ordinary least squares model
// are written as artifacts. The serving side loads those artifacts once and
// replays the same mapping on every request.
//
// # Packages
//
//   - schema: which columns are numeric, categorical, and the target
//   - dataset: CSV tables, records, and the seeded train/test split
//   - features: flag mapping and target clipping
//   - preprocessing: the fitted column transformer
//   - linear, metrics: the regression model and R², RMSE, MAE
//   - artifact: atomic gob, parquet, JSON, and PNG artifacts
//   - training, prediction, server: the run, the replay, and the HTTP API
//
// # Quick Start
//
//	go run ./cmd/cropyield train -config config/config.yaml
//	go run ./cmd/cropyield serve -config config/config.yaml
//
// A prediction request:
//
//	curl -X POST localhost:8000/predict -d '{
//	  "Region": "West", "Soil_Type": "Sandy", "Crop": "Cotton",
//	  "Rainfall_mm": 897.08, "Temperature_Celsius": 27.68,
//	  "Fertilizer_Used": "No", "Irrigation_Used": "Yes",
//	  "Weather_Condition": "Cloudy", "Days_to_Harvest": 122}'
//
// # Error Handling
//
// Every stage returns a *errors.PipelineError from pkg/errors whose Kind
// names the failing component; errors.Is(err, errors.ErrTransformation) and
// friends match it anywhere in the cause chain.
package cropyield
