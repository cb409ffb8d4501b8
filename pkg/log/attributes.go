// Package log defines standard attribute keys for pipeline operations.
//
// Using these keys everywhere keeps training-job logs and serving logs
// filterable by the same field names. Keys follow a hierarchical naming
// convention (e.g. "data.samples", "artifact.path").

package log

// Component and operation context.
const (
	// ModelNameKey identifies the estimator or stage type.
	// Examples: "LinearRegression", "StandardScaler", "OneHotEncoder"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "fit_transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	// Examples: "preprocessing", "training", "server"
	ComponentKey = "ml.component"

	// PhaseKey indicates the pipeline phase.
	PhaseKey = "ml.phase"

	// RunIDKey carries the identifier of one training run.
	RunIDKey = "run.id"
)

// Data shape.
const (
	// SamplesKey is the number of rows processed.
	SamplesKey = "data.samples"

	// FeaturesKey is the width of the feature vector.
	FeaturesKey = "data.features"

	// ColumnKey names the column an event refers to.
	ColumnKey = "data.column"

	// CategoriesKey is the number of categories learned for a column.
	CategoriesKey = "data.categories"
)

// Performance and evaluation.
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// R2ScoreKey records the R² coefficient of determination.
	R2ScoreKey = "metrics.r2_score"

	// RMSEKey records root mean squared error.
	RMSEKey = "metrics.rmse"

	// MAEKey records mean absolute error.
	MAEKey = "metrics.mae"

	// PredictionKey records a single predicted value.
	PredictionKey = "preds.value"
)

// Artifacts and HTTP.
const (
	// ArtifactPathKey is the filesystem path of a persisted artifact.
	ArtifactPathKey = "artifact.path"

	// ArtifactKindKey is the kind tag stored in the artifact envelope.
	ArtifactKindKey = "artifact.kind"

	// HTTPMethodKey, HTTPPathKey and HTTPStatusKey describe a served request.
	HTTPMethodKey = "http.method"
	HTTPPathKey   = "http.path"
	HTTPStatusKey = "http.status"

	// AddrKey is a listen address.
	AddrKey = "net.addr"
)

// Error context.
const (
	// ErrorKey carries the error value itself.
	ErrorKey = "error"

	// ErrorTypeKey categorizes the error, e.g. the pipeline error kind.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	// Populated automatically when an error value is logged.
	StacktraceKey = "error.stacktrace"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"
	OperationSave         = "save"
	OperationLoad         = "load"

	PhaseIngestion      = "ingestion"
	PhasePreprocessing  = "preprocessing"
	PhaseTraining       = "training"
	PhaseEvaluation     = "evaluation"
	PhaseInference      = "inference"
)
