package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Kind classifies a PipelineError by the component that raised it.
type Kind string

const (
	KindSchema             Kind = "schema"
	KindFeatureEngineering Kind = "feature_engineering"
	KindTransformation     Kind = "transformation"
	KindTraining           Kind = "training"
	KindArtifactIO         Kind = "artifact_io"
	KindPrediction         Kind = "prediction"
)

// PipelineError is the error returned by every stage of the yield pipeline.
// Err holds the originating cause and is never dropped when the error is
// wrapped again by a later stage.
type PipelineError struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("cropyield: %s: %s", e.Op, e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a PipelineError of the same kind. Together
// with Unwrap this lets errors.Is(err, ErrTransformation) match a
// transformation failure anywhere in the cause chain.
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *PipelineError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("kind", string(e.Kind)).
		Str("operation", e.Op).
		Str("message", e.Message).
		Str("type", "PipelineError")
	if e.Err != nil {
		event.Str("cause", e.Err.Error())
	}
}

// Sentinels for errors.Is matching by kind.
var (
	ErrSchema             = &PipelineError{Kind: KindSchema}
	ErrFeatureEngineering = &PipelineError{Kind: KindFeatureEngineering}
	ErrTransformation     = &PipelineError{Kind: KindTransformation}
	ErrTraining           = &PipelineError{Kind: KindTraining}
	ErrArtifactIO         = &PipelineError{Kind: KindArtifactIO}
	ErrPrediction         = &PipelineError{Kind: KindPrediction}
)

func newPipelineError(kind Kind, op, message string, cause error) error {
	return errors.WithStack(&PipelineError{Kind: kind, Op: op, Message: message, Err: cause})
}

// NewSchemaError reports an invalid or unreadable column schema.
func NewSchemaError(op, message string, cause error) error {
	return newPipelineError(KindSchema, op, message, cause)
}

// NewFeatureEngineeringError reports a row-level normalization failure.
func NewFeatureEngineeringError(op, message string, cause error) error {
	return newPipelineError(KindFeatureEngineering, op, message, cause)
}

// NewTransformationError reports a preprocessor fit or transform failure.
func NewTransformationError(op, message string, cause error) error {
	return newPipelineError(KindTransformation, op, message, cause)
}

// NewTrainingError reports a model fitting or evaluation failure.
func NewTrainingError(op, message string, cause error) error {
	return newPipelineError(KindTraining, op, message, cause)
}

// NewArtifactIOError reports a missing, corrupt or mismatched artifact.
func NewArtifactIOError(op, message string, cause error) error {
	return newPipelineError(KindArtifactIO, op, message, cause)
}

// NewPredictionError wraps a serving-time failure. cause must not be nil.
func NewPredictionError(op string, cause error) error {
	return newPipelineError(KindPrediction, op, "", cause)
}

// KindOf returns the kind of the outermost PipelineError in err's chain.
func KindOf(err error) (Kind, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}
