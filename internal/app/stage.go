package app

import (
	"errors"

	"github.com/zetl/notecard-capture/internal/domain"
)

// Stage names a step of the capture pipeline.
type Stage string

const (
	StageCapture   Stage = "capture"
	StageRecognize Stage = "recognize"
	StageValidate  Stage = "validate"
	StageSubmit    Stage = "submit"
)

// Stages lists the pipeline steps in execution order.
var Stages = []Stage{StageCapture, StageRecognize, StageValidate, StageSubmit}

// StageError wraps a failure with the stage where it occurred.
// Its message is the cause's message; the operator sees what went wrong,
// logs and metrics see where.
type StageError struct {
	Stage Stage
	Cause error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return e.Cause.Error()
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *StageError) Unwrap() error {
	return e.Cause
}

// newStageError wraps cause for stage. A malformed model reply surfaces from
// the recognizer as a validation error and is attributed to validate.
func newStageError(stage Stage, cause error) error {
	if stage == StageRecognize && domain.IsValidation(cause) {
		stage = StageValidate
	}
	return &StageError{Stage: stage, Cause: cause}
}

// StageOf extracts the failing stage from a pipeline error.
func StageOf(err error) (Stage, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage, true
	}

	return "", false
}
