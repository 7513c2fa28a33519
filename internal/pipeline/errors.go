package pipeline

import (
	"errors"
	"fmt"

	"github.com/jonathan/resume-builder/internal/ingestion"
	"github.com/jonathan/resume-builder/internal/llm"
	"github.com/jonathan/resume-builder/internal/parsing"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// KindValidation means a caller precondition was violated
	KindValidation Kind = "validation"
	// KindExtraction means the document had no usable text
	KindExtraction Kind = "extraction"
	// KindCallExhausted means every model call attempt failed
	KindCallExhausted Kind = "call_exhausted"
	// KindDecode means the model output was not a valid resume record
	KindDecode Kind = "decode"
	// KindInternal covers everything else
	KindInternal Kind = "internal"
)

// ValidationError is returned when the caller's input fails a precondition.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Error is the single failure type returned by Service operations.
// Err keeps the component error, so errors.As reaches the typed cause.
type Error struct {
	Op     string
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Diagnostic returns operator-facing detail: the raw model output for decode
// failures and the last underlying cause for exhausted calls.
func (e *Error) Diagnostic() string {
	var decodeErr *parsing.DecodeError
	if errors.As(e.Err, &decodeErr) {
		return decodeErr.Raw
	}
	var exhaustedErr *llm.CallExhaustedError
	if errors.As(e.Err, &exhaustedErr) && exhaustedErr.Last != nil {
		return exhaustedErr.Last.Error()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Reason
}

// KindOf returns the Kind of err, or KindInternal when err is not a pipeline error.
func KindOf(err error) Kind {
	var pipelineErr *Error
	if errors.As(err, &pipelineErr) {
		return pipelineErr.Kind
	}
	return classify("", err).Kind
}

// classify converts a component error into a pipeline Error.
func classify(op string, err error) *Error {
	var pipelineErr *Error
	if errors.As(err, &pipelineErr) {
		return pipelineErr
	}

	var (
		validationErr *ValidationError
		extractionErr *ingestion.ExtractionError
		exhaustedErr  *llm.CallExhaustedError
		decodeErr     *parsing.DecodeError
	)

	switch {
	case errors.As(err, &validationErr):
		return &Error{Op: op, Kind: KindValidation, Reason: validationErr.Error(), Err: err}
	case errors.As(err, &extractionErr):
		return &Error{Op: op, Kind: KindExtraction, Reason: extractionErr.Error(), Err: err}
	case errors.As(err, &exhaustedErr):
		return &Error{
			Op:     op,
			Kind:   KindCallExhausted,
			Reason: fmt.Sprintf("the AI service did not respond successfully after %d attempt(s)", exhaustedErr.Attempts),
			Err:    err,
		}
	case errors.As(err, &decodeErr):
		return &Error{
			Op:     op,
			Kind:   KindDecode,
			Reason: "failed to parse AI response; the resume might be too complex or the AI returned invalid data",
			Err:    err,
		}
	default:
		return &Error{Op: op, Kind: KindInternal, Reason: err.Error(), Err: err}
	}
}
