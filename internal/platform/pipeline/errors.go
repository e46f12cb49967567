package pipeline

import (
	"errors"
	"fmt"
)

// Stage names used in errors, logs and processing steps.
const (
	StageExtraction = "extraction"
	StageMapping    = "mapping"
	StageValidation = "validation"
	StageOutput     = "output"
)

var (
	// ErrStageTimeout is wrapped by a StageError when a stage overruns its deadline.
	ErrStageTimeout = errors.New("stage timed out")
	// ErrMissingField is returned when a stage output lacks a required field.
	ErrMissingField = errors.New("missing required field")
	// ErrConfidenceRange is returned for a confidence outside [0,100].
	ErrConfidenceRange = errors.New("confidence out of range")
)

// StageError reports that a stage could not produce its output. Nothing from
// a run that ends in a StageError may be persisted.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ParseError reports a live backend reply that does not match the expected
// schema exactly.
type ParseError struct {
	Stage  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s reply: %s: %v", e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s reply: %s", e.Stage, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

func missing(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}

func checkConfidence(c float64) error {
	if c < 0 || c > 100 || c != c {
		return fmt.Errorf("%w: %v", ErrConfidenceRange, c)
	}
	return nil
}
