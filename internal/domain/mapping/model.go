package mapping

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxTermLength bounds ayush_term after trimming.
const MaxTermLength = 255

// ErrUnauthenticated is returned when a request reaches the service without
// a resolvable caller.
var ErrUnauthenticated = errors.New("unauthenticated")

// MappingRecord is one persisted pipeline result. Records are immutable once
// written and belong to the user that requested them.
type MappingRecord struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"-"`
	AyushTerm   string    `db:"ayush_term" json:"ayush_term"`
	ICDCode     string    `db:"icd_code" json:"icd_code"`
	DiseaseName string    `db:"disease_name" json:"disease_name"`
	Confidence  float64   `db:"confidence" json:"confidence"`
	Explanation string    `db:"explanation" json:"explanation"`
	Source      string    `db:"source" json:"source"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type MapRequest struct {
	AyushTerm *string `json:"ayush_term"`
}

// ValidationError carries per-field messages and renders as {field: [msgs]}.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msgs := range e.Fields {
		parts = append(parts, f+": "+strings.Join(msgs, "; "))
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{field: {msg}}}
}

// PersistenceError wraps a failed write of a completed mapping.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return "persist mapping: " + e.Err.Error() }

func (e *PersistenceError) Unwrap() error { return e.Err }
