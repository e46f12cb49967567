// Package pipeline maps a traditional-medicine (AYUSH) term to an ICD code in
// four fixed stages: extraction, mapping, validation and output formatting.
//
// Each stage is an interface with a mock backend driven by a fixed vocabulary
// and, where one exists, a live backend (LLM or terminology registry). The
// backend is chosen once at start-up; stages keep no per-request state and are
// safe to share between goroutines.
package pipeline

import "context"

// AyushSystem is one of the recognised traditional-medicine systems.
type AyushSystem string

const (
	SystemAyurveda   AyushSystem = "Ayurveda"
	SystemYoga       AyushSystem = "Yoga"
	SystemUnani      AyushSystem = "Unani"
	SystemSiddha     AyushSystem = "Siddha"
	SystemHomeopathy AyushSystem = "Homeopathy"
)

// Valid reports whether s is a recognised AYUSH system.
func (s AyushSystem) Valid() bool {
	switch s {
	case SystemAyurveda, SystemYoga, SystemUnani, SystemSiddha, SystemHomeopathy:
		return true
	}
	return false
}

// ExtractedInfo is the structured reading of a raw term.
type ExtractedInfo struct {
	PrimaryCondition string      `json:"primary_condition"`
	Symptoms         []string    `json:"symptoms"`
	BodySystem       string      `json:"body_system"`
	AyushSystem      AyushSystem `json:"ayush_system"`
}

// MappingCandidate is a proposed ICD code for an extracted term.
type MappingCandidate struct {
	Code        string  `json:"icd_code"`
	DiseaseName string  `json:"disease_name"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
}

// ValidationResult records whether a candidate code was confirmed and by whom.
type ValidationResult struct {
	IsValid       bool   `json:"is_valid"`
	ConfirmedCode string `json:"confirmed_code"`
	ConfirmedName string `json:"confirmed_name"`
	Source        string `json:"source"`
}

// AyushDetails carries the extraction fields through to the final result.
type AyushDetails struct {
	System     AyushSystem `json:"system"`
	Symptoms   []string    `json:"symptoms"`
	BodySystem string      `json:"body_system"`
}

// ProcessingStep is a one-line summary of what a stage produced.
type ProcessingStep struct {
	Stage  string `json:"stage"`
	Output string `json:"output"`
}

// FinalResult is the merged output of all stages, ready for persistence.
type FinalResult struct {
	AyushTerm       string           `json:"ayush_term"`
	ICDCode         string           `json:"icd_code"`
	DiseaseName     string           `json:"disease_name"`
	Confidence      float64          `json:"confidence"`
	Explanation     string           `json:"explanation"`
	Source          string           `json:"source"`
	Valid           bool             `json:"is_valid"`
	AyushDetails    AyushDetails     `json:"ayush_details"`
	ProcessingSteps []ProcessingStep `json:"processing_steps"`
}

// Extractor parses a raw term into structured fields.
type Extractor interface {
	Extract(ctx context.Context, rawTerm string) (*ExtractedInfo, error)
}

// Mapper proposes an ICD code for extracted information.
type Mapper interface {
	Map(ctx context.Context, info *ExtractedInfo) (*MappingCandidate, error)
}

// Validator confirms (or rejects) a candidate code.
type Validator interface {
	Validate(ctx context.Context, code, name string) (*ValidationResult, error)
}
