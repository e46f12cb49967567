package terminology

import "errors"

// SystemICD10 is the canonical URI for ICD-10 codes.
const SystemICD10 = "http://hl7.org/fhir/sid/icd-10"

// ErrNotFound is returned when a code is not in the reference table.
var ErrNotFound = errors.New("code not found")

// ICDCode is one row of the ICD-10 reference table.
type ICDCode struct {
	Code       string `json:"code"`
	Display    string `json:"display"`
	Chapter    string `json:"chapter,omitempty"`
	BodySystem string `json:"body_system,omitempty"`
	SystemURI  string `json:"system"`
}
