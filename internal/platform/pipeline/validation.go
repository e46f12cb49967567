package pipeline

import (
	"context"
	"fmt"
	"strings"
)

// Validation sources reported in results.
const (
	SourceMock     = "AYUSH Agent"
	SourceRegistry = "ICD-10 reference registry"
	SourceWHO      = "WHO ICD API"
)

// MockValidator confirms every candidate unchanged.
type MockValidator struct{}

func NewMockValidator() *MockValidator { return &MockValidator{} }

func (MockValidator) Validate(_ context.Context, code, name string) (*ValidationResult, error) {
	return &ValidationResult{
		IsValid:       true,
		ConfirmedCode: code,
		ConfirmedName: name,
		Source:        SourceMock,
	}, nil
}

// CodeRegistry reports whether an ICD code exists in a reference table.
type CodeRegistry interface {
	CodeExists(ctx context.Context, code string) (bool, error)
}

// RegistryValidator checks candidates against the local reference table.
// Code and name are never rewritten; an unknown code is only flagged.
type RegistryValidator struct {
	registry CodeRegistry
}

func NewRegistryValidator(registry CodeRegistry) *RegistryValidator {
	return &RegistryValidator{registry: registry}
}

func (v *RegistryValidator) Validate(ctx context.Context, code, name string) (*ValidationResult, error) {
	ok, err := v.registry.CodeExists(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("registry lookup %s: %w", code, err)
	}
	return &ValidationResult{
		IsValid:       ok,
		ConfirmedCode: code,
		ConfirmedName: name,
		Source:        SourceRegistry,
	}, nil
}
