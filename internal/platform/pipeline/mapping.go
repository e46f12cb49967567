package pipeline

import (
	"context"
	"strings"
)

// MockMapper resolves a term against the vocabulary. The same input always
// yields the same candidate.
type MockMapper struct {
	vocab *Vocabulary
}

func NewMockMapper(vocab *Vocabulary) *MockMapper {
	return &MockMapper{vocab: vocab}
}

func (m *MockMapper) Map(_ context.Context, info *ExtractedInfo) (*MappingCandidate, error) {
	if info == nil {
		return nil, missing("extracted info")
	}
	if entry, ok := m.vocab.Match(info.PrimaryCondition); ok {
		return candidateFrom(entry, info.PrimaryCondition), nil
	}
	return candidateFrom(m.vocab.Fallback, info.PrimaryCondition), nil
}

func candidateFrom(e VocabularyEntry, term string) *MappingCandidate {
	return &MappingCandidate{
		Code:        e.Code,
		DiseaseName: e.DiseaseName,
		Confidence:  e.Confidence,
		Reasoning:   strings.ReplaceAll(e.Reasoning, TermPlaceholder, term),
	}
}
