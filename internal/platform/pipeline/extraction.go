package pipeline

import (
	"context"
	"strings"
)

const unknownCondition = "unknown"

// systemKeywords is checked in order; a term matching none is Ayurveda.
var systemKeywords = []struct {
	system   AyushSystem
	keywords []string
}{
	{SystemUnani, []string{"unani", "mizaj", "khilt", "akhlat", "tibb"}},
	{SystemSiddha, []string{"siddha", "vatham", "pitham", "kabam"}},
	{SystemHomeopathy, []string{"homeopath", "homoeopath", "miasm", "potency"}},
	{SystemYoga, []string{"yoga", "asana", "pranayama", "naturopathy"}},
}

// DetectSystem classifies a term by keyword.
func DetectSystem(term string) AyushSystem {
	t := strings.ToLower(term)
	for _, s := range systemKeywords {
		for _, k := range s.keywords {
			if strings.Contains(t, k) {
				return s.system
			}
		}
	}
	return SystemAyurveda
}

// MockExtractor reads a term using the vocabulary keywords. It never fails.
type MockExtractor struct {
	vocab *Vocabulary
}

func NewMockExtractor(vocab *Vocabulary) *MockExtractor {
	return &MockExtractor{vocab: vocab}
}

func (e *MockExtractor) Extract(_ context.Context, rawTerm string) (*ExtractedInfo, error) {
	term := strings.TrimSpace(rawTerm)
	if term == "" {
		term = unknownCondition
	}

	info := &ExtractedInfo{
		PrimaryCondition: term,
		AyushSystem:      DetectSystem(term),
		BodySystem:       e.vocab.Fallback.BodySystem,
		Symptoms:         append([]string(nil), e.vocab.Fallback.Symptoms...),
	}
	if entry, ok := e.vocab.Match(term); ok {
		info.BodySystem = entry.BodySystem
		info.Symptoms = append([]string(nil), entry.Symptoms...)
	}
	if info.BodySystem == "" {
		info.BodySystem = "unspecified"
	}
	if len(info.Symptoms) == 0 {
		info.Symptoms = []string{"unspecified"}
	}
	return info, nil
}
