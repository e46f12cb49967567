package pipeline

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TermPlaceholder is replaced with the original term in the fallback reasoning.
const TermPlaceholder = "{term}"

// VocabularyEntry maps one or more keywords to a fixed ICD result.
type VocabularyEntry struct {
	Keywords    []string `yaml:"keywords"`
	Code        string   `yaml:"code"`
	DiseaseName string   `yaml:"disease_name"`
	Confidence  float64  `yaml:"confidence"`
	Reasoning   string   `yaml:"reasoning"`
	BodySystem  string   `yaml:"body_system"`
	Symptoms    []string `yaml:"symptoms"`
}

// Vocabulary is the ordered keyword table behind the mock stages. The first
// entry whose keyword occurs in a term wins.
type Vocabulary struct {
	Entries  []VocabularyEntry `yaml:"entries"`
	Fallback VocabularyEntry   `yaml:"fallback"`
}

// DefaultVocabulary returns the built-in dosha and condition table.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		Entries: []VocabularyEntry{
			{
				Keywords:    []string{"vata"},
				Code:        "F45.8",
				DiseaseName: "Vata Imbalance / Autonomic Nervous System Dysfunction",
				Confidence:  92,
				Reasoning:   "Vata governs movement and the nervous system; its imbalance presents as anxiety, insomnia and autonomic dysregulation.",
				BodySystem:  "nervous",
				Symptoms:    []string{"anxiety", "insomnia", "dry skin", "constipation"},
			},
			{
				Keywords:    []string{"pitta"},
				Code:        "K29.7",
				DiseaseName: "Pitta Imbalance / Gastritis",
				Confidence:  88,
				Reasoning:   "Pitta governs digestion and metabolism; excess pitta commonly presents as gastric inflammation and acidity.",
				BodySystem:  "digestive",
				Symptoms:    []string{"acidity", "heartburn", "inflammation", "irritability"},
			},
			{
				Keywords:    []string{"kapha"},
				Code:        "J45.9",
				DiseaseName: "Kapha Imbalance / Respiratory Disorders",
				Confidence:  85,
				Reasoning:   "Kapha governs structure and lubrication; its aggravation is associated with congestion and respiratory complaints.",
				BodySystem:  "respiratory",
				Symptoms:    []string{"congestion", "excess mucus", "lethargy"},
			},
			{
				Keywords:    []string{"diabetes", "madhumeha"},
				Code:        "E11.9",
				DiseaseName: "Type 2 diabetes mellitus without complications",
				Confidence:  94.5,
				Reasoning:   "Madhumeha is described as sweet urine with excessive thirst and urination, which corresponds to diabetes mellitus.",
				BodySystem:  "endocrine",
				Symptoms:    []string{"polyuria", "polydipsia", "fatigue"},
			},
		},
		Fallback: VocabularyEntry{
			Code:        "R69",
			DiseaseName: "Unknown and unspecified causes of morbidity",
			Confidence:  60,
			Reasoning:   `The term "` + TermPlaceholder + `" has no precise modern equivalent in the vocabulary; it is classified as an unspecified cause of morbidity pending clinical review.`,
			BodySystem:  "unspecified",
			Symptoms:    []string{"unspecified"},
		},
	}
}

// LoadVocabulary reads a vocabulary from a YAML file and validates it.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary %s: %w", path, err)
	}
	return ParseVocabulary(data)
}

// ParseVocabulary decodes and validates a YAML vocabulary document.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	for i := range v.Entries {
		for j, k := range v.Entries[i].Keywords {
			v.Entries[i].Keywords[j] = strings.ToLower(strings.TrimSpace(k))
		}
	}
	return &v, nil
}

// Validate checks that every entry can produce a well-formed mapping.
func (v *Vocabulary) Validate() error {
	if len(v.Entries) == 0 {
		return fmt.Errorf("vocabulary: no entries")
	}
	for i, e := range v.Entries {
		if len(e.Keywords) == 0 {
			return fmt.Errorf("vocabulary entry %d: no keywords", i)
		}
		for _, k := range e.Keywords {
			if strings.TrimSpace(k) == "" {
				return fmt.Errorf("vocabulary entry %d: empty keyword", i)
			}
		}
		if err := e.check(); err != nil {
			return fmt.Errorf("vocabulary entry %d: %w", i, err)
		}
	}
	if err := v.Fallback.check(); err != nil {
		return fmt.Errorf("vocabulary fallback: %w", err)
	}
	return nil
}

func (e VocabularyEntry) check() error {
	if strings.TrimSpace(e.Code) == "" {
		return missing("code")
	}
	if strings.TrimSpace(e.DiseaseName) == "" {
		return missing("disease_name")
	}
	return checkConfidence(e.Confidence)
}

// Match returns the first entry with a keyword contained in term, compared
// case-insensitively.
func (v *Vocabulary) Match(term string) (VocabularyEntry, bool) {
	t := strings.ToLower(term)
	for _, e := range v.Entries {
		for _, k := range e.Keywords {
			if strings.Contains(t, k) {
				return e, true
			}
		}
	}
	return VocabularyEntry{}, false
}
