package pipeline

import (
	"fmt"
	"strings"
)

// Format merges the stage outputs into the final result. Code and name come
// from the validation result, confidence and explanation from the candidate.
// Every field the result carries must be present.
func Format(term string, info *ExtractedInfo, cand *MappingCandidate, val *ValidationResult) (*FinalResult, error) {
	switch {
	case info == nil:
		return nil, missing("extracted info")
	case cand == nil:
		return nil, missing("mapping candidate")
	case val == nil:
		return nil, missing("validation result")
	case strings.TrimSpace(info.PrimaryCondition) == "":
		return nil, missing("primary_condition")
	case strings.TrimSpace(info.BodySystem) == "":
		return nil, missing("body_system")
	case len(info.Symptoms) == 0:
		return nil, missing("symptoms")
	case !info.AyushSystem.Valid():
		return nil, fmt.Errorf("%w: ayush_system %q", ErrMissingField, info.AyushSystem)
	case strings.TrimSpace(cand.Code) == "":
		return nil, missing("icd_code")
	case strings.TrimSpace(cand.DiseaseName) == "":
		return nil, missing("disease_name")
	case strings.TrimSpace(val.ConfirmedCode) == "":
		return nil, missing("confirmed_code")
	case strings.TrimSpace(val.ConfirmedName) == "":
		return nil, missing("confirmed_name")
	case strings.TrimSpace(val.Source) == "":
		return nil, missing("source")
	}
	if err := checkConfidence(cand.Confidence); err != nil {
		return nil, err
	}

	term = strings.TrimSpace(term)
	if term == "" {
		term = info.PrimaryCondition
	}

	return &FinalResult{
		AyushTerm:   term,
		ICDCode:     val.ConfirmedCode,
		DiseaseName: val.ConfirmedName,
		Confidence:  cand.Confidence,
		Explanation: cand.Reasoning,
		Source:      val.Source,
		Valid:       val.IsValid,
		AyushDetails: AyushDetails{
			System:     info.AyushSystem,
			Symptoms:   append([]string(nil), info.Symptoms...),
			BodySystem: info.BodySystem,
		},
		ProcessingSteps: []ProcessingStep{
			{Stage: StageExtraction, Output: fmt.Sprintf("identified %q as %s (%s)", info.PrimaryCondition, info.AyushSystem, info.BodySystem)},
			{Stage: StageMapping, Output: fmt.Sprintf("mapped to %s %s (%.1f%%)", cand.Code, cand.DiseaseName, cand.Confidence)},
			{Stage: StageValidation, Output: validationLine(val)},
			{Stage: StageOutput, Output: fmt.Sprintf("recorded %s %s for %q", val.ConfirmedCode, val.ConfirmedName, term)},
		},
	}, nil
}

func validationLine(v *ValidationResult) string {
	if v.IsValid {
		return fmt.Sprintf("confirmed %s by %s", v.ConfirmedCode, v.Source)
	}
	return fmt.Sprintf("%s not found by %s", v.ConfirmedCode, v.Source)
}
