package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestPipeline() *Pipeline {
	return NewMock(DefaultVocabulary(), zerolog.Nop())
}

func TestPipeline_KnownTerms(t *testing.T) {
	tests := []struct {
		term          string
		wantCode      string
		minConfidence float64
	}{
		{"vata imbalance", "F45.8", 85},
		{"Aggravated PITTA", "K29.7", 85},
		{"kapha dosha", "J45.9", 85},
		{"madhumeha", "E11.9", 90},
		{"type 2 diabetes", "E11.9", 90},
	}

	p := newTestPipeline()
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			res, err := p.Run(context.Background(), tt.term)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.ICDCode != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, res.ICDCode)
			}
			if res.Confidence < tt.minConfidence {
				t.Errorf("expected confidence >= %v, got %v", tt.minConfidence, res.Confidence)
			}
			if res.Source != SourceMock {
				t.Errorf("expected source %q, got %q", SourceMock, res.Source)
			}
			if !res.Valid {
				t.Error("expected mock validation to confirm the code")
			}
		})
	}
}

func TestPipeline_UnknownTermFallsBack(t *testing.T) {
	res, err := newTestPipeline().Run(context.Background(), "xyzzy123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ICDCode != "R69" {
		t.Errorf("expected R69, got %s", res.ICDCode)
	}
	if res.Confidence > 70 {
		t.Errorf("expected confidence <= 70, got %v", res.Confidence)
	}
	if !strings.Contains(res.Explanation, `"xyzzy123"`) {
		t.Errorf("expected explanation to quote the term, got %q", res.Explanation)
	}
}

func TestPipeline_FirstMatchWins(t *testing.T) {
	res, err := newTestPipeline().Run(context.Background(), "vata pitta kapha")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ICDCode != "F45.8" {
		t.Errorf("expected vata entry to win, got %s", res.ICDCode)
	}
}

func TestPipeline_Deterministic(t *testing.T) {
	p := newTestPipeline()
	a, err := p.Run(context.Background(), "pitta")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := p.Run(context.Background(), "pitta")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ICDCode != b.ICDCode || a.Confidence != b.Confidence || a.Explanation != b.Explanation {
		t.Errorf("expected identical results, got %+v and %+v", a, b)
	}
}

func TestPipeline_ConfidenceInRange(t *testing.T) {
	p := newTestPipeline()
	for _, term := range []string{"", "   ", "vata", "madhumeha", "???", strings.Repeat("x", 255)} {
		res, err := p.Run(context.Background(), term)
		if err != nil {
			t.Fatalf("term %q: unexpected error: %v", term, err)
		}
		if res.Confidence < 0 || res.Confidence > 100 {
			t.Errorf("term %q: confidence %v out of range", term, res.Confidence)
		}
		if res.ICDCode == "" || res.DiseaseName == "" {
			t.Errorf("term %q: expected non-empty code and name", term)
		}
	}
}

func TestPipeline_DetailsAndSteps(t *testing.T) {
	res, err := newTestPipeline().Run(context.Background(), "unani mizaj with vata")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.AyushDetails.System != SystemUnani {
		t.Errorf("expected Unani, got %s", res.AyushDetails.System)
	}
	if res.AyushDetails.BodySystem != "nervous" {
		t.Errorf("expected nervous body system, got %s", res.AyushDetails.BodySystem)
	}
	wantStages := []string{StageExtraction, StageMapping, StageValidation, StageOutput}
	if len(res.ProcessingSteps) != len(wantStages) {
		t.Fatalf("expected %d processing steps, got %d", len(wantStages), len(res.ProcessingSteps))
	}
	for i, stage := range wantStages {
		if res.ProcessingSteps[i].Stage != stage {
			t.Errorf("step %d: expected %s, got %s", i, stage, res.ProcessingSteps[i].Stage)
		}
	}
}

type failingMapper struct{ err error }

func (f failingMapper) Map(context.Context, *ExtractedInfo) (*MappingCandidate, error) {
	return nil, f.err
}

type slowValidator struct{}

func (slowValidator) Validate(ctx context.Context, code, name string) (*ValidationResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type badMapper struct{}

func (badMapper) Map(context.Context, *ExtractedInfo) (*MappingCandidate, error) {
	return &MappingCandidate{Code: "X", DiseaseName: "y", Confidence: 140}, nil
}

func TestPipeline_StageFailure(t *testing.T) {
	vocab := DefaultVocabulary()
	cause := errors.New("backend down")
	p := New(NewMockExtractor(vocab), failingMapper{err: cause}, NewMockValidator(), time.Second, zerolog.Nop())

	res, err := p.Run(context.Background(), "vata")
	if res != nil {
		t.Error("expected no result on failure")
	}
	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StageError, got %T", err)
	}
	if se.Stage != StageMapping {
		t.Errorf("expected mapping stage, got %s", se.Stage)
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be preserved")
	}
}

func TestPipeline_StageTimeout(t *testing.T) {
	vocab := DefaultVocabulary()
	p := New(NewMockExtractor(vocab), NewMockMapper(vocab), slowValidator{}, 20*time.Millisecond, zerolog.Nop())

	_, err := p.Run(context.Background(), "kapha")
	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StageError, got %v", err)
	}
	if se.Stage != StageValidation {
		t.Errorf("expected validation stage, got %s", se.Stage)
	}
	if !errors.Is(err, ErrStageTimeout) {
		t.Errorf("expected ErrStageTimeout, got %v", err)
	}
}

func TestPipeline_RejectsOutOfRangeCandidate(t *testing.T) {
	vocab := DefaultVocabulary()
	p := New(NewMockExtractor(vocab), badMapper{}, NewMockValidator(), 0, zerolog.Nop())

	_, err := p.Run(context.Background(), "vata")
	if !errors.Is(err, ErrConfidenceRange) {
		t.Fatalf("expected ErrConfidenceRange, got %v", err)
	}
}

func formatInputs() (*ExtractedInfo, *MappingCandidate, *ValidationResult) {
	info := &ExtractedInfo{PrimaryCondition: "vata", Symptoms: []string{"anxiety"}, BodySystem: "nervous", AyushSystem: SystemAyurveda}
	cand := &MappingCandidate{Code: "F45.8", DiseaseName: "Vata Imbalance", Confidence: 92, Reasoning: "r"}
	val := &ValidationResult{IsValid: true, ConfirmedCode: "F45.8", ConfirmedName: "Vata Imbalance", Source: SourceMock}
	return info, cand, val
}

func TestFormat_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ExtractedInfo, *MappingCandidate, *ValidationResult)
	}{
		{"primary condition", func(i *ExtractedInfo, _ *MappingCandidate, _ *ValidationResult) { i.PrimaryCondition = " " }},
		{"body system", func(i *ExtractedInfo, _ *MappingCandidate, _ *ValidationResult) { i.BodySystem = "" }},
		{"symptoms", func(i *ExtractedInfo, _ *MappingCandidate, _ *ValidationResult) { i.Symptoms = []string{} }},
		{"ayush system", func(i *ExtractedInfo, _ *MappingCandidate, _ *ValidationResult) { i.AyushSystem = "" }},
		{"unknown ayush system", func(i *ExtractedInfo, _ *MappingCandidate, _ *ValidationResult) { i.AyushSystem = "Acupuncture" }},
		{"candidate code", func(_ *ExtractedInfo, c *MappingCandidate, _ *ValidationResult) { c.Code = "" }},
		{"candidate name", func(_ *ExtractedInfo, c *MappingCandidate, _ *ValidationResult) { c.DiseaseName = "" }},
		{"confirmed code", func(_ *ExtractedInfo, _ *MappingCandidate, v *ValidationResult) { v.ConfirmedCode = "" }},
		{"confirmed name", func(_ *ExtractedInfo, _ *MappingCandidate, v *ValidationResult) { v.ConfirmedName = " " }},
		{"source", func(_ *ExtractedInfo, _ *MappingCandidate, v *ValidationResult) { v.Source = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, cand, val := formatInputs()
			tt.mutate(info, cand, val)
			res, err := Format("vata", info, cand, val)
			if !errors.Is(err, ErrMissingField) {
				t.Errorf("expected ErrMissingField, got %v", err)
			}
			if res != nil {
				t.Error("expected no result")
			}
		})
	}

	_, cand, val := formatInputs()
	if _, err := Format("vata", nil, cand, val); !errors.Is(err, ErrMissingField) {
		t.Errorf("expected ErrMissingField for nil extraction, got %v", err)
	}
	if _, err := Format("x", &ExtractedInfo{}, cand, &ValidationResult{Source: SourceMock}); !errors.Is(err, ErrMissingField) {
		t.Errorf("expected ErrMissingField for empty extraction, got %v", err)
	}
}

func TestFormat_ConfirmedValuesWin(t *testing.T) {
	info, cand, val := formatInputs()
	cand.Code, cand.DiseaseName = "F45.8", "Old"
	val.ConfirmedCode, val.ConfirmedName = "G90.9", "Corrected"
	val.IsValid = false
	val.Source = SourceRegistry

	res, err := Format(" vata ", info, cand, val)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ICDCode != "G90.9" || res.DiseaseName != "Corrected" {
		t.Errorf("expected confirmed code and name, got %s %s", res.ICDCode, res.DiseaseName)
	}
	if res.Confidence != 92 || res.Explanation != "r" {
		t.Errorf("expected confidence and explanation from candidate, got %v %q", res.Confidence, res.Explanation)
	}
	if res.Valid {
		t.Error("expected invalid result")
	}
	if res.AyushTerm != "vata" {
		t.Errorf("expected trimmed term, got %q", res.AyushTerm)
	}
	last := res.ProcessingSteps[len(res.ProcessingSteps)-1]
	if last.Stage != StageOutput || !strings.Contains(last.Output, "G90.9") {
		t.Errorf("expected output step naming the confirmed code, got %+v", last)
	}
}
