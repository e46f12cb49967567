package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 1024

// Completer sends one system+user prompt pair to a language model and returns
// the text of its reply.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// AnthropicCompleter is a Completer backed by the Anthropic Messages API.
type AnthropicCompleter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func NewAnthropicCompleter(apiKey, model string) *AnthropicCompleter {
	return &AnthropicCompleter{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: defaultMaxTokens,
	}
}

func (c *AnthropicCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic messages: empty reply")
	}
	return sb.String(), nil
}

// decodeStrict decodes exactly one JSON object from reply into dst. Unknown
// fields and trailing data are rejected.
func decodeStrict(stage, reply string, dst any) error {
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(reply)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &ParseError{Stage: stage, Reason: "invalid JSON object", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return &ParseError{Stage: stage, Reason: "trailing data after JSON object"}
	}
	return nil
}

const extractionSystemPrompt = `You read traditional Indian medicine (AYUSH) terms.
Reply with a single JSON object and nothing else, with exactly these fields:
{"primary_condition": string, "symptoms": [string], "body_system": string,
 "ayush_system": one of "Ayurveda", "Yoga", "Unani", "Siddha", "Homeopathy"}`

const mappingSystemPrompt = `You map AYUSH conditions to ICD-10 codes.
Reply with a single JSON object and nothing else, with exactly these fields:
{"icd_code": string, "disease_name": string, "confidence": number between 0 and 100,
 "reasoning": string}`

type extractionReply struct {
	PrimaryCondition *string  `json:"primary_condition"`
	Symptoms         []string `json:"symptoms"`
	BodySystem       *string  `json:"body_system"`
	AyushSystem      *string  `json:"ayush_system"`
}

// LLMExtractor asks a language model to read the term.
type LLMExtractor struct {
	llm Completer
}

func NewLLMExtractor(llm Completer) *LLMExtractor {
	return &LLMExtractor{llm: llm}
}

func (e *LLMExtractor) Extract(ctx context.Context, rawTerm string) (*ExtractedInfo, error) {
	term := strings.TrimSpace(rawTerm)
	if term == "" {
		term = unknownCondition
	}
	reply, err := e.llm.Complete(ctx, extractionSystemPrompt, fmt.Sprintf("Term: %q", term))
	if err != nil {
		return nil, err
	}
	return parseExtraction(reply)
}

func parseExtraction(reply string) (*ExtractedInfo, error) {
	var r extractionReply
	if err := decodeStrict(StageExtraction, reply, &r); err != nil {
		return nil, err
	}
	switch {
	case r.PrimaryCondition == nil || strings.TrimSpace(*r.PrimaryCondition) == "":
		return nil, &ParseError{Stage: StageExtraction, Reason: "required field", Err: missing("primary_condition")}
	case r.Symptoms == nil:
		return nil, &ParseError{Stage: StageExtraction, Reason: "required field", Err: missing("symptoms")}
	case r.BodySystem == nil:
		return nil, &ParseError{Stage: StageExtraction, Reason: "required field", Err: missing("body_system")}
	case r.AyushSystem == nil:
		return nil, &ParseError{Stage: StageExtraction, Reason: "required field", Err: missing("ayush_system")}
	}
	system := AyushSystem(*r.AyushSystem)
	if !system.Valid() {
		return nil, &ParseError{Stage: StageExtraction, Reason: fmt.Sprintf("unknown ayush_system %q", *r.AyushSystem)}
	}
	return &ExtractedInfo{
		PrimaryCondition: strings.TrimSpace(*r.PrimaryCondition),
		Symptoms:         r.Symptoms,
		BodySystem:       *r.BodySystem,
		AyushSystem:      system,
	}, nil
}

type mappingReply struct {
	ICDCode     *string  `json:"icd_code"`
	DiseaseName *string  `json:"disease_name"`
	Confidence  *float64 `json:"confidence"`
	Reasoning   *string  `json:"reasoning"`
}

// LLMMapper asks a language model for an ICD code.
type LLMMapper struct {
	llm Completer
}

func NewLLMMapper(llm Completer) *LLMMapper {
	return &LLMMapper{llm: llm}
}

func (m *LLMMapper) Map(ctx context.Context, info *ExtractedInfo) (*MappingCandidate, error) {
	if info == nil {
		return nil, missing("extracted info")
	}
	prompt := fmt.Sprintf("Condition: %q\nSystem: %s\nBody system: %s\nSymptoms: %s",
		info.PrimaryCondition, info.AyushSystem, info.BodySystem, strings.Join(info.Symptoms, ", "))
	reply, err := m.llm.Complete(ctx, mappingSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}
	return parseMapping(reply)
}

func parseMapping(reply string) (*MappingCandidate, error) {
	var r mappingReply
	if err := decodeStrict(StageMapping, reply, &r); err != nil {
		return nil, err
	}
	switch {
	case r.ICDCode == nil || strings.TrimSpace(*r.ICDCode) == "":
		return nil, &ParseError{Stage: StageMapping, Reason: "required field", Err: missing("icd_code")}
	case r.DiseaseName == nil || strings.TrimSpace(*r.DiseaseName) == "":
		return nil, &ParseError{Stage: StageMapping, Reason: "required field", Err: missing("disease_name")}
	case r.Confidence == nil:
		return nil, &ParseError{Stage: StageMapping, Reason: "required field", Err: missing("confidence")}
	case r.Reasoning == nil:
		return nil, &ParseError{Stage: StageMapping, Reason: "required field", Err: missing("reasoning")}
	}
	if err := checkConfidence(*r.Confidence); err != nil {
		return nil, &ParseError{Stage: StageMapping, Reason: "confidence", Err: err}
	}
	return &MappingCandidate{
		Code:        strings.TrimSpace(*r.ICDCode),
		DiseaseName: strings.TrimSpace(*r.DiseaseName),
		Confidence:  *r.Confidence,
		Reasoning:   *r.Reasoning,
	}, nil
}
