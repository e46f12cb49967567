package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Pipeline runs the stages in fixed order. It is immutable after
// construction and may be shared by concurrent requests.
type Pipeline struct {
	extractor    Extractor
	mapper       Mapper
	validator    Validator
	stageTimeout time.Duration
	logger       zerolog.Logger
}

// New builds a pipeline. A zero stageTimeout leaves stages bounded only by
// the caller's context.
func New(extractor Extractor, mapper Mapper, validator Validator, stageTimeout time.Duration, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		extractor:    extractor,
		mapper:       mapper,
		validator:    validator,
		stageTimeout: stageTimeout,
		logger:       logger,
	}
}

// NewMock builds a pipeline wired entirely to the mock backends.
func NewMock(vocab *Vocabulary, logger zerolog.Logger) *Pipeline {
	return New(NewMockExtractor(vocab), NewMockMapper(vocab), NewMockValidator(), 0, logger)
}

// Run maps one raw term. Any failure is returned as a *StageError and no
// partial result is produced.
func (p *Pipeline) Run(ctx context.Context, rawTerm string) (*FinalResult, error) {
	var info *ExtractedInfo
	err := p.stage(ctx, StageExtraction, func(ctx context.Context) error {
		var err error
		info, err = p.extractor.Extract(ctx, rawTerm)
		return err
	})
	if err != nil {
		return nil, err
	}

	var cand *MappingCandidate
	err = p.stage(ctx, StageMapping, func(ctx context.Context) error {
		var err error
		cand, err = p.mapper.Map(ctx, info)
		if err == nil {
			err = checkCandidate(cand)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	var val *ValidationResult
	err = p.stage(ctx, StageValidation, func(ctx context.Context) error {
		var err error
		val, err = p.validator.Validate(ctx, cand.Code, cand.DiseaseName)
		return err
	})
	if err != nil {
		return nil, err
	}

	result, err := Format(rawTerm, info, cand, val)
	if err != nil {
		return nil, &StageError{Stage: StageOutput, Err: err}
	}

	p.logger.Debug().
		Str("term", result.AyushTerm).
		Str("icd_code", result.ICDCode).
		Float64("confidence", result.Confidence).
		Bool("valid", result.Valid).
		Msg("term mapped")
	return result, nil
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	if p.stageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.stageTimeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", ErrStageTimeout, err)
		}
		p.logger.Warn().Err(err).Str("stage", name).Dur("elapsed", time.Since(start)).Msg("pipeline stage failed")
		return &StageError{Stage: name, Err: err}
	}
	return nil
}

func checkCandidate(c *MappingCandidate) error {
	if c == nil {
		return missing("mapping candidate")
	}
	if c.Code == "" {
		return missing("icd_code")
	}
	if c.DiseaseName == "" {
		return missing("disease_name")
	}
	return checkConfidence(c.Confidence)
}
