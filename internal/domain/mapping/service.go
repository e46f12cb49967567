package mapping

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ayushmap/ayushmap/internal/platform/pipeline"
)

// Runner is the part of *pipeline.Pipeline the service depends on.
type Runner interface {
	Run(ctx context.Context, rawTerm string) (*pipeline.FinalResult, error)
}

type Service struct {
	repo     Repository
	pipeline Runner
	logger   zerolog.Logger
}

func NewService(repo Repository, p Runner, logger zerolog.Logger) *Service {
	return &Service{repo: repo, pipeline: p, logger: logger}
}

// MapTerm runs the pipeline for one term and stores the result for the user.
// Nothing is stored when any stage fails.
func (s *Service) MapTerm(ctx context.Context, userID uuid.UUID, term *string) (*MappingRecord, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	trimmed, err := validateTerm(term)
	if err != nil {
		return nil, err
	}

	result, err := s.pipeline.Run(ctx, trimmed)
	if err != nil {
		return nil, fmt.Errorf("map %q: %w", trimmed, err)
	}

	rec := &MappingRecord{
		UserID:      userID,
		AyushTerm:   result.AyushTerm,
		ICDCode:     result.ICDCode,
		DiseaseName: result.DiseaseName,
		Confidence:  result.Confidence,
		Explanation: result.Explanation,
		Source:      result.Source,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, &PersistenceError{Err: err}
	}

	s.logger.Info().
		Str("user_id", userID.String()).
		Str("mapping_id", rec.ID.String()).
		Str("icd_code", rec.ICDCode).
		Float64("confidence", rec.Confidence).
		Msg("mapping recorded")
	return rec, nil
}

// History lists the user's records newest first. limit 0 means all.
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*MappingRecord, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

func validateTerm(term *string) (string, error) {
	if term == nil {
		return "", fieldError("ayush_term", "This field is required.")
	}
	trimmed := strings.TrimSpace(*term)
	if trimmed == "" {
		return "", fieldError("ayush_term", "This field may not be blank.")
	}
	if utf8.RuneCountInString(trimmed) > MaxTermLength {
		return "", fieldError("ayush_term", fmt.Sprintf("Ensure this field has no more than %d characters.", MaxTermLength))
	}
	return trimmed, nil
}
