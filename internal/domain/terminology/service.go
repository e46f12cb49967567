package terminology

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Service provides ICD reference search and lookup.
type Service struct {
	icd ICDRepository
}

func NewService(icd ICDRepository) *Service {
	return &Service{icd: icd}
}

// SearchICD searches reference codes by code prefix or display text.
func (s *Service) SearchICD(ctx context.Context, query string, limit, offset int) ([]*ICDCode, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query parameter is required")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.icd.Search(ctx, query, limit, offset)
}

// LookupICD returns a single code or ErrNotFound.
func (s *Service) LookupICD(ctx context.Context, code string) (*ICDCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("code is required")
	}
	return s.icd.GetByCode(ctx, code)
}

// CodeExists reports whether code is in the reference table. It backs the
// registry validation stage.
func (s *Service) CodeExists(ctx context.Context, code string) (bool, error) {
	_, err := s.LookupICD(ctx, code)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
