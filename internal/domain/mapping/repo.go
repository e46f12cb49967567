package mapping

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *MappingRecord) error
	// ListByUser returns the user's records newest first. A limit of zero
	// returns every record.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*MappingRecord, error)
}
