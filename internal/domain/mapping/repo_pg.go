package mapping

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayushmap/ayushmap/internal/platform/db"
)

type mappingRepoPG struct {
	pool *pgxpool.Pool
}

func NewMappingRepoPG(pool *pgxpool.Pool) Repository {
	return &mappingRepoPG{pool: pool}
}

const mappingCols = `id, user_id, ayush_term, icd_code, disease_name, confidence, explanation, source, created_at`

func (r *mappingRepoPG) Create(ctx context.Context, m *MappingRecord) error {
	m.ID = uuid.New()
	m.CreatedAt = time.Now().UTC()

	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO mapping_records (`+mappingCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.UserID, m.AyushTerm, m.ICDCode, m.DiseaseName, m.Confidence,
		m.Explanation, m.Source, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert mapping record: %w", err)
	}
	return nil
}

func (r *mappingRepoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*MappingRecord, error) {
	query := `SELECT ` + mappingCols + ` FROM mapping_records
		WHERE user_id = $1
		ORDER BY created_at DESC, seq DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list mapping records: %w", err)
	}
	defer rows.Close()

	var records []*MappingRecord
	for rows.Next() {
		var m MappingRecord
		if err := rows.Scan(&m.ID, &m.UserID, &m.AyushTerm, &m.ICDCode, &m.DiseaseName,
			&m.Confidence, &m.Explanation, &m.Source, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan mapping record: %w", err)
		}
		records = append(records, &m)
	}
	return records, rows.Err()
}
