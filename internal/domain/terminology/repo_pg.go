package terminology

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayushmap/ayushmap/internal/platform/db"
)

type icdRepoPG struct{ pool *pgxpool.Pool }

func NewICDRepoPG(pool *pgxpool.Pool) ICDRepository { return &icdRepoPG{pool: pool} }

const icdColumns = `code, display, chapter, body_system, system_uri`

func (r *icdRepoPG) Search(ctx context.Context, query string, limit, offset int) ([]*ICDCode, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + query + "%"
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+icdColumns+`
		 FROM reference_icd
		 WHERE code ILIKE $1 OR display ILIKE $1
		 ORDER BY code LIMIT $2 OFFSET $3`, pattern, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("icd search: %w", err)
	}
	defer rows.Close()

	var results []*ICDCode
	for rows.Next() {
		var c ICDCode
		if err := rows.Scan(&c.Code, &c.Display, &c.Chapter, &c.BodySystem, &c.SystemURI); err != nil {
			return nil, fmt.Errorf("icd scan: %w", err)
		}
		results = append(results, &c)
	}
	return results, rows.Err()
}

func (r *icdRepoPG) GetByCode(ctx context.Context, code string) (*ICDCode, error) {
	var c ICDCode
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+icdColumns+` FROM reference_icd WHERE UPPER(code) = UPPER($1)`, code).
		Scan(&c.Code, &c.Display, &c.Chapter, &c.BodySystem, &c.SystemURI)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("icd get: %w", err)
	}
	return &c, nil
}
