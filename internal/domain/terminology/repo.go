package terminology

import "context"

// ICDRepository provides access to ICD-10 reference codes.
type ICDRepository interface {
	Search(ctx context.Context, query string, limit, offset int) ([]*ICDCode, error)
	GetByCode(ctx context.Context, code string) (*ICDCode, error)
}
