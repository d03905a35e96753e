package documents

import (
	"context"
	"io"
)

// Repository port for document metadata
type Repository interface {
	Save(ctx context.Context, d *Document) error
	Get(ctx context.Context, tenant string, id DocumentID) (*Document, error)
	Latest(ctx context.Context, tenant string, limit int) ([]*Document, error)
}

// Store port for document payloads (object storage)
type Store interface {
	Put(ctx context.Context, body io.Reader, size int64, key, contentType string) (string, error)
}
