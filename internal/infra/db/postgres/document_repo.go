package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kp-analyzer/backend/internal/domain/documents"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Save(ctx context.Context, d *documents.Document) error {
	const q = `
INSERT INTO documents
  (id, tenant_id, kind, file_name, content_type, url, size_bytes, uploaded_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  file_name=EXCLUDED.file_name, content_type=EXCLUDED.content_type,
  url=EXCLUDED.url, size_bytes=EXCLUDED.size_bytes;
`
	uploaded := d.UploadedAt
	if uploaded.IsZero() {
		uploaded = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		d.ID, stringOrDash(d.TenantID), stringOrDash(string(d.Kind)), stringOrDash(d.FileName),
		d.ContentType, d.URL, d.SizeBytes, uploaded,
	)
	return err
}

func (r *DocumentRepository) Get(ctx context.Context, tenant string, id documents.DocumentID) (*documents.Document, error) {
	const q = `
SELECT id, tenant_id, kind, file_name, content_type, url, size_bytes, uploaded_at
FROM documents
WHERE tenant_id=$1 AND id=$2 LIMIT 1;
`
	var d documents.Document
	err := r.db.QueryRowContext(ctx, q, tenant, id).Scan(
		&d.ID, &d.TenantID, &d.Kind, &d.FileName, &d.ContentType, &d.URL, &d.SizeBytes, &d.UploadedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DocumentRepository) Latest(ctx context.Context, tenant string, limit int) ([]*documents.Document, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, tenant_id, kind, file_name, content_type, url, size_bytes, uploaded_at
FROM documents
WHERE tenant_id=$1 ORDER BY uploaded_at DESC, id DESC LIMIT $2;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*documents.Document
	for rows.Next() {
		var d documents.Document
		if err := rows.Scan(&d.ID, &d.TenantID, &d.Kind, &d.FileName, &d.ContentType, &d.URL, &d.SizeBytes, &d.UploadedAt); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
