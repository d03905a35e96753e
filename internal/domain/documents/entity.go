package documents

import "time"

// DocumentID identifier type
type DocumentID string

// Kind enum — what role the uploaded file plays in a comparison
type Kind string

const (
	KindTZ Kind = "tz" // technical specification (Техническое Задание)
	KindKP Kind = "kp" // commercial proposal (Коммерческое Предложение)
)

// Document represents an uploaded file stored for analysis
type Document struct {
	ID          DocumentID `json:"id"`
	TenantID    string     `json:"tenant_id"`
	Kind        Kind       `json:"kind"`
	FileName    string     `json:"file_name"`
	ContentType string     `json:"content_type,omitempty"`
	URL         string     `json:"url"`
	SizeBytes   int64      `json:"size_bytes"`
	UploadedAt  time.Time  `json:"uploaded_at"`
}
