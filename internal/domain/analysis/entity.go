package analysis

import (
	"time"

	"github.com/kp-analyzer/backend/internal/domain/documents"
)

// RunID tipe untuk analysis run
type RunID string

// Stage enum — coarse pipeline phases reported while a run executes
type Stage string

const (
	StageUpload     Stage = "upload"
	StageProcessing Stage = "processing"
	StageAnalysis   Stage = "analysis"
	StageComparison Stage = "comparison"
	StageCompleted  Stage = "completed"
)

// Stages lists the pipeline stages in reporting order.
var Stages = []Stage{StageUpload, StageProcessing, StageAnalysis, StageComparison, StageCompleted}

// Status enum
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Scores value object — named sub-scores assigned by the AI comparison,
// each 0-100 and independently meaningful. They are not required to
// average into the compliance score.
type Scores struct {
	Technical  int `json:"technical"`
	Commercial int `json:"commercial"`
	Experience int `json:"experience"`
}

// Result is one evaluated commercial proposal (KP). Created once when the
// comparison finishes and replaced wholesale, never patched field by field.
type Result struct {
	ID              string    `json:"id"`
	RunID           RunID     `json:"run_id"`
	CompanyName     string    `json:"company_name"`
	FileName        string    `json:"file_name"`
	ComplianceScore int       `json:"compliance_score"`
	Scores          Scores    `json:"scores"`
	Strengths       []string  `json:"strengths"`
	Weaknesses      []string  `json:"weaknesses"`
	Recommendations []string  `json:"recommendations"`
	CreatedAt       time.Time `json:"created_at"`
}

// Aggregate Root: Run — one comparison of a TZ against a set of KPs
type Run struct {
	ID            RunID                  `json:"id"`
	TenantID      string                 `json:"tenant_id"`
	TZDocumentID  documents.DocumentID   `json:"tz_document_id"`
	KPDocumentIDs []documents.DocumentID `json:"kp_document_ids"`
	Status        Status                 `json:"status"`
	Stage         Stage                  `json:"stage"`
	Error         string                 `json:"error,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	FinishedAt    *time.Time             `json:"finished_at,omitempty"`
	DurationMS    int64                  `json:"duration_ms"`
}

// RunSummary rekap for the dashboard header
type RunSummary struct {
	TotalRuns    int     `json:"total_runs"`
	Completed    int     `json:"completed"`
	Failed       int     `json:"failed"`
	AverageScore float64 `json:"average_score"`
}
