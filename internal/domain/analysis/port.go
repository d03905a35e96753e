package analysis

import "context"

// Repository port (interface untuk persistence)
type Repository interface {
	SaveRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, tenant string, id RunID) (*Run, error)
	LatestRuns(ctx context.Context, tenant string, limit int) ([]*Run, error)
	PaginateRuns(ctx context.Context, tenant string, page, pageSize int) (PaginatedRuns, error)
	UpdateRunStatus(ctx context.Context, tenant string, id RunID, status Status, stage Stage, errMsg string) error
	SaveResults(ctx context.Context, tenant string, runID RunID, results []Result) error
	ResultsByRun(ctx context.Context, tenant string, runID RunID) ([]Result, error)
	Summary(ctx context.Context, tenant string, sinceDays int) (RunSummary, error)

	// TrimHistory evicts the oldest runs beyond keep. History is a capped
	// ordered log, not an unbounded archive.
	TrimHistory(ctx context.Context, tenant string, keep int) error
}

// CompareRequest untuk Comparer
type CompareRequest struct {
	TZURL    string
	KPURL    string
	FileName string
}

// Comparer port (interface for the AI comparison service)
type Comparer interface {
	Compare(ctx context.Context, req CompareRequest) (*Result, error)
}

// ProgressStore port — latest reported ProgressState per run
type ProgressStore interface {
	Publish(ctx context.Context, tenant string, state ProgressState) error
	Get(ctx context.Context, tenant string, runID RunID) (*ProgressState, error)
	Clear(ctx context.Context, tenant string, runID RunID) error
}
