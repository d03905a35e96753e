package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	domain "github.com/kp-analyzer/backend/internal/domain/analysis"
	"github.com/kp-analyzer/backend/internal/domain/documents"
)

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `id, tenant_id, tz_document_id, kp_document_ids, status, stage, error, created_at, finished_at, duration_ms`

// SaveRun inserts or upserts a run record
func (r *RunRepository) SaveRun(ctx context.Context, run *domain.Run) error {
	const q = `
INSERT INTO analysis_runs
  (id, tenant_id, tz_document_id, kp_document_ids, status, stage, error, created_at, finished_at, duration_ms)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  status=EXCLUDED.status, stage=EXCLUDED.stage, error=EXCLUDED.error,
  finished_at=EXCLUDED.finished_at, duration_ms=EXCLUDED.duration_ms;
`
	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	kpIDs := make([]string, len(run.KPDocumentIDs))
	for i, id := range run.KPDocumentIDs {
		kpIDs[i] = string(id)
	}
	_, err := r.db.ExecContext(ctx, q,
		run.ID, stringOrDash(run.TenantID), run.TZDocumentID, marshalStrings(kpIDs),
		stringOrDash(string(run.Status)), stringOrDash(string(run.Stage)), run.Error,
		created, run.FinishedAt, run.DurationMS,
	)
	return err
}

func (r *RunRepository) GetRun(ctx context.Context, tenant string, id domain.RunID) (*domain.Run, error) {
	q := `SELECT ` + runColumns + ` FROM analysis_runs WHERE tenant_id=$1 AND id=$2 LIMIT 1;`
	run, err := scanRun(r.db.QueryRowContext(ctx, q, tenant, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRunNotFound
	}
	return run, err
}

func (r *RunRepository) LatestRuns(ctx context.Context, tenant string, limit int) ([]*domain.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + runColumns + ` FROM analysis_runs WHERE tenant_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2;`
	rows, err := r.db.QueryContext(ctx, q, tenant, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRuns(rows)
}

func (r *RunRepository) PaginateRuns(ctx context.Context, tenant string, page, pageSize int) (domain.PaginatedRuns, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	q := `SELECT ` + runColumns + ` FROM analysis_runs WHERE tenant_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3;`
	rows, err := r.db.QueryContext(ctx, q, tenant, pageSize, offset)
	if err != nil {
		return domain.PaginatedRuns{}, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs, err := collectRuns(rows)
	if err != nil {
		return domain.PaginatedRuns{}, err
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analysis_runs WHERE tenant_id=$1;`, tenant).Scan(&total); err != nil {
		return domain.PaginatedRuns{}, fmt.Errorf("counting runs: %w", err)
	}

	return domain.PaginatedRuns{
		Data:       runs,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

func (r *RunRepository) UpdateRunStatus(ctx context.Context, tenant string, id domain.RunID, status domain.Status, stage domain.Stage, errMsg string) error {
	if stage == "" {
		const q = `UPDATE analysis_runs SET status=$1, error=$2 WHERE tenant_id=$3 AND id=$4;`
		_, err := r.db.ExecContext(ctx, q, status, errMsg, tenant, id)
		return err
	}
	const q = `UPDATE analysis_runs SET status=$1, stage=$2, error=$3 WHERE tenant_id=$4 AND id=$5;`
	_, err := r.db.ExecContext(ctx, q, status, stage, errMsg, tenant, id)
	return err
}

func (r *RunRepository) SaveResults(ctx context.Context, tenant string, runID domain.RunID, results []domain.Result) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM analysis_results WHERE tenant_id=$1 AND run_id=$2;`, tenant, runID); err != nil {
		return err
	}
	const q = `
INSERT INTO analysis_results
  (id, run_id, tenant_id, company_name, file_name, compliance_score,
   technical, commercial, experience,
   strengths, weaknesses, recommendations, created_at, position)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14);
`
	for i, res := range results {
		created := res.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		_, err := r.db.ExecContext(ctx, q,
			res.ID, runID, tenant, stringOrDash(res.CompanyName), stringOrDash(res.FileName), res.ComplianceScore,
			res.Scores.Technical, res.Scores.Commercial, res.Scores.Experience,
			marshalStrings(res.Strengths), marshalStrings(res.Weaknesses), marshalStrings(res.Recommendations),
			created, i,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *RunRepository) ResultsByRun(ctx context.Context, tenant string, runID domain.RunID) ([]domain.Result, error) {
	const q = `
SELECT id, run_id, company_name, file_name, compliance_score,
       technical, commercial, experience,
       strengths, weaknesses, recommendations, created_at
FROM analysis_results
WHERE tenant_id=$1 AND run_id=$2
ORDER BY position ASC;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Result
	for rows.Next() {
		var res domain.Result
		var strengths, weaknesses, recs string
		if err := rows.Scan(
			&res.ID, &res.RunID, &res.CompanyName, &res.FileName, &res.ComplianceScore,
			&res.Scores.Technical, &res.Scores.Commercial, &res.Scores.Experience,
			&strengths, &weaknesses, &recs, &res.CreatedAt,
		); err != nil {
			return nil, err
		}
		res.Strengths = unmarshalStrings(strengths)
		res.Weaknesses = unmarshalStrings(weaknesses)
		res.Recommendations = unmarshalStrings(recs)
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *RunRepository) Summary(ctx context.Context, tenant string, sinceDays int) (domain.RunSummary, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	cut := time.Now().AddDate(0, 0, -sinceDays)

	const q = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE status='completed'),
       COUNT(*) FILTER (WHERE status='failed')
FROM analysis_runs
WHERE tenant_id=$1 AND created_at >= $2;
`
	var s domain.RunSummary
	if err := r.db.QueryRowContext(ctx, q, tenant, cut).Scan(&s.TotalRuns, &s.Completed, &s.Failed); err != nil {
		return domain.RunSummary{}, err
	}

	const avgQ = `
SELECT COALESCE(AVG(res.compliance_score),0)
FROM analysis_results res
JOIN analysis_runs a ON a.id = res.run_id
WHERE a.tenant_id=$1 AND a.created_at >= $2;
`
	if err := r.db.QueryRowContext(ctx, avgQ, tenant, cut).Scan(&s.AverageScore); err != nil {
		return domain.RunSummary{}, err
	}
	return s, nil
}

func (r *RunRepository) TrimHistory(ctx context.Context, tenant string, keep int) error {
	if keep <= 0 {
		return nil
	}
	const resQ = `
DELETE FROM analysis_results
WHERE tenant_id=$1 AND run_id NOT IN (
  SELECT id FROM analysis_runs WHERE tenant_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2
);`
	if _, err := r.db.ExecContext(ctx, resQ, tenant, keep); err != nil {
		return err
	}
	const runQ = `
DELETE FROM analysis_runs
WHERE tenant_id=$1 AND id NOT IN (
  SELECT id FROM analysis_runs WHERE tenant_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2
);`
	_, err := r.db.ExecContext(ctx, runQ, tenant, keep)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.Run, error) {
	var run domain.Run
	var kpIDs string
	var finished sql.NullTime
	if err := row.Scan(
		&run.ID, &run.TenantID, &run.TZDocumentID, &kpIDs, &run.Status, &run.Stage, &run.Error,
		&run.CreatedAt, &finished, &run.DurationMS,
	); err != nil {
		return nil, err
	}
	for _, id := range unmarshalStrings(kpIDs) {
		run.KPDocumentIDs = append(run.KPDocumentIDs, documents.DocumentID(id))
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}

func collectRuns(rows *sql.Rows) ([]*domain.Run, error) {
	var out []*domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
