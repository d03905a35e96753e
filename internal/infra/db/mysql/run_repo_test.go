package mysql

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/kp-analyzer/backend/internal/domain/analysis"
	"github.com/kp-analyzer/backend/internal/domain/documents"
)

func TestRunRepository_SaveRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRunRepository(db)

	mock.ExpectExec("INSERT INTO analysis_runs").
		WithArgs("run-1", "acme", "tz-1", `["kp-1","kp-2"]`, "queued", "upload", "",
			sqlmock.AnyArg(), nil, int64(0)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.SaveRun(context.Background(), &domain.Run{
		ID:            "run-1",
		TenantID:      "acme",
		TZDocumentID:  "tz-1",
		KPDocumentIDs: documentsID("kp-1", "kp-2"),
		Status:        domain.StatusQueued,
		Stage:         domain.StageUpload,
		CreatedAt:     time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepository_GetRun_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRunRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM analysis_runs").
		WithArgs("acme", "missing").
		WillReturnRows(sqlmock.NewRows(runColumnNames()))

	_, err = repo.GetRun(context.Background(), "acme", "missing")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepository_GetRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRunRepository(db)

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(runColumnNames()).
		AddRow("run-1", "acme", "tz-1", `["kp-1"]`, "completed", "completed", "", created, created.Add(time.Minute), int64(60000))
	mock.ExpectQuery("SELECT (.+) FROM analysis_runs").
		WithArgs("acme", "run-1").
		WillReturnRows(rows)

	run, err := repo.GetRun(context.Background(), "acme", "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, run.Status)
	assert.Len(t, run.KPDocumentIDs, 1)
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, int64(60000), run.DurationMS)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepository_TrimHistory(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRunRepository(db)

	mock.ExpectExec("DELETE FROM analysis_results").
		WithArgs("acme", "acme", 50).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM analysis_runs").
		WithArgs("acme", "acme", 50).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.TrimHistory(context.Background(), "acme", 50))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepository_TrimHistory_NonPositiveKeepIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRunRepository(db)

	require.NoError(t, repo.TrimHistory(context.Background(), "acme", 0))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepository_SaveResults(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRunRepository(db)

	mock.ExpectExec("DELETE FROM analysis_results").
		WithArgs("acme", "run-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO analysis_results").
		WithArgs("res-1", "run-1", "acme", "ООО Ромашка", "kp1.pdf", 87,
			90, 70, 85,
			`["опыт"]`, "[]", "[]", sqlmock.AnyArg(), 0).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.SaveResults(context.Background(), "acme", "run-1", []domain.Result{{
		ID:              "res-1",
		CompanyName:     "ООО Ромашка",
		FileName:        "kp1.pdf",
		ComplianceScore: 87,
		Scores:          domain.Scores{Technical: 90, Commercial: 70, Experience: 85},
		Strengths:       []string{"опыт"},
	}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepository_ResultsByRun_OrderPreserved(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRunRepository(db)

	cols := []string{"id", "run_id", "company_name", "file_name", "compliance_score",
		"technical", "commercial", "experience",
		"strengths", "weaknesses", "recommendations", "created_at"}
	now := time.Now()
	rows := sqlmock.NewRows(cols).
		AddRow("res-1", "run-1", "Авто", "a.pdf", 50, 1, 2, 3, `["x"]`, "[]", "[]", now).
		AddRow("res-2", "run-1", "Банан", "b.pdf", 70, 4, 5, 6, "[]", "[]", "[]", now)
	mock.ExpectQuery("SELECT (.+) FROM analysis_results").
		WithArgs("acme", "run-1").
		WillReturnRows(rows)

	out, err := repo.ResultsByRun(context.Background(), "acme", "run-1")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Авто", out[0].CompanyName)
	assert.Equal(t, []string{"x"}, out[0].Strengths)
	assert.Equal(t, "Банан", out[1].CompanyName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func runColumnNames() []string {
	return []string{"id", "tenant_id", "tz_document_id", "kp_document_ids", "status", "stage", "error", "created_at", "finished_at", "duration_ms"}
}

func documentsID(ids ...string) []documents.DocumentID {
	out := make([]documents.DocumentID, len(ids))
	for i, s := range ids {
		out[i] = documents.DocumentID(s)
	}
	return out
}
