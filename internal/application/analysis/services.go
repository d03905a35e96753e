package analysis

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kp-analyzer/backend/internal/application"
	domain "github.com/kp-analyzer/backend/internal/domain/analysis"
	"github.com/kp-analyzer/backend/internal/domain/documents"
)

// Service implements use-cases for document intake and analysis runs.
// Service is designed to be used concurrently and is thread-safe.
type Service struct {
	Runs     domain.Repository
	Docs     documents.Repository
	Files    documents.Store
	AI       domain.Comparer
	Progress domain.ProgressStore
	Sim      *domain.Simulator
	Clock    application.Clock
	Log      *zap.Logger

	// HistoryLimit caps retained runs per tenant; oldest are evicted.
	HistoryLimit int

	mu      sync.Mutex
	cancels map[domain.RunID]context.CancelFunc
}

const defaultHistoryLimit = 50

//
// ==== USE CASES ====
//

// UploadDocumentCommand — one TZ or KP file coming in
type UploadDocumentCommand struct {
	TenantID    string
	Kind        string
	FileName    string
	ContentType string
	SizeBytes   int64
	Body        io.Reader
}

// UploadDocument stores the payload and records metadata.
func (s *Service) UploadDocument(ctx context.Context, cmd UploadDocumentCommand) (*documents.Document, error) {
	kind := documents.Kind(strings.ToLower(cmd.Kind))
	if kind != documents.KindTZ && kind != documents.KindKP {
		return nil, fmt.Errorf("invalid document kind: %s (allowed: tz, kp)", cmd.Kind)
	}
	if strings.TrimSpace(cmd.FileName) == "" {
		return nil, fmt.Errorf("file name is required")
	}

	id := documents.DocumentID(uuid.New().String())
	key := fmt.Sprintf("%s/%s/%s-%s", cmd.TenantID, kind, id, cmd.FileName)

	url, err := s.Files.Put(ctx, cmd.Body, cmd.SizeBytes, key, cmd.ContentType)
	if err != nil {
		return nil, fmt.Errorf("storing document: %w", err)
	}

	doc := &documents.Document{
		ID:          id,
		TenantID:    cmd.TenantID,
		Kind:        kind,
		FileName:    cmd.FileName,
		ContentType: cmd.ContentType,
		URL:         url,
		SizeBytes:   cmd.SizeBytes,
		UploadedAt:  s.Clock.Now(),
	}
	if err := s.Docs.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("saving document metadata: %w", err)
	}
	return doc, nil
}

// StartAnalysisCommand — TZ plus the KPs to compare against it
type StartAnalysisCommand struct {
	TenantID      string
	TZDocumentID  string
	KPDocumentIDs []string
}

// StartAnalysis creates a queued run. The caller is expected to kick off
// RunPipelineUntilDone in a goroutine so the HTTP response returns at once.
func (s *Service) StartAnalysis(ctx context.Context, cmd StartAnalysisCommand) (*domain.Run, error) {
	if cmd.TZDocumentID == "" {
		return nil, fmt.Errorf("tz_document_id is required")
	}
	if len(cmd.KPDocumentIDs) == 0 {
		return nil, fmt.Errorf("at least one kp_document_id is required")
	}

	tz, err := s.Docs.Get(ctx, cmd.TenantID, documents.DocumentID(cmd.TZDocumentID))
	if err != nil {
		return nil, err
	}
	if tz == nil || tz.Kind != documents.KindTZ {
		return nil, fmt.Errorf("document %s is not a TZ", cmd.TZDocumentID)
	}

	kpIDs := make([]documents.DocumentID, 0, len(cmd.KPDocumentIDs))
	for _, raw := range cmd.KPDocumentIDs {
		kp, err := s.Docs.Get(ctx, cmd.TenantID, documents.DocumentID(raw))
		if err != nil {
			return nil, err
		}
		if kp == nil || kp.Kind != documents.KindKP {
			return nil, fmt.Errorf("document %s is not a KP", raw)
		}
		kpIDs = append(kpIDs, kp.ID)
	}

	run := &domain.Run{
		ID:            domain.RunID(uuid.New().String()),
		TenantID:      cmd.TenantID,
		TZDocumentID:  tz.ID,
		KPDocumentIDs: kpIDs,
		Status:        domain.StatusQueued,
		Stage:         domain.StageUpload,
		CreatedAt:     s.Clock.Now(),
	}
	if err := s.Runs.SaveRun(ctx, run); err != nil {
		return nil, err
	}

	limit := s.HistoryLimit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if err := s.Runs.TrimHistory(ctx, cmd.TenantID, limit); err != nil {
		s.Log.Warn("history trim failed", zap.String("tenant", cmd.TenantID), zap.Error(err))
	}
	return run, nil
}

// RunPipelineUntilDone runs the pipeline with context.Background() so a
// closed HTTP request does not abort it; only Cancel does.
func (s *Service) RunPipelineUntilDone(run *domain.Run) {
	ctx, cancel := context.WithCancel(context.Background())
	s.registerCancel(run.ID, cancel)
	defer s.unregisterCancel(run.ID)

	if err := s.runPipeline(ctx, run); err != nil {
		status := domain.StatusFailed
		if ctx.Err() != nil {
			status = domain.StatusCancelled
		}
		s.Log.Error("analysis pipeline failed",
			zap.String("tenant", run.TenantID),
			zap.String("run_id", string(run.ID)),
			zap.String("status", string(status)),
			zap.Error(err))
		_ = s.Runs.UpdateRunStatus(context.Background(), run.TenantID, run.ID, status, run.Stage, err.Error())
		return
	}
	s.Log.Info("analysis finished",
		zap.String("tenant", run.TenantID),
		zap.String("run_id", string(run.ID)))
}

// Cancel flips the run to cancelled and signals the pipeline, which stops
// between steps. There is no timeout for stalled runs.
func (s *Service) Cancel(ctx context.Context, tenant string, id domain.RunID) error {
	s.mu.Lock()
	cancel, ok := s.cancels[id]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return s.Runs.UpdateRunStatus(ctx, tenant, id, domain.StatusCancelled, domain.Stage(""), "")
}

// Get one run by id
func (s *Service) Get(ctx context.Context, tenant string, id domain.RunID) (*domain.Run, error) {
	return s.Runs.GetRun(ctx, tenant, id)
}

// Latest N runs
func (s *Service) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Run, error) {
	return s.Runs.LatestRuns(ctx, tenant, limit)
}

// History returns the paginated capped run log.
func (s *Service) History(ctx context.Context, tenant string, page, pageSize int) (domain.PaginatedRuns, error) {
	return s.Runs.PaginateRuns(ctx, tenant, page, pageSize)
}

// Summary rekap of the last N days
func (s *Service) Summary(ctx context.Context, tenant string, sinceDays int) (domain.RunSummary, error) {
	return s.Runs.Summary(ctx, tenant, sinceDays)
}

// Results returns the stored results of a run in insertion order.
func (s *Service) Results(ctx context.Context, tenant string, id domain.RunID) ([]domain.Result, error) {
	return s.Runs.ResultsByRun(ctx, tenant, id)
}

// Ranking orders a run's results by the selected key and direction and
// attaches the average/best/worst summary.
func (s *Service) Ranking(ctx context.Context, tenant string, id domain.RunID, key domain.SortKey, dir domain.SortDir) ([]domain.Result, domain.RankingSummary, error) {
	results, err := s.Runs.ResultsByRun(ctx, tenant, id)
	if err != nil {
		return nil, domain.RankingSummary{}, err
	}
	return domain.Rank(results, key, dir), domain.Summarize(results), nil
}

// ProgressView bundles the raw reported state with the derived display values.
type ProgressView struct {
	State    *domain.ProgressState `json:"state,omitempty"`
	Snapshot domain.Snapshot       `json:"snapshot"`
}

// ProgressFor returns the latest stored progress plus its snapshot. A run
// with no stored progress yields a view with a nil state, not an error.
func (s *Service) ProgressFor(ctx context.Context, tenant string, id domain.RunID) (ProgressView, error) {
	state, err := s.Progress.Get(ctx, tenant, id)
	if err != nil {
		return ProgressView{}, err
	}
	return ProgressView{State: state, Snapshot: s.Sim.SnapshotState(state)}, nil
}

//
// ==== PIPELINE ====
//

func (s *Service) runPipeline(ctx context.Context, run *domain.Run) error {
	started := s.Clock.Now()

	if err := s.Runs.UpdateRunStatus(ctx, run.TenantID, run.ID, domain.StatusRunning, domain.StageUpload, ""); err != nil {
		return err
	}
	if err := s.publish(ctx, run, domain.StageUpload, 100, "Документы получены"); err != nil {
		return err
	}

	if err := s.step(ctx, run, domain.StageProcessing, "Извлечение текста документов"); err != nil {
		return err
	}

	// analysis stage: one comparison per KP, progress is the share done
	tz, err := s.Docs.Get(ctx, run.TenantID, run.TZDocumentID)
	if err != nil {
		return err
	}
	if tz == nil {
		return fmt.Errorf("tz document %s disappeared", run.TZDocumentID)
	}

	results := make([]domain.Result, 0, len(run.KPDocumentIDs))
	total := len(run.KPDocumentIDs)
	for i, kpID := range run.KPDocumentIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		task := fmt.Sprintf("Анализ предложения %d из %d", i+1, total)
		if err := s.publish(ctx, run, domain.StageAnalysis, float64(i)/float64(total)*100, task); err != nil {
			return err
		}

		kp, err := s.Docs.Get(ctx, run.TenantID, kpID)
		if err != nil {
			return err
		}
		if kp == nil {
			return fmt.Errorf("kp document %s disappeared", kpID)
		}

		res, err := s.AI.Compare(ctx, domain.CompareRequest{
			TZURL:    tz.URL,
			KPURL:    kp.URL,
			FileName: kp.FileName,
		})
		if err != nil {
			return fmt.Errorf("comparing %s: %w", kp.FileName, err)
		}
		res.ID = uuid.New().String()
		res.RunID = run.ID
		res.CreatedAt = s.Clock.Now()
		results = append(results, *res)
	}

	if err := s.step(ctx, run, domain.StageComparison, "Сводное сравнение с ТЗ"); err != nil {
		return err
	}
	if err := s.Runs.SaveResults(ctx, run.TenantID, run.ID, results); err != nil {
		return err
	}

	finished := s.Clock.Now()
	run.Status = domain.StatusCompleted
	run.Stage = domain.StageCompleted
	run.FinishedAt = &finished
	run.DurationMS = finished.Sub(started).Milliseconds()
	if err := s.Runs.SaveRun(ctx, run); err != nil {
		return err
	}
	return s.publish(ctx, run, domain.StageCompleted, 100, "Анализ завершён")
}

// step checks cancellation, records the stage and reports it at 0%.
func (s *Service) step(ctx context.Context, run *domain.Run, stage domain.Stage, task string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	run.Stage = stage
	if err := s.Runs.UpdateRunStatus(ctx, run.TenantID, run.ID, domain.StatusRunning, stage, ""); err != nil {
		return err
	}
	return s.publish(ctx, run, stage, 0, task)
}

func (s *Service) publish(ctx context.Context, run *domain.Run, stage domain.Stage, progress float64, task string) error {
	return s.Progress.Publish(ctx, run.TenantID, domain.ProgressState{
		RunID:       run.ID,
		Stage:       stage,
		Progress:    progress,
		CurrentTask: task,
		UpdatedAt:   s.Clock.Now(),
	})
}

func (s *Service) registerCancel(id domain.RunID, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancels == nil {
		s.cancels = make(map[domain.RunID]context.CancelFunc)
	}
	s.cancels[id] = cancel
}

func (s *Service) unregisterCancel(id domain.RunID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cancels, id)
}
