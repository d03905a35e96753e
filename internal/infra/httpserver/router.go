package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appanalysis "github.com/kp-analyzer/backend/internal/application/analysis"
	domain "github.com/kp-analyzer/backend/internal/domain/analysis"
	"github.com/kp-analyzer/backend/internal/middleware"
)

const maxUploadBytes = 32 << 20 // 32 MiB per document

type Router struct {
	svc *appanalysis.Service
	log *zap.Logger
}

func NewRouter(svc *appanalysis.Service, log *zap.Logger) http.Handler {
	r := &Router{svc: svc, log: log}
	mux := chi.NewRouter()

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Post("/documents", r.wrap(r.handleUploadDocument))
		rt.Post("/analyses", r.wrap(r.handleStartAnalysis))
		rt.Get("/analyses/latest", r.wrap(r.handleLatest))
		rt.Get("/analyses/{id}", r.wrap(r.handleGet))
		rt.Get("/analyses/{id}/progress", r.wrap(r.handleProgress))
		rt.Get("/analyses/{id}/ranking", r.wrap(r.handleRanking))
		rt.Post("/analyses/{id}/cancel", r.wrap(r.handleCancel))
		rt.Get("/history", r.wrap(r.handleHistory))
		rt.Get("/summary", r.wrap(r.handleSummary))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequestError marks caller mistakes so wrap answers 400 instead of 500.
type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			var br *badRequestError
			switch {
			case errors.As(err, &br):
				http.Error(w, br.msg, http.StatusBadRequest)
			case errors.Is(err, domain.ErrRunNotFound), errors.Is(err, sql.ErrNoRows):
				http.Error(w, "not found", http.StatusNotFound)
			case errors.Is(err, domain.ErrQuotaExceeded):
				http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// POST /v1/{tenant}/documents
// multipart form: file=<payload>, kind=tz|kp
func (r *Router) handleUploadDocument(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	if err := middleware.ValidateTenantID(tenant); err != nil {
		return badRequest("%v", err)
	}

	req.Body = http.MaxBytesReader(w, req.Body, maxUploadBytes)
	if err := req.ParseMultipartForm(maxUploadBytes); err != nil {
		return badRequest("parsing multipart form: %v", err)
	}

	kind := req.FormValue("kind")
	if err := middleware.ValidateDocumentKind(kind); err != nil {
		return badRequest("%v", err)
	}

	file, header, err := req.FormFile("file")
	if err != nil {
		return badRequest("file field is required: %v", err)
	}
	defer file.Close()

	if err := middleware.ValidateFileName(header.Filename); err != nil {
		return badRequest("%v", err)
	}

	doc, err := r.svc.UploadDocument(req.Context(), appanalysis.UploadDocumentCommand{
		TenantID:    tenant,
		Kind:        kind,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		SizeBytes:   header.Size,
		Body:        file,
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, doc)
}

// POST /v1/{tenant}/analyses
// Body: {"tz_document_id": "...", "kp_document_ids": ["...", ...]}
func (r *Router) handleStartAnalysis(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var body struct {
		TZDocumentID  string   `json:"tz_document_id"`
		KPDocumentIDs []string `json:"kp_document_ids"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest("decoding request body: %v", err)
	}

	run, err := r.svc.StartAnalysis(req.Context(), appanalysis.StartAnalysisCommand{
		TenantID:      tenant,
		TZDocumentID:  body.TZDocumentID,
		KPDocumentIDs: body.KPDocumentIDs,
	})
	if err != nil {
		return badRequest("%v", err)
	}

	// run the pipeline in the background so the client gets its run id at once
	middleware.IncrementAnalyses()
	go func() {
		middleware.IncrementAnalysesRunning()
		defer middleware.DecrementAnalysesRunning()
		r.svc.RunPipelineUntilDone(run)
		if final, err := r.svc.Get(context.Background(), tenant, run.ID); err == nil && final.Status == domain.StatusFailed {
			middleware.IncrementAnalysesFailed()
		}
	}()

	return writeJSON(w, http.StatusAccepted, map[string]any{
		"id":       string(run.ID),
		"status":   string(run.Status),
		"tenant":   tenant,
		"message":  "analysis started in background",
		"queuedAt": time.Now(),
	})
}

// GET /v1/{tenant}/analyses/latest?limit=20
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.svc.Latest(req.Context(), tenant, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/{tenant}/analyses/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := domain.RunID(chi.URLParam(req, "id"))

	run, err := r.svc.Get(req.Context(), tenant, id)
	if err != nil {
		return err
	}
	results, err := r.svc.Results(req.Context(), tenant, id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"run":     run,
		"results": results,
	})
}

// GET /v1/{tenant}/analyses/{id}/progress
func (r *Router) handleProgress(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := domain.RunID(chi.URLParam(req, "id"))

	view, err := r.svc.ProgressFor(req.Context(), tenant, id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, view)
}

// GET /v1/{tenant}/analyses/{id}/ranking?sort=score&dir=desc
func (r *Router) handleRanking(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := domain.RunID(chi.URLParam(req, "id"))
	key := domain.ParseSortKey(req.URL.Query().Get("sort"))
	dir := domain.ParseSortDir(req.URL.Query().Get("dir"))

	ranked, summary, err := r.svc.Ranking(req.Context(), tenant, id, key, dir)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"sort":    string(key),
		"dir":     string(dir),
		"results": ranked,
		"summary": summary,
	})
}

// POST /v1/{tenant}/analyses/{id}/cancel
func (r *Router) handleCancel(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := domain.RunID(chi.URLParam(req, "id"))

	if err := r.svc.Cancel(req.Context(), tenant, id); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"id":     string(id),
		"status": string(domain.StatusCancelled),
	})
}

// GET /v1/{tenant}/history?page=&page_size=
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.svc.History(req.Context(), tenant, page, size)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/{tenant}/summary?days=7
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))

	summary, err := r.svc.Summary(req.Context(), tenant, middleware.ValidateDays(days))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, summary)
}
