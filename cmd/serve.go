package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/casebridge/docintel/internal/analysis"
	"github.com/casebridge/docintel/internal/autofill"
	"github.com/casebridge/docintel/internal/completeness"
	"github.com/casebridge/docintel/internal/history"
	"github.com/casebridge/docintel/internal/model"
	"github.com/casebridge/docintel/internal/provider"
	"github.com/casebridge/docintel/internal/store"
)

var servePort int

// analysisJob tracks one asynchronous batch analysis.
type analysisJob struct {
	ID        string                                   `json:"id"`
	Status    string                                   `json:"status"` // running, complete
	CreatedAt time.Time                                `json:"created_at"`
	Results   map[string]*model.DocumentAnalysisResult `json:"results,omitempty"`
}

// jobStore holds in-flight and finished analysis jobs in memory. Jobs do not
// survive a restart; clients that need durability keep their own copy of the
// results.
type jobStore struct {
	mu   sync.RWMutex
	jobs map[string]*analysisJob
}

func newJobStore() *jobStore {
	return &jobStore{jobs: make(map[string]*analysisJob)}
}

func (s *jobStore) create() *analysisJob {
	job := &analysisJob{ID: uuid.New().String(), Status: "running", CreatedAt: time.Now().UTC()}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return job
}

func (s *jobStore) complete(id string, results map[string]*model.DocumentAnalysisResult) {
	s.mu.Lock()
	if job, ok := s.jobs[id]; ok {
		job.Status = "complete"
		job.Results = results
	}
	s.mu.Unlock()
}

// get returns a snapshot of the job so encoding never races a completion.
func (s *jobStore) get(id string) (analysisJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return analysisJob{}, false
	}
	return *job, true
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the document intelligence HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		svc, router, err := initAnalysis()
		if err != nil {
			return err
		}
		engine, err := initAutofill()
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close() //nolint:errcheck

		jobs := newJobStore()
		mux := newServeMux(ctx, svc, router, engine, st, jobs)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(),
				time.Duration(cfg.Server.ShutdownTimeoutSecs)*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newServeMux builds the API routes. Split out of the command for testing.
func newServeMux(ctx context.Context, svc *analysis.Service, router *provider.Router, engine *autofill.Engine, st store.Store, jobs *jobStore) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		breakers := make(map[string]string)
		for name, state := range router.BreakerStates() {
			breakers[name] = state.String()
		}
		status := "ok"
		if err := st.Ping(req.Context()); err != nil {
			status = "degraded"
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   status,
			"mode":     string(router.Mode()),
			"breakers": breakers,
		})
	})

	r.Post("/analyze", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Documents map[string]manifestEntry `json:"documents"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(body.Documents) == 0 {
			writeError(w, http.StatusBadRequest, "documents is required")
			return
		}

		refs := make(map[string]analysis.DocumentRef, len(body.Documents))
		for id, e := range body.Documents {
			refs[id] = analysis.DocumentRef{Bucket: e.Bucket, Path: e.Path, DocumentType: e.DocumentType}
		}

		job := jobs.create()
		// Run against the server context, not the request context, so the
		// batch survives the client disconnecting.
		go func() {
			results := svc.AnalyzeBatch(ctx, refs, func(documentID string, stage analysis.Stage, percent int, message string) {
				zap.L().Debug("analysis progress",
					zap.String("job", job.ID),
					zap.String("document", documentID),
					zap.String("stage", string(stage)),
					zap.Int("percent", percent),
				)
			})
			jobs.complete(job.ID, results)
			zap.L().Info("analysis job complete",
				zap.String("job", job.ID),
				zap.Int("documents", len(results)),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"job_id": job.ID,
			"status": "accepted",
		})
	})

	r.Get("/jobs/{jobID}", func(w http.ResponseWriter, req *http.Request) {
		job, ok := jobs.get(chi.URLParam(req, "jobID"))
		if !ok {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeJSON(w, http.StatusOK, job)
	})

	r.Post("/autofill", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			FormType       string                         `json:"form_type"`
			Documents      []model.DocumentAnalysisResult `json:"documents"`
			Citations      []model.Citation               `json:"citations,omitempty"`
			ExistingValues map[string]string              `json:"existing_values,omitempty"`
			VisaType       string                         `json:"visa_type,omitempty"`
			Relationship   string                         `json:"relationship,omitempty"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.FormType == "" {
			writeError(w, http.StatusBadRequest, "form_type is required")
			return
		}

		in := autofill.Input{
			ExistingValues: body.ExistingValues,
			VisaType:       body.VisaType,
			Relationship:   body.Relationship,
		}
		result, err := engine.Autofill(req.Context(), body.FormType, body.Documents, body.Citations, in)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, autofillOutput{
			Result: result,
			Stats:  engine.Stats(result),
			Gaps:   engine.Gaps(result, body.Documents),
		})
	})

	r.Post("/history", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Documents []model.DocumentAnalysisResult `json:"documents"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		writeJSON(w, http.StatusOK, historyOutput{
			Addresses:  history.BuildAddressHistory(body.Documents),
			Employment: history.BuildEmploymentHistory(body.Documents),
			Education:  history.BuildEducationHistory(body.Documents),
		})
	})

	r.Get("/cases/{caseID}/completeness", func(w http.ResponseWriter, req *http.Request) {
		caseID := chi.URLParam(req, "caseID")
		result, err := completeness.NewAnalyzer(st).Analyze(req.Context(), caseID)
		if err != nil {
			if eris.Is(err, store.ErrCaseNotFound) {
				writeError(w, http.StatusNotFound, "case not found")
				return
			}
			zap.L().Error("completeness analysis failed", zap.String("case", caseID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "completeness analysis failed")
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
