// Package main implements the Matchwise API server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/MatchwiseAI/matchwise-mvp/engine/compare"
	"github.com/MatchwiseAI/matchwise-mvp/engine/domain"
	"github.com/MatchwiseAI/matchwise-mvp/engine/extract"
	"github.com/MatchwiseAI/matchwise-mvp/engine/heatmap"
	"github.com/MatchwiseAI/matchwise-mvp/engine/ingest"
	"github.com/MatchwiseAI/matchwise-mvp/engine/match"
	"github.com/MatchwiseAI/matchwise-mvp/engine/rag"
	"github.com/MatchwiseAI/matchwise-mvp/engine/semantic"
	"github.com/MatchwiseAI/matchwise-mvp/pkg/gemini"
	"github.com/MatchwiseAI/matchwise-mvp/pkg/mid"
	"github.com/MatchwiseAI/matchwise-mvp/pkg/natsutil"
	"github.com/MatchwiseAI/matchwise-mvp/pkg/repo"
	"github.com/nats-io/nats.go"
)

// Config holds all environment-based configuration.
type Config struct {
	Port            string
	GeminiAPIKey    string
	GeminiModel     string
	QdrantURL       string
	JobsCollection  string
	AppsCollection  string
	NATSURL         string
	DBPath          string
	CORSOrigin      string
	DefaultMatchTop int
}

func loadConfig() Config {
	top, _ := strconv.Atoi(envOr("MATCH_TOP_K", "5"))
	if top <= 0 {
		top = 5
	}
	return Config{
		Port:            envOr("PORT", "8080"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     envOr("GEMINI_MODEL", gemini.DefaultModel),
		QdrantURL:       envOr("QDRANT_URL", "localhost:6334"),
		JobsCollection:  envOr("QDRANT_JOBS_COLLECTION", "jobs"),
		AppsCollection:  envOr("QDRANT_APPS_COLLECTION", "applicants"),
		NATSURL:         envOr("NATS_URL", nats.DefaultURL),
		DBPath:          envOr("DB_PATH", "matchwise.db"),
		CORSOrigin:      envOr("CORS_ORIGIN", "*"),
		DefaultMatchTop: top,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(loadConfig(), logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Gemini ---
	ai, err := gemini.New(ctx, cfg.GeminiAPIKey, gemini.Options{Model: cfg.GeminiModel})
	if err != nil {
		return fmt.Errorf("gemini client: %w", err)
	}

	// --- Qdrant ---
	index, err := semantic.New(cfg.QdrantURL, cfg.JobsCollection, cfg.AppsCollection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer index.Close()
	if err := index.EnsureCollections(ctx, semantic.Dims); err != nil {
		return fmt.Errorf("qdrant collections: %w", err)
	}

	// --- NATS ---
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Close()

	// --- SQLite ---
	store, err := repo.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	deps := newDeps(cfg, logger, ai, index, store, nc)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newHandler(deps, cfg.CORSOrigin, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// deps bundles the constructed services the handlers close over.
type deps struct {
	cfg         Config
	log         *slog.Logger
	extractor   *extract.Service
	texts       extract.TextExtractor
	matcher     *match.Engine
	comparer    *compare.Engine
	heatmaps    *heatmap.Generator
	summaries   *rag.Service
	jobs        repo.Repository[domain.JobRecord, string]
	applicants  repo.Repository[domain.ApplicantRecord, string]
	enqueueFunc func(ctx context.Context, kind domain.Kind, record any) error
}

func newDeps(cfg Config, logger *slog.Logger, ai *gemini.Client, index *semantic.VectorStore, store *repo.Store, nc *nats.Conn) *deps {
	return &deps{
		cfg:       cfg,
		log:       logger,
		extractor: extract.New(ai, logger),
		texts:     extract.PlainText{},
		matcher:   match.New(index, logger),
		comparer:  compare.New(index, ai, &comparisonStore{store: store}, logger),
		heatmaps:  heatmap.New(index),
		summaries: rag.New(index, ai, logger),
		jobs: repo.NewRecords(store, string(domain.KindJob),
			func(j domain.JobRecord) string { return j.ID }),
		applicants: repo.NewRecords(store, string(domain.KindApplicant),
			func(a domain.ApplicantRecord) string { return a.ID }),
		enqueueFunc: func(ctx context.Context, kind domain.Kind, record any) error {
			data, err := json.Marshal(record)
			if err != nil {
				return err
			}
			return natsutil.Publish(ctx, nc, ingest.SubjectEmbed, ingest.EmbedMessage{Type: kind, Data: data})
		},
	}
}

func newHandler(d *deps, corsOrigin string, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/jobs", d.handleListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", d.handleGetJob)
	mux.HandleFunc("POST /api/jobs/parse", d.handleParseJob)
	mux.HandleFunc("GET /api/applicants", d.handleListApplicants)
	mux.HandleFunc("GET /api/applicants/{id}", d.handleGetApplicant)
	mux.HandleFunc("POST /api/applicants/parse", d.handleParseApplicant)
	mux.HandleFunc("GET /api/match/{id}", d.handleMatch)
	mux.HandleFunc("GET /api/compare/{a}/{b}", d.handleCompare)
	mux.HandleFunc("GET /api/heatmap/{id}", d.handleHeatmap)
	mux.HandleFunc("GET /api/summary/{id}", d.handleSummary)

	return mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(corsOrigin),
		mid.OTel("matchwise-api"),
	)
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (d *deps) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := d.jobs.List(r.Context(), listOpts(r))
	if err != nil {
		d.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (d *deps) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := d.jobs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		d.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (d *deps) handleListApplicants(w http.ResponseWriter, r *http.Request) {
	apps, err := d.applicants.List(r.Context(), listOpts(r))
	if err != nil {
		d.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

func (d *deps) handleGetApplicant(w http.ResponseWriter, r *http.Request) {
	app, err := d.applicants.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		d.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// handleParseJob extracts a structured job record from the posted text,
// persists it, and enqueues embedding generation. Parse failures inside
// extraction degrade to a fallback record, so this endpoint only fails
// on upstream or storage errors.
func (d *deps) handleParseJob(w http.ResponseWriter, r *http.Request) {
	text, err := d.documentText(r)
	if err != nil {
		d.badRequest(w, err)
		return
	}

	job, err := d.extractor.ExtractJob(r.Context(), text)
	if err != nil {
		d.fail(w, err)
		return
	}
	job.CreatedAt = time.Now().UTC()
	job.UpdatedAt = job.CreatedAt

	if _, err := d.jobs.Create(r.Context(), job); err != nil {
		d.fail(w, err)
		return
	}
	if err := d.enqueueFunc(r.Context(), domain.KindJob, job); err != nil {
		d.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobData": job})
}

func (d *deps) handleParseApplicant(w http.ResponseWriter, r *http.Request) {
	text, err := d.documentText(r)
	if err != nil {
		d.badRequest(w, err)
		return
	}

	app, err := d.extractor.ExtractApplicant(r.Context(), text)
	if err != nil {
		d.fail(w, err)
		return
	}
	app.CreatedAt = time.Now().UTC()
	app.UpdatedAt = app.CreatedAt

	if _, err := d.applicants.Create(r.Context(), app); err != nil {
		d.fail(w, err)
		return
	}
	if err := d.enqueueFunc(r.Context(), domain.KindApplicant, app); err != nil {
		d.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"applicantData": app})
}

func (d *deps) handleMatch(w http.ResponseWriter, r *http.Request) {
	k := d.cfg.DefaultMatchTop
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			k = n
		}
	}
	results, err := d.matcher.Match(r.Context(), r.PathValue("id"), k)
	if err != nil {
		d.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (d *deps) handleCompare(w http.ResponseWriter, r *http.Request) {
	mode := compare.GapModeLLM
	if r.URL.Query().Get("mode") == string(compare.GapModeSkills) {
		mode = compare.GapModeSkills
	}
	result, err := d.comparer.Compare(r.Context(), r.PathValue("a"), r.PathValue("b"), mode)
	if err != nil {
		d.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (d *deps) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	var peers []string
	for _, p := range strings.Split(r.URL.Query().Get("peers"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			peers = append(peers, p)
		}
	}
	cells, err := d.heatmaps.Generate(r.Context(), r.PathValue("id"), peers)
	if err != nil {
		d.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cells)
}

func (d *deps) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := d.summaries.Summarize(r.Context(), r.PathValue("id"))
	if err != nil {
		d.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// --- Helpers ---

// parseRequest is the JSON body of the parse endpoints.
type parseRequest struct {
	Text string `json:"text"`
}

// documentText reads the document to ingest: a JSON {"text": ...} body,
// or a raw document run through the text extractor.
func (d *deps) documentText(r *http.Request) (string, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
	if err != nil {
		return "", err
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var req parseRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return "", fmt.Errorf("invalid request body: %w", err)
		}
		if strings.TrimSpace(req.Text) == "" {
			return "", domain.ErrEmptyInput
		}
		return req.Text, nil
	}
	return d.texts.ExtractText(r.Context(), body)
}

func listOpts(r *http.Request) repo.ListOpts {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return repo.ListOpts{Offset: offset, Limit: limit}
}

func (d *deps) badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

func (d *deps) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, repo.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrUnknownKind), errors.Is(err, domain.ErrEmptyInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		d.log.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// --- Adapters ---

// comparisonStore adapts the record store to the comparison engine's
// append-only persistence surface.
type comparisonStore struct {
	store *repo.Store
}

func (s *comparisonStore) SaveComparison(ctx context.Context, c domain.ComparisonResult) error {
	return s.store.PutRecord(ctx, "comparison", c.ID, c)
}
