// Package main implements the Matchwise ingestion worker. It consumes
// the parse and embedding topics, runs the extraction and indexing
// pipeline, and exposes Prometheus-style metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MatchwiseAI/matchwise-mvp/engine/domain"
	"github.com/MatchwiseAI/matchwise-mvp/engine/extract"
	"github.com/MatchwiseAI/matchwise-mvp/engine/ingest"
	"github.com/MatchwiseAI/matchwise-mvp/engine/semantic"
	"github.com/MatchwiseAI/matchwise-mvp/pkg/gemini"
	"github.com/MatchwiseAI/matchwise-mvp/pkg/metrics"
	"github.com/MatchwiseAI/matchwise-mvp/pkg/repo"
	"github.com/MatchwiseAI/matchwise-mvp/pkg/resilience"
	"github.com/nats-io/nats.go"
)

func main() {
	var (
		natsURL     = flag.String("nats", envOr("NATS_URL", nats.DefaultURL), "NATS server URL")
		qdrantURL   = flag.String("qdrant", envOr("QDRANT_URL", "localhost:6334"), "Qdrant gRPC address")
		jobsColl    = flag.String("jobs-collection", envOr("QDRANT_JOBS_COLLECTION", "jobs"), "Qdrant jobs collection")
		appsColl    = flag.String("apps-collection", envOr("QDRANT_APPS_COLLECTION", "applicants"), "Qdrant applicants collection")
		dbPath      = flag.String("db", envOr("DB_PATH", "matchwise.db"), "SQLite database path")
		metricsPort = flag.Int("metrics-port", 9091, "metrics HTTP port")
		rate        = flag.Float64("gemini-rate", 2, "Gemini requests per second")
		burst       = flag.Int("gemini-burst", 4, "Gemini request burst")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(*natsURL, *qdrantURL, *jobsColl, *appsColl, *dbPath, *metricsPort, *rate, *burst, logger); err != nil {
		logger.Error("worker exited with error", "err", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(natsURL, qdrantURL, jobsColl, appsColl, dbPath string, metricsPort int, rate float64, burst int, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ai, err := gemini.New(ctx, os.Getenv("GEMINI_API_KEY"), gemini.Options{})
	if err != nil {
		return fmt.Errorf("gemini client: %w", err)
	}

	index, err := semantic.New(qdrantURL, jobsColl, appsColl)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer index.Close()
	if err := index.EnsureCollections(ctx, semantic.Dims); err != nil {
		return fmt.Errorf("qdrant collections: %w", err)
	}

	store, err := repo.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	nc, err := nats.Connect(natsURL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Close()

	reg := metrics.New()
	limiter := resilience.NewLimiter(resilience.LimiterOpts{Rate: rate, Burst: burst})
	breaker := resilience.NewBreaker(resilience.BreakerOpts{FailThreshold: 5, Timeout: 30 * time.Second})

	guarded := &guardedModel{
		inner:   ai,
		limiter: limiter,
		breaker: breaker,
		calls:   reg.Counter("matchwise_gemini_calls_total", "Gemini API calls attempted"),
		errors:  reg.Counter("matchwise_gemini_errors_total", "Gemini API calls failed"),
		latency: reg.Histogram("matchwise_gemini_latency_seconds", "Gemini API call latency", metrics.DefaultBuckets),
	}

	consumer := ingest.NewConsumer(nc, ingest.Deps{
		Extractor: instrumentedExtractor{
			inner:     extract.New(guarded, logger),
			processed: reg.Counter("matchwise_records_parsed_total", "records parsed from raw text"),
		},
		Embedder: guarded,
		Index:    instrumentedIndex{inner: index, upserts: reg.Counter("matchwise_vectors_upserted_total", "vector points upserted")},
		Records:  &recordStore{store: store},
		Logger:   logger,
	})

	subs, err := consumer.Start()
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer func() {
		for _, sub := range subs {
			_ = sub.Drain()
		}
	}()

	reg.ServeAsync(metricsPort)
	logger.Info("worker started",
		"nats", natsURL, "qdrant", qdrantURL, "metrics_port", metricsPort)

	<-ctx.Done()
	logger.Info("shutdown signal received")
	return nil
}

// --- Adapters ---

// recordStore adapts the SQLite store to the pipeline's persistence
// surface.
type recordStore struct {
	store *repo.Store
}

func (s *recordStore) PutRecord(ctx context.Context, kind domain.Kind, id string, record any) error {
	return s.store.PutRecord(ctx, string(kind), id, record)
}

// guardedModel rate-limits and circuit-breaks Gemini calls, recording
// call metrics. It serves both the extraction and embedding surfaces.
type guardedModel struct {
	inner   *gemini.Client
	limiter *resilience.Limiter
	breaker *resilience.Breaker
	calls   *metrics.Counter
	errors  *metrics.Counter
	latency *metrics.Histogram
}

func (g *guardedModel) guard(ctx context.Context, f func(context.Context) error) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	g.calls.Inc()
	start := time.Now()
	err := g.breaker.Do(ctx, f)
	g.latency.Observe(time.Since(start).Seconds())
	if err != nil {
		g.errors.Inc()
	}
	return err
}

func (g *guardedModel) GenerateContent(ctx context.Context, prompt string) (string, error) {
	var out string
	err := g.guard(ctx, func(ctx context.Context) error {
		var ierr error
		out, ierr = g.inner.GenerateContent(ctx, prompt)
		return ierr
	})
	return out, err
}

func (g *guardedModel) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := g.guard(ctx, func(ctx context.Context) error {
		var ierr error
		out, ierr = g.inner.Embed(ctx, text)
		return ierr
	})
	return out, err
}

// instrumentedExtractor counts successfully parsed records.
type instrumentedExtractor struct {
	inner     *extract.Service
	processed *metrics.Counter
}

func (e instrumentedExtractor) ExtractJob(ctx context.Context, text string) (domain.JobRecord, error) {
	job, err := e.inner.ExtractJob(ctx, text)
	if err == nil {
		e.processed.Inc()
	}
	return job, err
}

func (e instrumentedExtractor) ExtractApplicant(ctx context.Context, text string) (domain.ApplicantRecord, error) {
	app, err := e.inner.ExtractApplicant(ctx, text)
	if err == nil {
		e.processed.Inc()
	}
	return app, err
}

// instrumentedIndex counts upserted vector points.
type instrumentedIndex struct {
	inner   *semantic.VectorStore
	upserts *metrics.Counter
}

func (i instrumentedIndex) Upsert(ctx context.Context, kind domain.Kind, records []semantic.VectorRecord) error {
	if err := i.inner.Upsert(ctx, kind, records); err != nil {
		return err
	}
	i.upserts.Add(int64(len(records)))
	return nil
}
