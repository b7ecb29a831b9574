// Package ingest runs the asynchronous processing chain: parse raw text
// into a structured record, persist it, then embed and index it. Each
// stage consumes one queue message and publishes the follow-up message
// for the next stage, so latency and retries stay decoupled per stage.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/MatchwiseAI/matchwise-mvp/engine/domain"
	"github.com/MatchwiseAI/matchwise-mvp/engine/semantic"
	"github.com/MatchwiseAI/matchwise-mvp/pkg/fn"
	"github.com/MatchwiseAI/matchwise-mvp/pkg/natsutil"
	"github.com/nats-io/nats.go"
)

const (
	// SubjectParseJob carries raw job description text.
	SubjectParseJob = "parse-job"
	// SubjectParseResume carries raw resume text.
	SubjectParseResume = "parse-resume"
	// SubjectEmbed carries structured records awaiting embedding.
	SubjectEmbed = "generate-embedding"
	// DLQSubject receives messages that exhausted their retries.
	DLQSubject = "ingest.dlq"
	// MaxRetries before a message goes to the DLQ.
	MaxRetries = 3

	retryHeader = "X-Retry-Count"
)

// ParseMessage is the payload of the parse-job and parse-resume topics.
type ParseMessage struct {
	Text string `json:"text"`
}

// EmbedMessage is the payload of the generate-embedding topic. Data
// holds the structured record for the given kind.
type EmbedMessage struct {
	Type domain.Kind     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Extractor turns raw text into structured records.
type Extractor interface {
	ExtractJob(ctx context.Context, text string) (domain.JobRecord, error)
	ExtractApplicant(ctx context.Context, text string) (domain.ApplicantRecord, error)
}

// Embedder maps text to a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index is the vector store upsert surface the pipeline writes to.
type Index interface {
	Upsert(ctx context.Context, kind domain.Kind, records []semantic.VectorRecord) error
}

// RecordStore persists structured records. Put must replace any
// existing record with the same id so reprocessing a message is
// harmless.
type RecordStore interface {
	PutRecord(ctx context.Context, kind domain.Kind, id string, record any) error
}

// Deps holds the external collaborators of the ingestion pipeline.
type Deps struct {
	Extractor Extractor
	Embedder  Embedder
	Index     Index
	Records   RecordStore
	Logger    *slog.Logger
}

// Consumer subscribes to the three pipeline topics on a NATS connection.
type Consumer struct {
	nc   *nats.Conn
	deps Deps
	log  *slog.Logger
}

// NewConsumer creates a Consumer. A nil logger falls back to
// slog.Default.
func NewConsumer(nc *nats.Conn, deps Deps) *Consumer {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{nc: nc, deps: deps, log: log}
}

// Start subscribes to all pipeline topics and returns the active
// subscriptions.
func (c *Consumer) Start() ([]*nats.Subscription, error) {
	var subs []*nats.Subscription
	for subject, handler := range map[string]func(context.Context, *nats.Msg) error{
		SubjectParseJob:    c.handleParseJob,
		SubjectParseResume: c.handleParseResume,
		SubjectEmbed:       c.handleEmbed,
	} {
		sub, err := c.nc.Subscribe(subject, c.withRetry(subject, handler))
		if err != nil {
			return nil, fmt.Errorf("ingest: subscribe %s: %w", subject, err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// withRetry wraps a handler with retry-count tracking and DLQ routing.
func (c *Consumer) withRetry(subject string, handler func(context.Context, *nats.Msg) error) nats.MsgHandler {
	return func(msg *nats.Msg) {
		ctx := context.Background()
		if err := handler(ctx, msg); err != nil {
			retries := 0
			if msg.Header != nil {
				retries, _ = strconv.Atoi(msg.Header.Get(retryHeader))
			}
			retries++

			c.log.Error("ingest: handler failed",
				"subject", subject, "error", err, "retry", retries)

			if retries >= MaxRetries {
				c.publishDLQ(subject, msg.Data, err, retries)
				return
			}

			retry := nats.NewMsg(subject)
			retry.Data = msg.Data
			retry.Header.Set(retryHeader, strconv.Itoa(retries))
			if perr := c.nc.PublishMsg(retry); perr != nil {
				c.log.Error("ingest: retry publish failed", "subject", subject, "error", perr)
			}
		}
	}
}

type dlqMessage struct {
	Subject string          `json:"subject"`
	Payload json.RawMessage `json:"payload"`
	Error   string          `json:"error"`
	Retries int             `json:"retries"`
}

func (c *Consumer) publishDLQ(subject string, payload []byte, cause error, retries int) {
	err := natsutil.Publish(context.Background(), c.nc, DLQSubject, dlqMessage{
		Subject: subject,
		Payload: payload,
		Error:   cause.Error(),
		Retries: retries,
	})
	if err != nil {
		c.log.Error("ingest: dlq publish failed", "subject", subject, "error", err)
	}
}

// --- Parse stages ---

func (c *Consumer) handleParseJob(ctx context.Context, msg *nats.Msg) error {
	var m ParseMessage
	if err := json.Unmarshal(msg.Data, &m); err != nil {
		c.log.Error("ingest: malformed parse-job message dropped", "error", err)
		return nil
	}

	pipeline := fn.Then(
		fn.TracedStage("ingest.extract_job", func(ctx context.Context, m ParseMessage) fn.Result[domain.JobRecord] {
			return fn.FromPair(c.deps.Extractor.ExtractJob(ctx, m.Text))
		}),
		fn.Then(
			persistStage(c, domain.KindJob, func(j domain.JobRecord) string { return j.ID }),
			publishEmbedStage(c, domain.KindJob, func(j domain.JobRecord) string { return j.ID }),
		),
	)

	_, err := pipeline(ctx, m).Unwrap()
	return err
}

func (c *Consumer) handleParseResume(ctx context.Context, msg *nats.Msg) error {
	var m ParseMessage
	if err := json.Unmarshal(msg.Data, &m); err != nil {
		c.log.Error("ingest: malformed parse-resume message dropped", "error", err)
		return nil
	}

	pipeline := fn.Then(
		fn.TracedStage("ingest.extract_applicant", func(ctx context.Context, m ParseMessage) fn.Result[domain.ApplicantRecord] {
			return fn.FromPair(c.deps.Extractor.ExtractApplicant(ctx, m.Text))
		}),
		fn.Then(
			persistStage(c, domain.KindApplicant, func(a domain.ApplicantRecord) string { return a.ID }),
			publishEmbedStage(c, domain.KindApplicant, func(a domain.ApplicantRecord) string { return a.ID }),
		),
	)

	_, err := pipeline(ctx, m).Unwrap()
	return err
}

// persistStage writes the record through the record store and passes it
// on unchanged.
func persistStage[T any](c *Consumer, kind domain.Kind, id func(T) string) fn.Stage[T, T] {
	return fn.TracedStage("ingest.persist", func(ctx context.Context, rec T) fn.Result[T] {
		if err := c.deps.Records.PutRecord(ctx, kind, id(rec), rec); err != nil {
			return fn.Err[T](fmt.Errorf("persist %s: %w", kind, err))
		}
		return fn.Ok(rec)
	})
}

// publishEmbedStage emits the follow-up generate-embedding message.
func publishEmbedStage[T any](c *Consumer, kind domain.Kind, id func(T) string) fn.Stage[T, string] {
	return fn.TracedStage("ingest.publish_embed", func(ctx context.Context, rec T) fn.Result[string] {
		data, err := json.Marshal(rec)
		if err != nil {
			return fn.Err[string](err)
		}
		if err := natsutil.Publish(ctx, c.nc, SubjectEmbed, EmbedMessage{Type: kind, Data: data}); err != nil {
			return fn.Err[string](fmt.Errorf("publish embed: %w", err))
		}
		c.log.Info("ingest: record parsed", "kind", kind, "id", id(rec))
		return fn.Ok(id(rec))
	})
}

// --- Embed stage ---

// embedItem is the intermediate between decode and upsert.
type embedItem struct {
	kind domain.Kind
	id   string
	text string
	meta map[string]string
}

func (c *Consumer) handleEmbed(ctx context.Context, msg *nats.Msg) error {
	var m EmbedMessage
	if err := json.Unmarshal(msg.Data, &m); err != nil {
		c.log.Error("ingest: malformed embed message dropped", "error", err)
		return nil
	}

	pipeline := fn.Then(
		fn.TracedStage("ingest.transform", c.transformStage),
		fn.Then(
			fn.TracedStage("ingest.embed", c.embedStage),
			fn.TracedStage("ingest.upsert", c.upsertStage),
		),
	)

	_, err := pipeline(ctx, m).Unwrap()
	return err
}

func (c *Consumer) transformStage(_ context.Context, m EmbedMessage) fn.Result[embedItem] {
	switch m.Type {
	case domain.KindJob:
		var job domain.JobRecord
		if err := json.Unmarshal(m.Data, &job); err != nil {
			return fn.Err[embedItem](fmt.Errorf("decode job: %w", err))
		}
		return fn.Ok(embedItem{kind: m.Type, id: job.ID, text: JobText(job), meta: JobMetadata(job)})
	case domain.KindApplicant:
		var app domain.ApplicantRecord
		if err := json.Unmarshal(m.Data, &app); err != nil {
			return fn.Err[embedItem](fmt.Errorf("decode applicant: %w", err))
		}
		return fn.Ok(embedItem{kind: m.Type, id: app.ID, text: ApplicantText(app), meta: ApplicantMetadata(app)})
	}
	return fn.Err[embedItem](fmt.Errorf("%w: %q", domain.ErrUnknownKind, m.Type))
}

type embeddedItem struct {
	embedItem
	vector []float32
}

func (c *Consumer) embedStage(ctx context.Context, item embedItem) fn.Result[embeddedItem] {
	vec, err := c.deps.Embedder.Embed(ctx, item.text)
	if err != nil {
		return fn.Err[embeddedItem](fmt.Errorf("embed %s: %w", item.id, err))
	}
	return fn.Ok(embeddedItem{embedItem: item, vector: vec})
}

func (c *Consumer) upsertStage(ctx context.Context, item embeddedItem) fn.Result[string] {
	rec := semantic.VectorRecord{ID: item.id, Embedding: item.vector, Meta: item.meta}
	if err := c.deps.Index.Upsert(ctx, item.kind, []semantic.VectorRecord{rec}); err != nil {
		return fn.Err[string](fmt.Errorf("upsert %s: %w", item.id, err))
	}
	c.log.Info("ingest: record indexed", "kind", item.kind, "id", item.id)
	return fn.Ok(item.id)
}
