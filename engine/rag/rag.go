// Package rag generates narrative summaries for single jobs or
// applicants by conditioning the generative model on their indexed
// metadata.
package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MatchwiseAI/matchwise-mvp/engine/domain"
	"github.com/MatchwiseAI/matchwise-mvp/engine/semantic"
)

// Index is the vector store surface the service reads from.
type Index interface {
	FetchByID(ctx context.Context, kind domain.Kind, ids []string) (map[string]semantic.Point, error)
}

// Generator produces text from a prompt.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Service is the summary generator.
type Service struct {
	index Index
	gen   Generator
	log   *slog.Logger
	now   func() time.Time
}

// New creates a Service. A nil logger falls back to slog.Default.
func New(index Index, gen Generator, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{index: index, gen: gen, log: log, now: time.Now}
}

const jobSummaryPrompt = `Generate a comprehensive summary and key insights for this job:

Job Title: %s
Company: %s
Country: %s
Experience Required: %s years
Education Required: %s
Position Level: %s
Keywords: %s

Respond with JSON containing:
{
  "summary": "A paragraph summarizing the job and its requirements",
  "insights": ["list", "of", "key", "insights", "about", "this", "position"]
}`

const applicantSummaryPrompt = `Generate a comprehensive summary and key insights for this applicant:

Name: %s
Years of Experience: %s
Last Position: %s
Last Position Level: %s
Work Authorization: %s
Skills: %s

Respond with JSON containing:
{
  "summary": "A paragraph summarizing the applicant's background and skills",
  "insights": ["list", "of", "key", "insights", "about", "this", "candidate"]
}`

type analysis struct {
	Summary  string   `json:"summary"`
	Insights []string `json:"insights"`
}

// Summarize fetches the item's metadata and asks the model for a
// paragraph summary plus an insight list. An unknown id yields a "not
// found" summary rather than an error; unparseable model output falls
// back to a minimal templated summary from the raw metadata.
func (s *Service) Summarize(ctx context.Context, id string) (domain.Summary, error) {
	kind, err := domain.KindOfID(id)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("summarize %s: %w", id, err)
	}

	points, err := s.index.FetchByID(ctx, kind, []string{id})
	if err != nil {
		return domain.Summary{}, fmt.Errorf("summarize %s: %w", id, err)
	}
	p, ok := points[id]
	if !ok {
		text := "Job not found"
		if kind == domain.KindApplicant {
			text = "Applicant not found"
		}
		return s.summary(id, text, []string{}), nil
	}

	var prompt string
	if kind == domain.KindJob {
		prompt = fmt.Sprintf(jobSummaryPrompt,
			p.Meta["title"], p.Meta["company"], p.Meta["country"],
			p.Meta["min_years_experience"], p.Meta["min_education"],
			p.Meta["position_level"], p.Meta["keywords"])
	} else {
		prompt = fmt.Sprintf(applicantSummaryPrompt,
			p.Meta["name"], p.Meta["years_experience"],
			p.Meta["last_position"], p.Meta["last_position_level"],
			p.Meta["work_authorization"], p.Meta["skills"])
	}

	out, err := s.gen.GenerateContent(ctx, prompt)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("summarize %s: %w", id, err)
	}

	var a analysis
	if uerr := json.Unmarshal(jsonBody(out), &a); uerr != nil {
		s.log.Warn("rag: summary not parseable, using template", "id", id, "error", uerr)
		return s.summary(id, templated(kind, p.Meta), []string{}), nil
	}
	if a.Insights == nil {
		a.Insights = []string{}
	}
	return s.summary(id, a.Summary, a.Insights), nil
}

func (s *Service) summary(id, text string, insights []string) domain.Summary {
	return domain.Summary{
		ID:        "summary-" + id,
		Summary:   text,
		Insights:  insights,
		CreatedAt: s.now().UTC(),
	}
}

// templated builds the fallback summary straight from metadata fields.
func templated(kind domain.Kind, meta map[string]string) string {
	if kind == domain.KindJob {
		return fmt.Sprintf("This is a %s %s position at %s.",
			meta["position_level"], meta["title"], meta["company"])
	}
	name := meta["name"]
	if name == "" {
		name = "This candidate"
	}
	position := meta["last_position"]
	if position == "" {
		position = "professional"
	}
	years := meta["years_experience"]
	if years == "" {
		years = "0"
	}
	return fmt.Sprintf("%s has %s years of experience, most recently as a %s.", name, years, position)
}

// jsonBody strips markdown fences and surrounding prose from model
// output.
func jsonBody(out string) []byte {
	out = strings.TrimSpace(out)
	start := strings.Index(out, "{")
	end := strings.LastIndex(out, "}")
	if start >= 0 && end > start {
		out = out[start : end+1]
	}
	return []byte(out)
}
