// Package extract turns unstructured job and resume text into structured
// records via a single schema-constrained model call. Unparseable model
// output is recovered locally with a fallback record; only transport
// failures propagate as errors.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MatchwiseAI/matchwise-mvp/engine/domain"
)

// MaxInputChars bounds the text sent to the model to respect its
// context limit. Longer input is truncated, not rejected.
const MaxInputChars = 4000

// Generator produces text from a prompt. Implemented by pkg/gemini.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Service is the structured extraction service.
type Service struct {
	gen Generator
	log *slog.Logger
	now func() time.Time
}

// New creates a Service. A nil logger falls back to slog.Default.
func New(gen Generator, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{gen: gen, log: log, now: time.Now}
}

// ExtractJob parses a job description into a JobRecord. Malformed model
// output yields a fallback record, never an error; the returned error is
// reserved for model transport failure.
func (s *Service) ExtractJob(ctx context.Context, text string) (domain.JobRecord, error) {
	text = truncate(text)
	out, err := s.gen.GenerateContent(ctx, fmt.Sprintf(jobPrompt, text))
	if err != nil {
		return domain.JobRecord{}, fmt.Errorf("extract job: %w", err)
	}

	var job domain.JobRecord
	if uerr := json.Unmarshal(jsonBody(out), &job); uerr != nil {
		s.log.Warn("extract: job output not parseable, using fallback", "error", uerr)
		job = s.fallbackJob(text)
	}
	domain.NormalizeJob(&job)
	return job, nil
}

// ExtractApplicant parses resume text into an ApplicantRecord with the
// same recovery policy as ExtractJob.
func (s *Service) ExtractApplicant(ctx context.Context, text string) (domain.ApplicantRecord, error) {
	text = truncate(text)
	out, err := s.gen.GenerateContent(ctx, fmt.Sprintf(resumePrompt, text))
	if err != nil {
		return domain.ApplicantRecord{}, fmt.Errorf("extract applicant: %w", err)
	}

	var app domain.ApplicantRecord
	if uerr := json.Unmarshal(jsonBody(out), &app); uerr != nil {
		s.log.Warn("extract: applicant output not parseable, using fallback", "error", uerr)
		app = s.fallbackApplicant(text)
	}
	domain.NormalizeApplicant(&app)
	return app, nil
}

func (s *Service) fallbackJob(text string) domain.JobRecord {
	return domain.JobRecord{
		ID:          domain.NewID(domain.KindJob),
		Title:       domain.UnknownTitle,
		Company:     domain.UnknownCompany,
		Description: excerpt(text, 500),
		Country:     domain.UnknownCountry,
		Date:        s.now().Format("2006-01-02"),
	}
}

func (s *Service) fallbackApplicant(text string) domain.ApplicantRecord {
	statement := excerpt(text, 200)
	if statement == "" {
		statement = "No information provided"
	}
	return domain.ApplicantRecord{
		ID:                domain.NewID(domain.KindApplicant),
		Name:              domain.UnknownName,
		PersonalStatement: statement,
	}
}

func truncate(text string) string {
	if len(text) > MaxInputChars {
		return text[:MaxInputChars]
	}
	return text
}

func excerpt(text string, n int) string {
	if len(text) > n {
		text = text[:n]
	}
	return strings.TrimSpace(text)
}

// jsonBody strips markdown code fences and surrounding prose, returning
// the outermost JSON object in the model output.
func jsonBody(out string) []byte {
	out = strings.TrimSpace(out)
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	start := strings.Index(out, "{")
	end := strings.LastIndex(out, "}")
	if start >= 0 && end > start {
		out = out[start : end+1]
	}
	return []byte(out)
}
