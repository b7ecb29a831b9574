package extract

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/MatchwiseAI/matchwise-mvp/engine/domain"
)

// --- mocks ---

type mockGenerator struct {
	out        string
	err        error
	lastPrompt string
}

func (m *mockGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	m.lastPrompt = prompt
	return m.out, m.err
}

func newTestService(gen Generator) *Service {
	s := New(gen, slog.Default())
	s.now = func() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

// --- tests ---

func TestExtractJob_ValidOutput(t *testing.T) {
	gen := &mockGenerator{out: `{
		"title": "Platform Engineer",
		"company": "Initech",
		"description": "Build the platform",
		"country": "Germany",
		"minYearsExperience": 4,
		"minEducation": "Bachelor",
		"positionLevel": "Mid",
		"keywords": ["go", "kubernetes"]
	}`}

	job, err := newTestService(gen).ExtractJob(context.Background(), "some posting text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Title != "Platform Engineer" || job.Company != "Initech" {
		t.Errorf("unexpected record: %+v", job)
	}
	if job.MinYearsExperience != 4 {
		t.Errorf("minYearsExperience = %d, want 4", job.MinYearsExperience)
	}
	if !strings.HasPrefix(job.ID, "job-") {
		t.Errorf("expected minted id, got %q", job.ID)
	}
	if !strings.Contains(gen.lastPrompt, "some posting text") {
		t.Error("expected source text in prompt")
	}
}

func TestExtractJob_FencedOutput(t *testing.T) {
	gen := &mockGenerator{out: "```json\n{\"title\": \"Data Engineer\", \"company\": \"Hooli\"}\n```"}
	job, err := newTestService(gen).ExtractJob(context.Background(), "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Title != "Data Engineer" {
		t.Errorf("expected fenced JSON parsed, got %+v", job)
	}
}

func TestExtractJob_ProseAroundJSON(t *testing.T) {
	gen := &mockGenerator{out: "Here is the extraction:\n{\"title\": \"SRE\"}\nHope this helps."}
	job, err := newTestService(gen).ExtractJob(context.Background(), "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Title != "SRE" {
		t.Errorf("expected embedded JSON parsed, got %+v", job)
	}
}

func TestExtractJob_MalformedOutputFallsBack(t *testing.T) {
	gen := &mockGenerator{out: "I cannot extract that."}
	job, err := newTestService(gen).ExtractJob(context.Background(), "  raw posting text  ")
	if err != nil {
		t.Fatalf("expected fallback, got error: %v", err)
	}
	if job.Title != domain.UnknownTitle {
		t.Errorf("title = %q, want %q", job.Title, domain.UnknownTitle)
	}
	if job.Company != domain.UnknownCompany {
		t.Errorf("company = %q, want %q", job.Company, domain.UnknownCompany)
	}
	if job.Date != "2026-08-01" {
		t.Errorf("date = %q, want ingestion date", job.Date)
	}
	if !strings.Contains(job.Description, "raw posting text") {
		t.Errorf("expected excerpt in description, got %q", job.Description)
	}
}

func TestExtractJob_TransportErrorPropagates(t *testing.T) {
	wantErr := errors.New("upstream unavailable")
	gen := &mockGenerator{err: wantErr}
	_, err := newTestService(gen).ExtractJob(context.Background(), "text")
	if !errors.Is(err, wantErr) {
		t.Errorf("expected transport error, got %v", err)
	}
}

func TestExtractJob_TruncatesLongInput(t *testing.T) {
	gen := &mockGenerator{out: `{"title": "X"}`}
	long := strings.Repeat("a", MaxInputChars) + "TAIL"
	if _, err := newTestService(gen).ExtractJob(context.Background(), long); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(gen.lastPrompt, "TAIL") {
		t.Error("expected input truncated before prompting")
	}
}

func TestExtractApplicant_ValidOutput(t *testing.T) {
	gen := &mockGenerator{out: `{
		"name": "Sam Rivera",
		"yearsOfExperience": 6,
		"lastPosition": "Backend Engineer",
		"workExperience": [
			{"company": "Acme", "title": "Engineer", "skills": ["Go", "SQL"]}
		]
	}`}

	app, err := newTestService(gen).ExtractApplicant(context.Background(), "resume text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.Name != "Sam Rivera" || app.YearsOfExperience != 6 {
		t.Errorf("unexpected record: %+v", app)
	}
	if !strings.HasPrefix(app.ID, "applicant-") {
		t.Errorf("expected minted id, got %q", app.ID)
	}
	if skills := app.Skills(); len(skills) != 2 {
		t.Errorf("expected 2 skills, got %v", skills)
	}
}

func TestExtractApplicant_MalformedOutputFallsBack(t *testing.T) {
	gen := &mockGenerator{out: "not json"}
	app, err := newTestService(gen).ExtractApplicant(context.Background(), "resume body")
	if err != nil {
		t.Fatalf("expected fallback, got error: %v", err)
	}
	if app.Name != domain.UnknownName {
		t.Errorf("name = %q, want %q", app.Name, domain.UnknownName)
	}
	if !strings.Contains(app.PersonalStatement, "resume body") {
		t.Errorf("expected excerpt in statement, got %q", app.PersonalStatement)
	}
}

func TestExtractApplicant_EmptyFallbackStatement(t *testing.T) {
	gen := &mockGenerator{out: "nope"}
	app, err := newTestService(gen).ExtractApplicant(context.Background(), "   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.PersonalStatement != "No information provided" {
		t.Errorf("statement = %q", app.PersonalStatement)
	}
}

func TestPlainText_ExtractText(t *testing.T) {
	text, err := PlainText{}.ExtractText(context.Background(), []byte("  hello resume  "))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello resume" {
		t.Errorf("text = %q", text)
	}
}

func TestPlainText_EmptyInput(t *testing.T) {
	if _, err := (PlainText{}).ExtractText(context.Background(), []byte("   ")); !errors.Is(err, domain.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

func TestPlainText_InvalidUTF8(t *testing.T) {
	if _, err := (PlainText{}).ExtractText(context.Background(), []byte{0xff, 0xfe, 0x41}); err == nil {
		t.Error("expected error for invalid UTF-8")
	}
}
