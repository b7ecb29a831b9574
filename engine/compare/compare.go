// Package compare computes pairwise applicant similarity and a
// skill-gap analysis, persisting every comparison it produces.
package compare

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/MatchwiseAI/matchwise-mvp/engine/domain"
	"github.com/MatchwiseAI/matchwise-mvp/engine/semantic"
	"github.com/google/uuid"
)

// GapMode selects how skill gaps are derived.
type GapMode string

const (
	// GapModeLLM asks the generative model to judge gaps and produce
	// recommendations.
	GapModeLLM GapMode = "llm"
	// GapModeSkills computes gaps as a deterministic set difference of
	// the stored skill lists, with no recommendations.
	GapModeSkills GapMode = "skills"
)

// Index is the vector store surface the engine reads from.
type Index interface {
	FetchByID(ctx context.Context, kind domain.Kind, ids []string) (map[string]semantic.Point, error)
}

// Generator produces text from a prompt.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Store persists comparison results, append-only.
type Store interface {
	SaveComparison(ctx context.Context, c domain.ComparisonResult) error
}

// Engine is the comparison engine.
type Engine struct {
	index Index
	gen   Generator
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// New creates an Engine. A nil logger falls back to slog.Default.
func New(index Index, gen Generator, store Store, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{index: index, gen: gen, store: store, log: log, now: time.Now}
}

// Compare fetches both applicants in one batch, computes their cosine
// similarity, derives skill gaps for A relative to B, and persists the
// result. Both ids must exist; a missing id is a NotFound error, never
// a defaulted record.
func (e *Engine) Compare(ctx context.Context, idA, idB string, mode GapMode) (domain.ComparisonResult, error) {
	var zero domain.ComparisonResult

	points, err := e.index.FetchByID(ctx, domain.KindApplicant, []string{idA, idB})
	if err != nil {
		return zero, fmt.Errorf("compare: %w", err)
	}
	a, okA := points[idA]
	if !okA {
		return zero, &domain.NotFoundError{ID: idA}
	}
	b, okB := points[idB]
	if !okB {
		return zero, &domain.NotFoundError{ID: idB}
	}

	score, err := Cosine(a.Vector, b.Vector)
	if err != nil {
		return zero, fmt.Errorf("compare %s vs %s: %w", idA, idB, err)
	}

	var gaps, recs []string
	switch mode {
	case GapModeSkills:
		gaps = skillDifference(skillList(b.Meta), skillList(a.Meta))
		recs = []string{}
	default:
		gaps, recs, err = e.llmAnalysis(ctx, a.Meta, b.Meta)
		if err != nil {
			return zero, err
		}
	}

	result := domain.ComparisonResult{
		ID:              "comparison-" + uuid.NewString(),
		UserID:          idA,
		PeerID:          idB,
		SimilarityScore: score,
		SkillGaps:       gaps,
		Recommendations: recs,
		CreatedAt:       e.now().UTC(),
	}

	if err := e.store.SaveComparison(ctx, result); err != nil {
		return zero, fmt.Errorf("compare: save: %w", err)
	}
	return result, nil
}

// Cosine returns the cosine similarity of two vectors. A zero-magnitude
// vector makes the quotient undefined and is reported as an error, not
// a misleading score.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector length mismatch: %d vs %d", len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, domain.ErrZeroVector
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

const comparePrompt = `Compare these two applicant profiles and provide:
1. A list of skill gaps that Applicant A has compared to Applicant B
2. Specific recommendations for Applicant A to improve their profile

Applicant A:
- Name: %s
- Experience: %s years
- Position: %s
- Level: %s
- Skills: %s

Applicant B:
- Name: %s
- Experience: %s years
- Position: %s
- Level: %s
- Skills: %s

Respond with JSON containing:
{
  "skillGaps": ["list", "of", "skills", "that", "A", "lacks"],
  "recommendations": ["list", "of", "specific", "recommendations"]
}`

type gapAnalysis struct {
	SkillGaps       []string `json:"skillGaps"`
	Recommendations []string `json:"recommendations"`
}

// llmAnalysis asks the model for gaps and recommendations. Unparseable
// output degrades to empty lists; only transport failure propagates.
func (e *Engine) llmAnalysis(ctx context.Context, metaA, metaB map[string]string) ([]string, []string, error) {
	prompt := fmt.Sprintf(comparePrompt,
		field(metaA, "name"), field(metaA, "years_experience"),
		field(metaA, "last_position"), field(metaA, "last_position_level"),
		strings.Join(skillList(metaA), ", "),
		field(metaB, "name"), field(metaB, "years_experience"),
		field(metaB, "last_position"), field(metaB, "last_position_level"),
		strings.Join(skillList(metaB), ", "),
	)

	out, err := e.gen.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, nil, fmt.Errorf("compare: analysis: %w", err)
	}

	var analysis gapAnalysis
	if uerr := json.Unmarshal(jsonBody(out), &analysis); uerr != nil {
		e.log.Warn("compare: analysis not parseable, using empty lists", "error", uerr)
		return []string{}, []string{}, nil
	}
	if analysis.SkillGaps == nil {
		analysis.SkillGaps = []string{}
	}
	if analysis.Recommendations == nil {
		analysis.Recommendations = []string{}
	}
	return analysis.SkillGaps, analysis.Recommendations, nil
}

func field(meta map[string]string, key string) string {
	if v := meta[key]; v != "" {
		return v
	}
	return "Unknown"
}

// skillList splits the comma-joined skills metadata field.
func skillList(meta map[string]string) []string {
	var out []string
	for _, s := range strings.Split(meta["skills"], ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// skillDifference returns the skills in have that are missing from
// lacks, preserving the order of have.
func skillDifference(have, lacks []string) []string {
	present := make(map[string]bool, len(lacks))
	for _, s := range lacks {
		present[strings.ToLower(s)] = true
	}
	diff := []string{}
	for _, s := range have {
		if !present[strings.ToLower(s)] {
			diff = append(diff, s)
		}
	}
	return diff
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
