// Package match ranks items of the opposite kind against a source item
// by cosine similarity over the vector index.
package match

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MatchwiseAI/matchwise-mvp/engine/domain"
	"github.com/MatchwiseAI/matchwise-mvp/engine/semantic"
)

// maxHighlights caps the keyword/skill tokens annotated per hit.
const maxHighlights = 3

// Index is the vector store surface the engine reads from.
type Index interface {
	FetchByID(ctx context.Context, kind domain.Kind, ids []string) (map[string]semantic.Point, error)
	Search(ctx context.Context, kind domain.Kind, vector []float32, k int) ([]semantic.SearchResult, error)
}

// Engine is the match engine.
type Engine struct {
	index Index
	log   *slog.Logger
}

// New creates an Engine. A nil logger falls back to slog.Default.
func New(index Index, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{index: index, log: log}
}

// Match fetches the source item's vector and queries the opposite
// partition for its k nearest neighbours. An unknown source id is a
// valid empty result, not an error. Result order follows the index's
// similarity-descending order exactly.
func (e *Engine) Match(ctx context.Context, sourceID string, k int) ([]domain.MatchResult, error) {
	kind, err := domain.KindOfID(sourceID)
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", sourceID, err)
	}

	points, err := e.index.FetchByID(ctx, kind, []string{sourceID})
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", sourceID, err)
	}
	source, ok := points[sourceID]
	if !ok {
		e.log.Info("match: source not indexed", "id", sourceID)
		return []domain.MatchResult{}, nil
	}

	target := kind.Opposite()
	hits, err := e.index.Search(ctx, target, source.Vector, k)
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", sourceID, err)
	}

	highlightField := "skills"
	if target == domain.KindJob {
		highlightField = "keywords"
	}

	results := make([]domain.MatchResult, len(hits))
	for i, hit := range hits {
		item := make(map[string]string, len(hit.Meta))
		for key, val := range hit.Meta {
			if key == "id" {
				continue
			}
			item[key] = val
		}
		item["id"] = hit.ID

		results[i] = domain.MatchResult{
			Item:  item,
			Score: hit.Score,
			Highlights: []domain.Highlight{{
				Field:   highlightField,
				Matches: highlightTokens(hit.Meta[highlightField]),
			}},
		}
	}
	return results, nil
}

// highlightTokens splits a comma-joined metadata field into at most
// maxHighlights trimmed tokens.
func highlightTokens(joined string) []string {
	tokens := []string{}
	for _, t := range strings.Split(joined, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		tokens = append(tokens, t)
		if len(tokens) == maxHighlights {
			break
		}
	}
	return tokens
}
