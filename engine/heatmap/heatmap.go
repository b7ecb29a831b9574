// Package heatmap builds a skill-by-candidate presence matrix for an
// applicant and a list of peers.
package heatmap

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/MatchwiseAI/matchwise-mvp/engine/domain"
	"github.com/MatchwiseAI/matchwise-mvp/engine/semantic"
)

const (
	// MaxSkills caps the number of skill columns.
	MaxSkills = 10
	// PresentValue is the cell strength when a candidate lists the skill.
	PresentValue = 0.8
	// AbsentValue is the cell strength when they do not.
	AbsentValue = 0.3
	// SelfLabel is the row label for the center applicant.
	SelfLabel = "You"
)

// Index is the vector store surface the generator reads from.
type Index interface {
	FetchByID(ctx context.Context, kind domain.Kind, ids []string) (map[string]semantic.Point, error)
}

// Generator produces heatmap matrices.
type Generator struct {
	index Index
}

// New creates a Generator.
func New(index Index) *Generator {
	return &Generator{index: index}
}

// Generate batch-fetches the center applicant and peers, unions their
// skill sets, and emits one cell per (skill, present candidate) pair.
// Ids not found are silently dropped. The skill columns are the
// MaxSkills most frequent skills across candidates, ties broken by
// first mention, so output is deterministic for a given index state.
func (g *Generator) Generate(ctx context.Context, centerID string, peerIDs []string) ([]domain.HeatmapCell, error) {
	ids := append([]string{centerID}, peerIDs...)
	points, err := g.index.FetchByID(ctx, domain.KindApplicant, ids)
	if err != nil {
		return nil, fmt.Errorf("heatmap: %w", err)
	}
	if len(points) == 0 {
		return []domain.HeatmapCell{}, nil
	}

	// Per-candidate skill sets, in input order for stable counting.
	type candidate struct {
		label  string
		skills map[string]bool
	}
	var candidates []candidate
	counts := make(map[string]int)
	var order []string

	for i, id := range ids {
		p, ok := points[id]
		if !ok {
			continue
		}
		label := SelfLabel
		if i > 0 {
			label = fmt.Sprintf("Peer %d", i)
		}
		set := make(map[string]bool)
		for _, s := range strings.Split(p.Meta["skills"], ",") {
			s = strings.TrimSpace(s)
			if s == "" || set[s] {
				continue
			}
			set[s] = true
			if counts[s] == 0 {
				order = append(order, s)
			}
			counts[s]++
		}
		candidates = append(candidates, candidate{label: label, skills: set})
	}

	firstSeen := make(map[string]int, len(order))
	for i, s := range order {
		firstSeen[s] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		if counts[order[i]] != counts[order[j]] {
			return counts[order[i]] > counts[order[j]]
		}
		return firstSeen[order[i]] < firstSeen[order[j]]
	})
	if len(order) > MaxSkills {
		order = order[:MaxSkills]
	}

	cells := make([]domain.HeatmapCell, 0, len(order)*len(candidates))
	for _, skill := range order {
		for _, c := range candidates {
			value := AbsentValue
			if c.skills[skill] {
				value = PresentValue
			}
			cells = append(cells, domain.HeatmapCell{
				Skill:     skill,
				Candidate: c.label,
				Value:     value,
			})
		}
	}
	return cells, nil
}
