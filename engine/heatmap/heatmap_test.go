package heatmap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/MatchwiseAI/matchwise-mvp/engine/domain"
	"github.com/MatchwiseAI/matchwise-mvp/engine/semantic"
)

// --- mocks ---

type mockIndex struct {
	points map[string]semantic.Point
	err    error
	ids    []string
}

func (m *mockIndex) FetchByID(_ context.Context, _ domain.Kind, ids []string) (map[string]semantic.Point, error) {
	m.ids = ids
	return m.points, m.err
}

func withSkills(skills string) semantic.Point {
	return semantic.Point{Meta: map[string]string{"skills": skills}}
}

// --- tests ---

func TestGenerate_Matrix(t *testing.T) {
	index := &mockIndex{points: map[string]semantic.Point{
		"applicant-1": withSkills("Go,SQL"),
		"applicant-2": withSkills("Go,Kubernetes"),
	}}
	gen := New(index)

	cells, err := gen.Generate(context.Background(), "applicant-1", []string{"applicant-2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 3 distinct skills x 2 candidates.
	if len(cells) != 6 {
		t.Fatalf("expected 6 cells, got %d", len(cells))
	}

	byKey := make(map[string]float64, len(cells))
	for _, c := range cells {
		byKey[c.Skill+"|"+c.Candidate] = c.Value
	}
	if byKey["Go|"+SelfLabel] != PresentValue {
		t.Errorf("Go/You = %v, want present", byKey["Go|"+SelfLabel])
	}
	if byKey["Kubernetes|"+SelfLabel] != AbsentValue {
		t.Errorf("Kubernetes/You = %v, want absent", byKey["Kubernetes|"+SelfLabel])
	}
	if byKey["SQL|Peer 1"] != AbsentValue {
		t.Errorf("SQL/Peer 1 = %v, want absent", byKey["SQL|Peer 1"])
	}
	if byKey["Kubernetes|Peer 1"] != PresentValue {
		t.Errorf("Kubernetes/Peer 1 = %v, want present", byKey["Kubernetes|Peer 1"])
	}
}

func TestGenerate_SkillOrderByFrequency(t *testing.T) {
	index := &mockIndex{points: map[string]semantic.Point{
		"applicant-1": withSkills("Rust,Go"),
		"applicant-2": withSkills("Go"),
	}}
	gen := New(index)

	cells, err := gen.Generate(context.Background(), "applicant-1", []string{"applicant-2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Go is listed by both candidates, so it sorts ahead of Rust.
	if cells[0].Skill != "Go" {
		t.Errorf("first skill = %q, want Go", cells[0].Skill)
	}
}

func TestGenerate_TiesByFirstMention(t *testing.T) {
	index := &mockIndex{points: map[string]semantic.Point{
		"applicant-1": withSkills("Zig,Ada"),
	}}
	gen := New(index)

	cells, err := gen.Generate(context.Background(), "applicant-1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cells[0].Skill != "Zig" || cells[1].Skill != "Ada" {
		t.Errorf("expected first-mention order under ties, got %q then %q", cells[0].Skill, cells[1].Skill)
	}
}

func TestGenerate_CapsSkillColumns(t *testing.T) {
	var skills []string
	for i := 0; i < MaxSkills+5; i++ {
		skills = append(skills, fmt.Sprintf("skill-%02d", i))
	}
	index := &mockIndex{points: map[string]semantic.Point{
		"applicant-1": withSkills(strings.Join(skills, ",")),
	}}
	gen := New(index)

	cells, err := gen.Generate(context.Background(), "applicant-1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cells) != MaxSkills {
		t.Errorf("expected %d cells for one candidate, got %d", MaxSkills, len(cells))
	}
}

func TestGenerate_MissingPeersDropped(t *testing.T) {
	index := &mockIndex{points: map[string]semantic.Point{
		"applicant-1": withSkills("Go"),
	}}
	gen := New(index)

	cells, err := gen.Generate(context.Background(), "applicant-1", []string{"applicant-missing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range cells {
		if c.Candidate != SelfLabel {
			t.Errorf("unexpected candidate row %q", c.Candidate)
		}
	}
}

func TestGenerate_NothingFound(t *testing.T) {
	gen := New(&mockIndex{points: map[string]semantic.Point{}})
	cells, err := gen.Generate(context.Background(), "applicant-1", []string{"applicant-2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cells == nil || len(cells) != 0 {
		t.Errorf("expected non-nil empty result, got %v", cells)
	}
}

func TestGenerate_IndexErrorPropagates(t *testing.T) {
	wantErr := errors.New("index down")
	gen := New(&mockIndex{err: wantErr})
	if _, err := gen.Generate(context.Background(), "applicant-1", nil); !errors.Is(err, wantErr) {
		t.Errorf("expected index error, got %v", err)
	}
}

func TestGenerate_BatchesAllIDs(t *testing.T) {
	index := &mockIndex{points: map[string]semantic.Point{}}
	gen := New(index)
	if _, err := gen.Generate(context.Background(), "applicant-1", []string{"applicant-2", "applicant-3"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(index.ids) != 3 || index.ids[0] != "applicant-1" {
		t.Errorf("expected one batched fetch of all ids, got %v", index.ids)
	}
}
