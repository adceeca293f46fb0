package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/talisman/internal/presentation/graph"
	"github.com/aretw0/talisman/pkg/domain"
	"github.com/aretw0/talisman/pkg/taxonomy"
	"github.com/stretchr/testify/assert"
)

func sampleTaxonomy() *taxonomy.Taxonomy {
	return &taxonomy.Taxonomy{Categories: []taxonomy.Category{
		{Name: "연애", Topics: []taxonomy.Topic{
			{Name: "시작 단계", Details: []taxonomy.Detail{
				{Name: "짝사랑", Options: []string{"언제 고백할지", "상대의 \"마음\""}},
			}},
		}},
		{Name: "직장", Topics: []taxonomy.Topic{
			{Name: "이직", Details: []taxonomy.Detail{
				{Name: "타이밍", Options: []string{"올해 안에"}},
			}},
		}},
	}}
}

func TestGenerateMermaid(t *testing.T) {
	out := graph.GenerateMermaid(sampleTaxonomy(), nil)

	for _, want := range []string{
		"graph TD\n",
		`start(("고민"))`,
		`direct{{"직접 입력하기"}}`,
		"start -.-> direct",
		`c0["연애"]`,
		"start --> c0",
		`c0_t0["시작 단계"]`,
		"c0 --> c0_t0",
		`c0_t0_d0["짝사랑"]`,
		`c0_t0_d0_o0[/"언제 고백할지"/]`,
		`c0_t0_d0_o1[/"상대의 '마음'"/]`,
		"c1_t0_d0 --> c1_t0_d0_o0",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "classDef")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	tests := []struct {
		name     string
		overlay  graph.GraphOverlay
		visited  []string
		current  string
		excluded []string
	}{
		{
			name: "complete path",
			overlay: graph.GraphOverlay{Path: domain.ConcernPath{
				Category: "연애", Topic: "시작 단계", Detail: "짝사랑", Leaf: "언제 고백할지",
			}},
			visited: []string{"start", "c0", "c0_t0", "c0_t0_d0"},
			current: "c0_t0_d0_o0",
		},
		{
			name:     "partial path",
			overlay:  graph.GraphOverlay{Path: domain.ConcernPath{Category: "직장"}},
			visited:  []string{"start"},
			current:  "c1",
			excluded: []string{"class c0 visited;"},
		},
		{
			name:    "free text",
			overlay: graph.GraphOverlay{FreeText: true},
			visited: []string{"start"},
			current: "direct",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := graph.GenerateMermaid(sampleTaxonomy(), &tt.overlay)
			assert.Contains(t, out, "classDef current")
			for _, id := range tt.visited {
				assert.Contains(t, out, "class "+id+" visited;")
			}
			assert.Contains(t, out, "class "+tt.current+" current;")
			assert.Equal(t, 1, strings.Count(out, " current;"))
			for _, ex := range tt.excluded {
				assert.NotContains(t, out, ex)
			}
		})
	}
}

func TestGenerateMermaid_EmptyPath(t *testing.T) {
	out := graph.GenerateMermaid(sampleTaxonomy(), &graph.GraphOverlay{})
	assert.NotContains(t, out, "classDef")
}
