package question

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleQuestions() []Question {
	return []Question{
		{ID: "q1", Category: "Behavioral", SubCategory: "Achievement & Success"},
		{ID: "q2", Category: "Behavioral", SubCategory: "Challenges & Problem-Solving"},
		{ID: "q3", Category: "Strategy", SubCategory: "Market Entry & Expansion"},
		{ID: "q4", Category: "Behavioral", SubCategory: "Achievement & Success"},
	}
}

func TestFilter_Apply(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"zero filter", Filter{}, []string{"q1", "q2", "q3", "q4"}},
		{"category only", Filter{Category: "Behavioral"}, []string{"q1", "q2", "q4"}},
		{"category and sub", Filter{Category: "Behavioral", SubCategory: "Achievement & Success"}, []string{"q1", "q4"}},
		{"sub only", Filter{SubCategory: "Market Entry & Expansion"}, []string{"q3"}},
		{"no match", Filter{Category: "Estimation"}, []string{}},
		{"mismatched pair", Filter{Category: "Strategy", SubCategory: "Achievement & Success"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(sampleQuestions())
			require.NotNil(t, got)
			assert.Equal(t, tt.want, IDs(got))
		})
	}
}

func TestFilter_IsZeroAndClean(t *testing.T) {
	assert.True(t, Filter{}.IsZero())
	assert.False(t, Filter{SubCategory: "x"}.IsZero())

	f := Filter{Category: "  Behavioral ", SubCategory: "\t"}.Clean()
	assert.Equal(t, Filter{Category: "Behavioral"}, f)
}

func TestTaxonomy(t *testing.T) {
	tax := DefaultTaxonomy()

	assert.Equal(t, []string{"Behavioral", "Product Design", "Strategy", "Execution", "Estimation"}, tax.Names())
	assert.True(t, tax.Contains("Behavioral", "Achievement & Success"))
	assert.False(t, tax.Contains("Behavioral", "Market Size & Scale"))
	assert.False(t, tax.Contains("Unknown", "Achievement & Success"))

	def, ok := tax.Lookup("Estimation")
	require.True(t, ok)
	assert.Equal(t, []string{"Market Size & Scale"}, def.SubCategories)

	// Each call returns an independent copy
	tax[0].Name = "mutated"
	assert.Equal(t, "Behavioral", DefaultTaxonomy()[0].Name)
}

func TestRenderHTML(t *testing.T) {
	r := RenderHTML(Question{
		ID:            "q1",
		Question:      "Tell me about a **big** win.",
		HowToAnswer:   "- Situation\n- Action",
		ExampleAnswer: "<script>alert(1)</script>plain",
	})

	assert.Equal(t, "q1", r.ID)
	assert.Contains(t, string(r.Question), "<strong>big</strong>")
	assert.Contains(t, string(r.HowToAnswer), "<li>Situation</li>")
	assert.False(t, strings.Contains(string(r.ExampleAnswer), "<script>"), "raw HTML must not pass through")
}
