package question

import "strings"

// Question is a single interview question as served by the question store.
// Content fields are markdown.
type Question struct {
	ID            string `json:"_id"`
	Category      string `json:"category"`
	SubCategory   string `json:"subCategory"`
	Question      string `json:"question"`
	HowToAnswer   string `json:"howToAnswer"`
	ExampleAnswer string `json:"exampleAnswer"`

	// IsCompleted is the store's own completion flag. Only meaningful when the
	// remote store is authoritative; otherwise it is ignored on read.
	IsCompleted bool `json:"isCompleted,omitempty"`
}

// Filter narrows a catalog by category and/or subcategory.
// Empty fields do not filter.
type Filter struct {
	Category    string
	SubCategory string
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.Category == "" && f.SubCategory == ""
}

// Match reports whether q passes the filter. Comparison is exact, matching
// the store's equality query.
func (f Filter) Match(q Question) bool {
	if f.Category != "" && q.Category != f.Category {
		return false
	}
	if f.SubCategory != "" && q.SubCategory != f.SubCategory {
		return false
	}
	return true
}

// Apply returns the questions passing f, preserving input order.
// The result is never nil.
func (f Filter) Apply(qs []Question) []Question {
	out := make([]Question, 0, len(qs))
	for _, q := range qs {
		if f.Match(q) {
			out = append(out, q)
		}
	}
	return out
}

// Clean trims surrounding whitespace from both fields.
func (f Filter) Clean() Filter {
	return Filter{
		Category:    strings.TrimSpace(f.Category),
		SubCategory: strings.TrimSpace(f.SubCategory),
	}
}

// IDs returns the identifiers of qs in order.
func IDs(qs []Question) []string {
	ids := make([]string, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
	}
	return ids
}
