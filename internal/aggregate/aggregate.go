// Package aggregate derives per-category and per-subcategory completion
// counts from the taxonomy, the catalog and the progress ledger.
package aggregate

import (
	"github.com/hpungsan/pmprep/internal/progress"
	"github.com/hpungsan/pmprep/internal/question"
)

// SubCategory is one subcategory of the derived tree.
type SubCategory struct {
	Name               string              `json:"name"`
	Questions          []question.Question `json:"questions"`
	CompletedQuestions int                 `json:"completedQuestions"`
	TotalQuestions     int                 `json:"totalQuestions"`
}

// Category is one category of the derived tree.
type Category struct {
	Name               string        `json:"name"`
	SubCategories      []SubCategory `json:"subCategories"`
	CompletedQuestions int           `json:"completedQuestions"`
	TotalQuestions     int           `json:"totalQuestions"`
}

// Aggregate builds the category tree. It is a pure function of its inputs:
// categories and subcategories follow taxonomy order, questions keep catalog
// order, and each question's IsCompleted is overwritten from ledger.
//
// A category's total counts every question in that category, including ones
// whose subcategory the taxonomy does not list. Its completed count sums its
// subcategories, so completed never exceeds total.
func Aggregate(taxonomy question.Taxonomy, questions []question.Question, ledger progress.Ledger) []Category {
	out := make([]Category, 0, len(taxonomy))
	for _, def := range taxonomy {
		inCategory := question.Filter{Category: def.Name}.Apply(questions)
		cat := Category{
			Name:           def.Name,
			SubCategories:  make([]SubCategory, 0, len(def.SubCategories)),
			TotalQuestions: len(inCategory),
		}
		for _, subName := range def.SubCategories {
			sub := buildSubCategory(subName, inCategory, ledger)
			cat.CompletedQuestions += sub.CompletedQuestions
			cat.SubCategories = append(cat.SubCategories, sub)
		}
		out = append(out, cat)
	}
	return out
}

func buildSubCategory(name string, inCategory []question.Question, ledger progress.Ledger) SubCategory {
	scoped := question.Filter{SubCategory: name}.Apply(inCategory)
	sub := SubCategory{
		Name:           name,
		Questions:      make([]question.Question, 0, len(scoped)),
		TotalQuestions: len(scoped),
	}
	for _, q := range scoped {
		q.IsCompleted = ledger[q.ID]
		sub.Questions = append(sub.Questions, q)
		if q.IsCompleted {
			sub.CompletedQuestions++
		}
	}
	return sub
}

// Find returns the category with the given name.
func Find(categories []Category, name string) (Category, bool) {
	for _, c := range categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// Totals sums completion over every category.
func Totals(categories []Category) progress.Summary {
	var sum progress.Summary
	for _, c := range categories {
		sum.Completed += c.CompletedQuestions
		sum.Total += c.TotalQuestions
	}
	if sum.Total > 0 {
		sum.Percentage = float64(sum.Completed) / float64(sum.Total) * 100
	}
	return sum
}

// Percentage returns a subcategory's completion in [0, 100].
func (s SubCategory) Percentage() float64 {
	if s.TotalQuestions == 0 {
		return 0
	}
	return float64(s.CompletedQuestions) / float64(s.TotalQuestions) * 100
}
