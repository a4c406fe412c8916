package question

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
)

// Rendered holds the HTML form of a question's markdown fields.
type Rendered struct {
	ID            string        `json:"_id"`
	Question      template.HTML `json:"question"`
	HowToAnswer   template.HTML `json:"howToAnswer"`
	ExampleAnswer template.HTML `json:"exampleAnswer"`
}

// RenderHTML converts the question's markdown fields to HTML.
func RenderHTML(q Question) Rendered {
	return Rendered{
		ID:            q.ID,
		Question:      renderMarkdown(q.Question),
		HowToAnswer:   renderMarkdown(q.HowToAnswer),
		ExampleAnswer: renderMarkdown(q.ExampleAnswer),
	}
}

// renderMarkdown converts markdown text to HTML using goldmark.
// Raw HTML in the source is dropped by goldmark's default (unsafe off) renderer.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}
