package web

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/hpungsan/pmprep/internal/errors"
	"github.com/hpungsan/pmprep/internal/question"
)

// QuestionPageData is the template data for the question detail page.
type QuestionPageData struct {
	Title       string
	Category    string
	SubCategory string
	IsCompleted bool
	Rendered    question.Rendered
}

const questionPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<nav>{{.Category}} / {{.SubCategory}}{{if .IsCompleted}} <span class="done">completed</span>{{end}}</nav>
<article>
<section class="question">{{.Rendered.Question}}</section>
<h2>How to answer</h2>
<section class="how-to-answer">{{.Rendered.HowToAnswer}}</section>
<h2>Example answer</h2>
<section class="example-answer">{{.Rendered.ExampleAnswer}}</section>
</article>
</body>
</html>
`

// Renderer manages template parsing and rendering.
type Renderer struct {
	question *template.Template
}

// NewRenderer parses the page templates.
func NewRenderer() *Renderer {
	return &Renderer{
		question: template.Must(template.New("question").Parse(questionPage)),
	}
}

// renderQuestionPage renders the detail page for q.
func (r *Renderer) renderQuestionPage(w http.ResponseWriter, q question.Question) error {
	title := q.ID
	if len(q.Question) > 0 {
		title = firstLine(q.Question)
	}
	var buf bytes.Buffer
	if err := r.question.Execute(&buf, QuestionPageData{
		Title:       title,
		Category:    q.Category,
		SubCategory: q.SubCategory,
		IsCompleted: q.IsCompleted,
		Rendered:    question.RenderHTML(q),
	}); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
	return nil
}

func firstLine(s string) string {
	for i, c := range s {
		if c == '\n' {
			return s[:i]
		}
	}
	return s
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderData writes the {success, data} envelope.
func renderData(w http.ResponseWriter, data any) {
	renderJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

// renderError writes {success:false, message, code} with the error's status.
func renderError(w http.ResponseWriter, err error) {
	pErr := errors.As(err)
	renderJSON(w, pErr.Status, map[string]any{
		"success": false,
		"message": pErr.Message,
		"code":    string(pErr.Code),
	})
}
