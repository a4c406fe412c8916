package web

import (
	"net/http"

	"github.com/hpungsan/pmprep/internal/errors"
	"github.com/hpungsan/pmprep/internal/logger"
	"github.com/hpungsan/pmprep/internal/question"
	"github.com/hpungsan/pmprep/internal/questionstore"
)

// Handlers contains HTTP route handlers for the question store.
type Handlers struct {
	store    *questionstore.Store
	log      *logger.Logger
	renderer *Renderer
}

// HandleListQuestions handles GET /api/questions?category=&subCategory=.
func (h *Handlers) HandleListQuestions(w http.ResponseWriter, r *http.Request) {
	f := question.Filter{
		Category:    r.URL.Query().Get("category"),
		SubCategory: r.URL.Query().Get("subCategory"),
	}
	qs, err := h.store.List(f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	renderData(w, qs)
}

// HandleGetQuestion handles GET /api/questions/{id}.
func (h *Handlers) HandleGetQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := h.store.Get(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	renderData(w, q)
}

// HandleQuestionHTML handles GET /api/questions/{id}/html: the question's
// markdown fields rendered to HTML.
func (h *Handlers) HandleQuestionHTML(w http.ResponseWriter, r *http.Request) {
	q, err := h.store.Get(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	renderData(w, question.RenderHTML(*q))
}

// HandleToggle handles POST /api/questions/{id}/toggle.
func (h *Handlers) HandleToggle(w http.ResponseWriter, r *http.Request) {
	completed, err := h.store.Toggle(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"success": true, "isCompleted": completed})
}

// HandleCategories handles GET /api/categories.
func (h *Handlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.store.Categories()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	renderData(w, cats)
}

// HandleSubCategories handles GET /api/subcategories?category=.
func (h *Handlers) HandleSubCategories(w http.ResponseWriter, r *http.Request) {
	subs, err := h.store.SubCategories(r.URL.Query().Get("category"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	renderData(w, subs)
}

// HandleQuestionPage handles GET /questions/{id}: an HTML detail page.
func (h *Handlers) HandleQuestionPage(w http.ResponseWriter, r *http.Request) {
	q, err := h.store.Get(r.PathValue("id"))
	if err != nil {
		pErr := errors.As(err)
		http.Error(w, pErr.Message, pErr.Status)
		return
	}
	if err := h.renderer.renderQuestionPage(w, *q); err != nil {
		h.log.Error("template execution failed", "question_id", q.ID, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	pErr := errors.As(err)
	if pErr.Status >= 500 {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	renderError(w, pErr)
}
