package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/pmprep/internal/aggregate"
	"github.com/hpungsan/pmprep/internal/app"
	"github.com/hpungsan/pmprep/internal/errors"
	"github.com/hpungsan/pmprep/internal/notes"
	"github.com/hpungsan/pmprep/internal/question"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	app *app.App

	mu     sync.Mutex
	loaded bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(a *app.App) *Handlers {
	return &Handlers{app: a}
}

// Request types for each tool

// QuestionListRequest represents the arguments for question_list.
type QuestionListRequest struct {
	Category    string `json:"category,omitempty"`
	SubCategory string `json:"subCategory,omitempty"`
}

// QuestionGetRequest represents the arguments for question_get.
type QuestionGetRequest struct {
	ID   string `json:"id"`
	HTML bool   `json:"html,omitempty"`
}

// QuestionToggleRequest represents the arguments for question_toggle.
type QuestionToggleRequest struct {
	ID string `json:"id"`
}

// ProgressSummaryRequest represents the arguments for progress_summary.
type ProgressSummaryRequest struct {
	Category string `json:"category,omitempty"`
}

// NoteRequest represents the arguments for note_get, note_clear and note_export.
type NoteRequest struct {
	Key string `json:"key"`
}

// NoteSaveRequest represents the arguments for note_save.
type NoteSaveRequest struct {
	Key     string  `json:"key"`
	Content *string `json:"content"`
}

// Output types

// QuestionListOutput is the result of question_list.
type QuestionListOutput struct {
	Questions []question.Question `json:"questions"`
	LoadError string              `json:"loadError,omitempty"`
}

// QuestionGetOutput is the result of question_get.
type QuestionGetOutput struct {
	Question question.Question  `json:"question"`
	Note     *NoteView          `json:"note,omitempty"`
	HTML     *question.Rendered `json:"html,omitempty"`
}

// NoteView is a note as returned by the tools.
type NoteView struct {
	Key        string    `json:"key"`
	Content    string    `json:"content"`
	LastEdited time.Time `json:"lastEdited"`
	WordCount  int       `json:"wordCount"`
}

// NoteGetOutput is the result of note_get.
type NoteGetOutput struct {
	Found bool      `json:"found"`
	Note  *NoteView `json:"note,omitempty"`
}

// Handler implementations

// HandleQuestionList handles the question_list tool call.
func (h *Handlers) HandleQuestionList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[QuestionListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	loadErr := h.ensureLoaded(ctx)

	out := QuestionListOutput{
		Questions: h.app.Tracker.Questions(question.Filter{Category: input.Category, SubCategory: input.SubCategory}),
	}
	if loadErr != nil {
		out.LoadError = loadErr.Error()
	}
	return successResult(out)
}

// HandleQuestionGet handles the question_get tool call.
func (h *Handlers) HandleQuestionGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[QuestionGetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}
	if err := h.ensureLoaded(ctx); err != nil {
		return errorResult(err), nil
	}

	q, err := h.app.Tracker.Question(input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	out := QuestionGetOutput{Question: q}
	key := notes.QuestionKey(q.ID)
	if n, ok := h.app.Notes.Get(key); ok {
		out.Note = noteView(key, n)
	}
	if input.HTML {
		rendered := question.RenderHTML(q)
		out.HTML = &rendered
	}
	h.app.Session.Revisit(q.ID, q.Question, q.Category)
	return successResult(out)
}

// HandleQuestionToggle handles the question_toggle tool call.
func (h *Handlers) HandleQuestionToggle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[QuestionToggleRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.ensureLoaded(ctx); err != nil {
		return errorResult(err), nil
	}

	completed, err := h.app.Tracker.Toggle(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	category := ""
	if q, qerr := h.app.Tracker.Question(input.ID); qerr == nil {
		category = q.Category
	}
	h.app.Session.Completion(input.ID, category, completed)
	return successResult(map[string]any{"id": input.ID, "isCompleted": completed})
}

// HandleCatalogReload handles the catalog_reload tool call.
func (h *Handlers) HandleCatalogReload(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.app.Catalog.Invalidate()
	if err := h.app.Tracker.Load(ctx); err != nil {
		h.loaded = false
		return errorResult(err), nil
	}
	h.loaded = true
	return successResult(map[string]any{"questions": len(h.app.Tracker.Questions(question.Filter{}))})
}

// HandleProgressSummary handles the progress_summary tool call.
func (h *Handlers) HandleProgressSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProgressSummaryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	_ = h.ensureLoaded(ctx)

	snap := h.app.Tracker.Snapshot()
	if input.Category != "" {
		cat, ok := aggregate.Find(snap.Categories, input.Category)
		if !ok {
			return errorResult(errors.NewInvalidRequest(fmt.Sprintf("unknown category: %s", input.Category))), nil
		}
		snap.Categories = []aggregate.Category{cat}
	}
	return successResult(snap)
}

// HandleProgressClear handles the progress_clear tool call.
func (h *Handlers) HandleProgressClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.app.Tracker.ClearAll(); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"cleared": true})
}

// HandleNoteGet handles the note_get tool call.
func (h *Handlers) HandleNoteGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := decodeNoteKey(req)
	if err != nil {
		return errorResult(err), nil
	}
	n, ok := h.app.Notes.Get(key)
	if !ok {
		return successResult(NoteGetOutput{Found: false})
	}
	return successResult(NoteGetOutput{Found: true, Note: noteView(key, n)})
}

// HandleNoteSave handles the note_save tool call.
func (h *Handlers) HandleNoteSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NoteSaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Content == nil {
		return errorResult(errors.NewInvalidRequest("content is required")), nil
	}
	key, err := notes.ParseKey(input.Key)
	if err != nil {
		return errorResult(err), nil
	}
	n, err := h.app.Notes.Save(key, *input.Content)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(noteView(key, n))
}

// HandleNoteClear handles the note_clear tool call.
func (h *Handlers) HandleNoteClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := decodeNoteKey(req)
	if err != nil {
		return errorResult(err), nil
	}
	if !h.app.Notes.Clear(key) {
		return errorResult(errors.NewPersistence(notes.StorageKey, nil)), nil
	}
	return successResult(map[string]any{"cleared": true, "key": displayKey(key)})
}

// HandleNoteExport handles the note_export tool call.
func (h *Handlers) HandleNoteExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := decodeNoteKey(req)
	if err != nil {
		return errorResult(err), nil
	}
	path, err := h.app.Notes.Export(key, h.app.ExportDir)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"path": path})
}

// ensureLoaded fetches the catalog on first use. A failed fetch is retried
// on the next call; the tracker shows empty categories in the meantime.
func (h *Handlers) ensureLoaded(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.loaded {
		return nil
	}
	if err := h.app.Tracker.Load(ctx); err != nil {
		return err
	}
	h.loaded = true
	return nil
}

func decodeNoteKey(req mcp.CallToolRequest) (notes.Key, error) {
	input, err := decode[NoteRequest](req)
	if err != nil {
		return "", errors.NewInvalidRequest(err.Error())
	}
	return notes.ParseKey(input.Key)
}

func noteView(key notes.Key, n notes.Note) *NoteView {
	return &NoteView{
		Key:        displayKey(key),
		Content:    n.Content,
		LastEdited: n.LastEdited,
		WordCount:  notes.WordCount(n.Content),
	}
}

// displayKey is the user-facing form of key, as accepted by the key argument.
func displayKey(key notes.Key) string {
	return key.Arg()
}

// decode unmarshals MCP request arguments into a typed struct.
// Avoids unsafe type assertions and handles JSON decoding safely.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("unmarshal args: %w", err)
	}
	return result, nil
}

// errorResult creates an MCP error result from a PrepError.
func errorResult(err error) *mcp.CallToolResult {
	pErr := errors.As(err)
	errorObj := map[string]any{
		"code":    pErr.Code,
		"message": pErr.Message,
		"status":  pErr.Status,
	}
	// Internal errors can carry file paths or SQL; keep their details out.
	if pErr.Code != errors.ErrInternal && pErr.Details != nil {
		errorObj["details"] = pErr.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
