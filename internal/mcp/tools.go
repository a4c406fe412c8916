package mcp

import "github.com/mark3labs/mcp-go/mcp"

var questionListToolDef = mcp.NewTool("question_list",
	mcp.WithDescription("List interview questions with their completion state. Filters are exact matches; omit both to list the whole catalog."),
	mcp.WithString("category", mcp.Description("Category name, e.g. \"Behavioral\"")),
	mcp.WithString("subCategory", mcp.Description("Subcategory name, e.g. \"Achievement & Success\"")),
)

var questionGetToolDef = mcp.NewTool("question_get",
	mcp.WithDescription("Fetch one question with its note. Set html to also return the markdown fields rendered as HTML."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Question id")),
	mcp.WithBoolean("html", mcp.Description("Include rendered HTML")),
)

var questionToggleToolDef = mcp.NewTool("question_toggle",
	mcp.WithDescription("Flip a question's completion. Toggling twice restores the original state."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Question id")),
)

var catalogReloadToolDef = mcp.NewTool("catalog_reload",
	mcp.WithDescription("Re-fetch the question catalog from the question store."),
)

var progressSummaryToolDef = mcp.NewTool("progress_summary",
	mcp.WithDescription("Completion per category and subcategory, plus overall totals."),
	mcp.WithString("category", mcp.Description("Only return this category")),
)

var progressClearToolDef = mcp.NewTool("progress_clear",
	mcp.WithDescription("Clear all local completion progress. Cannot be undone."),
)

var noteGetToolDef = mcp.NewTool("note_get",
	mcp.WithDescription("Read a note. key is a question id or \"overall\". Returns found=false when no note was ever saved."),
	mcp.WithString("key", mcp.Required(), mcp.Description("Question id, \"question:<id>\", or \"overall\"")),
)

var noteSaveToolDef = mcp.NewTool("note_save",
	mcp.WithDescription("Overwrite a note and stamp its last-edited time."),
	mcp.WithString("key", mcp.Required(), mcp.Description("Question id, \"question:<id>\", or \"overall\"")),
	mcp.WithString("content", mcp.Required(), mcp.Description("Note content (rich text HTML or plain text)")),
)

var noteClearToolDef = mcp.NewTool("note_clear",
	mcp.WithDescription("Delete a note."),
	mcp.WithString("key", mcp.Required(), mcp.Description("Question id, \"question:<id>\", or \"overall\"")),
)

var noteExportToolDef = mcp.NewTool("note_export",
	mcp.WithDescription("Write a note as plain text to the exports directory and return the file path."),
	mcp.WithString("key", mcp.Required(), mcp.Description("Question id, \"question:<id>\", or \"overall\"")),
)
