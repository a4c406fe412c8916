package mcp

import (
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/pmprep/internal/app"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"question_list": {
		def:     questionListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleQuestionList },
	},
	"question_get": {
		def:     questionGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleQuestionGet },
	},
	"question_toggle": {
		def:     questionToggleToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleQuestionToggle },
	},
	"catalog_reload": {
		def:     catalogReloadToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCatalogReload },
	},
	"progress_summary": {
		def:     progressSummaryToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProgressSummary },
	},
	"progress_clear": {
		def:     progressClearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProgressClear },
	},
	"note_get": {
		def:     noteGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNoteGet },
	},
	"note_save": {
		def:     noteSaveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNoteSave },
	},
	"note_clear": {
		def:     noteClearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNoteClear },
	},
	"note_export": {
		def:     noteExportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNoteExport },
	},
}

// AllToolNames returns every tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with the study tools registered.
// Tools listed in a.Config.DisabledTools are excluded from registration.
func NewServer(a *app.App, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"pmprep",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(a)

	disabled := make(map[string]bool)
	for _, name := range a.Config.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(a *app.App, version string) error {
	s := NewServer(a, version)
	return server.ServeStdio(s)
}
