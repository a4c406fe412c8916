package notes

import (
	"encoding/json"
	"strconv"

	"github.com/hpungsan/pmprep/internal/kv"
	"github.com/hpungsan/pmprep/internal/logger"
)

// PanelStorageKey holds whether the overall-notes panel is expanded.
const PanelStorageKey = "overallNotesExpanded"

// Panel persists the expanded/collapsed state of the overall-notes panel.
type Panel struct {
	kv  kv.Store
	log *logger.Logger
}

// NewPanel creates a Panel.
func NewPanel(store kv.Store, log *logger.Logger) *Panel {
	return &Panel{kv: store, log: logger.OrNop(log).With("component", "notes_panel")}
}

// Expanded reports the stored state; absent or unreadable means collapsed.
func (p *Panel) Expanded() bool {
	e, err := p.kv.Get(PanelStorageKey)
	if err != nil || !e.Found {
		return false
	}
	var expanded bool
	if err := json.Unmarshal([]byte(e.Value), &expanded); err != nil {
		p.log.Warn("panel state unparsable, treating as collapsed", "key", PanelStorageKey, "error", err)
		return false
	}
	return expanded
}

// Toggle flips the stored state and returns the new value.
func (p *Panel) Toggle() (bool, error) {
	var next bool
	err := kv.Update(p.kv, PanelStorageKey, maxWriteAttempts, func(current kv.Entry) (string, error) {
		var expanded bool
		if current.Found {
			_ = json.Unmarshal([]byte(current.Value), &expanded)
		}
		next = !expanded
		return strconv.FormatBool(next), nil
	})
	if err != nil {
		return false, err
	}
	return next, nil
}
