// Package tracker holds the in-memory study state and implements the
// completion toggle protocol on top of the catalog and the progress ledger.
package tracker

import (
	"context"
	"strings"
	"sync"

	"github.com/hpungsan/pmprep/internal/aggregate"
	"github.com/hpungsan/pmprep/internal/catalog"
	"github.com/hpungsan/pmprep/internal/config"
	"github.com/hpungsan/pmprep/internal/errors"
	"github.com/hpungsan/pmprep/internal/logger"
	"github.com/hpungsan/pmprep/internal/progress"
	"github.com/hpungsan/pmprep/internal/question"
)

// Options configures a Tracker.
type Options struct {
	// Mode is config.ToggleModeLocal or config.ToggleModeRemote.
	Mode     string
	Taxonomy question.Taxonomy
	Source   catalog.Source
	Progress *progress.Store
	Log      *logger.Logger
}

// Snapshot is a copy of the tracker's visible state.
type Snapshot struct {
	Mode       string               `json:"mode"`
	Categories []aggregate.Category `json:"categories"`
	Selected   string               `json:"selectedCategory"`
	Summary    progress.Summary     `json:"summary"`
	LoadError  string               `json:"loadError,omitempty"`
}

// Tracker serializes all state changes behind one mutex. Every change
// rebuilds the category tree from scratch.
type Tracker struct {
	mode     string
	taxonomy question.Taxonomy
	source   catalog.Source
	progress *progress.Store
	log      *logger.Logger

	mu         sync.Mutex
	questions  []question.Question
	ledger     progress.Ledger
	categories []aggregate.Category
	selected   string
	loadErr    error
}

// New creates a Tracker. An empty mode means local; a nil taxonomy means
// question.DefaultTaxonomy.
func New(opts Options) (*Tracker, error) {
	mode := strings.ToLower(strings.TrimSpace(opts.Mode))
	if mode == "" {
		mode = config.ToggleModeLocal
	}
	if mode != config.ToggleModeLocal && mode != config.ToggleModeRemote {
		return nil, errors.NewInvalidRequest("unknown toggle mode: " + opts.Mode)
	}
	if opts.Source == nil || opts.Progress == nil {
		return nil, errors.NewInvalidRequest("tracker requires a question source and a progress store")
	}
	tax := opts.Taxonomy
	if tax == nil {
		tax = question.DefaultTaxonomy()
	}
	t := &Tracker{
		mode:     mode,
		taxonomy: tax,
		source:   opts.Source,
		progress: opts.Progress,
		log:      logger.OrNop(opts.Log).With("component", "tracker", "mode", mode),
		ledger:   progress.Ledger{},
	}
	t.rebuild()
	return t, nil
}

// Mode returns the active toggle mode.
func (t *Tracker) Mode() string { return t.mode }

// Load fetches the catalog and hydrates the ledger.
//
// A fetch failure leaves an empty catalog (every category present with no
// questions) and is returned so callers can tell it apart from an empty
// store; it is also reported by Snapshot.LoadError.
//
// In remote mode the store's isCompleted flags take precedence and the local
// ledger is rewritten to mirror them. A failed mirror write is logged only.
func (t *Tracker) Load(ctx context.Context) error {
	qs, err := t.source.Questions(ctx, question.Filter{})

	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		t.log.Warn("catalog load failed, showing empty categories", "error", err)
		t.questions = nil
		t.loadErr = err
		t.ledger = t.progress.GetAll()
		t.rebuild()
		return err
	}

	t.questions = qs
	t.loadErr = nil

	if t.mode == config.ToggleModeRemote {
		remote := storeLedger(qs)
		if _, werr := t.progress.Replace(remote); werr != nil {
			t.log.Warn("could not mirror remote completion into local ledger", "error", werr)
		}
		t.ledger = remote
	} else {
		t.ledger = t.progress.GetAll()
	}

	t.rebuild()
	t.log.Debug("catalog loaded", "questions", len(qs), "completed", len(t.ledger))
	return nil
}

// Toggle flips the completion of id and returns the new value. State is
// advanced only after the authoritative store confirms the write; on any
// error the tracker is left exactly as it was.
func (t *Tracker) Toggle(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, errors.NewInvalidRequest("question id is required")
	}
	if t.mode == config.ToggleModeRemote {
		return t.toggleRemote(ctx, id)
	}
	return t.toggleLocal(id)
}

func (t *Tracker) toggleLocal(id string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.known(id) {
		return false, errors.NewNotFound(id)
	}
	next := !t.ledger[id]
	ledger, err := t.progress.SetCompletion(id, next)
	if err != nil {
		t.log.Warn("toggle not applied", "question_id", id, "error", err)
		return false, err
	}
	t.ledger = ledger
	t.rebuild()
	return next, nil
}

func (t *Tracker) toggleRemote(ctx context.Context, id string) (bool, error) {
	// The network call happens outside the lock; nothing is touched until
	// the store answers.
	next, err := t.source.Toggle(ctx, id)
	if err != nil {
		t.log.Warn("remote toggle failed, state unchanged", "question_id", id, "error", err)
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ledger := t.ledger.Clone()
	if next {
		ledger[id] = true
	} else {
		delete(ledger, id)
	}
	for i := range t.questions {
		if t.questions[i].ID == id {
			t.questions[i].IsCompleted = next
		}
	}
	t.ledger = ledger
	t.rebuild()

	if _, merr := t.progress.SetCompletion(id, next); merr != nil {
		t.log.Warn("remote toggle applied but local mirror failed", "question_id", id, "error", merr)
	}
	return next, nil
}

// ClearAll empties the local ledger. In remote mode only the local mirror is
// cleared: the store's flags stay authoritative, so the in-memory state keeps
// showing them and the next toggle still flips what is displayed.
func (t *Tracker) ClearAll() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.progress.ClearAll() {
		return errors.NewPersistence(progress.StorageKey, nil)
	}
	if t.mode == config.ToggleModeRemote {
		t.ledger = storeLedger(t.questions)
	} else {
		t.ledger = progress.Ledger{}
	}
	t.rebuild()
	return nil
}

// Select changes the selected category.
func (t *Tracker) Select(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.taxonomy.Lookup(name); !ok {
		return errors.NewInvalidRequest("unknown category: " + name)
	}
	t.selected = name
	return nil
}

// Selected returns the currently selected category.
func (t *Tracker) Selected() (aggregate.Category, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return aggregate.Find(t.categories, t.selected)
}

// Question returns a loaded question with its tracked completion.
func (t *Tracker) Question(id string) (question.Question, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, q := range t.questions {
		if q.ID == id {
			q.IsCompleted = t.ledger[id]
			return q, nil
		}
	}
	return question.Question{}, errors.NewNotFound(id)
}

// Questions returns the loaded questions passing f, with tracked completion.
func (t *Tracker) Questions(f question.Filter) []question.Question {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := f.Clean().Apply(t.questions)
	for i := range out {
		out[i].IsCompleted = t.ledger[out[i].ID]
	}
	return out
}

// Snapshot returns a copy of the visible state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		Mode:       t.mode,
		Categories: aggregate.Aggregate(t.taxonomy, t.questions, t.ledger),
		Selected:   t.selected,
		Summary:    aggregate.Totals(t.categories),
	}
	if t.loadErr != nil {
		snap.LoadError = t.loadErr.Error()
	}
	return snap
}

// rebuild recomputes the category tree. Callers hold mu.
func (t *Tracker) rebuild() {
	t.categories = aggregate.Aggregate(t.taxonomy, t.questions, t.ledger)
	if t.selected == "" && len(t.categories) > 0 {
		t.selected = t.categories[0].Name
	}
}

func (t *Tracker) known(id string) bool {
	for _, q := range t.questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

// storeLedger builds a ledger from the store's own isCompleted flags.
func storeLedger(qs []question.Question) progress.Ledger {
	l := make(progress.Ledger)
	for _, q := range qs {
		if q.IsCompleted {
			l[q.ID] = true
		}
	}
	return l
}
