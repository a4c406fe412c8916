// Package session tracks one study session: its lifetime, how long each
// question and category was viewed, and how often questions are revisited.
// All timing state lives on the Session value.
package session

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/pmprep/internal/logger"
)

// Event actions.
const (
	ActionSessionStart       = "session_start"
	ActionSessionEnd         = "session_end"
	ActionQuestionView       = "question_view_duration"
	ActionCategoryView       = "category_view_duration"
	ActionQuestionRevisit    = "question_revisit"
	ActionNoteEdit           = "note_edit_duration"
	ActionQuestionCompletion = "question_completion"
)

// Event is one analytics record. Value's meaning depends on Action:
// seconds for durations, a count for revisits, 0/1 for completion.
type Event struct {
	SessionID string
	Action    string
	Label     string
	Value     int64
	At        time.Time
	Fields    map[string]any
}

// Reporter receives session events.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Event)

// Report calls f(e).
func (f ReporterFunc) Report(e Event) { f(e) }

// LogReporter writes events to a logger at info level.
func LogReporter(log *logger.Logger) Reporter {
	l := logger.OrNop(log).With("component", "session")
	return ReporterFunc(func(e Event) {
		kv := []any{"session_id", e.SessionID, "action", e.Action, "label", e.Label, "value", e.Value}
		for k, v := range e.Fields {
			kv = append(kv, k, v)
		}
		l.Info("session event", kv...)
	})
}

// Session holds the timers for one session. The zero value is not usable;
// call New.
type Session struct {
	id       string
	reporter Reporter
	now      func() time.Time

	mu            sync.Mutex
	started       time.Time
	ended         bool
	questionViews map[string]time.Time
	categoryViews map[string]time.Time
	visits        map[string]int
	noteEdit      time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithReporter sets where events go. Defaults to a no-op logger.
func WithReporter(r Reporter) Option {
	return func(s *Session) { s.reporter = r }
}

// New creates a session that has not started yet.
func New(opts ...Option) *Session {
	s := &Session{
		now:           time.Now,
		questionViews: make(map[string]time.Time),
		categoryViews: make(map[string]time.Time),
		visits:        make(map[string]int),
	}
	for _, o := range opts {
		o(s)
	}
	if s.reporter == nil {
		s.reporter = LogReporter(nil)
	}
	entropy := ulid.Monotonic(rand.Reader, 0)
	s.id = ulid.MustNew(ulid.Timestamp(s.now()), entropy).String()
	return s
}

// ID returns the session's ULID.
func (s *Session) ID() string { return s.id }

// Start records the session start. Calling it again restarts the clock.
func (s *Session) Start() {
	s.mu.Lock()
	s.started = s.now()
	s.ended = false
	at := s.started
	s.mu.Unlock()

	s.emit(Event{Action: ActionSessionStart, Label: at.UTC().Format(time.RFC3339), At: at})
}

// End records the session end and returns its length. Returns false if the
// session was never started or already ended.
func (s *Session) End() (time.Duration, bool) {
	s.mu.Lock()
	if s.started.IsZero() || s.ended {
		s.mu.Unlock()
		return 0, false
	}
	at := s.now()
	d := at.Sub(s.started)
	s.ended = true
	s.mu.Unlock()

	s.emit(Event{
		Action: ActionSessionEnd,
		Label:  at.UTC().Format(time.RFC3339),
		Value:  seconds(d),
		At:     at,
		Fields: map[string]any{"session_duration": seconds(d)},
	})
	return d, true
}

// StartQuestionView starts timing a question.
func (s *Session) StartQuestionView(questionID string) {
	s.mu.Lock()
	s.questionViews[questionID] = s.now()
	s.mu.Unlock()
}

// EndQuestionView stops timing a question started with StartQuestionView.
// Returns false if no view was in progress.
func (s *Session) EndQuestionView(questionID, title, category string) (time.Duration, bool) {
	s.mu.Lock()
	start, ok := s.questionViews[questionID]
	if !ok {
		s.mu.Unlock()
		return 0, false
	}
	delete(s.questionViews, questionID)
	at := s.now()
	s.mu.Unlock()

	d := at.Sub(start)
	s.emit(Event{
		Action: ActionQuestionView,
		Label:  category + " - " + title,
		Value:  seconds(d),
		At:     at,
		Fields: map[string]any{"question_id": questionID, "question_category": category},
	})
	return d, true
}

// StartCategoryView starts timing a category.
func (s *Session) StartCategoryView(category string) {
	s.mu.Lock()
	s.categoryViews[category] = s.now()
	s.mu.Unlock()
}

// EndCategoryView stops timing a category. Returns false if no view was in
// progress.
func (s *Session) EndCategoryView(category string) (time.Duration, bool) {
	s.mu.Lock()
	start, ok := s.categoryViews[category]
	if !ok {
		s.mu.Unlock()
		return 0, false
	}
	delete(s.categoryViews, category)
	at := s.now()
	s.mu.Unlock()

	d := at.Sub(start)
	s.emit(Event{
		Action: ActionCategoryView,
		Label:  category,
		Value:  seconds(d),
		At:     at,
		Fields: map[string]any{"navigation_section": category},
	})
	return d, true
}

// Revisit counts a visit to a question and returns the running total for
// this session.
func (s *Session) Revisit(questionID, title, category string) int {
	s.mu.Lock()
	s.visits[questionID]++
	n := s.visits[questionID]
	at := s.now()
	s.mu.Unlock()

	s.emit(Event{
		Action: ActionQuestionRevisit,
		Label:  category + " - " + title,
		Value:  int64(n),
		At:     at,
		Fields: map[string]any{"question_id": questionID, "question_category": category},
	})
	return n
}

// StartNoteEdit starts timing a note edit. Only one edit is timed at a time.
func (s *Session) StartNoteEdit() {
	s.mu.Lock()
	s.noteEdit = s.now()
	s.mu.Unlock()
}

// EndNoteEdit stops timing the current note edit. key is the note key as a
// string; contentLength is recorded alongside the duration.
func (s *Session) EndNoteEdit(key string, contentLength int) (time.Duration, bool) {
	s.mu.Lock()
	if s.noteEdit.IsZero() {
		s.mu.Unlock()
		return 0, false
	}
	start := s.noteEdit
	s.noteEdit = time.Time{}
	at := s.now()
	s.mu.Unlock()

	d := at.Sub(start)
	s.emit(Event{
		Action: ActionNoteEdit,
		Label:  key,
		Value:  seconds(d),
		At:     at,
		Fields: map[string]any{"content_length": contentLength},
	})
	return d, true
}

// Completion records a completion change.
func (s *Session) Completion(questionID, category string, completed bool) {
	var v int64
	if completed {
		v = 1
	}
	s.emit(Event{
		Action: ActionQuestionCompletion,
		Label:  category,
		Value:  v,
		At:     s.now(),
		Fields: map[string]any{"question_id": questionID, "question_category": category},
	})
}

func (s *Session) emit(e Event) {
	e.SessionID = s.id
	s.reporter.Report(e)
}

// seconds truncates d to whole seconds.
func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}
