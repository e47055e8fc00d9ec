// Package workspace holds the mutable state of one chat session: the context
// sources, the append-only chat log, the active app, and the latest agent
// status snapshot. All mutation goes through this package; readers get copies.
package workspace

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"gentabs/internal/agent"
	"gentabs/internal/schema"
)

const welcomeText = "Hi! I'm GenTabs. Add some sources and tell me what you " +
	"need, and I'll build a small app from them: a comparison table, a " +
	"timeline, a kanban board, a summary, or a quiz."

// Suggestions are canned instructions offered when no app is active yet.
var Suggestions = []string{
	"Compare my sources in a table",
	"Summarize everything with action items",
	"Build a timeline of the key events",
	"Turn this into a study quiz",
}

// Workspace is the state of one session. The zero value is not usable; use New.
type Workspace struct {
	mu       sync.Mutex
	sources  []schema.ContextItem
	messages []schema.Message
	app      *schema.AppSchema
	statuses []agent.StageStatus
	now      func() time.Time
}

// Option customizes a Workspace.
type Option func(*Workspace)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(w *Workspace) { w.now = now }
}

// New creates a workspace with an all-idle status snapshot and a welcome
// message already in the chat log.
func New(opts ...Option) *Workspace {
	w := &Workspace{
		statuses: agent.IdleStatuses(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.messages = append(w.messages, schema.Message{
		ID:        uuid.New().String(),
		Role:      schema.RoleAssistant,
		Content:   welcomeText,
		Timestamp: w.now(),
	})
	return w
}

// AddSource adds a context item. An empty ID is filled in.
func (w *Workspace) AddSource(item schema.ContextItem) schema.ContextItem {
	w.mu.Lock()
	defer w.mu.Unlock()
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CapturedAt.IsZero() {
		item.CapturedAt = w.now()
	}
	w.sources = append(w.sources, item)
	return item
}

// RemoveSource removes the source with the given id. It reports whether a
// source was removed.
func (w *Workspace) RemoveSource(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, s := range w.sources {
		if s.ID == id {
			w.sources = append(w.sources[:i], w.sources[i+1:]...)
			return true
		}
	}
	return false
}

// Sources returns a copy of the current source set.
func (w *Workspace) Sources() []schema.ContextItem {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]schema.ContextItem, len(w.sources))
	copy(out, w.sources)
	return out
}

// AppendUser appends a user message and returns it.
func (w *Workspace) AppendUser(content string) schema.Message {
	return w.appendMessage(schema.RoleUser, content, "")
}

// AppendAssistant appends an assistant message, optionally tied to an app.
func (w *Workspace) AppendAssistant(content, relatedAppID string) schema.Message {
	return w.appendMessage(schema.RoleAssistant, content, relatedAppID)
}

// AppendSystem appends a system message, used for error reports in the log.
func (w *Workspace) AppendSystem(content string) schema.Message {
	return w.appendMessage(schema.RoleSystem, content, "")
}

func (w *Workspace) appendMessage(role schema.Role, content, relatedAppID string) schema.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	msg := schema.Message{
		ID:           uuid.New().String(),
		Role:         role,
		Content:      content,
		Timestamp:    w.now(),
		RelatedAppID: relatedAppID,
	}
	w.messages = append(w.messages, msg)
	return msg
}

// RestoreMessages replaces the chat log with a persisted one when resuming a
// session. An empty slice is a no-op so a fresh session keeps its greeting.
func (w *Workspace) RestoreMessages(msgs []schema.Message) {
	if len(msgs) == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = make([]schema.Message, len(msgs))
	copy(w.messages, msgs)
}

// Messages returns a copy of the chat log, oldest first.
func (w *Workspace) Messages() []schema.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]schema.Message, len(w.messages))
	copy(out, w.messages)
	return out
}

// SetApp replaces the active app wholesale. Partial in-place edits are not
// supported; mutations like kanban add-item produce a full replacement schema
// that comes back through here.
func (w *Workspace) SetApp(app *schema.AppSchema) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.app = app
}

// App returns the active app, or nil when none is set.
func (w *Workspace) App() *schema.AppSchema {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.app
}

// Reset clears the active app and resets agent status. Sources and the chat
// log survive a reset.
func (w *Workspace) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.app = nil
	w.statuses = agent.IdleStatuses()
}

// SetStatuses stores the latest agent status snapshot.
func (w *Workspace) SetStatuses(snap []agent.StageStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.statuses = snap
}

// Statuses returns a copy of the latest agent status snapshot.
func (w *Workspace) Statuses() []agent.StageStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]agent.StageStatus, len(w.statuses))
	copy(out, w.statuses)
	return out
}

// ConfirmGeneration stores the app and appends the assistant confirmation,
// tagged with a fresh app id so the message can be traced to the result.
func (w *Workspace) ConfirmGeneration(app *schema.AppSchema) schema.Message {
	w.SetApp(app)
	return w.AppendAssistant(
		fmt.Sprintf("Done. I built a %s app: %s", app.Type, app.Title),
		uuid.New().String())
}

// ReportFailure appends a system-role error message for a failed generation.
func (w *Workspace) ReportFailure(err error) schema.Message {
	return w.AppendSystem(fmt.Sprintf("Generation failed: %v", err))
}
