// Package chat provides the interactive TUI for gentabs: a chat pane driving
// generation, a sidebar with sources and agent status, and a canvas showing
// the active app.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"gentabs/cmd/gentabs/ui"
	"gentabs/internal/agent"
	"gentabs/internal/schema"
	"gentabs/internal/source"
	"gentabs/internal/store"
	"gentabs/internal/workspace"
)

const sidebarWidth = 34

// resultMsg carries a finished generation back into the update loop.
type resultMsg struct {
	app *schema.AppSchema
	err error
}

// statusMsg is an agent status snapshot.
type statusMsg []agent.StageStatus

// sourceEventMsg is a settled change from the source watcher.
type sourceEventMsg source.Event

// Deps are the collaborators the chat model drives. Store and Watcher are
// optional; a nil Store disables persistence, a nil Watcher disables the
// live source directory.
type Deps struct {
	Workspace    *workspace.Workspace
	Orchestrator *agent.Orchestrator
	Store        *store.Store
	Watcher      *source.Watcher
	SessionID    string
	Timeout      time.Duration
	Log          *zap.Logger
}

// Model is the bubbletea model for the chat session.
type Model struct {
	ws        *workspace.Workspace
	orch      *agent.Orchestrator
	store     *store.Store
	watcher   *source.Watcher
	sessionID string
	timeout   time.Duration
	log       *zap.Logger

	statusCh chan []agent.StageStatus

	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	styles   ui.Styles

	width      int
	height     int
	ready      bool
	generating bool
	quitting   bool
}

// New creates the chat model. The returned status channel must be wired as
// the orchestrator's notifier before the program starts; StatusNotifier does
// that.
func New(deps Deps) Model {
	ta := textarea.New()
	ta.Placeholder = "Describe the app you want, or /help"
	ta.CharLimit = 2000
	ta.SetHeight(2)
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return Model{
		ws:        deps.Workspace,
		orch:      deps.Orchestrator,
		store:     deps.Store,
		watcher:   deps.Watcher,
		sessionID: deps.SessionID,
		timeout:   timeout,
		log:       log,
		statusCh:  make(chan []agent.StageStatus, 8),
		textarea:  ta,
		spinner:   sp,
		styles:    ui.DefaultStyles(),
	}
}

// WithOrchestrator installs the orchestrator. It is set after construction
// because the orchestrator's notifier comes from the model.
func (m Model) WithOrchestrator(orch *agent.Orchestrator) Model {
	m.orch = orch
	return m
}

// StatusNotifier returns the notifier to hand to the orchestrator. Snapshots
// that arrive faster than the UI drains them are dropped; only the latest
// matters.
func (m Model) StatusNotifier() agent.Notifier {
	ch := m.statusCh
	return func(snap []agent.StageStatus) {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, m.spinner.Tick, m.waitStatus()}
	if m.watcher != nil {
		cmds = append(cmds, m.waitSourceEvent())
	}
	return tea.Batch(cmds...)
}

// waitStatus blocks on the next agent status snapshot.
func (m Model) waitStatus() tea.Cmd {
	ch := m.statusCh
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return statusMsg(snap)
	}
}

// waitSourceEvent blocks on the next settled watcher event.
func (m Model) waitSourceEvent() tea.Cmd {
	events := m.watcher.Events()
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return sourceEventMsg(ev)
	}
}

// generate runs the pipeline off the update loop. Whether it creates or
// refines depends on there being an active app.
func (m Model) generate(instruction string) tea.Cmd {
	ws, orch, timeout := m.ws, m.orch, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var app *schema.AppSchema
		var err error
		if current := ws.App(); current != nil {
			app, err = orch.RefineRequest(ctx, current, ws.Messages(), instruction)
		} else {
			app, err = orch.ProcessRequest(ctx, ws.Sources(), instruction)
		}
		return resultMsg{app: app, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "ctrl+r":
			m.cancelInFlight()
			m.ws.Reset()
			m.refreshViewport()
			return m, nil
		case "enter":
			return m.handleSubmit()
		}

	case statusMsg:
		m.ws.SetStatuses(msg)
		return m, m.waitStatus()

	case sourceEventMsg:
		m.applySourceEvent(source.Event(msg))
		m.refreshViewport()
		return m, m.waitSourceEvent()

	case resultMsg:
		return m.handleResult(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	chatWidth := m.width - sidebarWidth - 2
	if chatWidth < 20 {
		chatWidth = m.width
	}
	vpHeight := m.height - m.textarea.Height() - 4
	if vpHeight < 3 {
		vpHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(chatWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = chatWidth
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(chatWidth)

	if r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(chatWidth-2),
	); err == nil {
		m.renderer = r
	} else {
		m.log.Warn("markdown renderer unavailable", zap.Error(err))
	}

	m.refreshViewport()
	return m, nil
}

// cancelInFlight discards any running generation so its late result cannot
// overwrite state the user just changed. The superseded run reports
// ErrSuperseded and handleResult drops it silently.
func (m *Model) cancelInFlight() {
	if !m.generating {
		return
	}
	if m.orch != nil {
		m.orch.Invalidate()
	}
	m.generating = false
}

func (m *Model) handleSubmit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textarea.Value())
	if input == "" {
		return *m, nil
	}
	m.textarea.Reset()

	if strings.HasPrefix(input, "/") {
		return m.handleCommand(input)
	}

	if m.generating {
		m.ws.AppendSystem("Still working on the previous request.")
		m.refreshViewport()
		return *m, nil
	}

	userMsg := m.ws.AppendUser(input)
	m.persistMessage(userMsg)
	m.generating = true
	m.refreshViewport()
	return *m, m.generate(input)
}

func (m Model) handleResult(msg resultMsg) (tea.Model, tea.Cmd) {
	m.generating = false

	if msg.err != nil {
		switch {
		case errors.Is(msg.err, agent.ErrSuperseded):
			// A newer request took over; nothing to show.
		case errors.Is(msg.err, agent.ErrBusy):
			m.ws.AppendSystem("Another request is already running.")
		default:
			failMsg := m.ws.ReportFailure(msg.err)
			m.persistMessage(failMsg)
		}
		m.refreshViewport()
		return m, nil
	}

	confirm := m.ws.ConfirmGeneration(msg.app)
	m.persistMessage(confirm)
	m.persistSnapshot(msg.app)
	m.refreshViewport()
	return m, nil
}

// applySourceEvent folds a watcher event into the workspace. File identity
// is the URL, so an updated file replaces its previous item.
func (m *Model) applySourceEvent(ev source.Event) {
	if ev.Removed != "" {
		for _, item := range m.ws.Sources() {
			if item.URL == ev.Removed {
				m.ws.RemoveSource(item.ID)
				if m.store != nil {
					if err := m.store.DeleteSource(m.sessionID, item.ID); err != nil {
						m.log.Warn("delete source failed", zap.Error(err))
					}
				}
			}
		}
		return
	}
	for _, item := range m.ws.Sources() {
		if item.URL == ev.Item.URL {
			m.ws.RemoveSource(item.ID)
		}
	}
	added := m.ws.AddSource(ev.Item)
	if m.store != nil {
		if err := m.store.SaveSource(m.sessionID, added); err != nil {
			m.log.Warn("save source failed", zap.Error(err))
		}
	}
}

func (m Model) persistMessage(msg schema.Message) {
	if m.store == nil {
		return
	}
	if err := m.store.SaveMessage(m.sessionID, msg); err != nil {
		m.log.Warn("save message failed", zap.Error(err))
	}
}

func (m Model) persistSnapshot(app *schema.AppSchema) {
	if m.store == nil || app == nil {
		return
	}
	if err := m.store.SaveSnapshot(m.sessionID, app); err != nil {
		m.log.Warn("save snapshot failed", zap.Error(err))
	}
}
