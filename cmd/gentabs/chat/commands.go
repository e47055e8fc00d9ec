package chat

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gentabs/internal/schema"
	"gentabs/internal/source"
	"gentabs/internal/workspace"
)

const helpText = `Commands:
  /add <path>      add a file as a context source
  /remove <id>     remove a source by id prefix
  /sources         list current sources
  /demo [name]     load a bundled demo (framework-research, phone-shopping)
  /item <col> <t>  add a card to a kanban column of the active board
  /reset           clear the active app, keep sources and chat
  /help            show this help
  /quit            exit

Plain messages build an app from your sources; once an app is active,
messages refine it. Ctrl+R resets, Esc quits.`

// handleCommand dispatches a slash command typed into the chat input.
func (m *Model) handleCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/help":
		m.ws.AppendSystem(helpText)

	case "/quit", "/exit":
		m.quitting = true
		return *m, tea.Quit

	case "/reset":
		m.cancelInFlight()
		m.ws.Reset()
		m.ws.AppendSystem("Cleared the active app.")

	case "/add":
		if len(args) == 0 {
			m.ws.AppendSystem("Usage: /add <path>")
			break
		}
		m.addSource(strings.Join(args, " "))

	case "/remove":
		if len(args) == 0 {
			m.ws.AppendSystem("Usage: /remove <id>")
			break
		}
		m.removeSource(args[0])

	case "/sources":
		m.listSources()

	case "/item":
		if len(args) < 2 {
			m.ws.AppendSystem("Usage: /item <column-id> <title>")
			break
		}
		m.addKanbanItem(args[0], strings.Join(args[1:], " "))

	case "/demo":
		name := "framework-research"
		if len(args) > 0 {
			name = args[0]
		}
		fixture, ok := workspace.FixtureByName(name)
		if !ok {
			m.ws.AppendSystem(fmt.Sprintf("No demo named %q.", name))
			break
		}
		m.cancelInFlight()
		m.ws.Load(fixture)

	default:
		m.ws.AppendSystem(fmt.Sprintf("Unknown command %s. Try /help.", cmd))
	}

	m.refreshViewport()
	return *m, nil
}

// addKanbanItem appends a card to the active kanban board. The mutation is
// copy-on-write and comes back as a whole replacement schema.
func (m *Model) addKanbanItem(columnID, title string) {
	app := m.ws.App()
	if app == nil || app.Type != schema.TypeKanban {
		m.ws.AppendSystem("No active kanban board.")
		return
	}
	board, err := app.Kanban()
	if err != nil {
		m.ws.AppendSystem(fmt.Sprintf("The active board has invalid data: %v", err))
		return
	}
	updated, err := board.AddItem(columnID, schema.KanbanItem{
		ID:    uuid.New().String(),
		Title: title,
	})
	if err != nil {
		m.ws.AppendSystem(err.Error())
		return
	}
	next, err := app.WithData(updated)
	if err != nil {
		m.ws.AppendSystem(fmt.Sprintf("Could not update the board: %v", err))
		return
	}
	m.ws.SetApp(next)
	m.persistSnapshot(next)
	m.ws.AppendSystem(fmt.Sprintf("Added %q to column %s.", title, columnID))
}

func (m *Model) addSource(path string) {
	item, err := source.LoadFile(path)
	if err != nil {
		m.ws.AppendSystem(fmt.Sprintf("Could not add %s: %v", path, err))
		return
	}
	added := m.ws.AddSource(item)
	if m.store != nil {
		if err := m.store.SaveSource(m.sessionID, added); err != nil {
			m.log.Warn("save source failed", zap.Error(err))
		}
	}
	m.ws.AppendSystem(fmt.Sprintf("Added source: %s", added.Title))
}

func (m *Model) removeSource(idPrefix string) {
	for _, item := range m.ws.Sources() {
		if strings.HasPrefix(item.ID, idPrefix) {
			m.ws.RemoveSource(item.ID)
			if m.store != nil {
				if err := m.store.DeleteSource(m.sessionID, item.ID); err != nil {
					m.log.Warn("delete source failed", zap.Error(err))
				}
			}
			m.ws.AppendSystem(fmt.Sprintf("Removed source: %s", item.Title))
			return
		}
	}
	m.ws.AppendSystem(fmt.Sprintf("No source matches %q.", idPrefix))
}

func (m *Model) listSources() {
	items := m.ws.Sources()
	if len(items) == 0 {
		m.ws.AppendSystem("No sources yet. Use /add <path> or drop files into the watched directory.")
		return
	}
	var b strings.Builder
	b.WriteString("Sources:")
	for _, item := range items {
		short := item.ID
		if len(short) > 8 {
			short = short[:8]
		}
		fmt.Fprintf(&b, "\n  %s  %s", short, item.Title)
	}
	m.ws.AppendSystem(b.String())
}
