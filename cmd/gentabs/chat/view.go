package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gentabs/internal/agent"
	"gentabs/internal/render"
	"gentabs/internal/schema"
	"gentabs/internal/workspace"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	header := m.styles.Header.Render("GenTabs")
	if m.generating {
		header += " " + m.spinner.View()
	}

	main := lipgloss.JoinHorizontal(lipgloss.Top,
		m.viewport.View(),
		m.renderSidebar(),
	)

	footer := m.styles.Footer.Render("enter send · ctrl+r reset · esc quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		main,
		m.textarea.View(),
		footer,
	)
}

// refreshViewport rebuilds the chat transcript plus the app canvas and
// scrolls to the bottom.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	var b strings.Builder
	b.WriteString(m.renderHistory())

	if app := m.ws.App(); app != nil {
		b.WriteString("\n")
		b.WriteString(m.renderCanvas(app))
	} else if !m.generating {
		b.WriteString("\n")
		b.WriteString(m.renderSuggestions())
	}

	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m Model) renderHistory() string {
	var sb strings.Builder
	for _, msg := range m.ws.Messages() {
		switch msg.Role {
		case schema.RoleUser:
			sb.WriteString(m.styles.UserLabel.Render("You") + "\n")
			sb.WriteString(msg.Content)
			sb.WriteString("\n")
		case schema.RoleSystem:
			sb.WriteString(m.styles.SystemMessage.Render(msg.Content))
			sb.WriteString("\n")
		default:
			sb.WriteString(m.styles.AssistantLabel.Render("GenTabs") + "\n")
			sb.WriteString(m.safeRenderMarkdown(msg.Content))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// safeRenderMarkdown renders markdown with panic recovery; glamour gets the
// raw text back on any failure.
func (m Model) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()
	if m.renderer != nil && content != "" {
		if rendered, err := m.renderer.Render(content); err == nil {
			return rendered
		}
	}
	return content
}

func (m Model) renderCanvas(app *schema.AppSchema) string {
	width := m.viewport.Width - 4
	if width < 20 {
		width = 20
	}
	return m.styles.Canvas.Width(m.viewport.Width - 2).Render(render.App(app, width))
}

func (m Model) renderSuggestions() string {
	var chips []string
	for _, s := range workspace.Suggestions {
		chips = append(chips, m.styles.Chip.Render(s))
	}
	return m.styles.Muted.Render("Try one of these:") + "\n" +
		lipgloss.JoinVertical(lipgloss.Left, chips...)
}

func (m Model) renderSidebar() string {
	var b strings.Builder

	b.WriteString(m.styles.SidebarTitle.Render("Sources"))
	items := m.ws.Sources()
	if len(items) == 0 {
		b.WriteString("\n" + m.styles.Muted.Render("none"))
	}
	for _, item := range items {
		title := item.Title
		if len(title) > sidebarWidth-4 {
			title = title[:sidebarWidth-5] + "…"
		}
		b.WriteString("\n" + m.styles.Accent.Render("▪") + " " + title)
	}

	b.WriteString("\n\n")
	b.WriteString(m.styles.SidebarTitle.Render("Agents"))
	for _, st := range m.ws.Statuses() {
		b.WriteString("\n" + m.renderStage(st))
	}

	height := m.viewport.Height
	return m.styles.Sidebar.Width(sidebarWidth).Height(height).Render(b.String())
}

func (m Model) renderStage(st agent.StageStatus) string {
	var icon string
	switch st.Status {
	case agent.StatusWorking:
		icon = m.styles.StatusWorking.Render(m.spinner.View())
	case agent.StatusDone:
		icon = m.styles.StatusDone.Render("✓")
	case agent.StatusError:
		icon = m.styles.StatusError.Render("✗")
	default:
		icon = m.styles.StatusIdle.Render("○")
	}
	line := fmt.Sprintf("%s %s", icon, st.Stage)
	if st.Message != "" {
		line += "\n   " + m.styles.Muted.Render(st.Message)
	}
	return line
}
