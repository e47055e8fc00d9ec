// Package render maps an app schema to a displayable text tree. Dispatch is
// a pure function of the schema; every adapter guards against malformed
// payloads by rendering a placeholder instead of failing. The only in-session
// mutation (kanban add-item) lives in the schema package and goes through the
// replace-whole-schema path; nothing here mutates anything.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gentabs/internal/schema"
)

var (
	titleStyle       = lipgloss.NewStyle().Bold(true)
	descriptionStyle = lipgloss.NewStyle().Faint(true)
	headingStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	accentStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	mutedStyle       = lipgloss.NewStyle().Faint(true)
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	placeholderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				Padding(0, 2).
				Foreground(lipgloss.Color("9"))
)

// App renders the full app view: title, description, and the type-specific
// body. Unknown types render a visible unsupported notice.
func App(s *schema.AppSchema, width int) string {
	if s == nil {
		return mutedStyle.Render("No active app")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(s.Title))
	b.WriteString("\n")
	if s.Description != "" {
		b.WriteString(descriptionStyle.Render(s.Description))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(Body(s, width))
	b.WriteString("\n\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("generated by %s agent", s.Type)))
	return b.String()
}

// Body renders only the type-specific content.
func Body(s *schema.AppSchema, width int) string {
	switch s.Type {
	case schema.TypeComparison:
		return renderComparison(s, width)
	case schema.TypeTimeline:
		return renderTimeline(s)
	case schema.TypeKanban:
		return renderKanban(s)
	case schema.TypeSummary:
		return renderSummary(s)
	case schema.TypeQuiz:
		return renderQuiz(s)
	default:
		return unsupported(s.Type)
	}
}

func unsupported(t schema.AppType) string {
	return placeholderStyle.Render(fmt.Sprintf("Unsupported app type: %s", t))
}

// invalidData is the shared placeholder for payloads that do not decode or
// that are missing required collections.
func invalidData() string {
	return placeholderStyle.Render("Invalid data")
}
