package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gentabs/internal/schema"
)

// renderComparison draws a bordered table. Cell lookup tolerates
// case-mismatched row keys; missing cells render a dash.
func renderComparison(s *schema.AppSchema, width int) string {
	data, err := s.Comparison()
	if err != nil || data.Columns == nil || data.Rows == nil {
		return invalidData()
	}

	colWidth := 18
	if width > 0 && len(data.Columns) > 0 {
		if w := (width - 2) / len(data.Columns); w > 8 && w < colWidth {
			colWidth = w
		}
	}

	cell := func(text string) string {
		return lipgloss.NewStyle().Width(colWidth).MaxWidth(colWidth).Render(text)
	}

	var b strings.Builder
	header := make([]string, len(data.Columns))
	for i, col := range data.Columns {
		header[i] = headingStyle.Render(cell(col))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, header...))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", colWidth*len(data.Columns))))

	for _, row := range data.Rows {
		cells := make([]string, len(data.Columns))
		for i, col := range data.Columns {
			v, ok := data.Cell(row, col)
			if !ok {
				v = "-"
			}
			cells[i] = cell(v)
		}
		b.WriteString("\n")
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return b.String()
}

// renderTimeline draws entries in sequence order; no chronological sort is
// imposed on the model's ordering.
func renderTimeline(s *schema.AppSchema) string {
	data, err := s.Timeline()
	if err != nil || data.Items == nil {
		return invalidData()
	}

	var b strings.Builder
	for i, item := range data.Items {
		if i > 0 {
			b.WriteString("\n")
			b.WriteString(mutedStyle.Render("│"))
			b.WriteString("\n")
		}
		b.WriteString(accentStyle.Render("●"))
		b.WriteString(" ")
		b.WriteString(titleStyle.Render(item.Title))
		b.WriteString("  ")
		b.WriteString(mutedStyle.Render(fmt.Sprintf("[%s]", item.Date)))
		if item.Description != "" {
			b.WriteString("\n")
			b.WriteString("  ")
			b.WriteString(item.Description)
		}
	}
	return b.String()
}

// renderKanban draws columns side by side with item counts.
func renderKanban(s *schema.AppSchema) string {
	data, err := s.Kanban()
	if err != nil || data.Columns == nil {
		return invalidData()
	}

	columnStyle := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		Padding(0, 1).
		Width(26)

	rendered := make([]string, 0, len(data.Columns))
	for _, col := range data.Columns {
		var b strings.Builder
		b.WriteString(headingStyle.Render(col.Title))
		b.WriteString(mutedStyle.Render(fmt.Sprintf(" (%d)", len(col.Items))))
		for _, item := range col.Items {
			b.WriteString("\n\n")
			b.WriteString(titleStyle.Render(item.Title))
			if item.Description != "" {
				b.WriteString("\n")
				b.WriteString(mutedStyle.Render(item.Description))
			}
		}
		rendered = append(rendered, columnStyle.Render(b.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// renderSummary draws the executive summary, key points, and action items.
func renderSummary(s *schema.AppSchema) string {
	data, err := s.Summary()
	if err != nil {
		return invalidData()
	}

	var b strings.Builder
	b.WriteString(headingStyle.Render("Summary"))
	b.WriteString("\n")
	b.WriteString(data.Summary)

	if len(data.KeyPoints) > 0 {
		b.WriteString("\n\n")
		b.WriteString(headingStyle.Render("Key Points"))
		for _, pt := range data.KeyPoints {
			b.WriteString("\n")
			b.WriteString(accentStyle.Render("•"))
			b.WriteString(" ")
			b.WriteString(pt)
		}
	}

	if len(data.ActionItems) > 0 {
		b.WriteString("\n\n")
		b.WriteString(headingStyle.Render("Action Items"))
		for _, item := range data.ActionItems {
			b.WriteString("\n")
			b.WriteString(accentStyle.Render("→"))
			b.WriteString(" ")
			b.WriteString(item)
		}
	}
	return b.String()
}

// renderQuiz draws questions with their options; the correct option is
// marked and the explanation shown below it. An out-of-range correctIndex
// marks nothing rather than failing.
func renderQuiz(s *schema.AppSchema) string {
	data, err := s.Quiz()
	if err != nil || data.Questions == nil {
		return invalidData()
	}

	var b strings.Builder
	for i, q := range data.Questions {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(titleStyle.Render(fmt.Sprintf("%d. %s", i+1, q.Question)))
		for j, opt := range q.Options {
			b.WriteString("\n")
			marker := " "
			if j == q.CorrectIndex {
				marker = accentStyle.Render("✓")
			}
			b.WriteString(fmt.Sprintf("  %s %s) %s", marker, string(rune('A'+j)), opt))
		}
		if q.Explanation != "" {
			b.WriteString("\n")
			b.WriteString(mutedStyle.Render("  " + q.Explanation))
		}
	}
	return b.String()
}
