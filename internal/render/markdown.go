package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"gentabs/internal/schema"
)

// Markdown renders the app as a markdown document. This is the input for
// glamour-based display and for exporting an app as plain text.
func Markdown(s *schema.AppSchema) string {
	if s == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", s.Title)
	if s.Description != "" {
		fmt.Fprintf(&b, "_%s_\n\n", s.Description)
	}

	switch s.Type {
	case schema.TypeComparison:
		markdownComparison(&b, s)
	case schema.TypeTimeline:
		markdownTimeline(&b, s)
	case schema.TypeKanban:
		markdownKanban(&b, s)
	case schema.TypeSummary:
		markdownSummary(&b, s)
	case schema.TypeQuiz:
		markdownQuiz(&b, s)
	default:
		fmt.Fprintf(&b, "Unsupported app type: `%s`\n", s.Type)
	}
	return b.String()
}

// Pretty renders the markdown document through glamour for terminal display.
func Pretty(s *schema.AppSchema, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(Markdown(s))
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

func markdownComparison(b *strings.Builder, s *schema.AppSchema) {
	data, err := s.Comparison()
	if err != nil || data.Columns == nil || data.Rows == nil {
		b.WriteString("Invalid data\n")
		return
	}
	b.WriteString("| " + strings.Join(data.Columns, " | ") + " |\n")
	b.WriteString(strings.Repeat("| --- ", len(data.Columns)) + "|\n")
	for _, row := range data.Rows {
		cells := make([]string, len(data.Columns))
		for i, col := range data.Columns {
			v, ok := data.Cell(row, col)
			if !ok {
				v = "-"
			}
			cells[i] = strings.ReplaceAll(v, "|", "\\|")
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
}

func markdownTimeline(b *strings.Builder, s *schema.AppSchema) {
	data, err := s.Timeline()
	if err != nil || data.Items == nil {
		b.WriteString("Invalid data\n")
		return
	}
	for _, item := range data.Items {
		fmt.Fprintf(b, "- **%s** `%s`", item.Title, item.Date)
		if item.Description != "" {
			fmt.Fprintf(b, ": %s", item.Description)
		}
		b.WriteString("\n")
	}
}

func markdownKanban(b *strings.Builder, s *schema.AppSchema) {
	data, err := s.Kanban()
	if err != nil || data.Columns == nil {
		b.WriteString("Invalid data\n")
		return
	}
	for _, col := range data.Columns {
		fmt.Fprintf(b, "## %s (%d)\n\n", col.Title, len(col.Items))
		for _, item := range col.Items {
			fmt.Fprintf(b, "- **%s**", item.Title)
			if item.Description != "" {
				fmt.Fprintf(b, ": %s", item.Description)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
}

func markdownSummary(b *strings.Builder, s *schema.AppSchema) {
	data, err := s.Summary()
	if err != nil {
		b.WriteString("Invalid data\n")
		return
	}
	fmt.Fprintf(b, "%s\n\n", data.Summary)
	if len(data.KeyPoints) > 0 {
		b.WriteString("## Key Points\n\n")
		for _, pt := range data.KeyPoints {
			fmt.Fprintf(b, "- %s\n", pt)
		}
		b.WriteString("\n")
	}
	if len(data.ActionItems) > 0 {
		b.WriteString("## Action Items\n\n")
		for _, item := range data.ActionItems {
			fmt.Fprintf(b, "- [ ] %s\n", item)
		}
	}
}

func markdownQuiz(b *strings.Builder, s *schema.AppSchema) {
	data, err := s.Quiz()
	if err != nil || data.Questions == nil {
		b.WriteString("Invalid data\n")
		return
	}
	for i, q := range data.Questions {
		fmt.Fprintf(b, "%d. **%s**\n", i+1, q.Question)
		for j, opt := range q.Options {
			marker := " "
			if j == q.CorrectIndex {
				marker = "x"
			}
			fmt.Fprintf(b, "   - [%s] %s\n", marker, opt)
		}
		if q.Explanation != "" {
			fmt.Fprintf(b, "   > %s\n", q.Explanation)
		}
		b.WriteString("\n")
	}
}
