package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeeftor/yamlsql/internal/styles"
)

// Common TUI styles using the centralized styles package
var (
	TitleStyle     = styles.TitleStyle
	SuccessStyle   = styles.SuccessStyle
	ErrorStyle     = styles.ErrorStyle
	WarningStyle   = styles.WarningStyle
	MutedStyle     = styles.MutedStyle
	BoxStyle       = styles.BoxStyle
	BoldStyle      = styles.BoldStyle
	HighlightStyle = styles.HighlightStyle
)

// Prompt button styles
var (
	ButtonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(styles.Accent)).
			Padding(0, 2).
			MarginRight(1)

	SelectedButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(styles.PrimaryText)).
				Background(lipgloss.Color(styles.Primary)).
				Bold(true).
				Padding(0, 2).
				MarginRight(1)
)

// Renderer lays out reports for plain terminal output
type Renderer struct {
	width int
}

// NewRenderer creates a renderer; width <= 0 disables wrapping
func NewRenderer(width int) *Renderer {
	return &Renderer{width: width}
}

// RenderTitle renders a title bar
func (r *Renderer) RenderTitle(title string) string {
	return TitleStyle.Render(title)
}

// RenderBox renders content in a box with optional title
func (r *Renderer) RenderBox(content string, title string) string {
	boxStyle := BoxStyle
	if r.width > 0 {
		boxStyle = boxStyle.Width(r.width - 4)
	}
	if title != "" {
		content = BoldStyle.Render(title) + "\n\n" + content
	}
	return boxStyle.Render(content)
}

// RenderList renders a list of items with optional numbering
func (r *Renderer) RenderList(items []string, numbered bool) []string {
	lines := make([]string, 0, len(items))
	for i, item := range items {
		if numbered {
			lines = append(lines, fmt.Sprintf("%s. %s", MutedStyle.Render(fmt.Sprintf("%d", i+1)), item))
		} else {
			lines = append(lines, "• "+item)
		}
	}
	return lines
}

// RenderTable renders tabular data with headers. Cells longer than their
// column are truncated when maxWidth forces columns to shrink.
func (r *Renderer) RenderTable(headers []string, rows [][]string, maxWidth int) string {
	if len(headers) == 0 || len(rows) == 0 {
		return ""
	}

	colWidths := make([]int, len(headers))
	for i, header := range headers {
		colWidths[i] = lipgloss.Width(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(colWidths) && lipgloss.Width(cell) > colWidths[i] {
				colWidths[i] = lipgloss.Width(cell)
			}
		}
	}

	if maxWidth > 0 {
		total := 0
		for _, w := range colWidths {
			total += w
		}
		if total > maxWidth {
			factor := float64(maxWidth) / float64(total)
			for i := range colWidths {
				colWidths[i] = int(float64(colWidths[i]) * factor)
				if colWidths[i] < 4 {
					colWidths[i] = 4
				}
			}
		}
	}

	var lines []string

	headerParts := make([]string, len(headers))
	for i, header := range headers {
		headerParts[i] = BoldStyle.Width(colWidths[i]).Render(header)
	}
	lines = append(lines, strings.Join(headerParts, " | "))

	sepParts := make([]string, len(colWidths))
	for i, w := range colWidths {
		sepParts[i] = strings.Repeat("-", w)
	}
	lines = append(lines, strings.Join(sepParts, "-+-"))

	for _, row := range rows {
		var rowParts []string
		for i, cell := range row {
			if i >= len(colWidths) {
				break
			}
			if lipgloss.Width(cell) > colWidths[i] {
				cell = truncate(cell, colWidths[i])
			}
			rowParts = append(rowParts, cell+strings.Repeat(" ", colWidths[i]-lipgloss.Width(cell)))
		}
		lines = append(lines, strings.TrimRight(strings.Join(rowParts, " | "), " "))
	}

	return strings.Join(lines, "\n")
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
