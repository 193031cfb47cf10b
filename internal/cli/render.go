package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme colors (Flexoki Dark)
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
	ColorBlue      = lipgloss.Color("#4385BE")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	cellStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	// WarnStyle highlights a day approaching the cap.
	WarnStyle = lipgloss.NewStyle().Foreground(ColorOrange)
	// LimitStyle highlights a capped day.
	LimitStyle = lipgloss.NewStyle().Foreground(ColorRed)
	// OKStyle renders totals comfortably below the cap.
	OKStyle = lipgloss.NewStyle().Foreground(ColorGreen)
)

// TotalStyle picks the style for an n-of-limit total: green below the
// warning band, orange within two of the cap, red at the cap.
func TotalStyle(total, limit int) lipgloss.Style {
	switch {
	case total >= limit:
		return LimitStyle
	case total >= limit-2:
		return WarnStyle
	default:
		return OKStyle
	}
}

// Muted renders dim secondary text.
func Muted(s string) string {
	return mutedStyle.Render(s)
}

// Table represents a bordered text table for CLI output.
type Table struct {
	Headers []string
	Rows    [][]string
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	width := 44
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(width).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderTable renders a bordered table with headers and rows.
func RenderTable(t Table) string {
	if len(t.Rows) == 0 && len(t.Headers) == 0 {
		return ""
	}

	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		if len(h) > widths[i] {
			widths[i] = len(h)
		}
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < numCols && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder

	if len(t.Headers) > 0 {
		cells := make([]string, numCols)
		for i, h := range t.Headers {
			cells[i] = headerStyle.Render(pad(h, widths[i]))
		}
		b.WriteString("  " + strings.Join(cells, "  ") + "\n")

		sep := make([]string, numCols)
		for i := range sep {
			sep[i] = mutedStyle.Render(strings.Repeat("─", widths[i]))
		}
		b.WriteString("  " + strings.Join(sep, "  ") + "\n")
	}

	for _, row := range t.Rows {
		cells := make([]string, numCols)
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if cell == stripANSI(cell) {
				cells[i] = cellStyle.Render(pad(cell, widths[i]))
			} else {
				// already styled; pad manually to preserve the styling
				cells[i] = cell + strings.Repeat(" ", max(0, widths[i]-lipgloss.Width(cell)))
			}
		}
		b.WriteString("  " + strings.Join(cells, "  ") + "\n")
	}

	return b.String()
}

func pad(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func stripANSI(s string) string {
	if !strings.Contains(s, "\x1b") {
		return s
	}
	var b strings.Builder
	inSeq := false
	for _, r := range s {
		switch {
		case inSeq:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inSeq = false
			}
		case r == '\x1b':
			inSeq = true
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// RenderKV renders an aligned "label: value" block.
func RenderKV(pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		if len(p[0]) > width {
			width = len(p[0])
		}
	}
	var b strings.Builder
	for _, p := range pairs {
		fmt.Fprintf(&b, "  %s  %s\n", mutedStyle.Render(pad(p[0], width)), p[1])
	}
	return b.String()
}
