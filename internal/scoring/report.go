package scoring

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorGood  = lipgloss.Color("42")
	colorWarn  = lipgloss.Color("214")
	colorBad   = lipgloss.Color("196")
	colorMuted = lipgloss.Color("241")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	scoreStyle  = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 2)
)

type column struct {
	title string
	width int
	right bool
}

var resultColumns = []column{
	{"#", 3, true},
	{"Difficulty", 10, false},
	{"Name", 30, false},
	{"Time (ms)", 10, true},
	{"F1", 5, true},
	{"Source", 18, false},
}

// Render formats the report as a table with a per-level summary and the
// total score.
func (rep *Report) Render() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("=== %s ===", rep.Suite)))
	b.WriteString("\n\n")

	titles := make([]string, len(resultColumns))
	for i, c := range resultColumns {
		titles[i] = c.title
	}
	b.WriteString(row(resultColumns, titles, headerStyle))
	b.WriteString("\n")

	for i, r := range rep.Results {
		source := string(r.Source)
		if r.Error != "" {
			source = "error"
		}
		cells := []string{
			fmt.Sprintf("%d", i+1),
			r.Difficulty,
			r.Name,
			fmt.Sprintf("%.2f", r.TotalTimeMs),
			fmt.Sprintf("%.2f", r.F1),
			source,
		}
		b.WriteString(row(resultColumns, cells, lipgloss.NewStyle().Foreground(f1Color(r.F1))))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(headerStyle.Render("--- Summary ---"))
	b.WriteString("\n")
	for _, l := range rep.Levels {
		cloud := l.Cases - l.OnDevice
		b.WriteString(fmt.Sprintf("  %-8s avg F1=%.2f  avg time=%.2fms  on-device=%d/%d cloud=%d/%d\n",
			l.Difficulty, l.AvgF1, l.AvgTimeMs, l.OnDevice, l.Cases, cloud, l.Cases))
	}

	b.WriteString("\n")
	b.WriteString(scoreStyle.Copy().Foreground(scoreColor(rep.Score)).Render(fmt.Sprintf("TOTAL SCORE: %.1f%%", rep.Score)))
	b.WriteString("\n")
	return b.String()
}

func row(cols []column, cells []string, style lipgloss.Style) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		s := style.Copy().Width(c.width).MaxWidth(c.width)
		if c.right {
			s = s.Align(lipgloss.Right)
		}
		parts[i] = s.Render(truncate(cells[i], c.width))
	}
	return "  " + strings.Join(parts, mutedStyle.Render(" | "))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func f1Color(f1 float64) lipgloss.Color {
	switch {
	case f1 >= 0.99:
		return colorGood
	case f1 > 0:
		return colorWarn
	default:
		return colorBad
	}
}

func scoreColor(score float64) lipgloss.Color {
	switch {
	case score >= 75:
		return colorGood
	case score >= 50:
		return colorWarn
	default:
		return colorBad
	}
}
