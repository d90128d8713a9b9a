package eventview

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// scrollbar returns one character per visible line: a thumb sized to the
// visible share of the content, placed by scroll position.
func scrollbar(vp *viewport.Model, height int, style lipgloss.Style) []string {
	if height <= 0 {
		return nil
	}
	bar := make([]string, height)

	total := vp.TotalLineCount()
	if total == 0 {
		for i := range bar {
			bar[i] = " "
		}
		return bar
	}
	if total <= vp.Height {
		for i := range bar {
			bar[i] = style.Render("█")
		}
		return bar
	}

	thumb := max(1, height*vp.Height/total)
	pct := min(max(vp.ScrollPercent(), 0), 1)
	maxStart := height - thumb
	start := min(max(int(float64(maxStart)*pct+0.5), 0), maxStart)

	for i := range bar {
		if i >= start && i < start+thumb {
			bar[i] = style.Render("█")
		} else {
			bar[i] = style.Render("░")
		}
	}
	return bar
}

// overlay appends the scrollbar to the viewport's visible lines.
func overlay(vp *viewport.Model, style lipgloss.Style) string {
	lines := strings.Split(vp.View(), "\n")
	bar := scrollbar(vp, len(lines), style)
	for i := range lines {
		if i < len(bar) {
			lines[i] += bar[i]
		}
	}
	return strings.Join(lines, "\n")
}
