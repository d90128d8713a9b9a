package theme

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/grovetools/notify/config"
	"github.com/grovetools/notify/pkg/events"
)

const defaultThemeName = "kanagawa"

// --- Kanagawa palette ---
const (
	kanagawaDarkGreen  = "#98BB6C"
	kanagawaDarkYellow = "#FF9E3B"
	kanagawaDarkRed    = "#FF5D62"
	kanagawaDarkOrange = "#FFA066"
	kanagawaDarkCyan   = "#7E9CD8"
	kanagawaDarkBlue   = "#7FB4CA"
	kanagawaDarkViolet = "#957FB8"
	kanagawaDarkMuted  = "#727169"
	kanagawaDarkBorder = "#363646"

	kanagawaLightGreen  = "#4E7C5A"
	kanagawaLightYellow = "#A68A64"
	kanagawaLightRed    = "#C34043"
	kanagawaLightOrange = "#CC6B4E"
	kanagawaLightCyan   = "#5B8BBE"
	kanagawaLightBlue   = "#4F7CAC"
	kanagawaLightViolet = "#674D7A"
	kanagawaLightMuted  = "#6C7086"
	kanagawaLightBorder = "#B5BDC5"
)

// Colors is the palette a theme is built from.
type Colors struct {
	Green     lipgloss.TerminalColor
	Yellow    lipgloss.TerminalColor
	Red       lipgloss.TerminalColor
	Orange    lipgloss.TerminalColor
	Cyan      lipgloss.TerminalColor
	Blue      lipgloss.TerminalColor
	Violet    lipgloss.TerminalColor
	MutedText lipgloss.TerminalColor
	Border    lipgloss.TerminalColor
}

// Theme holds the styles shared by the CLI, the log formatter and the
// live event view.
type Theme struct {
	Name   string
	Colors Colors

	Header  lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	Bold   lipgloss.Style
	Italic lipgloss.Style
	Muted  lipgloss.Style
	Accent lipgloss.Style
	Path   lipgloss.Style

	Box lipgloss.Style

	kinds map[events.Kind]lipgloss.Style
}

var themeRegistry = map[string]func() Colors{
	"kanagawa": newKanagawaColors,
	"terminal": newTerminalColors,
}

// DefaultTheme is selected from NOTIFY_THEME or the tui.theme config key.
var DefaultTheme = NewThemeWithName(getThemeName())

// NewThemeWithName constructs a theme from a palette name. Unknown names
// fall back to the default palette.
func NewThemeWithName(name string) *Theme {
	key := normalizeThemeName(name)
	build, ok := themeRegistry[key]
	if !ok {
		key = defaultThemeName
		build = themeRegistry[key]
	}
	return newThemeFromColors(key, build())
}

func newThemeFromColors(name string, c Colors) *Theme {
	return &Theme{
		Name:   name,
		Colors: c,

		Header:  lipgloss.NewStyle().Bold(true).Foreground(c.Orange),
		Success: lipgloss.NewStyle().Bold(true).Foreground(c.Green),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(c.Red),
		Warning: lipgloss.NewStyle().Bold(true).Foreground(c.Yellow),
		Info:    lipgloss.NewStyle().Bold(true).Foreground(c.Cyan),

		Bold:   lipgloss.NewStyle().Bold(true),
		Italic: lipgloss.NewStyle().Italic(true),
		Muted:  lipgloss.NewStyle().Faint(true),
		Accent: lipgloss.NewStyle().Bold(true).Foreground(c.Violet),
		Path:   lipgloss.NewStyle().Foreground(c.Blue),

		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(c.Border).
			Padding(0, 1),

		kinds: map[events.Kind]lipgloss.Style{
			events.Add:        lipgloss.NewStyle().Bold(true).Foreground(c.Green),
			events.Change:     lipgloss.NewStyle().Bold(true).Foreground(c.Yellow),
			events.Attributes: lipgloss.NewStyle().Bold(true).Foreground(c.Cyan),
			events.Unlink:     lipgloss.NewStyle().Bold(true).Foreground(c.Red),
			events.Move:       lipgloss.NewStyle().Bold(true).Foreground(c.Violet),
		},
	}
}

// Kind returns the style for a semantic event kind.
func (t *Theme) Kind(k events.Kind) lipgloss.Style {
	if s, ok := t.kinds[k]; ok {
		return s
	}
	return t.Bold
}

// RenderEvent renders one event as a single styled line.
func (t *Theme) RenderEvent(ev events.Event) string {
	label := t.Kind(ev.Kind).Render(padKind(ev.Kind))
	path := ev.Path
	if ev.Stats.IsDir {
		path += "/"
	}
	if ev.Kind == events.Move {
		return label + " " + t.Path.Render(ev.FromPath) + t.Muted.Render(" -> ") + t.Path.Render(path)
	}
	return label + " " + t.Path.Render(path)
}

func padKind(k events.Kind) string {
	const width = len("attributes")
	s := string(k)
	if len(s) < width {
		s += strings.Repeat(" ", width-len(s))
	}
	return s
}

func normalizeThemeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, " ", "-")
	return strings.ReplaceAll(normalized, "_", "-")
}

func getThemeName() string {
	if name := normalizeThemeName(os.Getenv("NOTIFY_THEME")); name != "" {
		return name
	}

	cfg, err := config.LoadDefault()
	if err != nil || cfg == nil {
		return defaultThemeName
	}

	var tuiCfg struct {
		Theme string `yaml:"theme"`
	}
	if err := cfg.UnmarshalExtension("tui", &tuiCfg); err == nil {
		if name := normalizeThemeName(tuiCfg.Theme); name != "" {
			return name
		}
	}
	return defaultThemeName
}

func newKanagawaColors() Colors {
	return Colors{
		Green:     lipgloss.AdaptiveColor{Light: kanagawaLightGreen, Dark: kanagawaDarkGreen},
		Yellow:    lipgloss.AdaptiveColor{Light: kanagawaLightYellow, Dark: kanagawaDarkYellow},
		Red:       lipgloss.AdaptiveColor{Light: kanagawaLightRed, Dark: kanagawaDarkRed},
		Orange:    lipgloss.AdaptiveColor{Light: kanagawaLightOrange, Dark: kanagawaDarkOrange},
		Cyan:      lipgloss.AdaptiveColor{Light: kanagawaLightCyan, Dark: kanagawaDarkCyan},
		Blue:      lipgloss.AdaptiveColor{Light: kanagawaLightBlue, Dark: kanagawaDarkBlue},
		Violet:    lipgloss.AdaptiveColor{Light: kanagawaLightViolet, Dark: kanagawaDarkViolet},
		MutedText: lipgloss.AdaptiveColor{Light: kanagawaLightMuted, Dark: kanagawaDarkMuted},
		Border:    lipgloss.AdaptiveColor{Light: kanagawaLightBorder, Dark: kanagawaDarkBorder},
	}
}

// newTerminalColors uses the ANSI palette so the user's terminal scheme applies.
func newTerminalColors() Colors {
	return Colors{
		Green:     lipgloss.Color("2"),
		Yellow:    lipgloss.Color("3"),
		Red:       lipgloss.Color("1"),
		Orange:    lipgloss.Color("208"),
		Cyan:      lipgloss.Color("6"),
		Blue:      lipgloss.Color("4"),
		Violet:    lipgloss.Color("5"),
		MutedText: lipgloss.Color("8"),
		Border:    lipgloss.Color("8"),
	}
}
