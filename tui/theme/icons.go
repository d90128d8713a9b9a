package theme

import (
	"os"

	"github.com/grovetools/notify/pkg/events"
)

// Nerd Font icons per event kind.
var nerdIcons = map[events.Kind]string{
	events.Add:        "󰐕", // md-plus (U+F0415)
	events.Change:     "󰏫", // md-pencil (U+F03EB)
	events.Attributes: "󰌾", // md-lock (U+F033E)
	events.Unlink:     "󰆴", // md-delete (U+F01B4)
	events.Move:       "󰁔", // md-arrow_right (U+F0054)
}

var asciiIcons = map[events.Kind]string{
	events.Add:        "+",
	events.Change:     "~",
	events.Attributes: "@",
	events.Unlink:     "-",
	events.Move:       ">",
}

// Icon returns the glyph for k. NOTIFY_ICONS=ascii avoids Nerd Font glyphs.
func Icon(k events.Kind) string {
	icons := nerdIcons
	if os.Getenv("NOTIFY_ICONS") == "ascii" {
		icons = asciiIcons
	}
	if icon, ok := icons[k]; ok {
		return icon
	}
	return "?"
}
