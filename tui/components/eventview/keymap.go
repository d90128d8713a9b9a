package eventview

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/grovetools/notify/pkg/events"
)

// KeyMap holds the live view's key bindings.
type KeyMap struct {
	Quit       key.Binding
	Follow     key.Binding
	Top        key.Binding
	Bottom     key.Binding
	Clear      key.Binding
	Add        key.Binding
	Change     key.Binding
	Attributes key.Binding
	Unlink     key.Binding
	Move       key.Binding
	Help       key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Follow:     key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "follow")),
		Top:        key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
		Bottom:     key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
		Clear:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear")),
		Add:        key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "add")),
		Change:     key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "change")),
		Attributes: key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "attributes")),
		Unlink:     key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "unlink")),
		Move:       key.NewBinding(key.WithKeys("5"), key.WithHelp("5", "move")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Follow, k.Clear, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Follow, k.Top, k.Bottom, k.Clear},
		{k.Add, k.Change, k.Attributes, k.Unlink, k.Move},
		{k.Help, k.Quit},
	}
}

type toggle struct {
	binding key.Binding
	kind    events.Kind
}

// toggles pairs each kind filter binding with its kind.
func (k KeyMap) toggles() []toggle {
	return []toggle{
		{k.Add, events.Add},
		{k.Change, events.Change},
		{k.Attributes, events.Attributes},
		{k.Unlink, events.Unlink},
		{k.Move, events.Move},
	}
}
