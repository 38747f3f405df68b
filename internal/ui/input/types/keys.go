package types

import "github.com/charmbracelet/bubbles/key"

// KeyMap lists the bindings shared by the input modes and the help footer
type KeyMap struct {
	Search   key.Binding
	Next     key.Binding
	Prev     key.Binding
	Clear    key.Binding
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Center   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default bindings. Terminals report Shift+F3
// as F15, and most cannot tell Shift+Enter from Enter, so Shift+Tab also
// steps back.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Next:     key.NewBinding(key.WithKeys("enter", "f3", "n"), key.WithHelp("enter/F3", "next")),
		Prev:     key.NewBinding(key.WithKeys("shift+tab", "f15", "N"), key.WithHelp("S-tab/S-F3", "prev")),
		Clear:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "page down")),
		Center:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "center")),
		Help:     key.NewBinding(key.WithKeys("?", "f1"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Next, k.Prev, k.Clear, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Search, k.Next, k.Prev, k.Clear},
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Center},
		{k.Help, k.Quit},
	}
}
