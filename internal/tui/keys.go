package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings shared by both presentation surfaces.
type KeyMap struct {
	Quit      key.Binding
	ForceQuit key.Binding
	Next      key.Binding
	Previous  key.Binding
	Pause     key.Binding
	Refresh   key.Binding
	Retry     key.Binding

	// Interactive surface only
	Theater   key.Binding
	Switch    key.Binding
	CycleKind key.Binding
	SelectUp  key.Binding
	SelectDn  key.Binding
	Dismiss   key.Binding

	// TV surface only
	Exit key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "force quit"),
		),
		Next: key.NewBinding(
			key.WithKeys("right", "l", "n"),
			key.WithHelp("→/n", "next slide"),
		),
		Previous: key.NewBinding(
			key.WithKeys("left", "h", "p"),
			key.WithHelp("←/p", "previous slide"),
		),
		Pause: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "pause/resume"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh now"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "try again"),
		),
		Theater: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "tv mode"),
		),
		Switch: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "switch dashboard"),
		),
		CycleKind: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "cycle chart type"),
		),
		SelectUp: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "select previous chart"),
		),
		SelectDn: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "select next chart"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "dismiss notice"),
		),
		Exit: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "exit tv mode"),
		),
	}
}
