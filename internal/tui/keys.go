package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Enter     key.Binding
	Back      key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
	Next      key.Binding
	Prev      key.Binding
	Copy      key.Binding
	Signature key.Binding
	Open      key.Binding
	Drive     key.Binding
	ListDrive key.Binding
	Reload    key.Binding
	Close     key.Binding
	DetailUp  key.Binding
	DetailDn  key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "ctrl+k"),
		key.WithHelp("up/C-k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "ctrl+j"),
		key.WithHelp("dn/C-j", "down"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "load"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q"),
		key.WithHelp("q", "quit"),
	),
	ForceQuit: key.NewBinding(
		key.WithKeys("ctrl+c"),
	),
	Next: key.NewBinding(
		key.WithKeys("n", "tab"),
		key.WithHelp("n", "next"),
	),
	Prev: key.NewBinding(
		key.WithKeys("p", "shift+tab"),
		key.WithHelp("p", "prev"),
	),
	Copy: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "copy"),
	),
	Signature: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "signature"),
	),
	Open: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "open file"),
	),
	Drive: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "drive"),
	),
	ListDrive: key.NewBinding(
		key.WithKeys("ctrl+g"),
		key.WithHelp("C-g", "drive"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload"),
	),
	Close: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "close"),
	),
	DetailUp: key.NewBinding(
		key.WithKeys("ctrl+u"),
		key.WithHelp("C-u", "detail up"),
	),
	DetailDn: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("C-d", "detail down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "page down"),
	),
}
