package viewer

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Follow   key.Binding
	Close    key.Binding
	Back     key.Binding
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Follow:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open pinned")),
		Close:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close preview")),
		Back:     key.NewBinding(key.WithKeys("backspace", "b"), key.WithHelp("b", "back")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown", " "), key.WithHelp("pgdn", "page down")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Follow, k.Close, k.Back, k.Down, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Follow, k.Close, k.Back},
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Quit},
	}
}
