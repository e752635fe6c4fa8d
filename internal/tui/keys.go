package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Left     key.Binding
	Right    key.Binding
	Up       key.Binding
	Down     key.Binding
	Grab     key.Binding
	Drop     key.Binding
	Cancel   key.Binding
	Toggle   key.Binding
	Add      key.Binding
	Open     key.Binding
	GroupBy  key.Binding
	ViewMode key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Grab:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "drag")),
		Drop:     key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "drop")),
		Cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Toggle:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "done")),
		Add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		GroupBy:  key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "group by")),
		ViewMode: key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "list/kanban")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) boardHelp() []key.Binding {
	return []key.Binding{k.Grab, k.Toggle, k.Add, k.Open, k.GroupBy, k.ViewMode, k.Quit}
}

func (k keyMap) dragHelp() []key.Binding {
	return []key.Binding{k.Left, k.Right, k.Up, k.Down, k.Drop, k.Cancel}
}
