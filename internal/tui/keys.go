package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Better key.Binding
	Worse  key.Binding
	Skip   key.Binding
	Undo   key.Binding
	Done   key.Binding
	Cancel key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Better, k.Worse, k.Skip, k.Undo, k.Done, k.Cancel, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Better, k.Worse, k.Skip}, {k.Undo, k.Done, k.Cancel, k.Quit}}
}

var keys = keyMap{
	Better: key.NewBinding(key.WithKeys("b", "left"), key.WithHelp("b/←", "better")),
	Worse:  key.NewBinding(key.WithKeys("w", "right"), key.WithHelp("w/→", "worse")),
	Skip:   key.NewBinding(key.WithKeys("s", "down"), key.WithHelp("s", "skip")),
	Undo:   key.NewBinding(key.WithKeys("u", "backspace"), key.WithHelp("u", "undo")),
	Done:   key.NewBinding(key.WithKeys("d", "enter"), key.WithHelp("d", "done")),
	Cancel: key.NewBinding(key.WithKeys("c", "esc"), key.WithHelp("c", "cancel")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit (keep open)")),
}
