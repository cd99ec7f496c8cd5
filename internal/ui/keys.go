package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	PrevTab     key.Binding
	NextTab     key.Binding
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Compose     key.Binding
	Send        key.Binding
	Esc         key.Binding
	NewRAG      key.Binding
	Upload      key.Binding
	DeleteDoc   key.Binding
	DeleteRAG   key.Binding
	BuildIndex  key.Binding
	Reload      key.Binding
	Search      key.Binding
	NextMatch   key.Binding
	PrevMatch   key.Binding
	Export      key.Binding
	Copy        key.Binding
	SwitchField key.Binding
	Confirm     key.Binding
	Quit        key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		PrevTab: key.NewBinding(
			key.WithKeys("left", "h", "shift+tab"),
			key.WithHelp("←/h", "prev RAG"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("right", "l", "tab"),
			key.WithHelp("→/l", "next RAG"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "prev doc"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next doc"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "scroll chat up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdn", "scroll chat down"),
		),
		Compose: key.NewBinding(
			key.WithKeys("i", "enter"),
			key.WithHelp("i", "write message"),
		),
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Esc: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		NewRAG: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "new RAG"),
		),
		Upload: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "upload"),
		),
		DeleteDoc: key.NewBinding(
			key.WithKeys("x", "delete"),
			key.WithHelp("x", "delete doc"),
		),
		DeleteRAG: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "delete RAG"),
		),
		BuildIndex: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "build index"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search chat"),
		),
		NextMatch: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next match"),
		),
		PrevMatch: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "prev match"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy answer"),
		),
		SwitchField: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "next field"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y", "confirm"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PrevTab, k.NextTab, k.Compose, k.NewRAG, k.Upload, k.DeleteDoc, k.BuildIndex, k.Search, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PrevTab, k.NextTab, k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Compose, k.Send, k.Esc, k.Search, k.NextMatch, k.PrevMatch},
		{k.NewRAG, k.Upload, k.DeleteDoc, k.DeleteRAG, k.BuildIndex, k.Reload, k.Export, k.Copy, k.Quit},
	}
}
