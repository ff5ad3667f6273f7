package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	New        key.Binding
	Edit       key.Binding
	Toggle     key.Binding
	Delete     key.Binding
	Tomorrow   key.Binding
	FinishDay  key.Binding
	ToWeek     key.Binding
	MoveUp     key.Binding
	MoveDown   key.Binding
	ShiftLeft  key.Binding
	ShiftRight key.Binding
	PrevWeek   key.Binding
	NextWeek   key.Binding
	Today      key.Binding
	Detail     key.Binding
	Export     key.Binding
	Tab1       key.Binding
	Tab2       key.Binding
	Tab3       key.Binding
	Tab4       key.Binding
	Tab        key.Binding
	Help       key.Binding
	Enter      key.Binding
	Back       key.Binding
	Up         key.Binding
	Down       key.Binding
	Left       key.Binding
	Right      key.Binding
	Quit       key.Binding
}

var keys = keyMap{
	New: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new"),
	),
	Edit: key.NewBinding(
		key.WithKeys("enter", "e"),
		key.WithHelp("enter", "edit"),
	),
	Toggle: key.NewBinding(
		key.WithKeys("x", " "),
		key.WithHelp("x", "done"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "delete"),
	),
	Tomorrow: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "to tomorrow"),
	),
	FinishDay: key.NewBinding(
		key.WithKeys("F"),
		key.WithHelp("F", "finish day"),
	),
	ToWeek: key.NewBinding(
		key.WithKeys("w"),
		key.WithHelp("w", "schedule today"),
	),
	MoveUp: key.NewBinding(
		key.WithKeys("K", "shift+up"),
		key.WithHelp("K", "move up"),
	),
	MoveDown: key.NewBinding(
		key.WithKeys("J", "shift+down"),
		key.WithHelp("J", "move down"),
	),
	ShiftLeft: key.NewBinding(
		key.WithKeys("H", "shift+left"),
		key.WithHelp("H", "move left"),
	),
	ShiftRight: key.NewBinding(
		key.WithKeys("L", "shift+right"),
		key.WithHelp("L", "move right"),
	),
	PrevWeek: key.NewBinding(
		key.WithKeys("["),
		key.WithHelp("[", "prev week"),
	),
	NextWeek: key.NewBinding(
		key.WithKeys("]"),
		key.WithHelp("]", "next week"),
	),
	Today: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "today"),
	),
	Detail: key.NewBinding(
		key.WithKeys("v"),
		key.WithHelp("v", "details"),
	),
	Export: key.NewBinding(
		key.WithKeys("E"),
		key.WithHelp("E", "export"),
	),
	Tab1: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", "week"),
	),
	Tab2: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "lists"),
	),
	Tab3: key.NewBinding(
		key.WithKeys("3"),
		key.WithHelp("3", "stats"),
	),
	Tab4: key.NewBinding(
		key.WithKeys("4"),
		key.WithHelp("4", "settings"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next view"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Left: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "left"),
	),
	Right: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "right"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.New, k.Toggle, k.Tomorrow, k.FinishDay, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.New, k.Edit, k.Toggle, k.Delete, k.Detail},
		{k.Tomorrow, k.FinishDay, k.ToWeek, k.MoveUp, k.MoveDown, k.ShiftLeft, k.ShiftRight},
		{k.PrevWeek, k.NextWeek, k.Today, k.Export},
		{k.Tab1, k.Tab2, k.Tab3, k.Tab4, k.Tab},
		{k.Up, k.Down, k.Left, k.Right, k.Back, k.Quit},
	}
}
