package ui

import "github.com/charmbracelet/bubbles/key"

// TreeKeyMap binds keyboard navigation for a tree body.
type TreeKeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Top       key.Binding
	Bottom    key.Binding
	Expand    key.Binding
	Collapse  key.Binding
	Select    key.Binding
	AddSelect key.Binding
	Activate  key.Binding
}

// DefaultTreeKeyMap returns the standard tree bindings.
func DefaultTreeKeyMap() TreeKeyMap {
	return TreeKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Top: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("g", "top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("G", "bottom"),
		),
		Expand: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "expand"),
		),
		Collapse: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "collapse / parent"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		AddSelect: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle in selection"),
		),
		Activate: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open subgraph"),
		),
	}
}

// HierarchyKeyMap adds subgraph navigation to the tree bindings.
type HierarchyKeyMap struct {
	Tree      TreeKeyMap
	GraphUp   key.Binding
	GraphDown key.Binding
	Clear     key.Binding
}

// DefaultHierarchyKeyMap returns the standard hierarchy bindings.
func DefaultHierarchyKeyMap() HierarchyKeyMap {
	return HierarchyKeyMap{
		Tree: DefaultTreeKeyMap(),
		GraphUp: key.NewBinding(
			key.WithKeys("u", "backspace"),
			key.WithHelp("u", "parent graph"),
		),
		GraphDown: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "child graph"),
		),
		Clear: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear selection"),
		),
	}
}

// FieldKeyMap binds the keys a focused property field reacts to.
type FieldKeyMap struct {
	Activate  key.Binding
	Commit    key.Binding
	Cancel    key.Binding
	Reset     key.Binding
	Increment key.Binding
	Decrement key.Binding
}

// DefaultFieldKeyMap returns the standard field bindings.
func DefaultFieldKeyMap() FieldKeyMap {
	return FieldKeyMap{
		Activate: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "edit / trigger"),
		),
		Commit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "commit"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset to default"),
		),
		Increment: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "step up"),
		),
		Decrement: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "step down"),
		),
	}
}

// AppKeyMap binds the application-level keys.
type AppKeyMap struct {
	Quit      key.Binding
	Help      key.Binding
	FocusNext key.Binding
	FocusPrev key.Binding
	Copy      key.Binding
}

// DefaultAppKeyMap returns the standard application bindings.
func DefaultAppKeyMap() AppKeyMap {
	return AppKeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		FocusNext: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next pane / field"),
		),
		FocusPrev: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous pane / field"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy"),
		),
	}
}
