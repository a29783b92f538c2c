package ui

import (
	"errors"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/graphview/pkg/config"
	"github.com/vanderheijden86/graphview/pkg/debug"
	"github.com/vanderheijden86/graphview/pkg/event"
	"github.com/vanderheijden86/graphview/pkg/graph"
)

// ErrNoSelection is returned when a hierarchy view is built without a
// selection manager.
var ErrNoSelection = errors.New("hierarchy view requires a selection manager")

// Selection is the selection manager a HierarchyView binds to.
type Selection interface {
	ActiveGraph() *graph.Graph
	SetActiveGraph(g *graph.Graph)
	SelectNode(n *graph.Node, additive bool)
	SelectComponent(c *graph.Component, additive bool)
	ClearSelection()
	IsNodeSelected(n *graph.Node) bool
	IsComponentSelected(c *graph.Component) bool
	SelectedNodes() []*graph.Node
	SelectedComponents() []*graph.Component
	HasParentGraph() bool
	HasChildGraph() bool
	ActivateParentGraph()
	ActivateChildGraph()

	OnNodeSelection(fn func(graph.NodeEvent)) event.Subscription
	OnComponentSelection(fn func(graph.ComponentEvent)) event.Subscription
	OnActiveGraph(fn func(graph.ActiveGraphEvent)) event.Subscription
}

// StructureEvents publishes structural changes of the object graph.
type StructureEvents interface {
	OnNode(fn func(graph.NodeEvent)) event.Subscription
	OnComponent(fn func(graph.ComponentEvent)) event.Subscription
	OnHierarchy(fn func(graph.HierarchyEvent)) event.Subscription
}

// EntityKind tags the variant held by an Entity.
type EntityKind int

const (
	KindGraph EntityKind = iota
	KindNode
	KindComponent
)

func (k EntityKind) String() string {
	switch k {
	case KindGraph:
		return "graph"
	case KindNode:
		return "node"
	case KindComponent:
		return "component"
	}
	return "unknown"
}

// Entity is one position in the visualized hierarchy. Exactly the field
// matching Kind is set.
type Entity struct {
	Kind      EntityKind
	Graph     *graph.Graph
	Node      *graph.Node
	Component *graph.Component
}

func GraphEntity(g *graph.Graph) Entity         { return Entity{Kind: KindGraph, Graph: g} }
func NodeEntity(n *graph.Node) Entity           { return Entity{Kind: KindNode, Node: n} }
func ComponentEntity(c *graph.Component) Entity { return Entity{Kind: KindComponent, Component: c} }

// ClassGraphComponent marks component rows that own a subgraph.
const ClassGraphComponent = "graph-component"

// HierarchyView shows the active subgraph as a tree of nodes and their
// components and keeps itself in sync with the selection manager and the
// object graph while mounted.
//
// Every graph-kind row shares one identity key. Only the root row is ever a
// graph-kind row, so the shared key cannot collide within one tree.
type HierarchyView struct {
	sel       Selection
	structure StructureEvents
	theme     Theme
	keys      HierarchyKeyMap

	tree   *TreeModel[Entity]
	rootID string

	subs    event.Group
	mounted bool

	width   int
	height  int
	focused bool
}

// NewHierarchyView binds a tree to a selection manager and a source of
// structural events. The view does nothing until mounted.
func NewHierarchyView(sel Selection, structure StructureEvents, theme Theme, cfg config.TreeConfig) (*HierarchyView, error) {
	if sel == nil {
		return nil, ErrNoSelection
	}
	h := &HierarchyView{
		sel:       sel,
		structure: structure,
		theme:     theme,
		keys:      DefaultHierarchyKeyMap(),
		rootID:    graph.NewID(),
	}
	h.tree = NewTreeModel(TreeHooks[Entity]{
		ID:                h.identity,
		Children:          h.children,
		RowClass:          h.rowClass,
		Header:            h.header,
		Selected:          h.isSelected,
		OnRowClick:        h.onRowClick,
		OnRowDoubleClick:  h.onRowDoubleClick,
		OnBackgroundClick: h.sel.ClearSelection,
	}, theme, cfg)
	return h, nil
}

// Tree exposes the underlying tree model.
func (h *HierarchyView) Tree() *TreeModel[Entity] { return h.tree }

// RootID returns the identity shared by graph-kind rows.
func (h *HierarchyView) RootID() string { return h.rootID }

// Mount subscribes to selection and structural events and shows the
// active graph.
func (h *HierarchyView) Mount() {
	if h.mounted {
		return
	}
	h.mounted = true

	h.subs.Add(h.sel.OnNodeSelection(func(e graph.NodeEvent) {
		h.tree.SetRowSelected(e.Node.ID, e.Add)
	}))
	h.subs.Add(h.sel.OnComponentSelection(func(e graph.ComponentEvent) {
		h.tree.SetRowSelected(e.Component.ID, e.Add)
	}))
	h.subs.Add(h.sel.OnActiveGraph(func(graph.ActiveGraphEvent) {
		h.tree.SetRoot(GraphEntity(h.sel.ActiveGraph()))
	}))
	if h.structure != nil {
		h.subs.Add(h.structure.OnNode(func(graph.NodeEvent) { h.tree.Invalidate() }))
		h.subs.Add(h.structure.OnComponent(func(graph.ComponentEvent) { h.tree.Invalidate() }))
		h.subs.Add(h.structure.OnHierarchy(func(graph.HierarchyEvent) { h.tree.Invalidate() }))
	}

	h.tree.SetRoot(GraphEntity(h.sel.ActiveGraph()))
	debug.Log("hierarchy view mounted with %d subscriptions", h.subs.Len())
}

// Unmount releases every subscription taken by Mount.
func (h *HierarchyView) Unmount() {
	if !h.mounted {
		return
	}
	h.subs.Release()
	h.mounted = false
	debug.Log("hierarchy view unmounted")
}

// Mounted reports whether the view holds its subscriptions.
func (h *HierarchyView) Mounted() bool { return h.mounted }

// SubscriptionCount returns the number of live subscriptions.
func (h *HierarchyView) SubscriptionCount() int { return h.subs.Len() }

// SetSize sets the outer dimensions including the header line.
func (h *HierarchyView) SetSize(width, height int) {
	h.width = width
	h.height = height
	h.tree.SetSize(width, max(height-1, 0))
}

// SetFocused controls keyboard focus.
func (h *HierarchyView) SetFocused(f bool) {
	h.focused = f
	h.tree.SetFocused(f)
}

func (h *HierarchyView) identity(e Entity) string {
	switch e.Kind {
	case KindNode:
		return e.Node.ID
	case KindComponent:
		return e.Component.ID
	default:
		return h.rootID
	}
}

func (h *HierarchyView) children(e Entity) ([]Entity, bool) {
	switch e.Kind {
	case KindNode:
		comps := e.Node.Components()
		out := make([]Entity, 0, len(comps))
		for _, c := range comps {
			out = append(out, ComponentEntity(c))
		}
		if hier := e.Node.Hierarchy(); hier != nil {
			for _, child := range hier.ChildNodes() {
				out = append(out, NodeEntity(child))
			}
		}
		return out, true
	case KindGraph:
		if e.Graph == nil {
			return nil, true
		}
		roots := e.Graph.FindRoots()
		out := make([]Entity, 0, len(roots))
		for _, n := range roots {
			out = append(out, NodeEntity(n))
		}
		return out, true
	default:
		return nil, false
	}
}

func (h *HierarchyView) rowClass(e Entity) string {
	switch e.Kind {
	case KindNode:
		return ClassNode
	case KindComponent:
		if e.Component.IsGraph() {
			return ClassGraphComponent
		}
		return ClassComponent
	default:
		return ClassSystem
	}
}

func (h *HierarchyView) header(e Entity) string {
	switch e.Kind {
	case KindComponent:
		return labelWithType(e.Component.Name, typeLabel(e.Component.Type))
	case KindNode:
		n := e.Node
		if n.Type == graph.BaseNodeType {
			if n.Name != "" {
				return n.Name
			}
			return n.Type
		}
		return labelWithType(n.Name, typeLabel(n.Type))
	default:
		if e.Graph != nil && e.Graph.Parent() != nil {
			return e.Graph.Parent().Type
		}
		return "System"
	}
}

func labelWithType(name, typ string) string {
	if name == "" {
		return typ
	}
	return name + " [" + typ + "]"
}

// typeLabel strips a one-letter class prefix ("CTransform", "NScene").
func typeLabel(typ string) string {
	r := []rune(typ)
	if len(r) > 1 && (r[0] == 'C' || r[0] == 'N') && unicode.IsUpper(r[1]) {
		return string(r[1:])
	}
	return typ
}

func (h *HierarchyView) isSelected(e Entity) bool {
	switch e.Kind {
	case KindNode:
		return h.sel.IsNodeSelected(e.Node)
	case KindComponent:
		return h.sel.IsComponentSelected(e.Component)
	}
	return false
}

func (h *HierarchyView) onRowClick(e Entity, mods Modifiers) {
	switch e.Kind {
	case KindNode:
		h.sel.SelectNode(e.Node, mods.Ctrl)
	case KindComponent:
		h.sel.SelectComponent(e.Component, mods.Ctrl)
	}
}

func (h *HierarchyView) onRowDoubleClick(e Entity) {
	if e.Kind == KindComponent && e.Component.IsGraph() {
		h.sel.SetActiveGraph(e.Component.InnerGraph())
	}
}

// HeaderText returns the title of the active graph.
func (h *HierarchyView) HeaderText() string {
	g := h.sel.ActiveGraph()
	if g == nil || g.Parent() == nil {
		return "System"
	}
	if owner := g.Parent(); owner.Name != "" {
		return owner.Name
	}
	return g.Parent().Type
}

type headerButton struct {
	label  string
	start  int
	end    int
	action func()
}

// headerLayout renders the chrome line and returns the button hit ranges.
func (h *HierarchyView) headerLayout() (string, []headerButton) {
	title := h.theme.Header.Render(truncate(h.HeaderText(), max(h.width-16, 8)))
	var buttons []headerButton
	if h.sel.HasChildGraph() {
		buttons = append(buttons, headerButton{label: "down", action: h.sel.ActivateChildGraph})
	}
	if h.sel.HasParentGraph() {
		buttons = append(buttons, headerButton{label: "up", action: h.sel.ActivateParentGraph})
	}

	var sb strings.Builder
	sb.WriteString(title)
	x := lipgloss.Width(title)
	for i := range buttons {
		sb.WriteString(" ")
		x++
		rendered := h.theme.Button.Render(buttons[i].label)
		buttons[i].start = x
		x += lipgloss.Width(rendered)
		buttons[i].end = x
		sb.WriteString(rendered)
	}
	return sb.String(), buttons
}

// Update handles input routed to the view. Mouse coordinates are relative
// to the view's top-left corner.
func (h *HierarchyView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.MouseMsg:
		if msg.Y == 0 {
			if msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress {
				_, buttons := h.headerLayout()
				for _, b := range buttons {
					if msg.X >= b.start && msg.X < b.end {
						b.action()
						return nil
					}
				}
			}
			return nil
		}
		msg.Y--
		h.tree.HandleMouse(msg)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, h.keys.GraphUp):
			h.sel.ActivateParentGraph()
		case key.Matches(msg, h.keys.GraphDown):
			h.sel.ActivateChildGraph()
		case key.Matches(msg, h.keys.Clear):
			h.sel.ClearSelection()
		default:
			h.tree.HandleKey(msg, h.keys.Tree)
		}
	}
	return nil
}

// View renders the header chrome and the tree body.
func (h *HierarchyView) View() string {
	header, _ := h.headerLayout()
	return header + "\n" + h.tree.View()
}

// SelectionPath describes the current selection for copying.
func (h *HierarchyView) SelectionPath() string {
	var parts []string
	for _, n := range h.sel.SelectedNodes() {
		parts = append(parts, h.header(NodeEntity(n)))
	}
	for _, c := range h.sel.SelectedComponents() {
		owner := h.header(NodeEntity(c.Node()))
		parts = append(parts, owner+"/"+h.header(ComponentEntity(c)))
	}
	return strings.Join(parts, ", ")
}
