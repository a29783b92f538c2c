package graph

import "github.com/vanderheijden86/graphview/pkg/event"

// ActiveGraphEvent reports a change of the active subgraph.
type ActiveGraphEvent struct {
	Previous *Graph
	Next     *Graph
}

// Selection tracks the selected nodes and components and the active
// subgraph. It keeps itself consistent with the system: removed nodes and
// components are deselected, and removing the owner of the active subgraph
// activates the owner's graph.
type Selection struct {
	system     *System
	nodes      []*Node
	components []*Component
	active     *Graph

	nodeEvents      event.Emitter[NodeEvent]
	componentEvents event.Emitter[ComponentEvent]
	activeEvents    event.Emitter[ActiveGraphEvent]

	subs event.Group
}

// NewSelection creates a selection whose active graph is the system root.
func NewSelection(sys *System) *Selection {
	s := &Selection{system: sys, active: sys.Root()}
	s.subs.Add(sys.OnNode(s.onNode))
	s.subs.Add(sys.OnComponent(s.onComponent))
	return s
}

// Close detaches the selection from the system.
func (s *Selection) Close() {
	s.subs.Release()
}

func (s *Selection) onNode(e NodeEvent) {
	if !e.Add && s.IsNodeSelected(e.Node) {
		s.removeNode(e.Node)
	}
}

func (s *Selection) onComponent(e ComponentEvent) {
	if e.Add {
		return
	}
	if s.IsComponentSelected(e.Component) {
		s.removeComponent(e.Component)
	}
	if inner := e.Component.InnerGraph(); inner != nil && s.containsActive(inner) {
		s.SetActiveGraph(e.Component.Node().Graph())
	}
}

// containsActive reports whether the active graph is g or nested in g.
func (s *Selection) containsActive(g *Graph) bool {
	for a := s.active; a != nil; a = a.ParentGraph() {
		if a == g {
			return true
		}
	}
	return false
}

// SelectedNodes returns the selected nodes in selection order.
func (s *Selection) SelectedNodes() []*Node {
	return append([]*Node(nil), s.nodes...)
}

// SelectedComponents returns the selected components in selection order.
func (s *Selection) SelectedComponents() []*Component {
	return append([]*Component(nil), s.components...)
}

// IsNodeSelected reports membership of n in the node selection.
func (s *Selection) IsNodeSelected(n *Node) bool {
	for _, m := range s.nodes {
		if m == n {
			return true
		}
	}
	return false
}

// IsComponentSelected reports membership of c in the component selection.
func (s *Selection) IsComponentSelected(c *Component) bool {
	for _, m := range s.components {
		if m == c {
			return true
		}
	}
	return false
}

// SelectNode selects n. Without additive the previous selection is
// cleared; with additive the membership of n is toggled.
func (s *Selection) SelectNode(n *Node, additive bool) {
	if additive && s.IsNodeSelected(n) {
		s.removeNode(n)
		return
	}
	if !additive {
		s.ClearSelection()
	}
	if n != nil && !s.IsNodeSelected(n) {
		s.nodes = append(s.nodes, n)
		s.nodeEvents.Emit(NodeEvent{Node: n, Add: true})
	}
}

// SelectComponent selects c with the same rules as SelectNode.
func (s *Selection) SelectComponent(c *Component, additive bool) {
	if additive && s.IsComponentSelected(c) {
		s.removeComponent(c)
		return
	}
	if !additive {
		s.ClearSelection()
	}
	if c != nil && !s.IsComponentSelected(c) {
		s.components = append(s.components, c)
		s.componentEvents.Emit(ComponentEvent{Component: c, Add: true})
	}
}

// ClearSelection deselects every node and component.
func (s *Selection) ClearSelection() {
	for len(s.nodes) > 0 {
		s.removeNode(s.nodes[len(s.nodes)-1])
	}
	for len(s.components) > 0 {
		s.removeComponent(s.components[len(s.components)-1])
	}
}

func (s *Selection) removeNode(n *Node) {
	for i, m := range s.nodes {
		if m == n {
			s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
			s.nodeEvents.Emit(NodeEvent{Node: n, Add: false})
			return
		}
	}
}

func (s *Selection) removeComponent(c *Component) {
	for i, m := range s.components {
		if m == c {
			s.components = append(s.components[:i], s.components[i+1:]...)
			s.componentEvents.Emit(ComponentEvent{Component: c, Add: false})
			return
		}
	}
}

// ActiveGraph returns the active subgraph.
func (s *Selection) ActiveGraph() *Graph { return s.active }

// SetActiveGraph activates g. Switching graphs clears the selection.
func (s *Selection) SetActiveGraph(g *Graph) {
	if g == nil {
		g = s.system.Root()
	}
	if g == s.active {
		return
	}
	s.ClearSelection()
	prev := s.active
	s.active = g
	s.activeEvents.Emit(ActiveGraphEvent{Previous: prev, Next: g})
}

// HasParentGraph reports whether the active graph is owned by a component.
func (s *Selection) HasParentGraph() bool {
	return s.active != nil && s.active.ParentGraph() != nil
}

// HasChildGraph reports whether a selected component owns a subgraph.
func (s *Selection) HasChildGraph() bool {
	return s.selectedGraphComponent() != nil
}

// ActivateParentGraph moves the active graph one level up.
func (s *Selection) ActivateParentGraph() {
	if parent := s.active.ParentGraph(); parent != nil {
		s.SetActiveGraph(parent)
	}
}

// ActivateChildGraph activates the subgraph of the selected graph component.
func (s *Selection) ActivateChildGraph() {
	if c := s.selectedGraphComponent(); c != nil {
		s.SetActiveGraph(c.InnerGraph())
	}
}

func (s *Selection) selectedGraphComponent() *Component {
	for _, c := range s.components {
		if c.IsGraph() {
			return c
		}
	}
	return nil
}

// OnNodeSelection registers fn for node selection changes.
func (s *Selection) OnNodeSelection(fn func(NodeEvent)) event.Subscription {
	return s.nodeEvents.On(fn)
}

// OnComponentSelection registers fn for component selection changes.
func (s *Selection) OnComponentSelection(fn func(ComponentEvent)) event.Subscription {
	return s.componentEvents.On(fn)
}

// OnActiveGraph registers fn for active subgraph changes.
func (s *Selection) OnActiveGraph(fn func(ActiveGraphEvent)) event.Subscription {
	return s.activeEvents.On(fn)
}

// ListenerCount returns the number of registered selection handlers.
func (s *Selection) ListenerCount() int {
	return s.nodeEvents.Len() + s.componentEvents.Len() + s.activeEvents.Len()
}
