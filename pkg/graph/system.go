package graph

import (
	"errors"

	"github.com/vanderheijden86/graphview/pkg/event"
)

// Structural errors.
var (
	ErrForeignGraph = errors.New("nodes belong to different graphs")
	ErrCycle        = errors.New("link would create a cycle")
	ErrSelfLink     = errors.New("node cannot be its own parent")
)

// NodeEvent reports a node being added to or removed from the system.
type NodeEvent struct {
	Node *Node
	Add  bool
}

// ComponentEvent reports a component being attached or detached.
type ComponentEvent struct {
	Component *Component
	Add       bool
}

// HierarchyEvent reports a parent/child link being made or broken.
type HierarchyEvent struct {
	Parent *Node
	Child  *Node
	Add    bool
}

// System owns the root graph and every node and component beneath it, and
// publishes structural change events.
type System struct {
	root       *Graph
	nodes      map[string]*Node
	components map[string]*Component

	nodeEvents      event.Emitter[NodeEvent]
	componentEvents event.Emitter[ComponentEvent]
	hierarchyEvents event.Emitter[HierarchyEvent]
}

// NewSystem creates an empty system with a root graph.
func NewSystem() *System {
	return &System{
		root:       &Graph{ID: NewID()},
		nodes:      make(map[string]*Node),
		components: make(map[string]*Component),
	}
}

// Root returns the top-level graph.
func (s *System) Root() *Graph { return s.root }

// NodeByID returns the node with the given identity, or nil.
func (s *System) NodeByID(id string) *Node { return s.nodes[id] }

// ComponentByID returns the component with the given identity, or nil.
func (s *System) ComponentByID(id string) *Component { return s.components[id] }

// NodeCount returns the number of live nodes across all graphs.
func (s *System) NodeCount() int { return len(s.nodes) }

// CreateNode adds a node to g. An empty type means BaseNodeType.
func (s *System) CreateNode(g *Graph, typ, name string) *Node {
	if g == nil {
		g = s.root
	}
	if typ == "" {
		typ = BaseNodeType
	}
	n := &Node{ID: NewID(), Type: typ, Name: name, graph: g}
	g.nodes = append(g.nodes, n)
	s.nodes[n.ID] = n
	s.nodeEvents.Emit(NodeEvent{Node: n, Add: true})
	return n
}

// RemoveNode detaches the node's components, breaks its structural links
// (children become roots) and removes it from its graph.
func (s *System) RemoveNode(n *Node) {
	if n == nil || s.nodes[n.ID] != n {
		return
	}
	for i := len(n.components) - 1; i >= 0; i-- {
		s.RemoveComponent(n.components[i])
	}
	if h := n.hierarchy; h != nil {
		for _, child := range h.ChildNodes() {
			s.Unlink(child)
		}
		s.Unlink(n)
	}
	n.graph.removeNode(n)
	delete(s.nodes, n.ID)
	s.nodeEvents.Emit(NodeEvent{Node: n, Add: false})
}

// AddComponent attaches a new component to n.
func (s *System) AddComponent(n *Node, typ, name string) *Component {
	c := &Component{ID: NewID(), Type: typ, Name: name, node: n}
	n.components = append(n.components, c)
	s.components[c.ID] = c
	s.componentEvents.Emit(ComponentEvent{Component: c, Add: true})
	return c
}

// AddGraphComponent attaches a component that owns a new, empty subgraph.
func (s *System) AddGraphComponent(n *Node, typ, name string) *Component {
	c := &Component{ID: NewID(), Type: typ, Name: name, node: n}
	c.inner = &Graph{ID: NewID(), parent: c}
	n.components = append(n.components, c)
	s.components[c.ID] = c
	s.componentEvents.Emit(ComponentEvent{Component: c, Add: true})
	return c
}

// RemoveComponent detaches c. The nodes of an owned subgraph are removed
// first.
func (s *System) RemoveComponent(c *Component) {
	if c == nil || s.components[c.ID] != c {
		return
	}
	if c.inner != nil {
		nodes := c.inner.Nodes()
		for i := len(nodes) - 1; i >= 0; i-- {
			s.RemoveNode(nodes[i])
		}
	}
	n := c.node
	for i, m := range n.components {
		if m == c {
			n.components = append(n.components[:i], n.components[i+1:]...)
			break
		}
	}
	delete(s.components, c.ID)
	s.componentEvents.Emit(ComponentEvent{Component: c, Add: false})
}

// EnableHierarchy makes n take part in parent/child structure without
// giving it a parent.
func (s *System) EnableHierarchy(n *Node) *Hierarchy {
	if n.hierarchy == nil {
		n.hierarchy = &Hierarchy{node: n}
	}
	return n.hierarchy
}

// Link makes child a structural child of parent. An existing parent link
// of child is broken first.
func (s *System) Link(parent, child *Node) error {
	if parent == child {
		return ErrSelfLink
	}
	if parent.graph != child.graph {
		return ErrForeignGraph
	}
	for p := parent; p != nil; p = p.StructuralParent() {
		if p == child {
			return ErrCycle
		}
	}
	if child.StructuralParent() == parent {
		return nil
	}
	s.Unlink(child)

	ph := s.EnableHierarchy(parent)
	ch := s.EnableHierarchy(child)
	ch.parent = ph
	ph.children = append(ph.children, ch)
	s.hierarchyEvents.Emit(HierarchyEvent{Parent: parent, Child: child, Add: true})
	return nil
}

// Unlink breaks the link between child and its structural parent.
func (s *System) Unlink(child *Node) {
	h := child.hierarchy
	if h == nil || h.parent == nil {
		return
	}
	parent := h.parent
	parent.removeChild(h)
	h.parent = nil
	s.hierarchyEvents.Emit(HierarchyEvent{Parent: parent.node, Child: child, Add: false})
}

// OnNode registers fn for node add/remove events.
func (s *System) OnNode(fn func(NodeEvent)) event.Subscription {
	return s.nodeEvents.On(fn)
}

// OnComponent registers fn for component add/remove events.
func (s *System) OnComponent(fn func(ComponentEvent)) event.Subscription {
	return s.componentEvents.On(fn)
}

// OnHierarchy registers fn for link add/remove events.
func (s *System) OnHierarchy(fn func(HierarchyEvent)) event.Subscription {
	return s.hierarchyEvents.On(fn)
}

// ListenerCount returns the number of registered structural handlers.
func (s *System) ListenerCount() int {
	return s.nodeEvents.Len() + s.componentEvents.Len() + s.hierarchyEvents.Len()
}
