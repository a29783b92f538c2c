package graph

import "github.com/google/uuid"

// BaseNodeType is the type name of plain nodes.
const BaseNodeType = "Node"

// NewID returns a new identity key. Keys are unique for the lifetime of the
// process and never reused.
func NewID() string {
	return uuid.NewString()
}

// Node is an entity in a graph. It carries components and may take part in
// a parent/child structure through its Hierarchy.
type Node struct {
	ID   string
	Type string
	Name string

	graph      *Graph
	components []*Component
	hierarchy  *Hierarchy
}

// Graph returns the graph containing the node.
func (n *Node) Graph() *Graph { return n.graph }

// Components returns the attached components in attachment order.
func (n *Node) Components() []*Component {
	return append([]*Component(nil), n.components...)
}

// Component returns the first component of the given type, or nil.
func (n *Node) Component(typ string) *Component {
	for _, c := range n.components {
		if c.Type == typ {
			return c
		}
	}
	return nil
}

// Hierarchy returns the node's structural link, or nil when the node does
// not take part in parent/child structure.
func (n *Node) Hierarchy() *Hierarchy { return n.hierarchy }

// StructuralParent returns the owning node of the hierarchy parent, or nil.
func (n *Node) StructuralParent() *Node {
	if n.hierarchy == nil || n.hierarchy.parent == nil {
		return nil
	}
	return n.hierarchy.parent.node
}

// Hierarchy links a node into a parent/child structure.
type Hierarchy struct {
	node     *Node
	parent   *Hierarchy
	children []*Hierarchy
}

func (h *Hierarchy) Node() *Node        { return h.node }
func (h *Hierarchy) Parent() *Hierarchy { return h.parent }
func (h *Hierarchy) Children() []*Hierarchy {
	return append([]*Hierarchy(nil), h.children...)
}

// ChildNodes returns the owning nodes of the structural children.
func (h *Hierarchy) ChildNodes() []*Node {
	nodes := make([]*Node, 0, len(h.children))
	for _, c := range h.children {
		nodes = append(nodes, c.node)
	}
	return nodes
}

func (h *Hierarchy) removeChild(child *Hierarchy) {
	for i, c := range h.children {
		if c == child {
			h.children = append(h.children[:i], h.children[i+1:]...)
			return
		}
	}
}

// Component is a unit of behavior attached to a node. A component with an
// inner graph owns a nested subgraph.
type Component struct {
	ID   string
	Type string
	Name string

	node       *Node
	properties []*Property
	inner      *Graph
}

// Node returns the node the component is attached to.
func (c *Component) Node() *Node { return c.node }

// InnerGraph returns the nested subgraph, or nil.
func (c *Component) InnerGraph() *Graph { return c.inner }

// IsGraph reports whether the component owns a nested subgraph.
func (c *Component) IsGraph() bool { return c.inner != nil }

// Properties returns the component's properties in declaration order.
func (c *Component) Properties() []*Property {
	return append([]*Property(nil), c.properties...)
}

// Property returns the property with the given name, or nil.
func (c *Component) Property(name string) *Property {
	for _, p := range c.properties {
		if p.name == name {
			return p
		}
	}
	return nil
}

// AddProperty attaches p to the component.
func (c *Component) AddProperty(p *Property) *Property {
	p.component = c
	c.properties = append(c.properties, p)
	return p
}

// Graph is a set of nodes. Subgraphs are owned by a graph component.
type Graph struct {
	ID string

	parent *Component
	nodes  []*Node
}

// Parent returns the component owning this graph, or nil for the root.
func (g *Graph) Parent() *Component { return g.parent }

// ParentGraph returns the graph containing the owning component, or nil.
func (g *Graph) ParentGraph() *Graph {
	if g.parent == nil || g.parent.node == nil {
		return nil
	}
	return g.parent.node.graph
}

// Nodes returns the graph's nodes in creation order.
func (g *Graph) Nodes() []*Node {
	return append([]*Node(nil), g.nodes...)
}

// FindRoots returns the nodes without a structural parent, in creation order.
func (g *Graph) FindRoots() []*Node {
	var roots []*Node
	for _, n := range g.nodes {
		if n.StructuralParent() == nil {
			roots = append(roots, n)
		}
	}
	return roots
}

func (g *Graph) removeNode(n *Node) {
	for i, m := range g.nodes {
		if m == n {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			return
		}
	}
}
