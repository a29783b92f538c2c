package scene

import (
	"math"

	"github.com/vanderheijden86/graphview/pkg/graph"
)

// Snapshot is a JSON-friendly view of the active graph and selection.
type Snapshot struct {
	Graph      string         `json:"graph"`
	Nodes      []SnapshotNode `json:"nodes"`
	Selected   []string       `json:"selected,omitempty"`
	NodeCount  int            `json:"node_count"`
	Components int            `json:"component_count"`
}

// SnapshotNode is one node and its structural children.
type SnapshotNode struct {
	ID         string              `json:"id"`
	Type       string              `json:"type"`
	Name       string              `json:"name,omitempty"`
	Components []SnapshotComponent `json:"components,omitempty"`
	Children   []SnapshotNode      `json:"children,omitempty"`
}

// SnapshotComponent is one component with its current property values.
type SnapshotComponent struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Name       string         `json:"name,omitempty"`
	Subgraph   bool           `json:"subgraph,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// SelectionSource is the part of a selection manager a snapshot reads.
type SelectionSource interface {
	ActiveGraph() *graph.Graph
	SelectedNodes() []*graph.Node
	SelectedComponents() []*graph.Component
}

// TakeSnapshot captures the active graph of sel. Non-finite numbers are
// rendered as strings so the result always encodes as JSON.
func TakeSnapshot(sys *graph.System, sel SelectionSource) Snapshot {
	g := sys.Root()
	if sel != nil && sel.ActiveGraph() != nil {
		g = sel.ActiveGraph()
	}
	s := Snapshot{Graph: "System", NodeCount: sys.NodeCount()}
	if owner := g.Parent(); owner != nil {
		s.Graph = owner.Type
		if owner.Name != "" {
			s.Graph = owner.Name
		}
	}
	for _, n := range g.FindRoots() {
		s.Nodes = append(s.Nodes, snapshotNode(n, &s, map[*graph.Node]bool{}))
	}
	if sel != nil {
		for _, n := range sel.SelectedNodes() {
			s.Selected = append(s.Selected, n.ID)
		}
		for _, c := range sel.SelectedComponents() {
			s.Selected = append(s.Selected, c.ID)
		}
	}
	return s
}

func snapshotNode(n *graph.Node, s *Snapshot, onPath map[*graph.Node]bool) SnapshotNode {
	out := SnapshotNode{ID: n.ID, Type: n.Type, Name: n.Name}
	for _, c := range n.Components() {
		s.Components++
		sc := SnapshotComponent{ID: c.ID, Type: c.Type, Name: c.Name, Subgraph: c.IsGraph()}
		for _, p := range c.Properties() {
			if sc.Properties == nil {
				sc.Properties = make(map[string]any)
			}
			sc.Properties[p.Name()] = JSONSafe(p.Value())
		}
		out.Components = append(out.Components, sc)
	}
	onPath[n] = true
	defer delete(onPath, n)
	if h := n.Hierarchy(); h != nil {
		for _, child := range h.ChildNodes() {
			if onPath[child] {
				continue
			}
			out.Children = append(out.Children, snapshotNode(child, s, onPath))
		}
	}
	return out
}

// JSONSafe replaces non-finite numbers, alone or in vectors, with the
// strings "inf", "-inf" and "nan".
func JSONSafe(v any) any {
	switch x := v.(type) {
	case float64:
		return finite(x)
	case []float64:
		out := make([]any, len(x))
		for i, f := range x {
			out[i] = finite(f)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = JSONSafe(e)
		}
		return out
	}
	return v
}

func finite(f float64) any {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	return f
}

// Export serializes the live system into a document. Objects built from a
// document keep their document ids; everything else uses its live id.
func Export(sys *graph.System, idx *Index) *Document {
	doc := &Document{Version: CurrentVersion}
	doc.Graph = exportGraph(sys.Root(), idx)
	return doc
}

func exportGraph(g *graph.Graph, idx *Index) GraphDoc {
	var gd GraphDoc
	for _, n := range g.Nodes() {
		nd := NodeDoc{ID: docNodeID(idx, n), Type: n.Type, Name: n.Name}
		if n.Type == graph.BaseNodeType {
			nd.Type = ""
		}
		if p := n.StructuralParent(); p != nil {
			nd.Parent = docNodeID(idx, p)
		}
		for _, c := range n.Components() {
			nd.Components = append(nd.Components, exportComponent(c, idx))
		}
		gd.Nodes = append(gd.Nodes, nd)
	}
	return gd
}

func exportComponent(c *graph.Component, idx *Index) ComponentDoc {
	cd := ComponentDoc{ID: c.ID, Type: c.Type, Name: c.Name}
	if idx != nil {
		if id, ok := idx.ComponentID(c); ok {
			cd.ID = id
		}
	}
	for _, p := range c.Properties() {
		input := p.IsInput()
		s := p.Schema()
		pd := PropertyDoc{
			Name:    p.Name(),
			Type:    string(p.Type()),
			Value:   JSONSafe(p.Value()),
			Default: JSONSafe(p.Default()),
			Input:   &input,
			Schema: SchemaDoc{
				Min: s.Min, Max: s.Max, Step: s.Step, Speed: s.Speed,
				Precision: s.Precision, Bar: s.Bar, Options: s.Options, Event: s.Event,
			},
		}
		if idx != nil {
			if ls, ok := idx.links[p]; ok {
				pd.InLinks, pd.OutLinks = ls.in, ls.out
			}
		}
		cd.Properties = append(cd.Properties, pd)
	}
	if inner := c.InnerGraph(); inner != nil {
		gd := exportGraph(inner, idx)
		cd.Graph = &gd
	}
	return cd
}

func docNodeID(idx *Index, n *graph.Node) string {
	if idx != nil {
		if id, ok := idx.NodeID(n); ok {
			return id
		}
	}
	return n.ID
}
