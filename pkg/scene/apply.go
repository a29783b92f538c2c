package scene

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/vanderheijden86/graphview/pkg/debug"
	"github.com/vanderheijden86/graphview/pkg/graph"
	"github.com/vanderheijden86/graphview/pkg/metrics"
)

// Changes summarizes one reconcile pass.
type Changes struct {
	NodesAdded        int `json:"nodes_added"`
	NodesRemoved      int `json:"nodes_removed"`
	ComponentsAdded   int `json:"components_added"`
	ComponentsRemoved int `json:"components_removed"`
	Relinked          int `json:"relinked"`
	Renamed           int `json:"renamed"`
	ValuesWritten     int `json:"values_written"`
	SchemasChanged    int `json:"schemas_changed"`
	LinksChanged      int `json:"links_changed"`
}

// Empty reports whether the pass changed nothing.
func (c Changes) Empty() bool {
	return c == Changes{}
}

// Structural reports whether nodes, components or links between nodes
// changed shape or labels.
func (c Changes) Structural() bool {
	return c.NodesAdded+c.NodesRemoved+c.ComponentsAdded+c.ComponentsRemoved+c.Relinked+c.Renamed > 0
}

// String returns a one-line summary, e.g. "+2 nodes -1 component 3 values".
func (c Changes) String() string {
	if c.Empty() {
		return "no changes"
	}
	var parts []string
	add := func(n int, format string) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf(format, n))
		}
	}
	add(c.NodesAdded, "+%d nodes")
	add(c.NodesRemoved, "-%d nodes")
	add(c.ComponentsAdded, "+%d components")
	add(c.ComponentsRemoved, "-%d components")
	add(c.Relinked, "%d relinked")
	add(c.Renamed, "%d renamed")
	add(c.ValuesWritten, "%d values")
	add(c.SchemasChanged, "%d schemas")
	add(c.LinksChanged, "%d links")
	return strings.Join(parts, " ")
}

// Apply reconciles a live system, previously built from a document, with a
// new version of that document. Only real differences produce structural
// or value notifications. Objects whose shape changed (type, subgraph
// presence, property names, types or direction) are replaced.
func Apply(sys *graph.System, idx *Index, doc *Document) (Changes, error) {
	defer metrics.Timer(metrics.SceneApply)()

	var ch Changes
	if err := doc.Validate(); err != nil {
		return ch, err
	}
	if err := applyGraph(sys, sys.Root(), doc.Graph, idx, &ch); err != nil {
		return ch, err
	}
	idx.prune(sys)
	metrics.SceneReloads.Inc()
	debug.Log("scene applied: %s", ch)
	return ch, nil
}

func nodeType(t string) string {
	if t == "" {
		return graph.BaseNodeType
	}
	return t
}

func applyGraph(sys *graph.System, g *graph.Graph, gd GraphDoc, idx *Index, ch *Changes) error {
	want := make(map[string]bool, len(gd.Nodes))
	for _, nd := range gd.Nodes {
		want[nd.ID] = true
	}
	for _, n := range g.Nodes() {
		if id, ok := idx.NodeID(n); !ok || !want[id] {
			sys.RemoveNode(n)
			ch.NodesRemoved++
		}
	}
	idx.prune(sys)

	for _, nd := range gd.Nodes {
		n := idx.nodes[nd.ID]
		if n != nil && (n.Graph() != g || n.Type != nodeType(nd.Type)) {
			sys.RemoveNode(n)
			ch.NodesRemoved++
			idx.prune(sys)
			n = nil
		}
		if n == nil {
			if err := buildNode(sys, g, nd, idx); err != nil {
				return err
			}
			ch.NodesAdded++
			ch.ComponentsAdded += len(nd.Components)
			continue
		}
		if n.Name != nd.Name {
			n.Name = nd.Name
			ch.Renamed++
		}
		if err := applyComponents(sys, n, nd.Components, idx, ch); err != nil {
			return err
		}
	}

	for _, nd := range gd.Nodes {
		n := idx.nodes[nd.ID]
		if n.StructuralParent() != desiredParent(idx, nd, n) {
			linkParent(sys, idx, nd)
			ch.Relinked++
		}
	}
	return nil
}

func desiredParent(idx *Index, nd NodeDoc, n *graph.Node) *graph.Node {
	if nd.Parent == "" {
		return nil
	}
	p := idx.nodes[nd.Parent]
	if p == nil || p == n || p.Graph() != n.Graph() {
		return nil
	}
	for a := p; a != nil; a = a.StructuralParent() {
		if a == n {
			return n.StructuralParent()
		}
	}
	return p
}

func applyComponents(sys *graph.System, n *graph.Node, cds []ComponentDoc, idx *Index, ch *Changes) error {
	want := make(map[string]ComponentDoc, len(cds))
	for _, cd := range cds {
		want[cd.ID] = cd
	}
	for _, c := range n.Components() {
		id, ok := idx.ComponentID(c)
		cd, keep := want[id]
		if !ok || !keep || !sameShape(c, cd) {
			sys.RemoveComponent(c)
			ch.ComponentsRemoved++
		}
	}
	idx.prune(sys)

	for _, cd := range cds {
		c := idx.components[cd.ID]
		if c != nil && c.Node() != n {
			sys.RemoveComponent(c)
			ch.ComponentsRemoved++
			idx.prune(sys)
			c = nil
		}
		if c == nil {
			if err := buildComponent(sys, n, cd, idx); err != nil {
				return err
			}
			ch.ComponentsAdded++
			continue
		}
		if c.Name != cd.Name {
			c.Name = cd.Name
			ch.Renamed++
		}
		applyProperties(c, cd, idx, ch)
		if cd.Graph != nil {
			if err := applyGraph(sys, c.InnerGraph(), *cd.Graph, idx, ch); err != nil {
				return err
			}
		}
	}
	return nil
}

// sameShape reports whether a live component can be updated in place.
func sameShape(c *graph.Component, cd ComponentDoc) bool {
	if c.Type != cd.Type || c.IsGraph() != (cd.Graph != nil) {
		return false
	}
	props := c.Properties()
	if len(props) != len(cd.Properties) {
		return false
	}
	for i, p := range props {
		pd := cd.Properties[i]
		typ, err := propertyType(pd.Type)
		if err != nil || p.Name() != pd.Name || p.Type() != typ {
			return false
		}
		input := pd.Input == nil || *pd.Input
		if p.IsInput() != input {
			return false
		}
	}
	return true
}

func applyProperties(c *graph.Component, cd ComponentDoc, idx *Index, ch *Changes) {
	for i, p := range c.Properties() {
		pd := cd.Properties[i]

		if schema := schemaOf(pd.Schema); !reflect.DeepEqual(p.Schema(), schema) {
			p.SetSchema(schema)
			ch.SchemasChanged++
		}

		raw := pd.Value
		if raw == nil {
			raw = pd.Default
		}
		if raw != nil {
			// A scratch cell normalizes the document value the same way the
			// live cell does
			want := graph.NewProperty("", p.Type(), graph.Schema{}, valueOf(p.Type(), raw), true).Value()
			if !reflect.DeepEqual(p.Value(), want) {
				p.SetValue(want)
				ch.ValuesWritten++
			}
		}

		next := linkSet{in: pd.InLinks, out: pd.OutLinks}
		if prev := idx.links[p]; !slices.Equal(prev.in, next.in) || !slices.Equal(prev.out, next.out) {
			applyLinks(p, prev, next)
			idx.links[p] = next
			ch.LinksChanged++
		}
	}
}
