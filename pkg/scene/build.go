package scene

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vanderheijden86/graphview/pkg/debug"
	"github.com/vanderheijden86/graphview/pkg/graph"
	"github.com/vanderheijden86/graphview/pkg/metrics"
)

// Index maps document ids to the live objects built from them.
type Index struct {
	nodes      map[string]*graph.Node
	components map[string]*graph.Component
	links      map[*graph.Property]linkSet
}

type linkSet struct {
	in  []int
	out []int
}

func newIndex() *Index {
	return &Index{
		nodes:      make(map[string]*graph.Node),
		components: make(map[string]*graph.Component),
		links:      make(map[*graph.Property]linkSet),
	}
}

// Node returns the live node built from the document id, or nil.
func (x *Index) Node(id string) *graph.Node { return x.nodes[id] }

// Component returns the live component built from the document id, or nil.
func (x *Index) Component(id string) *graph.Component { return x.components[id] }

// NodeID returns the document id of a live node.
func (x *Index) NodeID(n *graph.Node) (string, bool) {
	for id, m := range x.nodes {
		if m == n {
			return id, true
		}
	}
	return "", false
}

// ComponentID returns the document id of a live component.
func (x *Index) ComponentID(c *graph.Component) (string, bool) {
	for id, m := range x.components {
		if m == c {
			return id, true
		}
	}
	return "", false
}

// Len returns the number of indexed nodes.
func (x *Index) Len() int { return len(x.nodes) }

// prune drops entries whose objects are no longer part of sys.
func (x *Index) prune(sys *graph.System) {
	for id, n := range x.nodes {
		if sys.NodeByID(n.ID) == nil {
			delete(x.nodes, id)
		}
	}
	for id, c := range x.components {
		if sys.ComponentByID(c.ID) == nil {
			for _, p := range c.Properties() {
				delete(x.links, p)
			}
			delete(x.components, id)
		}
	}
}

// Build materializes doc into the root graph of sys.
func Build(sys *graph.System, doc *Document) (*Index, error) {
	defer metrics.Timer(metrics.SceneLoad)()

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	idx := newIndex()
	if err := buildGraph(sys, sys.Root(), doc.Graph, idx); err != nil {
		return nil, err
	}
	debug.Log("scene built: %d nodes, %d components", len(idx.nodes), len(idx.components))
	return idx, nil
}

func buildGraph(sys *graph.System, g *graph.Graph, gd GraphDoc, idx *Index) error {
	for _, nd := range gd.Nodes {
		if err := buildNode(sys, g, nd, idx); err != nil {
			return err
		}
	}
	for _, nd := range gd.Nodes {
		linkParent(sys, idx, nd)
	}
	return nil
}

func buildNode(sys *graph.System, g *graph.Graph, nd NodeDoc, idx *Index) error {
	n := sys.CreateNode(g, nd.Type, nd.Name)
	idx.nodes[nd.ID] = n
	for _, cd := range nd.Components {
		if err := buildComponent(sys, n, cd, idx); err != nil {
			return err
		}
	}
	return nil
}

func buildComponent(sys *graph.System, n *graph.Node, cd ComponentDoc, idx *Index) error {
	var c *graph.Component
	if cd.Graph != nil {
		c = sys.AddGraphComponent(n, cd.Type, cd.Name)
	} else {
		c = sys.AddComponent(n, cd.Type, cd.Name)
	}
	idx.components[cd.ID] = c

	for _, pd := range cd.Properties {
		p, err := newProperty(pd)
		if err != nil {
			return fmt.Errorf("component %q: %w", cd.ID, err)
		}
		c.AddProperty(p)
		applyLinks(p, linkSet{}, linkSet{in: pd.InLinks, out: pd.OutLinks})
		idx.links[p] = linkSet{in: pd.InLinks, out: pd.OutLinks}
	}

	if cd.Graph != nil {
		return buildGraph(sys, c.InnerGraph(), *cd.Graph, idx)
	}
	return nil
}

// linkParent attaches a node to its document parent. A parent that is
// unknown, lives in another graph or would close a cycle leaves the node a
// root.
func linkParent(sys *graph.System, idx *Index, nd NodeDoc) {
	n := idx.nodes[nd.ID]
	if nd.Parent == "" {
		if n.StructuralParent() != nil {
			sys.Unlink(n)
		}
		return
	}
	parent := idx.nodes[nd.Parent]
	if parent == nil {
		debug.Log("scene: node %q has unknown parent %q", nd.ID, nd.Parent)
		sys.Unlink(n)
		return
	}
	if err := sys.Link(parent, n); err != nil {
		debug.Log("scene: node %q parent %q: %v", nd.ID, nd.Parent, err)
		sys.Unlink(n)
	}
}

var errPropertyType = errors.New("unknown property type")

func propertyType(s string) (graph.PropertyType, error) {
	switch t := graph.PropertyType(s); t {
	case graph.TypeNumber, graph.TypeString, graph.TypeBoolean, graph.TypeObject, graph.TypeEvent:
		return t, nil
	case "":
		return graph.TypeNumber, nil
	}
	return "", fmt.Errorf("%w: %q", errPropertyType, s)
}

func schemaOf(sd SchemaDoc) graph.Schema {
	return graph.Schema{
		Min:       sd.Min,
		Max:       sd.Max,
		Step:      sd.Step,
		Speed:     sd.Speed,
		Precision: sd.Precision,
		Bar:       sd.Bar,
		Options:   append([]string(nil), sd.Options...),
		Event:     sd.Event,
	}
}

func newProperty(pd PropertyDoc) (*graph.Property, error) {
	typ, err := propertyType(pd.Type)
	if err != nil {
		return nil, fmt.Errorf("property %q: %w", pd.Name, err)
	}
	input := true
	if pd.Input != nil {
		input = *pd.Input
	}
	// Without an explicit default the initial value is the default
	def := pd.Default
	if def == nil {
		def = pd.Value
	}
	p := graph.NewProperty(pd.Name, typ, schemaOf(pd.Schema), valueOf(typ, def), input)
	if pd.Default != nil && pd.Value != nil {
		p.SetValue(valueOf(typ, pd.Value))
	}
	return p, nil
}

// valueOf converts a decoded document value into the shape property cells
// hold. Lists of strings or booleans become typed vectors, and the strings
// "inf", "-inf" and "nan" stand for non-finite numbers.
func valueOf(typ graph.PropertyType, raw any) any {
	list, ok := raw.([]any)
	if !ok {
		if raw == nil {
			return zeroOf(typ)
		}
		if typ == graph.TypeNumber {
			return numberOf(raw)
		}
		return raw
	}
	switch typ {
	case graph.TypeNumber:
		out := make([]float64, len(list))
		for i, v := range list {
			out[i], _ = graph.ToFloat(numberOf(v))
		}
		return out
	case graph.TypeString:
		out := make([]string, len(list))
		for i, v := range list {
			out[i] = fmt.Sprint(v)
		}
		return out
	case graph.TypeBoolean:
		out := make([]bool, len(list))
		for i, v := range list {
			out[i], _ = v.(bool)
		}
		return out
	}
	return raw
}

func numberOf(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inf", "+inf", "infinity":
		return math.Inf(1)
	case "-inf", "-infinity":
		return math.Inf(-1)
	case "nan":
		return math.NaN()
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return f
	}
	return 0.0
}

func zeroOf(typ graph.PropertyType) any {
	switch typ {
	case graph.TypeNumber:
		return 0.0
	case graph.TypeString:
		return ""
	case graph.TypeBoolean:
		return false
	}
	return nil
}

// applyLinks moves a property's link counts from one set to another.
func applyLinks(p *graph.Property, from, to linkSet) {
	for _, i := range from.in {
		p.RemoveInLink(i)
	}
	for _, i := range from.out {
		p.RemoveOutLink(i)
	}
	for _, i := range to.in {
		p.AddInLink(i)
	}
	for _, i := range to.out {
		p.AddOutLink(i)
	}
}
