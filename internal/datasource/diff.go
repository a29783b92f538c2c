package datasource

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/vanderheijden86/graphview/pkg/scene"
)

// SourceDiff represents differences between two scene sources
type SourceDiff struct {
	// SourceA is the path of the first source
	SourceA string
	// SourceB is the path of the second source
	SourceB string
	// MissingInA contains node IDs present in B but not in A
	MissingInA []string
	// MissingInB contains node IDs present in A but not in B
	MissingInB []string
	// ValueMismatch contains properties whose values differ between sources
	ValueMismatch []ValueDifference
	// CountA is the number of nodes in source A
	CountA int
	// CountB is the number of nodes in source B
	CountB int
}

// ValueDifference represents a value mismatch for a single property
type ValueDifference struct {
	Component string `json:"component"`
	Property  string `json:"property"`
	ValueA    any    `json:"value_a"`
	ValueB    any    `json:"value_b"`
}

// HasInconsistencies returns true if there are any differences between sources
func (d SourceDiff) HasInconsistencies() bool {
	return len(d.MissingInA) > 0 || len(d.MissingInB) > 0 || len(d.ValueMismatch) > 0
}

// Summary returns a human-readable summary of the differences
func (d SourceDiff) Summary() string {
	if !d.HasInconsistencies() {
		return fmt.Sprintf("Sources match (%d nodes each)", d.CountA)
	}

	summary := fmt.Sprintf("Differences between %s and %s:\n", d.SourceA, d.SourceB)

	if d.CountA != d.CountB {
		summary += fmt.Sprintf("  - Count mismatch: %d vs %d\n", d.CountA, d.CountB)
	}

	if len(d.MissingInA) > 0 {
		summary += fmt.Sprintf("  - %d nodes in %s but not %s\n", len(d.MissingInA), d.SourceB, d.SourceA)
		if len(d.MissingInA) <= 5 {
			for _, id := range d.MissingInA {
				summary += fmt.Sprintf("    - %s\n", id)
			}
		}
	}

	if len(d.MissingInB) > 0 {
		summary += fmt.Sprintf("  - %d nodes in %s but not %s\n", len(d.MissingInB), d.SourceA, d.SourceB)
		if len(d.MissingInB) <= 5 {
			for _, id := range d.MissingInB {
				summary += fmt.Sprintf("    - %s\n", id)
			}
		}
	}

	if len(d.ValueMismatch) > 0 {
		summary += fmt.Sprintf("  - %d properties with different values\n", len(d.ValueMismatch))
		if len(d.ValueMismatch) <= 5 {
			for _, m := range d.ValueMismatch {
				summary += fmt.Sprintf("    - %s.%s: %v vs %v\n", m.Component, m.Property, m.ValueA, m.ValueB)
			}
		}
	}

	return summary
}

// DiffOptions configures the diff operation
type DiffOptions struct {
	// CompareValues compares property values of components present in both
	CompareValues bool
	// MaxDifferences limits the number of differences tracked (0 = unlimited)
	MaxDifferences int
}

// DefaultDiffOptions returns sensible default diff options
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{
		CompareValues:  true,
		MaxDifferences: 100,
	}
}

type flatScene struct {
	nodes map[string]bool
	props map[string]map[string]any
}

func flatten(doc *scene.Document) flatScene {
	f := flatScene{nodes: make(map[string]bool), props: make(map[string]map[string]any)}
	var walk func(scene.GraphDoc)
	walk = func(g scene.GraphDoc) {
		for _, n := range g.Nodes {
			f.nodes[n.ID] = true
			for _, c := range n.Components {
				values := make(map[string]any, len(c.Properties))
				for _, p := range c.Properties {
					values[p.Name] = normalize(scene.JSONSafe(p.Value))
				}
				f.props[c.ID] = values
				if c.Graph != nil {
					walk(*c.Graph)
				}
			}
		}
	}
	walk(doc.Graph)
	return f
}

// normalize maps integers to float64 so YAML and JSON decodings of the same
// scene compare equal.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	}
	return v
}

// DetectInconsistencies compares two scene documents and returns differences
func DetectInconsistencies(docA, docB *scene.Document, sourceA, sourceB string, opts DiffOptions) SourceDiff {
	diff := SourceDiff{
		SourceA: sourceA,
		SourceB: sourceB,
	}
	a, b := flatten(docA), flatten(docB)
	diff.CountA = len(a.nodes)
	diff.CountB = len(b.nodes)

	limit := func(n int) bool {
		return opts.MaxDifferences == 0 || n < opts.MaxDifferences
	}

	for id := range a.nodes {
		if !b.nodes[id] && limit(len(diff.MissingInB)) {
			diff.MissingInB = append(diff.MissingInB, id)
		}
	}
	for id := range b.nodes {
		if !a.nodes[id] && limit(len(diff.MissingInA)) {
			diff.MissingInA = append(diff.MissingInA, id)
		}
	}
	sort.Strings(diff.MissingInA)
	sort.Strings(diff.MissingInB)

	if opts.CompareValues {
		comps := make([]string, 0, len(a.props))
		for id := range a.props {
			comps = append(comps, id)
		}
		sort.Strings(comps)
		for _, id := range comps {
			propsB, ok := b.props[id]
			if !ok {
				continue
			}
			names := make([]string, 0, len(a.props[id]))
			for name := range a.props[id] {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				va := a.props[id][name]
				vb, ok := propsB[name]
				if ok && !reflect.DeepEqual(va, vb) && limit(len(diff.ValueMismatch)) {
					diff.ValueMismatch = append(diff.ValueMismatch, ValueDifference{
						Component: id,
						Property:  name,
						ValueA:    va,
						ValueB:    vb,
					})
				}
			}
		}
	}

	return diff
}

// CompareSources loads and compares two scene sources
func CompareSources(sourceA, sourceB DataSource, opts DiffOptions) (*SourceDiff, error) {
	docA, err := LoadFromSource(sourceA)
	if err != nil {
		return nil, fmt.Errorf("failed to load source A (%s): %w", sourceA.Path, err)
	}

	docB, err := LoadFromSource(sourceB)
	if err != nil {
		return nil, fmt.Errorf("failed to load source B (%s): %w", sourceB.Path, err)
	}

	diff := DetectInconsistencies(docA, docB, sourceA.Path, sourceB.Path, opts)
	return &diff, nil
}
