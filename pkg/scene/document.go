// Package scene reads, writes and materializes scene documents: serialized
// object graphs of nodes, components and properties.
package scene

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// CurrentVersion is the newest document version this package understands.
const CurrentVersion = 1

var (
	// ErrUnsupportedFormat is returned for file extensions this package
	// does not decode itself.
	ErrUnsupportedFormat = errors.New("unsupported scene format")
	// ErrDuplicateID is returned when two nodes or two components share an id.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrMissingID is returned when a node or component has no id.
	ErrMissingID = errors.New("missing id")
	// ErrVersion is returned for documents newer than CurrentVersion.
	ErrVersion = errors.New("unsupported document version")
)

// Document is a serialized scene.
type Document struct {
	Version int      `yaml:"version" json:"version"`
	Name    string   `yaml:"name,omitempty" json:"name,omitempty"`
	Graph   GraphDoc `yaml:"graph" json:"graph"`
}

// GraphDoc is a graph or subgraph.
type GraphDoc struct {
	Nodes []NodeDoc `yaml:"nodes" json:"nodes"`
}

// NodeDoc is a node. Parent names the structural parent by document id;
// an unknown parent leaves the node a root.
type NodeDoc struct {
	ID         string         `yaml:"id" json:"id"`
	Type       string         `yaml:"type,omitempty" json:"type,omitempty"`
	Name       string         `yaml:"name,omitempty" json:"name,omitempty"`
	Parent     string         `yaml:"parent,omitempty" json:"parent,omitempty"`
	Components []ComponentDoc `yaml:"components,omitempty" json:"components,omitempty"`
}

// ComponentDoc is a component. A non-nil Graph makes it a graph component.
type ComponentDoc struct {
	ID         string        `yaml:"id" json:"id"`
	Type       string        `yaml:"type" json:"type"`
	Name       string        `yaml:"name,omitempty" json:"name,omitempty"`
	Properties []PropertyDoc `yaml:"properties,omitempty" json:"properties,omitempty"`
	Graph      *GraphDoc     `yaml:"graph,omitempty" json:"graph,omitempty"`
}

// PropertyDoc is a property. Input defaults to true. Link lists hold the
// linked element indices, -1 for the whole value.
type PropertyDoc struct {
	Name     string    `yaml:"name" json:"name"`
	Type     string    `yaml:"type" json:"type"`
	Value    any       `yaml:"value,omitempty" json:"value,omitempty"`
	Default  any       `yaml:"default,omitempty" json:"default,omitempty"`
	Input    *bool     `yaml:"input,omitempty" json:"input,omitempty"`
	Schema   SchemaDoc `yaml:"schema,omitempty" json:"schema,omitempty"`
	InLinks  []int     `yaml:"in_links,omitempty" json:"in_links,omitempty"`
	OutLinks []int     `yaml:"out_links,omitempty" json:"out_links,omitempty"`
}

// SchemaDoc mirrors graph.Schema.
type SchemaDoc struct {
	Min       *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max       *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Step      *float64 `yaml:"step,omitempty" json:"step,omitempty"`
	Speed     *float64 `yaml:"speed,omitempty" json:"speed,omitempty"`
	Precision *int     `yaml:"precision,omitempty" json:"precision,omitempty"`
	Bar       bool     `yaml:"bar,omitempty" json:"bar,omitempty"`
	Options   []string `yaml:"options,omitempty" json:"options,omitempty"`
	Event     bool     `yaml:"event,omitempty" json:"event,omitempty"`
}

// Format is a document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor picks the encoding from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
}

// Decode parses and validates a document.
func Decode(data []byte, format Format) (*Document, error) {
	var doc Document
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s scene: %w", format, err)
	}
	if doc.Version == 0 {
		doc.Version = CurrentVersion
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Encode serializes a document.
func Encode(doc *Document, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(doc)
	case FormatJSON:
		return json.MarshalIndent(doc, "", "  ")
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

// Load reads a YAML or JSON document from disk.
func Load(path string) (*Document, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene %s: %w", path, err)
	}
	doc, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Save writes a YAML or JSON document to disk.
func Save(path string, doc *Document) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	data, err := Encode(doc, format)
	if err != nil {
		return fmt.Errorf("encoding scene: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing scene %s: %w", path, err)
	}
	return nil
}

// Validate checks versions and id uniqueness across the whole document,
// nested subgraphs included.
func (d *Document) Validate() error {
	if d.Version > CurrentVersion {
		return fmt.Errorf("%w: %d", ErrVersion, d.Version)
	}
	nodes := make(map[string]bool)
	comps := make(map[string]bool)
	return validateGraph(d.Graph, nodes, comps)
}

func validateGraph(g GraphDoc, nodes, comps map[string]bool) error {
	for i, n := range g.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: node %d", ErrMissingID, i)
		}
		if nodes[n.ID] {
			return fmt.Errorf("%w: node %q", ErrDuplicateID, n.ID)
		}
		nodes[n.ID] = true
		for j, c := range n.Components {
			if c.ID == "" {
				return fmt.Errorf("%w: component %d of node %q", ErrMissingID, j, n.ID)
			}
			if comps[c.ID] {
				return fmt.Errorf("%w: component %q", ErrDuplicateID, c.ID)
			}
			comps[c.ID] = true
			if c.Graph != nil {
				if err := validateGraph(*c.Graph, nodes, comps); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// NodeCount counts nodes across all subgraphs.
func (d *Document) NodeCount() int {
	return countNodes(d.Graph)
}

func countNodes(g GraphDoc) int {
	n := len(g.Nodes)
	for _, nd := range g.Nodes {
		for _, c := range nd.Components {
			if c.Graph != nil {
				n += countNodes(*c.Graph)
			}
		}
	}
	return n
}
