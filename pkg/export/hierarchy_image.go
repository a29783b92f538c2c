// Package export renders scene hierarchies to static images.
package export

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	svg "github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/graphview/pkg/scene"
)

// ErrEmptyHierarchy is returned when there is nothing to draw.
var ErrEmptyHierarchy = errors.New("no nodes to export")

// ImageOptions controls hierarchy image export.
type ImageOptions struct {
	Path   string // Output path; format inferred from extension when Format empty
	Format string // "svg" or "png" (case-insensitive)
	Title  string // Optional title rendered in the summary block
	Preset string // Layout preset: "compact" (default) or "roomy"
}

// SaveHierarchyImage renders the structural hierarchy of a snapshot as an
// SVG or PNG tree: one box per node, indented by depth, with the selection
// and subgraph owners highlighted.
func SaveHierarchyImage(snap scene.Snapshot, opts ImageOptions) error {
	if len(snap.Nodes) == 0 {
		return ErrEmptyHierarchy
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}

	format, err := imageFormat(opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	layout, err := buildLayout(snap, opts)
	if err != nil {
		return err
	}
	if format == "png" {
		return renderPNG(opts.Path, layout)
	}
	f, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	return renderSVG(f, layout)
}

func imageFormat(opts ImageOptions) (string, error) {
	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		format = strings.ToLower(strings.TrimPrefix(filepath.Ext(opts.Path), "."))
	}
	if format != "svg" && format != "png" {
		return "", fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	return format, nil
}

// --- layout ----------------------------------------------------------------

type nodeKind int

const (
	kindNode nodeKind = iota
	kindRoot
	kindGraphOwner
	kindSelected
)

type layoutNode struct {
	ID     string
	Label  string
	Detail string
	Kind   nodeKind
	Level  int
	X, Y   float64
	NodeW  float64
	NodeH  float64
}

type layoutEdge struct {
	From, To int
}

type layoutResult struct {
	Nodes   []layoutNode
	Edges   []layoutEdge
	Width   int
	Height  int
	Header  float64
	Summary summaryInfo
}

type summaryInfo struct {
	Title      string
	Graph      string
	NodeCount  int
	Components int
	Depth      int
	Selected   int
}

func buildLayout(snap scene.Snapshot, opts ImageOptions) (layoutResult, error) {
	const (
		nodeWCompact  = 190.0
		nodeHCompact  = 46.0
		nodeWRoomy    = 220.0
		nodeHRoomy    = 58.0
		colGapCompact = 36.0
		rowGapCompact = 14.0
		colGapRoomy   = 56.0
		rowGapRoomy   = 24.0
		padding       = 36.0
		headerHeight  = 120.0
	)

	nodeW, nodeH, colGap, rowGap := nodeWCompact, nodeHCompact, colGapCompact, rowGapCompact
	if strings.EqualFold(opts.Preset, "roomy") {
		nodeW, nodeH, colGap, rowGap = nodeWRoomy, nodeHRoomy, colGapRoomy, rowGapRoomy
	}

	selected := make(map[string]bool, len(snap.Selected))
	for _, id := range snap.Selected {
		selected[id] = true
	}

	// Flatten in pre-order so rows read like the tree view
	var nodes []layoutNode
	var edges []layoutEdge
	var walk func(n scene.SnapshotNode, parent int)
	walk = func(n scene.SnapshotNode, parent int) {
		ln := layoutNode{
			ID:     n.ID,
			Label:  truncate(nodeLabel(n), 28),
			Detail: nodeDetail(n),
		}
		switch {
		case selected[n.ID]:
			ln.Kind = kindSelected
		case ownsGraph(n):
			ln.Kind = kindGraphOwner
		case parent < 0:
			ln.Kind = kindRoot
		}
		i := len(nodes)
		nodes = append(nodes, ln)
		if parent >= 0 {
			edges = append(edges, layoutEdge{From: parent, To: i})
		}
		for _, c := range n.Children {
			walk(c, i)
		}
	}
	for _, root := range snap.Nodes {
		walk(root, -1)
	}

	levels, err := levelsOf(len(nodes), edges)
	if err != nil {
		return layoutResult{}, err
	}

	maxLevel := 0
	for i := range nodes {
		nodes[i].Level = levels[i]
		nodes[i].NodeW = nodeW
		nodes[i].NodeH = nodeH
		nodes[i].X = padding + float64(levels[i])*colGap
		nodes[i].Y = padding + headerHeight + float64(i)*(nodeH+rowGap)
		maxLevel = max(maxLevel, levels[i])
	}

	width := max(int(padding*2+float64(maxLevel)*colGap+nodeW), 640)
	height := max(int(padding*2+headerHeight+float64(len(nodes))*(nodeH+rowGap)), 480)

	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = "Scene Hierarchy"
	}
	return layoutResult{
		Nodes:  nodes,
		Edges:  edges,
		Width:  width,
		Height: height,
		Header: headerHeight,
		Summary: summaryInfo{
			Title:      title,
			Graph:      snap.Graph,
			NodeCount:  len(nodes),
			Components: snap.Components,
			Depth:      maxLevel + 1,
			Selected:   len(snap.Selected),
		},
	}, nil
}

// levelsOf assigns each node its longest distance from a root by walking
// the parent-child edges in topological order.
func levelsOf(n int, edges []layoutEdge) ([]int, error) {
	g := simple.NewDirectedGraph()
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(i))
	}
	for _, e := range edges {
		g.SetEdge(g.NewEdge(g.Node(int64(e.From)), g.Node(int64(e.To))))
	}
	sorted, err := topo.Sort(g)
	if err != nil {
		return nil, fmt.Errorf("hierarchy is not a tree: %w", err)
	}

	levels := make([]int, n)
	for _, u := range sorted {
		to := g.From(u.ID())
		for to.Next() {
			v := to.Node().ID()
			levels[v] = max(levels[v], levels[u.ID()]+1)
		}
	}
	return levels, nil
}

func nodeLabel(n scene.SnapshotNode) string {
	if n.Name != "" {
		return n.Name
	}
	return n.Type
}

func nodeDetail(n scene.SnapshotNode) string {
	var types []string
	for _, c := range n.Components {
		types = append(types, c.Type)
	}
	if len(types) == 0 {
		return n.Type
	}
	return truncate(n.Type+" · "+strings.Join(types, ", "), 32)
}

func ownsGraph(n scene.SnapshotNode) bool {
	for _, c := range n.Components {
		if c.Subgraph {
			return true
		}
	}
	return false
}

// --- rendering -------------------------------------------------------------

var (
	colorNode     = color.RGBA{0xe3, 0xf2, 0xfd, 0xff}
	colorRoot     = color.RGBA{0xc8, 0xe6, 0xc9, 0xff}
	colorGraph    = color.RGBA{0xff, 0xf3, 0xe0, 0xff}
	colorSelected = color.RGBA{0xff, 0xcd, 0xd2, 0xff}
	colorStroke   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorEdge     = color.RGBA{0x6b, 0x80, 0xbf, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorLegendBG = color.RGBA{0xee, 0xee, 0xee, 0xff}
)

func kindColor(k nodeKind) color.RGBA {
	switch k {
	case kindRoot:
		return colorRoot
	case kindGraphOwner:
		return colorGraph
	case kindSelected:
		return colorSelected
	}
	return colorNode
}

var legend = []struct {
	kind  nodeKind
	label string
}{
	{kindRoot, "Root"},
	{kindNode, "Child"},
	{kindGraphOwner, "Owns a subgraph"},
	{kindSelected, "Selected"},
}

// elbow returns the connector from a parent's left edge down to a child.
func elbow(from, to layoutNode) (x1, y1, x2, y2, x3 float64) {
	x1 = from.X + 12
	y1 = from.Y + from.NodeH
	y2 = to.Y + to.NodeH/2
	return x1, y1, x1, y2, to.X
}

func summaryLines(s summaryInfo) []string {
	return []string{
		fmt.Sprintf("graph: %s", s.Graph),
		fmt.Sprintf("nodes: %d  components: %d", s.NodeCount, s.Components),
		fmt.Sprintf("depth: %d  selected: %d", s.Depth, s.Selected),
	}
}

func renderPNG(path string, layout layoutResult) error {
	dc := gg.NewContext(layout.Width, layout.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(layout.Width)-32, layout.Header-24, 10)
	dc.Fill()
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetColor(colorText)
	dc.DrawStringAnchored(layout.Summary.Title, 32, 44, 0, 0.5)
	dc.SetColor(colorSubtle)
	for i, line := range summaryLines(layout.Summary) {
		dc.DrawStringAnchored(line, 32, 64+float64(i)*20, 0, 0.5)
	}
	drawLegend(dc, layout)

	dc.SetColor(colorEdge)
	dc.SetLineWidth(1.5)
	for _, e := range layout.Edges {
		x1, y1, x2, y2, x3 := elbow(layout.Nodes[e.From], layout.Nodes[e.To])
		dc.DrawLine(x1, y1, x2, y2)
		dc.DrawLine(x2, y2, x3, y2)
		dc.Stroke()
	}

	for _, n := range layout.Nodes {
		dc.SetColor(kindColor(n.Kind))
		dc.DrawRoundedRectangle(n.X, n.Y, n.NodeW, n.NodeH, 6)
		dc.Fill()
		dc.SetColor(colorStroke)
		dc.SetLineWidth(1.2)
		dc.DrawRoundedRectangle(n.X, n.Y, n.NodeW, n.NodeH, 6)
		dc.Stroke()

		dc.SetColor(colorText)
		dc.DrawStringAnchored(n.Label, n.X+10, n.Y+16, 0, 0.5)
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(n.Detail, n.X+10, n.Y+32, 0, 0.5)
	}

	return dc.SavePNG(path)
}

func drawLegend(dc *gg.Context, layout layoutResult) {
	boxW, boxH := 170.0, 96.0
	x := float64(layout.Width) - boxW - 20
	y := 24.0
	dc.SetColor(colorLegendBG)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Stroke()

	dc.SetColor(colorText)
	dc.DrawStringAnchored("Legend", x+12, y+16, 0, 0.5)
	for i, row := range legend {
		ry := y + 32 + float64(i)*16
		dc.SetColor(kindColor(row.kind))
		dc.DrawRoundedRectangle(x+12, ry-7, 12, 12, 3)
		dc.Fill()
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(row.label, x+32, ry, 0, 0.5)
	}
}

func renderSVG(w io.Writer, layout layoutResult) error {
	canvas := svg.New(w)
	canvas.Start(layout.Width, layout.Height)
	canvas.Rect(0, 0, layout.Width, layout.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, layout.Width-32, int(layout.Header-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))

	canvas.Text(32, 44, layout.Summary.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	for i, line := range summaryLines(layout.Summary) {
		canvas.Text(32, 64+i*20, line, fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
	}

	boxW, boxH := 170, 96
	lx, ly := layout.Width-boxW-20, 24
	canvas.Roundrect(lx, ly, boxW, boxH, 10, 10, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(colorLegendBG), css(colorStroke)))
	canvas.Text(lx+12, ly+18, "Legend", fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
	for i, row := range legend {
		ry := ly + 34 + i*16
		canvas.Roundrect(lx+12, ry-9, 12, 12, 3, 3, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(kindColor(row.kind)), css(colorStroke)))
		canvas.Text(lx+32, ry, row.label, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}

	for _, e := range layout.Edges {
		x1, y1, x2, y2, x3 := elbow(layout.Nodes[e.From], layout.Nodes[e.To])
		canvas.Polyline(
			[]int{int(x1), int(x2), int(x3)},
			[]int{int(y1), int(y2), int(y2)},
			fmt.Sprintf("fill:none;stroke:%s;stroke-width:1.5", css(colorEdge)),
		)
	}

	for _, n := range layout.Nodes {
		x, y := int(n.X), int(n.Y)
		canvas.Group(fmt.Sprintf(`id="node-%s"`, n.ID))
		canvas.Roundrect(x, y, int(n.NodeW), int(n.NodeH), 6, 6,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1.2", css(kindColor(n.Kind)), css(colorStroke)))
		canvas.Text(x+10, y+19, n.Label, fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
		canvas.Text(x+10, y+36, n.Detail, fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", css(colorSubtle)))
		canvas.Gend()
	}

	canvas.End()
	return nil
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
