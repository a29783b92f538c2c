package ui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"pgregory.net/rapid"

	"github.com/vanderheijden86/graphview/pkg/config"
)

// item is a minimal tree entity for exercising TreeModel without a graph.
type item struct {
	id   string
	kids []*item
	leaf bool
}

func (i *item) add(kids ...*item) *item {
	i.kids = append(i.kids, kids...)
	return i
}

type treeProbe struct {
	clicks       []string
	additive     []bool
	doubles      []string
	backgrounds  int
	selected     map[string]bool
	childrenHits int
}

func newTestTree(p *treeProbe) *TreeModel[*item] {
	if p.selected == nil {
		p.selected = make(map[string]bool)
	}
	hooks := TreeHooks[*item]{
		ID: func(i *item) string { return i.id },
		Children: func(i *item) ([]*item, bool) {
			p.childrenHits++
			if i.leaf {
				return nil, false
			}
			return i.kids, true
		},
		RowClass: func(*item) string { return ClassNode },
		Header:   func(i *item) string { return strings.ToUpper(i.id) },
		Selected: func(i *item) bool { return p.selected[i.id] },
		OnRowClick: func(i *item, mods Modifiers) {
			p.clicks = append(p.clicks, i.id)
			p.additive = append(p.additive, mods.Ctrl)
		},
		OnRowDoubleClick:  func(i *item) { p.doubles = append(p.doubles, i.id) },
		OnBackgroundClick: func() { p.backgrounds++ },
	}
	return NewTreeModel(hooks, TestTheme(), config.DefaultConfig().Tree)
}

func rowIDs[E any](rows []*TreeRow[E]) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}

func sampleTree() *item {
	return (&item{id: "root"}).add(
		(&item{id: "a"}).add(&item{id: "a1", leaf: true}, &item{id: "a2", leaf: true}),
		&item{id: "b", leaf: true},
	)
}

func TestTreeRootStartsExpanded(t *testing.T) {
	tree := newTestTree(&treeProbe{})
	tree.SetRoot(sampleTree())

	got := strings.Join(rowIDs(tree.Rows()), ",")
	if got != "root,a,b" {
		t.Fatalf("expected root,a,b got %s", got)
	}
	rows := tree.Rows()
	if rows[1].Depth != 1 || rows[1].Parent != rows[0] {
		t.Errorf("expected a at depth 1 under root, got depth %d", rows[1].Depth)
	}
	if !rows[2].Leaf || rows[1].Leaf {
		t.Error("leaf flags wrong")
	}
	if rows[1].Header != "A" || rows[1].Class != ClassNode {
		t.Errorf("unexpected header/class %q/%q", rows[1].Header, rows[1].Class)
	}
}

func TestTreeRebuildIsLazyAndRecyclesRows(t *testing.T) {
	tree := newTestTree(&treeProbe{})
	tree.SetRoot(sampleTree())

	first := tree.RowByID("a")
	if tree.RebuildCount() != 1 {
		t.Fatalf("expected 1 rebuild, got %d", tree.RebuildCount())
	}

	tree.Invalidate()
	tree.Invalidate()
	if !tree.Dirty() {
		t.Fatal("expected pending rebuild")
	}
	if tree.RowByID("a") != first {
		t.Error("expected the row for a to be reused across rebuilds")
	}
	if tree.RebuildCount() != 2 {
		t.Errorf("invalidations should coalesce into one rebuild, got %d", tree.RebuildCount())
	}
	tree.Rows()
	if tree.RebuildCount() != 2 {
		t.Errorf("clean tree should not rebuild, got %d", tree.RebuildCount())
	}
}

func TestTreeExpansionSurvivesRebuild(t *testing.T) {
	tree := newTestTree(&treeProbe{})
	tree.SetRoot(sampleTree())

	tree.SetExpanded("a", true)
	if got := strings.Join(rowIDs(tree.Rows()), ","); got != "root,a,a1,a2,b" {
		t.Fatalf("expected a expanded, got %s", got)
	}

	// Fresh entities with the same identities keep their fold state
	tree.SetRoot(sampleTree())
	if got := strings.Join(rowIDs(tree.Rows()), ","); got != "root,a,a1,a2,b" {
		t.Errorf("expected fold state to persist, got %s", got)
	}

	// An identity that vanishes and comes back remembers its state
	root := sampleTree()
	a := root.kids[0]
	root.kids = root.kids[1:]
	tree.SetRoot(root)
	if got := strings.Join(rowIDs(tree.Rows()), ","); got != "root,b" {
		t.Fatalf("expected a removed, got %s", got)
	}
	// a's entry stays behind even though no row carries it
	if got := tree.ExpandedCount(); got != 2 || !tree.IsExpanded("a") {
		t.Errorf("expected root and a recorded, got %d entries", got)
	}
	root.kids = append(root.kids, a)
	tree.Invalidate()
	if got := strings.Join(rowIDs(tree.Rows()), ","); got != "root,b,a,a1,a2" {
		t.Errorf("expected a to return expanded, got %s", got)
	}

	// Explicit collapse of the root is remembered too
	tree.SetExpanded("root", false)
	tree.SetRoot(sampleTree())
	if got := len(tree.Rows()); got != 1 {
		t.Errorf("expected collapsed root, got %d rows", got)
	}
}

func TestTreeToggleMarginClick(t *testing.T) {
	p := &treeProbe{}
	tree := newTestTree(p)
	tree.SetRoot(sampleTree())

	// Row 1 is "a" at depth 1: indent 2, toggle cells 2..3
	tree.HandleMouse(press(2, 1))
	if !tree.IsExpanded("a") {
		t.Fatal("press inside the toggle margin should expand")
	}
	if len(p.clicks) != 0 {
		t.Error("toggle should not count as a row click")
	}

	tree.HandleMouse(press(3, 1))
	if tree.IsExpanded("a") {
		t.Error("second toggle should collapse")
	}

	tree.HandleMouse(press(4, 1))
	if len(p.clicks) != 1 || p.clicks[0] != "a" {
		t.Errorf("expected a row click on a, got %v", p.clicks)
	}

	// A leaf has no toggle affordance
	tree.HandleMouse(press(2, 2))
	if len(p.clicks) != 2 || p.clicks[1] != "b" {
		t.Errorf("expected a row click on leaf b, got %v", p.clicks)
	}

	// Ctrl marks the click additive
	tree.HandleMouse(tea.MouseMsg{X: 5, Y: 2, Ctrl: true, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if !p.additive[2] {
		t.Error("ctrl click should be additive")
	}
}

func TestTreeDoubleClick(t *testing.T) {
	p := &treeProbe{}
	tree := newTestTree(p)
	now := time.Unix(1000, 0)
	tree.SetClock(func() time.Time { return now })
	tree.SetRoot(sampleTree())

	tree.HandleMouse(press(5, 1))
	now = now.Add(200 * time.Millisecond)
	tree.HandleMouse(press(5, 1))
	if len(p.doubles) != 1 || p.doubles[0] != "a" {
		t.Fatalf("expected a double click on a, got %v", p.doubles)
	}
	if len(p.clicks) != 2 {
		t.Errorf("both presses should be row clicks, got %d", len(p.clicks))
	}

	// A third press starts a new pair
	now = now.Add(100 * time.Millisecond)
	tree.HandleMouse(press(5, 1))
	if len(p.doubles) != 1 {
		t.Errorf("third press should not double click, got %v", p.doubles)
	}

	// Too slow
	now = now.Add(time.Second)
	tree.HandleMouse(press(5, 1))
	if len(p.doubles) != 1 {
		t.Errorf("slow pair should not double click, got %v", p.doubles)
	}

	// Different rows
	now = now.Add(50 * time.Millisecond)
	tree.HandleMouse(press(5, 2))
	if len(p.doubles) != 1 {
		t.Errorf("clicks on different rows should not double click, got %v", p.doubles)
	}
}

func TestTreeBackgroundClick(t *testing.T) {
	p := &treeProbe{}
	tree := newTestTree(p)
	tree.SetRoot(sampleTree())

	tree.HandleMouse(press(3, 10))
	if p.backgrounds != 1 {
		t.Errorf("press below the rows should be a background click, got %d", p.backgrounds)
	}

	// Left of a nested row's indent
	tree.HandleMouse(press(0, 1))
	if p.backgrounds != 2 {
		t.Errorf("press in the indent should be a background click, got %d", p.backgrounds)
	}

	// Releases and motion are ignored
	tree.HandleMouse(release(3, 10))
	tree.HandleMouse(motion(3, 10))
	if p.backgrounds != 2 || len(p.clicks) != 0 {
		t.Errorf("only presses should click, got %d/%d", p.backgrounds, len(p.clicks))
	}
}

func TestTreeSetRowSelectedPatchesWithoutRebuild(t *testing.T) {
	p := &treeProbe{}
	tree := newTestTree(p)
	tree.SetRoot(sampleTree())
	tree.Rows()
	rebuilds := tree.RebuildCount()
	hits := p.childrenHits

	if !tree.SetRowSelected("b", true) {
		t.Fatal("expected b to be patched")
	}
	if !tree.RowByID("b").Selected {
		t.Error("row b should be selected")
	}
	if tree.SetRowSelected("a1", true) {
		t.Error("collapsed rows are not built and cannot be patched")
	}
	if tree.RebuildCount() != rebuilds || p.childrenHits != hits {
		t.Error("selection patch should not rebuild")
	}

	// A rebuild re-reads the selected flag from the hooks
	p.selected["a"] = true
	tree.Invalidate()
	if !tree.RowByID("a").Selected || tree.RowByID("b").Selected {
		t.Error("rebuild should take selection from the hook")
	}
}

func TestTreeCycleGuard(t *testing.T) {
	tree := newTestTree(&treeProbe{})
	a := &item{id: "a"}
	b := &item{id: "b"}
	a.add(b)
	b.add(a)
	root := (&item{id: "root"}).add(a)

	tree.SetExpanded("a", true)
	tree.SetExpanded("b", true)
	tree.SetRoot(root)

	rows := tree.Rows()
	if got := strings.Join(rowIDs(rows), ","); got != "root,a,b,a" {
		t.Fatalf("expected the cycle to stop after one repeat, got %s", got)
	}
	last := rows[len(rows)-1]
	if !last.Leaf || !strings.HasSuffix(last.Header, "(cycle)") {
		t.Errorf("repeated row should be a marked leaf, got leaf=%v header=%q", last.Leaf, last.Header)
	}
	if tree.RowByID("a") != rows[1] {
		t.Error("identity lookup should return the first occurrence")
	}
}

func TestTreeKeyboardNavigation(t *testing.T) {
	p := &treeProbe{}
	tree := newTestTree(p)
	tree.SetRoot(sampleTree())
	keys := DefaultTreeKeyMap()

	tree.HandleKey(keyDown, keys)
	if tree.CursorRow().ID != "a" {
		t.Fatalf("expected cursor on a, got %s", tree.CursorRow().ID)
	}
	tree.HandleKey(tea.KeyMsg{Type: tea.KeyRight}, keys)
	if !tree.IsExpanded("a") {
		t.Fatal("right should expand")
	}
	tree.HandleKey(keyDown, keys)
	if tree.CursorRow().ID != "a1" {
		t.Fatalf("expected cursor on a1, got %s", tree.CursorRow().ID)
	}
	tree.HandleKey(tea.KeyMsg{Type: tea.KeyLeft}, keys)
	if tree.CursorRow().ID != "a" {
		t.Errorf("left on a leaf should move to the parent, got %s", tree.CursorRow().ID)
	}
	tree.HandleKey(keyEnter, keys)
	if len(p.clicks) != 1 || p.clicks[0] != "a" {
		t.Errorf("enter should click the cursor row, got %v", p.clicks)
	}
	tree.HandleKey(keyRunes("o"), keys)
	if len(p.doubles) != 1 {
		t.Errorf("o should activate the cursor row, got %v", p.doubles)
	}
	if tree.HandleKey(keyRunes("z"), keys) {
		t.Error("unbound key should not be consumed")
	}

	// The cursor follows its identity across rebuilds
	root := sampleTree()
	root.kids = append([]*item{{id: "new", leaf: true}}, root.kids...)
	tree.SetRoot(root)
	if tree.CursorRow().ID != "a" {
		t.Errorf("cursor should stay on a, got %s", tree.CursorRow().ID)
	}
}

func TestTreeViewRendersHeaders(t *testing.T) {
	tree := newTestTree(&treeProbe{})
	tree.SetSize(30, 10)
	tree.SetRoot(sampleTree())

	out := stripANSI(tree.View())
	lines := strings.Split(out, "\n")
	if !strings.Contains(lines[0], "▾") || !strings.Contains(lines[0], "ROOT") {
		t.Errorf("expected expanded root line, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "▸") || !strings.Contains(lines[1], "A") {
		t.Errorf("expected collapsed a, got %q", lines[1])
	}
}

// genTree draws a random tree with unique identities.
func genTree(rt *rapid.T) *item {
	next := 0
	var build func(depth int) *item
	build = func(depth int) *item {
		it := &item{id: fmt.Sprintf("n%d", next)}
		next++
		if depth >= 3 {
			it.leaf = rapid.Bool().Draw(rt, "leaf")
			return it
		}
		n := rapid.IntRange(0, 3).Draw(rt, "kids")
		for i := 0; i < n; i++ {
			it.kids = append(it.kids, build(depth+1))
		}
		return it
	}
	return build(0)
}

func TestTreeRowsMatchExpansionProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		root := genTree(rt)
		tree := newTestTree(&treeProbe{})

		var all []*item
		var walk func(*item)
		walk = func(i *item) {
			all = append(all, i)
			for _, k := range i.kids {
				walk(k)
			}
		}
		walk(root)
		for _, it := range all {
			if rapid.Bool().Draw(rt, "expand "+it.id) {
				tree.SetExpanded(it.id, true)
			}
		}
		tree.SetRoot(root)

		var want []string
		var visible func(*item)
		visible = func(i *item) {
			want = append(want, i.id)
			if i.leaf || !tree.IsExpanded(i.id) {
				return
			}
			for _, k := range i.kids {
				visible(k)
			}
		}
		visible(root)

		rows := tree.Rows()
		if got := strings.Join(rowIDs(rows), ","); got != strings.Join(want, ",") {
			rt.Fatalf("rows %s, want %s", got, strings.Join(want, ","))
		}
		for _, r := range rows {
			if r.Parent != nil && (r.Depth != r.Parent.Depth+1 || !r.Parent.Expanded) {
				rt.Fatalf("row %s has inconsistent parent", r.ID)
			}
		}
	})
}
