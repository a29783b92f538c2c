package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/graphview/pkg/config"
	"github.com/vanderheijden86/graphview/pkg/graph"
)

type hierarchyFixture struct {
	sys   *graph.System
	sel   *graph.Selection
	view  *HierarchyView
	light *graph.Node
	xform *graph.Component
	group *graph.Node
	sub   *graph.Component
	child *graph.Node
	inner *graph.Node
}

func newHierarchyFixture(t *testing.T) *hierarchyFixture {
	t.Helper()
	f := &hierarchyFixture{sys: graph.NewSystem()}
	f.sel = graph.NewSelection(f.sys)
	t.Cleanup(f.sel.Close)

	f.light = f.sys.CreateNode(nil, "", "Light")
	f.xform = f.sys.AddComponent(f.light, "CTransform", "")
	f.group = f.sys.CreateNode(nil, "NGroup", "Group")
	f.sub = f.sys.AddGraphComponent(f.group, "CGraph", "inner")
	f.child = f.sys.CreateNode(nil, "", "Child")
	if err := f.sys.Link(f.group, f.child); err != nil {
		t.Fatal(err)
	}
	f.inner = f.sys.CreateNode(f.sub.InnerGraph(), "", "InnerNode")

	view, err := NewHierarchyView(f.sel, f.sys, TestTheme(), config.DefaultConfig().Tree)
	if err != nil {
		t.Fatal(err)
	}
	view.SetSize(60, 20)
	now := time.Unix(0, 0)
	view.Tree().SetClock(func() time.Time { return now })
	view.Mount()
	t.Cleanup(view.Unmount)
	f.view = view
	return f
}

// rowY returns the view line of the row with the given identity.
func (f *hierarchyFixture) rowY(t *testing.T, id string) (x, y int) {
	t.Helper()
	for i, r := range f.view.Tree().Rows() {
		if r.ID == id {
			return r.Depth*2 + 3, i + 1
		}
	}
	t.Fatalf("no row for %s", id)
	return 0, 0
}

func headers(rows []*TreeRow[Entity]) string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Header
	}
	return strings.Join(out, "|")
}

func TestHierarchyRequiresSelection(t *testing.T) {
	if _, err := NewHierarchyView(nil, nil, TestTheme(), config.TreeConfig{}); err != ErrNoSelection {
		t.Errorf("expected ErrNoSelection, got %v", err)
	}
}

func TestHierarchyRowsAndHeaders(t *testing.T) {
	f := newHierarchyFixture(t)
	tree := f.view.Tree()

	if got := headers(tree.Rows()); got != "System|Light|Group [Group]" {
		t.Fatalf("unexpected rows %q", got)
	}
	if tree.Rows()[0].ID != f.view.RootID() || tree.Rows()[0].Class != ClassSystem {
		t.Error("root row should carry the shared graph identity and system class")
	}

	tree.SetExpanded(f.group.ID, true)
	tree.SetExpanded(f.light.ID, true)
	want := "System|Light|Transform|Group [Group]|inner [Graph]|Child"
	if got := headers(tree.Rows()); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if row := tree.RowByID(f.sub.ID); row == nil || row.Class != ClassGraphComponent || !row.Leaf {
		t.Error("graph component should be a leaf with the graph-component class")
	}
	if row := tree.RowByID(f.child.ID); row.Parent.ID != f.group.ID || row.Depth != 2 {
		t.Error("linked child should sit under its structural parent")
	}
}

func TestHierarchyMountUnmountSymmetry(t *testing.T) {
	sys := graph.NewSystem()
	sel := graph.NewSelection(sys)
	defer sel.Close()
	baseSys, baseSel := sys.ListenerCount(), sel.ListenerCount()

	view, err := NewHierarchyView(sel, sys, TestTheme(), config.DefaultConfig().Tree)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		view.Mount()
		view.Mount()
		if view.SubscriptionCount() != 6 {
			t.Fatalf("expected 6 subscriptions, got %d", view.SubscriptionCount())
		}
		if sys.ListenerCount() != baseSys+3 || sel.ListenerCount() != baseSel+3 {
			t.Fatalf("unexpected listener counts %d/%d", sys.ListenerCount(), sel.ListenerCount())
		}
		view.Unmount()
		view.Unmount()
		if view.SubscriptionCount() != 0 || sys.ListenerCount() != baseSys || sel.ListenerCount() != baseSel {
			t.Fatalf("unmount leaked listeners: %d/%d/%d", view.SubscriptionCount(), sys.ListenerCount(), sel.ListenerCount())
		}
	}

	// An unmounted view ignores changes
	view.Tree().Rows()
	sys.CreateNode(nil, "", "late")
	if view.Tree().Dirty() {
		t.Error("unmounted view should not observe structure")
	}
}

func TestHierarchySelectionPatchesRows(t *testing.T) {
	f := newHierarchyFixture(t)
	tree := f.view.Tree()
	tree.Rows()
	rebuilds := tree.RebuildCount()

	f.sel.SelectNode(f.light, false)
	if !tree.RowByID(f.light.ID).Selected {
		t.Fatal("selected node row should be marked")
	}
	f.sel.SelectNode(f.group, false)
	if tree.RowByID(f.light.ID).Selected || !tree.RowByID(f.group.ID).Selected {
		t.Error("replacing the selection should move the mark")
	}
	if tree.Dirty() || tree.RebuildCount() != rebuilds {
		t.Error("selection changes should not rebuild the tree")
	}
}

func TestHierarchyStructureInvalidates(t *testing.T) {
	f := newHierarchyFixture(t)
	tree := f.view.Tree()
	tree.Rows()

	n := f.sys.CreateNode(nil, "", "Camera")
	if !tree.Dirty() {
		t.Fatal("node creation should invalidate")
	}
	if tree.RowByID(n.ID) == nil {
		t.Error("new node should appear after the rebuild")
	}

	if err := f.sys.Link(f.light, n); err != nil {
		t.Fatal(err)
	}
	if !tree.Dirty() {
		t.Fatal("link should invalidate")
	}
	if tree.RowByID(n.ID) != nil {
		t.Error("linked node is no longer a root and light is collapsed")
	}

	f.sel.SelectNode(f.light, false)
	f.sys.RemoveNode(f.light)
	if len(f.sel.SelectedNodes()) != 0 {
		t.Error("removed node should leave the selection")
	}
	if tree.RowByID(f.light.ID) != nil {
		t.Error("removed node should leave the tree")
	}
	if tree.RowByID(n.ID) == nil {
		t.Error("orphaned child should become a root")
	}
}

func TestHierarchyClickSelects(t *testing.T) {
	f := newHierarchyFixture(t)

	x, y := f.rowY(t, f.light.ID)
	f.view.Update(press(x, y))
	if !f.sel.IsNodeSelected(f.light) {
		t.Fatal("click should select the node")
	}

	x, y = f.rowY(t, f.group.ID)
	ctrl := press(x, y)
	ctrl.Ctrl = true
	f.view.Update(ctrl)
	if len(f.sel.SelectedNodes()) != 2 {
		t.Errorf("ctrl click should extend the selection, got %d", len(f.sel.SelectedNodes()))
	}

	f.view.Update(ctrl)
	if f.sel.IsNodeSelected(f.group) {
		t.Error("second ctrl click should toggle the node out")
	}

	if got := f.view.SelectionPath(); got != "Light" {
		t.Errorf("unexpected selection path %q", got)
	}

	// Below the last row
	f.view.Update(press(5, 15))
	if len(f.sel.SelectedNodes()) != 0 {
		t.Error("background click should clear the selection")
	}
}

func TestHierarchyDoubleClickEntersSubgraph(t *testing.T) {
	f := newHierarchyFixture(t)
	f.view.Tree().SetExpanded(f.group.ID, true)

	x, y := f.rowY(t, f.sub.ID)
	f.view.Update(press(x, y))
	if !f.sel.IsComponentSelected(f.sub) {
		t.Fatal("first click should select the graph component")
	}
	if got := f.view.SelectionPath(); got != "Group [Group]/inner [Graph]" {
		t.Errorf("unexpected selection path %q", got)
	}
	f.view.Update(press(x, y))

	if f.sel.ActiveGraph() != f.sub.InnerGraph() {
		t.Fatal("double click should activate the subgraph")
	}
	rows := f.view.Tree().Rows()
	if got := headers(rows); got != "CGraph|InnerNode" {
		t.Errorf("unexpected subgraph rows %q", got)
	}
	if rows[0].ID != f.view.RootID() {
		t.Error("graph rows share one identity")
	}
	if f.view.HeaderText() != "inner" {
		t.Errorf("expected header inner, got %q", f.view.HeaderText())
	}

	// Double click on a plain component does nothing
	f.sel.SetActiveGraph(nil)
	f.view.Tree().SetExpanded(f.light.ID, true)
	x, y = f.rowY(t, f.xform.ID)
	f.view.Update(press(x, y))
	f.view.Update(press(x, y))
	if f.sel.ActiveGraph() != f.sys.Root() {
		t.Error("plain component should not change the active graph")
	}
}

func TestHierarchyHeaderButtons(t *testing.T) {
	f := newHierarchyFixture(t)

	_, buttons := f.view.headerLayout()
	if len(buttons) != 0 {
		t.Fatalf("root graph with nothing selected has no buttons, got %d", len(buttons))
	}

	f.sel.SelectComponent(f.sub, false)
	_, buttons = f.view.headerLayout()
	if len(buttons) != 1 || buttons[0].label != "down" {
		t.Fatalf("expected a down button, got %+v", buttons)
	}
	f.view.Update(press(buttons[0].start, 0))
	if f.sel.ActiveGraph() != f.sub.InnerGraph() {
		t.Fatal("down button should enter the subgraph")
	}

	_, buttons = f.view.headerLayout()
	if len(buttons) != 1 || buttons[0].label != "up" {
		t.Fatalf("expected an up button, got %+v", buttons)
	}
	// Presses on the header outside a button are ignored
	f.view.Update(press(0, 0))
	if f.sel.ActiveGraph() != f.sub.InnerGraph() {
		t.Fatal("title press should not navigate")
	}
	f.view.Update(press(buttons[0].end-1, 0))
	if f.sel.ActiveGraph() != f.sys.Root() {
		t.Error("up button should return to the root graph")
	}
	if !f.view.Tree().IsExpanded(f.view.RootID()) {
		t.Error("root row fold state should survive graph switches")
	}
}

func TestHierarchyKeys(t *testing.T) {
	f := newHierarchyFixture(t)

	f.sel.SelectComponent(f.sub, false)
	f.view.Update(keyRunes("d"))
	if f.sel.ActiveGraph() != f.sub.InnerGraph() {
		t.Fatal("d should enter the child graph")
	}
	f.view.Update(keyRunes("u"))
	if f.sel.ActiveGraph() != f.sys.Root() {
		t.Fatal("u should return to the parent graph")
	}

	f.view.Update(keyDown)
	f.view.Update(keyEnter)
	if !f.sel.IsNodeSelected(f.light) {
		t.Fatal("enter should select the cursor row")
	}
	f.view.Update(keyEsc)
	if len(f.sel.SelectedNodes()) != 0 {
		t.Error("esc should clear the selection")
	}
}

func TestHierarchyView(t *testing.T) {
	f := newHierarchyFixture(t)
	f.sel.SelectComponent(f.sub, false)

	out := stripANSI(f.view.View())
	lines := strings.Split(out, "\n")
	if !strings.Contains(lines[0], "System") || !strings.Contains(lines[0], "down") {
		t.Errorf("unexpected header line %q", lines[0])
	}
	if !strings.Contains(out, "Light") {
		t.Error("expected Light in the tree body")
	}
}

func TestTypeLabel(t *testing.T) {
	cases := map[string]string{
		"CTransform": "Transform",
		"NScene":     "Scene",
		"Camera":     "Camera",
		"C":          "C",
		"Cx":         "Cx",
	}
	for in, want := range cases {
		if got := typeLabel(in); got != want {
			t.Errorf("typeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHierarchyFoldStateSurvivesGraphSwap(t *testing.T) {
	f := newHierarchyFixture(t)
	f.view.Tree().SetExpanded(f.group.ID, true)
	if f.view.Tree().RowByID(f.sub.ID) == nil {
		t.Fatal("expanding the group should show its components")
	}

	f.sel.SetActiveGraph(f.sub.InnerGraph())
	if f.view.Tree().RowByID(f.group.ID) != nil {
		t.Fatal("the group is not part of the inner graph")
	}

	f.sel.SetActiveGraph(nil)
	row := f.view.Tree().RowByID(f.group.ID)
	if row == nil || !row.Expanded {
		t.Fatal("group should still be expanded after swapping back")
	}
	if f.view.Tree().RowByID(f.sub.ID) == nil {
		t.Error("group children should be visible again")
	}
	root := f.view.Tree().Rows()[0]
	if root.ID != f.view.RootID() || !root.Expanded {
		t.Errorf("root row should be expanded under the shared identity, got %s expanded=%v", root.ID, root.Expanded)
	}
}
