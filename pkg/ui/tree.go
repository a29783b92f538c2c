package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/graphview/pkg/config"
	"github.com/vanderheijden86/graphview/pkg/debug"
	"github.com/vanderheijden86/graphview/pkg/metrics"
)

// Modifiers captures the modifier keys held during a pointer event.
type Modifiers struct {
	Ctrl  bool
	Shift bool
	Alt   bool
}

func modifiersOf(msg tea.MouseMsg) Modifiers {
	return Modifiers{Ctrl: msg.Ctrl, Shift: msg.Shift, Alt: msg.Alt}
}

// TreeHooks supply entity-specific behavior to a TreeModel. ID, Children,
// RowClass and Header are required; the click hooks are optional.
//
// Children returns ok=false for a leaf. A leaf has no toggle affordance even
// when its kind usually has children.
type TreeHooks[E any] struct {
	ID       func(E) string
	Children func(E) (children []E, ok bool)
	RowClass func(E) string
	Header   func(E) string
	Selected func(E) bool

	OnRowClick        func(E, Modifiers)
	OnRowDoubleClick  func(E)
	OnBackgroundClick func()
}

// TreeRow is one row of the rendered tree.
type TreeRow[E any] struct {
	Entity   E
	ID       string
	Depth    int
	Leaf     bool
	Expanded bool
	Selected bool
	Class    string
	Header   string
	Parent   *TreeRow[E]
	Children []*TreeRow[E]
}

// TreeModel renders a hierarchy through TreeHooks and keeps fold state
// keyed by identity. It never observes the data source: the owner calls
// Invalidate when the shape may have changed and SetRowSelected for
// selection-only changes.
type TreeModel[E any] struct {
	hooks TreeHooks[E]
	theme Theme
	cfg   config.TreeConfig

	root    E
	hasRoot bool

	// expanded holds fold state by identity. A false entry records an
	// explicit collapse. Entries for vanished identities are kept.
	expanded map[string]bool

	rows     []*TreeRow[E] // visible rows in display order
	byID     map[string]*TreeRow[E]
	dirty    bool
	rebuilds int

	cursor   int
	cursorID string
	focused  bool

	viewport viewport.Model
	width    int
	height   int

	now         func() time.Time
	lastClickID string
	lastClickAt time.Time
}

// NewTreeModel creates an empty tree.
func NewTreeModel[E any](hooks TreeHooks[E], theme Theme, cfg config.TreeConfig) *TreeModel[E] {
	if cfg.IndentWidth < 1 {
		cfg.IndentWidth = 2
	}
	return &TreeModel[E]{
		hooks:    hooks,
		theme:    theme,
		cfg:      cfg,
		expanded: make(map[string]bool),
		byID:     make(map[string]*TreeRow[E]),
		viewport: viewport.New(0, 0),
		now:      time.Now,
	}
}

// SetClock replaces the time source used for double-click detection.
func (t *TreeModel[E]) SetClock(now func() time.Time) {
	t.now = now
}

// SetSize updates the available dimensions for the tree body.
func (t *TreeModel[E]) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.viewport.Width = width
	t.viewport.Height = height
}

// SetFocused controls whether the cursor row is highlighted.
func (t *TreeModel[E]) SetFocused(f bool) { t.focused = f }

// SetRoot replaces the root entity. A root seen for the first time starts
// expanded; a known root keeps its fold state.
func (t *TreeModel[E]) SetRoot(e E) {
	t.root = e
	t.hasRoot = true
	id := t.hooks.ID(e)
	if _, seen := t.expanded[id]; !seen {
		t.expanded[id] = true
	}
	t.Invalidate()
}

// Root returns the root entity.
func (t *TreeModel[E]) Root() E { return t.root }

// Invalidate schedules a full rebuild before the next read or render.
func (t *TreeModel[E]) Invalidate() {
	t.dirty = true
}

// Dirty reports whether a rebuild is pending.
func (t *TreeModel[E]) Dirty() bool { return t.dirty }

// RebuildCount returns how many full rebuilds have run.
func (t *TreeModel[E]) RebuildCount() int { return t.rebuilds }

// IsExpanded reports whether id is in the expanded set.
func (t *TreeModel[E]) IsExpanded(id string) bool { return t.expanded[id] }

// SetExpanded sets the fold state for id.
func (t *TreeModel[E]) SetExpanded(id string, expanded bool) {
	if t.expanded[id] == expanded {
		return
	}
	t.expanded[id] = expanded
	t.Invalidate()
}

// ToggleExpanded flips the fold state of e.
func (t *TreeModel[E]) ToggleExpanded(e E) {
	id := t.hooks.ID(e)
	t.SetExpanded(id, !t.expanded[id])
}

// ExpandedCount returns the number of identities with recorded fold state.
// Entries outlive their rows, so the count never shrinks on rebuild.
func (t *TreeModel[E]) ExpandedCount() int { return len(t.expanded) }

// SetRowSelected patches the selected flag of the row with the given
// identity without rebuilding. Returns false when no such row is built.
func (t *TreeModel[E]) SetRowSelected(id string, selected bool) bool {
	row := t.byID[id]
	if row == nil {
		return false
	}
	row.Selected = selected
	return true
}

// Rows returns the visible rows in display order, rebuilding if needed.
func (t *TreeModel[E]) Rows() []*TreeRow[E] {
	t.ensureBuilt()
	return t.rows
}

// RowByID returns the built row for an identity, or nil.
func (t *TreeModel[E]) RowByID(id string) *TreeRow[E] {
	t.ensureBuilt()
	return t.byID[id]
}

// CursorRow returns the row under the keyboard cursor, or nil.
func (t *TreeModel[E]) CursorRow() *TreeRow[E] {
	t.ensureBuilt()
	if t.cursor < 0 || t.cursor >= len(t.rows) {
		return nil
	}
	return t.rows[t.cursor]
}

func (t *TreeModel[E]) ensureBuilt() {
	if t.dirty {
		t.rebuild()
	}
}

func (t *TreeModel[E]) rebuild() {
	defer metrics.Timer(metrics.TreeRebuild)()

	prev := t.byID
	t.byID = make(map[string]*TreeRow[E], len(prev))
	t.rows = t.rows[:0]
	t.dirty = false
	t.rebuilds++

	if t.hasRoot {
		onPath := make(map[string]bool)
		t.buildRow(t.root, 0, nil, prev, onPath)
	}

	// Keep the cursor on the same identity when it survived
	if idx := t.indexOf(t.cursorID); idx >= 0 {
		t.cursor = idx
	} else {
		t.cursor = clampInt(t.cursor, 0, max(len(t.rows)-1, 0))
		t.syncCursorID()
	}
	debug.Log("tree rebuild #%d: %d rows, %d fold entries", t.rebuilds, len(t.rows), len(t.expanded))
}

func (t *TreeModel[E]) buildRow(e E, depth int, parent *TreeRow[E], prev map[string]*TreeRow[E], onPath map[string]bool) *TreeRow[E] {
	id := t.hooks.ID(e)

	row, ok := prev[id]
	if ok && t.byID[id] == nil {
		metrics.RowsRecycled.Inc()
		*row = TreeRow[E]{}
	} else {
		metrics.RowsCreated.Inc()
		row = &TreeRow[E]{}
	}
	row.Entity = e
	row.ID = id
	row.Depth = depth
	row.Parent = parent
	row.Class = t.hooks.RowClass(e)
	row.Header = t.hooks.Header(e)
	if t.hooks.Selected != nil {
		row.Selected = t.hooks.Selected(e)
	}

	if t.byID[id] == nil {
		t.byID[id] = row
	}
	t.rows = append(t.rows, row)

	children, hasChildren := t.hooks.Children(e)
	row.Leaf = !hasChildren
	if onPath[id] {
		// Cycle detection
		row.Leaf = true
		row.Header += " (cycle)"
		return row
	}
	row.Expanded = hasChildren && t.expanded[id]
	if !row.Expanded {
		return row
	}

	onPath[id] = true
	for _, child := range children {
		row.Children = append(row.Children, t.buildRow(child, depth+1, row, prev, onPath))
	}
	delete(onPath, id)
	return row
}

func (t *TreeModel[E]) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, r := range t.rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (t *TreeModel[E]) syncCursorID() {
	if t.cursor >= 0 && t.cursor < len(t.rows) {
		t.cursorID = t.rows[t.cursor].ID
	} else {
		t.cursorID = ""
	}
}

// indentOf returns the column of the row's left edge.
func (t *TreeModel[E]) indentOf(row *TreeRow[E]) int {
	return row.Depth * t.cfg.IndentWidth
}

// HandleMouse processes a pointer event in tree-body coordinates.
func (t *TreeModel[E]) HandleMouse(msg tea.MouseMsg) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		t.viewport.LineUp(3)
		return
	case tea.MouseButtonWheelDown:
		t.viewport.LineDown(3)
		return
	case tea.MouseButtonLeft:
	default:
		return
	}
	if msg.Action != tea.MouseActionPress {
		return
	}

	t.ensureBuilt()
	idx := msg.Y + t.viewport.YOffset
	if msg.Y < 0 || idx < 0 || idx >= len(t.rows) {
		t.backgroundClick()
		return
	}
	row := t.rows[idx]
	offset := msg.X - t.indentOf(row)
	if offset < 0 {
		t.backgroundClick()
		return
	}

	t.cursor = idx
	t.syncCursorID()

	if !row.Leaf && offset < t.cfg.ToggleMargin {
		t.ToggleExpanded(row.Entity)
		return
	}
	t.rowClick(row, modifiersOf(msg))
}

func (t *TreeModel[E]) backgroundClick() {
	t.lastClickID = ""
	if t.hooks.OnBackgroundClick != nil {
		t.hooks.OnBackgroundClick()
	}
}

func (t *TreeModel[E]) rowClick(row *TreeRow[E], mods Modifiers) {
	now := t.now()
	double := row.ID == t.lastClickID && now.Sub(t.lastClickAt) <= t.cfg.DoubleClick()

	// The row may be rebuilt by the click hook, so capture the entity first
	e := row.Entity
	if t.hooks.OnRowClick != nil {
		t.hooks.OnRowClick(e, mods)
	}
	if double {
		t.lastClickID = ""
		if t.hooks.OnRowDoubleClick != nil {
			t.hooks.OnRowDoubleClick(e)
		}
		return
	}
	t.lastClickID = row.ID
	t.lastClickAt = now
}

// HandleKey processes navigation keys. Returns true when the key was used.
func (t *TreeModel[E]) HandleKey(msg tea.KeyMsg, keys TreeKeyMap) bool {
	t.ensureBuilt()
	switch {
	case key.Matches(msg, keys.Up):
		t.moveCursor(-1)
	case key.Matches(msg, keys.Down):
		t.moveCursor(1)
	case key.Matches(msg, keys.Top):
		t.moveCursor(-len(t.rows))
	case key.Matches(msg, keys.Bottom):
		t.moveCursor(len(t.rows))
	case key.Matches(msg, keys.Expand):
		if row := t.CursorRow(); row != nil && !row.Leaf {
			t.SetExpanded(row.ID, true)
		}
	case key.Matches(msg, keys.Collapse):
		row := t.CursorRow()
		if row == nil {
			return true
		}
		if row.Expanded {
			t.SetExpanded(row.ID, false)
		} else if row.Parent != nil {
			t.cursorID = row.Parent.ID
			t.cursor = t.indexOf(row.Parent.ID)
			t.ensureCursorVisible()
		}
	case key.Matches(msg, keys.Select):
		if row := t.CursorRow(); row != nil && t.hooks.OnRowClick != nil {
			t.hooks.OnRowClick(row.Entity, Modifiers{})
		}
	case key.Matches(msg, keys.AddSelect):
		if row := t.CursorRow(); row != nil && t.hooks.OnRowClick != nil {
			t.hooks.OnRowClick(row.Entity, Modifiers{Ctrl: true})
		}
	case key.Matches(msg, keys.Activate):
		if row := t.CursorRow(); row != nil && t.hooks.OnRowDoubleClick != nil {
			t.hooks.OnRowDoubleClick(row.Entity)
		}
	default:
		return false
	}
	return true
}

func (t *TreeModel[E]) moveCursor(delta int) {
	if len(t.rows) == 0 {
		return
	}
	t.cursor = clampInt(t.cursor+delta, 0, len(t.rows)-1)
	t.syncCursorID()
	t.ensureCursorVisible()
}

// ensureCursorVisible scrolls just enough to keep the cursor row on screen.
func (t *TreeModel[E]) ensureCursorVisible() {
	h := t.viewport.Height
	if h <= 0 {
		return
	}
	off := t.viewport.YOffset
	if t.cursor < off {
		off = t.cursor
	}
	if t.cursor >= off+h {
		off = t.cursor - h + 1
	}
	t.viewport.SetYOffset(off)
}

// View renders the visible window of rows.
func (t *TreeModel[E]) View() string {
	t.ensureBuilt()
	defer metrics.Timer(metrics.TreeRender)()

	lines := make([]string, len(t.rows))
	for i, row := range t.rows {
		lines[i] = t.renderRow(row, t.focused && i == t.cursor)
	}
	t.viewport.SetContent(strings.Join(lines, "\n"))
	if t.viewport.Height <= 0 {
		return strings.Join(lines, "\n")
	}
	return t.viewport.View()
}

func (t *TreeModel[E]) renderRow(row *TreeRow[E], isCursor bool) string {
	width := t.width
	if width <= 0 {
		width = 40
	}
	indent := strings.Repeat(" ", t.indentOf(row))

	glyph := " "
	switch {
	case row.Leaf:
	case row.Expanded:
		glyph = "▾"
	default:
		glyph = "▸"
	}
	toggle := padRight(glyph, max(t.cfg.ToggleMargin, 1))

	avail := width - len(indent) - max(t.cfg.ToggleMargin, 1)
	header := truncate(row.Header, avail)

	style := t.theme.RowStyle(row.Class)
	if row.Selected {
		style = t.theme.Selected
	}
	line := indent + t.theme.Toggle.Render(toggle) + style.Render(padRight(header, max(avail, 0)))
	if isCursor {
		line = t.theme.Cursor.Render(indent+toggle) + style.Render(padRight(header, max(avail, 0)))
	}
	return line
}
