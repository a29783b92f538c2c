package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/graphview/pkg/config"
	"github.com/vanderheijden86/graphview/pkg/debug"
	"github.com/vanderheijden86/graphview/pkg/event"
	"github.com/vanderheijden86/graphview/pkg/graph"
)

// inspectorEntry is one block of the inspector: a section header or a
// property field with its label.
type inspectorEntry struct {
	header string
	label  string
	field  *PropertyField

	y      int
	height int
}

// Inspector lists a PropertyField for every property of the selected
// components. A vector property gets one field per element. Without a
// component selection the components of the selected nodes are shown.
type Inspector struct {
	sel   Selection
	theme Theme
	cfg   config.FieldConfig
	keys  TreeKeyMap

	entries []inspectorEntry
	fields  []*PropertyField
	focus   int

	viewport viewport.Model

	width      int
	height     int
	labelWidth int
	focused    bool

	subs    event.Group
	mounted bool
}

// NewInspector creates an inspector over the selection manager.
func NewInspector(sel Selection, theme Theme, cfg config.FieldConfig) (*Inspector, error) {
	if sel == nil {
		return nil, ErrNoSelection
	}
	return &Inspector{
		sel:   sel,
		theme: theme,
		cfg:   cfg,
		keys:     DefaultTreeKeyMap(),
		focus:    -1,
		viewport: viewport.New(0, 0),
	}, nil
}

// Mount subscribes to selection changes and builds the fields.
func (in *Inspector) Mount() {
	if in.mounted {
		return
	}
	in.mounted = true
	in.subs.Add(in.sel.OnNodeSelection(func(graph.NodeEvent) { in.rebuild() }))
	in.subs.Add(in.sel.OnComponentSelection(func(graph.ComponentEvent) { in.rebuild() }))
	in.rebuild()
}

// Unmount releases the inspector's and every field's subscriptions.
func (in *Inspector) Unmount() {
	if !in.mounted {
		return
	}
	in.unmountFields()
	in.subs.Release()
	in.mounted = false
}

// Fields returns the mounted fields in display order.
func (in *Inspector) Fields() []*PropertyField {
	return append([]*PropertyField(nil), in.fields...)
}

// FocusedField returns the field holding keyboard focus, or nil.
func (in *Inspector) FocusedField() *PropertyField {
	if in.focus < 0 || in.focus >= len(in.fields) {
		return nil
	}
	return in.fields[in.focus]
}

// SetSize sets the pane dimensions.
func (in *Inspector) SetSize(width, height int) {
	in.width = width
	in.height = height
	in.viewport.Width = width
	in.viewport.Height = height
	in.layout()
}

// SetFocused controls keyboard focus. Losing focus blurs the focused field.
func (in *Inspector) SetFocused(f bool) {
	in.focused = f
	if field := in.FocusedField(); field != nil {
		field.SetFocused(f)
	} else if f && len(in.fields) > 0 {
		in.focusField(0)
	}
}

func (in *Inspector) unmountFields() {
	for _, f := range in.fields {
		f.Unmount()
	}
	in.fields = nil
	in.entries = nil
	in.focus = -1
}

func (in *Inspector) components() []*graph.Component {
	comps := in.sel.SelectedComponents()
	if len(comps) > 0 {
		return comps
	}
	for _, n := range in.sel.SelectedNodes() {
		comps = append(comps, n.Components()...)
	}
	return comps
}

// rebuild replaces every field. Old fields are unmounted before new ones
// are mounted.
func (in *Inspector) rebuild() {
	in.unmountFields()

	for _, c := range in.components() {
		in.entries = append(in.entries, inspectorEntry{
			header: labelWithType(c.Name, typeLabel(c.Type)),
		})
		for _, p := range c.Properties() {
			if !p.IsMulti() {
				in.addField(p, -1, p.Name())
				continue
			}
			for i := 0; i < p.Elements(); i++ {
				in.addField(p, i, p.Name()+"["+strconv.Itoa(i)+"]")
			}
		}
	}

	if in.focused && len(in.fields) > 0 {
		in.focusField(0)
	}
	in.layout()
	in.viewport.GotoTop()
	debug.Log("inspector rebuilt with %d fields", len(in.fields))
}

func (in *Inspector) addField(p *graph.Property, index int, label string) {
	f, err := NewPropertyField(p, index, in.cfg, in.theme)
	if err != nil {
		debug.Log("inspector: %v", err)
		return
	}
	f.Mount()
	in.fields = append(in.fields, f)
	in.entries = append(in.entries, inspectorEntry{label: label, field: f})
}

// layout sizes the fields and assigns each entry its line range.
func (in *Inspector) layout() {
	lw := 8
	for _, e := range in.entries {
		if e.field != nil {
			lw = max(lw, lipgloss.Width(e.label)+2)
		}
	}
	if in.width > 0 {
		lw = min(lw, max(in.width/2, 1))
	}
	in.labelWidth = lw

	valueWidth := in.cfg.Width
	if in.width > 0 {
		valueWidth = max(in.width-lw, 4)
	}

	y := 0
	for i := range in.entries {
		e := &in.entries[i]
		e.y = y
		e.height = 1
		if e.field != nil {
			e.field.SetWidth(valueWidth)
			e.height = lipgloss.Height(e.field.View())
		}
		y += e.height
	}
	in.viewport.SetContent(strings.Join(in.renderLines(), "\n"))
}

func (in *Inspector) entryOf(f *PropertyField) *inspectorEntry {
	for i := range in.entries {
		if in.entries[i].field == f {
			return &in.entries[i]
		}
	}
	return nil
}

func (in *Inspector) entryAt(y int) *inspectorEntry {
	for i := range in.entries {
		e := &in.entries[i]
		if y >= e.y && y < e.y+e.height {
			return e
		}
	}
	return nil
}

func (in *Inspector) focusField(i int) {
	if i == in.focus {
		return
	}
	if old := in.FocusedField(); old != nil {
		old.SetFocused(false)
	}
	in.focus = i
	if f := in.FocusedField(); f != nil {
		f.SetFocused(true)
		in.ensureVisible(f)
	}
}

func (in *Inspector) indexOf(f *PropertyField) int {
	for i, x := range in.fields {
		if x == f {
			return i
		}
	}
	return -1
}

func (in *Inspector) ensureVisible(f *PropertyField) {
	e := in.entryOf(f)
	h := in.viewport.Height
	if e == nil || h <= 0 {
		return
	}
	off := in.viewport.YOffset
	if e.y < off {
		off = e.y
	}
	if bottom := e.y + e.height; bottom > off+h {
		off = bottom - h
	}
	in.viewport.SetYOffset(off)
}

// capturing returns the field that owns the pointer, if any.
func (in *Inspector) capturing() *PropertyField {
	for _, f := range in.fields {
		if f.CapturesPointer() {
			return f
		}
	}
	return nil
}

// CapturesPointer reports whether a field holds the pointer.
func (in *Inspector) CapturesPointer() bool {
	return in.capturing() != nil
}

// CapturesKeys reports whether the focused field is editing text or showing
// its option picker, in which case every key belongs to it.
func (in *Inspector) CapturesKeys() bool {
	f := in.FocusedField()
	return f != nil && (f.State() == FieldEditing || f.PickerOpen())
}

// Update routes input to the fields. Mouse coordinates are relative to the
// inspector's top-left corner.
func (in *Inspector) Update(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case fieldFlashMsg:
		if in.indexOf(msg.field) >= 0 {
			msg.field.Update(msg)
		}

	case tea.BlurMsg:
		if f := in.FocusedField(); f != nil {
			f.Blur()
		}
		for _, f := range in.fields {
			f.Cancel()
		}

	case tea.MouseMsg:
		cmds = append(cmds, in.handleMouse(msg))

	case tea.KeyMsg:
		cmds = append(cmds, in.handleKey(msg))

	default:
		if f := in.FocusedField(); f != nil && f.State() == FieldEditing {
			cmds = append(cmds, f.Update(msg))
		}
	}

	in.layout()
	cmds = append(cmds, in.TakeCmds())
	return tea.Batch(cmds...)
}

// TakeCmds collects the commands scheduled by every field. Notifications
// can reach a field from outside the inspector, so the app drains this
// after every update.
func (in *Inspector) TakeCmds() tea.Cmd {
	var cmds []tea.Cmd
	for _, f := range in.fields {
		if cmd := f.TakeCmds(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return tea.Batch(cmds...)
}

func (in *Inspector) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if f := in.capturing(); f != nil {
		return in.routeMouse(f, msg)
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		in.viewport.LineUp(3)
		return nil
	case tea.MouseButtonWheelDown:
		in.viewport.LineDown(3)
		return nil
	}
	if msg.Action != tea.MouseActionPress {
		return nil
	}

	e := in.entryAt(msg.Y + in.viewport.YOffset)
	if e == nil || e.field == nil {
		// Clicking elsewhere takes focus away from an open edit
		if f := in.FocusedField(); f != nil {
			f.Blur()
		}
		return nil
	}
	in.focusField(in.indexOf(e.field))
	if msg.X < in.labelWidth {
		return nil
	}
	return in.routeMouse(e.field, msg)
}

func (in *Inspector) routeMouse(f *PropertyField, msg tea.MouseMsg) tea.Cmd {
	e := in.entryOf(f)
	if e == nil {
		return nil
	}
	msg.X -= in.labelWidth
	msg.Y -= e.y - in.viewport.YOffset
	return f.HandleMouse(msg)
}

func (in *Inspector) handleKey(msg tea.KeyMsg) tea.Cmd {
	f := in.FocusedField()
	if in.CapturesKeys() {
		return f.Update(msg)
	}
	switch {
	case key.Matches(msg, in.keys.Up):
		if in.focus > 0 {
			in.focusField(in.focus - 1)
		}
		return nil
	case key.Matches(msg, in.keys.Down):
		if in.focus < len(in.fields)-1 {
			in.focusField(in.focus + 1)
		}
		return nil
	}
	if f == nil {
		return nil
	}
	return f.Update(msg)
}

// YOffset returns the first visible content line.
func (in *Inspector) YOffset() int { return in.viewport.YOffset }

// View renders the visible part of the field list.
func (in *Inspector) View() string {
	if len(in.entries) == 0 {
		return in.theme.MutedText.Render("Nothing selected")
	}
	lines := in.renderLines()
	in.viewport.SetContent(strings.Join(lines, "\n"))
	if in.viewport.Height <= 0 {
		return strings.Join(lines, "\n")
	}
	return in.viewport.View()
}

func (in *Inspector) renderLines() []string {
	var lines []string
	for _, e := range in.entries {
		if e.field == nil {
			lines = append(lines, in.theme.Header.Render(truncate(e.header, max(in.width-2, 1))))
			continue
		}
		labelStyle := in.theme.FieldLabel
		if in.focused && e.field == in.FocusedField() {
			labelStyle = labelStyle.Inherit(in.theme.FieldFocus)
		}
		label := labelStyle.Render(padRight(truncate(e.label, in.labelWidth-1), in.labelWidth))
		body := strings.Split(e.field.View(), "\n")
		for j, l := range body {
			if j == 0 {
				lines = append(lines, label+l)
			} else {
				lines = append(lines, strings.Repeat(" ", in.labelWidth)+l)
			}
		}
	}
	return lines
}
