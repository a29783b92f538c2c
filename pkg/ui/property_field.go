package ui

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/graphview/pkg/config"
	"github.com/vanderheijden86/graphview/pkg/debug"
	"github.com/vanderheijden86/graphview/pkg/event"
	"github.com/vanderheijden86/graphview/pkg/graph"
	"github.com/vanderheijden86/graphview/pkg/metrics"
)

// ErrNoProperty is returned when a field is built without a property.
var ErrNoProperty = errors.New("property field requires a property")

// PropertyCell is the value cell a PropertyField binds to.
type PropertyCell interface {
	Name() string
	Type() graph.PropertyType
	Schema() graph.Schema
	Value() any
	SetValue(v any)
	Set()
	Reset()
	Changed() bool
	IsInput() bool
	IsEvent() bool
	HasInLinks(index int) bool
	HasOutLinks(index int) bool
	ValidatedValue() int
	OptionText() string
	String() string

	OnValue(fn func()) event.Subscription
	OnChange(fn func()) event.Subscription
}

// FieldState is the interaction state of a PropertyField.
type FieldState int

const (
	FieldIdle FieldState = iota
	FieldArmed
	FieldDragging
	FieldEditing
)

func (s FieldState) String() string {
	switch s {
	case FieldIdle:
		return "idle"
	case FieldArmed:
		return "armed"
	case FieldDragging:
		return "dragging"
	case FieldEditing:
		return "editing"
	}
	return "unknown"
}

// FieldClasses is the presentation classification derived from the cell's
// metadata on every refresh.
type FieldClasses struct {
	Input  bool
	Output bool
	Linked bool
	Event  bool
	Option bool
}

// fieldFlashMsg clears the event highlight of a field. Stale messages from
// an earlier flash carry an old sequence number and are ignored.
type fieldFlashMsg struct {
	field *PropertyField
	seq   int
}

// PropertyField edits one property, or one element of a vector property,
// by click, drag, inline text entry or option picker.
type PropertyField struct {
	cell  PropertyCell
	index int
	cfg   config.FieldConfig
	theme Theme
	keys  FieldKeyMap
	width int

	state      FieldState
	pressed    bool
	startX     int
	startY     int
	startValue float64

	value   any
	text    string
	hasBar  bool
	barFill float64
	classes FieldClasses
	title   string

	input  textinput.Model
	picker *OptionPicker

	flashing bool
	flashSeq int
	pending  []tea.Cmd

	subs    event.Group
	mounted bool
	focused bool
}

// NewPropertyField creates a field bound to cell. A negative index binds
// the whole value; otherwise the field edits that element of a vector.
func NewPropertyField(cell PropertyCell, index int, cfg config.FieldConfig, theme Theme) (*PropertyField, error) {
	if cell == nil {
		return nil, ErrNoProperty
	}
	if p, ok := cell.(*graph.Property); ok && p == nil {
		return nil, ErrNoProperty
	}
	if index < 0 {
		index = -1
	}
	f := &PropertyField{
		cell:  cell,
		index: index,
		cfg:   cfg,
		theme: theme,
		keys:  DefaultFieldKeyMap(),
		width: max(cfg.Width, 1),
	}
	f.refreshMeta()
	return f, nil
}

// Mount subscribes to the cell's notifications.
func (f *PropertyField) Mount() {
	if f.mounted {
		return
	}
	f.mounted = true
	metrics.FieldsMounted.Inc()
	f.subs.Add(f.cell.OnValue(f.onValue))
	f.subs.Add(f.cell.OnChange(f.refreshMeta))
	f.refreshMeta()
}

// Unmount releases the subscriptions. An open edit or picker is discarded
// without writing.
func (f *PropertyField) Unmount() {
	if !f.mounted {
		return
	}
	if f.state == FieldEditing {
		f.input.Blur()
	}
	f.state = FieldIdle
	f.pressed = false
	f.picker = nil
	f.subs.Release()
	f.mounted = false
}

// Mounted reports whether the field holds its subscriptions.
func (f *PropertyField) Mounted() bool { return f.mounted }

// Cell returns the bound property.
func (f *PropertyField) Cell() PropertyCell { return f.cell }

// Index returns the bound vector element, or -1 for the whole value.
func (f *PropertyField) Index() int { return f.index }

// State returns the interaction state.
func (f *PropertyField) State() FieldState { return f.state }

// Text returns the displayed value text.
func (f *PropertyField) Text() string { return f.text }

// Title returns Component.property, with [index] for an element field.
func (f *PropertyField) Title() string { return f.title }

// Classes returns the current style classes.
func (f *PropertyField) Classes() FieldClasses { return f.classes }

// Flashing reports whether an event highlight is showing.
func (f *PropertyField) Flashing() bool { return f.flashing }

// PickerOpen reports whether the option picker is showing.
func (f *PropertyField) PickerOpen() bool { return f.picker != nil }

// Width returns the value cell width in cells.
func (f *PropertyField) Width() int { return f.width }

// BarFill returns the bar fill percentage and whether the field has a bar.
func (f *PropertyField) BarFill() (float64, bool) { return f.barFill, f.hasBar }

// EditText returns the contents of the edit box while editing.
func (f *PropertyField) EditText() string {
	if f.state != FieldEditing {
		return ""
	}
	return f.input.Value()
}

// SetEditText replaces the contents of the edit box while editing.
func (f *PropertyField) SetEditText(s string) {
	if f.state == FieldEditing {
		f.input.SetValue(s)
	}
}

// SetWidth sets the width of the value cell in terminal cells.
func (f *PropertyField) SetWidth(w int) {
	f.width = max(w, 1)
	f.input.Width = max(f.width-1, 1)
}

// SetFocused moves keyboard focus. Losing focus commits an open edit.
func (f *PropertyField) SetFocused(focused bool) {
	if f.focused && !focused {
		f.Blur()
	}
	f.focused = focused
}

// CapturesPointer reports whether the field must receive every pointer
// event regardless of position.
func (f *PropertyField) CapturesPointer() bool {
	return f.pressed || f.picker != nil
}

// TakeCmds returns and clears the commands scheduled by notifications.
func (f *PropertyField) TakeCmds() tea.Cmd {
	if len(f.pending) == 0 {
		return nil
	}
	cmd := tea.Batch(f.pending...)
	f.pending = nil
	return cmd
}

func (f *PropertyField) onValue() {
	if f.classes.Event {
		if f.cell.Changed() {
			f.flash()
		}
		return
	}
	f.refreshDisplay()
}

// flash applies the highlight now and schedules its removal.
func (f *PropertyField) flash() {
	f.flashing = true
	f.flashSeq++
	seq := f.flashSeq
	f.pending = append(f.pending, tea.Tick(f.cfg.Flash(), func(time.Time) tea.Msg {
		return fieldFlashMsg{field: f, seq: seq}
	}))
}

// refreshMeta re-derives the classification, title and bar from the schema
// and link state, then refreshes the display.
func (f *PropertyField) refreshMeta() {
	schema := f.cell.Schema()
	input := f.cell.IsInput()

	f.classes = FieldClasses{
		Input:  input,
		Output: !input,
		Event:  f.cell.IsEvent(),
		// Options are index-valued, so only number cells pick from them
		Option: len(schema.Options) > 0 && f.cell.Type() == graph.TypeNumber,
	}
	if input {
		f.classes.Linked = f.cell.HasInLinks(f.index)
	} else {
		f.classes.Linked = f.cell.HasOutLinks(f.index)
	}
	f.hasBar = !f.classes.Event && !f.classes.Option && schema.HasBounds() && schema.Bar

	f.title = f.cell.String()
	if f.index >= 0 {
		f.title += fmt.Sprintf("[%d]", f.index)
	}
	f.refreshDisplay()
}

func (f *PropertyField) refreshDisplay() {
	defer metrics.Timer(metrics.FieldRefresh)()

	if f.classes.Event {
		f.text = f.cell.Name()
		return
	}

	schema := f.cell.Schema()
	value := f.element(f.cell.Value())
	f.value = value
	f.barFill = 0

	switch f.cell.Type() {
	case graph.TypeNumber:
		if len(schema.Options) > 0 {
			f.text = f.cell.OptionText()
			return
		}
		v, ok := graph.ToFloat(value)
		if !ok {
			f.text = ""
			return
		}
		if math.IsInf(v, 0) || math.IsNaN(v) {
			f.text = infText(v)
			return
		}
		precision := f.cfg.DefaultPrecision
		if schema.Precision != nil {
			precision = *schema.Precision
		}
		f.text = strconv.FormatFloat(v, 'f', precision, 64)
		if f.hasBar {
			f.barFill = scaleLimit(v, *schema.Min, *schema.Max, 0, 100)
		}
	case graph.TypeBoolean:
		if b, _ := value.(bool); b {
			f.text = "true"
		} else {
			f.text = "false"
		}
	case graph.TypeString:
		if s, ok := value.(string); ok {
			f.text = s
		} else if value != nil {
			f.text = fmt.Sprint(value)
		} else {
			f.text = ""
		}
	case graph.TypeObject:
		if value == nil {
			f.text = ""
		} else {
			f.text = fmt.Sprint(value)
		}
	default:
		f.text = ""
	}
}

func infText(v float64) string {
	if math.IsInf(v, -1) {
		return "-inf"
	}
	return "inf"
}

// scaleLimit maps v from [inMin,inMax] onto [outMin,outMax], clamped.
func scaleLimit(v, inMin, inMax, outMin, outMax float64) float64 {
	if inMax == inMin {
		return outMin
	}
	r := outMin + (v-inMin)/(inMax-inMin)*(outMax-outMin)
	lo, hi := math.Min(outMin, outMax), math.Max(outMin, outMax)
	return math.Max(lo, math.Min(hi, r))
}

// element returns the bound element of v.
func (f *PropertyField) element(v any) any {
	if f.index < 0 {
		return v
	}
	switch vec := v.(type) {
	case []float64:
		if f.index < len(vec) {
			return vec[f.index]
		}
	case []string:
		if f.index < len(vec) {
			return vec[f.index]
		}
	case []bool:
		if f.index < len(vec) {
			return vec[f.index]
		}
	}
	return nil
}

// write stores v into the cell. An element write reads the whole vector,
// replaces one element and writes the whole vector back.
func (f *PropertyField) write(v any) {
	debug.Log("field %s write %v", f.title, v)
	if f.index < 0 {
		f.cell.SetValue(v)
		return
	}
	switch vec := f.cell.Value().(type) {
	case []float64:
		if n, ok := graph.ToFloat(v); ok && f.index < len(vec) {
			vec[f.index] = n
			f.cell.SetValue(vec)
		}
	case []string:
		if s, ok := v.(string); ok && f.index < len(vec) {
			vec[f.index] = s
			f.cell.SetValue(vec)
		}
	case []bool:
		if b, ok := v.(bool); ok && f.index < len(vec) {
			vec[f.index] = b
			f.cell.SetValue(vec)
		}
	}
}

func (f *PropertyField) currentNumber() float64 {
	v, _ := graph.ToFloat(f.value)
	return v
}

func (f *PropertyField) draggable() bool {
	return f.cell.Type() == graph.TypeNumber && len(f.cell.Schema().Options) == 0 && !f.classes.Event
}

// HandleMouse processes a pointer event relative to the value cell's
// top-left corner. While the picker is open its box starts on line 1.
func (f *PropertyField) HandleMouse(msg tea.MouseMsg) tea.Cmd {
	if f.picker != nil {
		msg.Y--
		f.resolvePicker(f.picker.HandleMouse(msg))
		return nil
	}
	if f.state == FieldEditing {
		return nil
	}

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonRight:
			f.cell.Reset()
		case tea.MouseButtonLeft:
			f.pointerDown(msg)
		}
	case tea.MouseActionMotion:
		f.pointerMove(msg)
	case tea.MouseActionRelease:
		return f.pointerUp(msg)
	}
	return nil
}

func (f *PropertyField) pointerDown(msg tea.MouseMsg) {
	f.pressed = true
	if !f.draggable() {
		return
	}
	f.state = FieldArmed
	f.startX = msg.X
	f.startY = msg.Y
	debug.Log("field %s armed at %d,%d", f.title, msg.X, msg.Y)
}

func (f *PropertyField) pointerMove(msg tea.MouseMsg) {
	if f.state != FieldArmed && f.state != FieldDragging {
		return
	}
	if f.state == FieldArmed {
		dx, dy := msg.X-f.startX, msg.Y-f.startY
		if abs(dx)+abs(dy) <= f.cfg.DragThreshold {
			return
		}
		f.state = FieldDragging
		f.startX = msg.X
		f.startY = msg.Y
		f.startValue = f.currentNumber()
		debug.Log("field %s dragging from %v", f.title, f.startValue)
	}

	delta := float64((msg.X - f.startX) - (msg.Y - f.startY))
	v := f.startValue + delta*f.dragSpeed(modifiersOf(msg))
	f.write(f.constrain(v))
}

func (f *PropertyField) pointerUp(msg tea.MouseMsg) tea.Cmd {
	if !f.pressed {
		return nil
	}
	f.pressed = false
	wasDragging := f.state == FieldDragging
	if f.state == FieldArmed || f.state == FieldDragging {
		f.state = FieldIdle
	}
	if wasDragging {
		return nil
	}
	// A click needs press and release on the field
	if msg.Y != 0 || msg.X < 0 || msg.X >= f.width {
		return nil
	}
	return f.click()
}

// Cancel aborts a pending press or drag without writing.
func (f *PropertyField) Cancel() {
	f.pressed = false
	if f.state == FieldArmed || f.state == FieldDragging {
		f.state = FieldIdle
	}
}

// dragSpeed returns the value change per cell of pointer movement.
func (f *PropertyField) dragSpeed(mods Modifiers) float64 {
	schema := f.cell.Schema()
	speed := f.cfg.DefaultSpeed
	if schema.Speed != nil && *schema.Speed != 0 {
		speed = *schema.Speed
	} else if schema.HasBounds() {
		speed = (*schema.Max - *schema.Min) / float64(f.width)
	}
	if mods.Ctrl {
		speed *= f.cfg.PreciseFactor
	}
	if mods.Shift {
		speed *= f.cfg.CoarseFactor
	}
	return speed
}

// constrain floors v to a multiple of the step, then clamps it to the
// bounds.
func (f *PropertyField) constrain(v float64) float64 {
	schema := f.cell.Schema()
	if schema.Step != nil && *schema.Step != 0 {
		v = math.Floor(v / *schema.Step) * *schema.Step
	}
	return clampSchema(v, schema)
}

func clampSchema(v float64, schema graph.Schema) float64 {
	if schema.Min != nil {
		v = math.Max(v, *schema.Min)
	}
	if schema.Max != nil {
		v = math.Min(v, *schema.Max)
	}
	return v
}

// click dispatches an activation on the field.
func (f *PropertyField) click() tea.Cmd {
	if f.classes.Event {
		f.cell.Set()
		return nil
	}
	if f.classes.Option {
		f.picker = NewOptionPicker(f.cell.Schema().Options, f.cell.ValidatedValue(), f.theme)
		return nil
	}
	switch f.cell.Type() {
	case graph.TypeNumber, graph.TypeString:
		return f.StartEditing()
	case graph.TypeBoolean:
		b, _ := f.value.(bool)
		f.write(!b)
	}
	return nil
}

// resolvePicker writes the picked option's index into the cell.
func (f *PropertyField) resolvePicker(r PickerResult) {
	switch r {
	case PickerPicked:
		idx := f.picker.SelectedIndex()
		f.picker = nil
		f.write(float64(idx))
	case PickerCancelled:
		f.picker = nil
	}
}

// StartEditing opens the inline edit box seeded with the current value.
func (f *PropertyField) StartEditing() tea.Cmd {
	if f.state == FieldEditing {
		return nil
	}
	f.input = textinput.New()
	f.input.Prompt = ""
	f.input.Width = max(f.width-1, 1)
	f.input.SetValue(f.editSeed())
	f.input.CursorEnd()
	f.state = FieldEditing
	debug.Log("field %s editing %q", f.title, f.input.Value())
	return f.input.Focus()
}

func (f *PropertyField) editSeed() string {
	if f.cell.Type() != graph.TypeNumber {
		if s, ok := f.value.(string); ok {
			return s
		}
		if f.value == nil {
			return ""
		}
		return fmt.Sprint(f.value)
	}
	v := f.currentNumber()
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return infText(v)
	}
	precision := f.cfg.EditPrecision
	if p := f.cell.Schema().Precision; p != nil {
		precision = *p
	}
	return strconv.FormatFloat(v, 'f', precision, 64)
}

// Commit closes the edit box and writes the parsed text.
func (f *PropertyField) Commit() { f.stopEditing(true) }

// CancelEdit closes the edit box without writing.
func (f *PropertyField) CancelEdit() { f.stopEditing(false) }

// Blur handles loss of focus: an open edit is committed, a pending press is
// aborted and an open picker is dismissed.
func (f *PropertyField) Blur() {
	f.stopEditing(true)
	f.Cancel()
	f.picker = nil
}

func (f *PropertyField) stopEditing(commit bool) {
	if f.state != FieldEditing {
		return
	}
	text := f.input.Value()
	f.input.Blur()
	f.state = FieldIdle
	if !commit {
		debug.Log("field %s edit cancelled", f.title)
		f.refreshDisplay()
		return
	}
	if f.cell.Type() == graph.TypeNumber {
		f.write(ParseNumberInput(text, f.cell.Schema()))
		return
	}
	f.write(text)
}

var leadingFloat = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?`)

// ParseNumberInput converts edit box text into a value. Text containing
// "inf" in any case becomes an infinity signed by a leading minus and is
// stored as is. Anything else is read as the longest numeric prefix (0 when
// there is none), rounded to the schema precision and clamped to the
// schema bounds.
func ParseNumberInput(text string, schema graph.Schema) float64 {
	if strings.Contains(strings.ToLower(text), "inf") {
		if strings.HasPrefix(text, "-") {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}

	v := parseLeadingFloat(text)
	if schema.Precision != nil {
		factor := math.Pow(10, float64(*schema.Precision))
		v = math.Floor(v*factor+0.5) / factor
	}
	return clampSchema(v, schema)
}

func parseLeadingFloat(text string) float64 {
	m := leadingFloat.FindString(strings.TrimLeft(text, " \t\r\n\v\f"))
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	if v == 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

// nudge steps a number by one step, or by one cell of drag when the schema
// has no step.
func (f *PropertyField) nudge(dir float64) {
	if !f.draggable() {
		return
	}
	schema := f.cell.Schema()
	step := f.dragSpeed(Modifiers{})
	if schema.Step != nil && *schema.Step != 0 {
		step = *schema.Step
	}
	f.write(f.constrain(f.currentNumber() + dir*step))
}

// Update handles keyboard input, focus loss and flash timers.
func (f *PropertyField) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case fieldFlashMsg:
		if msg.field == f && msg.seq == f.flashSeq {
			f.flashing = false
		}
		return nil

	case tea.BlurMsg:
		f.Blur()
		return nil

	case tea.MouseMsg:
		return f.HandleMouse(msg)

	case tea.KeyMsg:
		if f.picker != nil {
			f.resolvePicker(f.picker.HandleKey(msg))
			return nil
		}
		if f.state == FieldEditing {
			switch {
			case key.Matches(msg, f.keys.Commit):
				f.Commit()
				return nil
			case key.Matches(msg, f.keys.Cancel):
				f.CancelEdit()
				return nil
			}
			var cmd tea.Cmd
			f.input, cmd = f.input.Update(msg)
			return cmd
		}
		if f.state == FieldArmed || f.state == FieldDragging {
			if key.Matches(msg, f.keys.Cancel) {
				f.Cancel()
			}
			return nil
		}
		switch {
		case key.Matches(msg, f.keys.Activate):
			return f.click()
		case key.Matches(msg, f.keys.Reset):
			f.cell.Reset()
		case key.Matches(msg, f.keys.Increment):
			f.nudge(1)
		case key.Matches(msg, f.keys.Decrement):
			f.nudge(-1)
		}

	default:
		// Cursor blink and other edit box internals.
		if f.state == FieldEditing {
			var cmd tea.Cmd
			f.input, cmd = f.input.Update(msg)
			return cmd
		}
	}
	return nil
}

// View renders the value cell, followed by the picker box when open.
func (f *PropertyField) View() string {
	var cell string
	switch {
	case f.classes.Event:
		style := f.theme.EventButton
		if f.flashing {
			style = f.theme.EventFlash
		}
		cell = style.Render(fitWidth(f.text, max(f.width-2, 1)))
	case f.state == FieldEditing:
		cell = f.theme.EditBox.Width(f.width).MaxWidth(f.width).Render(f.input.View())
	default:
		cell = f.renderValue()
	}
	if f.picker != nil {
		return cell + "\n" + f.picker.View()
	}
	return cell
}

func (f *PropertyField) renderValue() string {
	style := f.theme.FieldInput
	if f.classes.Output {
		style = f.theme.FieldOutput
	}
	if f.classes.Linked {
		style = f.theme.FieldLinked.Inherit(style)
	}
	if f.classes.Option {
		style = style.Inherit(f.theme.FieldOption)
	}
	if f.focused {
		style = style.Inherit(f.theme.FieldFocus)
	}

	text := fitWidth(f.text, f.width)
	if !f.hasBar || f.barFill <= 0 {
		return style.Render(text)
	}
	fill := int(math.Round(f.barFill / 100 * float64(f.width)))
	filled := runewidth.Truncate(text, fill, "")
	rest := text[len(filled):]
	return f.theme.BarFill.Inherit(style).Render(filled) + style.Render(rest)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
