package ui

import (
	"math"
	"reflect"
	"strconv"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"pgregory.net/rapid"

	"github.com/vanderheijden86/graphview/pkg/config"
	"github.com/vanderheijden86/graphview/pkg/graph"
)

func testFieldConfig() config.FieldConfig {
	return config.DefaultConfig().Field
}

func mountField(t *testing.T, p *graph.Property, index int) *PropertyField {
	t.Helper()
	f, err := NewPropertyField(p, index, testFieldConfig(), TestTheme())
	if err != nil {
		t.Fatalf("NewPropertyField: %v", err)
	}
	f.Mount()
	t.Cleanup(f.Unmount)
	return f
}

func press(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
}

func rightPress(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonRight}
}

func motion(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft}
}

func release(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionRelease, Button: tea.MouseButtonNone}
}

func keyRunes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
)

func number(t *testing.T, p *graph.Property) float64 {
	t.Helper()
	v, ok := graph.ToFloat(p.Value())
	if !ok {
		t.Fatalf("value %v is not a number", p.Value())
	}
	return v
}

func TestNewPropertyFieldRejectsMissingProperty(t *testing.T) {
	if _, err := NewPropertyField(nil, -1, testFieldConfig(), TestTheme()); err != ErrNoProperty {
		t.Errorf("nil cell: expected ErrNoProperty, got %v", err)
	}
	var p *graph.Property
	if _, err := NewPropertyField(p, -1, testFieldConfig(), TestTheme()); err != ErrNoProperty {
		t.Errorf("typed nil: expected ErrNoProperty, got %v", err)
	}
}

func TestFieldDragAppliesSpeedAfterThreshold(t *testing.T) {
	p := graph.NewProperty("x", graph.TypeNumber, graph.Schema{Speed: graph.Float(0.1)}, 1.0, true)
	f := mountField(t, p, -1)

	f.HandleMouse(press(0, 0))
	if f.State() != FieldArmed {
		t.Fatalf("expected armed after press, got %v", f.State())
	}
	f.HandleMouse(motion(3, 0))
	if f.State() != FieldDragging {
		t.Fatalf("expected dragging past the threshold, got %v", f.State())
	}
	// The drag re-anchors where it started, so the crossing itself moves nothing
	if got := number(t, p); got != 1 {
		t.Errorf("expected 1 at drag start, got %v", got)
	}

	f.HandleMouse(motion(53, 0))
	if got := number(t, p); math.Abs(got-6) > 1e-9 {
		t.Errorf("expected 1 + 50*0.1 = 6, got %v", got)
	}

	// Moving up counts as increasing
	f.HandleMouse(motion(53, -10))
	if got := number(t, p); math.Abs(got-7) > 1e-9 {
		t.Errorf("expected 7 after moving up 10 cells, got %v", got)
	}

	if cmd := f.HandleMouse(release(53, -10)); cmd != nil {
		t.Error("release after a drag should not click")
	}
	if f.State() != FieldIdle {
		t.Errorf("expected idle after release, got %v", f.State())
	}
}

func TestFieldNoWriteBelowThreshold(t *testing.T) {
	p := graph.NewProperty("x", graph.TypeNumber, graph.Schema{}, 1.0, true)
	f := mountField(t, p, -1)

	writes := 0
	sub := p.OnValue(func() { writes++ })
	defer sub.Remove()

	f.HandleMouse(press(0, 0))
	f.HandleMouse(motion(1, 1))
	if writes != 0 {
		t.Errorf("expected no writes within the threshold, got %d", writes)
	}
	if f.State() != FieldArmed {
		t.Errorf("expected still armed, got %v", f.State())
	}

	// Released off the cell row: neither drag nor click
	f.HandleMouse(release(1, 1))
	if f.State() != FieldIdle {
		t.Errorf("expected idle, got %v", f.State())
	}
}

func TestFieldCancelDuringDrag(t *testing.T) {
	cancels := []struct {
		name   string
		cancel func(f *PropertyField)
	}{
		{"esc", func(f *PropertyField) { f.Update(keyEsc) }},
		{"blur", func(f *PropertyField) { f.Update(tea.BlurMsg{}) }},
		{"direct", func(f *PropertyField) { f.Cancel() }},
	}
	for _, tc := range cancels {
		t.Run(tc.name, func(t *testing.T) {
			p := graph.NewProperty("x", graph.TypeNumber, graph.Schema{Speed: graph.Float(1)}, 1.0, true)
			f := mountField(t, p, -1)

			f.HandleMouse(press(0, 0))
			f.HandleMouse(motion(3, 0))
			f.HandleMouse(motion(5, 0))
			if f.State() != FieldDragging {
				t.Fatalf("expected dragging, got %v", f.State())
			}
			if got := number(t, p); got != 3 {
				t.Fatalf("expected 1 + 2 cells = 3, got %v", got)
			}

			writes := 0
			sub := p.OnValue(func() { writes++ })
			defer sub.Remove()

			tc.cancel(f)
			if f.State() != FieldIdle || f.CapturesPointer() {
				t.Fatalf("cancel should leave the field idle and release the pointer, got %v", f.State())
			}

			f.HandleMouse(motion(20, 0))
			if cmd := f.HandleMouse(release(1, 0)); cmd != nil || f.State() != FieldIdle {
				t.Error("a release after cancel should not click")
			}
			if writes != 0 {
				t.Errorf("expected no writes after cancel, got %d", writes)
			}
			if got := number(t, p); got != 3 {
				t.Errorf("values written before the cancel stay, got %v", got)
			}
		})
	}
}

func TestFieldDragModifiersAndRangeSpeed(t *testing.T) {
	schema := graph.Schema{Min: graph.Float(0), Max: graph.Float(160)}
	p := graph.NewProperty("x", graph.TypeNumber, schema, 0.0, true)
	f := mountField(t, p, -1)
	f.SetWidth(16)

	if got := f.dragSpeed(Modifiers{}); got != 10 {
		t.Errorf("range speed: expected 160/16 = 10, got %v", got)
	}
	if got := f.dragSpeed(Modifiers{Ctrl: true}); math.Abs(got-1) > 1e-9 {
		t.Errorf("ctrl speed: expected 1, got %v", got)
	}
	if got := f.dragSpeed(Modifiers{Shift: true}); got != 100 {
		t.Errorf("shift speed: expected 100, got %v", got)
	}

	// Clamped at the upper bound
	f.HandleMouse(press(0, 0))
	f.HandleMouse(motion(5, 0))
	f.HandleMouse(motion(100, 0))
	if got := number(t, p); got != 160 {
		t.Errorf("expected clamp to 160, got %v", got)
	}
}

func TestFieldConstrainFloorsToStep(t *testing.T) {
	schema := graph.Schema{Min: graph.Float(-10), Max: graph.Float(10), Step: graph.Float(0.5)}
	f := mountField(t, graph.NewProperty("x", graph.TypeNumber, schema, 0.0, true), -1)

	cases := map[float64]float64{
		1.2:  1.0,
		1.74: 1.5,
		-0.1: -0.5,
		99:   10,
		-99:  -10,
	}
	for in, want := range cases {
		if got := f.constrain(in); got != want {
			t.Errorf("constrain(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestFieldConstrainProperties(t *testing.T) {
	schema := graph.Schema{Min: graph.Float(0), Max: graph.Float(10), Step: graph.Float(0.25)}
	f, err := NewPropertyField(graph.NewProperty("x", graph.TypeNumber, schema, 0.0, true), -1, testFieldConfig(), TestTheme())
	if err != nil {
		t.Fatal(err)
	}
	rapid.Check(t, func(rt *rapid.T) {
		v := rapid.Float64Range(-100, 100).Draw(rt, "v")
		got := f.constrain(v)
		if got < 0 || got > 10 {
			rt.Fatalf("constrain(%v) = %v escapes the bounds", v, got)
		}
		if v >= 0 && v <= 10 && (got > v || v-got >= 0.25) {
			rt.Fatalf("constrain(%v) = %v is not the step floor", v, got)
		}
	})
}

func TestFieldClickStartsEditingAndEscCancels(t *testing.T) {
	p := graph.NewProperty("x", graph.TypeNumber, graph.Schema{}, 1.5, true)
	f := mountField(t, p, -1)

	f.HandleMouse(press(2, 0))
	if cmd := f.HandleMouse(release(2, 0)); cmd == nil {
		t.Error("expected a focus command from the edit box")
	}
	if f.State() != FieldEditing {
		t.Fatalf("expected editing after click, got %v", f.State())
	}
	if got := f.EditText(); got != "1.50000" {
		t.Errorf("expected seed %q, got %q", "1.50000", got)
	}

	f.SetEditText("42")
	f.Update(keyEsc)
	if f.State() != FieldIdle {
		t.Errorf("expected idle after esc, got %v", f.State())
	}
	if got := number(t, p); got != 1.5 {
		t.Errorf("esc should leave the value unchanged, got %v", got)
	}
}

func TestFieldCommitIsIdempotent(t *testing.T) {
	schema := graph.Schema{Precision: graph.Int(3)}
	p := graph.NewProperty("x", graph.TypeNumber, schema, 0.125, true)
	f := mountField(t, p, -1)

	for i := 0; i < 3; i++ {
		f.StartEditing()
		f.Update(keyEnter)
	}
	if got := number(t, p); got != 0.125 {
		t.Errorf("repeated commit changed the value to %v", got)
	}
	if f.Text() != "0.125" {
		t.Errorf("expected text 0.125, got %q", f.Text())
	}
}

func TestFieldCommitInfinityBypassesClamp(t *testing.T) {
	schema := graph.Schema{Min: graph.Float(0), Max: graph.Float(10), Bar: true}
	p := graph.NewProperty("x", graph.TypeNumber, schema, 5.0, true)
	f := mountField(t, p, -1)

	if fill, ok := f.BarFill(); !ok || fill != 50 {
		t.Fatalf("expected 50%% bar, got %v (bar=%v)", fill, ok)
	}

	f.StartEditing()
	f.SetEditText("-Infinity")
	f.Commit()

	if got := number(t, p); !math.IsInf(got, -1) {
		t.Errorf("expected -inf, got %v", got)
	}
	if f.Text() != "-inf" {
		t.Errorf("expected text -inf, got %q", f.Text())
	}
	if fill, _ := f.BarFill(); fill != 0 {
		t.Errorf("expected empty bar for infinity, got %v", fill)
	}

	// The edit box round-trips the infinity
	f.StartEditing()
	if f.EditText() != "-inf" {
		t.Errorf("expected seed -inf, got %q", f.EditText())
	}
	f.CancelEdit()
}

func TestParseNumberInput(t *testing.T) {
	bounded := graph.Schema{Min: graph.Float(0), Max: graph.Float(3)}
	precise := graph.Schema{Precision: graph.Int(2)}

	tests := []struct {
		text   string
		schema graph.Schema
		want   float64
	}{
		{"3.14159", precise, 3.14},
		{"2.005", graph.Schema{Precision: graph.Int(0)}, 2},
		{"12abc", graph.Schema{}, 12},
		{"abc", graph.Schema{}, 0},
		{"", graph.Schema{}, 0},
		{"  -2.5e1x", graph.Schema{}, -25},
		{".5", graph.Schema{}, 0.5},
		{"5", bounded, 3},
		{"-1", bounded, 0},
		{"INF", bounded, math.Inf(1)},
		{"-inf", bounded, math.Inf(-1)},
		{"infinity", graph.Schema{}, math.Inf(1)},
	}
	for _, tc := range tests {
		if got := ParseNumberInput(tc.text, tc.schema); got != tc.want {
			t.Errorf("ParseNumberInput(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestParseNumberInputStaysInBounds(t *testing.T) {
	schema := graph.Schema{Min: graph.Float(-5), Max: graph.Float(5)}
	rapid.Check(t, func(rt *rapid.T) {
		v := rapid.Float64Range(-1e6, 1e6).Draw(rt, "v")
		text := strconv.FormatFloat(v, 'f', -1, 64)
		got := ParseNumberInput(text, schema)
		if got < -5 || got > 5 {
			rt.Fatalf("ParseNumberInput(%q) = %v escapes the bounds", text, got)
		}
		if v >= -5 && v <= 5 && got != v {
			rt.Fatalf("ParseNumberInput(%q) = %v, want %v", text, got, v)
		}
	})
}

func TestFieldVectorElementReadModifyWrite(t *testing.T) {
	p := graph.NewProperty("position", graph.TypeNumber, graph.Schema{}, []float64{1, 2, 3}, true)
	f := mountField(t, p, 1)

	if f.Text() != "2.00" {
		t.Errorf("expected element text 2.00, got %q", f.Text())
	}
	if f.Title() != "position[1]" {
		t.Errorf("expected title position[1], got %q", f.Title())
	}

	f.StartEditing()
	f.SetEditText("7")
	f.Commit()

	if got := p.Value(); !reflect.DeepEqual(got, []float64{1, 7, 3}) {
		t.Errorf("expected [1 7 3], got %v", got)
	}
	if f.Text() != "7.00" {
		t.Errorf("expected 7.00, got %q", f.Text())
	}
}

func TestFieldEventFlash(t *testing.T) {
	p := graph.NewProperty("fire", graph.TypeEvent, graph.Schema{}, nil, false)
	f := mountField(t, p, -1)

	if !f.Classes().Event {
		t.Fatal("expected event class")
	}
	fired := 0
	sub := p.OnValue(func() { fired++ })
	defer sub.Remove()

	f.HandleMouse(press(1, 0))
	if f.State() != FieldIdle {
		t.Errorf("event fields never arm, got %v", f.State())
	}
	f.HandleMouse(release(1, 0))
	if fired != 1 {
		t.Fatalf("expected one trigger, got %d", fired)
	}
	if !f.Flashing() {
		t.Fatal("expected flash after trigger")
	}
	if f.TakeCmds() == nil {
		t.Fatal("expected a scheduled flash expiry")
	}
	if f.TakeCmds() != nil {
		t.Error("TakeCmds should drain")
	}

	// A second trigger supersedes the first expiry
	p.Set()
	f.Update(fieldFlashMsg{field: f, seq: 1})
	if !f.Flashing() {
		t.Error("stale expiry should not clear the flash")
	}
	f.Update(fieldFlashMsg{field: f, seq: 2})
	if f.Flashing() {
		t.Error("current expiry should clear the flash")
	}
}

func TestFieldOptionPicker(t *testing.T) {
	schema := graph.Schema{Options: []string{"point", "spot", "area"}}
	p := graph.NewProperty("kind", graph.TypeNumber, schema, 0.0, true)
	f := mountField(t, p, -1)

	if f.Text() != "point" || !f.Classes().Option {
		t.Fatalf("expected option text point, got %q", f.Text())
	}

	f.HandleMouse(press(0, 0))
	if f.State() != FieldIdle {
		t.Errorf("option fields never arm, got %v", f.State())
	}
	f.HandleMouse(release(0, 0))
	if !f.PickerOpen() || !f.CapturesPointer() {
		t.Fatal("expected picker open and capturing")
	}

	f.Update(keyDown)
	f.Update(keyEnter)
	if f.PickerOpen() {
		t.Error("picker should close on enter")
	}
	if got := number(t, p); got != 1 {
		t.Errorf("expected option 1, got %v", got)
	}
	if f.Text() != "spot" {
		t.Errorf("expected spot, got %q", f.Text())
	}

	// Reopen and pick the third option with the pointer: cell line, border,
	// then one line per option
	f.HandleMouse(press(0, 0))
	f.HandleMouse(release(0, 0))
	f.HandleMouse(press(3, 4))
	f.HandleMouse(release(3, 4))
	if got := number(t, p); got != 2 {
		t.Errorf("expected option 2, got %v", got)
	}

	// Outside press cancels
	f.HandleMouse(press(0, 0))
	f.HandleMouse(release(0, 0))
	f.HandleMouse(press(50, 50))
	if f.PickerOpen() {
		t.Error("outside press should cancel the picker")
	}
	if got := number(t, p); got != 2 {
		t.Errorf("cancel should not write, got %v", got)
	}
}

func TestFieldRightClickResets(t *testing.T) {
	p := graph.NewProperty("x", graph.TypeNumber, graph.Schema{}, 1.0, true)
	f := mountField(t, p, -1)

	p.SetValue(5.0)
	if f.Text() != "5.00" {
		t.Fatalf("expected display to follow the value, got %q", f.Text())
	}
	f.HandleMouse(rightPress(0, 0))
	if got := number(t, p); got != 1 {
		t.Errorf("expected reset to 1, got %v", got)
	}
}

func TestFieldBooleanToggle(t *testing.T) {
	p := graph.NewProperty("visible", graph.TypeBoolean, graph.Schema{}, true, true)
	f := mountField(t, p, -1)

	f.HandleMouse(press(0, 0))
	f.HandleMouse(release(0, 0))
	if p.Value() != false {
		t.Errorf("expected false after click, got %v", p.Value())
	}
	f.Update(tea.KeyMsg{Type: tea.KeySpace})
	if p.Value() != true {
		t.Errorf("expected true after space, got %v", p.Value())
	}
}

func TestFieldStringEditCommitsRawText(t *testing.T) {
	p := graph.NewProperty("label", graph.TypeString, graph.Schema{}, "key", true)
	f := mountField(t, p, -1)

	f.Update(keyEnter)
	if f.State() != FieldEditing {
		t.Fatalf("expected editing, got %v", f.State())
	}
	f.SetEditText("  fill 12 ")
	f.Update(keyEnter)
	if p.Value() != "  fill 12 " {
		t.Errorf("expected raw text, got %q", p.Value())
	}
}

func TestFieldStringWithOptionsEditsText(t *testing.T) {
	schema := graph.Schema{Options: []string{"a", "b"}}
	p := graph.NewProperty("tag", graph.TypeString, schema, "a", true)
	f := mountField(t, p, -1)

	if f.Classes().Option {
		t.Fatal("options are index-valued and only apply to number cells")
	}
	f.HandleMouse(press(0, 0))
	f.HandleMouse(release(0, 0))
	if f.PickerOpen() || f.State() != FieldEditing {
		t.Fatalf("expected a text edit instead of a picker, got %v", f.State())
	}
	f.SetEditText("b")
	f.Update(keyEnter)
	if p.Value() != "b" {
		t.Errorf("expected the typed string, got %v", p.Value())
	}
}

func TestFieldBlurCommits(t *testing.T) {
	p := graph.NewProperty("x", graph.TypeNumber, graph.Schema{}, 0.0, true)
	f := mountField(t, p, -1)
	f.SetFocused(true)

	f.StartEditing()
	f.SetEditText("3")
	f.Update(tea.BlurMsg{})
	if f.State() != FieldIdle {
		t.Errorf("expected idle after blur, got %v", f.State())
	}
	if got := number(t, p); got != 3 {
		t.Errorf("blur should commit, got %v", got)
	}
}

func TestFieldReleaseOffCellDoesNotClick(t *testing.T) {
	p := graph.NewProperty("label", graph.TypeString, graph.Schema{}, "a", true)
	f := mountField(t, p, -1)

	f.HandleMouse(press(0, 0))
	if !f.CapturesPointer() {
		t.Fatal("a pressed field captures the pointer")
	}
	f.HandleMouse(release(0, 3))
	if f.State() == FieldEditing {
		t.Error("release below the cell should not start editing")
	}
	if f.CapturesPointer() {
		t.Error("capture should end on release")
	}
}

func TestFieldNudgeKeys(t *testing.T) {
	schema := graph.Schema{Step: graph.Float(0.25), Max: graph.Float(1)}
	p := graph.NewProperty("x", graph.TypeNumber, schema, 0.5, true)
	f := mountField(t, p, -1)

	f.Update(keyRunes("+"))
	if got := number(t, p); got != 0.75 {
		t.Errorf("expected 0.75, got %v", got)
	}
	f.Update(keyRunes("+"))
	f.Update(keyRunes("+"))
	if got := number(t, p); got != 1 {
		t.Errorf("expected clamp to 1, got %v", got)
	}
	f.Update(keyRunes("-"))
	if got := number(t, p); got != 0.75 {
		t.Errorf("expected 0.75, got %v", got)
	}
}

func TestFieldMetadataChangesRefreshClasses(t *testing.T) {
	p := graph.NewProperty("intensity", graph.TypeNumber, graph.Schema{}, 1.0, true)
	f := mountField(t, p, -1)

	if f.Classes().Linked {
		t.Fatal("no links yet")
	}
	p.AddInLink(-1)
	if !f.Classes().Linked {
		t.Error("expected linked after an upstream link was added")
	}
	p.SetSchema(graph.Schema{Min: graph.Float(0), Max: graph.Float(4), Bar: true})
	if fill, ok := f.BarFill(); !ok || fill != 25 {
		t.Errorf("expected 25%% bar after schema change, got %v (bar=%v)", fill, ok)
	}
}

func TestFieldUnmountReleasesSubscriptions(t *testing.T) {
	p := graph.NewProperty("x", graph.TypeNumber, graph.Schema{}, 1.0, true)
	f, err := NewPropertyField(p, -1, testFieldConfig(), TestTheme())
	if err != nil {
		t.Fatal(err)
	}
	f.Mount()
	if !f.Mounted() || p.ListenerCount() != 2 {
		t.Fatalf("expected 2 listeners, got %d", p.ListenerCount())
	}
	f.StartEditing()
	f.SetEditText("9")
	f.Unmount()
	if f.Mounted() || p.ListenerCount() != 0 {
		t.Errorf("expected 0 listeners after unmount, got %d", p.ListenerCount())
	}
	if f.State() != FieldIdle {
		t.Errorf("unmount should leave the field idle, got %v", f.State())
	}
	if got := number(t, p); got != 1 {
		t.Errorf("unmount should discard the edit, got %v", got)
	}
}
