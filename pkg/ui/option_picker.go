package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PickerResult reports what an input did to an option picker.
type PickerResult int

const (
	PickerOpen PickerResult = iota
	PickerPicked
	PickerCancelled
)

// OptionPicker is a modal list of option labels anchored below a field.
type OptionPicker struct {
	options       []string
	selectedIndex int
	theme         Theme
}

// NewOptionPicker creates a picker with the given option highlighted.
func NewOptionPicker(options []string, selected int, theme Theme) *OptionPicker {
	return &OptionPicker{
		options:       options,
		selectedIndex: clampInt(selected, 0, max(len(options)-1, 0)),
		theme:         theme,
	}
}

// MoveUp moves selection up
func (p *OptionPicker) MoveUp() {
	if p.selectedIndex > 0 {
		p.selectedIndex--
	}
}

// MoveDown moves selection down
func (p *OptionPicker) MoveDown() {
	if p.selectedIndex < len(p.options)-1 {
		p.selectedIndex++
	}
}

// SelectedIndex returns the highlighted option index.
func (p *OptionPicker) SelectedIndex() int {
	return p.selectedIndex
}

// HandleKey processes navigation and confirmation keys.
func (p *OptionPicker) HandleKey(msg tea.KeyMsg) PickerResult {
	switch msg.String() {
	case "up", "k":
		p.MoveUp()
	case "down", "j":
		p.MoveDown()
	case "enter", " ":
		if len(p.options) == 0 {
			return PickerCancelled
		}
		return PickerPicked
	case "esc", "q":
		return PickerCancelled
	}
	return PickerOpen
}

// HandleMouse processes a pointer event relative to the picker's top-left
// corner. Option i sits on line i+1, inside the border.
func (p *OptionPicker) HandleMouse(msg tea.MouseMsg) PickerResult {
	idx := msg.Y - 1
	inside := idx >= 0 && idx < len(p.options) && msg.X >= 0 && msg.X < p.Width()

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		p.MoveUp()
		return PickerOpen
	case tea.MouseButtonWheelDown:
		p.MoveDown()
		return PickerOpen
	}

	switch msg.Action {
	case tea.MouseActionMotion:
		if inside {
			p.selectedIndex = idx
		}
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return PickerOpen
		}
		if !inside {
			return PickerCancelled
		}
		p.selectedIndex = idx
		return PickerPicked
	}
	return PickerOpen
}

func (p *OptionPicker) labelWidth() int {
	w := 4
	for _, o := range p.options {
		w = max(w, lipgloss.Width(o)+2)
	}
	return w
}

// Width returns the rendered width including the border.
func (p *OptionPicker) Width() int {
	return p.labelWidth() + 4
}

// View renders the picker box.
func (p *OptionPicker) View() string {
	t := p.theme
	w := p.labelWidth()

	lines := make([]string, 0, len(p.options))
	for i, o := range p.options {
		prefix := "  "
		style := t.Renderer.NewStyle().Foreground(t.Base.GetForeground())
		if i == p.selectedIndex {
			prefix = "▸ "
			style = style.Foreground(t.Primary).Bold(true)
		}
		lines = append(lines, style.Render(padRight(prefix+o, w)))
	}

	box := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(0, 1)
	return box.Render(strings.Join(lines, "\n"))
}
