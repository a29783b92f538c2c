package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals use the
// terminal's own background instead of a down-converted approximation.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor

	// Styles
	Base     lipgloss.Style
	Selected lipgloss.Style
	Cursor   lipgloss.Style
	Header   lipgloss.Style
	Button   lipgloss.Style
	Toggle   lipgloss.Style

	// Row classes
	RowSystem    lipgloss.Style
	RowNode      lipgloss.Style
	RowComponent lipgloss.Style
	RowGraph     lipgloss.Style

	// Property field styles, precomputed once per theme
	FieldLabel  lipgloss.Style
	FieldInput  lipgloss.Style
	FieldOutput lipgloss.Style
	FieldLinked lipgloss.Style
	FieldOption lipgloss.Style
	FieldFocus  lipgloss.Style
	BarFill     lipgloss.Style
	EventButton lipgloss.Style
	EventFlash  lipgloss.Style
	EditBox     lipgloss.Style
	MutedText   lipgloss.Style
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive)
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   ColorPrimary,
		Secondary: ColorSecondary,
		Subtext:   ColorSubtext,
		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     ColorMuted,
	}

	t.Base = r.NewStyle().Foreground(ColorText)

	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Foreground(t.Primary).
		Bold(true)

	// Reverse video keeps the row's cell layout intact for hit testing
	t.Cursor = r.NewStyle().Reverse(true)

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.Button = r.NewStyle().
		Foreground(t.Primary).
		Background(ColorBgSubtle).
		Padding(0, 1)

	t.Toggle = r.NewStyle().Foreground(t.Secondary)

	t.RowSystem = r.NewStyle().Foreground(ColorInfo).Bold(true)
	t.RowNode = r.NewStyle().Foreground(ColorText)
	t.RowComponent = r.NewStyle().Foreground(ColorSubtext)
	t.RowGraph = r.NewStyle().Foreground(ColorSubtext).Bold(true)

	t.FieldLabel = r.NewStyle().Foreground(ColorSubtext)
	t.FieldInput = r.NewStyle().Foreground(ColorInput).Background(ThemeBg("#303241"))
	t.FieldOutput = r.NewStyle().Foreground(ColorOutput).Background(ThemeBg("#303241"))
	t.FieldLinked = r.NewStyle().Foreground(ColorLinked).Italic(true)
	t.FieldOption = r.NewStyle().Underline(true)
	t.FieldFocus = r.NewStyle().Bold(true)
	t.BarFill = r.NewStyle().Background(ColorBar)
	t.EventButton = r.NewStyle().Background(ColorEventBtn).Foreground(ColorText).Padding(0, 1)
	t.EventFlash = r.NewStyle().Background(ColorFlash).Foreground(lipgloss.Color("#282A36")).Bold(true).Padding(0, 1)
	t.EditBox = r.NewStyle().Foreground(ColorText).Background(ColorBgHighlight)
	t.MutedText = r.NewStyle().Foreground(ColorMuted)

	return t
}

// RowStyle returns the style for a row class.
func (t Theme) RowStyle(class string) lipgloss.Style {
	switch class {
	case ClassSystem:
		return t.RowSystem
	case ClassNode:
		return t.RowNode
	case ClassComponent:
		return t.RowComponent
	case ClassGraphComponent:
		return t.RowGraph
	default:
		return t.Base
	}
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
