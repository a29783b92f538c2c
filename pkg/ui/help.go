package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// helpSection is one table of the help overlay.
type helpSection struct {
	title    string
	bindings []key.Binding
}

func helpSections(app AppKeyMap, hier HierarchyKeyMap, field FieldKeyMap) []helpSection {
	return []helpSection{
		{"General", []key.Binding{app.Quit, app.Help, app.FocusNext, app.FocusPrev, app.Copy}},
		{"Hierarchy", []key.Binding{
			hier.Tree.Up, hier.Tree.Down, hier.Tree.Top, hier.Tree.Bottom,
			hier.Tree.Expand, hier.Tree.Collapse, hier.Tree.Select, hier.Tree.AddSelect,
			hier.Tree.Activate, hier.GraphUp, hier.GraphDown, hier.Clear,
		}},
		{"Properties", []key.Binding{
			field.Activate, field.Commit, field.Cancel, field.Reset,
			field.Increment, field.Decrement,
		}},
	}
}

// HelpMarkdown builds the markdown source of the help overlay.
func HelpMarkdown(app AppKeyMap, hier HierarchyKeyMap, field FieldKeyMap) string {
	var b strings.Builder
	b.WriteString("# graphview\n\n")
	for _, s := range helpSections(app, hier, field) {
		fmt.Fprintf(&b, "## %s\n\n| Key | Action |\n| --- | --- |\n", s.title)
		for _, kb := range s.bindings {
			h := kb.Help()
			if h.Key == "" {
				continue
			}
			fmt.Fprintf(&b, "| `%s` | %s |\n", h.Key, h.Desc)
		}
		b.WriteString("\n")
	}
	b.WriteString("## Mouse\n\n")
	b.WriteString("- Click a row to select it, ctrl+click to add it to the selection\n")
	b.WriteString("- Double-click a subgraph component to open it\n")
	b.WriteString("- Drag a number field sideways to scrub it (ctrl finer, shift coarser)\n")
	b.WriteString("- Right-click a field to reset it\n")
	return b.String()
}

// renderHelp renders the help overlay. Falls back to the raw markdown when
// glamour cannot render.
func renderHelp(theme Theme, md string, width, height int) string {
	modalWidth := min(max(width-4, 20), 80)

	body := md
	if r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(modalWidth-4),
	); err == nil {
		if out, err := r.Render(md); err == nil {
			body = strings.Trim(out, "\n")
		}
	}

	lines := strings.Split(body, "\n")
	if maxLines := height - 4; maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}

	modal := theme.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Secondary).
		Padding(0, 1).
		Width(modalWidth).
		Render(strings.Join(lines, "\n"))

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal)
}
