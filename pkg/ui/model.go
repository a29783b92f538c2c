package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/graphview/internal/datasource"
	"github.com/vanderheijden86/graphview/pkg/config"
	"github.com/vanderheijden86/graphview/pkg/debug"
	"github.com/vanderheijden86/graphview/pkg/graph"
	"github.com/vanderheijden86/graphview/pkg/metrics"
	"github.com/vanderheijden86/graphview/pkg/scene"
	"github.com/vanderheijden86/graphview/pkg/watcher"
)

// SceneChangedMsg is sent when the scene file changes on disk
type SceneChangedMsg struct{}

// sceneLoadedMsg carries a document read off the UI goroutine.
type sceneLoadedMsg struct {
	doc *scene.Document
	err error
}

// statusClearMsg expires a status message unless a newer one replaced it.
type statusClearMsg struct{ seq int }

const statusTTL = 4 * time.Second

// WatchSceneCmd returns a command that waits for scene changes and sends SceneChangedMsg
func WatchSceneCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return SceneChangedMsg{}
	}
}

// LoadSceneCmd reads path in the background.
func LoadSceneCmd(path string) tea.Cmd {
	return func() tea.Msg {
		doc, err := datasource.Load(path)
		return sceneLoadedMsg{doc: doc, err: err}
	}
}

type focus int

const (
	focusHierarchy focus = iota
	focusInspector
)

// Model is the main Bubble Tea model: the hierarchy of the active graph on
// the left and the properties of the selection on the right.
type Model struct {
	sys *graph.System
	sel *graph.Selection
	idx *scene.Index

	cfg   config.Config
	theme Theme
	keys  AppKeyMap

	hierarchy *HierarchyView
	inspector *Inspector
	focused   focus

	scenePath string
	watcher   *watcher.Watcher

	showHelp bool
	helpMD   string

	width  int
	height int

	statusMsg     string
	statusIsError bool
	statusSeq     int

	copyText func(string) error
}

// NewModel wires the views to a live system. idx may be nil when the
// system was not built from a scene document; live reloads then do nothing.
func NewModel(sys *graph.System, sel *graph.Selection, idx *scene.Index, cfg config.Config) (Model, error) {
	if sys == nil || sel == nil {
		return Model{}, errors.New("model requires a system and a selection")
	}
	theme := DefaultTheme(lipgloss.DefaultRenderer())

	hierarchy, err := NewHierarchyView(sel, sys, theme, cfg.Tree)
	if err != nil {
		return Model{}, err
	}
	inspector, err := NewInspector(sel, theme, cfg.Field)
	if err != nil {
		return Model{}, err
	}
	hierarchy.Mount()
	inspector.Mount()

	m := Model{
		sys:       sys,
		sel:       sel,
		idx:       idx,
		cfg:       cfg,
		theme:     theme,
		keys:      DefaultAppKeyMap(),
		hierarchy: hierarchy,
		inspector: inspector,
		helpMD:    HelpMarkdown(DefaultAppKeyMap(), DefaultHierarchyKeyMap(), DefaultFieldKeyMap()),
		width:     80,
		height:    24,
		copyText:  clipboard.WriteAll,
	}
	m.applyFocus()
	m.resize()
	return m, nil
}

// WithScene records where the scene came from so it can be reloaded. A
// non-nil watcher triggers reloads on change.
func (m Model) WithScene(path string, w *watcher.Watcher) Model {
	m.scenePath = path
	m.watcher = w
	return m
}

// Close unmounts the views and releases their subscriptions.
func (m Model) Close() {
	m.hierarchy.Unmount()
	m.inspector.Unmount()
}

// Hierarchy exposes the hierarchy view.
func (m Model) Hierarchy() *HierarchyView { return m.hierarchy }

// Inspector exposes the inspector.
func (m Model) Inspector() *Inspector { return m.inspector }

// Index returns the scene index kept in sync by reloads.
func (m Model) Index() *scene.Index { return m.idx }

// Status returns the current status line text and whether it is an error.
func (m Model) Status() (string, bool) { return m.statusMsg, m.statusIsError }

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.watcher != nil {
		cmds = append(cmds, WatchSceneCmd(m.watcher))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()

	case SceneChangedMsg:
		if m.scenePath != "" && m.idx != nil {
			cmds = append(cmds, LoadSceneCmd(m.scenePath))
		}
		if m.watcher != nil {
			cmds = append(cmds, WatchSceneCmd(m.watcher))
		}

	case sceneLoadedMsg:
		cmds = append(cmds, m.applyScene(msg.doc, msg.err))

	case statusClearMsg:
		if msg.seq == m.statusSeq {
			m.statusMsg = ""
			m.statusIsError = false
		}

	case tea.BlurMsg:
		cmds = append(cmds, m.inspector.Update(msg))

	case tea.MouseMsg:
		cmds = append(cmds, m.handleMouse(msg))

	case tea.KeyMsg:
		var quit bool
		var cmd tea.Cmd
		m, cmd, quit = m.handleKey(msg)
		if quit {
			m.Close()
			return m, tea.Quit
		}
		cmds = append(cmds, cmd)

	default:
		// Flash expiries and text input blinks belong to the fields.
		cmds = append(cmds, m.inspector.Update(msg))
	}

	cmds = append(cmds, m.inspector.TakeCmds())
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		return m, nil, true
	}
	if m.showHelp {
		if key.Matches(msg, m.keys.Help) || msg.String() == "esc" || key.Matches(msg, m.keys.Quit) {
			m.showHelp = false
		}
		return m, nil, false
	}
	if m.focused == focusInspector && m.inspector.CapturesKeys() {
		return m, m.inspector.Update(msg), false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, nil, true
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil, false
	case key.Matches(msg, m.keys.FocusNext), key.Matches(msg, m.keys.FocusPrev):
		m.setFocus(1 - m.focused)
		return m, nil, false
	case key.Matches(msg, m.keys.Copy):
		return m.copySelection()
	}

	if m.focused == focusInspector {
		return m, m.inspector.Update(msg), false
	}
	return m, m.hierarchy.Update(msg), false
}

func (m Model) copySelection() (Model, tea.Cmd, bool) {
	var text string
	if m.focused == focusInspector {
		if f := m.inspector.FocusedField(); f != nil {
			text = f.Text()
		}
	} else {
		text = m.hierarchy.SelectionPath()
	}
	if text == "" {
		return m, m.setStatus("Nothing to copy", false), false
	}
	if err := m.copyText(text); err != nil {
		return m, m.setStatus(fmt.Sprintf("Clipboard error: %v", err), true), false
	}
	return m, m.setStatus(fmt.Sprintf("Copied %s", truncate(text, 40)), false), false
}

// leftWidth is the hierarchy pane width. The column after it is the divider.
func (m Model) leftWidth() int {
	ratio := m.cfg.UI.SplitRatio
	if ratio <= 0 {
		ratio = 0.45
	}
	return clampInt(int(float64(m.width)*ratio), 10, max(m.width-12, 10))
}

func (m Model) bodyHeight() int {
	return max(m.height-1, 1)
}

func (m *Model) resize() {
	left := m.leftWidth()
	m.hierarchy.SetSize(left, m.bodyHeight())
	m.inspector.SetSize(max(m.width-left-1, 1), m.bodyHeight())
}

func (m *Model) setFocus(f focus) {
	if f == m.focused {
		return
	}
	m.focused = f
	m.applyFocus()
}

func (m *Model) applyFocus() {
	m.hierarchy.SetFocused(m.focused == focusHierarchy)
	m.inspector.SetFocused(m.focused == focusInspector)
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if m.showHelp {
		if msg.Action == tea.MouseActionPress {
			m.showHelp = false
		}
		return nil
	}

	left := m.leftWidth()
	inner := msg
	inner.X -= left + 1

	// A field keeps receiving the pointer until it lets go, wherever the
	// pointer travels.
	if m.inspector.CapturesPointer() {
		return m.inspector.Update(inner)
	}
	if msg.Y >= m.bodyHeight() {
		return nil
	}

	pressed := msg.Action == tea.MouseActionPress &&
		(msg.Button == tea.MouseButtonLeft || msg.Button == tea.MouseButtonRight)

	switch {
	case msg.X < left:
		if pressed {
			m.setFocus(focusHierarchy)
		}
		return m.hierarchy.Update(msg)
	case msg.X > left:
		if pressed {
			m.setFocus(focusInspector)
		}
		return m.inspector.Update(inner)
	}
	return nil
}

// applyScene reconciles the live system with a reloaded document.
func (m *Model) applyScene(doc *scene.Document, err error) tea.Cmd {
	if err != nil {
		debug.Log("scene reload failed: %v", err)
		return m.setStatus(fmt.Sprintf("Reload failed: %v", err), true)
	}
	if m.idx == nil {
		return nil
	}
	ch, err := scene.Apply(m.sys, m.idx, doc)
	if err != nil {
		return m.setStatus(fmt.Sprintf("Reload failed: %v", err), true)
	}
	if ch.Empty() {
		return nil
	}
	// Renames carry no structural event.
	if ch.Renamed > 0 {
		m.hierarchy.Tree().Invalidate()
	}
	return m.setStatus("Reloaded: "+ch.String(), false)
}

func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.statusMsg = text
	m.statusIsError = isErr
	seq := m.statusSeq
	return tea.Tick(statusTTL, func(time.Time) tea.Msg {
		return statusClearMsg{seq: seq}
	})
}

func (m Model) View() string {
	defer metrics.Timer(metrics.UIRender)()

	finalStyle := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		MaxHeight(m.height)

	footer := m.renderFooter()
	if m.showHelp {
		body := renderHelp(m.theme, m.helpMD, m.width, m.bodyHeight())
		return finalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, body, footer))
	}

	left := m.leftWidth()
	height := m.bodyHeight()

	leftPane := lipgloss.NewStyle().Width(left).Height(height).MaxHeight(height).
		Render(m.hierarchy.View())
	divider := m.theme.Renderer.NewStyle().Foreground(m.theme.Border).
		Render(strings.TrimSuffix(strings.Repeat("│\n", height), "\n"))
	rightPane := lipgloss.NewStyle().Width(max(m.width-left-1, 1)).Height(height).MaxHeight(height).
		Render(m.inspector.View())

	body := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, divider, rightPane)
	return finalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, body, footer))
}

func (m Model) renderFooter() string {
	if m.statusMsg != "" {
		style := m.theme.Renderer.NewStyle().Foreground(ColorSuccess)
		if m.statusIsError {
			style = style.Foreground(ColorDanger)
		}
		return style.Render(fitWidth(m.statusMsg, m.width))
	}

	pane := "hierarchy"
	if m.focused == focusInspector {
		pane = "inspector"
	}
	parts := []string{pane, fmt.Sprintf("%d nodes", m.sys.NodeCount())}
	if m.watcher != nil {
		parts = append(parts, "watching")
	}
	parts = append(parts, "? help", "q quit")
	return m.theme.MutedText.Render(fitWidth(strings.Join(parts, " · "), m.width))
}
