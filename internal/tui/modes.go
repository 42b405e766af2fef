// Package tui provides terminal user interface components for capsule.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/capsule-dev/capsule/internal/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)
)

// modeItem implements list.Item for permission mode display.
type modeItem struct {
	mode session.PermissionMode
	desc string
}

func (i modeItem) Title() string       { return string(i.mode) }
func (i modeItem) Description() string { return i.desc }
func (i modeItem) FilterValue() string { return string(i.mode) }

var modeDescriptions = map[session.PermissionMode]string{
	session.PermissionDefault:     "Prompt for each permission",
	session.PermissionAcceptEdits: "Accept file edits without prompting",
	session.PermissionPlan:        "Plan only, no changes",
	session.PermissionBypass:      "Skip all permission prompts",
}

// modeModel is the bubbletea model for the permission mode picker.
type modeModel struct {
	list     list.Model
	selected session.PermissionMode
	aborted  bool
}

func newModeModel() modeModel {
	modes := session.PermissionModes()
	items := make([]list.Item, len(modes))
	for i, mode := range modes {
		items[i] = modeItem{mode: mode, desc: modeDescriptions[mode]}
	}

	l := list.New(items, list.NewDefaultDelegate(), 48, 14)
	l.Title = "Select permission mode"
	l.Styles.Title = titleStyle
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return modeModel{list: l}
}

func (m modeModel) Init() tea.Cmd {
	return nil
}

func (m modeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(modeItem); ok {
				m.selected = item.mode
			}
			return m, tea.Quit
		case "q", "esc", "ctrl+c":
			m.aborted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m modeModel) View() string {
	return m.list.View() + helpStyle.Render("\nenter select · esc cancel")
}

// PickPermissionMode runs an interactive picker for the permission mode.
// Cancelling returns the empty (unset) mode.
func PickPermissionMode() (session.PermissionMode, error) {
	final, err := tea.NewProgram(newModeModel()).Run()
	if err != nil {
		return "", fmt.Errorf("mode picker failed: %w", err)
	}

	m, ok := final.(modeModel)
	if !ok || m.aborted {
		return "", nil
	}
	return m.selected, nil
}
