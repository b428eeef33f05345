package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// ConfirmModel asks a yes/no question
type ConfirmModel struct {
	prompt   string
	keys     KeyMap
	answered bool
	yes      bool
}

// NewConfirm creates a confirmation prompt. Anything but an explicit yes
// counts as no.
func NewConfirm(prompt string) ConfirmModel {
	return ConfirmModel{prompt: prompt, keys: DefaultKeyMap()}
}

// Init implements tea.Model
func (m ConfirmModel) Init() tea.Cmd { return nil }

// Update implements tea.Model
func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Yes):
		m.answered, m.yes = true, true
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.No),
		key.Matches(keyMsg, m.keys.Cancel),
		key.Matches(keyMsg, m.keys.Quit),
		key.Matches(keyMsg, m.keys.Select):
		m.answered, m.yes = true, false
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model
func (m ConfirmModel) View() string {
	if m.answered {
		return ""
	}
	return titleStyle.Render(m.prompt) + " " + dimStyle.Render("[y/N]") + "\n" + renderHelp(m.keys.ConfirmHelp()) + "\n"
}

// Confirmed reports whether the user said yes
func (m ConfirmModel) Confirmed() bool { return m.yes }

// Confirm asks prompt and reports the answer
func Confirm(prompt string) (bool, error) {
	if !IsInteractive() {
		return false, ErrNotTerminal
	}
	final, err := tea.NewProgram(NewConfirm(prompt)).Run()
	if err != nil {
		return false, err
	}
	return final.(ConfirmModel).Confirmed(), nil
}
