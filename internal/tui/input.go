package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// InputModel reads one line of text, optionally hidden
type InputModel struct {
	prompt    string
	input     textinput.Model
	keys      KeyMap
	errMsg    string
	done      bool
	cancelled bool
}

// NewInput creates a text prompt. Secret input is echoed as bullets.
func NewInput(prompt, placeholder string, secret bool) InputModel {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 512
	in.Width = 48
	if secret {
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '•'
	}
	in.Focus()
	return InputModel{prompt: prompt, input: in, keys: DefaultKeyMap()}
}

// Init implements tea.Model
func (m InputModel) Init() tea.Cmd { return textinput.Blink }

// Update implements tea.Model
func (m InputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, m.keys.Quit), keyMsg.Type == tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		case key.Matches(keyMsg, m.keys.Select):
			if strings.TrimSpace(m.input.Value()) == "" {
				m.errMsg = "a value is required"
				return m, nil
			}
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.errMsg = ""
	return m, cmd
}

// View implements tea.Model
func (m InputModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.prompt))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.errMsg != "" {
		b.WriteString(errorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}
	return b.String()
}

// Value returns the trimmed input
func (m InputModel) Value() string { return strings.TrimSpace(m.input.Value()) }

// Prompt reads one value from the terminal
func Prompt(prompt, placeholder string, secret bool) (string, error) {
	if !IsInteractive() {
		return "", ErrNotTerminal
	}
	final, err := tea.NewProgram(NewInput(prompt, placeholder, secret)).Run()
	if err != nil {
		return "", err
	}
	m := final.(InputModel)
	if m.cancelled {
		return "", ErrCancelled
	}
	return m.Value(), nil
}
