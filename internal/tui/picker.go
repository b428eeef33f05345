package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Item is one selectable row
type Item struct {
	Title  string
	Detail string
	Active bool
}

// PickerModel is a single-choice list
type PickerModel struct {
	title     string
	items     []Item
	cursor    int
	offset    int
	height    int
	keys      KeyMap
	chosen    int
	cancelled bool
}

// NewPicker creates a picker with the cursor on the first active item
func NewPicker(title string, items []Item) PickerModel {
	m := PickerModel{
		title:  title,
		items:  items,
		height: 24,
		keys:   DefaultKeyMap(),
		chosen: -1,
	}
	for i, it := range items {
		if it.Active {
			m.cursor = i
			break
		}
	}
	m.clampOffset()
	return m
}

// Init implements tea.Model
func (m PickerModel) Init() tea.Cmd { return nil }

// Update implements tea.Model
func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.clampOffset()
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.Cancel):
			m.cancelled = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Top):
			m.cursor = 0
		case key.Matches(msg, m.keys.Bottom):
			if len(m.items) > 0 {
				m.cursor = len(m.items) - 1
			}
		case key.Matches(msg, m.keys.Select):
			if len(m.items) > 0 {
				m.chosen = m.cursor
			}
			return m, tea.Quit
		}
		m.clampOffset()
	}
	return m, nil
}

// visibleRows leaves room for the title, separator, blank line and help
func (m PickerModel) visibleRows() int {
	rows := m.height - 5
	if rows < 3 {
		rows = 3
	}
	return rows
}

func (m *PickerModel) clampOffset() {
	rows := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
}

// View implements tea.Model
func (m PickerModel) View() string {
	var b strings.Builder
	b.WriteString(Title(m.title))
	b.WriteString("\n")

	if len(m.items) == 0 {
		b.WriteString(dimStyle.Render("nothing to choose from"))
		b.WriteString("\n")
	}

	end := m.offset + m.visibleRows()
	if end > len(m.items) {
		end = len(m.items)
	}
	for i := m.offset; i < end; i++ {
		it := m.items[i]
		label := "  " + it.Title
		if it.Active {
			label = "● " + it.Title
		}

		switch {
		case i == m.cursor:
			b.WriteString(selectedStyle.Render(label))
		case it.Active:
			b.WriteString(activeStyle.Render(label))
		default:
			b.WriteString(normalStyle.Render(label))
		}
		if it.Detail != "" {
			b.WriteString("  " + dimStyle.Render(it.Detail))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(renderHelp(m.keys.PickerHelp()))
	return b.String()
}

// Chosen returns the selected index, or -1
func (m PickerModel) Chosen() int { return m.chosen }

// Cancelled reports whether the user backed out
func (m PickerModel) Cancelled() bool { return m.cancelled }

// Pick shows items and returns the chosen index
func Pick(title string, items []Item) (int, error) {
	if !IsInteractive() {
		return -1, ErrNotTerminal
	}
	final, err := tea.NewProgram(NewPicker(title, items)).Run()
	if err != nil {
		return -1, err
	}
	m := final.(PickerModel)
	if m.Cancelled() || m.Chosen() < 0 {
		return -1, ErrCancelled
	}
	return m.Chosen(), nil
}
