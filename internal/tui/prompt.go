package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type promptPurpose int

const (
	promptFilter promptPurpose = iota
	promptGroup
	promptSend
	promptQueueFilter
)

type promptSubmittedMsg struct {
	purpose promptPurpose
	value   string
}

type promptCancelledMsg struct {
	purpose promptPurpose
}

// promptModel is a one-line input shown in place of the help bar.
type promptModel struct {
	purpose promptPurpose
	label   string
	input   textinput.Model
}

func newPromptModel(purpose promptPurpose, label, placeholder, value string) promptModel {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 200
	ti.Width = 40
	ti.SetValue(value)
	ti.CursorEnd()
	ti.Focus()

	return promptModel{
		purpose: purpose,
		label:   label,
		input:   ti,
	}
}

func (m promptModel) Value() string {
	return m.input.Value()
}

func (m promptModel) Update(msg tea.Msg) (promptModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			purpose, value := m.purpose, strings.TrimSpace(m.input.Value())
			return m, func() tea.Msg {
				return promptSubmittedMsg{purpose: purpose, value: value}
			}
		case tea.KeyEsc:
			purpose := m.purpose
			return m, func() tea.Msg {
				return promptCancelledMsg{purpose: purpose}
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	return helpStyle.Render(m.label+": ") + m.input.View() +
		helpStyle.Render("  (enter to apply, esc to cancel)")
}
