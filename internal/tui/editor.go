package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type payloadEditedMsg struct {
	messageID uint64
	payload   string
}

type editCancelledMsg struct{}

// editorModel edits one message payload.
type editorModel struct {
	messageID uint64
	original  string
	area      textarea.Model
}

func newEditorModel(messageID uint64, payload string, width, height int) editorModel {
	ta := textarea.New()
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.ShowLineNumbers = true
	ta.SetWidth(max(width-4, 20))
	ta.SetHeight(max(height-6, 3))
	ta.SetValue(payload)
	ta.Focus()

	return editorModel{
		messageID: messageID,
		original:  payload,
		area:      ta,
	}
}

func (m editorModel) dirty() bool {
	return m.area.Value() != m.original
}

func (m editorModel) Update(msg tea.Msg) (editorModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.area.SetWidth(max(msg.Width-4, 20))
		m.area.SetHeight(max(msg.Height-6, 3))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+s":
			id, payload := m.messageID, m.area.Value()
			return m, func() tea.Msg {
				return payloadEditedMsg{messageID: id, payload: payload}
			}
		case "esc":
			return m, func() tea.Msg { return editCancelledMsg{} }
		}
	}

	var cmd tea.Cmd
	m.area, cmd = m.area.Update(msg)
	return m, cmd
}

func (m editorModel) View() string {
	title := fmt.Sprintf("Edit payload of message #%d", m.messageID)
	if m.dirty() {
		title += " *"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		fieldNameStyle.Render(title),
		m.area.View(),
		helpStyle.Render(helpKeyStyle.Render("ctrl+s")+" save  │  "+helpKeyStyle.Render("esc")+" cancel"),
	)
}
