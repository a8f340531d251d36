package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/epalmerini/rmqtools/internal/config"
)

type profileSelectedMsg struct {
	name string
}

type profilePickerModel struct {
	file        *config.FileConfig
	names       []string
	selectedIdx int
	width       int
	height      int
}

func newProfilePickerModel(file *config.FileConfig) profilePickerModel {
	return profilePickerModel{
		file:  file,
		names: file.ProfileNames(),
	}
}

func (m profilePickerModel) Init() tea.Cmd {
	return nil
}

func (m profilePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "j", "down":
			if m.selectedIdx < len(m.names)-1 {
				m.selectedIdx++
			}
		case "k", "up":
			if m.selectedIdx > 0 {
				m.selectedIdx--
			}
		case "enter":
			if len(m.names) > 0 {
				name := m.names[m.selectedIdx]
				return m, func() tea.Msg {
					return profileSelectedMsg{name: name}
				}
			}
		}
	}
	return m, nil
}

func (m profilePickerModel) View() string {
	var sb strings.Builder

	sb.WriteString(headerStyle.Width(max(m.width-2, 10)).Render("rmqtools"))
	sb.WriteString("\n\n")

	sb.WriteString(fieldNameStyle.Render("  Select a server profile"))
	sb.WriteString("\n\n")

	for i, name := range m.names {
		profile := m.file.Profiles[name]
		server := profile.Server
		if server == "" {
			server = m.file.Server
		}

		line := "  " + name
		if i == m.selectedIdx {
			line = selectedRowStyle.Render("> " + name)
		}
		sb.WriteString(line)
		sb.WriteString(mutedStyle.Render(fmt.Sprintf("  %s", server)))
		if profile.AMQPURL != "" {
			sb.WriteString(mutedStyle.Render("  +amqp"))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Left,
			helpKeyStyle.Render("j/k")+" navigate",
			"  │  ",
			helpKeyStyle.Render("enter")+" select",
			"  │  ",
			helpKeyStyle.Render("q")+" quit",
		),
	))

	return sb.String()
}
