package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/epalmerini/rmqtools/internal/db"
	"github.com/epalmerini/rmqtools/internal/index"
)

const snapshotListLimit = 200

type snapshotsLoadedMsg struct {
	snapshots []db.Snapshot
}

type snapshotDeletedMsg struct {
	id int64
}

// snapshotBrowserModel lists message sets recorded in the local store.
type snapshotBrowserModel struct {
	env           *env
	width, height int

	snapshots   []db.Snapshot
	filter      string
	visible     []int // indices into snapshots passing the filter
	selectedIdx int
	scrollOff   int

	prompt        *promptModel
	confirmDelete bool

	spinner spinner.Model
	loading bool
	err     error
	status  statusLine
}

func newSnapshotBrowserModel(e *env) snapshotBrowserModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return snapshotBrowserModel{
		env:     e,
		spinner: sp,
		loading: true,
	}
}

func (m snapshotBrowserModel) Init() tea.Cmd {
	return tea.Batch(m.loadSnapshots(), m.spinner.Tick)
}

func (m snapshotBrowserModel) loadSnapshots() tea.Cmd {
	e := m.env
	return func() tea.Msg {
		if e.store == nil {
			return errorMsg{err: fmt.Errorf("no local snapshot store")}
		}
		snaps, err := e.store.ListSnapshots(e.ctx, snapshotListLimit)
		if err != nil {
			return errorMsg{err: fmt.Errorf("failed to load snapshots: %w", err)}
		}
		return snapshotsLoadedMsg{snapshots: snaps}
	}
}

func (m snapshotBrowserModel) deleteSnapshot(id int64) tea.Cmd {
	e := m.env
	return func() tea.Msg {
		if err := e.store.DeleteSnapshot(e.ctx, id); err != nil {
			return errorMsg{err: fmt.Errorf("failed to delete snapshot: %w", err)}
		}
		return snapshotDeletedMsg{id: id}
	}
}

func (m snapshotBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case snapshotsLoadedMsg:
		m.loading = false
		m.err = nil
		m.snapshots = msg.snapshots
		m.applyFilter()

	case snapshotDeletedMsg:
		for i, s := range m.snapshots {
			if s.ID == msg.id {
				m.snapshots = append(m.snapshots[:i], m.snapshots[i+1:]...)
				break
			}
		}
		m.applyFilter()
		m.env.log.WithField("snapshot", msg.id).Info("Snapshot deleted")
		cmds = append(cmds, m.status.set("Snapshot deleted", m.env.now()))

	case promptSubmittedMsg:
		m.prompt = nil
		m.filter = msg.value
		m.applyFilter()

	case promptCancelledMsg:
		m.prompt = nil

	case errorMsg:
		m.loading = false
		m.err = msg.err

	case clearStatusMsg:
		m.status.text = ""

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	default:
		if m.prompt != nil {
			p, cmd := m.prompt.Update(msg)
			m.prompt = &p
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m snapshotBrowserModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.prompt != nil {
		p, cmd := m.prompt.Update(msg)
		m.prompt = &p
		m.filter = strings.TrimSpace(p.Value())
		m.applyFilter()
		return m, cmd
	}

	if m.confirmDelete {
		m.confirmDelete = false
		switch msg.String() {
		case "y", "enter":
			if s, ok := m.selected(); ok {
				return m, m.deleteSnapshot(s.ID)
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.selectedIdx > 0 {
			m.selectedIdx--
			if m.selectedIdx < m.scrollOff {
				m.scrollOff = m.selectedIdx
			}
		}
	case "down", "j":
		if m.selectedIdx < len(m.visible)-1 {
			m.selectedIdx++
			if m.selectedIdx >= m.scrollOff+m.visibleRows() {
				m.scrollOff++
			}
		}
	case "g":
		m.selectedIdx = 0
		m.scrollOff = 0
	case "G":
		if len(m.visible) > 0 {
			m.selectedIdx = len(m.visible) - 1
			m.scrollOff = max(m.selectedIdx-m.visibleRows()+1, 0)
		}
	case "/":
		p := newPromptModel(promptQueueFilter, "Filter snapshots", "queue or server", m.filter)
		m.prompt = &p
		return m, textinput.Blink
	case "esc":
		if m.filter != "" {
			m.filter = ""
			m.applyFilter()
		}
	case "enter":
		if s, ok := m.selected(); ok {
			return m, openQueue(openQueueMsg{queue: s.QueueName, source: sourceSnapshot, snapshotID: s.ID})
		}
	case "d":
		if _, ok := m.selected(); ok {
			m.confirmDelete = true
		}
	case "r":
		m.loading = true
		return m, tea.Batch(m.loadSnapshots(), m.spinner.Tick)
	}
	// "b" is handled by the app.
	return m, nil
}

func (m snapshotBrowserModel) busy() bool {
	return m.prompt != nil || m.confirmDelete
}

func (m *snapshotBrowserModel) applyFilter() {
	m.visible = m.visible[:0:0]
	for i, s := range m.snapshots {
		if m.filter == "" || index.LineMatches(s.QueueName, m.filter) || index.LineMatches(s.Server, m.filter) {
			m.visible = append(m.visible, i)
		}
	}
	if m.selectedIdx >= len(m.visible) {
		m.selectedIdx = max(len(m.visible)-1, 0)
	}
	if m.scrollOff > m.selectedIdx {
		m.scrollOff = m.selectedIdx
	}
}

func (m snapshotBrowserModel) selected() (db.Snapshot, bool) {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.visible) {
		return db.Snapshot{}, false
	}
	return m.snapshots[m.visible[m.selectedIdx]], true
}

func (m snapshotBrowserModel) visibleRows() int {
	return max(m.height-10, 1)
}

func (m snapshotBrowserModel) View() string {
	if m.width == 0 {
		return m.spinner.View() + " Loading..."
	}

	header := headerStyle.Width(m.width - 2).Render("rmqtools - Snapshots")

	var bottom string
	switch {
	case m.prompt != nil:
		bottom = m.prompt.View()
	case m.confirmDelete:
		s, _ := m.selected()
		bottom = errorStyle.Render(fmt.Sprintf("Delete snapshot of %s (%d messages)? (y/n)", s.QueueName, s.MessageCount))
	default:
		bottom = m.renderHelp()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, m.renderSnapshots(), bottom)
}

func (m snapshotBrowserModel) renderSnapshots() string {
	var sb strings.Builder
	width := m.width - 4
	height := m.height - 6

	title := fmt.Sprintf("Snapshots: %d", len(m.snapshots))
	if m.filter != "" {
		title = fmt.Sprintf("Snapshots: %d/%d matching %q", len(m.visible), len(m.snapshots), m.filter)
	}
	sb.WriteString(fieldNameStyle.Render(title) + m.status.view())
	sb.WriteString("\n\n")

	if m.loading {
		sb.WriteString("  " + m.spinner.View() + " Loading...")
		return listStyle.Width(width).Height(height).Render(sb.String())
	}
	if m.err != nil {
		sb.WriteString(errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)))
		return listStyle.Width(width).Height(height).Render(sb.String())
	}
	if len(m.visible) == 0 {
		sb.WriteString(mutedStyle.Render("  No snapshots recorded yet"))
		return listStyle.Width(width).Height(height).Render(sb.String())
	}

	end := min(m.scrollOff+m.visibleRows(), len(m.visible))
	for i := m.scrollOff; i < end; i++ {
		s := m.snapshots[m.visible[i]]
		line := fmt.Sprintf("%s  %-7s %6d msgs  %s  %s",
			s.TakenAt.Local().Format("2006-01-02 15:04:05"),
			s.Source, s.MessageCount,
			truncate(s.QueueName, 40),
			mutedStyle.Render(truncate(s.Server, 30)))
		if i == m.selectedIdx {
			sb.WriteString(selectedRowStyle.Render("▶ " + line))
		} else {
			sb.WriteString(normalStyle.Render("  " + line))
		}
		sb.WriteString("\n")
	}

	return listStyle.Width(width).Height(height).Render(sb.String())
}

func (m snapshotBrowserModel) renderHelp() string {
	keys := []struct{ key, desc string }{
		{"↑/k", "up"},
		{"↓/j", "down"},
		{"enter", "open"},
		{"/", "filter"},
		{"d", "delete"},
		{"r", "refresh"},
		{"b", "back"},
		{"q", "quit"},
	}

	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %s", helpKeyStyle.Render(k.key), k.desc))
	}
	return helpStyle.Render(strings.Join(parts, "  │  "))
}
