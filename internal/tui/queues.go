package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/epalmerini/rmqtools/internal/api"
	"github.com/epalmerini/rmqtools/internal/feed"
	"github.com/epalmerini/rmqtools/internal/index"
)

type connectionState int

const (
	stateDisconnected connectionState = iota
	stateConnecting
	stateConnected
)

type queuesLoadedMsg struct {
	queues []api.QueueSummary
	info   *api.EnvInfo
}

// showSnapshotsMsg asks the app to switch to the snapshot browser.
type showSnapshotsMsg struct{}

type queueListModel struct {
	env           *env
	width, height int

	queues      []api.QueueSummary
	info        *api.EnvInfo
	filter      string
	visible     []int // indices into queues passing the filter
	selectedIdx int
	scrollOff   int

	stats     counterStats
	feedState connectionState
	feedErr   error
	stream    *feed.Stream
	counters  <-chan feed.Snapshot

	prompt  *promptModel
	spinner spinner.Model
	loading bool
	err     error
	status  statusLine
}

func newQueueListModel(e *env) queueListModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	state := stateDisconnected
	if e.dialFeed != nil {
		state = stateConnecting
	}
	return queueListModel{
		env:       e,
		spinner:   sp,
		loading:   true,
		feedState: state,
	}
}

func (m queueListModel) Init() tea.Cmd {
	return tea.Batch(m.loadQueues(), connectFeedCmd(m.env), m.spinner.Tick)
}

func (m queueListModel) loadQueues() tea.Cmd {
	e := m.env
	return func() tea.Msg {
		queues, err := e.backend.QueueSummaries(e.ctx)
		if err != nil {
			return errorMsg{err: fmt.Errorf("failed to load queues: %w", err)}
		}
		msg := queuesLoadedMsg{queues: queues}
		// Environment info is decoration; the list works without it.
		if info, err := e.backend.EnvInfo(e.ctx); err == nil {
			msg.info = &info
		} else {
			e.log.WithError(err).Debug("Env info unavailable")
		}
		return msg
	}
}

func (m queueListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case queuesLoadedMsg:
		m.loading = false
		m.err = nil
		m.queues = msg.queues
		if msg.info != nil {
			m.info = msg.info
		}
		m.applyFilter()

	case feedConnectedMsg:
		m.feedState = stateConnected
		m.feedErr = nil
		m.stream = msg.stream
		m.counters = msg.ch
		m.env.log.Info("Counter feed connected")
		cmds = append(cmds, waitForCounters(m.stream, m.counters, m.env.now))

	case feedErrorMsg:
		m.feedState = stateDisconnected
		m.feedErr = msg.err
		m.env.log.WithError(msg.err).Warn("Counter feed unavailable")

	case countersMsg:
		m.stats.record(msg.at, msg.snap)
		if m.counters != nil {
			cmds = append(cmds, waitForCounters(m.stream, m.counters, m.env.now))
		}

	case feedClosedMsg:
		m.feedState = stateDisconnected
		m.feedErr = msg.err
		m.counters = nil
		if msg.err != nil {
			m.env.log.WithError(msg.err).Warn("Counter feed closed")
		}

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
		if m.loading || m.feedState == stateConnecting {
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

func (m queueListModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prompt != nil {
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		p, cmd := m.prompt.Update(msg)
		m.prompt = &p
		m.filter = strings.TrimSpace(p.Value())
		m.applyFilter()
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
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
		p := newPromptModel(promptQueueFilter, "Filter queues", "queue name", m.filter)
		m.prompt = &p
		return m, textinput.Blink
	case "esc":
		if m.filter != "" {
			m.filter = ""
			m.applyFilter()
		}
	case "enter":
		q, ok := m.selected()
		if !ok {
			return m, nil
		}
		id, err := q.ID()
		if err != nil {
			return m, m.status.set("Not stored yet, press l to load it", m.env.now())
		}
		return m, openQueue(openQueueMsg{queue: q.Name, queueID: id, hasID: true, source: sourceStored})
	case "l":
		if q, ok := m.selected(); ok {
			return m, openQueue(openQueueMsg{queue: q.Name, source: sourceLoad})
		}
	case "p":
		if q, ok := m.selected(); ok {
			return m, openQueue(openQueueMsg{queue: q.Name, source: sourcePeek})
		}
	case "S":
		if m.env.store != nil {
			return m, func() tea.Msg { return showSnapshotsMsg{} }
		}
		return m, m.status.set("No local snapshot store", m.env.now())
	case "r":
		m.loading = true
		cmds := []tea.Cmd{m.loadQueues(), m.spinner.Tick}
		if m.feedState == stateDisconnected && m.env.dialFeed != nil {
			m.feedState = stateConnecting
			cmds = append(cmds, connectFeedCmd(m.env))
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func openQueue(msg openQueueMsg) tea.Cmd {
	return func() tea.Msg { return msg }
}

func (m *queueListModel) applyFilter() {
	m.visible = m.visible[:0:0]
	for i, q := range m.queues {
		if m.filter == "" || index.LineMatches(q.Name, m.filter) {
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

func (m queueListModel) selected() (api.QueueSummary, bool) {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.visible) {
		return api.QueueSummary{}, false
	}
	return m.queues[m.visible[m.selectedIdx]], true
}

func (m queueListModel) visibleRows() int {
	return max(m.height-12, 1)
}

// shutdown stops the counter feed.
func (m queueListModel) shutdown() {
	if m.stream != nil {
		_ = m.stream.Close()
	}
}

func (m queueListModel) View() string {
	if m.width == 0 {
		return m.spinner.View() + " Loading..."
	}

	header := headerStyle.Width(m.width - 2).Render("rmqtools  " + m.serverLabel())

	var bottom string
	if m.prompt != nil {
		bottom = m.prompt.View()
	} else {
		bottom = m.renderHelp()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.renderStatusBar(),
		m.renderQueues(),
		bottom,
	)
}

func (m queueListModel) serverLabel() string {
	label := m.env.cfg.ServerURL
	if m.env.cfg.Profile != "" {
		label = m.env.cfg.Profile + " · " + label
	}
	if m.info != nil {
		c := m.info.Connection
		label += fmt.Sprintf("  (%s%s)", c.Domain, c.VHost)
	}
	return label
}

func (m queueListModel) renderStatusBar() string {
	var feedStatus string
	switch m.feedState {
	case stateConnected:
		feedStatus = connectedStyle.Render("● Live")
		if m.stats.updates > 0 {
			feedStatus += statusBarStyle.Render(fmt.Sprintf("%s, updated %s ago",
				formatRate(m.stats.perMinute(m.env.now())),
				formatAge(m.env.now().Sub(m.stats.lastUpdate))))
		}
	case stateConnecting:
		feedStatus = statusBarStyle.Render(m.spinner.View() + " Connecting feed...")
	default:
		text := "○ No live counters"
		if m.feedErr != nil {
			text += fmt.Sprintf(" (%s)", m.feedErr.Error())
		}
		feedStatus = disconnectedStyle.Render(text)
	}

	count := statusBarStyle.Render(fmt.Sprintf("Queues: %d", len(m.queues)))
	if m.filter != "" {
		count = statusBarStyle.Render(fmt.Sprintf("Queues: %d/%d matching %q", len(m.visible), len(m.queues), m.filter))
	}
	return feedStatus + "  │  " + count + m.status.view()
}

func (m queueListModel) renderQueues() string {
	var sb strings.Builder
	width := m.width - 4
	height := m.height - 8

	if m.loading && len(m.queues) == 0 {
		sb.WriteString("  " + m.spinner.View() + " Loading...")
		return listStyle.Width(width).Height(height).Render(sb.String())
	}
	if m.err != nil {
		sb.WriteString(errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)))
		return listStyle.Width(width).Height(height).Render(sb.String())
	}
	if len(m.visible) == 0 {
		sb.WriteString(mutedStyle.Render("  No queues found"))
		return listStyle.Width(width).Height(height).Render(sb.String())
	}

	nameWidth := max(width-40, 12)
	sb.WriteString(fieldNameStyle.Render(fmt.Sprintf("  %-*s %10s %10s %10s", nameWidth, "QUEUE", "BROKER", "STORED", "IN-FLIGHT")))
	sb.WriteString("\n")

	end := min(m.scrollOff+m.visibleRows(), len(m.visible))
	for i := m.scrollOff; i < end; i++ {
		q := m.queues[m.visible[i]]

		live := "-"
		if n, ok := m.stats.count(q.Name); ok {
			live = formatCount(n)
		}
		stored := "-"
		if q.Stored() {
			stored = formatCount(int64(q.MessageCountInDB))
		}
		name := truncate(q.Name, nameWidth)
		if q.Exclusive {
			name = truncate(q.Name+" (excl)", nameWidth)
		}
		line := fmt.Sprintf("%-*s %10s %10s %10s", nameWidth, name,
			formatCount(int64(q.MessageCountInRMQ)), stored, live)

		if i == m.selectedIdx {
			sb.WriteString(selectedRowStyle.Render("▶ " + line))
		} else {
			sb.WriteString(normalStyle.Render("  " + line))
		}
		sb.WriteString(" " + trendArrow(m.stats.trend(q.Name)))
		sb.WriteString("\n")
	}

	return listStyle.Width(width).Height(height).Render(sb.String())
}

func (m queueListModel) renderHelp() string {
	keys := []struct{ key, desc string }{
		{"↑/k", "up"},
		{"↓/j", "down"},
		{"enter", "stored"},
		{"l", "load"},
		{"p", "peek"},
		{"/", "filter"},
		{"r", "refresh"},
	}
	if m.env.store != nil {
		keys = append(keys, struct{ key, desc string }{"S", "snapshots"})
	}
	keys = append(keys, struct{ key, desc string }{"q", "quit"})

	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %s", helpKeyStyle.Render(k.key), k.desc))
	}
	return helpStyle.Render(strings.Join(parts, "  │  "))
}
