package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/epalmerini/rmqtools/internal/config"
	"github.com/epalmerini/rmqtools/internal/db"
	"github.com/epalmerini/rmqtools/internal/index"
)

// messageSource says where a message view got its messages from.
type messageSource int

const (
	sourceStored messageSource = iota
	sourceLoad
	sourcePeek
	sourceSnapshot
)

func (s messageSource) String() string {
	switch s {
	case sourceLoad:
		return "loaded"
	case sourcePeek:
		return "peek"
	case sourceSnapshot:
		return "snapshot"
	}
	return "stored"
}

func (s messageSource) dbSource() db.Source {
	switch s {
	case sourceLoad:
		return db.SourceLoad
	case sourcePeek:
		return db.SourcePeek
	}
	return db.SourceStored
}

// openQueueMsg asks the app to show a queue's messages.
type openQueueMsg struct {
	queue      string
	queueID    uint64
	hasID      bool
	source     messageSource
	snapshotID int64
}

// Replies to a message view's commands carry the view's token; a view drops
// replies meant for one it replaced.

type messagesLoadedMsg struct {
	view     uint64
	messages []index.Message
	queueID  uint64
	hasID    bool
	cached   *index.Index
}

type mutationDoneMsg struct {
	view    uint64
	queueID uint64
	verb    string
	dest    string
	ids     []uint64
}

type payloadSavedMsg struct {
	view      uint64
	queueID   uint64
	messageID uint64
	payload   string
}

// listRow is one line of the message list: a group header or an item.
type listRow struct {
	group *index.Group
	item  *index.Item
}

type messageModel struct {
	env    *env
	view   uint64 // token matching replies to this view
	source messageSource
	queue  string

	queueID    uint64
	hasID      bool
	snapshotID int64

	idx     *index.Index
	reasons map[uint64]string
	sel     index.Selection

	filter     string
	prevFilter string
	groupSel   string
	groupMode  index.GroupMode
	showMode   index.ShowMode

	groups []index.Group
	rows   []listRow
	cursor int

	loading bool
	err     error

	prompt        *promptModel
	editor        *editorModel
	confirmDelete bool
	showHelp      bool
	vimKeys       VimKeyState

	splitRatio   float64
	detailOffset int
	width        int
	height       int

	spinner spinner.Model
	status  statusLine
}

func newMessageModel(e *env, open openQueueMsg) messageModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	ratio := e.cfg.DefaultSplitRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.5
	}

	return messageModel{
		env:        e,
		view:       e.nextView(),
		source:     open.source,
		queue:      open.queue,
		queueID:    open.queueID,
		hasID:      open.hasID,
		snapshotID: open.snapshotID,
		idx:        index.New(nil),
		sel:        index.Selection{},
		groupMode:  e.cfg.GroupMode,
		showMode:   e.cfg.ShowMode,
		loading:    true,
		vimKeys:    NewVimKeyState(),
		splitRatio: ratio,
		spinner:    sp,
	}
}

func (m messageModel) Init() tea.Cmd {
	return tea.Batch(m.fetch(false), m.spinner.Tick)
}

func (m messageModel) log() *logrus.Entry {
	return m.env.log.WithFields(logrus.Fields{
		"queue":  m.queue,
		"source": m.source.String(),
	})
}

// fetch loads the view's messages from its source. Stored queues are served
// from the index cache unless force is set.
func (m messageModel) fetch(force bool) tea.Cmd {
	e, view := m.env, m.view
	queue, queueID, snapshotID := m.queue, m.queueID, m.snapshotID
	limit := e.cfg.MessageLimit()
	fail := func(format string, args ...any) tea.Msg {
		return errorMsg{view: view, err: fmt.Errorf(format, args...)}
	}

	switch m.source {
	case sourceStored:
		if !force {
			if x, ok := e.cache.get(queueID); ok {
				return func() tea.Msg {
					return messagesLoadedMsg{view: view, cached: x, queueID: queueID, hasID: true}
				}
			}
		}
		return func() tea.Msg {
			msgs, err := e.backend.StoredMessages(e.ctx, queueID)
			if err != nil {
				return fail("load stored messages of %s: %w", queue, err)
			}
			return messagesLoadedMsg{view: view, messages: msgs, queueID: queueID, hasID: true}
		}

	case sourceLoad:
		return func() tea.Msg {
			res, err := e.backend.Load(e.ctx, queue)
			if err != nil {
				return fail("load %s: %w", queue, err)
			}
			return messagesLoadedMsg{view: view, messages: res.Messages, queueID: res.QueueID, hasID: true}
		}

	case sourcePeek:
		// Peeked ids are broker positions, not stored ids, so the view
		// stays read-only.
		return func() tea.Msg {
			var msgs []index.Message
			var err error
			if e.peeker != nil {
				msgs, err = e.peeker.Peek(e.ctx, queue, limit)
			} else {
				msgs, err = e.backend.Peek(e.ctx, queue)
			}
			if err != nil {
				return fail("peek %s: %w", queue, err)
			}
			return messagesLoadedMsg{view: view, messages: msgs}
		}

	case sourceSnapshot:
		return func() tea.Msg {
			if e.store == nil {
				return fail("snapshot %d: no local store", snapshotID)
			}
			msgs, err := e.store.SnapshotMessages(e.ctx, snapshotID)
			if err != nil {
				return fail("snapshot %d: %w", snapshotID, err)
			}
			return messagesLoadedMsg{view: view, messages: msgs}
		}
	}
	return nil
}

// busy reports whether a prompt, editor or overlay is taking key input.
func (m messageModel) busy() bool {
	return m.editor != nil || m.prompt != nil || m.confirmDelete || m.showHelp || m.vimKeys.Pending() != ""
}

// readOnly reports whether server-side mutations are impossible.
func (m messageModel) readOnly() bool {
	return m.source == sourceSnapshot || m.source == sourcePeek || !m.hasID
}

func (m messageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.editor != nil {
			ed, cmd := m.editor.Update(msg)
			m.editor = &ed
			cmds = append(cmds, cmd)
		}

	case messagesLoadedMsg:
		if msg.view != m.view {
			m.log().Debug("Dropping messages fetched for a closed view")
			break
		}
		m.loading = false
		m.err = nil
		if msg.hasID {
			m.queueID, m.hasID = msg.queueID, true
		}
		if msg.cached != nil {
			m.idx = msg.cached
		} else {
			m.idx = index.New(msg.messages)
			m.record(msg.messages)
			if m.source == sourceStored || m.source == sourceLoad {
				m.env.cache.put(m.queueID, m.idx)
			}
		}
		m.sel = index.Selection{}
		m.cursor = 0
		m.detailOffset = 0
		m.indexReasons()
		m.rebuild()
		m.log().WithField("messages", m.idx.Len()).Debug("Messages loaded")

	case mutationDoneMsg:
		if msg.view != m.view {
			break
		}
		removed := m.idx.Remove(msg.ids)
		m.sel = index.Selection{}
		m.indexReasons()
		m.rebuild()
		m.log().WithFields(logrus.Fields{"op": msg.verb, "messages": removed}).Info("Messages changed")
		text := fmt.Sprintf("%s %d message(s)", msg.verb, removed)
		if msg.dest != "" {
			text += " to " + msg.dest
		}
		cmds = append(cmds, m.status.set(text, m.env.now()))

	case payloadSavedMsg:
		if msg.view != m.view {
			break
		}
		m.applyEdit(msg.messageID, msg.payload)
		cmds = append(cmds, m.status.set(fmt.Sprintf("Saved message #%d", msg.messageID), m.env.now()))

	case payloadEditedMsg:
		m.editor = nil
		cmds = append(cmds, m.savePayload(msg.messageID, msg.payload))

	case editCancelledMsg:
		m.editor = nil

	case promptSubmittedMsg:
		m.prompt = nil
		cmds = append(cmds, m.applyPrompt(msg))

	case promptCancelledMsg:
		m.prompt = nil
		if msg.purpose == promptFilter {
			m.setFilter(m.prevFilter)
		}

	case errorMsg:
		if msg.view != m.view {
			break
		}
		m.loading = false
		m.err = msg.err
		m.log().WithError(msg.err).Warn("Operation failed")

	case clearStatusMsg:
		m.status.text = ""

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	default:
		if m.editor != nil {
			ed, cmd := m.editor.Update(msg)
			m.editor = &ed
			cmds = append(cmds, cmd)
		} else if m.prompt != nil {
			p, cmd := m.prompt.Update(msg)
			m.prompt = &p
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m messageModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.editor != nil {
		ed, cmd := m.editor.Update(msg)
		m.editor = &ed
		return m, cmd
	}

	if m.prompt != nil {
		p, cmd := m.prompt.Update(msg)
		m.prompt = &p
		// The line filter follows the input as it is typed.
		if p.purpose == promptFilter {
			m.setFilter(strings.TrimSpace(p.Value()))
		}
		return m, cmd
	}

	if m.confirmDelete {
		m.confirmDelete = false
		switch msg.String() {
		case "y", "enter":
			return m, m.deleteTargets()
		}
		return m, m.status.set("Delete cancelled", m.env.now())
	}

	if m.showHelp {
		switch msg.String() {
		case "?", "esc", "q":
			m.showHelp = false
		}
		return m, nil
	}

	switch msg.String() {
	case "up":
		m.moveBy(-1)
		return m, nil
	case "down":
		m.moveBy(1)
		return m, nil
	case "ctrl+u":
		m.moveBy(-m.visibleRows() / 2)
		return m, nil
	case "ctrl+d":
		m.moveBy(m.visibleRows() / 2)
		return m, nil
	case "ctrl+j":
		m.detailOffset++
		return m, nil
	case "ctrl+k":
		if m.detailOffset > 0 {
			m.detailOffset--
		}
		return m, nil
	case "esc":
		// Clear the filter and grouping before anything else.
		if m.filter != "" || m.groupSel != "" {
			m.filter, m.groupSel = "", ""
			m.rebuild()
		}
		return m, nil
	}

	result := m.vimKeys.ProcessKey(msg.String())
	switch result.Action {
	case actionDown:
		m.moveBy(result.Count)
	case actionUp:
		m.moveBy(-result.Count)
	case actionTop:
		m.cursor = 0
		m.detailOffset = 0
	case actionBottom:
		if len(m.rows) > 0 {
			m.cursor = len(m.rows) - 1
			m.detailOffset = 0
		}
	case actionFilter:
		m.prevFilter = m.filter
		return m, m.openPrompt(promptFilter, "Filter lines", "text to match", m.filter)
	case actionGroup:
		return m, m.openPrompt(promptGroup, "Group by", "text in the line to group on", m.groupSel)
	case actionSelectGroup:
		m.selectCurrentGroup()
	case actionToggleSelect:
		m.toggleCurrent()
		m.moveBy(1)
	case actionClearSelection:
		m.sel.Clear()
	case actionCycleShow:
		m.showMode = m.showMode.Next()
		m.rebuild()
	case actionDelete:
		if m.readOnly() {
			return m, m.status.set("Read-only: "+m.source.String(), m.env.now())
		}
		if m.idx.Len() == 0 {
			return m, nil
		}
		m.confirmDelete = true
	case actionSend:
		if m.readOnly() {
			return m, m.status.set("Read-only: "+m.source.String(), m.env.now())
		}
		return m, m.openPrompt(promptSend, "Send to queue", "destination queue", "")
	case actionEdit:
		return m, m.startEdit()
	case actionYank:
		return m, m.yank()
	case actionExport:
		return m, m.export()
	case actionReload:
		m.loading = true
		m.err = nil
		return m, tea.Batch(m.fetch(true), m.spinner.Tick)
	case actionResizeLeft:
		return m, m.resize(-0.05)
	case actionResizeRight:
		return m, m.resize(0.05)
	case actionHelp:
		m.showHelp = true
	case actionQuit:
		return m, tea.Quit
	}
	// actionBack is routed by the app.
	return m, nil
}

func (m *messageModel) openPrompt(purpose promptPurpose, label, placeholder, value string) tea.Cmd {
	p := newPromptModel(purpose, label, placeholder, value)
	m.prompt = &p
	return textinput.Blink
}

func (m *messageModel) applyPrompt(msg promptSubmittedMsg) tea.Cmd {
	switch msg.purpose {
	case promptFilter:
		m.setFilter(msg.value)
	case promptGroup:
		m.groupSel = msg.value
		m.cursor = 0
		m.rebuild()
	case promptSend:
		if msg.value == "" {
			return m.status.set("No destination queue given", m.env.now())
		}
		return m.sendTargets(msg.value)
	}
	return nil
}

func (m *messageModel) setFilter(filter string) {
	if filter == m.filter {
		return
	}
	m.filter = filter
	m.rebuild()
}

// indexReasons caches the dead-letter reason of every message.
func (m *messageModel) indexReasons() {
	m.reasons = make(map[uint64]string)
	for _, msg := range m.idx.Messages() {
		if r := deadLetterReason(msg); r != "" {
			m.reasons[msg.ID] = r
		}
	}
}

// rebuild recomputes the displayed rows: items with at least one visible
// line under the current filter, grouped when a selector is set.
func (m *messageModel) rebuild() {
	var items []*index.Item
	for _, it := range m.idx.Items() {
		if index.ItemMatches(it, m.showMode, m.filter) {
			items = append(items, it)
		}
	}

	m.groups = nil
	m.rows = nil
	if m.groupSel == "" {
		for _, it := range items {
			m.rows = append(m.rows, listRow{item: it})
		}
	} else {
		m.groups = index.GroupItems(items, m.groupSel, m.groupMode)
		for i := range m.groups {
			g := &m.groups[i]
			m.rows = append(m.rows, listRow{group: g})
			for _, it := range g.Items {
				m.rows = append(m.rows, listRow{item: it})
			}
		}
	}

	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// displayedItems returns the items in list order.
func (m messageModel) displayedItems() []*index.Item {
	items := make([]*index.Item, 0, len(m.rows))
	for _, r := range m.rows {
		if r.item != nil {
			items = append(items, r.item)
		}
	}
	return items
}

func (m messageModel) current() (listRow, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return listRow{}, false
	}
	return m.rows[m.cursor], true
}

func (m *messageModel) moveBy(delta int) {
	n := m.cursor + delta
	if n >= len(m.rows) {
		n = len(m.rows) - 1
	}
	if n < 0 {
		n = 0
	}
	if n != m.cursor {
		m.detailOffset = 0
	}
	m.cursor = n
}

func (m messageModel) visibleRows() int {
	rows := m.height - 7
	if rows < 1 {
		return 1
	}
	return rows
}

func (m *messageModel) toggleCurrent() {
	row, ok := m.current()
	if !ok {
		return
	}
	if row.group != nil {
		for _, it := range row.group.Items {
			m.sel.Add(it)
		}
		return
	}
	m.sel.Toggle(row.item)
}

func (m *messageModel) selectCurrentGroup() {
	row, ok := m.current()
	if !ok {
		return
	}
	if row.group != nil {
		for _, it := range row.group.Items {
			m.sel.Add(it)
		}
		return
	}
	m.sel.SelectGroup(m.displayedItems(), row.item, m.groupSel, m.groupMode)
}

// applyEdit swaps in the edited item, keeping its selection state.
func (m *messageModel) applyEdit(id uint64, payload string) {
	var old *index.Item
	for _, it := range m.idx.Items() {
		if it.MessageID == id {
			old = it
			break
		}
	}
	item := m.idx.EditPayload(id, payload)
	if item == nil {
		return
	}
	if old != nil && m.sel.Has(old) {
		delete(m.sel, old)
		m.sel.Add(item)
	}
	m.rebuild()
}

func (m *messageModel) startEdit() tea.Cmd {
	if m.readOnly() {
		return m.status.set("Read-only: "+m.source.String(), m.env.now())
	}
	row, ok := m.current()
	if !ok || row.item == nil {
		return nil
	}
	msg, ok := m.idx.Message(row.item.MessageID)
	if !ok {
		return nil
	}
	ed := newEditorModel(msg.ID, msg.Payload, m.width, m.height)
	m.editor = &ed
	return textarea.Blink
}

func (m messageModel) savePayload(id uint64, payload string) tea.Cmd {
	e, view, queueID := m.env, m.view, m.queueID
	return func() tea.Msg {
		err := e.backend.SaveMessage(e.ctx, queueID, id, payload)
		e.cache.invalidate(queueID)
		if err != nil {
			return errorMsg{view: view, err: fmt.Errorf("save message #%d: %w", id, err)}
		}
		return payloadSavedMsg{view: view, queueID: queueID, messageID: id, payload: payload}
	}
}

func (m messageModel) deleteTargets() tea.Cmd {
	e, view, queueID := m.env, m.view, m.queueID
	ids := index.Targets(m.sel, m.idx.Items())
	return func() tea.Msg {
		err := e.backend.DeleteMessages(e.ctx, queueID, ids)
		e.cache.invalidate(queueID)
		if err != nil {
			return errorMsg{view: view, err: fmt.Errorf("delete: %w", err)}
		}
		return mutationDoneMsg{view: view, queueID: queueID, verb: "Deleted", ids: ids}
	}
}

func (m messageModel) sendTargets(dest string) tea.Cmd {
	e, view, queueID := m.env, m.view, m.queueID
	ids := index.Targets(m.sel, m.idx.Items())
	return func() tea.Msg {
		err := e.backend.SendMessages(e.ctx, queueID, ids, dest)
		e.cache.invalidate(queueID)
		if err != nil {
			return errorMsg{view: view, err: fmt.Errorf("send to %s: %w", dest, err)}
		}
		return mutationDoneMsg{view: view, queueID: queueID, verb: "Moved", dest: dest, ids: ids}
	}
}

// exportText composes the targeted items in list order.
func (m messageModel) exportText() string {
	return index.Compose(index.TargetItems(m.sel, m.displayedItems()), m.showMode, m.filter)
}

func (m *messageModel) yank() tea.Cmd {
	text := m.exportText()
	if text == "" {
		return m.status.set("Nothing to copy", m.env.now())
	}
	if err := m.env.clipboard(text); err != nil {
		return m.status.set("Copy failed: "+err.Error(), m.env.now())
	}
	return m.status.set(fmt.Sprintf("Copied %d line(s)", strings.Count(text, "\n")), m.env.now())
}

func (m *messageModel) export() tea.Cmd {
	text := m.exportText()
	if text == "" {
		return m.status.set("Nothing to export", m.env.now())
	}
	path, err := writeExport(m.env.exportDir, m.queue, text)
	if err != nil {
		return m.status.set("Export failed: "+err.Error(), m.env.now())
	}
	return m.status.set("Exported to "+path, m.env.now())
}

func (m *messageModel) resize(delta float64) tea.Cmd {
	ratio := m.splitRatio + delta
	if ratio < 0.2 || ratio > 0.8 {
		return nil
	}
	m.splitRatio = ratio
	dir := m.env.cfg.ConfigDir
	if dir == "" {
		return nil
	}
	log := m.env.log
	return func() tea.Msg {
		if err := config.SaveSplitRatio(dir, ratio); err != nil {
			log.WithError(err).Warn("Failed to save split ratio")
		}
		return nil
	}
}

// record stores a copy of freshly fetched messages in the local store.
func (m messageModel) record(msgs []index.Message) {
	if m.env.writer == nil || m.source == sourceSnapshot {
		return
	}
	m.env.writer.Save(&db.SnapshotRecord{
		Server:    m.env.cfg.ServerURL,
		QueueName: m.queue,
		Source:    m.source.dbSource(),
		TakenAt:   m.env.now(),
		Messages:  msgs,
	})
}

// View

func (m messageModel) View() string {
	if m.width == 0 {
		return m.spinner.View() + " Loading..."
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}

	title := fmt.Sprintf("rmqtools  %s  [%s]", m.queue, m.source)
	header := headerStyle.Width(m.width - 2).Render(title)

	if m.editor != nil {
		return lipgloss.JoinVertical(lipgloss.Left, header, m.editor.View())
	}

	contentHeight := m.height - 6
	if contentHeight < 3 {
		contentHeight = 3
	}
	listWidth := int(float64(m.width) * m.splitRatio)
	if listWidth < 20 {
		listWidth = 20
	}
	detailWidth := m.width - listWidth - 1
	if detailWidth < 20 {
		detailWidth = 20
	}

	content := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderList(listWidth, contentHeight),
		m.renderDetail(detailWidth, contentHeight),
	)

	var bottom string
	switch {
	case m.prompt != nil:
		bottom = m.prompt.View()
	case m.confirmDelete:
		n := len(index.Targets(m.sel, m.idx.Items()))
		bottom = errorStyle.Render(fmt.Sprintf("Delete %d message(s) from %s? (y/n)", n, m.queue))
	default:
		bottom = m.renderHelpBar()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, m.renderStatusBar(), content, bottom)
}

func (m messageModel) renderStatusBar() string {
	var parts []string
	switch {
	case m.loading:
		parts = append(parts, m.spinner.View()+" Loading...")
	case m.err != nil:
		parts = append(parts, disconnectedStyle.Render("Error: "+m.err.Error()))
	default:
		parts = append(parts, statusBarStyle.Render(fmt.Sprintf("Messages: %d", m.idx.Len())))
	}
	if len(m.sel) > 0 {
		parts = append(parts, markedRowStyle.Render(fmt.Sprintf("Selected: %d", len(m.sel))))
	}
	parts = append(parts, statusBarStyle.Render("Show: "+m.showMode.String()))
	if m.filter != "" {
		parts = append(parts, statusBarStyle.Render(fmt.Sprintf("Filter: %q", m.filter)))
	}
	if m.groupSel != "" {
		parts = append(parts, statusBarStyle.Render(fmt.Sprintf("Groups: %d by %q", len(m.groups), m.groupSel)))
	}
	if p := m.vimKeys.Pending(); p != "" {
		parts = append(parts, mutedStyle.Render(p))
	}
	return strings.Join(parts, "  │  ") + m.status.view()
}

func (m messageModel) renderList(width, height int) string {
	inner := height - 2
	if inner < 1 {
		inner = 1
	}

	if len(m.rows) == 0 {
		text := mutedStyle.Render("No messages")
		if m.filter != "" {
			text = mutedStyle.Render("No lines match the filter")
		}
		return listStyle.Width(width).Height(height).Render(text)
	}

	start := 0
	if m.cursor >= inner {
		start = m.cursor - inner + 1
	}
	end := min(start+inner, len(m.rows))
	innerWidth := width - 4

	lines := make([]string, 0, inner)
	for i := start; i < end; i++ {
		lines = append(lines, m.renderRow(m.rows[i], i == m.cursor, innerWidth))
	}
	return listStyle.Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

func (m messageModel) renderRow(r listRow, selected bool, width int) string {
	if r.group != nil {
		key := strings.TrimSpace(r.group.Key)
		if !r.group.Matched {
			key = "(no match)"
		}
		line := truncate(fmt.Sprintf("▸ %s (%d)", key, len(r.group.Items)), width)
		if selected {
			return selectedRowStyle.Render(line)
		}
		return groupHeaderStyle.Render(line)
	}

	mark := " "
	if m.sel.Has(r.item) {
		mark = "*"
	}
	first := ""
	if len(r.item.PayloadLines) > 0 {
		first = strings.TrimSpace(r.item.PayloadLines[0])
	}
	prefix := fmt.Sprintf("%s%4d #%-6d ", mark, r.item.Index, r.item.MessageID)
	reason := m.reasons[r.item.MessageID]

	avail := width - len(prefix)
	if reason != "" {
		avail -= len(reason) + 3
	}
	line := prefix + truncate(first, max(avail, 4))

	switch {
	case selected:
		line = selectedRowStyle.Render(line)
	case m.sel.Has(r.item):
		line = markedRowStyle.Render(line)
	default:
		line = normalStyle.Render(line)
	}
	if reason != "" {
		line += " " + deadLetterStyle.Render("["+reason+"]")
	}
	return line
}

func (m messageModel) renderDetail(width, height int) string {
	inner := height - 2
	if inner < 1 {
		inner = 1
	}
	innerWidth := width - 4

	row, ok := m.current()
	if !ok {
		return detailPanelStyle.Width(width).Height(height).Render(
			mutedStyle.Render("Select a message to view details"),
		)
	}

	var lines []string
	if row.group != nil {
		lines = append(lines, fieldNameStyle.Render("GROUP"))
		lines = append(lines, dividerStyle.Render(strings.Repeat("─", innerWidth)))
		if row.group.Matched {
			lines = append(lines, strings.TrimRight(row.group.Key, "\n"))
		} else {
			lines = append(lines, mutedStyle.Render("Items without a matching line"))
		}
		lines = append(lines, "", fmt.Sprintf("%d item(s), press A to select all", len(row.group.Items)))
	} else {
		lines = m.itemDetail(row.item, innerWidth)
	}

	start := m.detailOffset
	if start > len(lines)-inner {
		start = len(lines) - inner
	}
	if start < 0 {
		start = 0
	}
	end := min(start+inner, len(lines))

	return detailPanelStyle.Width(width).Height(height).Render(strings.Join(lines[start:end], "\n"))
}

func (m messageModel) itemDetail(it *index.Item, width int) []string {
	lines := []string{
		fieldNameStyle.Render(fmt.Sprintf("MESSAGE #%d", it.MessageID)) +
			mutedStyle.Render(fmt.Sprintf("  item %d of %d", it.Index, m.idx.Len())),
		dividerStyle.Render(strings.Repeat("─", width)),
	}

	if msg, ok := m.idx.Message(it.MessageID); ok && isDLXMessage(msg) {
		lines = append(lines, renderDLXSection(msg)...)
		lines = append(lines, "")
	}

	if m.showMode.Headers() {
		lines = append(lines, fieldNameStyle.Render("HEADERS"))
		for _, l := range index.FilterLines(it.HeaderLines, m.filter) {
			lines = append(lines, strings.TrimRight(l, "\n"))
		}
		lines = append(lines, "")
	}
	if m.showMode.Payload() {
		lines = append(lines, fieldNameStyle.Render("PAYLOAD"))
		for _, l := range index.FilterLines(it.PayloadLines, m.filter) {
			lines = append(lines, strings.TrimRight(l, "\n"))
		}
	}
	return lines
}

func (m messageModel) renderHelpBar() string {
	keys := []struct{ key, desc string }{
		{"j/k", "nav"},
		{"f", "filter"},
		{"gs", "group"},
		{"space", "select"},
		{"v", "show"},
		{"y/e", "copy/export"},
	}
	if !m.readOnly() {
		keys = append(keys,
			struct{ key, desc string }{"d", "delete"},
			struct{ key, desc string }{"s", "send"},
			struct{ key, desc string }{"E", "edit"},
		)
	}
	keys = append(keys,
		struct{ key, desc string }{"?", "help"},
		struct{ key, desc string }{"b", "back"},
	)

	var parts []string
	for _, k := range keys {
		parts = append(parts, helpKeyStyle.Render(k.key)+" "+k.desc)
	}
	return helpStyle.Render(strings.Join(parts, " │ "))
}

func (m messageModel) renderHelpOverlay() string {
	sections := []struct {
		name string
		keys []struct{ key, desc string }
	}{
		{
			name: "Navigation",
			keys: []struct{ key, desc string }{
				{"j / k", "Move down / up"},
				{"5j / 10k", "Move 5 down / 10 up"},
				{"gg / G", "Go to top / bottom"},
				{"Ctrl+U / Ctrl+D", "Half page up / down"},
				{"Ctrl+J / Ctrl+K", "Scroll details"},
			},
		},
		{
			name: "Filter & group",
			keys: []struct{ key, desc string }{
				{"f or /", "Filter lines"},
				{"gs", "Group by first matching line"},
				{"v", "Show headers / payload / both"},
				{"Esc", "Clear filter and grouping"},
			},
		},
		{
			name: "Selection",
			keys: []struct{ key, desc string }{
				{"Space / x", "Toggle selection"},
				{"A", "Select whole group"},
				{"u", "Clear selection"},
			},
		},
		{
			name: "Actions (selection, or all)",
			keys: []struct{ key, desc string }{
				{"y", "Copy export to clipboard"},
				{"e", "Write export to a file"},
				{"d", "Delete from store"},
				{"s", "Send to another queue"},
				{"E", "Edit payload"},
				{"r", "Reload"},
			},
		},
		{
			name: "View",
			keys: []struct{ key, desc string }{
				{"H / L", "Resize panes"},
				{"?", "Toggle this help"},
				{"b", "Back to queues"},
				{"q / Ctrl+C", "Quit"},
			},
		},
	}

	var lines []string
	lines = append(lines, fieldNameStyle.Render("Keybindings"), "")
	for _, section := range sections {
		lines = append(lines, helpCategoryStyle.Render(section.name))
		for _, k := range section.keys {
			lines = append(lines, fmt.Sprintf("  %-18s %s", helpKeyStyle.Render(k.key), k.desc))
		}
		lines = append(lines, "")
	}
	lines = append(lines, mutedStyle.Render("Press ? or Esc to close"))

	return centerOverlay(helpOverlayStyle.Width(54).Render(strings.Join(lines, "\n")), m.width, m.height)
}

func centerOverlay(overlay string, width, height int) string {
	hPad := max((width-lipgloss.Width(overlay))/2, 0)
	vPad := max((height-lipgloss.Height(overlay))/2, 0)
	return lipgloss.NewStyle().PaddingLeft(hPad).PaddingTop(vPad).Render(overlay)
}

func truncate(s string, n int) string {
	if n <= 3 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
