package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

type appView int

const (
	appViewQueues appView = iota
	appViewMessages
	appViewSnapshots
)

type appModel struct {
	env     *env
	offline bool
	view    appView
	back    appView // where "b" leaves the message view to

	width, height int

	queues    queueListModel
	messages  messageModel
	snapshots snapshotBrowserModel
}

func newAppModel(e *env, offline bool) appModel {
	m := appModel{
		env:       e,
		offline:   offline,
		view:      appViewQueues,
		queues:    newQueueListModel(e),
		snapshots: newSnapshotBrowserModel(e),
	}
	if offline {
		m.view = appViewSnapshots
	}
	return m
}

func (m appModel) Init() tea.Cmd {
	if m.offline {
		return m.snapshots.Init()
	}
	return m.queues.Init()
}

// shutdown releases what the views hold open once the program has exited.
func (m appModel) shutdown() {
	m.queues.shutdown()
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.queues.width, m.queues.height = msg.Width, msg.Height
		m.snapshots.width, m.snapshots.height = msg.Width, msg.Height
		if m.view == appViewMessages {
			next, cmd := m.messages.Update(msg)
			m.messages = next.(messageModel)
			return m, cmd
		}
		return m, nil

	// The counter feed keeps flowing into the queue list whichever view
	// is showing, so its channel never backs up.
	case feedConnectedMsg, feedErrorMsg, countersMsg, feedClosedMsg:
		next, cmd := m.queues.Update(msg)
		m.queues = next.(queueListModel)
		return m, cmd

	case openQueueMsg:
		m.back = m.view
		m.view = appViewMessages
		m.messages = newMessageModel(m.env, msg)
		m.messages.width, m.messages.height = m.width, m.height
		m.env.log.WithField("queue", msg.queue).WithField("source", msg.source.String()).Debug("Opening queue")
		return m, m.messages.Init()

	// Replies to a message view's commands mean nothing to the other views.
	case messagesLoadedMsg, mutationDoneMsg, payloadSavedMsg:
		if m.view != appViewMessages {
			return m, nil
		}
	case errorMsg:
		if msg.view != 0 && m.view != appViewMessages {
			return m, nil
		}

	case showSnapshotsMsg:
		m.view = appViewSnapshots
		m.snapshots.loading = true
		return m, m.snapshots.Init()

	case tea.KeyMsg:
		if msg.String() == "b" {
			if next, cmd, ok := m.goBack(); ok {
				return next, cmd
			}
		}
	}

	switch m.view {
	case appViewQueues:
		next, cmd := m.queues.Update(msg)
		m.queues = next.(queueListModel)
		return m, cmd
	case appViewMessages:
		next, cmd := m.messages.Update(msg)
		m.messages = next.(messageModel)
		return m, cmd
	case appViewSnapshots:
		next, cmd := m.snapshots.Update(msg)
		m.snapshots = next.(snapshotBrowserModel)
		return m, cmd
	}
	return m, nil
}

// goBack handles "b" unless the active view is using the key itself.
func (m appModel) goBack() (tea.Model, tea.Cmd, bool) {
	switch m.view {
	case appViewMessages:
		if m.messages.busy() {
			return m, nil, false
		}
		m.view = m.back
		if m.view == appViewSnapshots {
			return m, m.snapshots.loadSnapshots(), true
		}
		m.queues.loading = true
		return m, m.queues.loadQueues(), true

	case appViewSnapshots:
		if m.snapshots.busy() || m.offline {
			return m, nil, false
		}
		m.view = appViewQueues
		m.queues.loading = true
		return m, m.queues.loadQueues(), true
	}
	return m, nil, false
}

func (m appModel) View() string {
	switch m.view {
	case appViewMessages:
		return m.messages.View()
	case appViewSnapshots:
		return m.snapshots.View()
	}
	return m.queues.View()
}
