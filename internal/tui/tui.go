package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/epalmerini/rmqtools/internal/api"
	"github.com/epalmerini/rmqtools/internal/config"
	"github.com/epalmerini/rmqtools/internal/db"
	"github.com/epalmerini/rmqtools/internal/feed"
	"github.com/epalmerini/rmqtools/internal/index"
)

// Backend is the part of the rmq_tools server API the TUI drives.
// *api.Client implements it.
type Backend interface {
	QueueSummaries(ctx context.Context) ([]api.QueueSummary, error)
	EnvInfo(ctx context.Context) (api.EnvInfo, error)
	StoredMessages(ctx context.Context, queueID uint64) ([]index.Message, error)
	Load(ctx context.Context, queueName string) (api.LoadResult, error)
	Peek(ctx context.Context, queueName string) ([]index.Message, error)
	DeleteMessages(ctx context.Context, queueID uint64, ids []uint64) error
	SendMessages(ctx context.Context, queueID uint64, ids []uint64, destination string) error
	SaveMessage(ctx context.Context, queueID, messageID uint64, payload string) error
}

// Peeker reads a queue straight from the broker without consuming it.
// *rabbitmq.Peeker implements it.
type Peeker interface {
	Peek(ctx context.Context, queue string, limit int) ([]index.Message, error)
}

// Deps are the collaborators Run wires into the views. Backend is required
// unless Offline is set; the rest are optional.
type Deps struct {
	Backend Backend
	Peeker  Peeker
	Store   db.Store
	Writer  *db.AsyncWriter
	Feed    func(ctx context.Context) (*feed.Stream, error) // dials the counter feed
	Log     *logrus.Entry
	Offline bool
}

// env is shared by every view.
type env struct {
	ctx       context.Context
	cfg       config.Config
	backend   Backend
	peeker    Peeker
	store     db.Store
	writer    *db.AsyncWriter
	dialFeed  func(ctx context.Context) (*feed.Stream, error)
	cache     *indexCache
	log       *logrus.Entry
	clipboard func(string) error
	exportDir string
	now       func() time.Time
	views     uint64 // last message view token handed out
}

// nextView returns a fresh message view token. Only the update loop calls it.
func (e *env) nextView() uint64 {
	e.views++
	return e.views
}

func newEnv(ctx context.Context, cfg config.Config, deps Deps) *env {
	log := deps.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &env{
		ctx:       ctx,
		cfg:       cfg,
		backend:   deps.Backend,
		peeker:    deps.Peeker,
		store:     deps.Store,
		writer:    deps.Writer,
		dialFeed:  deps.Feed,
		cache:     newIndexCache(indexCacheSize, indexCacheTTL),
		log:       log.WithField("component", "tui"),
		clipboard: clipboard.WriteAll,
		exportDir: ".",
		now:       time.Now,
	}
}

// Run starts the TUI and blocks until the user quits.
func Run(cfg config.Config, deps Deps) error {
	if deps.Backend == nil && !deps.Offline {
		return errors.New("tui: no backend configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := newEnv(ctx, cfg, deps)
	p := tea.NewProgram(newAppModel(e, deps.Offline), tea.WithAltScreen())

	final, err := p.Run()
	if am, ok := final.(appModel); ok {
		am.shutdown()
	}
	if err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

// PickProfile shows the profile picker and returns the chosen name, or ""
// if the user quit without choosing.
func PickProfile(file *config.FileConfig) (string, error) {
	m := pickerRunner{picker: newProfilePickerModel(file)}
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return "", fmt.Errorf("error running profile picker: %w", err)
	}
	return final.(pickerRunner).chosen, nil
}

// pickerRunner quits the program once a profile is chosen.
type pickerRunner struct {
	picker profilePickerModel
	chosen string
}

func (m pickerRunner) Init() tea.Cmd { return nil }

func (m pickerRunner) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if sel, ok := msg.(profileSelectedMsg); ok {
		m.chosen = sel.name
		return m, tea.Quit
	}
	next, cmd := m.picker.Update(msg)
	m.picker = next.(profilePickerModel)
	return m, cmd
}

func (m pickerRunner) View() string { return m.picker.View() }

// Feed plumbing. The stream callback hands each snapshot to the update loop
// through a channel, so only the update loop touches display state.

type feedConnectedMsg struct {
	stream *feed.Stream
	ch     <-chan feed.Snapshot
}

type feedErrorMsg struct {
	err error
}

type countersMsg struct {
	snap feed.Snapshot
	at   time.Time
}

type feedClosedMsg struct {
	err error
}

func connectFeedCmd(e *env) tea.Cmd {
	if e.dialFeed == nil {
		return nil
	}
	return func() tea.Msg {
		stream, err := e.dialFeed(e.ctx)
		if err != nil {
			return feedErrorMsg{err: err}
		}
		ch, err := subscribe(e.ctx, stream)
		if err != nil {
			_ = stream.Close()
			return feedErrorMsg{err: err}
		}
		return feedConnectedMsg{stream: stream, ch: ch}
	}
}

// subscribe starts stream and returns the channel its snapshots arrive on.
// The channel is closed once the stream has stopped delivering.
func subscribe(ctx context.Context, stream *feed.Stream) (<-chan feed.Snapshot, error) {
	ch := make(chan feed.Snapshot, 1)
	err := stream.Start(func(snap feed.Snapshot) {
		select {
		case ch <- snap:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return nil, err
	}
	go func() {
		<-stream.Done()
		close(ch)
	}()
	return ch, nil
}

func waitForCounters(stream *feed.Stream, ch <-chan feed.Snapshot, now func() time.Time) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return feedClosedMsg{err: stream.Err()}
		}
		return countersMsg{snap: snap, at: now()}
	}
}

// Shared messages

// errorMsg reports a failed command. view is set when a message view issued
// it and zero otherwise.
type errorMsg struct {
	view uint64
	err  error
}

type clearStatusMsg struct{}

type statusLine struct {
	text string
	at   time.Time
}

func (s *statusLine) set(text string, now time.Time) tea.Cmd {
	s.text = text
	s.at = now
	return tea.Tick(3*time.Second, func(_ time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

func (s statusLine) view() string {
	if s.text == "" {
		return ""
	}
	return "  " + confirmationStyle.Render(s.text)
}
