package tui

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/epalmerini/rmqtools/internal/api"
	"github.com/epalmerini/rmqtools/internal/config"
	"github.com/epalmerini/rmqtools/internal/index"
)

type sendCall struct {
	queueID uint64
	ids     []uint64
	dest    string
}

type fakeBackend struct {
	mu sync.Mutex

	queues []api.QueueSummary
	stored map[uint64][]index.Message
	peeked []index.Message
	err    error

	storedCalls int
	deleted     [][]uint64
	sent        []sendCall
	saved       map[uint64]string
}

func (f *fakeBackend) QueueSummaries(context.Context) ([]api.QueueSummary, error) {
	return f.queues, f.err
}

func (f *fakeBackend) EnvInfo(context.Context) (api.EnvInfo, error) {
	return api.EnvInfo{Connection: api.ConnectionInfo{Domain: "rmq.local", VHost: "/"}}, nil
}

func (f *fakeBackend) StoredMessages(_ context.Context, id uint64) ([]index.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storedCalls++
	return f.stored[id], f.err
}

func (f *fakeBackend) Load(_ context.Context, name string) (api.LoadResult, error) {
	return api.LoadResult{QueueID: 1, Messages: f.stored[1]}, f.err
}

func (f *fakeBackend) Peek(context.Context, string) ([]index.Message, error) {
	return f.peeked, f.err
}

func (f *fakeBackend) DeleteMessages(_ context.Context, _ uint64, ids []uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ids)
	return f.err
}

func (f *fakeBackend) SendMessages(_ context.Context, queueID uint64, ids []uint64, dest string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sendCall{queueID: queueID, ids: ids, dest: dest})
	return f.err
}

func (f *fakeBackend) SaveMessage(_ context.Context, _ uint64, id uint64, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = make(map[uint64]string)
	}
	f.saved[id] = payload
	return f.err
}

var testNow = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

func testEnv(t *testing.T, backend Backend) (*env, *string) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	var copied string
	e := &env{
		ctx: context.Background(),
		cfg: config.Config{
			ServerURL:         "http://rmq.test",
			DefaultSplitRatio: 0.5,
			ShowMode:          index.ShowPayload,
		},
		backend: backend,
		cache:   newIndexCache(indexCacheSize, indexCacheTTL),
		log:     logrus.NewEntry(log),
		clipboard: func(s string) error {
			copied = s
			return nil
		},
		exportDir: t.TempDir(),
		now:       func() time.Time { return testNow },
	}
	return e, &copied
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(m tea.Model, text string) tea.Model {
	for _, r := range text {
		m, _ = m.Update(keyPress(string(r)))
	}
	return m
}

func textMsgs(payloads ...string) []index.Message {
	msgs := make([]index.Message, len(payloads))
	for i, p := range payloads {
		msgs[i] = index.Message{ID: uint64(10 + i), Payload: p}
	}
	return msgs
}
