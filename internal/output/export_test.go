package output

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epalmerini/rmqtools/internal/api"
	"github.com/epalmerini/rmqtools/internal/index"
)

type fakeSource struct {
	queues   []api.QueueSummary
	stored   map[uint64][]index.Message
	loaded   []index.Message
	loadErr  error
	loadedBy string
}

func (f *fakeSource) QueueSummaries(context.Context) ([]api.QueueSummary, error) {
	return f.queues, nil
}

func (f *fakeSource) StoredMessages(_ context.Context, id uint64) ([]index.Message, error) {
	return f.stored[id], nil
}

func (f *fakeSource) Load(_ context.Context, name string) (api.LoadResult, error) {
	f.loadedBy = name
	if f.loadErr != nil {
		return api.LoadResult{}, f.loadErr
	}
	return api.LoadResult{QueueID: 1, Messages: f.loaded}, nil
}

func msg(id uint64, payload string, headers ...index.Header) index.Message {
	return index.Message{ID: id, Payload: payload, Headers: headers}
}

func TestExport_LoadsByDefault(t *testing.T) {
	src := &fakeSource{loaded: []index.Message{
		msg(1, "status: ok\nuser: ann"),
		msg(2, "status: failed\nuser: bob"),
	}}

	text, err := Export(context.Background(), src, "orders", ExportOptions{Filter: "status", Mode: index.ShowPayload})
	require.NoError(t, err)
	assert.Equal(t, "orders", src.loadedBy)
	assert.Equal(t, "status: ok\nstatus: failed\n", text)
}

func TestExport_Stored(t *testing.T) {
	src := &fakeSource{
		queues: []api.QueueSummary{{QueueID: uptr(4), Name: "orders"}},
		stored: map[uint64][]index.Message{4: {msg(9, "kept")}},
	}

	text, err := Export(context.Background(), src, "orders", ExportOptions{Stored: true, Mode: index.ShowPayload})
	require.NoError(t, err)
	assert.Equal(t, "kept\n", text)
	assert.Empty(t, src.loadedBy)
}

func TestExport_StoredErrors(t *testing.T) {
	src := &fakeSource{queues: []api.QueueSummary{{Name: "fresh"}}}

	_, err := Export(context.Background(), src, "fresh", ExportOptions{Stored: true})
	assert.ErrorIs(t, err, api.ErrNoQueue)

	_, err = Export(context.Background(), src, "missing", ExportOptions{Stored: true})
	assert.ErrorIs(t, err, ErrUnknownQueue)
}

func TestExport_LoadError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Export(context.Background(), &fakeSource{loadErr: boom}, "orders", ExportOptions{})
	assert.ErrorIs(t, err, boom)
}
