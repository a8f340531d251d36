package feed

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whole(s string) fragment {
	return fragment{data: []byte(s), final: true}
}

func quietLogger() (*logrus.Entry, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.TraceLevel)
	return logrus.NewEntry(logger), hook
}

func waitDone(t *testing.T, s *Stream) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop")
	}
}

func TestStream_DeliversInOrder(t *testing.T) {
	tr := &scriptedTransport{frags: []fragment{
		whole(`[{"queue_name":"a","messages":1}]`),
		whole(`[{"queue_name":"a","messages":2},{"queue_name":"b","messages":5}]`),
		whole(`[]`),
	}}
	log, _ := quietLogger()
	s := NewStream(tr, Options{Logger: log})

	got := make(chan Snapshot, 3)
	require.NoError(t, s.Start(func(snap Snapshot) { got <- snap }))

	assert.Equal(t, Snapshot{"a": 1}, <-got)
	assert.Equal(t, Snapshot{"a": 2, "b": 5}, <-got)
	assert.Equal(t, Snapshot{}, <-got)

	require.NoError(t, s.Close())
	waitDone(t, s)
	assert.NoError(t, s.Err())
	assert.Equal(t, 1, tr.closed)
}

func TestStream_SequentialDelivery(t *testing.T) {
	tr := &scriptedTransport{frags: []fragment{
		whole(`[{"queue_name":"q","messages":1}]`),
		whole(`[{"queue_name":"q","messages":2}]`),
	}}
	log, _ := quietLogger()
	s := NewStream(tr, Options{Logger: log})

	release := make(chan struct{})
	entered := make(chan int64, 2)
	require.NoError(t, s.Start(func(snap Snapshot) {
		entered <- snap["q"]
		<-release
	}))

	assert.Equal(t, int64(1), <-entered)
	select {
	case v := <-entered:
		t.Fatalf("second delivery %d began before the first returned", v)
	case <-time.After(50 * time.Millisecond):
	}
	release <- struct{}{}
	assert.Equal(t, int64(2), <-entered)
	close(release)

	require.NoError(t, s.Close())
	waitDone(t, s)
}

func TestStream_FragmentedMessage(t *testing.T) {
	msg := []byte(`[{"queue_name":"orders","messages":12},{"queue_name":"orders","messages":7}]`)
	tr := &scriptedTransport{frags: split(msg, 8, 16)}
	log, _ := quietLogger()
	s := NewStream(tr, Options{Logger: log, InitialBufferSize: 8})

	got := make(chan Snapshot, 1)
	require.NoError(t, s.Start(func(snap Snapshot) { got <- snap }))

	assert.Equal(t, Snapshot{"orders": 7}, <-got)
	require.NoError(t, s.Close())
	waitDone(t, s)
}

func TestStream_SkipsUndecodableMessage(t *testing.T) {
	tr := &scriptedTransport{frags: []fragment{
		whole(`not json`),
		whole(`[{"queue_name":"a","messages":3}]`),
	}}
	log, hook := quietLogger()
	s := NewStream(tr, Options{Logger: log})

	got := make(chan Snapshot, 1)
	require.NoError(t, s.Start(func(snap Snapshot) { got <- snap }))

	assert.Equal(t, Snapshot{"a": 3}, <-got)
	require.NoError(t, s.Close())
	waitDone(t, s)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "Skipping undecodable feed message" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestStream_FailOnDecodeError(t *testing.T) {
	tr := &scriptedTransport{frags: []fragment{
		whole(`{"queue_name":"a"}`),
		whole(`[{"queue_name":"a","messages":3}]`),
	}}
	log, _ := quietLogger()
	s := NewStream(tr, Options{Logger: log, FailOnDecodeError: true})

	delivered := make(chan Snapshot, 1)
	require.NoError(t, s.Start(func(snap Snapshot) { delivered <- snap }))
	waitDone(t, s)

	assert.Error(t, s.Err())
	assert.Empty(t, delivered)
	assert.Equal(t, 1, tr.closed)
}

func TestStream_TransportErrorIsTerminal(t *testing.T) {
	tr := &scriptedTransport{frags: []fragment{
		{data: []byte(`[{"queue_name"`)},
		{err: io.ErrUnexpectedEOF},
	}}
	log, _ := quietLogger()
	s := NewStream(tr, Options{Logger: log})

	delivered := make(chan Snapshot, 1)
	require.NoError(t, s.Start(func(snap Snapshot) { delivered <- snap }))
	waitDone(t, s)

	assert.ErrorIs(t, s.Err(), io.ErrUnexpectedEOF)
	assert.Empty(t, delivered, "no partial snapshot is delivered")
	assert.Equal(t, 1, tr.closed)
}

func TestStream_CloseUnblocksPendingRead(t *testing.T) {
	tr := &scriptedTransport{}
	log, _ := quietLogger()
	s := NewStream(tr, Options{Logger: log})
	require.NoError(t, s.Start(func(Snapshot) {}))

	require.NoError(t, s.Close())
	waitDone(t, s)

	assert.NoError(t, s.Err(), "cancellation is not an error")
}

func TestStream_CloseIsIdempotent(t *testing.T) {
	closeErr := errors.New("already gone")
	tr := &failingClose{err: closeErr}
	log, _ := quietLogger()
	s := NewStream(tr, Options{Logger: log})
	require.NoError(t, s.Start(func(Snapshot) {}))

	assert.ErrorIs(t, s.Close(), closeErr)
	assert.ErrorIs(t, s.Close(), closeErr)
	waitDone(t, s)
	assert.Equal(t, 1, tr.calls)
}

func TestStream_StartTwice(t *testing.T) {
	log, _ := quietLogger()
	s := NewStream(&scriptedTransport{}, Options{Logger: log})

	require.NoError(t, s.Start(func(Snapshot) {}))
	assert.ErrorIs(t, s.Start(func(Snapshot) {}), ErrStarted)

	require.NoError(t, s.Close())
	waitDone(t, s)
}

func TestStream_StartAfterClose(t *testing.T) {
	tr := &scriptedTransport{}
	log, _ := quietLogger()
	s := NewStream(tr, Options{Logger: log})

	require.NoError(t, s.Close())
	waitDone(t, s)

	assert.ErrorIs(t, s.Start(func(Snapshot) {}), ErrClosed)
	assert.Equal(t, 1, tr.closed)
}

func TestStream_CloseFromCallback(t *testing.T) {
	tr := &scriptedTransport{frags: []fragment{
		whole(`[{"queue_name":"a","messages":1}]`),
		whole(`[{"queue_name":"a","messages":2}]`),
	}}
	log, _ := quietLogger()
	s := NewStream(tr, Options{Logger: log})

	var count int
	require.NoError(t, s.Start(func(Snapshot) {
		count++
		_ = s.Close()
	}))
	waitDone(t, s)

	assert.Equal(t, 1, count, "no delivery after close")
}

// closingTransport closes its stream while handing out the second message,
// so Close lands between the read and the delivery.
type closingTransport struct {
	scriptedTransport
	stream *Stream
	reads  int
}

func (c *closingTransport) ReadFragment(ctx context.Context, p []byte) (int, bool, error) {
	c.reads++
	if c.reads == 2 {
		_ = c.stream.Close()
	}
	return c.scriptedTransport.ReadFragment(context.Background(), p)
}

func TestStream_NoDeliveryAfterCloseDuringRead(t *testing.T) {
	tr := &closingTransport{scriptedTransport: scriptedTransport{frags: []fragment{
		whole(`[{"queue_name":"a","messages":1}]`),
		whole(`[{"queue_name":"a","messages":2}]`),
	}}}
	log, _ := quietLogger()
	s := NewStream(tr, Options{Logger: log})
	tr.stream = s

	var got []int64
	require.NoError(t, s.Start(func(snap Snapshot) { got = append(got, snap["a"]) }))
	waitDone(t, s)

	assert.Equal(t, []int64{1}, got)
	assert.NoError(t, s.Err())
}

type failingClose struct {
	err   error
	calls int
}

func (f *failingClose) ReadFragment(ctx context.Context, _ []byte) (int, bool, error) {
	<-ctx.Done()
	return 0, false, ctx.Err()
}

func (f *failingClose) Close() error {
	f.calls++
	return f.err
}
