package feed

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feedServer upgrades requests on FeedPath and sends msgs as text messages.
// It keeps the connection open until the client goes away.
func feedServer(t *testing.T, msgs ...[]byte) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc(FeedPath, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, m := range msgs {
			if err := conn.WriteMessage(websocket.TextMessage, m); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFeedURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "http://localhost:5000", want: "ws://localhost:5000/api/ws"},
		{in: "https://rmq.example.com/", want: "wss://rmq.example.com/api/ws"},
		{in: "http://host/prefix?x=1", want: "ws://host/prefix/api/ws"},
		{in: "ftp://host", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := FeedURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWebSocketTransport_LargeMessage(t *testing.T) {
	big := bytes.Repeat([]byte("0123456789"), 2050)
	srv := feedServer(t, big, []byte("small"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tr, err := Dial(ctx, srv.URL, nil)
	require.NoError(t, err)
	defer tr.Close()

	r := NewReassembler(tr, DefaultBufferSize)

	got, err := r.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, big, got)
	assert.Equal(t, 4*DefaultBufferSize, r.Cap())

	got, err = r.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("small"), got)
}

func TestWebSocketTransport_CancelUnblocksRead(t *testing.T) {
	srv := feedServer(t)

	tr, err := Dial(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, _, err := tr.ReadFragment(ctx, make([]byte, 16))
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("read did not unblock")
	}
}

func TestStream_OverWebSocket(t *testing.T) {
	srv := feedServer(t,
		[]byte(`[{"queue_name":"orders","messages":3}]`),
		[]byte(`garbage`),
		[]byte(`[{"queue_name":"orders","messages":1},{"queue_name":"dlq","messages":8}]`),
	)

	tr, err := Dial(context.Background(), srv.URL, nil)
	require.NoError(t, err)

	log, _ := quietLogger()
	s := NewStream(tr, Options{Logger: log})
	got := make(chan Snapshot, 2)
	require.NoError(t, s.Start(func(snap Snapshot) { got <- snap }))

	assert.Equal(t, Snapshot{"orders": 3}, <-got)
	assert.Equal(t, Snapshot{"orders": 1, "dlq": 8}, <-got)

	require.NoError(t, s.Close())
	waitDone(t, s)
}

func TestDial_RefusesNonWebSocketEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := Dial(context.Background(), srv.URL, nil)

	assert.Error(t, err)
}
