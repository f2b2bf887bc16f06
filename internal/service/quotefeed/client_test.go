package quotefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TickerPulse/internal/domain/models"
)

func feedServer(t *testing.T, subs chan<- string) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub map[string]string
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		subs <- sub["symbol"]

		_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"status","data":[]}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"quote","data":[
			{"symbol":"GME","timestamp":"2024-03-01T14:30:00Z","price":20.5,"total_volume":1000,"call_volume":300,"put_volume":200},
			{"symbol":"GME","timestamp":"2024-03-01T14:31:00Z","price":21}
		]}`))
		time.Sleep(50 * time.Millisecond)
	}))
}

func wsURL(s *httptest.Server) string { return "ws" + strings.TrimPrefix(s.URL, "http") }

func TestClientStreamsSnapshots(t *testing.T) {
	subs := make(chan string, 1)
	srv := feedServer(t, subs)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := New(wsURL(srv), "secret", []string{"GME"}, WithTiming(10*time.Millisecond, time.Hour))
	require.NoError(t, c.Connect(ctx))
	require.NoError(t, c.Subscribe(ctx))
	assert.True(t, c.IsConnected())
	assert.Equal(t, "GME", <-subs)

	snaps, errs := c.Read(ctx)
	var got []*models.Snapshot
	for s := range snaps {
		got = append(got, s)
	}
	require.Len(t, got, 2)
	assert.Equal(t, 20.5, *got[0].Price)
	assert.Empty(t, got[0].Missing())
	assert.Equal(t, "total_volume", got[1].Missing())

	err := <-errs
	assert.ErrorIs(t, err, models.ErrTransientSource)
	assert.False(t, c.IsConnected())
	require.NoError(t, c.Close())
}

func TestClientConnectFailures(t *testing.T) {
	subs := make(chan string, 1)
	srv := feedServer(t, subs)
	defer srv.Close()
	ctx := context.Background()

	err := New(wsURL(srv), "wrong", nil).Connect(ctx)
	assert.ErrorIs(t, err, models.ErrTransientSource)

	err = New("://bad", "", nil).Connect(ctx)
	assert.ErrorIs(t, err, models.ErrConfiguration)

	err = New(wsURL(srv), "secret", []string{"GME"}).Subscribe(ctx)
	assert.ErrorIs(t, err, models.ErrTransientSource)
}

func TestClientReadStopsOnCancel(t *testing.T) {
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := New(wsURL(srv), "", nil)
	require.NoError(t, c.Connect(ctx))
	snaps, errs := c.Read(ctx)
	cancel()

	select {
	case _, ok := <-snaps:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not stop")
	}
	_, ok := <-errs
	assert.False(t, ok, "cancellation is not reported as an error")
}
