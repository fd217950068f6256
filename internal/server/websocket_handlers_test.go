package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listen serves ts.app on a loopback port and returns the websocket URL.
func (ts *testServer) listen(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = ts.app.Listener(ln) }()
	t.Cleanup(func() { _ = ts.app.Shutdown() })
	return "ws://" + ln.Addr().String() + "/ws"
}

func readFeedMessage(t *testing.T, conn *websocket.Conn) FeedMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg FeedMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestFeedWebSocket_SnapshotThenUpdates(t *testing.T) {
	ts := newTestServer(t, newTestConfig(), Deps{})
	ts.backend.Seed("already here")
	require.NoError(t, ts.srv.Wall().Reload(context.Background()))

	conn, resp, err := websocket.DefaultDialer.Dial(ts.listen(t), nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	snapshot := readFeedMessage(t, conn)
	assert.Equal(t, msgFeedSnapshot, snapshot.Type)
	require.Len(t, snapshot.Posts, 1)
	assert.Equal(t, "already here", snapshot.Posts[0].Body)

	require.Eventually(t, func() bool { return ts.srv.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = ts.srv.Wall().Pipeline().Submit(context.Background(), "live post", nil)
	require.NoError(t, err)

	update := readFeedMessage(t, conn)
	assert.Equal(t, msgFeedUpdated, update.Type)
	require.NotEmpty(t, update.Posts)
	assert.Equal(t, "live post", update.Posts[0].Body)
}

func TestFeedWebSocket_ClosedOnShutdown(t *testing.T) {
	ts := newTestServer(t, newTestConfig(), Deps{})

	conn, _, err := websocket.DefaultDialer.Dial(ts.listen(t), nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	_ = readFeedMessage(t, conn)

	require.Eventually(t, func() bool { return ts.srv.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, ts.srv.Shutdown(context.Background()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.Zero(t, ts.srv.hub.Count())
}

func TestFeedWebSocket_RequiresUpgrade(t *testing.T) {
	ts := newTestServer(t, newTestConfig(), Deps{})

	resp, _ := ts.do(t, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}
