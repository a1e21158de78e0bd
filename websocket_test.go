package mates

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/stretchr/testify/require"
)

// A peer that stops reading must not block the sender forever: once the
// socket buffers fill, the write deadline has to fail the write.
func TestWriteDeadlineBoundsStalledPeer(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	errc := make(chan error, 1)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ws := &WebSocket{id: "stalled", conn: conn, writeWait: 100 * time.Millisecond}
		payload := make([]byte, 1<<20)
		for {
			if err := ws.WriteMessage(websocket.BinaryMessage, payload); err != nil {
				errc <- err
				return
			}
		}
	}))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	// never read from conn, so the server's sends back up

	select {
	case err := <-errc:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("write to a stalled peer never timed out")
	}
}
