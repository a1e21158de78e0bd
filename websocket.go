package mates

import (
	"net/http"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
)

// Handle is one live realtime session for one identity. *WebSocket is the
// production implementation; tests substitute fakes.
type Handle interface {
	ID() string
	WriteJSON(v any) error
}

type WebSocket struct {
	id    string
	conn  *websocket.Conn
	mutex sync.Mutex

	// writeWait bounds each write so one stalled peer can't block the
	// sender behind the mutex forever
	writeWait time.Duration

	// Identity is resolved from the verified handshake credential, never
	// from a client-claimed value.
	Identity string
	Request  *http.Request
}

func (ws *WebSocket) ID() string { return ws.id }

func (ws *WebSocket) WriteJSON(v any) error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()
	if ws.writeWait > 0 {
		ws.conn.SetWriteDeadline(time.Now().Add(ws.writeWait))
	}
	return ws.conn.WriteJSON(v)
}

func (ws *WebSocket) WriteMessage(t int, b []byte) error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()
	if ws.writeWait > 0 {
		ws.conn.SetWriteDeadline(time.Now().Add(ws.writeWait))
	}
	return ws.conn.WriteMessage(t, b)
}
