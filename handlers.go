package mates

import (
	"net/http"
	"strings"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
)

// ServeHTTP implements http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Upgrade") == "websocket" {
		s.HandleWebsocket(w, r)
	} else {
		s.serveMux.ServeHTTP(w, r)
	}
}

// handshakeToken pulls the credential from the connect request: either a
// ?token= query parameter or the same auth cookie the HTTP surface uses.
func handshakeToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if c, err := r.Cookie("jwt_token"); err == nil {
		return c.Value
	}
	return ""
}

func (s *Server) HandleWebsocket(w http.ResponseWriter, r *http.Request) {
	if s.Authenticate == nil {
		http.Error(w, "realtime endpoint not configured", http.StatusServiceUnavailable)
		return
	}

	identity, err := s.Authenticate(handshakeToken(r))
	if err != nil {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Printf("failed to upgrade websocket: %v\n", err)
		return
	}

	ws := &WebSocket{
		id:        uuid.NewString(),
		conn:      conn,
		writeWait: s.WriteWait,
		Identity:  identity,
		Request:   r,
	}
	s.clients.Store(ws, struct{}{})
	ticker := time.NewTicker(s.PingPeriod)
	done := make(chan struct{})

	if s.Presence.Register(identity, ws) {
		s.BroadcastPresence()
	}
	// the new device always gets the current online set right away, even if
	// its identity was already online elsewhere
	ws.WriteJSON(newPresenceEnvelope(s.Presence.OnlineIdentities()))

	for _, onconnect := range s.OnConnect {
		onconnect(identity)
	}

	// reader: clients don't issue commands over the socket, everything
	// mutating goes through the HTTP surface. We still have to drain the
	// connection to service pings and notice the close.
	go func() {
		defer func() {
			ticker.Stop()
			close(done)
			if _, ok := s.clients.LoadAndDelete(ws); ok {
				conn.Close()
				if s.Presence.Unregister(identity, ws) {
					s.BroadcastPresence()
				}
				for _, ondisconnect := range s.OnDisconnect {
					ondisconnect(identity)
				}
			}
		}()

		conn.SetReadLimit(s.MaxMessageSize)
		conn.SetReadDeadline(time.Now().Add(s.PongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(s.PongWait))
			return nil
		})

		for {
			typ, _, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(
					err,
					websocket.CloseGoingAway,        // 1001
					websocket.CloseNoStatusReceived, // 1005
					websocket.CloseAbnormalClosure,  // 1006
				) {
					s.Log.Printf("unexpected close error from %s: %v\n", r.Header.Get("X-Forwarded-For"), err)
				}
				break
			}

			if typ == websocket.PingMessage {
				ws.WriteMessage(websocket.PongMessage, nil)
				continue
			}
		}
	}()

	// writer: a stopped ticker never fires again, so the reader's defer
	// also closes done to let this goroutine exit
	go func() {
		defer conn.Close()

		for {
			select {
			case <-ticker.C:
				err := ws.WriteMessage(websocket.PingMessage, nil)
				if err != nil {
					if !strings.HasSuffix(err.Error(), "use of closed network connection") {
						s.Log.Printf("error writing ping: %v; closing websocket\n", err)
					}
					return
				}
			case <-done:
				return
			}
		}
	}()
}
