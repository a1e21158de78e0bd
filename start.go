package mates

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/rs/cors"
)

func (s *Server) Router() *http.ServeMux {
	return s.serveMux
}

func (s *Server) SetRouter(mux *http.ServeMux) {
	s.serveMux = mux
}

// Start creates an http server and starts listening on given host and port.
func (s *Server) Start(host string, port int, started ...chan bool) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.Addr = ln.Addr().String()
	s.httpServer = &http.Server{
		Handler:     cors.Default().Handler(s),
		Addr:        addr,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
	}

	// notify caller that we're starting
	for _, started := range started {
		close(started)
	}

	if err := s.httpServer.Serve(ln); err == http.ErrServerClosed {
		return nil
	} else if err != nil {
		return err
	} else {
		return nil
	}
}

// Shutdown stops the http server and sends a websocket close control message
// to all connected clients. Presence is not persisted, so whatever is left in
// the registry simply dies with the process.
func (s *Server) Shutdown(ctx context.Context) {
	if s.httpServer != nil {
		s.httpServer.Shutdown(ctx)
	}
	s.clients.Range(func(ws *WebSocket, _ struct{}) bool {
		ws.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(time.Second))
		ws.conn.Close()
		s.clients.Delete(ws)
		return true
	})
}
