package mates

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/bep/debounce"
	"github.com/fasthttp/websocket"
	"github.com/puzpuzpuz/xsync/v3"
)

func NewServer() *Server {
	return &Server{
		Log: log.New(os.Stderr, "[mates] ", log.LstdFlags),

		Presence: NewPresence(),

		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},

		clients:           xsync.NewMapOf[*WebSocket, struct{}](),
		serveMux:          &http.ServeMux{},
		presenceDebouncer: debounce.New(100 * time.Millisecond),

		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     30 * time.Second,
		MaxMessageSize: 512000,
	}
}

type Server struct {
	ServiceURL string

	// Authenticate resolves a bearer credential to an identity. It is the
	// same gate used by the HTTP surface; the websocket handshake goes
	// through it too, so a connection can never register an identity the
	// caller didn't prove.
	Authenticate func(token string) (identity string, err error)

	OnConnect    []func(identity string)
	OnDisconnect []func(identity string)

	// Presence maps identities to their live connection handles.
	Presence *Presence

	// Default logger, as set by NewServer, is a stdlib logger prefixed with
	// "[mates] ", outputting to stderr.
	Log *log.Logger

	// for establishing websockets
	upgrader websocket.Upgrader

	// keep a connection reference to all connected clients for Server.Shutdown
	// and for presence broadcasts
	clients *xsync.MapOf[*WebSocket, struct{}]

	// collapses bursts of connect/disconnect into one presence broadcast
	presenceDebouncer func(func())

	// in case you call Server.Start
	Addr       string
	serveMux   *http.ServeMux
	httpServer *http.Server

	// websocket options
	WriteWait      time.Duration // Time allowed to write a message to the peer.
	PongWait       time.Duration // Time allowed to read the next pong message from the peer.
	PingPeriod     time.Duration // Send pings to peer with this period. Must be less than pongWait.
	MaxMessageSize int64         // Maximum message size allowed from peer.
}
