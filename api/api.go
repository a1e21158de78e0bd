// Package api mounts the HTTP surface of the service over the realtime
// server's router, leaving websocket upgrades to the server itself.
package api

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/codemates/mates"
	"github.com/codemates/mates/auth"
	"github.com/codemates/mates/media"
	"github.com/codemates/mates/store"
)

const defaultMaxUploadBytes = 50 * 1024 * 1024

type Options struct {
	Store *store.Store
	Media *media.Orchestrator
	Gate  *auth.Gate
	Log   *log.Logger

	// MaxUploadBytes caps a single media upload.
	MaxUploadBytes int64

	// MediaDir, when set, is served read-only under /media/ (the local CAS
	// blob backend).
	MediaDir string
}

type API struct {
	srv       *mates.Server
	store     *store.Store
	media     *media.Orchestrator
	gate      *auth.Gate
	log       *log.Logger
	maxUpload int64
}

// New wires the REST routes into srv's router and points the server's
// handshake authentication at the same gate the routes use.
func New(srv *mates.Server, opts Options) *API {
	a := &API{
		srv:       srv,
		store:     opts.Store,
		media:     opts.Media,
		gate:      opts.Gate,
		log:       opts.Log,
		maxUpload: opts.MaxUploadBytes,
	}
	if a.log == nil {
		a.log = log.New(os.Stderr, "[mates-api] ", log.LstdFlags)
	}
	if a.maxUpload <= 0 {
		a.maxUpload = defaultMaxUploadBytes
	}

	srv.Authenticate = a.gate.Authenticate

	base := srv.Router()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/signup", a.handleSignup)
	mux.HandleFunc("POST /api/auth/login", a.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", a.handleLogout)
	mux.HandleFunc("GET /api/auth/check", a.requireAuth(a.handleCheck))
	mux.HandleFunc("PUT /api/auth/update-profile", a.requireAuth(a.handleUpdateProfile))
	mux.HandleFunc("PUT /api/auth/update-profile-pic", a.requireAuth(a.handleUpdateProfile))
	mux.HandleFunc("GET /api/auth/profile/{username}", a.requireAuth(a.handleProfile))
	mux.HandleFunc("GET /api/auth/search/{query}", a.requireAuth(a.handleSearch))
	mux.HandleFunc("POST /api/auth/follow/{id}", a.requireAuth(a.handleFollow))

	mux.HandleFunc("POST /api/posts/create", a.requireAuth(a.handleCreatePost))
	mux.HandleFunc("GET /api/posts/feed", a.handleFeed)
	mux.HandleFunc("PUT /api/posts/like/{id}", a.requireAuth(a.handleLikePost))
	mux.HandleFunc("POST /api/posts/comment/{id}", a.requireAuth(a.handleCommentPost))
	mux.HandleFunc("PUT /api/posts/{id}", a.requireAuth(a.handleEditPost))
	mux.HandleFunc("DELETE /api/posts/{id}", a.requireAuth(a.handleDeletePost))

	mux.HandleFunc("POST /api/messages/send/{id}", a.requireAuth(a.handleSendMessage))
	mux.HandleFunc("GET /api/messages/{id}", a.requireAuth(a.handleConversation))

	if opts.MediaDir != "" {
		mux.Handle("GET /media/", http.StripPrefix("/media/", http.FileServer(http.Dir(opts.MediaDir))))
	}

	mux.Handle("/", base)
	srv.SetRouter(mux)

	return a
}

// requireAuth resolves the caller before any core operation and hands the
// handler the full account document.
func (a *API) requireAuth(next func(http.ResponseWriter, *http.Request, *store.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := a.gate.Authenticate(requestToken(r))
		if err != nil {
			a.respondError(w, err)
			return
		}
		user, err := a.store.UserByID(r.Context(), identity)
		if err != nil {
			a.respondError(w, fmt.Errorf("%w: unknown account", mates.ErrUnauthenticated))
			return
		}
		next(w, r, user)
	}
}
