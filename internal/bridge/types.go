// Package bridge implements the LoopbackBridge: a loopback-only HTTP
// server exposing a minimal, token-authenticated surface to a companion
// browser extension.
package bridge

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"vidbee/internal/downloader"
	"vidbee/internal/ratelimit"
)

// videoInfoLimiter throttles /video-info independently of token issuance,
// since a browser extension can otherwise mint tokens as fast as it can
// request them.
var videoInfoLimiter = ratelimit.BridgeVideoInfoLimiter

// Server is the LoopbackBridge. It owns the listener, the single-use
// token store, and routes requests to the DownloadEngine.
type Server struct {
	engine *downloader.Engine
	router *chi.Mux

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener

	tokensMu sync.Mutex
	tokens   map[string]time.Time
}

// New builds a Server wired to engine. Call Start to bind and serve.
func New(engine *downloader.Engine) *Server {
	s := &Server{
		engine: engine,
		router: chi.NewRouter(),
		tokens: make(map[string]time.Time),
	}
	s.setupRoutes()
	return s
}

// Addr returns the address the server is currently bound to, or "" if
// not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
