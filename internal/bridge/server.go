package bridge

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"vidbee/internal/constants"
	apperr "vidbee/internal/errors"
)

const requestTimeout = 15 * time.Second

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(requestTimeout))
	s.router.Use(corsMiddleware)

	s.router.Get("/status", s.handleStatus)
	s.router.Get("/token", s.handleToken)
	s.router.Get("/video-info", s.handleVideoInfo)
	s.router.Options("/*", handlePreflight)
}

// Start binds the first free port in the fixed loopback range and begins
// serving in the background. Returns an error only if every port in the
// range is already taken.
func (s *Server) Start() error {
	listener, err := listenInRange(constants.BridgePortRangeStart, constants.BridgePortRangeEnd)
	if err != nil {
		return apperr.Wrap("LoopbackBridge.Start", err)
	}

	httpServer := &http.Server{
		Handler:      s.router,
		ReadTimeout:  requestTimeout,
		WriteTimeout: requestTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.mu.Lock()
	s.listener = listener
	s.httpServer = httpServer
	s.mu.Unlock()

	go httpServer.Serve(listener)
	return nil
}

// Stop gracefully shuts the server down, waiting up to 5s for in-flight
// requests to finish.
func (s *Server) Stop() error {
	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()
	if httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

func listenInRange(start, end int) (net.Listener, error) {
	var lastErr error
	for port := start; port <= end; port++ {
		listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			return listener, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no free port in [%d, %d]: %w", start, end, lastErr)
}
