package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limits for the ingest and operator API. The write timeout does not apply
// to /ws once the connection is upgraded.
const (
	maxHeaderBytes    = 1 << 20
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
)

// Server serves the crashgate API until Shutdown is called.
// The zero value is ready to use.
type Server struct {
	mu       sync.Mutex
	srv      *http.Server
	shutdown bool
}

// Run listens on port and serves handler. port may be "8080", ":8080" or
// "host:8080"; an empty port listens on :http.
// Run blocks and returns nil once Shutdown has stopped it, or the listen error otherwise.
func (s *Server) Run(port string, handler http.Handler) error {
	ln, err := net.Listen("tcp", listenAddr(port))
	if err != nil {
		return err
	}
	return s.Serve(ln, handler)
}

// Serve is Run on an existing listener. It takes ownership of ln.
func (s *Server) Serve(ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		MaxHeaderBytes:    maxHeaderBytes,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.srv = srv
	s.mu.Unlock()

	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires. A Run that has not started yet returns immediately.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.shutdown = true
	srv := s.srv
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func listenAddr(port string) string {
	switch {
	case port == "":
		return ":http"
	case strings.Contains(port, ":"):
		return port
	default:
		return ":" + port
	}
}
