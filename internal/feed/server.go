package feed

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server exposes a Hub on /ws.
type Server struct {
	hub  *Hub
	http *http.Server
	log  *zap.Logger
}

func NewServer(addr string, hub *Hub, log *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	return &Server{
		hub: hub,
		http: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Start binds the listener and serves in the background. It returns the bound
// address, which differs from the configured one when the port is 0.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return "", err
	}
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("feed server stopped", zap.Error(err))
		}
	}()
	return ln.Addr().String(), nil
}

// Shutdown stops accepting observers and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
