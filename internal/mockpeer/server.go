package mockpeer

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Status is served on /api/status so clients can verify the running hub.
type Status struct {
	Addr                 string        `json:"addr"`
	Clients              int           `json:"clients"`
	Online               []string      `json:"online"`
	PresenceInterval     time.Duration `json:"presence_interval"`
	NotificationInterval time.Duration `json:"notification_interval"`
	StartedAt            time.Time     `json:"started_at"`
}

// Server exposes a Hub over HTTP.
type Server struct {
	logger    *logrus.Entry
	hub       *Hub
	server    *http.Server
	addr      string
	startedAt time.Time
	cancel    context.CancelFunc
}

// NewServer creates a Server for hub.
func NewServer(hub *Hub, logger *logrus.Entry) *Server {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{logger: logger, hub: hub}
}

// Handler returns the HTTP routes: /ws for the channel, plus /health,
// /api/presence and /api/status.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.hub)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/presence", s.handlePresence)
	mux.HandleFunc("/api/status", s.handleStatus)
	return mux
}

// ListenAndServe listens on addr and serves until Shutdown. The hub's
// simulations run for as long as the server does.
func (s *Server) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(listener)
}

// Serve accepts connections on listener.
func (s *Server) Serve(listener net.Listener) error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.addr = listener.Addr().String()
	s.startedAt = time.Now()
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go s.hub.Run(ctx)

	s.logger.WithField("addr", s.addr).Info("Mock peer listening")
	err := s.server.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the simulations, closes client connections, and stops the
// server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down mock peer...")
	if s.cancel != nil {
		s.cancel()
	}
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]string{"online": s.hub.Online()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Status{
		Addr:                 s.addr,
		Clients:              s.hub.Clients(),
		Online:               s.hub.Online(),
		PresenceInterval:     s.hub.cfg.PresenceInterval,
		NotificationInterval: s.hub.cfg.NotificationInterval,
		StartedAt:            s.startedAt,
	})
}
