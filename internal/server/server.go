// Package server streams a session's events over HTTP on a unix socket.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/grovetools/notify/internal/hub"
	"github.com/grovetools/notify/internal/journal"
	"github.com/grovetools/notify/internal/session"
	"github.com/grovetools/notify/pkg/events"
)

// RunningConfig is exposed on /api/config so clients can see what the
// server is watching.
type RunningConfig struct {
	Session   string    `json:"session"`
	Path      string    `json:"path,omitempty"`
	PathList  string    `json:"explicit_path_list,omitempty"`
	Recursive bool      `json:"recursive"`
	Socket    string    `json:"socket"`
	Journal   bool      `json:"journal"`
	StartedAt time.Time `json:"started_at"`
}

// Server manages the HTTP server over a Unix socket.
type Server struct {
	logger        *logrus.Entry
	mu            sync.Mutex
	server        *http.Server
	session       *session.Session
	journal       *journal.Journal
	runningConfig *RunningConfig
}

// New creates a new Server instance.
func New(logger *logrus.Entry) *Server {
	return &Server{
		logger: logger,
	}
}

// SetSession sets the session whose events are served.
func (s *Server) SetSession(sess *session.Session) {
	s.session = sess
}

// SetJournal enables /api/history.
func (s *Server) SetJournal(j *journal.Journal) {
	s.journal = j
}

// SetRunningConfig sets the running configuration for the server.
func (s *Server) SetRunningConfig(cfg *RunningConfig) {
	s.runningConfig = cfg
}

// Handler returns the routes, for serving on any listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/stream", s.handleStream)
	mux.HandleFunc("/api/ws", s.handleWebSocket)
	mux.HandleFunc("/api/config", s.handleGetConfig)
	mux.HandleFunc("/api/counters", s.handleGetCounters)
	mux.HandleFunc("/api/history", s.handleGetHistory)

	return h2c.NewHandler(mux, &http2.Server{})
}

// ListenAndServe starts the server on the given unix socket path.
// It blocks until the server stops or fails.
func (s *Server) ListenAndServe(socketPath string) error {
	// Cleanup stale socket
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(socketPath), 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}

	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	srv := &http.Server{Handler: s.Handler()}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	s.logger.WithField("socket", socketPath).Info("Server listening")
	err = srv.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

// subscription is a hub subscription narrowed by a ?kinds= filter.
type subscription struct {
	hub    *hub.Hub
	ch     chan hub.Update
	recent []events.Event
	kinds  map[events.Kind]bool
}

func (s *Server) subscribe(w http.ResponseWriter, r *http.Request) (*subscription, bool) {
	if s.session == nil {
		http.Error(w, "session not initialized", http.StatusServiceUnavailable)
		return nil, false
	}
	kinds, err := parseKinds(r.URL.Query().Get("kinds"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	h := s.session.Hub()
	ch, recent := h.SubscribeWithRecent()
	return &subscription{hub: h, ch: ch, recent: recent, kinds: kinds}, true
}

func (sub *subscription) close() { sub.hub.Unsubscribe(sub.ch) }

func (sub *subscription) wants(u hub.Update) bool {
	if len(sub.kinds) == 0 || u.Type != hub.UpdateEvent || u.Event == nil {
		return true
	}
	return sub.kinds[u.Event.Kind]
}

// initial returns the retained events, for clients that connect late.
func (sub *subscription) initial() []hub.Update {
	var out []hub.Update
	for _, ev := range sub.recent {
		u := hub.Update{Type: hub.UpdateEvent, At: ev.Stats.ObservedAt, Event: &ev}
		if sub.wants(u) {
			out = append(out, u)
		}
	}
	return out
}

// handleStream provides Server-Sent Events for every session update.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	sub, ok := s.subscribe(w, r)
	if !ok {
		return
	}
	defer sub.close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()
	s.logger.Debug("SSE client connected")

	write := func(u hub.Update) bool {
		data, err := json.Marshal(u)
		if err != nil {
			s.logger.WithError(err).Error("Failed to marshal update")
			return true
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", u.Type, data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	for _, u := range sub.initial() {
		if !write(u) {
			return
		}
	}

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case u, ok := <-sub.ch:
			if !ok {
				return
			}
			if sub.wants(u) && !write(u) {
				return
			}
		}
	}
}

// handleGetConfig returns the running configuration as JSON.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.runningConfig == nil {
		http.Error(w, "config not initialized", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.runningConfig)
}

// handleGetCounters returns the session's activity counters.
func (s *Server) handleGetCounters(w http.ResponseWriter, r *http.Request) {
	if s.session == nil {
		http.Error(w, "session not initialized", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.session.Counters())
}

// handleGetHistory returns journaled events. Query: limit, kinds, session, prefix.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		http.Error(w, "journal disabled", http.StatusNotFound)
		return
	}
	q := r.URL.Query()
	filter := journal.Filter{Limit: 100, Session: q.Get("session"), PathPrefix: q.Get("prefix")}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = n
	}
	kinds, err := parseKinds(q.Get("kinds"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for k := range kinds {
		filter.Kinds = append(filter.Kinds, k)
	}

	entries, err := s.journal.Recent(r.Context(), filter)
	if err != nil {
		s.logger.WithError(err).Error("History query failed")
		http.Error(w, "history query failed", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, entries)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// parseKinds reads a comma-separated list of semantic kinds.
func parseKinds(raw string) (map[events.Kind]bool, error) {
	if raw == "" {
		return nil, nil
	}
	kinds := make(map[events.Kind]bool)
	for _, part := range strings.Split(raw, ",") {
		k, err := events.ParseKind(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		kinds[k] = true
	}
	return kinds, nil
}
