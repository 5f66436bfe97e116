package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"marketsim/internal/engine"
	"marketsim/internal/event"
	"marketsim/internal/service"
)

// encodeBuffers recycles JSON encode buffers across websocket writes.
var encodeBuffers = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

// wsEnvelope wraps an event with its type tag for websocket clients.
type wsEnvelope struct {
	Type  event.Type  `json:"type"`
	Event event.Event `json:"event"`
}

// Server exposes the read model and the live event stream over HTTP.
type Server struct {
	eng      *engine.Engine
	svc      *service.MarketService
	log      *slog.Logger
	port     int
	upgrader websocket.Upgrader

	httpServer *http.Server
}

// NewServer creates a server on the given port.
func NewServer(eng *engine.Engine, svc *service.MarketService, log *slog.Logger, port int) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		eng:  eng,
		svc:  svc,
		log:  log,
		port: port,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The stream is synthetic and local; any origin may read it.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/regime", s.handleRegime)
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.HandleFunc("/ws", s.handleWS)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: corsMiddleware(mux),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	s.log.Info("API server listening", slog.Int("port", s.port))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"running":   s.eng.Running(),
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if symbol := r.URL.Query().Get("symbol"); symbol != "" {
		snap, ok := s.svc.Get(symbol)
		if !ok {
			http.Error(w, "unknown symbol", http.StatusNotFound)
			return
		}
		s.writeJSON(w, http.StatusOK, snap)
		return
	}
	s.writeJSON(w, http.StatusOK, s.svc.GetAll())
}

func (s *Server) handleRegime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, s.svc.Regime())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"engine":      s.eng.Metrics(),
		"performance": s.svc.Performance(),
	})
}

// handleWS upgrades the connection and pumps engine events to the client
// until either side goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	sub := s.eng.Subscribe(256)
	defer sub.Close()
	defer conn.Close()

	// Reader goroutine: we ignore client messages but need to notice closes.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := s.writeEvent(conn, ev); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, ev event.Event) error {
	buf := encodeBuffers.Get().(*bytes.Buffer)
	buf.Reset()
	defer encodeBuffers.Put(buf)

	if err := json.NewEncoder(buf).Encode(wsEnvelope{Type: ev.GetType(), Event: ev}); err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, buf.Bytes())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", slog.Any("error", err))
	}
}
