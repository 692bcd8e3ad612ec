package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/bryanchriswhite/CamLayer/internal/logger"
	"github.com/bryanchriswhite/CamLayer/internal/mode"
)

// Controller is the part of the mode controller the bridge drives.
type Controller interface {
	Toggle() (mode.Mode, error)
	Current() mode.Mode
	OnChange(func(mode.Mode))
}

// modeResponse is the JSON shape for mode queries and toggle results.
type modeResponse struct {
	Background bool   `json:"background"`
	Mode       string `json:"mode"`
}

// Server exposes the camera controls over HTTP so external tooling
// (stream decks, hotkey daemons) can flip the presentation mode.
type Server struct {
	router     *mux.Router
	controller Controller
	preview    *Preview
	upgrader   websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[uuid.UUID]chan mode.Mode

	httpSrv *http.Server
}

// NewServer creates a new bridge server.
func NewServer(controller Controller, preview *Preview) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		controller: controller,
		preview:    preview,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
		clients: make(map[uuid.UUID]chan mode.Mode),
	}

	// Push successful transitions to every websocket client. The
	// callback runs under the controller lock, so sends must not block.
	controller.OnChange(func(m mode.Mode) {
		s.clientsMu.RLock()
		for _, ch := range s.clients {
			select {
			case ch <- m:
			default:
			}
		}
		s.clientsMu.RUnlock()
	})

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Camera mode control
	api.HandleFunc("/camera/toggle", s.handleToggle).Methods("POST")
	api.HandleFunc("/camera/mode", s.handleMode).Methods("GET")
	api.HandleFunc("/camera/events", s.handleEvents)

	// Preview stream
	if s.preview != nil {
		api.HandleFunc("/camera/stream", s.preview.Handler())
	}

	// Health check
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logger.WithComponent("bridge").Info().
		Str("addr", addr).
		Msg("Bridge server listening")

	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: s.enableCORS(s.router),
	}
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HTTP Handlers

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	m, err := s.controller.Toggle()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(modeResponse{
		Background: m.IsBackground(),
		Mode:       m.String(),
	})
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	m := s.controller.Current()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(modeResponse{
		Background: m.IsBackground(),
		Mode:       m.String(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("bridge")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	id := uuid.New()
	updates := make(chan mode.Mode, 4)

	s.clientsMu.Lock()
	s.clients[id] = updates
	count := len(s.clients)
	s.clientsMu.Unlock()

	log.Info().Str("client", id.String()).Int("total", count).Msg("Event client connected")

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, id)
		remaining := len(s.clients)
		s.clientsMu.Unlock()
		log.Info().Str("client", id.String()).Int("remaining", remaining).Msg("Event client disconnected")
	}()

	// Send the current mode first so clients never start stale.
	current := s.controller.Current()
	if err := conn.WriteJSON(modeResponse{
		Background: current.IsBackground(),
		Mode:       current.String(),
	}); err != nil {
		return
	}

	for m := range updates {
		if err := conn.WriteJSON(modeResponse{
			Background: m.IsBackground(),
			Mode:       m.String(),
		}); err != nil {
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
