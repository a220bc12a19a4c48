// Package rest provides the HTTP API for guests and the host.
package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vibeq/internal/app/party"
	"github.com/osa030/vibeq/internal/infra/config"
)

const defaultSearchLimit = 10

// Server serves the guest and host HTTP API.
type Server struct {
	party  *party.Manager
	config *config.Config
	router *mux.Router
	server *http.Server
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(cfg *config.Config, p *party.Manager) *Server {
	s := &Server{
		party:  p,
		config: cfg,
		router: mux.NewRouter().StrictSlash(false),
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.recoverMiddleware)

	// Guest routes
	api.HandleFunc("/search", s.handleSearch).Methods("GET")
	api.HandleFunc("/requests", s.handleSubmit).Methods("POST")
	api.HandleFunc("/queue", s.handleQueue).Methods("GET")
	api.HandleFunc("/events", s.handleEvents).Methods("GET")

	// Host routes
	host := api.PathPrefix("").Subrouter()
	host.Use(s.hostAuthMiddleware)
	host.HandleFunc("/requests/{id}/approve", s.handleApprove).Methods("POST")
	host.HandleFunc("/requests/{id}/deny", s.handleDeny).Methods("POST")
	host.HandleFunc("/requests/{id}/remove", s.handleRemove).Methods("POST")
	host.HandleFunc("/requests/{id}/skip", s.handleSkip).Methods("POST")
	host.HandleFunc("/queue/reorder", s.handleReorder).Methods("POST")
	host.HandleFunc("/queue/shuffle", s.handleShuffle).Methods("POST")
	host.HandleFunc("/queue/clear", s.handleClear).Methods("POST")
	host.HandleFunc("/player/pause", s.handlePause).Methods("POST")
	host.HandleFunc("/player/resume", s.handleResume).Methods("POST")
	host.HandleFunc("/player/seek", s.handleSeek).Methods("POST")

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsHandler := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"Content-Type", "X-Host-Token"}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
	)

	s.server = &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     corsHandler(s.router),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	return s
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// ListenAndServe blocks serving HTTP until the server is shut down.
func (s *Server) ListenAndServe() error {
	zlog.Info().Msgf("http server listening: addr=%s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				zlog.Error().Msgf("recovered from panic: %v\n%s", rec, debug.Stack())
				writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) hostAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Host-Token")
		if token == "" || token != s.config.Host.Token {
			writeError(w, http.StatusForbidden, "forbidden", "invalid host token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := defaultSearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 50 {
			writeError(w, http.StatusUnprocessableEntity, "invalid_argument", "limit must be between 1 and 50")
			return
		}
		limit = parsed
	}

	results, err := s.party.Search(r.Context(), query, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

type submitRequest struct {
	TrackRef string `json:"track_ref"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var body submitRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.TrackRef == "" {
		writeError(w, http.StatusUnprocessableEntity, "invalid_argument", "track_ref is required")
		return
	}

	req, accepted, code, err := s.party.Submit(r.Context(), body.TrackRef)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !accepted {
		writeJSON(w, http.StatusOK, map[string]any{
			"accepted": false,
			"code":     code,
			"message":  s.config.GetMessage(code),
		})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"accepted": true,
		"message":  s.config.GetMessage("success"),
		"request":  req,
	})
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.party.QueueView())
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	req, err := s.party.Approve(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleDeny(w http.ResponseWriter, r *http.Request) {
	req, err := s.party.Deny(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	req, err := s.party.Remove(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	if err := s.party.Skip(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.party.QueueView())
}

type reorderRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var body reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_argument", "ids is required")
		return
	}
	if err := s.party.Reorder(r.Context(), body.IDs); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.party.QueueView())
}

func (s *Server) handleShuffle(w http.ResponseWriter, r *http.Request) {
	if err := s.party.Shuffle(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.party.QueueView())
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.party.ResetAll(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.party.QueueView())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := s.party.PausePlayback(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if err := s.party.ResumePlayback(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type seekRequest struct {
	PositionMs *int64 `json:"position_ms"`
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var body seekRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.PositionMs == nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_argument", "position_ms is required")
		return
	}
	position := time.Duration(*body.PositionMs) * time.Millisecond
	if err := s.party.SeekPlayback(r.Context(), position); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
