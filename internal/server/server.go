package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/illufoxKusanagi/daily-reminder/internal/config"
	"github.com/illufoxKusanagi/daily-reminder/internal/repository"
)

// Scheduler is the part of the reminder scheduler the API touches: write
// endpoints refresh it after mutating reminder-bearing fields, and the
// status endpoint reports its snapshot.
type Scheduler interface {
	Refresh()
	Armed() map[string]string
}

type Server struct {
	Server   *http.Server
	log      *zerolog.Logger
	eventAPI *EventHandler
	sched    Scheduler
}

// New builds the HTTP server bound to loopback.
func New(cfg *config.Config, repo repository.EventRepository, sched Scheduler, log *zerolog.Logger) *Server {
	eventAPI := NewEventHandler(repo, sched, log)

	s := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		log:      log,
		eventAPI: eventAPI,
		sched:    sched,
	}

	r := mux.NewRouter()
	s.setupRoutes(r)
	// CORS wraps the router so preflight requests short-circuit before
	// route matching.
	s.Server.Handler = corsMiddleware(r)

	return s
}

func (s *Server) setupRoutes(r *mux.Router) {
	r.Use(s.loggingMiddleware)

	r.HandleFunc("/status", s.status).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	events := r.PathPrefix("/api/event").Subrouter()
	events.HandleFunc("", s.eventAPI.ListEvents).Methods("GET")
	events.HandleFunc("", s.eventAPI.CreateEvent).Methods("POST")
	events.HandleFunc("/upcoming", s.eventAPI.UpcomingEvents).Methods("GET")
	events.HandleFunc("/date/{date}", s.eventAPI.EventsByDate).Methods("GET")
	events.HandleFunc("/{id}", s.eventAPI.GetEvent).Methods("GET")
	events.HandleFunc("/{id}", s.eventAPI.UpdateEvent).Methods("PUT")
	events.HandleFunc("/{id}", s.eventAPI.DeleteEvent).Methods("DELETE")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("address", s.Server.Addr).Msg("Starting server")
	return s.Server.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info().Msg("Shutting down server")
	return s.Server.Shutdown(ctx)
}

// corsMiddleware adds the CORS headers the web frontend relies on and
// answers preflight requests directly.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,PATCH,OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		h.Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs all incoming requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{w, http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.status).
			Str("duration", duration.String()).
			Msg("Request processed")
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// status reports the service banner and the armed-reminder snapshot.
func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "Daily Reminder Backend is running!",
		"service":        "Daily Reminder HTTP API",
		"armedReminders": len(s.sched.Armed()),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
