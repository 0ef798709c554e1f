// Package server provides the HTTP and WebSocket surface of the rep counter.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/trainiq/internal/app"
	"github.com/ayusman/trainiq/internal/exercise"
	"github.com/ayusman/trainiq/internal/server/api"
	"github.com/ayusman/trainiq/internal/transport"
)

// Config holds the server configuration.
type Config struct {
	App       *app.App
	Encoder   transport.Encoder
	StaticDir string
	Logger    *slog.Logger

	// DefaultCamera and DefaultMode are used when /api/initialize omits them.
	DefaultCamera int
	DefaultMode   exercise.Mode
}

// Server routes HTTP requests to the session manager.
type Server struct {
	config Config
	app    *app.App
	log    *slog.Logger
	router chi.Router
	start  time.Time
}

// New creates a new Server with all routes configured.
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.DefaultMode == "" {
		config.DefaultMode = exercise.ModePushUp
	}

	s := &Server{
		config: config,
		app:    config.App,
		log:    config.Logger,
		router: chi.NewRouter(),
		start:  time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/api/health", s.handleHealth)

	s.router.Get("/api/initialize", s.handleInitialize)
	s.router.Post("/api/initialize", s.handleInitialize)
	s.router.Get("/api/process_frame", s.handleProcessFrame)
	s.router.Get("/api/reset", s.handleReset)
	s.router.Post("/api/reset", s.handleReset)
	s.router.Get("/api/stats", s.handleStats)
	s.router.Post("/api/stop", s.handleStop)

	s.router.Method(http.MethodGet, "/api/ws", NewWSHandler(s.app, s.config.Encoder, s.log))
	s.router.Method(http.MethodGet, "/api/stream", NewStreamHandler(s.app, s.config.Encoder, s.log))

	if st := s.app.Store(); st != nil {
		s.router.Mount("/api/profiles", api.NewProfileHandler(st, s.app).Routes())
		s.router.Mount("/api/workouts", api.NewWorkoutHandler(st).Routes())
	}

	s.router.Handle("/metrics", s.app.Metrics().Handler())

	if s.config.StaticDir != "" {
		s.router.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
