// Package server provides the HTTP server for the mudra fingerspelling service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/observe"
	"github.com/ayusman/mudra/internal/server/api"
)

const shutdownTimeout = 5 * time.Second

// Config holds the server configuration.
type Config struct {
	StaticDir string
	App       *app.App

	// Metrics enables request instrumentation. MetricsHandler, when set, is
	// served at MetricsPath (default /metrics).
	Metrics        *observe.Metrics
	MetricsHandler http.Handler
	MetricsPath    string

	// BusHealthy reports the event bus connection in the health response.
	BusHealthy func() bool

	Log *logrus.Logger
}

// Server represents the HTTP server for the mudra application.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	start   time.Time
	log     *logrus.Entry
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Log == nil {
		config.Log = logrus.StandardLogger()
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		log:    config.Log.WithField("component", "server"),
	}
	s.setupRoutes()

	s.handler = s.mux
	if config.Metrics != nil {
		s.handler = observe.Middleware(config.Metrics, config.Log)(s.mux)
	}
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	if s.config.MetricsHandler != nil {
		s.mux.Handle("GET "+s.config.MetricsPath, s.config.MetricsHandler)
	}

	if a := s.config.App; a != nil {
		api.NewSessionHandler(a).Register(s.mux)
		api.NewVocabularyHandler(a).Register(s.mux)
		api.NewSamplesHandler(a).Register(s.mux)
		s.mux.Handle("GET /api/events", NewEventsHandler(a.Sessions(), s.config.Log))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

type healthResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Sessions int    `json:"sessions"`
	Store    string `json:"store,omitempty"`
	Bus      string `json:"bus,omitempty"`
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := healthResponse{
		Status: "ok",
		Uptime: time.Since(s.start).Round(time.Second).String(),
	}

	if a := s.config.App; a != nil {
		response.Sessions = a.Sessions().Len()
		if st := a.Store(); st != nil {
			response.Store = "ok"
			if err := st.Ping(); err != nil {
				response.Store = "unavailable"
				response.Status = "degraded"
			}
		}
	}
	if s.config.BusHealthy != nil {
		response.Bus = "ok"
		if !s.config.BusHealthy() {
			response.Bus = "disconnected"
			response.Status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
