// Package server serves compiled client modules and the command endpoint.
package server

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/caffeineduck/tsbridge/middleware"
	"github.com/caffeineduck/tsbridge/script"
)

// DefaultRoute is where the command endpoint is mounted when Options.Route
// is empty.
const DefaultRoute = "/command"

type Options struct {
	// Dispatcher handles POSTed commands, usually a *dispatch.Dispatcher.
	Dispatcher http.Handler
	Strategy   script.Strategy
	Route      string
	HelperURL  string
	Title      string
	Logger     *slog.Logger
	// RateLimit is requests per second on the command route. Zero disables it.
	RateLimit float64
	RateBurst int
}

// Server routes:
//
//	POST <route>     command endpoint
//	GET  /m/{module} page embedding the compiled module
//	GET  /health     health check
//	GET  /           module index
type Server struct {
	opts    Options
	logger  *slog.Logger
	handler http.Handler
}

func New(opts Options) *Server {
	if opts.Route == "" {
		opts.Route = DefaultRoute
	}
	if opts.Title == "" {
		opts.Title = "tsbridge"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{opts: opts, logger: logger}

	var command http.Handler = opts.Dispatcher
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		command = middleware.RateLimit(opts.RateLimit, burst)(command)
	}

	mux := http.NewServeMux()
	mux.Handle(opts.Route, command)
	mux.HandleFunc("GET /m/{module}", s.handleModule)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /{$}", s.handleIndex)

	s.handler = middleware.Chain(
		middleware.Logging(logger),
		middleware.Recover(logger),
	)(mux)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

type moduleLister interface {
	Modules() []string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var modules []string
	if l, ok := s.opts.Strategy.(moduleLister); ok {
		modules = l.Modules()
	}
	s.render(w, http.StatusOK, indexTemplate, map[string]any{
		"Title":   s.opts.Title,
		"Modules": modules,
	})
}

func (s *Server) handleModule(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("module")

	artifact, err := s.opts.Strategy.Artifact(r.Context(), name)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, script.ErrUnknownModule) || errors.Is(err, script.ErrInvalidModuleName) {
			status = http.StatusNotFound
		} else {
			s.logger.Error("module unavailable", "module", name, "error", err)
		}
		s.render(w, status, errorTemplate, map[string]any{
			"Title":  s.opts.Title,
			"Status": status,
			"Module": name,
			"Error":  err.Error(),
		})
		return
	}

	fragment, err := script.Fragment(artifact, script.FragmentOptions{
		HelperURL: s.opts.HelperURL,
		Route:     s.opts.Route,
	})
	if err != nil {
		s.logger.Error("render fragment", "module", name, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	if artifact.Mode == script.OnDemand {
		w.Header().Set("Cache-Control", "no-store")
	}
	s.render(w, http.StatusOK, pageTemplate, map[string]any{
		"Title":    s.opts.Title,
		"Module":   name,
		"Fragment": fragment,
	})
}

func (s *Server) render(w http.ResponseWriter, status int, t *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.Execute(w, data); err != nil {
		s.logger.Error("render page", "template", t.Name(), "error", err)
	}
}
