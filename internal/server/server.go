// Package server exposes the layout pipeline over HTTP.
//
// Routes:
//
//	GET    /healthz                      build info
//	POST   /render                       score body → artifact (?format=svg)
//	POST   /scores                       score body → stored document
//	GET    /scores                       stored documents, newest first
//	GET    /scores/{id}                  layout document
//	GET    /scores/{id}/render.{format}  artifact of a stored score
//	DELETE /scores/{id}                  remove a stored score
//
// Score bodies are text notation or Standard MIDI Files; the format is
// detected from the content, the Content-Type or ?filename= unless ?from=
// names it. Query parameters override the layout and render defaults:
// policy, width, row_spacing, title, track, grid, clef, key, outlines,
// background, scale, transparent and detailed.
//
// Errors are JSON objects carrying the error code, message, request id and,
// for syntax errors, the line and column.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/matzehuels/engrave/pkg/pipeline"
	"github.com/matzehuels/engrave/pkg/storage"
)

// DefaultMaxBodyBytes limits request bodies when Options.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 1 << 20

const shutdownTimeout = 10 * time.Second

// Options configures a [Server].
type Options struct {
	// Runner executes the pipeline. Required.
	Runner *pipeline.Runner

	// Store holds imported scores. Required.
	Store storage.Store

	// Defaults are the layout and render options requests start from.
	// Source, format and title fields are ignored.
	Defaults pipeline.Options

	// CORSOrigins lists allowed origins. Empty allows all.
	CORSOrigins []string

	MaxBodyBytes int64
	Logger       *log.Logger
}

// Server is the HTTP render service.
type Server struct {
	runner   *pipeline.Runner
	store    storage.Store
	defaults pipeline.Options
	origins  []string
	maxBody  int64
	logger   *log.Logger
}

// New creates a server.
func New(opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Server{
		runner:   opts.Runner,
		store:    opts.Store,
		defaults: opts.Defaults,
		origins:  opts.CORSOrigins,
		maxBody:  opts.MaxBodyBytes,
		logger:   opts.Logger,
	}
}

// Handler returns the router with all middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(s.limitBody)

	r.Get("/healthz", s.handleHealth)
	r.Post("/render", s.handleRender)
	r.Route("/scores", func(r chi.Router) {
		r.Get("/", s.handleListScores)
		r.Post("/", s.handleCreateScore)
		r.Get("/{id}", s.handleGetScore)
		r.Get("/{id}/render.{format}", s.handleRenderScore)
		r.Delete("/{id}", s.handleDeleteScore)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errNotFound(r))
	})

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader, failedHeader},
	})
	return c.Handler(r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
