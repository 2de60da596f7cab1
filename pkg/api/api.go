// Package api serves projects over HTTP.
//
// Routes:
//
//	GET    /healthz
//	GET    /projects
//	PUT    /projects/{projectID}                          import records
//	GET    /projects/{projectID}/view
//	GET    /projects/{projectID}/render?format=svg&highlight=true
//	GET    /projects/{projectID}/integrity
//	POST   /projects/{projectID}/dependencies/validate
//	POST   /projects/{projectID}/dependencies             201, 409 or 422
//	DELETE /projects/{projectID}/dependencies             204 or 404
//
// Dependency bodies are {"dependentId", "prerequisiteId", "confirm"}.
// Errors are {"error": {"code", "message"}}, plus the verdict when an edit
// was blocked. Every response carries an X-Request-ID.
package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/taskgraph/pkg/config"
	"github.com/matzehuels/taskgraph/pkg/editor"
	"github.com/matzehuels/taskgraph/pkg/layout"
	"github.com/matzehuels/taskgraph/pkg/pipeline"
	"github.com/matzehuels/taskgraph/pkg/rules"
	"github.com/matzehuels/taskgraph/pkg/store"
)

// Options configures a Server. Nil fields take the same defaults as
// editor.Options.
type Options struct {
	Engine *rules.Engine
	Runner *pipeline.Runner
	Layout layout.Options
	Logger *log.Logger
}

// Server routes HTTP requests to one editor per project. Editors are
// opened on first use and kept for the server's lifetime.
type Server struct {
	store  store.Store
	engine *rules.Engine
	runner *pipeline.Runner
	layout layout.Options
	logger *log.Logger

	mu      sync.Mutex
	editors map[string]*editor.Editor
}

// New creates a server backed by s.
func New(s store.Store, opts Options) *Server {
	if opts.Engine == nil {
		opts.Engine = rules.New(rules.DefaultPolicy())
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Runner == nil {
		opts.Runner = pipeline.NewRunner(nil, nil, opts.Logger)
	}
	return &Server{
		store:   s,
		engine:  opts.Engine,
		runner:  opts.Runner,
		layout:  opts.Layout,
		logger:  opts.Logger,
		editors: make(map[string]*editor.Editor),
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/projects", s.handleProjects)
	r.Route("/projects/{projectID}", func(r chi.Router) {
		r.Put("/", s.handleImport)
		r.Get("/view", s.handleView)
		r.Get("/render", s.handleRender)
		r.Get("/integrity", s.handleIntegrity)
		r.Post("/dependencies/validate", s.handleValidate)
		r.Post("/dependencies", s.handleAddDependency)
		r.Delete("/dependencies", s.handleRemoveDependency)
	})
	return r
}

// Serve listens on cfg.Addr until ctx is cancelled, then shuts down
// gracefully within cfg.ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, cfg config.ServerConfig) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", cfg.Addr)

	select {
	case err := <-errc:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Close closes every open editor.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ed := range s.editors {
		ed.Close()
		delete(s.editors, id)
	}
}

// editorFor returns the editor of projectID, opening it on first use.
func (s *Server) editorFor(ctx context.Context, projectID string) (*editor.Editor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ed, ok := s.editors[projectID]; ok {
		return ed, nil
	}
	ed, err := editor.Open(ctx, s.store, projectID, editor.Options{
		Engine: s.engine,
		Runner: s.runner,
		Layout: s.layout,
		Logger: s.logger,
	})
	if err != nil {
		return nil, err
	}
	s.editors[projectID] = ed
	return ed, nil
}
