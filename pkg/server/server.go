// Package server exposes the analyzer over HTTP with a small browser UI.
package server

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/japaniel/morphan/pkg/analysis"
	"github.com/japaniel/morphan/pkg/format"
)

//go:embed static
var staticFiles embed.FS

// DefaultMaxBody limits request bodies when Options.MaxBody is unset.
const DefaultMaxBody = 1 << 20

// Options configures a Server.
type Options struct {
	// DB enables saving analyses and the history endpoints. May be nil.
	DB *sql.DB
	// Gloss adds dictionary glosses to response words. May be nil.
	Gloss   format.GlossFunc
	MaxBody int64
	Logger  *slog.Logger
}

// Server represents the HTTP API server.
type Server struct {
	router   *http.ServeMux
	handler  http.Handler
	analyzer *analysis.Analyzer
	db       *sql.DB
	gloss    format.GlossFunc
	maxBody  int64
	logger   *slog.Logger
}

// New creates a Server. The analyzer should keep tokens so the UI can show them.
func New(a *analysis.Analyzer, opts Options) *Server {
	if opts.MaxBody <= 0 {
		opts.MaxBody = DefaultMaxBody
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		router:   http.NewServeMux(),
		analyzer: a,
		db:       opts.DB,
		gloss:    opts.Gloss,
		maxBody:  opts.MaxBody,
		logger:   opts.Logger,
	}
	s.registerRoutes()
	s.handler = s.applyMiddleware(s.router)
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("POST /api/analyze", s.handleAnalyze)
	s.router.HandleFunc("GET /api/analyses", s.handleListAnalyses)
	s.router.HandleFunc("GET /api/analyses/{id}", s.handleGetAnalysis)
	s.router.HandleFunc("GET /healthz", s.handleHealth)

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("GET /", http.FileServerFS(static))
}

// applyMiddleware wraps the handler with middleware in the correct order
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	// Last applied runs first.
	handler = RecoveryMiddleware(s.logger)(handler)
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware()(handler)
	return handler
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Run listens on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
