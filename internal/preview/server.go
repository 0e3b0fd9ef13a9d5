// Package preview serves translation, validation and completion over a
// small HTTP JSON API, with an event stream of live previews for watched
// files.
package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/fetchsql/internal/convert"
	"github.com/leapstack-labs/fetchsql/internal/watch"
	"github.com/leapstack-labs/fetchsql/pkg/core"
	"github.com/leapstack-labs/fetchsql/pkg/transpile"
)

// Config holds configuration for the preview server.
type Config struct {
	Addr      string
	Metadata  core.MetadataProvider
	Transpile []transpile.Option
	// Watch lists files whose translations are streamed on /api/v1/events.
	Watch    []string
	Debounce time.Duration
	Logger   *slog.Logger
	Version  string
}

// Server is the preview HTTP server.
type Server struct {
	addr      string
	metadata  core.MetadataProvider
	transpile []transpile.Option
	watch     []string
	debounce  time.Duration
	version   string
	logger    *slog.Logger
	hub       *Hub
}

// NewServer creates a new preview server instance.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		addr:      cfg.Addr,
		metadata:  cfg.Metadata,
		transpile: cfg.Transpile,
		watch:     cfg.Watch,
		debounce:  cfg.Debounce,
		version:   cfg.Version,
		logger:    logger,
		hub:       NewHub(),
	}
}

// Hub returns the server's preview event hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		requestID,
		requestLogger(s.logger),
		middleware.Recoverer,
	)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/fetchxml", s.handleToFetchXML)
		r.Post("/sql", s.handleToSQL)
		r.Post("/validate", s.handleValidate)
		r.Post("/complete", s.handleComplete)
		r.Get("/events", s.handleEvents)
	})
	return r
}

// Serve listens on the configured address and blocks until the context is
// cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until the context is cancelled, then shuts
// down gracefully. Watched files are translated once up front and again
// on every save.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting preview server", "addr", "http://"+ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if len(s.watch) > 0 {
		for _, path := range s.watch {
			s.Refresh(egctx, path)
		}
		w := watch.New(s.watch, s.debounce, s.Refresh, s.logger)
		eg.Go(func() error {
			return w.Run(egctx)
		})
	}

	// Start HTTP server
	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down preview server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Refresh translates path and publishes the result.
func (s *Server) Refresh(_ context.Context, path string) {
	ev := Event{Path: path}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is a file the user asked to watch
	if err != nil {
		ev.Error = err.Error()
		s.logger.Warn("failed to read watched file", "file", path, "error", err)
		s.hub.Publish(ev)
		return
	}

	text := string(data)
	res, err := convert.Translate(text, convert.Language(path, text), s.transpile...)
	if err != nil {
		ev.Error = err.Error()
	} else {
		ev.Result = res
	}
	s.hub.Publish(ev)
}
