// Package server implements the backing store process: it owns the schema
// file, serves the editing GUI, and answers the sync protocol over both plain
// HTTP endpoints and the persistent /api/sync websocket. A finish signal from
// the client ends the process loop.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/goliatone/go-schemabuild/internal/store"
)

// Mux is the minimal interface required to register handlers. It is
// satisfied by *http.ServeMux.
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

// Options configures the server.
type Options struct {
	// StaticDir holds the prebuilt GUI assets; when empty a minimal status
	// page is served instead.
	StaticDir string
	// Sanitize runs incoming free-text fields through the helptext policy
	// before they reach disk.
	Sanitize bool
	Logger   *zap.Logger
}

// OptionFn mutates Options.
type OptionFn func(*Options)

// WithStaticDir points the server at the GUI asset directory.
func WithStaticDir(dir string) OptionFn {
	return func(o *Options) { o.StaticDir = dir }
}

// WithSanitize toggles help-text sanitation on save.
func WithSanitize(enabled bool) OptionFn {
	return func(o *Options) { o.Sanitize = enabled }
}

// WithLogger injects a logger.
func WithLogger(log *zap.Logger) OptionFn {
	return func(o *Options) {
		if log != nil {
			o.Logger = log
		}
	}
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{Sanitize: true, Logger: zap.NewNop()}
}

// NewOptions applies fns over the defaults.
func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn != nil {
			fn(&opts)
		}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return opts
}

// Server is the backing store process.
type Server struct {
	store    *store.FileStore
	opts     Options
	log      *zap.Logger
	upgrader websocket.Upgrader

	// fileMu serializes schema file access across HTTP and websocket
	// handlers.
	fileMu sync.Mutex

	finishOnce sync.Once
	finished   chan struct{}
}

// New returns a server bound to the given file store.
func New(fileStore *store.FileStore, fns ...OptionFn) *Server {
	opts := NewOptions(fns...)
	return &Server{
		store: fileStore,
		opts:  opts,
		log:   opts.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The tool binds to localhost; the GUI may be opened from a
			// file:// origin during development.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		finished: make(chan struct{}),
	}
}

// Finished is closed once the client signals finish.
func (s *Server) Finished() <-chan struct{} {
	return s.finished
}

// Routes registers every endpoint on mux.
func (s *Server) Routes(mux Mux) {
	mux.Handle("/api/schema", http.HandlerFunc(s.handleSchema))
	mux.Handle("/api/finish", http.HandlerFunc(s.handleFinish))
	mux.Handle("/api/health", http.HandlerFunc(s.handleHealth))
	mux.Handle("/api/sync", http.HandlerFunc(s.handleSync))
	mux.Handle("/", s.staticHandler())
}

// ListenAndServe runs the HTTP server until ctx is cancelled or the client
// signals finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	s.Routes(mux)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() { errs <- srv.ListenAndServe() }()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	case <-s.finished:
		// Give the finish acknowledgment a moment to flush.
		time.Sleep(100 * time.Millisecond)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) signalFinish() {
	s.finishOnce.Do(func() {
		s.log.Info("finish signal received")
		close(s.finished)
	})
}

func (s *Server) staticHandler() http.Handler {
	if s.opts.StaticDir != "" {
		return http.FileServer(http.Dir(s.opts.StaticDir))
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(statusPage))
	})
}

const statusPage = `<!doctype html>
<html>
<head><title>schemabuild</title></head>
<body>
<h1>schemabuild</h1>
<p>The schema store is running. Point the editor GUI at this address, or use
the API endpoints under <code>/api</code>.</p>
</body>
</html>
`
