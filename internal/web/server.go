package web

import (
	"context"
	"io/fs"
	"log"
	"net/http"
	"time"

	"tailscale.com/tsweb"

	"github.com/cjeanneret/ScanGo/internal/debug"
)

// Server wraps the HTTP server and handlers.
type Server struct {
	addr       string
	handlers   *Handlers
	configYAML []byte
}

// NewServer creates a server configured for the given address and dependencies.
// configYAML is the effective configuration shown on /debug/config.
func NewServer(addr string, broadcaster *StatusBroadcaster, formDefaults FormConfig, configYAML []byte) *Server {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("web: failed to sub static fs: %v", err)
	}

	return &Server{
		addr:       addr,
		handlers:   NewHandlers(broadcaster, formDefaults, subFS),
		configYAML: configYAML,
	}
}

// Mux returns an http.Handler with all routes registered.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /calculate", s.handlers.HandleCalculate)
	mux.HandleFunc("GET /config", s.handlers.HandleConfig)
	mux.HandleFunc("GET /chart", s.handlers.HandleChart)
	mux.HandleFunc("GET /status/stream", s.handlers.HandleStatusStream)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(s.handlers.staticFS))))
	mux.HandleFunc("GET /{$}", s.handlers.ServeIndex) // exact match for root only

	s.attachDebugRoutes(mux)
	return mux
}

// attachDebugRoutes mounts the tsweb debugger on /debug/. It only answers
// loopback and tailnet clients.
func (s *Server) attachDebugRoutes(mux *http.ServeMux) {
	dbg := tsweb.Debugger(mux)
	dbg.KV("Scanner", s.handlers.FormDefaults.Scanner)
	dbg.KVFunc("Evaluations", func() any { return s.handlers.Evaluations() })
	dbg.KVFunc("Status stream clients", func() any { return s.handlers.Broadcaster.Subscribers() })
	dbg.KVFunc("Debug level", func() any { return debug.Level() })
	dbg.Handle("config", "Effective configuration (YAML)", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		w.Write(s.configYAML)
	}))
}

// Run starts the server and blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Mux()}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("web server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
