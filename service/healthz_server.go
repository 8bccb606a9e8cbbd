package service

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rs/cors"
)

// HealthzServer answers /healthz while the step runs
type HealthzServer struct {
	ctx    context.Context
	server *http.Server
	log    log.Logger
}

// Handler returns the CORS wrapped healthz mux
func (h *HealthzServer) Handler() http.Handler {
	hdlr := http.NewServeMux()
	hdlr.HandleFunc("/healthz", h.Handle)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	return c.Handler(hdlr)
}

// Prepare creates the server for addr. It must be called before Serve and Shutdown.
func (h *HealthzServer) Prepare(ctx context.Context, addr string) {
	h.server = &http.Server{
		Handler: h.Handler(),
		Addr:    addr,
	}
	h.ctx = ctx
}

// Serve blocks until the server is shut down. A server shut down before Serve returns
// http.ErrServerClosed immediately.
func (h *HealthzServer) Serve() error {
	return h.server.ListenAndServe()
}

func (h *HealthzServer) Shutdown() error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(h.ctx)
}

func (h *HealthzServer) Handle(w http.ResponseWriter, r *http.Request) {
	if h.log != nil {
		h.log.Debug("Received health check request", "path", r.URL.Path)
	}
	w.Write([]byte("OK")) //nolint:errcheck
}
