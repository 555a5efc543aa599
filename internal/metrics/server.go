package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/logging"
)

const checkTimeout = 3 * time.Second

// Check is a named dependency probe run by /readyz
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Server exposes /metrics, /healthz and /readyz on a side port
type Server struct {
	server *http.Server
	checks []Check
	logger *logging.Logger
}

// NewServer builds the side-port server. /readyz fails while any check fails.
func NewServer(port int, logger *logging.Logger, checks ...Check) *Server {
	s := &Server{checks: checks, logger: logging.OrNop(logger)}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/readyz", s.ready)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the server's mux
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for _, c := range s.checks {
		if err := c.Probe(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[c.Name] = err.Error()
			continue
		}
		results[c.Name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(results)
}

// Start blocks serving until Shutdown
func (s *Server) Start() error {
	s.logger.Infof("Starting metrics server on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down metrics server...")
	return s.server.Shutdown(ctx)
}
