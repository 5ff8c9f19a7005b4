// Package admin serves the monitoring and administrative HTTP endpoints for a
// credential pool.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vietddude/keypool/internal/pool"
)

// Pool is the part of the dispatcher the admin surface needs.
type Pool interface {
	Stats() pool.PoolStats
	ResetOne(index int) bool
	ResetAll()
}

// ProbeFunc runs a probe request through the pool.
type ProbeFunc func(ctx context.Context) (json.RawMessage, error)

// Status is the aggregated pool health.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

// Server provides HTTP endpoints for pool administration.
type Server struct {
	pool   Pool
	probe  ProbeFunc
	server *http.Server
	log    *slog.Logger
}

// NewServer creates a new admin server. probe may be nil.
func NewServer(p Pool, probe ProbeFunc, port int) *Server {
	s := &Server{
		pool:  p,
		probe: probe,
		log:   slog.Default().With("component", "admin"),
	}
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Handler(),
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /pool/stats", s.handleStats)
	mux.HandleFunc("POST /pool/reset", s.handleResetAll)
	mux.HandleFunc("POST /pool/reset/{index}", s.handleResetOne)
	if s.probe != nil {
		mux.HandleFunc("POST /pool/probe", s.handleProbe)
	}
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// HealthOf aggregates pool stats into a status.
func HealthOf(stats pool.PoolStats) Status {
	switch {
	case stats.Available == 0:
		return StatusCritical
	case stats.Available < stats.Total:
		return StatusDegraded
	default:
		return StatusOK
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.pool.Stats()
	status := HealthOf(stats)

	code := http.StatusOK
	if status == StatusCritical {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":    status,
		"total":     stats.Total,
		"available": stats.Available,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pool.Stats())
}

func (s *Server) handleResetAll(w http.ResponseWriter, r *http.Request) {
	s.pool.ResetAll()
	s.log.Info("Pool reset via admin API", "remote", r.RemoteAddr)
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleResetOne(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "index must be an integer"})
		return
	}
	if !s.pool.ResetOne(index) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("no key at index %d", index)})
		return
	}
	s.log.Info("Key reset via admin API", "index", index, "remote", r.RemoteAddr)
	writeJSON(w, http.StatusOK, map[string]any{"status": "reset", "index": index})
}

func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	result, err := s.probe(r.Context())
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, pool.ErrPoolExhausted) {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]json.RawMessage{"result": result})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
