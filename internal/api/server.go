// Package api serves a small HTTP surface for monitoring the trader:
// health, engine state, and prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/GoBitflyer/bitflyer-trader/internal/engine"
	"github.com/GoBitflyer/bitflyer-trader/internal/paper"
)

var log = logrus.WithField("component", "api")

// EngineState exposes the decision engine's state for the API layer.
type EngineState interface {
	StateSnapshot() engine.Snapshot
}

// PaperState exposes the paper account (nil in live mode).
type PaperState interface {
	Snapshot() paper.Snapshot
}

// Server is a lightweight HTTP API for monitoring.
type Server struct {
	httpServer *http.Server
	eng        EngineState
	paperState PaperState
	product    string
	mode       string
	startedAt  time.Time
}

func NewServer(addr string, eng EngineState, paperState PaperState, product, mode string) *Server {
	s := &Server{
		eng:        eng,
		paperState: paperState,
		product:    product,
		mode:       mode,
		startedAt:  time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/paper", s.handlePaper)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start begins serving in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	log.WithField("addr", ln.Addr().String()).Info("api server listening")
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("api server stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		_ = s.Shutdown(context.Background())
	}()
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"status":         "ok",
		"product":        s.product,
		"mode":           s.mode,
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.eng.StateSnapshot())
}

func (s *Server) handlePaper(w http.ResponseWriter, _ *http.Request) {
	if s.paperState == nil {
		http.Error(w, "paper account not active", http.StatusNotFound)
		return
	}
	writeJSON(w, s.paperState.Snapshot())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Debug("encode response")
	}
}
