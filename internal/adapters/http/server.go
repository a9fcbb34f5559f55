// Package http exposes a read-only workflow status API over HTTP, for
// dashboards and other consumers that should not re-derive readiness from
// raw artifact listings.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wefthq/weft/internal/presentation/graph"
	"github.com/wefthq/weft/pkg/domain"
)

// Engine defines the queries the API serves. Writes stay off the HTTP
// surface: materialization belongs to the process running the workflow.
type Engine interface {
	Readiness(ctx context.Context, def *domain.GraphDefinition) ([]domain.NodeReadiness, error)
	Position(ctx context.Context, def *domain.GraphDefinition) (*domain.WorkflowPosition, error)
	LatestEnvelope(ctx context.Context, def *domain.GraphDefinition, stageID string) (*domain.ArtifactEnvelope, error)
}

// Server serves status queries for one graph definition.
type Server struct {
	engine Engine
	def    *domain.GraphDefinition
	logger *slog.Logger
}

// NewHandler creates the HTTP handler for the engine and definition.
func NewHandler(engine Engine, def *domain.GraphDefinition, logger *slog.Logger, registry *prometheus.Registry) http.Handler {
	s := &Server{engine: engine, def: def, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/api/position", s.GetPosition)
	r.Get("/api/readiness", s.GetReadiness)
	r.Get("/api/graph", s.GetGraph)
	r.Get("/api/graph/mermaid", s.GetGraphMermaid)
	r.Get("/api/stages/{id}", s.GetStage)
	r.Get("/health", s.GetHealth)
	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetPosition handles the GET /api/position request.
func (s *Server) GetPosition(w http.ResponseWriter, r *http.Request) {
	pos, err := s.engine.Position(r.Context(), s.def)
	if err != nil {
		http.Error(w, fmt.Sprintf("Position error: %v", err), http.StatusBadGateway)
		s.logger.Error("position query failed", "err", err)
		return
	}
	s.writeJSON(w, pos)
}

// GetReadiness handles the GET /api/readiness request.
func (s *Server) GetReadiness(w http.ResponseWriter, r *http.Request) {
	readiness, err := s.engine.Readiness(r.Context(), s.def)
	if err != nil {
		http.Error(w, fmt.Sprintf("Readiness error: %v", err), http.StatusBadGateway)
		s.logger.Error("readiness query failed", "err", err)
		return
	}
	s.writeJSON(w, readiness)
}

// GetGraph handles the GET /api/graph request.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.def)
}

// GetGraphMermaid handles the GET /api/graph/mermaid request: the graph as
// a Mermaid flowchart with current session state overlaid.
func (s *Server) GetGraphMermaid(w http.ResponseWriter, r *http.Request) {
	readiness, err := s.engine.Readiness(r.Context(), s.def)
	if err != nil {
		http.Error(w, fmt.Sprintf("Readiness error: %v", err), http.StatusBadGateway)
		s.logger.Error("readiness query failed", "err", err)
		return
	}
	pos, err := s.engine.Position(r.Context(), s.def)
	if err != nil {
		http.Error(w, fmt.Sprintf("Position error: %v", err), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(s.def, graph.OverlayFromReadiness(readiness, pos)))
}

// GetStage handles the GET /api/stages/{id} request: the stage declaration
// plus its latest envelope, if any.
func (s *Server) GetStage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	node := s.def.Node(id)
	if node == nil {
		http.Error(w, fmt.Sprintf("unknown stage %q", id), http.StatusNotFound)
		return
	}

	resp := struct {
		Stage    *domain.StageNode        `json:"stage"`
		Envelope *domain.ArtifactEnvelope `json:"envelope,omitempty"`
	}{Stage: node}

	env, err := s.engine.LatestEnvelope(r.Context(), s.def, id)
	switch {
	case err == nil:
		resp.Envelope = env
	case errors.Is(err, domain.ErrNoEnvelope):
		// Not materialized yet: the declaration alone is the answer.
	default:
		http.Error(w, fmt.Sprintf("Envelope error: %v", err), http.StatusBadGateway)
		s.logger.Error("envelope query failed", "stage", id, "err", err)
		return
	}
	s.writeJSON(w, resp)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
