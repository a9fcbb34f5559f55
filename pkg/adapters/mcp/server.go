// Package mcp exposes workflow status queries over the Model Context
// Protocol, so conversational agents can ask "where are we" without
// touching the artifact store directly.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wefthq/weft"
	"github.com/wefthq/weft/internal/presentation/graph"
	"github.com/wefthq/weft/pkg/domain"
)

// Engine defines the queries the MCP server exposes.
type Engine interface {
	Readiness(ctx context.Context, def *domain.GraphDefinition) ([]domain.NodeReadiness, error)
	Position(ctx context.Context, def *domain.GraphDefinition) (*domain.WorkflowPosition, error)
	LatestEnvelope(ctx context.Context, def *domain.GraphDefinition, stageID string) (*domain.ArtifactEnvelope, error)
}

// StageResponse pairs a stage declaration with its latest envelope.
type StageResponse struct {
	Stage    *domain.StageNode        `json:"stage" jsonschema_description:"The stage declaration"`
	Envelope *domain.ArtifactEnvelope `json:"envelope,omitempty" jsonschema_description:"The latest materialized envelope, if any"`
}

// Server wraps the engine and exposes it as an MCP server.
type Server struct {
	engine    Engine
	def       *domain.GraphDefinition
	mcpServer *server.MCPServer
}

// NewServer creates an MCP server for one graph definition.
func NewServer(engine Engine, def *domain.GraphDefinition) *Server {
	s := &Server{
		engine:    engine,
		def:       def,
		mcpServer: server.NewMCPServer("weft-mcp", strings.TrimSpace(weft.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: workflow_position
	positionTool := mcp.NewTool("workflow_position",
		mcp.WithDescription("Answer where the workflow stands: completed stages, the next actionable stage, whether the session is finished."),
		mcp.WithOutputSchema[domain.WorkflowPosition](),
	)
	s.mcpServer.AddTool(positionTool, mcp.NewStructuredToolHandler(s.handlePosition))

	// TOOL: stage_readiness
	s.mcpServer.AddTool(mcp.NewTool("stage_readiness",
		mcp.WithDescription("List every stage with its ready/complete/skipped/stale flags."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		readiness, err := s.engine.Readiness(ctx, s.def)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("readiness failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(readiness)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	// TOOL: show_stage
	showTool := mcp.NewTool("show_stage",
		mcp.WithDescription("Show a stage declaration and its latest artifact envelope."),
		mcp.WithString("stage", mcp.Required(), mcp.Description("Stage id")),
		mcp.WithOutputSchema[StageResponse](),
	)
	s.mcpServer.AddTool(showTool, mcp.NewStructuredToolHandler(s.handleShowStage))
}

func (s *Server) handlePosition(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.WorkflowPosition, error) {
	pos, err := s.engine.Position(ctx, s.def)
	if err != nil {
		return domain.WorkflowPosition{}, fmt.Errorf("position failed: %w", err)
	}
	return *pos, nil
}

func (s *Server) handleShowStage(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StageResponse, error) {
	stageID, _ := args["stage"].(string)
	node := s.def.Node(stageID)
	if node == nil {
		return StageResponse{}, fmt.Errorf("unknown stage %q", stageID)
	}

	resp := StageResponse{Stage: node}
	env, err := s.engine.LatestEnvelope(ctx, s.def, stageID)
	if err == nil {
		resp.Envelope = env
	} else if err != domain.ErrNoEnvelope {
		slog.Error("MCP show_stage: envelope lookup failed", "stage", stageID, "error", err)
	}
	return resp, nil
}

func (s *Server) registerResources() {
	// EXPOSE: weft://graph
	s.mcpServer.AddResource(mcp.NewResource("weft://graph", "Workflow Graph Definition",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.def)
		if err != nil {
			return nil, fmt.Errorf("failed to encode graph: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "weft://graph",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})

	// EXPOSE: weft://graph/mermaid
	s.mcpServer.AddResource(mcp.NewResource("weft://graph/mermaid", "Workflow Graph (Mermaid)",
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "weft://graph/mermaid",
				MIMEType: "text/plain",
				Text:     graph.GenerateMermaid(s.def, nil),
			},
		}, nil
	})
}
