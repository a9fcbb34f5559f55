package graph

import (
	"fmt"
	"strings"

	"github.com/wefthq/weft/pkg/domain"
)

// Overlay contains dynamic session state to visualize on the graph.
type Overlay struct {
	CompletedStages []string
	SkippedStages   []string
	StaleStages     []string
	CurrentStage    string
}

// GenerateMermaid produces a Mermaid flowchart from a graph definition.
// It applies semantic styling:
// - Root: ((Circle))
// - Structural: [[Subroutine]]
// - Optional: [/Parallelogram/]
// - Default: [Rectangle]
// Edges into optional stages are dotted: they are bypass branches.
// Overlay styles (completed/skipped/stale/current) are applied if provided.
func GenerateMermaid(def *domain.GraphDefinition, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, id := range def.Order {
		node := def.Nodes[id]
		safeID := sanitizeMermaidID(id)

		opener, closer := "[", "]"
		switch {
		case node.IsRoot():
			opener, closer = "((", "))"
		case node.Structural:
			opener, closer = "[[", "]]"
		case node.Optional:
			opener, closer = "[/", "/]"
		}

		label := id
		if node.Phase != "" {
			label = fmt.Sprintf("%s <br/> %s", id, node.Phase)
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))
	}

	for _, edge := range def.Edges {
		arrow := "-->"
		if to := def.Node(edge.To); to != nil && to.Optional {
			arrow = "-.->"
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n",
			sanitizeMermaidID(edge.From), arrow, sanitizeMermaidID(edge.To)))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for high contrast regardless of theme.
		sb.WriteString("    classDef completed fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef skipped fill:#eceff1,stroke:#607d8b,stroke-width:2px,stroke-dasharray:4,color:#000;\n")
		sb.WriteString("    classDef stale fill:#fff3e0,stroke:#e65100,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		writeClasses(&sb, overlay.CompletedStages, "completed")
		writeClasses(&sb, overlay.SkippedStages, "skipped")
		writeClasses(&sb, overlay.StaleStages, "stale")
		if overlay.CurrentStage != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentStage)))
		}
	}

	return sb.String()
}

// OverlayFromReadiness builds the overlay for a computed readiness report.
func OverlayFromReadiness(readiness []domain.NodeReadiness, pos *domain.WorkflowPosition) *Overlay {
	o := &Overlay{}
	for _, r := range readiness {
		switch {
		case r.Skipped:
			o.SkippedStages = append(o.SkippedStages, r.Stage)
		case r.Stale:
			o.StaleStages = append(o.StaleStages, r.Stage)
		case r.Complete:
			o.CompletedStages = append(o.CompletedStages, r.Stage)
		}
	}
	if pos != nil {
		o.CurrentStage = pos.CurrentStage
	}
	return o
}

func writeClasses(sb *strings.Builder, ids []string, class string) {
	seen := make(map[string]bool)
	for _, id := range ids {
		safeID := sanitizeMermaidID(id)
		if safeID != "" && !seen[safeID] {
			seen[safeID] = true
			sb.WriteString(fmt.Sprintf("    class %s %s;\n", safeID, class))
		}
	}
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
