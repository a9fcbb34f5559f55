package domain

// Document source tags for GraphDefinition.Source.
const (
	SourceManifest = "manifest"
	SourceScript   = "script"
)

// Header carries the document-level metadata of a manifest or script.
type Header struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Persona     string `json:"persona,omitempty" yaml:"persona,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Edge is a derived parent→child pair. Edges point in the direction
// artifacts flow, opposite to the child→parent declaration.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// StagePath locates one stage's artifacts relative to a session root.
// It is derived from topology, never stored on the node.
type StagePath struct {
	// DataDir is the nesting directory for the stage.
	DataDir string `json:"data_dir"`
	// ArtifactFile is the envelope path, under DataDir/meta.
	ArtifactFile string `json:"artifact_file"`
}

// GraphDefinition is the parsed, immutable representation of a manifest or
// script document. Nodes are id-keyed; Order preserves declaration order.
type GraphDefinition struct {
	Source string `json:"source"`
	Header Header `json:"header"`

	Nodes map[string]*StageNode `json:"nodes"`
	Order []string              `json:"order"`

	Edges     []Edge   `json:"edges"`
	Roots     []string `json:"roots"`
	Terminals []string `json:"terminals"`
}

// Node returns the node for id, or nil if absent.
func (g *GraphDefinition) Node(id string) *StageNode {
	return g.Nodes[id]
}

// Stages returns the nodes in declaration order.
func (g *GraphDefinition) Stages() []*StageNode {
	out := make([]*StageNode, 0, len(g.Order))
	for _, id := range g.Order {
		out = append(out, g.Nodes[id])
	}
	return out
}

// Children returns the ids of the nodes that list id as a parent, in edge
// derivation order.
func (g *GraphDefinition) Children(id string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.From == id {
			out = append(out, e.To)
		}
	}
	return out
}

// IsTerminal reports whether id never appears as a parent.
func (g *GraphDefinition) IsTerminal(id string) bool {
	for _, t := range g.Terminals {
		if t == id {
			return true
		}
	}
	return false
}
