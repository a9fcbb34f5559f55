package session

import (
	"path"

	"github.com/wefthq/weft/pkg/domain"
)

// MetaDir is the directory under each stage's nesting that holds envelopes.
const MetaDir = "meta"

// ResolvePaths computes the session-relative path for every stage in the
// definition. It never fails for a definition that parsed successfully: a
// parent id that cannot be resolved simply terminates the ancestor walk, as
// if that point were a root.
func ResolvePaths(def *domain.GraphDefinition) map[string]domain.StagePath {
	paths := make(map[string]domain.StagePath, len(def.Order))
	for _, id := range def.Order {
		paths[id] = resolveOne(def, def.Nodes[id])
	}
	return paths
}

// resolveOne walks the primary-parent chain of a node to a root, keeping
// only the ancestors that should be visible in the session tree:
//
//   - structural stages are dropped (pure topology machinery),
//   - non-root optional stages are dropped (bypass branches),
//   - root-level optional stages are kept: they are the only path anchor
//     their subtree has.
//
// Multi-parent joins nest under their first declared parent.
func resolveOne(def *domain.GraphDefinition, node *domain.StageNode) domain.StagePath {
	var chain []string
	visited := map[string]bool{node.ID: true}

	for cur := node.PrimaryParent(); cur != "" && !visited[cur]; {
		visited[cur] = true
		ancestor := def.Node(cur)
		if ancestor == nil {
			break
		}
		if visible(ancestor) {
			chain = append([]string{ancestor.ID}, chain...)
		}
		cur = ancestor.PrimaryParent()
	}

	dataDir := path.Join(append(chain, node.ID)...)
	return domain.StagePath{
		DataDir:      dataDir,
		ArtifactFile: path.Join(dataDir, MetaDir, artifactName(node)),
	}
}

func visible(n *domain.StageNode) bool {
	if n.Structural {
		return false
	}
	if n.Optional && len(n.Previous) > 0 {
		return false
	}
	return true
}

// artifactName picks the envelope filename for a stage: its first declared
// artifact. The parser guarantees produces is non-empty; the id fallback
// keeps resolution total regardless.
func artifactName(n *domain.StageNode) string {
	if len(n.Produces) > 0 {
		return n.Produces[0]
	}
	return n.ID + ".json"
}
