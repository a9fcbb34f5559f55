package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/wefthq/weft/pkg/domain"
	"github.com/wefthq/weft/pkg/session"
)

// SkipSuffix is appended to a stage's artifact path to form its skip
// sentinel path.
const SkipSuffix = ".skipped"

// stageRecord is the resolved store state for one stage: its latest
// envelope (canonical or branch), whether a skip sentinel exists, and any
// integrity warnings gathered while resolving.
type stageRecord struct {
	envelope *domain.ArtifactEnvelope
	dataDir  string // directory holding the latest envelope
	skipped  bool
	warnings []string
}

// complete reports whether the stage counts as complete: a real envelope
// or a skip sentinel. An envelope always wins over a stale sentinel.
func (r *stageRecord) complete() bool {
	return r.envelope != nil || r.skipped
}

func (r *stageRecord) fingerprint() string {
	if r.envelope == nil {
		return ""
	}
	return r.envelope.Fingerprint
}

// resolveStage finds the canonical "latest" envelope for a stage. Branch
// directories (created by re-execution) sit next to the canonical nesting
// as "<dir>@<timestamp>-<seq>"; the latest envelope is the one with the
// greatest timestamp, ties broken by the lexicographically greatest
// directory name. Store listing order never decides.
//
// A missing path is plain "not complete". A corrupt envelope is skipped
// and surfaced as a warning, distinct from absence. Store access failures
// propagate: they prevent answering the query at all.
func (e *Engine) resolveStage(ctx context.Context, node *domain.StageNode, sp domain.StagePath) (*stageRecord, error) {
	rec := &stageRecord{}

	skipped, err := e.store.Exists(ctx, sp.ArtifactFile+SkipSuffix)
	if err != nil {
		return nil, fmt.Errorf("store failure checking skip sentinel for %s: %w", node.ID, err)
	}
	rec.skipped = skipped

	parent := path.Dir(sp.DataDir)
	if parent == "." {
		parent = ""
	}
	base := path.Base(sp.DataDir)
	artifact := path.Base(sp.ArtifactFile)

	entries, err := e.store.ListChildren(ctx, parent)
	if err != nil {
		return nil, fmt.Errorf("store failure listing %q: %w", parent, err)
	}

	var bestDir string
	for _, name := range entries {
		if name != base && !strings.HasPrefix(name, base+"@") {
			continue
		}
		envPath := path.Join(parent, name, session.MetaDir, artifact)
		data, err := e.store.Read(ctx, envPath)
		if errors.Is(err, domain.ErrArtifactNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("store failure reading %q: %w", envPath, err)
		}

		var env domain.ArtifactEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			rec.warnings = append(rec.warnings,
				fmt.Sprintf("corrupt envelope for stage %s at %s: %v", node.ID, envPath, err))
			e.metrics.CorruptEnvelopes.Inc()
			continue
		}

		if rec.envelope == nil ||
			env.Timestamp.After(rec.envelope.Timestamp) ||
			(env.Timestamp.Equal(rec.envelope.Timestamp) && name > bestDir) {
			envCopy := env
			rec.envelope = &envCopy
			bestDir = name
			rec.dataDir = path.Join(parent, name)
		}
	}

	return rec, nil
}

// LatestEnvelope returns the most recent envelope for a stage, or
// domain.ErrNoEnvelope when nothing has been materialized yet.
func (e *Engine) LatestEnvelope(ctx context.Context, def *domain.GraphDefinition, stageID string) (*domain.ArtifactEnvelope, error) {
	node := def.Node(stageID)
	if node == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrStageNotFound, stageID)
	}
	rec, err := e.resolveStage(ctx, node, session.ResolvePaths(def)[stageID])
	if err != nil {
		return nil, err
	}
	if rec.envelope == nil {
		return nil, domain.ErrNoEnvelope
	}
	return rec.envelope, nil
}
