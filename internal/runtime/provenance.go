package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"github.com/wefthq/weft/pkg/domain"
	"github.com/wefthq/weft/pkg/session"
)

// branchTimeLayout names branch directories down to the nanosecond; the
// appended sequence number keeps names unique even within one clock
// reading, so "latest" never depends on store ordering.
const branchTimeLayout = "20060102T150405.000000000Z"

// Materialize writes a new artifact envelope for a stage, fingerprinted
// against the current fingerprints of every resolvable parent. Parents
// without an envelope are omitted from the chain, so a join can materialize
// while one branch is still pending.
//
// An existing artifact is never overwritten. Re-execution lands on a fresh
// branch directory next to the canonical nesting; superseded envelopes stay
// in the store for audit.
func (e *Engine) Materialize(ctx context.Context, def *domain.GraphDefinition, stageID string, params domain.StageParameters, content any) (*domain.ArtifactEnvelope, error) {
	node := def.Node(stageID)
	if node == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrStageNotFound, stageID)
	}
	if params.Skipped() {
		return nil, fmt.Errorf("stage %s is marked skipped; materialize a sentinel instead", stageID)
	}

	paths := session.ResolvePaths(def)
	sp := paths[stageID]

	parents, err := e.parentFingerprints(ctx, def, node, paths)
	if err != nil {
		return nil, err
	}

	fp, err := Fingerprint(content, parents)
	if err != nil {
		return nil, err
	}

	used := params.Values
	if used == nil {
		used = map[string]any{}
	}
	env := &domain.ArtifactEnvelope{
		Stage:              stageID,
		Timestamp:          e.clock.Now().UTC(),
		ParametersUsed:     used,
		Content:            content,
		Fingerprint:        fp,
		ParentFingerprints: parents,
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope for %s: %w", stageID, err)
	}

	target := sp.ArtifactFile
	branched := false
	err = e.store.CreateAtomically(ctx, target, data)
	for attempt := 0; errors.Is(err, domain.ErrArtifactExists); attempt++ {
		if attempt >= 3 {
			return nil, fmt.Errorf("could not find a free branch path for %s: %w", stageID, err)
		}
		branchDir := fmt.Sprintf("%s@%s-%03d",
			sp.DataDir, env.Timestamp.Format(branchTimeLayout), e.branchSeq.Add(1))
		target = path.Join(branchDir, session.MetaDir, path.Base(sp.ArtifactFile))
		branched = true
		err = e.store.CreateAtomically(ctx, target, data)
	}
	if err != nil {
		// A silently dropped write would corrupt the provenance chain.
		return nil, fmt.Errorf("failed to materialize %s: %w", stageID, err)
	}

	e.metrics.Materializations.WithLabelValues(stageID, fmt.Sprintf("%t", branched)).Inc()
	e.logger.Info("materialized artifact",
		"stage", stageID,
		"path", target,
		"branched", branched,
		"fingerprint", fp,
	)
	return env, nil
}

// MaterializeSkip writes the skip sentinel for an optional stage. Writing
// a sentinel that already exists is a no-op, not an error.
func (e *Engine) MaterializeSkip(ctx context.Context, def *domain.GraphDefinition, stageID, reason string) error {
	node := def.Node(stageID)
	if node == nil {
		return fmt.Errorf("%w: %s", domain.ErrStageNotFound, stageID)
	}
	if !node.Optional {
		return fmt.Errorf("stage %s is not optional and cannot be skipped", stageID)
	}

	sp := session.ResolvePaths(def)[stageID]
	sentinel := domain.SkipSentinel{
		Stage:     stageID,
		Timestamp: e.clock.Now().UTC(),
		Skipped:   true,
		Reason:    reason,
	}
	data, err := json.MarshalIndent(sentinel, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sentinel for %s: %w", stageID, err)
	}

	err = e.store.CreateAtomically(ctx, sp.ArtifactFile+SkipSuffix, data)
	if errors.Is(err, domain.ErrArtifactExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to write skip sentinel for %s: %w", stageID, err)
	}

	e.metrics.SkipSentinels.Inc()
	e.logger.Info("skipped stage", "stage", stageID, "reason", reason)
	return nil
}

// FingerprintOf returns the fingerprint of a stage's latest envelope. A
// stage that has not materialized anything fingerprints to "", which is not
// an error: absence is a valid lineage state.
func (e *Engine) FingerprintOf(ctx context.Context, def *domain.GraphDefinition, stageID string) (string, error) {
	env, err := e.LatestEnvelope(ctx, def, stageID)
	if errors.Is(err, domain.ErrNoEnvelope) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return env.Fingerprint, nil
}

// parentFingerprints walks the full previous list (not just the nesting
// parent) and records every resolvable parent fingerprint.
func (e *Engine) parentFingerprints(ctx context.Context, def *domain.GraphDefinition, node *domain.StageNode, paths map[string]domain.StagePath) (map[string]string, error) {
	parents := make(map[string]string, len(node.Previous))
	for _, parent := range node.Previous {
		pnode := def.Node(parent)
		if pnode == nil {
			continue
		}
		rec, err := e.resolveStage(ctx, pnode, paths[parent])
		if err != nil {
			return nil, err
		}
		if rec.envelope != nil {
			parents[parent] = rec.envelope.Fingerprint
		}
	}
	return parents, nil
}
