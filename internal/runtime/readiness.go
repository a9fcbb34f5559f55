package runtime

import (
	"context"
	"time"

	"github.com/wefthq/weft/pkg/domain"
	"github.com/wefthq/weft/pkg/session"
)

// Readiness computes the execution state of every stage against the
// artifact store, in declaration order.
func (e *Engine) Readiness(ctx context.Context, def *domain.GraphDefinition) ([]domain.NodeReadiness, error) {
	start := time.Now()
	defer func() {
		e.metrics.ReadinessSeconds.Observe(time.Since(start).Seconds())
	}()

	records, err := e.resolveAll(ctx, def)
	if err != nil {
		return nil, err
	}

	out := make([]domain.NodeReadiness, 0, len(def.Order))
	for _, id := range def.Order {
		node := def.Nodes[id]
		rec := records[id]

		r := domain.NodeReadiness{
			Stage:    id,
			Phase:    node.Phase,
			Complete: rec.complete(),
			Skipped:  rec.envelope == nil && rec.skipped,
			Warnings: rec.warnings,
		}

		r.Ready = true
		for _, parent := range node.Previous {
			prec, ok := records[parent]
			if !ok || !prec.complete() {
				r.Ready = false
				break
			}
		}

		if rec.envelope != nil {
			for _, parent := range node.Previous {
				current := ""
				if prec, ok := records[parent]; ok {
					current = prec.fingerprint()
				}
				if current != rec.envelope.ParentFingerprints[parent] {
					r.Stale = true
					break
				}
			}
		}

		out = append(out, r)
	}
	return out, nil
}

// Position reduces full-graph readiness to the single answer collaborators
// need: what's done, what's next, whether the workflow is finished.
func (e *Engine) Position(ctx context.Context, def *domain.GraphDefinition) (*domain.WorkflowPosition, error) {
	readiness, err := e.Readiness(ctx, def)
	if err != nil {
		return nil, err
	}

	pos := &domain.WorkflowPosition{
		CompletedStages: []string{},
		TotalCount:      len(def.Order),
		IsComplete:      len(def.Terminals) > 0,
	}

	byID := make(map[string]domain.NodeReadiness, len(readiness))
	for _, r := range readiness {
		byID[r.Stage] = r
		if r.Complete {
			pos.CompletedStages = append(pos.CompletedStages, r.Stage)
			pos.CompletedCount++
		}
		if pos.CurrentStage == "" && r.Ready && !r.Complete {
			pos.CurrentStage = r.Stage
			pos.Phase = r.Phase
		}
		pos.Warnings = append(pos.Warnings, r.Warnings...)
	}

	for _, terminal := range def.Terminals {
		if !byID[terminal].Complete {
			pos.IsComplete = false
			break
		}
	}
	return pos, nil
}

func (e *Engine) resolveAll(ctx context.Context, def *domain.GraphDefinition) (map[string]*stageRecord, error) {
	paths := session.ResolvePaths(def)
	records := make(map[string]*stageRecord, len(def.Order))
	for _, id := range def.Order {
		rec, err := e.resolveStage(ctx, def.Nodes[id], paths[id])
		if err != nil {
			return nil, err
		}
		records[id] = rec
	}
	return records, nil
}
