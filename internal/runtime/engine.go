// Package runtime implements the readiness and provenance engine: the
// queries that decide what is complete, ready and stale, and the writes
// that materialize artifact envelopes chained to their parents.
//
// All queries are re-evaluated on every call. The artifact store can be
// mutated between calls by other processes, so nothing here is cached.
package runtime

import (
	"log/slog"
	"sync/atomic"

	"github.com/benbjohnson/clock"

	"github.com/wefthq/weft/internal/logging"
	"github.com/wefthq/weft/internal/metrics"
	"github.com/wefthq/weft/pkg/ports"
)

// Engine evaluates readiness and materializes provenance-chained artifacts
// against a single session's artifact store. It adds no locking: callers
// must serialize writes per (session, stage), which the session Manager
// provides.
type Engine struct {
	store   ports.ArtifactStore
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics

	// branchSeq disambiguates branch directories created within one clock
	// reading, so the tie-break never falls back to store ordering.
	branchSeq atomic.Int64
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock injects a clock, letting tests control envelope timestamps and
// branch names.
func WithClock(c clock.Clock) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithMetrics attaches a collector set.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// NewEngine creates an engine over the given artifact store.
func NewEngine(store ports.ArtifactStore, opts ...EngineOption) *Engine {
	e := &Engine{
		store:   store,
		clock:   clock.New(),
		logger:  logging.NewNop(),
		metrics: metrics.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
