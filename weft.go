package weft

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wefthq/weft/internal/compiler"
	"github.com/wefthq/weft/internal/metrics"
	"github.com/wefthq/weft/internal/runtime"
	"github.com/wefthq/weft/pkg/domain"
	"github.com/wefthq/weft/pkg/ports"
	"github.com/wefthq/weft/pkg/session"
)

// Version is the library version, stamped by the release workflow.
var Version = "dev"

// Engine is the high-level entry point for the Weft library. It wraps the
// parser, the session path resolver and the provenance runtime, and routes
// every artifact write through the per-(session, stage) lock manager.
type Engine struct {
	store    ports.ArtifactStore
	parser   *compiler.Parser
	runtime  *runtime.Engine
	sessions *session.Manager
	metrics  *metrics.Metrics
	logger   *slog.Logger

	// Name identifies the session this engine owns, and scopes its write
	// locks. Defaults to "default".
	Name string

	clk    clock.Clock
	locker ports.DistributedLocker
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock injects a clock for envelope timestamps and branch names.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clk = c
	}
}

// WithSessionName scopes the engine's write locks to a named session.
func WithSessionName(name string) Option {
	return func(e *Engine) {
		e.Name = name
	}
}

// WithLocker enables distributed locking for multi-instance deployments
// sharing one artifact store.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithRegistry registers the engine's Prometheus collectors.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(e *Engine) {
		e.metrics.Register(reg)
	}
}

// New initializes a Weft Engine over the given artifact store.
func New(store ports.ArtifactStore, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("an artifact store is required")
	}

	eng := &Engine{
		store:   store,
		parser:  compiler.NewParser(),
		metrics: metrics.New(),
		clk:     clock.New(),
		Name:    "default",
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	eng.logger = eng.logger.With("session", eng.Name)

	sessionOpts := []session.Option{session.WithLogger(eng.logger)}
	if eng.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(eng.locker))
	}
	eng.sessions = session.NewManager(sessionOpts...)

	eng.runtime = runtime.NewEngine(store,
		runtime.WithLogger(eng.logger),
		runtime.WithClock(eng.clk),
		runtime.WithMetrics(eng.metrics),
	)
	return eng, nil
}

// ParseManifest compiles a manifest document into an immutable graph
// definition. On failure the error aggregates every violation found,
// tagged with its field path.
func (e *Engine) ParseManifest(data []byte) (*domain.GraphDefinition, error) {
	def, err := e.parser.Manifest(data)
	if err != nil {
		e.metrics.ParseFailures.Inc()
		return nil, err
	}
	return def, nil
}

// ParseScript compiles a parameter/skip overlay anchored to a previously
// parsed manifest. The manifest is never mutated.
func (e *Engine) ParseScript(data []byte, manifest *domain.GraphDefinition) (*domain.GraphDefinition, error) {
	def, err := e.parser.Script(data, manifest)
	if err != nil {
		e.metrics.ParseFailures.Inc()
		return nil, err
	}
	return def, nil
}

// ResolvePaths computes the session-relative artifact path of every stage.
func (e *Engine) ResolvePaths(def *domain.GraphDefinition) map[string]domain.StagePath {
	return session.ResolvePaths(def)
}

// Readiness computes per-stage readiness, completeness and staleness
// against the artifact store.
func (e *Engine) Readiness(ctx context.Context, def *domain.GraphDefinition) ([]domain.NodeReadiness, error) {
	return e.runtime.Readiness(ctx, def)
}

// Position is the single read API collaborators should use to answer
// "what's done, what's next, what's blocked".
func (e *Engine) Position(ctx context.Context, def *domain.GraphDefinition) (*domain.WorkflowPosition, error) {
	return e.runtime.Position(ctx, def)
}

// Materialize writes a provenance-chained envelope for a stage, holding
// the session's write lock for that stage for the duration.
func (e *Engine) Materialize(ctx context.Context, def *domain.GraphDefinition, stageID string, params domain.StageParameters, content any) (*domain.ArtifactEnvelope, error) {
	var env *domain.ArtifactEnvelope
	err := e.sessions.WithStageLock(ctx, e.Name, stageID, func(ctx context.Context) error {
		var err error
		env, err = e.runtime.Materialize(ctx, def, stageID, params, content)
		return err
	})
	return env, err
}

// MaterializeSkip writes the skip sentinel for an optional stage.
func (e *Engine) MaterializeSkip(ctx context.Context, def *domain.GraphDefinition, stageID, reason string) error {
	return e.sessions.WithStageLock(ctx, e.Name, stageID, func(ctx context.Context) error {
		return e.runtime.MaterializeSkip(ctx, def, stageID, reason)
	})
}

// FingerprintOf returns the fingerprint of a stage's latest envelope, or
// "" if nothing has been materialized.
func (e *Engine) FingerprintOf(ctx context.Context, def *domain.GraphDefinition, stageID string) (string, error) {
	return e.runtime.FingerprintOf(ctx, def, stageID)
}

// LatestEnvelope returns a stage's most recent envelope.
func (e *Engine) LatestEnvelope(ctx context.Context, def *domain.GraphDefinition, stageID string) (*domain.ArtifactEnvelope, error) {
	return e.runtime.LatestEnvelope(ctx, def, stageID)
}

// Store returns the underlying artifact store.
func (e *Engine) Store() ports.ArtifactStore {
	return e.store
}
