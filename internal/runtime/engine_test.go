package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wefthq/weft/internal/compiler"
	"github.com/wefthq/weft/pkg/adapters/memory"
	"github.com/wefthq/weft/pkg/domain"
	"github.com/wefthq/weft/pkg/session"
)

const researchManifest = `
name: research
stages:
  - id: search
    phase: discovery
    optional: true
    produces: [search.json]
  - id: gather
    phase: discovery
    previous: [search]
    produces: [gather.json]
  - id: lock
    previous: [gather]
    structural: true
    produces: [lock.json]
  - id: harmonize
    phase: synthesis
    previous: [lock]
    produces: [harmonized.json]
`

func mustDef(t *testing.T, doc string) *domain.GraphDefinition {
	t.Helper()
	def, err := compiler.NewParser().Manifest([]byte(doc))
	require.NoError(t, err)
	return def
}

func newTestEngine(t *testing.T) (*Engine, *memory.Store, *clock.Mock) {
	t.Helper()
	store := memory.NewStore()
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	return NewEngine(store, WithClock(mock)), store, mock
}

func readinessByStage(rs []domain.NodeReadiness) map[string]domain.NodeReadiness {
	out := make(map[string]domain.NodeReadiness, len(rs))
	for _, r := range rs {
		out[r.Stage] = r
	}
	return out
}

func TestMaterialize_ChainsParentFingerprints(t *testing.T) {
	eng, _, mock := newTestEngine(t)
	def := mustDef(t, researchManifest)
	ctx := context.Background()

	searchEnv, err := eng.Materialize(ctx, def, "search", domain.StageParameters{}, map[string]any{"hits": 12})
	require.NoError(t, err)
	assert.Equal(t, "search", searchEnv.Stage)
	assert.Empty(t, searchEnv.ParentFingerprints)
	assert.Equal(t, mock.Now().UTC(), searchEnv.Timestamp)

	mock.Add(time.Minute)
	gatherEnv, err := eng.Materialize(ctx, def, "gather", domain.StageParameters{
		Values: map[string]any{"limit": 5},
	}, map[string]any{"sources": []string{"a"}})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"search": searchEnv.Fingerprint}, gatherEnv.ParentFingerprints)
	assert.Equal(t, map[string]any{"limit": 5}, gatherEnv.ParametersUsed)

	// The recorded fingerprint is reproducible from content and lineage.
	want, err := Fingerprint(map[string]any{"sources": []string{"a"}}, gatherEnv.ParentFingerprints)
	require.NoError(t, err)
	assert.Equal(t, want, gatherEnv.Fingerprint)
}

func TestMaterialize_UnknownStage(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	def := mustDef(t, researchManifest)

	_, err := eng.Materialize(context.Background(), def, "ghost", domain.StageParameters{}, nil)
	require.ErrorIs(t, err, domain.ErrStageNotFound)
}

func TestMaterialize_RejectsSkippedParameters(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	def := mustDef(t, researchManifest)

	params := domain.StageParameters{Skip: &domain.SkipMarker{Reason: "curated"}}
	_, err := eng.Materialize(context.Background(), def, "search", params, "content")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marked skipped")
}

func TestMaterialize_ReExecutionBranches(t *testing.T) {
	eng, store, mock := newTestEngine(t)
	def := mustDef(t, researchManifest)
	ctx := context.Background()

	first, err := eng.Materialize(ctx, def, "search", domain.StageParameters{}, "v1")
	require.NoError(t, err)

	mock.Add(time.Hour)
	second, err := eng.Materialize(ctx, def, "search", domain.StageParameters{}, "v2")
	require.NoError(t, err)
	assert.NotEqual(t, first.Fingerprint, second.Fingerprint)

	// The canonical nesting still holds the first envelope; the branch sits
	// next to it.
	entries, err := store.ListChildren(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, entries, "search")
	branchCount := 0
	for _, name := range entries {
		if name != "search" {
			assert.Contains(t, name, "search@")
			branchCount++
		}
	}
	assert.Equal(t, 1, branchCount)

	latest, err := eng.LatestEnvelope(ctx, def, "search")
	require.NoError(t, err)
	assert.Equal(t, second.Fingerprint, latest.Fingerprint)
}

func TestLatestEnvelope_EqualTimestampsPreferGreaterName(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	def := mustDef(t, researchManifest)
	ctx := context.Background()

	// Clock never advances, so both envelopes carry the same timestamp and
	// only the directory name can break the tie. The branch directory name
	// sorts after the canonical "search".
	_, err := eng.Materialize(ctx, def, "search", domain.StageParameters{}, "v1")
	require.NoError(t, err)
	second, err := eng.Materialize(ctx, def, "search", domain.StageParameters{}, "v2")
	require.NoError(t, err)

	latest, err := eng.LatestEnvelope(ctx, def, "search")
	require.NoError(t, err)
	assert.Equal(t, second.Fingerprint, latest.Fingerprint)
}

func TestLatestEnvelope_NoEnvelope(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	def := mustDef(t, researchManifest)

	_, err := eng.LatestEnvelope(context.Background(), def, "search")
	require.ErrorIs(t, err, domain.ErrNoEnvelope)

	// Absence fingerprints to empty, not to an error.
	fp, err := eng.FingerprintOf(context.Background(), def, "search")
	require.NoError(t, err)
	assert.Empty(t, fp)
}

func TestMaterializeSkip(t *testing.T) {
	eng, store, _ := newTestEngine(t)
	def := mustDef(t, researchManifest)
	ctx := context.Background()

	require.Error(t, eng.MaterializeSkip(ctx, def, "gather", "nope"),
		"non-optional stage must not accept a sentinel")

	require.NoError(t, eng.MaterializeSkip(ctx, def, "search", "corpus curated"))
	// Writing the sentinel again is a no-op.
	require.NoError(t, eng.MaterializeSkip(ctx, def, "search", "again"))

	exists, err := store.Exists(ctx, "search/meta/search.json"+SkipSuffix)
	require.NoError(t, err)
	assert.True(t, exists)

	rs, err := eng.Readiness(ctx, def)
	require.NoError(t, err)
	byStage := readinessByStage(rs)
	assert.True(t, byStage["search"].Complete)
	assert.True(t, byStage["search"].Skipped)
	assert.True(t, byStage["gather"].Ready, "a skipped parent unblocks its children")
}

func TestMaterializeSkip_EnvelopeWinsOverSentinel(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	def := mustDef(t, researchManifest)
	ctx := context.Background()

	require.NoError(t, eng.MaterializeSkip(ctx, def, "search", "first pass"))
	_, err := eng.Materialize(ctx, def, "search", domain.StageParameters{}, "ran after all")
	require.NoError(t, err)

	rs, err := eng.Readiness(ctx, def)
	require.NoError(t, err)
	byStage := readinessByStage(rs)
	assert.True(t, byStage["search"].Complete)
	assert.False(t, byStage["search"].Skipped)
}

func TestReadiness_Progression(t *testing.T) {
	eng, _, mock := newTestEngine(t)
	def := mustDef(t, researchManifest)
	ctx := context.Background()

	rs, err := eng.Readiness(ctx, def)
	require.NoError(t, err)
	byStage := readinessByStage(rs)
	assert.True(t, byStage["search"].Ready)
	assert.False(t, byStage["gather"].Ready)
	assert.False(t, byStage["harmonize"].Ready)

	for _, id := range []string{"search", "gather", "lock", "harmonize"} {
		mock.Add(time.Minute)
		_, err := eng.Materialize(ctx, def, id, domain.StageParameters{}, id+" output")
		require.NoError(t, err)

		rs, err := eng.Readiness(ctx, def)
		require.NoError(t, err)
		assert.True(t, readinessByStage(rs)[id].Complete)
	}

	pos, err := eng.Position(ctx, def)
	require.NoError(t, err)
	assert.True(t, pos.IsComplete)
	assert.Equal(t, 4, pos.CompletedCount)
	assert.Empty(t, pos.CurrentStage)
}

func TestReadiness_Staleness(t *testing.T) {
	eng, _, mock := newTestEngine(t)
	def := mustDef(t, researchManifest)
	ctx := context.Background()

	_, err := eng.Materialize(ctx, def, "search", domain.StageParameters{}, "v1")
	require.NoError(t, err)
	mock.Add(time.Minute)
	_, err = eng.Materialize(ctx, def, "gather", domain.StageParameters{}, "from v1")
	require.NoError(t, err)

	rs, err := eng.Readiness(ctx, def)
	require.NoError(t, err)
	assert.False(t, readinessByStage(rs)["gather"].Stale)

	// Re-running the parent changes its fingerprint and strands the child.
	mock.Add(time.Minute)
	_, err = eng.Materialize(ctx, def, "search", domain.StageParameters{}, "v2")
	require.NoError(t, err)

	rs, err = eng.Readiness(ctx, def)
	require.NoError(t, err)
	byStage := readinessByStage(rs)
	assert.True(t, byStage["gather"].Stale)
	assert.True(t, byStage["gather"].Complete, "stale is advisory, not blocking")

	// Re-materializing the child against the new parent clears staleness.
	mock.Add(time.Minute)
	_, err = eng.Materialize(ctx, def, "gather", domain.StageParameters{}, "from v2")
	require.NoError(t, err)

	rs, err = eng.Readiness(ctx, def)
	require.NoError(t, err)
	assert.False(t, readinessByStage(rs)["gather"].Stale)
}

func TestReadiness_CorruptEnvelope(t *testing.T) {
	eng, store, _ := newTestEngine(t)
	def := mustDef(t, researchManifest)
	ctx := context.Background()

	sp := session.ResolvePaths(def)["search"]
	require.NoError(t, store.CreateAtomically(ctx, sp.ArtifactFile, []byte("{not json")))

	rs, err := eng.Readiness(ctx, def)
	require.NoError(t, err)
	byStage := readinessByStage(rs)

	assert.False(t, byStage["search"].Complete, "corrupt is not complete")
	require.NotEmpty(t, byStage["search"].Warnings)
	assert.Contains(t, byStage["search"].Warnings[0], "corrupt envelope")

	pos, err := eng.Position(ctx, def)
	require.NoError(t, err)
	assert.NotEmpty(t, pos.Warnings)
}

func TestPosition_CurrentStage(t *testing.T) {
	eng, _, mock := newTestEngine(t)
	def := mustDef(t, researchManifest)
	ctx := context.Background()

	pos, err := eng.Position(ctx, def)
	require.NoError(t, err)
	assert.Equal(t, "search", pos.CurrentStage)
	assert.Equal(t, "discovery", pos.Phase)
	assert.False(t, pos.IsComplete)

	_, err = eng.Materialize(ctx, def, "search", domain.StageParameters{}, "done")
	require.NoError(t, err)
	mock.Add(time.Minute)

	pos, err = eng.Position(ctx, def)
	require.NoError(t, err)
	assert.Equal(t, "gather", pos.CurrentStage)
	assert.Equal(t, []string{"search"}, pos.CompletedStages)
}

func TestMaterialize_JoinOmitsPendingParent(t *testing.T) {
	doc := `
name: join
stages:
  - id: a
    produces: [a.json]
  - id: b
    produces: [b.json]
  - id: merge
    previous: [a, b]
    produces: [merge.json]
`
	eng, _, _ := newTestEngine(t)
	def := mustDef(t, doc)
	ctx := context.Background()

	aEnv, err := eng.Materialize(ctx, def, "a", domain.StageParameters{}, "a out")
	require.NoError(t, err)

	// b has no envelope yet; the join records only the resolvable lineage.
	mergeEnv, err := eng.Materialize(ctx, def, "merge", domain.StageParameters{}, "merged")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": aEnv.Fingerprint}, mergeEnv.ParentFingerprints)
}
