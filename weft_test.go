package weft_test

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wefthq/weft"
	"github.com/wefthq/weft/pkg/adapters/memory"
	"github.com/wefthq/weft/pkg/domain"
)

const researchManifest = `
name: research
version: "1.0"
persona: analyst
stages:
  - id: search
    name: Literature search
    phase: discovery
    optional: true
    produces: [search.json]
    defaults:
      depth: 2
  - id: gather
    name: Gather sources
    phase: discovery
    previous: [search]
    produces: [gather.json]
  - id: harmonize
    name: Harmonize corpus
    phase: synthesis
    previous: [gather]
    produces: [harmonized.json]
`

func newTestEngine(t *testing.T) (*weft.Engine, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	eng, err := weft.New(memory.NewStore(), weft.WithClock(mock))
	require.NoError(t, err)
	return eng, mock
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := weft.New(nil)
	require.Error(t, err)
}

// The full walk of a session: parse, skip the optional root, work through
// the remaining stages, verify the position and the provenance chain.
func TestEngine_SessionWalkthrough(t *testing.T) {
	eng, mock := newTestEngine(t)
	ctx := context.Background()

	def, err := eng.ParseManifest([]byte(researchManifest))
	require.NoError(t, err)

	paths := eng.ResolvePaths(def)
	assert.Equal(t, "search", paths["search"].DataDir)
	assert.Equal(t, "search/gather", paths["gather"].DataDir)
	assert.Equal(t, "search/gather/harmonize/meta/harmonized.json", paths["harmonize"].ArtifactFile)

	pos, err := eng.Position(ctx, def)
	require.NoError(t, err)
	assert.Equal(t, "search", pos.CurrentStage)
	assert.Equal(t, 0, pos.CompletedCount)

	// Skipping the optional root counts as completion and unblocks gather.
	require.NoError(t, eng.MaterializeSkip(ctx, def, "search", "corpus already curated"))
	pos, err = eng.Position(ctx, def)
	require.NoError(t, err)
	assert.Equal(t, "gather", pos.CurrentStage)
	assert.Equal(t, []string{"search"}, pos.CompletedStages)

	mock.Add(time.Minute)
	gatherEnv, err := eng.Materialize(ctx, def, "gather",
		domain.StageParameters{Values: map[string]any{"limit": 5}},
		map[string]any{"sources": []string{"a", "b"}})
	require.NoError(t, err)
	// The skipped parent has no envelope, so the chain starts here.
	assert.Empty(t, gatherEnv.ParentFingerprints)

	mock.Add(time.Minute)
	harmEnv, err := eng.Materialize(ctx, def, "harmonize",
		domain.StageParameters{}, map[string]any{"rows": 40})
	require.NoError(t, err)
	assert.Equal(t, gatherEnv.Fingerprint, harmEnv.ParentFingerprints["gather"])

	pos, err = eng.Position(ctx, def)
	require.NoError(t, err)
	assert.True(t, pos.IsComplete)
	assert.Empty(t, pos.CurrentStage)
	assert.Equal(t, 3, pos.CompletedCount)

	fp, err := eng.FingerprintOf(ctx, def, "harmonize")
	require.NoError(t, err)
	assert.Equal(t, harmEnv.Fingerprint, fp)
}

// Completed stages never become un-complete when upstream changes; they
// become stale instead.
func TestEngine_CompletionIsMonotonic(t *testing.T) {
	eng, mock := newTestEngine(t)
	ctx := context.Background()

	def, err := eng.ParseManifest([]byte(researchManifest))
	require.NoError(t, err)

	for _, id := range []string{"search", "gather", "harmonize"} {
		_, err := eng.Materialize(ctx, def, id, domain.StageParameters{}, id)
		require.NoError(t, err)
		mock.Add(time.Minute)
	}

	_, err = eng.Materialize(ctx, def, "search", domain.StageParameters{}, "rerun")
	require.NoError(t, err)

	rs, err := eng.Readiness(ctx, def)
	require.NoError(t, err)
	for _, r := range rs {
		assert.True(t, r.Complete, "stage %s lost completion", r.Stage)
	}

	var gather domain.NodeReadiness
	for _, r := range rs {
		if r.Stage == "gather" {
			gather = r
		}
	}
	assert.True(t, gather.Stale)
}

func TestEngine_ScriptSkipOverlay(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	manifest, err := eng.ParseManifest([]byte(researchManifest))
	require.NoError(t, err)

	script := `
manifest: research
overrides:
  - stage: search
    skip: true
    reason: corpus already curated
`
	def, err := eng.ParseScript([]byte(script), manifest)
	require.NoError(t, err)

	node := def.Node("search")
	require.NotNil(t, node.Parameters.Skip)

	// A stage marked skipped in the script cannot materialize a real
	// artifact; the sentinel is the only valid write.
	_, err = eng.Materialize(ctx, def, "search", node.Parameters, "output")
	require.Error(t, err)
	require.NoError(t, eng.MaterializeSkip(ctx, def, "search", node.Parameters.Skip.Reason))
}

func TestEngine_ParseFailureSurfacesEveryViolation(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.ParseManifest([]byte("stages:\n  - id: a\n    produces: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name: required")
	assert.Contains(t, err.Error(), "produces")
}
