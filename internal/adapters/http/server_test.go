package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wefthq/weft/internal/adapters/http"
	"github.com/wefthq/weft/internal/compiler"
	"github.com/wefthq/weft/internal/logging"
	"github.com/wefthq/weft/internal/runtime"
	"github.com/wefthq/weft/pkg/adapters/memory"
	"github.com/wefthq/weft/pkg/domain"
)

const statusManifest = `
name: research
stages:
  - id: search
    phase: discovery
    produces: [search.json]
  - id: harmonize
    previous: [search]
    produces: [harmonized.json]
`

func newTestServer(t *testing.T) (*httptest.Server, *runtime.Engine, *domain.GraphDefinition) {
	t.Helper()
	def, err := compiler.NewParser().Manifest([]byte(statusManifest))
	require.NoError(t, err)

	eng := runtime.NewEngine(memory.NewStore())
	handler := http.NewHandler(eng, def, logging.NewNop(), prometheus.NewRegistry())
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, eng, def
}

func TestServer_Position(t *testing.T) {
	srv, eng, def := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/api/position")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var pos domain.WorkflowPosition
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pos))
	assert.Equal(t, "search", pos.CurrentStage)
	assert.False(t, pos.IsComplete)

	_, err = eng.Materialize(context.Background(), def, "search", domain.StageParameters{}, "out")
	require.NoError(t, err)

	resp2, err := srv.Client().Get(srv.URL + "/api/position")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&pos))
	assert.Equal(t, "harmonize", pos.CurrentStage)
	assert.Equal(t, []string{"search"}, pos.CompletedStages)
}

func TestServer_Readiness(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/api/readiness")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var readiness []domain.NodeReadiness
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&readiness))
	require.Len(t, readiness, 2)
	assert.True(t, readiness[0].Ready)
	assert.False(t, readiness[1].Ready)
}

func TestServer_Stage(t *testing.T) {
	srv, eng, def := newTestServer(t)

	// Unknown stage is a 404, not an empty object.
	resp, err := srv.Client().Get(srv.URL + "/api/stages/ghost")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 404, resp.StatusCode)

	// Before materialization: declaration only.
	resp, err = srv.Client().Get(srv.URL + "/api/stages/search")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var body struct {
		Stage    *domain.StageNode        `json:"stage"`
		Envelope *domain.ArtifactEnvelope `json:"envelope"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "search", body.Stage.ID)
	assert.Nil(t, body.Envelope)

	env, err := eng.Materialize(context.Background(), def, "search", domain.StageParameters{}, "out")
	require.NoError(t, err)

	resp, err = srv.Client().Get(srv.URL + "/api/stages/search")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotNil(t, body.Envelope)
	assert.Equal(t, env.Fingerprint, body.Envelope.Fingerprint)
}

func TestServer_Mermaid(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/api/graph/mermaid")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	buf := make([]byte, 4096)
	n, _ := resp.Body.Read(buf)
	assert.Contains(t, string(buf[:n]), "graph TD")
}

func TestServer_MetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}
