package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procflow/procflow/pkg/cache"
	"github.com/procflow/procflow/pkg/collab"
	"github.com/procflow/procflow/pkg/pipeline"
	"github.com/procflow/procflow/pkg/store"
	"github.com/procflow/procflow/pkg/table"
)

func testRouter(t *testing.T, c *collab.Client) http.Handler {
	t.Helper()
	s := &Server{
		Runner: pipeline.NewRunner(cache.NewNullCache(), cache.NewDefaultKeyer(), log.New(io.Discard)),
		Store:  store.NewMemoryStore(),
		Collab: c,
		Logger: log.New(io.Discard),
	}
	return NewRouter(s)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sampleRows() []table.Row {
	return []table.Row{
		table.Sequential("1.1", "", "Réception de la demande", "1.2"),
		table.Conditional("1.2", "Agent", "Vérifier le dossier", "Dossier complet ?", "1.3", "1.1"),
		table.Sequential("1.3", "Responsable", "Valider la demande", ""),
	}
}

func TestCompileEndpoint(t *testing.T) {
	h := testRouter(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/compile", pipeline.Options{
		Rows:    sampleRows(),
		Formats: []string{pipeline.FormatDOT, pipeline.FormatMermaid},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp compileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.GraphHash)
	assert.Contains(t, resp.Artifacts[pipeline.FormatDOT], "digraph")
	assert.Contains(t, resp.Artifacts[pipeline.FormatMermaid], "graph TD")
	assert.Equal(t, 5, resp.Stats.Nodes)
}

func TestCompileEndpointRejectsBadFormat(t *testing.T) {
	h := testRouter(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/compile", pipeline.Options{
		Rows:    sampleRows(),
		Formats: []string{"pdf"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_INPUT")
}

func TestParseEndpoint(t *testing.T) {
	h := testRouter(t, nil)

	text := strings.Join([]string{
		`digraph {`,
		`  "start" [shape=circle, label="Début"];`,
		`  "1.1" [shape=box, label="Vérifier le dossier", step="1.1"];`,
		`  "end" [shape=doublecircle, label="Fin"];`,
		`  "start" -> "1.1";`,
		`  "1.1" -> "end";`,
		`}`,
	}, "\n")

	rec := doJSON(t, h, http.MethodPost, "/api/parse", parseRequest{Text: text})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp parseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "1.1", resp.Rows[0].ID)
	require.Len(t, resp.Visual.Nodes, 3)
	assert.Greater(t, resp.Visual.Nodes[1].Position.Y, resp.Visual.Nodes[0].Position.Y)
}

func TestParseEndpointMalformedText(t *testing.T) {
	h := testRouter(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/parse", parseRequest{Text: `"a" -> "b"`})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "PARSE_ERROR")
}

func TestProcessCRUD(t *testing.T) {
	h := testRouter(t, nil)

	rec := doJSON(t, h, http.MethodPut, "/api/processes/onboarding", saveProcessRequest{Rows: sampleRows()})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/processes/onboarding", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var p store.Process
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "onboarding", p.Name)
	assert.Len(t, p.Rows, 3)

	rec = doJSON(t, h, http.MethodGet, "/api/processes/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []store.Process
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = doJSON(t, h, http.MethodDelete, "/api/processes/onboarding", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/processes/onboarding", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestAnalyzeWithoutCollaborator(t *testing.T) {
	h := testRouter(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/analyze", analyzeRequest{Filename: "p.xlsx"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestEnrichProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"enrichments": []map[string]string{
				{"id": "1.1", "department": "Back-office"},
			},
		})
	}))
	defer upstream.Close()

	client, err := collab.NewClient(upstream.URL+"/analyze", upstream.URL+"/enrich")
	require.NoError(t, err)
	h := testRouter(t, client)

	rec := doJSON(t, h, http.MethodPost, "/api/enrich", enrichRequest{Rows: sampleRows()})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp enrichResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rows, 3)
	assert.Equal(t, "Back-office", resp.Rows[0].Service)
	assert.Equal(t, "Agent", resp.Rows[1].Service)
}
