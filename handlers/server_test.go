package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"phronesis/agent"
	"phronesis/db"
	"phronesis/interview"
	"phronesis/models"
	"phronesis/prompts"
)

type failingChat struct{}

func (failingChat) Send(context.Context, []models.ChatMessage, string) (string, error) {
	return "", errors.New("upstream unavailable")
}

type testServer struct {
	handler  http.Handler
	registry *interview.Registry
	store    *db.SQLiteResultStore
}

func newTestServer(t *testing.T, chat interview.ChatClient) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)

	store, err := db.NewSQLiteResultStore(context.Background(), filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	catalog := models.DefaultCatalog()
	registry := interview.NewRegistry(interview.Options{ClosingThreshold: 2, Catalog: catalog})
	srv := NewServer(Options{
		Registry:  registry,
		Conductor: interview.NewConductor(chat, store, logger),
		Catalog:   catalog,
		Results:   store,
		Logger:    logger,
	})
	return &testServer{handler: srv.Routes(), registry: registry, store: store}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (ts *testServer) createSession(t *testing.T) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[SpawnResponse](t, w).SessionID
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, agent.NewMockClient())

	w := ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/healthz", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestArchetypes(t *testing.T) {
	ts := newTestServer(t, agent.NewMockClient())

	w := ts.do(t, http.MethodGet, "/archetypes", nil)
	require.Equal(t, http.StatusOK, w.Code)

	catalog := decode[models.Catalog](t, w)
	assert.Len(t, catalog.Locations, len(models.Locations))
	assert.Len(t, catalog.Tools, len(models.Tools))
}

func TestCreateSession(t *testing.T) {
	ts := newTestServer(t, agent.NewMockClient())

	w := ts.do(t, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	resp := decode[SpawnResponse](t, w)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, models.StageChooseLocation, resp.Stage)
	assert.Equal(t, prompts.WelcomeMessage, resp.Welcome)
	assert.Len(t, resp.Options, len(models.Locations))
	assert.Equal(t, 1, ts.registry.Len())

	w = ts.do(t, http.MethodGet, "/sessions", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestFullInterviewOverHTTP(t *testing.T) {
	ts := newTestServer(t, agent.NewMockClient())
	id := ts.createSession(t)
	base := "/sessions/" + id

	w := ts.do(t, http.MethodPost, base+"/location", LocationRequest{Location: "workshop"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	loc := decode[StageResponse](t, w)
	assert.Equal(t, models.StageChooseTool, loc.Stage)
	assert.Equal(t, prompts.ToolQuestion, loc.Prompt)
	assert.Len(t, loc.Options, len(models.Tools))

	w = ts.do(t, http.MethodPost, base+"/tool", ToolRequest{Tool: "repair-kit"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	tool := decode[StageResponse](t, w)
	assert.Equal(t, models.StageDialogue, tool.Stage)
	require.NotNil(t, tool.AgentTurn)
	assert.NotEmpty(t, tool.AgentTurn.Text)

	w = ts.do(t, http.MethodPost, base+"/messages", MessageRequest{Text: "낡은 자전거를 고쳤어요"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[StageResponse](t, w)
	assert.Equal(t, 1, first.TurnCount)
	assert.Equal(t, models.StageDialogue, first.Stage)

	w = ts.do(t, http.MethodPost, base+"/messages", MessageRequest{Text: "이웃들에게도 고쳐 줬어요"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	last := decode[StageResponse](t, w)
	assert.Equal(t, models.StageComplete, last.Stage)
	assert.Equal(t, "고치는 별", last.Report[models.ReportKeyTitle])
	assert.True(t, last.Persisted)
	assert.NotContains(t, last.AgentTurn.Text, "{")

	w = ts.do(t, http.MethodPost, base+"/messages", MessageRequest{Text: "하나 더"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, models.StageComplete, decode[errorResponse](t, w).Stage)

	w = ts.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	session := decode[SessionResponse](t, w)
	assert.Equal(t, models.LocationWorkshop, session.Choice.Location)
	assert.Equal(t, models.ToolRepairKit, session.Choice.Tool)
	assert.Equal(t, 2, session.TurnCount)
	assert.Len(t, session.Turns, 5)

	w = ts.do(t, http.MethodGet, "/results", nil)
	require.Equal(t, http.StatusOK, w.Code)
	results := decode[ResultsResponse](t, w)
	require.Equal(t, 1, results.Count)
	assert.Equal(t, id, results.Results[0].SessionID)
	assert.Equal(t, "80%", results.Results[0].Confidence)
}

func TestOutOfOrderRequestsConflict(t *testing.T) {
	ts := newTestServer(t, agent.NewMockClient())
	id := ts.createSession(t)

	w := ts.do(t, http.MethodPost, "/sessions/"+id+"/tool", ToolRequest{Tool: "lens"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPost, "/sessions/"+id+"/messages", MessageRequest{Text: "hi"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodGet, "/sessions/"+id, nil)
	assert.Equal(t, models.StageChooseLocation, decode[SessionResponse](t, w).Stage)
}

func TestBadInput(t *testing.T) {
	ts := newTestServer(t, agent.NewMockClient())
	id := ts.createSession(t)

	w := ts.do(t, http.MethodPost, "/sessions/"+id+"/location", LocationRequest{Location: "moon"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/location", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownSession(t *testing.T) {
	ts := newTestServer(t, agent.NewMockClient())

	tests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/sessions/missing", nil},
		{http.MethodDelete, "/sessions/missing", nil},
		{http.MethodPost, "/sessions/missing/location", LocationRequest{Location: "market"}},
		{http.MethodPost, "/sessions/missing/messages", MessageRequest{Text: "hi"}},
		{http.MethodGet, "/sessions/missing/history", nil},
		{http.MethodPost, "/sessions/missing/unknown-action", nil},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := ts.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}
}

func TestBusySessionConflicts(t *testing.T) {
	ts := newTestServer(t, agent.NewMockClient())
	id := ts.createSession(t)

	_, release, err := ts.registry.Acquire(id)
	require.NoError(t, err)
	defer release()

	w := ts.do(t, http.MethodPost, "/sessions/"+id+"/location", LocationRequest{Location: "market"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestModelFailureIsInline(t *testing.T) {
	ts := newTestServer(t, failingChat{})
	id := ts.createSession(t)

	w := ts.do(t, http.MethodPost, "/sessions/"+id+"/location", LocationRequest{Location: "library"})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/sessions/"+id+"/tool", ToolRequest{Tool: "quill"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[StageResponse](t, w)
	assert.Contains(t, resp.ModelError, "upstream unavailable")
	assert.Equal(t, models.StageDialogue, resp.Stage)

	w = ts.do(t, http.MethodPost, "/sessions/"+id+"/opening", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[StageResponse](t, w).ModelError)
}

func TestHistoryPagination(t *testing.T) {
	ts := newTestServer(t, agent.NewMockClient())
	id := ts.createSession(t)
	base := "/sessions/" + id

	ts.do(t, http.MethodPost, base+"/location", LocationRequest{Location: "market"})
	ts.do(t, http.MethodPost, base+"/tool", ToolRequest{Tool: "compass"})
	ts.do(t, http.MethodPost, base+"/messages", MessageRequest{Text: "시장에서 일해요"})

	w := ts.do(t, http.MethodGet, base+"/history?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[HistoryResponse](t, w)
	assert.EqualValues(t, 3, page.Total)
	assert.True(t, page.HasMore)
	require.Len(t, page.Turns, 2)
	assert.Equal(t, models.SpeakerAgent, page.Turns[0].Speaker)
	assert.Equal(t, "시장에서 일해요", page.Turns[1].Text)

	w = ts.do(t, http.MethodGet, base+"/history?limit=2&offset=2", nil)
	page = decode[HistoryResponse](t, w)
	assert.False(t, page.HasMore)
	require.Len(t, page.Turns, 1)

	w = ts.do(t, http.MethodGet, base+"/history?offset=10", nil)
	assert.Empty(t, decode[HistoryResponse](t, w).Turns)
}

func TestDeleteSession(t *testing.T) {
	ts := newTestServer(t, agent.NewMockClient())
	id := ts.createSession(t)

	w := ts.do(t, http.MethodDelete, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, ts.registry.Len())

	w = ts.do(t, http.MethodGet, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResultsDisabled(t *testing.T) {
	registry := interview.NewRegistry(interview.Options{})
	srv := NewServer(Options{
		Registry:  registry,
		Conductor: interview.NewConductor(agent.NewMockClient(), nil, nil),
		Catalog:   models.DefaultCatalog(),
	})

	req := httptest.NewRequest(http.MethodGet, "/results", nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
