package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/graph"
	"github.com/matzehuels/taskgraph/pkg/observability"
	"github.com/matzehuels/taskgraph/pkg/rules"
	"github.com/matzehuels/taskgraph/pkg/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()
	s := store.NewMemory()
	require.NoError(t, s.ImportProject(context.Background(), graph.Graph{
		ProjectID: "web",
		Nodes: []graph.Node{
			{ID: "design", Status: "completed"},
			{ID: "build", Status: "in-progress"},
			{ID: "test", Status: "not-started"},
		},
		Edges: []graph.Edge{{DependentTaskID: "build", PrerequisiteTaskID: "design"}},
	}))
	srv := New(s, Options{Logger: log.New(io.Discard)})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return ts, s
}

func do(t *testing.T, ts *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthz_RequestID(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := do(t, ts, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_, err := uuid.Parse(resp.Header.Get(RequestIDHeader))
	assert.NoError(t, err, "X-Request-ID should be a uuid")

	id := uuid.NewString()
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set(RequestIDHeader, id)
	resp2, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, id, resp2.Header.Get(RequestIDHeader))
}

func TestView(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := do(t, ts, http.MethodGet, "/projects/web/view", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v := decode[graph.View](t, resp)
	assert.Equal(t, map[string]int{"design": 0, "build": 1, "test": 0}, v.Levels())
	assert.Equal(t, []string{"build", "design"}, v.CriticalPath)
	assert.NotEmpty(t, v.Revision)

	resp = do(t, ts, http.MethodGet, "/projects/nope/view", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decode[ErrorBody](t, resp)
	assert.Equal(t, errors.ErrCodeProjectNotFound, body.Error.Code)
}

func TestAddDependency_StatusCodes(t *testing.T) {
	ts, s := newTestServer(t)

	tests := []struct {
		name   string
		req    DependencyRequest
		status int
		code   errors.Code
	}{
		{"valid", DependencyRequest{DependentID: "test", PrerequisiteID: "build"}, http.StatusCreated, ""},
		{"cycle", DependencyRequest{DependentID: "design", PrerequisiteID: "test"}, http.StatusUnprocessableEntity, errors.ErrCodeRejected},
		{"warning", DependencyRequest{DependentID: "test", PrerequisiteID: "design"}, http.StatusConflict, errors.ErrCodeConfirmationRequired},
		{"confirmed", DependencyRequest{DependentID: "test", PrerequisiteID: "design", Confirm: true}, http.StatusCreated, ""},
		{"missing field", DependencyRequest{DependentID: "test"}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, ts, http.MethodPost, "/projects/web/dependencies", tt.req)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.code != "" {
				body := decode[ErrorBody](t, resp)
				assert.Equal(t, tt.code, body.Error.Code)
			}
		})
	}

	g, err := s.LoadProject(context.Background(), "web")
	require.NoError(t, err)
	assert.Len(t, g.Edges, 3)
}

func TestAddDependency_RejectedCarriesVerdict(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := do(t, ts, http.MethodPost, "/projects/web/dependencies",
		DependencyRequest{DependentID: "design", PrerequisiteID: "build"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decode[ErrorBody](t, resp)
	require.NotNil(t, body.Verdict)
	assert.False(t, body.Verdict.Valid)
	require.Len(t, body.Verdict.Errors, 1)
	assert.Equal(t, errors.ErrCodeCircularDependency, body.Verdict.Errors[0].Kind)
	assert.Equal(t, []string{"design", "build", "design"}, body.Verdict.Errors[0].Path)
}

func TestValidate(t *testing.T) {
	ts, s := newTestServer(t)

	resp := do(t, ts, http.MethodPost, "/projects/web/dependencies/validate",
		DependencyRequest{DependentID: "test", PrerequisiteID: "design"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v := decode[rules.Verdict](t, resp)
	assert.True(t, v.Valid)
	assert.True(t, v.NeedsConfirmation())

	g, err := s.LoadProject(context.Background(), "web")
	require.NoError(t, err)
	assert.Len(t, g.Edges, 1, "validate must not persist")
}

func TestRemoveDependency(t *testing.T) {
	ts, _ := newTestServer(t)
	req := DependencyRequest{DependentID: "build", PrerequisiteID: "design"}

	resp := do(t, ts, http.MethodDelete, "/projects/web/dependencies", req)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, ts, http.MethodDelete, "/projects/web/dependencies", req)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, errors.ErrCodeDependencyNotFound, decode[ErrorBody](t, resp).Error.Code)
}

func TestImportAndIntegrity(t *testing.T) {
	ts, _ := newTestServer(t)

	// Open the editor first so the import has to reload it.
	require.Equal(t, http.StatusOK, do(t, ts, http.MethodGet, "/projects/web/view", nil).StatusCode)

	resp := do(t, ts, http.MethodPut, "/projects/web", graph.Graph{
		Nodes: []graph.Node{
			{ID: "a", Status: "not-started"},
			{ID: "b", Status: "not-started"},
		},
		Edges: []graph.Edge{
			{DependentTaskID: "a", PrerequisiteTaskID: "b"},
			{DependentTaskID: "b", PrerequisiteTaskID: "a"},
		},
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, ts, http.MethodGet, "/projects/web/integrity", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[rules.Report](t, resp)
	assert.False(t, report.Valid)
	require.NotEmpty(t, report.Issues)
	assert.Equal(t, errors.ErrCodeCircularDependency, report.Issues[0].Kind)

	resp = do(t, ts, http.MethodPut, "/projects/web", graph.Graph{ProjectID: "other"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, ts, http.MethodPut, "/projects/web", graph.Graph{
		Nodes: []graph.Node{{ID: "a", Status: "someday"}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, errors.ErrCodeInvalidFormat, decode[ErrorBody](t, resp).Error.Code)
}

func TestRender(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := do(t, ts, http.MethodGet, "/projects/web/render?format=dot&highlight=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/vnd.graphviz"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"design" -> "build" [color=`)

	resp = do(t, ts, http.MethodGet, "/projects/web/render?format=png", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProjects(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := do(t, ts, http.MethodGet, "/projects", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string][]string{"projects": {"web"}}, decode[map[string][]string](t, resp))
}

type recordingHTTPHooks struct {
	observability.NoopHTTPHooks
	mu     sync.Mutex
	routes []string
}

func (h *recordingHTTPHooks) OnResponse(_ context.Context, method, route string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes = append(h.routes, method+" "+route)
}

func TestHTTPHooks(t *testing.T) {
	hooks := &recordingHTTPHooks{}
	observability.SetHTTPHooks(hooks)
	t.Cleanup(observability.Reset)

	ts, _ := newTestServer(t)
	do(t, ts, http.MethodGet, "/projects/web/view", nil)

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	assert.Equal(t, []string{"GET /projects/{projectID}/view"}, hooks.routes)
}
