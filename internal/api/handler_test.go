package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cosmos-link/webgen/internal/generator"
	"github.com/cosmos-link/webgen/internal/llm"
	"github.com/cosmos-link/webgen/internal/logging"
	"github.com/cosmos-link/webgen/internal/project"
	"github.com/cosmos-link/webgen/internal/session"
	"github.com/cosmos-link/webgen/internal/task"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logging.SetLogger(zap.NewNop())
	os.Exit(m.Run())
}

type stubCompleter struct {
	response string
	err      error
}

func (s stubCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	return s.response, s.err
}

func (s stubCompleter) Provider() string { return "stub" }

type testServer struct {
	router   *gin.Engine
	sessions *session.Store
	tasks    *task.Manager
	sse      *SSEManager
}

func newTestServer(t *testing.T, c llm.Completer) *testServer {
	t.Helper()
	sessions := session.NewStore()
	tasks := task.NewManager(2, 5*time.Second)
	sse := NewSSEManager()
	t.Cleanup(func() {
		tasks.Shutdown()
		sse.Close()
	})

	gen := generator.NewGenerator(c, nil, sessions, tasks, t.TempDir())
	return &testServer{
		router:   SetupRouter(NewHandler(gen, sessions, tasks, sse)),
		sessions: sessions,
		tasks:    tasks,
		sse:      sse,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) createSession(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create session status = %d", w.Code)
	}
	var snap session.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	return snap.ID
}

func (s *testServer) waitTask(t *testing.T, id string) task.Task {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		got, err := s.tasks.GetTask(id)
		if err == nil && got.IsTerminal() {
			return got
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s did not finish", id)
	return task.Task{}
}

func TestCreateAndGetSession(t *testing.T) {
	s := newTestServer(t, stubCompleter{})
	id := s.createSession(t)

	w := s.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/files", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Files []project.Entry `json:"files"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if len(body.Files) != 4 || body.Files[1].Kind != project.KindDirectory {
		t.Errorf("files = %+v", body.Files)
	}

	w = s.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/files?name=src/main.tsx", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ReactDOM") {
		t.Errorf("single file: %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/files?name=nope.js", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing file status = %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/api/v1/sessions/unknown", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown session status = %d", w.Code)
	}
}

func TestEditFile(t *testing.T) {
	s := newTestServer(t, stubCompleter{})
	id := s.createSession(t)

	w := s.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/files", EditRequest{Name: "src/App.tsx", Content: "edited"})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"applied":true`) {
		t.Fatalf("edit: %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/files", EditRequest{Name: "nope.js", Content: "x"})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"applied":false`) {
		t.Fatalf("edit missing: %d %s", w.Code, w.Body.String())
	}

	sess, _ := s.sessions.Get(id)
	if e, _ := sess.File("src/App.tsx"); e.Content != "edited" {
		t.Errorf("content = %q", e.Content)
	}
	if len(sess.Files()) != 4 {
		t.Error("edit of unknown file created an entry")
	}

	w = s.do(t, http.MethodPut, "/api/v1/sessions/"+id+"/files", map[string]string{"content": "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("edit without name status = %d", w.Code)
	}
}

func TestApplyResponse(t *testing.T) {
	s := newTestServer(t, stubCompleter{})
	id := s.createSession(t)

	w := s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/responses", ResponseRequest{
		Response: "Here you go:\n```src/App.tsx\nconsole.log('hi')\n```\n",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var body struct {
		Changed []string `json:"changed"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if len(body.Changed) != 1 || body.Changed[0] != "src/App.tsx" {
		t.Errorf("changed = %v", body.Changed)
	}
}

func TestGenerate(t *testing.T) {
	s := newTestServer(t, stubCompleter{response: "```src/Todo.tsx\nexport default Todo\n```"})
	id := s.createSession(t)

	w := s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/generate", GenerateRequest{Prompt: "todo app", APIKey: "k"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}
	var resp TaskResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)

	got := s.waitTask(t, resp.TaskID)
	if got.Status != task.StatusCompleted {
		t.Fatalf("task = %+v", got)
	}

	sess, _ := s.sessions.Get(id)
	if e, ok := sess.File("src/Todo.tsx"); !ok || e.Content != "export default Todo" {
		t.Errorf("Todo.tsx = %+v", e)
	}

	w = s.do(t, http.MethodGet, "/api/v1/task/"+resp.TaskID, nil)
	if w.Code != http.StatusOK || strings.Contains(w.Body.String(), `"k"`) {
		t.Errorf("task lookup: %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/generate", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("generate without prompt status = %d", w.Code)
	}
}

func TestGenerateFailure(t *testing.T) {
	s := newTestServer(t, stubCompleter{err: llm.ErrMissingAPIKey})
	id := s.createSession(t)

	w := s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/generate", GenerateRequest{Prompt: "todo app"})
	var resp TaskResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)

	got := s.waitTask(t, resp.TaskID)
	if got.Status != task.StatusFailed {
		t.Errorf("status = %s; want failed", got.Status)
	}

	w = s.do(t, http.MethodGet, "/api/v1/sessions/"+id, nil)
	if !strings.Contains(w.Body.String(), "Please enter your API key") {
		t.Errorf("session log missing notice: %s", w.Body.String())
	}
}

func TestStatusStream(t *testing.T) {
	s := newTestServer(t, stubCompleter{response: "```a.js\na\n```"})
	id := s.createSession(t)

	w := s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/generate", GenerateRequest{Prompt: "p", APIKey: "k"})
	var resp TaskResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	s.waitTask(t, resp.TaskID)

	w = s.do(t, http.MethodGet, "/api/v1/status/"+resp.TaskID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "event:status") || !strings.Contains(w.Body.String(), `"completed"`) {
		t.Errorf("unexpected stream: %s", w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/v1/status/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing task status = %d", w.Code)
	}
}

func TestSelectDeployDelete(t *testing.T) {
	s := newTestServer(t, stubCompleter{})
	id := s.createSession(t)

	if w := s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/select", SelectRequest{Name: "index.html"}); w.Code != http.StatusOK {
		t.Errorf("select status = %d", w.Code)
	}
	if w := s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/select", SelectRequest{Name: "x"}); w.Code != http.StatusNotFound {
		t.Errorf("select missing status = %d", w.Code)
	}

	w := s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/deploy", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Deploying locally...") {
		t.Errorf("deploy: %d %s", w.Code, w.Body.String())
	}

	if w := s.do(t, http.MethodDelete, "/api/v1/sessions/"+id, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", w.Code)
	}
	if w := s.do(t, http.MethodDelete, "/api/v1/sessions/"+id, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d", w.Code)
	}
}

func TestExportLocal(t *testing.T) {
	s := newTestServer(t, stubCompleter{})
	id := s.createSession(t)

	w := s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/export", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}
	var resp TaskResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)

	got := s.waitTask(t, resp.TaskID)
	if got.Status != task.StatusCompleted || got.Path == "" {
		t.Errorf("task = %+v", got)
	}
}

func TestHealthAndRequestID(t *testing.T) {
	s := newTestServer(t, stubCompleter{})

	w := s.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "healthy") {
		t.Errorf("health: %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get(logging.RequestIDHeader) == "" {
		t.Error("missing request id header")
	}

	w = s.do(t, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "webgen_http_requests_total") {
		t.Errorf("metrics endpoint: %d", w.Code)
	}
}

func TestListSessions(t *testing.T) {
	s := newTestServer(t, stubCompleter{})
	first := s.createSession(t)
	second := s.createSession(t)

	w := s.do(t, http.MethodGet, "/api/v1/sessions", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Sessions []SessionSummary `json:"sessions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Sessions) != 2 {
		t.Fatalf("sessions = %+v", body.Sessions)
	}
	ids := map[string]bool{body.Sessions[0].ID: true, body.Sessions[1].ID: true}
	if !ids[first] || !ids[second] {
		t.Errorf("sessions = %+v; want %s and %s", body.Sessions, first, second)
	}
	if body.Sessions[0].Files != 4 {
		t.Errorf("files = %d; want 4", body.Sessions[0].Files)
	}
}

func TestSubmitAfterShutdownFailsTask(t *testing.T) {
	s := newTestServer(t, stubCompleter{response: "```a.js\na\n```"})
	id := s.createSession(t)
	s.tasks.Shutdown()

	w := s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/generate", GenerateRequest{Prompt: "p", APIKey: "k"})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		TaskID string `json:"task_id"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)

	got, err := s.tasks.GetTask(resp.TaskID)
	if err != nil {
		t.Fatalf("GetTask(%q): %v", resp.TaskID, err)
	}
	if got.Status != task.StatusFailed {
		t.Errorf("status = %s; want failed", got.Status)
	}
}

func TestExportChunkedBody(t *testing.T) {
	s := newTestServer(t, stubCompleter{})
	id := s.createSession(t)

	// A reader of unknown length leaves ContentLength at -1, as with chunked uploads.
	body := io.MultiReader(strings.NewReader(`{"repo_name":"my-app"}`))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/export", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}
	var resp TaskResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)

	got := s.waitTask(t, resp.TaskID)
	if got.RepoName != "my-app" {
		t.Errorf("RepoName = %q; want my-app", got.RepoName)
	}
	// No GitHub client is configured, so a named export must fail.
	if got.Status != task.StatusFailed {
		t.Errorf("status = %s; want failed", got.Status)
	}

	w = s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/export", nil)
	if w.Code != http.StatusAccepted {
		t.Errorf("empty body status = %d", w.Code)
	}
}

func TestStatusStreamSeesCompletionRacingConnect(t *testing.T) {
	s := newTestServer(t, stubCompleter{})

	for i := 0; i < 50; i++ {
		tk := s.tasks.CreateTask(task.Task{Kind: task.KindGenerate})
		s.tasks.SubscribeToTask(tk.ID, func(u task.Task) { s.sse.Broadcast(u) })

		w := httptest.NewRecorder()
		done := make(chan struct{})
		go func() {
			defer close(done)
			s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/status/"+tk.ID, nil))
		}()

		s.tasks.UpdateTask(tk.ID, task.StatusCompleted, "done")

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("iteration %d: stream did not close after completion", i)
		}
		if !strings.Contains(w.Body.String(), `"completed"`) {
			t.Fatalf("iteration %d: stream = %s", i, w.Body.String())
		}
	}
}
