package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/examcoach/internal/bank"
	"github.com/pavelanni/examcoach/internal/exam"
	"github.com/pavelanni/examcoach/internal/feedback"
	appI18n "github.com/pavelanni/examcoach/internal/i18n"
	"github.com/pavelanni/examcoach/internal/llm"
	"github.com/pavelanni/examcoach/internal/model"
	"github.com/pavelanni/examcoach/internal/store"
)

func TestMain(m *testing.M) {
	if err := appI18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type cannedGrader struct{ reply string }

func (g cannedGrader) Grade(context.Context, llm.Request) llm.Report {
	return llm.Report{Text: g.reply, Backend: "canned"}
}

func (g cannedGrader) Tags() feedback.Tags { return feedback.Full }

type testServer struct {
	ctrl   *exam.Controller
	router http.Handler
}

func newTestServer(t *testing.T, s *store.Store) *testServer {
	t.Helper()
	cfg := model.ExamConfig{MinEssayChars: 5}
	// A nil *store.Store must not reach the controller as a non-nil Recorder.
	var recorder exam.Recorder
	if s != nil {
		recorder = s
	}
	ctrl := exam.NewController(bank.JAE2025(), cfg, cannedGrader{
		reply: "Overall B.\n[CORRECTED_VERSION]I enjoy travelling.[/CORRECTED_VERSION]",
	}, recorder)
	r := chi.NewRouter()
	r.Use(appI18n.Middleware("en"))
	New(ctrl, s, cfg).Routes(r)
	return &testServer{ctrl: ctrl, router: r}
}

func (ts *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	ts.ctrl.Wait()

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func decodeSnapshot(t *testing.T, raw any) exam.Snapshot {
	t.Helper()
	data, err := json.Marshal(raw)
	require.NoError(t, err)
	var snap exam.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	return snap
}

func TestBank(t *testing.T) {
	ts := newTestServer(t, nil)
	rec, out := ts.do(t, http.MethodGet, "/api/bank", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bank.JAE2025ID, out["id"])
}

func TestSessionFlow(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, _ := ts.do(t, http.MethodPost, "/api/session/start", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, out := ts.do(t, http.MethodPut, "/api/session/answers/w1", `{"answer":"I enjoy travel."}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "I enjoy travel.", decodeSnapshot(t, out).State.Answers["w1"])

	rec, _ = ts.do(t, http.MethodPut, "/api/session/topic", `{"index":0}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = ts.do(t, http.MethodPost, "/api/session/advance", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, out = ts.do(t, http.MethodPost, "/api/session/finalize", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, out = ts.do(t, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodeSnapshot(t, out)
	assert.True(t, snap.State.Submitted)
	assert.Equal(t, "Overall B.", snap.Feedback.Display)
	assert.False(t, snap.CanAdopt)

	rec, out = ts.do(t, http.MethodPost, "/api/session/adopt", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Enter correction mode first.", out["error"])

	rec, out = ts.do(t, http.MethodPost, "/api/session/correction", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeSnapshot(t, out).CanAdopt)

	rec, out = ts.do(t, http.MethodPost, "/api/session/adopt", "")
	require.Equal(t, http.StatusOK, rec.Code)

	_, out = ts.do(t, http.MethodGet, "/api/session", "")
	assert.Equal(t, "I enjoy travelling.", decodeSnapshot(t, out).State.Answers["w1"])

	rec, _ = ts.do(t, http.MethodDelete, "/api/session/correction", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = ts.do(t, http.MethodPost, "/api/session/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	_, out = ts.do(t, http.MethodGet, "/api/session", "")
	assert.False(t, decodeSnapshot(t, out).Started)
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(t, http.MethodPost, "/api/session/start", "")
	ts.do(t, http.MethodPut, "/api/session/answers/q1", `{"answer":"A"}`)

	rec, out := ts.do(t, http.MethodGet, "/api/session/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1 question answered.", out["answered"])
	assert.Nil(t, out["feedback"])
}

func TestCurrentPart(t *testing.T) {
	ts := newTestServer(t, nil)
	rec, out := ts.do(t, http.MethodGet, "/api/session/part", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Start the exam first.", out["error"])

	ts.do(t, http.MethodPost, "/api/session/start", "")
	rec, out = ts.do(t, http.MethodGet, "/api/session/part", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s1-part-a-1", out["id"])

	ts.do(t, http.MethodPost, "/api/session/advance", "")
	_, out = ts.do(t, http.MethodGet, "/api/session/part", "")
	assert.Equal(t, "s1-part-a-2", out["id"])
}

func TestRejections(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   string
	}{
		{"answer before start", http.MethodPut, "/api/session/answers/w1", `{"answer":"x"}`, "Start the exam first."},
		{"start", http.MethodPost, "/api/session/start", "", ""},
		{"unknown question", http.MethodPut, "/api/session/answers/zz", `{"answer":"x"}`, "Unknown question: zz."},
		{"invalid topic", http.MethodPut, "/api/session/topic", `{"index":9}`, "Topic 9 does not exist."},
		{"retreat at start", http.MethodPost, "/api/session/retreat", "", "There is no further part in that direction."},
		{"short essay", http.MethodPost, "/api/session/finalize", "", "The essay is too short to grade (at least 5 characters)."},
		{"adopt without correction", http.MethodPost, "/api/session/adopt", "", "There is no corrected version to adopt."},
		{"exit correction", http.MethodDelete, "/api/session/correction", "", "Enter correction mode first."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := ts.do(t, tt.method, tt.path, tt.body)
			if tt.want == "" {
				assert.Equal(t, http.StatusOK, rec.Code)
				return
			}
			assert.Equal(t, http.StatusConflict, rec.Code)
			assert.Equal(t, tt.want, out["error"])
			assert.NotNil(t, out["session"], "rejections carry the unchanged snapshot")
		})
	}
}

func TestRejectionIsLocalised(t *testing.T) {
	ts := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/session/finalize", nil)
	req.Header.Set("Accept-Language", "zh-Hant")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "請先開始考試。")
}

func TestBadRequests(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(t, http.MethodPost, "/api/session/start", "")

	rec, out := ts.do(t, http.MethodPut, "/api/session/answers/w1", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "The request could not be read.", out["error"])

	rec, _ = ts.do(t, http.MethodPut, "/api/session/topic", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = ts.do(t, http.MethodPut, "/api/session/topic", `{"index":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJournal(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		ts := newTestServer(t, nil)
		rec, out := ts.do(t, http.MethodGet, "/api/journal", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "The grading journal is not enabled.", out["error"])
	})

	t.Run("enabled", func(t *testing.T) {
		s, err := store.New(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })

		ts := newTestServer(t, s)
		ts.do(t, http.MethodPost, "/api/session/start", "")
		ts.do(t, http.MethodPut, "/api/session/answers/w1", `{"answer":"I enjoy travel."}`)
		ts.do(t, http.MethodPost, "/api/session/finalize", "")
		id := ts.ctrl.Snapshot().State.ID

		req := httptest.NewRequest(http.MethodGet, "/api/journal", nil)
		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var sessions []model.SessionSummary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
		require.Len(t, sessions, 1)
		assert.Equal(t, id, sessions[0].ID)

		req = httptest.NewRequest(http.MethodGet, "/api/journal/"+id, nil)
		rec = httptest.NewRecorder()
		ts.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var result model.SessionResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		require.Len(t, result.Attempts, 1)
		assert.Equal(t, model.TriggerFinalize, result.Attempts[0].Trigger)

		rec, _ = ts.do(t, http.MethodGet, "/api/journal/missing", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
