package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sandevgo/datacom/internal/core"
	"github.com/sandevgo/datacom/internal/service/chat"
	"github.com/sandevgo/datacom/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTurn struct {
	resp core.ChatResponse
	err  error
	got  core.ChatRequest
}

func (f *fakeTurn) ProcessChat(_ context.Context, req core.ChatRequest) (core.ChatResponse, error) {
	f.got = req
	if err := chat.Validate(req.Message); err != nil {
		return core.ChatResponse{}, err
	}
	return f.resp, f.err
}

type fakeModel struct{ ready bool }

func (f fakeModel) IsReady() bool { return f.ready }

type testEnv struct {
	router http.Handler
	repo   *sqlite.ConversationsRepo
	turn   *fakeTurn
	close  func() error
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.NewDB(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := sqlite.NewConversationsRepo(db)
	turn := &fakeTurn{}
	h := NewHandler(turn, repo, fakeModel{})
	h.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }

	return &testEnv{
		router: NewRouter(context.Background(), h, "/api/v1"),
		repo:   repo,
		turn:   turn,
		close:  db.Close,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestChat(t *testing.T) {
	env := newTestEnv(t)
	env.turn.resp = core.ChatResponse{
		Message:        "GREETINGS. *BEEP*",
		ConversationID: "c1",
		Timestamp:      time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
	}

	rec := env.do(t, http.MethodPost, "/api/v1/chat", `{"message":"Who are you?","conversation_id":"c0"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "GREETINGS. *BEEP*", body["message"])
	assert.Equal(t, "c1", body["conversation_id"])
	assert.Equal(t, "2024-03-01T09:30:00Z", body["timestamp"])

	require.NotNil(t, env.turn.got.ConversationID)
	assert.Equal(t, "c0", *env.turn.got.ConversationID)
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		detail string
	}{
		{"bad json", `{"message":`, nil, http.StatusBadRequest, "invalid request body"},
		{"unknown field", `{"msg":"hi"}`, nil, http.StatusBadRequest, "invalid request body"},
		{"empty message", `{"message":"  "}`, nil, http.StatusBadRequest, chat.ErrEmptyMessage.Error()},
		{"too long", `{"message":"` + strings.Repeat("a", 2001) + `"}`, nil, http.StatusBadRequest, chat.ErrMessageTooLong.Error()},
		{"internal error hidden", `{"message":"hi"}`, assert.AnError, http.StatusInternalServerError, msgInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.turn.err = tt.err

			rec := env.do(t, http.MethodPost, "/api/v1/chat", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.detail, decode[map[string]string](t, rec)["detail"])
		})
	}
}

func TestChat_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/chat", `{"message":"`+strings.Repeat("a", 9000)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestServiceHealth(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/v1/chat/health", "/api/v1/conversations/health"} {
		rec := env.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "operational", decode[map[string]string](t, rec)["status"])
	}
}

func TestConversationsCRUD(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/conversations", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[core.Conversation](t, rec)
	require.NotNil(t, created.Title)
	assert.Equal(t, "Main Title 2024-03-01 09:30:00", *created.Title)

	_, err := env.repo.Append(context.Background(), created.ID, core.Message{Role: core.RoleUser, Content: "hello"})
	require.NoError(t, err)

	rec = env.do(t, http.MethodGet, "/api/v1/conversations/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[core.Conversation](t, rec)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hello", got.Messages[0].Content)

	rec = env.do(t, http.MethodGet, "/api/v1/conversations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	summaries := decode[[]core.ConversationSummary](t, rec)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].MessageCount)

	rec = env.do(t, http.MethodGet, "/api/v1/conversations?include_messages=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	full := decode[[]core.Conversation](t, rec)
	require.Len(t, full, 1)
	assert.Len(t, full[0].Messages, 1)

	rec = env.do(t, http.MethodPatch, "/api/v1/conversations/"+created.ID, `{"title":"Tape archive"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	renamed := decode[core.Conversation](t, rec)
	require.NotNil(t, renamed.Title)
	assert.Equal(t, "Tape archive", *renamed.Title)

	rec = env.do(t, http.MethodDelete, "/api/v1/conversations/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Conversation deleted successfully", decode[map[string]string](t, rec)["message"])

	rec = env.do(t, http.MethodGet, "/api/v1/conversations/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConversations_Errors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"negative skip", http.MethodGet, "/api/v1/conversations?skip=-1", "", http.StatusBadRequest},
		{"limit zero", http.MethodGet, "/api/v1/conversations?limit=0", "", http.StatusBadRequest},
		{"limit too high", http.MethodGet, "/api/v1/conversations?limit=101", "", http.StatusBadRequest},
		{"bad bool", http.MethodGet, "/api/v1/conversations?include_messages=maybe", "", http.StatusBadRequest},
		{"get missing", http.MethodGet, "/api/v1/conversations/nope", "", http.StatusNotFound},
		{"patch missing", http.MethodPatch, "/api/v1/conversations/nope", `{"title":"x"}`, http.StatusNotFound},
		{"patch no fields", http.MethodPatch, "/api/v1/conversations/nope", `{}`, http.StatusBadRequest},
		{"patch empty title", http.MethodPatch, "/api/v1/conversations/nope", `{"title":" "}`, http.StatusBadRequest},
		{"patch long title", http.MethodPatch, "/api/v1/conversations/nope", `{"title":"` + strings.Repeat("t", 101) + `"}`, http.StatusBadRequest},
		{"delete missing", http.MethodDelete, "/api/v1/conversations/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestConversations_ListStoreErrorIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.close())

	rec := env.do(t, http.MethodGet, "/api/v1/conversations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[healthResponse](t, rec)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "ok", body.Checks["store"])
	assert.Equal(t, "not_loaded", body.Checks["model"])

	require.NoError(t, env.close())

	rec = env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", decode[healthResponse](t, rec).Checks["store"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/api/v1/chat/health", "")

	rec := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "datacom_http_requests_total")
}
