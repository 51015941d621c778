package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"realty/internal/model"
	"realty/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type fakeConversation struct {
	answer   string
	err      error
	sessions []string
	reset    []string
	history  map[string][]model.Turn
	intent   model.Intent
	context  string
	thinking string
}

func (f *fakeConversation) Ask(ctx context.Context, sessionID, text string) (string, error) {
	f.sessions = append(f.sessions, sessionID)
	return f.answer, f.err
}

func (f *fakeConversation) AskStream(ctx context.Context, sessionID, text string, callback service.AskEventCallback) (string, error) {
	f.sessions = append(f.sessions, sessionID)
	if err := callback("intent", f.intent); err != nil {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	if f.thinking != "" {
		if err := callback("thinking", map[string]any{"content": f.thinking}); err != nil {
			return "", err
		}
	}
	for _, part := range strings.SplitAfter(f.answer, " ") {
		if err := callback("content", map[string]any{"content": part}); err != nil {
			return "", err
		}
	}
	return f.answer, nil
}

func (f *fakeConversation) Reset(ctx context.Context, sessionID string) error {
	f.reset = append(f.reset, sessionID)
	return f.err
}

func (f *fakeConversation) History(ctx context.Context, sessionID string) ([]model.Turn, error) {
	return f.history[sessionID], f.err
}

func (f *fakeConversation) Classify(ctx context.Context, text string) model.Intent {
	return f.intent
}

func (f *fakeConversation) Retrieve(ctx context.Context, intent model.Intent, text string) (string, error) {
	return f.context, f.err
}

type fakeIndex struct {
	report model.IndexBuildReport
	count  int
	err    error
}

func (f *fakeIndex) Build(ctx context.Context) (model.IndexBuildReport, error) { return f.report, f.err }
func (f *fakeIndex) Count(ctx context.Context) (int, error) { return f.count, f.err }

type fakeStats struct {
	stats    *model.MarketStats
	overview []model.AggregateStat
	limits   []int
	err      error
}

func (f *fakeStats) MarketStats(ctx context.Context) (*model.MarketStats, error) {
	return f.stats, f.err
}

func (f *fakeStats) DistrictOverview(ctx context.Context, limit int) ([]model.AggregateStat, error) {
	f.limits = append(f.limits, limit)
	return f.overview, f.err
}

func (f *fakeStats) CompareDistricts(ctx context.Context, first, second string) (*model.DistrictComparison, error) {
	return &model.DistrictComparison{First: first, Second: second}, f.err
}

func newTestRouter(conv Conversation, index IndexBuilder, stats StatsSource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	chat := NewChatHandler(conv)
	idx := NewIndexHandler(index)
	st := NewStatsHandler(stats, 10, 20)

	api := router.Group("/api/v1")
	api.POST("/chat", chat.Chat)
	api.POST("/chat/stream", chat.ChatStream)
	api.POST("/chat/reset", chat.Reset)
	api.GET("/chat/:session/history", chat.History)
	api.POST("/intent", chat.Classify)
	api.POST("/retrieve", chat.Retrieve)
	api.POST("/index/build", idx.Build)
	api.GET("/index", idx.Status)
	api.GET("/stats", st.Market)
	api.GET("/stats/districts", st.Districts)
	api.GET("/stats/compare", st.Compare)
	return router
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestChat(t *testing.T) {
	conv := &fakeConversation{answer: "Praha 8 is cheapest."}
	router := newTestRouter(conv, &fakeIndex{}, &fakeStats{})

	w := do(router, http.MethodPost, "/api/v1/chat", `{"session_id":"abc","message":"cheapest?"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "abc", resp.SessionID)
	assert.Equal(t, "Praha 8 is cheapest.", resp.Answer)

	w = do(router, http.MethodPost, "/api/v1/chat", `{"message":"again"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"abc", service.DefaultSessionID}, conv.sessions)
}

func TestChat_BadRequest(t *testing.T) {
	router := newTestRouter(&fakeConversation{}, &fakeIndex{}, &fakeStats{})

	w := do(router, http.MethodPost, "/api/v1/chat", `{"session_id":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, "/api/v1/chat", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChat_ErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{errBoom, http.StatusInternalServerError},
		{fmt.Errorf("%w: %w", service.ErrGenerationFailed, errBoom), http.StatusBadGateway},
		{fmt.Errorf("%w: %w", service.ErrGenerationFailed, service.ErrAIDisabled), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			router := newTestRouter(&fakeConversation{err: tt.err}, &fakeIndex{}, &fakeStats{})
			w := do(router, http.MethodPost, "/api/v1/chat", `{"message":"hi"}`)
			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestChatStream(t *testing.T) {
	conv := &fakeConversation{answer: "two words", intent: model.Intent{Type: model.IntentStats}, thinking: "market first"}
	router := newTestRouter(conv, &fakeIndex{}, &fakeStats{})

	w := do(router, http.MethodPost, "/api/v1/chat/stream", `{"session_id":"s","message":"stats?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")

	body := w.Body.String()
	var events []string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "event: ") {
			events = append(events, strings.TrimPrefix(line, "event: "))
		}
	}
	assert.Equal(t, []string{"start", "intent", "thinking", "content", "content", "done"}, events)
	assert.Contains(t, body, `data: {"type":"stats"}`)
	assert.Contains(t, body, `data: {"content":"market first"}`)
	assert.Contains(t, body, `"answer":"two words"`)
}

func TestChatStream_Error(t *testing.T) {
	router := newTestRouter(&fakeConversation{err: errBoom}, &fakeIndex{}, &fakeStats{})

	w := do(router, http.MethodPost, "/api/v1/chat/stream", `{"message":"x"}`)
	body := w.Body.String()
	assert.Contains(t, body, "event: error\ndata: {\"error\":\"boom\"}")
	assert.NotContains(t, body, "event: done")
}

func TestReset(t *testing.T) {
	conv := &fakeConversation{}
	router := newTestRouter(conv, &fakeIndex{}, &fakeStats{})

	w := do(router, http.MethodPost, "/api/v1/chat/reset", `{"session_id":"abc"}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(router, http.MethodPost, "/api/v1/chat/reset", "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []string{"abc", service.DefaultSessionID}, conv.reset)
}

func TestHistory(t *testing.T) {
	conv := &fakeConversation{history: map[string][]model.Turn{
		"abc": {{Role: model.RoleUser, Text: "q"}, {Role: model.RoleModel, Text: "a"}},
	}}
	router := newTestRouter(conv, &fakeIndex{}, &fakeStats{})

	w := do(router, http.MethodGet, "/api/v1/chat/abc/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp model.HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Turns, 2)

	w = do(router, http.MethodGet, "/api/v1/chat/unknown/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"session_id":"unknown","turns":[]}`, w.Body.String())
}

func TestClassifyAndRetrieve(t *testing.T) {
	conv := &fakeConversation{
		intent:  model.Intent{Type: model.IntentCompare, District: strPtr("Praha 1")},
		context: "DISTRICT COMPARISON:",
	}
	router := newTestRouter(conv, &fakeIndex{}, &fakeStats{})

	w := do(router, http.MethodPost, "/api/v1/intent", `{"message":"Praha 1 vs Praha 8"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"type":"compare","district":"Praha 1"}`, w.Body.String())

	w = do(router, http.MethodPost, "/api/v1/retrieve", `{"message":"Praha 1 vs Praha 8"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"intent":{"type":"compare","district":"Praha 1"},"context":"DISTRICT COMPARISON:"}`, w.Body.String())
}

func TestIndex(t *testing.T) {
	index := &fakeIndex{report: model.IndexBuildReport{Total: 10, Existing: 4, Inserted: 6}, count: 10}
	router := newTestRouter(&fakeConversation{}, index, &fakeStats{})

	w := do(router, http.MethodPost, "/api/v1/index/build", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total":10,"existing":4,"inserted":6}`, w.Body.String())

	w = do(router, http.MethodGet, "/api/v1/index", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"documents":10}`, w.Body.String())

	index.err = service.ErrAIDisabled
	w = do(router, http.MethodPost, "/api/v1/index/build", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStats(t *testing.T) {
	stats := &fakeStats{
		stats:    &model.MarketStats{Rent: model.AggregateStat{Avg: 25000, Min: 2500, Max: 90000, Count: 3}},
		overview: []model.AggregateStat{{Key: "Praha 1", Avg: 45000, Min: 20000, Max: 90000, Count: 2}},
	}
	router := newTestRouter(&fakeConversation{}, &fakeIndex{}, stats)

	w := do(router, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"rent":{"avg":25000,"min":2500,"max":90000,"count":3},"sell":{"avg":0,"min":0,"max":0,"count":0}}`, w.Body.String())

	w = do(router, http.MethodGet, "/api/v1/stats/districts", "")
	require.Equal(t, http.StatusOK, w.Code)
	w = do(router, http.MethodGet, "/api/v1/stats/districts?limit=50", "")
	require.Equal(t, http.StatusOK, w.Code)
	w = do(router, http.MethodGet, "/api/v1/stats/districts?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []int{10, 20}, stats.limits)

	w = do(router, http.MethodGet, "/api/v1/stats/compare?first=Praha+1&second=Praha+8", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"first":"Praha 1","second":"Praha 8"`)

	stats.err = errBoom
	w = do(router, http.MethodGet, "/api/v1/stats", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func strPtr(s string) *string { return &s }
