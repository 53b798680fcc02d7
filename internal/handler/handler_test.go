package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pai-search-go/internal/middleware"
	"pai-search-go/internal/model"
	"pai-search-go/internal/service"
	"pai-search-go/web"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAskService struct {
	calls   int
	lastQ   string
	resp    *model.AskResponse
	err     error
	panicky bool
}

func (f *fakeAskService) Ask(_ context.Context, query string) (*model.AskResponse, error) {
	f.calls++
	f.lastQ = query
	if f.panicky {
		panic("unexpected")
	}
	if query == "" {
		return nil, service.ErrEmptyQuery
	}
	return f.resp, f.err
}

type fakeHistoryService struct {
	recent []model.SearchRecord
	docs   []model.SearchDocument
	err    error
	size   int
}

func (f *fakeHistoryService) RecentSearches(context.Context) []model.SearchRecord {
	if f.recent == nil {
		return []model.SearchRecord{}
	}
	return f.recent
}

func (f *fakeHistoryService) SearchHistory(_ context.Context, _ string, size int) ([]model.SearchDocument, error) {
	f.size = size
	return f.docs, f.err
}

func sampleResponse() *model.AskResponse {
	return &model.AskResponse{
		Results: []model.SearchResult{{Title: "Go", URL: "https://go.dev/doc", Snippet: "Go docs", SourceID: 1}},
		Answer:  "Go is a programming language [1] with GC [7].",
	}
}

func newTestRouter(t *testing.T, ask service.AskService, history service.HistoryService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Recovery())
	tmpl, err := web.Templates()
	require.NoError(t, err)
	r.SetHTMLTemplate(tmpl)

	askHandler := NewAskHandler(ask)
	historyHandler := NewHistoryHandler(history)
	pageHandler := NewPageHandler(ask, history)
	r.POST("/api/ask", askHandler.Ask)
	r.GET("/api/recent-searches", historyHandler.RecentSearches)
	r.GET("/api/search-history", historyHandler.SearchHistory)
	r.GET("/", pageHandler.Index)
	r.GET("/search", pageHandler.Search)
	r.GET("/healthz", Healthz)
	return r
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAsk_BadRequests(t *testing.T) {
	ask := &fakeAskService{resp: sampleResponse()}
	r := newTestRouter(t, ask, &fakeHistoryService{})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"not json", "not json", `{"error":"Invalid request body"}`},
		{"missing query", `{}`, `{"error":"Query is required"}`},
		{"empty query", `{"query":""}`, `{"error":"Query is required"}`},
		{"non-string query", `{"query":42}`, `{"error":"Query is required"}`},
		{"null body", `null`, `{"error":"Query is required"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/ask", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, tt.want, w.Body.String())
		})
	}
	assert.Zero(t, ask.calls, "no downstream calls for invalid input")
}

func TestAsk_OK(t *testing.T) {
	ask := &fakeAskService{resp: sampleResponse()}
	r := newTestRouter(t, ask, &fakeHistoryService{})

	w := do(r, http.MethodPost, "/api/ask", `{"query":"  what is go "}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "  what is go ", ask.lastQ, "query is forwarded untrimmed")
	assert.JSONEq(t, `{
		"results":[{"title":"Go","url":"https://go.dev/doc","snippet":"Go docs","sourceId":1}],
		"answer":"Go is a programming language [1] with GC [7].",
		"visualizationData":null
	}`, w.Body.String())
}

func TestAsk_DegradedIsOK(t *testing.T) {
	ask := &fakeAskService{resp: &model.AskResponse{Results: []model.SearchResult{}, Answer: "later", Degraded: true}}
	r := newTestRouter(t, ask, &fakeHistoryService{})

	w := do(r, http.MethodPost, "/api/ask", `{"query":"q"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"results":[],"answer":"later","visualizationData":null}`, w.Body.String())
}

func TestAsk_UnexpectedErrors(t *testing.T) {
	r := newTestRouter(t, &fakeAskService{err: errors.New("boom")}, &fakeHistoryService{})
	w := do(r, http.MethodPost, "/api/ask", `{"query":"q"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to process request"}`, w.Body.String())

	r = newTestRouter(t, &fakeAskService{panicky: true}, &fakeHistoryService{})
	w = do(r, http.MethodPost, "/api/ask", `{"query":"q"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to process request"}`, w.Body.String())
}

func TestRecentSearches(t *testing.T) {
	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	history := &fakeHistoryService{recent: []model.SearchRecord{{ID: "a", Query: "go", CreatedAt: created}}}
	r := newTestRouter(t, &fakeAskService{}, history)

	w := do(r, http.MethodGet, "/api/recent-searches", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"searches":[{"id":"a","query":"go","created_at":"2026-05-01T12:00:00Z"}]}`, w.Body.String())

	r = newTestRouter(t, &fakeAskService{}, &fakeHistoryService{})
	w = do(r, http.MethodGet, "/api/recent-searches", "")
	assert.JSONEq(t, `{"searches":[]}`, w.Body.String())
}

func TestSearchHistory(t *testing.T) {
	history := &fakeHistoryService{docs: []model.SearchDocument{{ID: "a", Query: "go"}}}
	r := newTestRouter(t, &fakeAskService{}, history)

	w := do(r, http.MethodGet, "/api/search-history?q=go&size=3", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"query":"go"`)
	assert.Equal(t, 3, history.size)

	w = do(r, http.MethodGet, "/api/search-history", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	r = newTestRouter(t, &fakeAskService{}, &fakeHistoryService{err: service.ErrHistoryDisabled})
	w = do(r, http.MethodGet, "/api/search-history?q=go", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"searches":[]}`, w.Body.String())
}

func TestIndexPage(t *testing.T) {
	history := &fakeHistoryService{recent: []model.SearchRecord{{ID: "a", Query: "gdp of france"}}}
	r := newTestRouter(t, &fakeAskService{}, history)

	w := do(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Recent searches")
	assert.Contains(t, w.Body.String(), "gdp of france")
	assert.Contains(t, w.Body.String(), "/search?q=gdp%20of%20france")
}

func TestSearchPage(t *testing.T) {
	r := newTestRouter(t, &fakeAskService{resp: sampleResponse()}, &fakeHistoryService{})

	w := do(r, http.MethodGet, "/search?q=what+is+go", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `id="source-1"`)
	assert.Contains(t, body, `href="#source-1"`)
	assert.Contains(t, body, `<span class="citation inert">7</span>`)
	assert.NotContains(t, body, `href="#source-7"`)
	assert.Contains(t, body, "go.dev")
	assert.NotContains(t, body, "<canvas")
}

func TestSearchPage_WithChart(t *testing.T) {
	resp := sampleResponse()
	resp.VisualizationData = &model.ChartData{
		Type:  model.ChartBar,
		Title: "Top languages",
		Data:  []model.ChartDatum{{Name: "Go", Value: 1}, {Name: "Rust", Value: 2}, {Name: "Zig", Value: 3}},
	}
	r := newTestRouter(t, &fakeAskService{resp: resp}, &fakeHistoryService{})

	w := do(r, http.MethodGet, "/search?q=top+languages", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<canvas id="chart">`)
	assert.Contains(t, w.Body.String(), `"type":"bar"`)
}

func TestSearchPage_EmptyQueryRedirects(t *testing.T) {
	ask := &fakeAskService{}
	r := newTestRouter(t, ask, &fakeHistoryService{})

	w := do(r, http.MethodGet, "/search", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Zero(t, ask.calls)
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t, &fakeAskService{}, &fakeHistoryService{})
	w := do(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
