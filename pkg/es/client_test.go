package es

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"pai-search-go/internal/config"
	"pai-search-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	body   string
}

// fakeES 模拟 Elasticsearch，客户端要求响应带 X-Elastic-Product 头。
func fakeES(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*HistoryStore, *[]recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var reqs []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{method: r.Method, path: r.URL.Path, body: string(body)})
		mu.Unlock()
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(config.ElasticsearchConfig{Addresses: srv.URL})
	require.NoError(t, err)
	return NewHistoryStore(client, "search_history"), &reqs
}

func TestEnsureIndex_CreatesWhenMissing(t *testing.T) {
	store, reqs := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	})

	require.NoError(t, store.EnsureIndex(context.Background()))
	require.Len(t, *reqs, 2)
	assert.Equal(t, http.MethodPut, (*reqs)[1].method)
	assert.Equal(t, "/search_history", (*reqs)[1].path)
	assert.Contains(t, (*reqs)[1].body, `"created_at"`)
}

func TestEnsureIndex_Exists(t *testing.T) {
	store, reqs := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	require.NoError(t, store.EnsureIndex(context.Background()))
	assert.Len(t, *reqs, 1)
}

func TestIndexSearch(t *testing.T) {
	store, reqs := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	doc := model.SearchDocument{ID: "abc", Query: "go", Answer: "Go.", CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	require.NoError(t, store.IndexSearch(context.Background(), doc))
	require.Len(t, *reqs, 1)
	assert.Equal(t, "/search_history/_doc/abc", (*reqs)[0].path)

	var got model.SearchDocument
	require.NoError(t, json.Unmarshal([]byte((*reqs)[0].body), &got))
	assert.Equal(t, doc, got)
}

func TestIndexSearch_Error(t *testing.T) {
	store, _ := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad"}`))
	})
	assert.Error(t, store.IndexSearch(context.Background(), model.SearchDocument{ID: "x"}))
}

func TestSearchHistory(t *testing.T) {
	store, reqs := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hits":{"hits":[
			{"_source":{"id":"b","query":"go generics","answer":"...","created_at":"2026-01-02T00:00:00Z"}},
			{"_source":{"id":"a","query":"go modules","answer":"...","created_at":"2026-01-01T00:00:00Z"}}
		]}}`))
	})

	docs, err := store.SearchHistory(context.Background(), "go", 7)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[0].ID)

	req := (*reqs)[0]
	assert.True(t, strings.HasSuffix(req.path, "/search_history/_search"))
	assert.Contains(t, req.body, `"size":7`)
	assert.Contains(t, req.body, `"multi_match"`)
}

func TestSearchHistory_Error(t *testing.T) {
	store, _ := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"unavailable"}`))
	})
	_, err := store.SearchHistory(context.Background(), "go", 5)
	assert.Error(t, err)
}

func TestNewTransport_VerifiesTLSByDefault(t *testing.T) {
	tr := newTransport(config.ElasticsearchConfig{Addresses: "https://es:9200"})
	if tr.TLSClientConfig != nil {
		assert.False(t, tr.TLSClientConfig.InsecureSkipVerify)
	}

	tr = newTransport(config.ElasticsearchConfig{Addresses: "https://es:9200", InsecureSkipVerify: true})
	require.NotNil(t, tr.TLSClientConfig)
	assert.True(t, tr.TLSClientConfig.InsecureSkipVerify)
}
