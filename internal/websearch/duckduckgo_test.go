package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `
<html><body>
  <div class="result">
    <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fone">First Result</a>
    <div class="result__snippet">Snippet one.</div>
  </div>
  <div class="result">
    <a class="result__a" href="https://example.com/two">Second Result</a>
    <div class="result__snippet">Snippet two.</div>
  </div>
  <div class="result">
    <a class="result__a" href="https://example.com/three">Third Result</a>
    <div class="result__snippet">Snippet three.</div>
  </div>
</body></html>`

func newTestSearcher(t *testing.T, handler http.HandlerFunc) *DuckDuckGo {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	d := NewDuckDuckGo()
	d.baseURL = srv.URL + "/html/"
	return d
}

func TestSearchParsesResults(t *testing.T) {
	var gotQuery string
	d := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Write([]byte(resultsPage))
	})

	results, err := d.Search(context.Background(), "go vector search", 5)
	require.NoError(t, err)
	assert.Equal(t, "go vector search", gotQuery)

	require.Len(t, results, 3)
	assert.Equal(t, "First Result", results[0].Title)
	assert.Equal(t, "https://example.com/one", results[0].URL)
	assert.Equal(t, "Snippet one.", results[0].Snippet)
	assert.Equal(t, "https://example.com/two", results[1].URL)
}

func TestSearchRespectsMaxResults(t *testing.T) {
	d := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(resultsPage))
	})

	results, err := d.Search(context.Background(), "q", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchErrorStatus(t *testing.T) {
	d := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := d.Search(context.Background(), "q", 3)
	assert.Error(t, err)
}

func TestResolveRedirect(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fpage", "https://example.com/page"},
		{"https://example.com/direct", "https://example.com/direct"},
		{"//cdn.example.com/asset", "https://cdn.example.com/asset"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveRedirect(tt.in), tt.in)
	}
}
