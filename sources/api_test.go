package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/pevans/eptexts/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apiDoc(i int) map[string]any {
	return map[string]any{
		"title":       map[string]string{"en": fmt.Sprintf("European Parliament resolution of 9 July 2025 on topic %d", i), "fr": "Résolution"},
		"sittingDate": "2025-07-09",
		"identifier":  fmt.Sprintf("P10_TA(2025)%04d", i),
		"manifestation": []map[string]string{
			{"media_type": "application/pdf", "url": fmt.Sprintf("/doc/%d.pdf", i)},
			{"media_type": "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "url": fmt.Sprintf("/doc/%d.docx", i)},
		},
	}
}

// Test helper: serve total documents, limit per request, recording queries
func newAPIServer(t *testing.T, total int, queries *[]url.Values) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*queries = append(*queries, r.URL.Query())
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		data := []any{}
		for i := offset; i < total && i < offset+limit; i++ {
			data = append(data, apiDoc(i))
		}

		w.Header().Set("Content-Type", "application/ld+json")
		json.NewEncoder(w).Encode(map[string]any{"data": data, "meta": map[string]int{"total": total}})
	}))
	t.Cleanup(server.Close)
	return server
}

func testAPIConfig(endpoint string, limit int) scraper.APIConfig {
	cfg := scraper.NewAPIConfig(endpoint)
	cfg.Limit = limit
	return cfg
}

// TestAPIReader_PagesByOffset verifies query parameters and offset paging
func TestAPIReader_PagesByOffset(t *testing.T) {
	var queries []url.Values
	server := newAPIServer(t, 5, &queries)
	reader := NewAPIReader(testAPIConfig(server.URL, 2), Options{})
	ctx := context.Background()

	require.NoError(t, reader.Open(ctx, Filter{StartDate: "2025-07-01", EndDate: "2025-07-31"}))

	var titles []string
	pages := 0
	for {
		items, hasMore, err := reader.NextPage(ctx)
		require.NoError(t, err)
		pages++
		for _, item := range items {
			titles = append(titles, item.Title)
		}
		if !hasMore {
			break
		}
	}

	assert.Equal(t, 3, pages)
	require.Len(t, titles, 5)
	assert.Equal(t, "European Parliament resolution of 9 July 2025 on topic 0", titles[0])

	require.Len(t, queries, 3)
	first := queries[0]
	assert.Equal(t, "2025", first.Get("year"))
	assert.Equal(t, "2025-07-01", first.Get("sitting-date-start"))
	assert.Equal(t, "2025-07-31", first.Get("sitting-date-end"))
	assert.Equal(t, "TEXT_ADOPTED", first.Get("work-type"))
	assert.Equal(t, "application/ld+json", first.Get("format"))
	assert.Equal(t, "2", first.Get("limit"))
	assert.Equal(t, "0", first.Get("offset"))
	assert.Equal(t, "4", queries[2].Get("offset"))
}

// TestAPIReader_RawItemMapping verifies API object field mapping
func TestAPIReader_RawItemMapping(t *testing.T) {
	var queries []url.Values
	server := newAPIServer(t, 1, &queries)
	reader := NewAPIReader(testAPIConfig(server.URL, 10), Options{})
	require.NoError(t, reader.Open(context.Background(), Filter{}))

	items, hasMore, err := reader.NextPage(context.Background())
	require.NoError(t, err)
	assert.False(t, hasMore)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "P10_TA(2025)0000", item.Identifier)
	assert.Equal(t, item.Identifier, item.Text)
	assert.Equal(t, "2025-07-09", item.DateText)
	require.Len(t, item.Links, 2)
	assert.Equal(t, "/doc/0.pdf", item.Links[0].Href)
	assert.Equal(t, "application/pdf", item.Links[0].Text)

	assert.Empty(t, queries[0].Get("year"), "no year without a start date")
}

// TestAPIReader_ZeroItems verifies an empty result terminates cleanly
func TestAPIReader_ZeroItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": []}`)
	}))
	defer server.Close()

	reader := NewAPIReader(testAPIConfig(server.URL, 10), Options{})
	require.NoError(t, reader.Open(context.Background(), Filter{StartDate: "2025-07-01"}))

	items, hasMore, err := reader.NextPage(context.Background())
	require.NoError(t, err)
	assert.False(t, hasMore)
	assert.Empty(t, items)
}

// TestAPIReader_NoTotal verifies paging stops on a short page when the
// endpoint reports no total
func TestAPIReader_NoTotal(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, `{"data": [{"title": "A", "docId": "1"}, {"title": "B", "docId": "2"}]}`)
			return
		}
		fmt.Fprint(w, `{"data": [{"title": "C", "docId": "3"}]}`)
	}))
	defer server.Close()

	reader := NewAPIReader(testAPIConfig(server.URL, 2), Options{})
	require.NoError(t, reader.Open(context.Background(), Filter{}))

	items, hasMore, err := reader.NextPage(context.Background())
	require.NoError(t, err)
	assert.True(t, hasMore)
	assert.Len(t, items, 2)
	assert.Equal(t, "A", items[0].Title, "plain string titles are accepted")
	assert.Equal(t, "1", items[0].Identifier)

	items, hasMore, err = reader.NextPage(context.Background())
	require.NoError(t, err)
	assert.False(t, hasMore)
	assert.Len(t, items, 1)
}

// TestAPIReader_CountIsPageSize verifies a count equal to the page size does
// not end paging, while a count beyond the offset is used as the total
func TestAPIReader_CountIsPageSize(t *testing.T) {
	tests := []struct {
		name       string
		countField func(offset, pageLen int) int
		wantPages  int
	}{
		{name: "count is page size", countField: func(_, pageLen int) int { return pageLen }, wantPages: 3},
		{name: "count is total", countField: func(_, _ int) int { return 5 }, wantPages: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const total = 5
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
				data := []any{}
				for i := offset; i < total && i < offset+2; i++ {
					data = append(data, apiDoc(i))
				}
				json.NewEncoder(w).Encode(map[string]any{"data": data, "count": tt.countField(offset, len(data))})
			}))
			defer server.Close()

			reader := NewAPIReader(testAPIConfig(server.URL, 2), Options{})
			require.NoError(t, reader.Open(context.Background(), Filter{}))

			read := 0
			for hasMore := true; hasMore; {
				items, more, err := reader.NextPage(context.Background())
				require.NoError(t, err)
				read += len(items)
				hasMore = more
			}

			assert.Equal(t, total, read)
			assert.Equal(t, tt.wantPages, calls)
		})
	}
}

// TestAPIReader_MalformedEntrySkipped verifies a bad item only costs itself
func TestAPIReader_MalformedEntrySkipped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"total": 2, "data": [{"title": 42}, {"title": {"fr": "Texte"}, "identifier": "X"}]}`)
	}))
	defer server.Close()

	reader := NewAPIReader(testAPIConfig(server.URL, 10), Options{})
	require.NoError(t, reader.Open(context.Background(), Filter{}))

	items, hasMore, err := reader.NextPage(context.Background())
	require.NoError(t, err)
	assert.False(t, hasMore)
	require.Len(t, items, 1)
	assert.Equal(t, "Texte", items[0].Title, "falls back to any available language")
}

// TestAPIReader_RetrievalErrors verifies status and decoding failures abort
func TestAPIReader_RetrievalErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data": [`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			reader := NewAPIReader(testAPIConfig(server.URL, 10), Options{})
			require.NoError(t, reader.Open(context.Background(), Filter{}))

			_, hasMore, err := reader.NextPage(context.Background())
			assert.False(t, hasMore)
			var retrievalErr *RetrievalError
			require.True(t, errors.As(err, &retrievalErr))
			assert.Equal(t, 1, retrievalErr.Page)
		})
	}
}

// TestLangString_Pick verifies language preference order
func TestLangString_Pick(t *testing.T) {
	l := langString{"de": "Entschließung", "en": "Resolution", "fr": "Résolution"}
	assert.Equal(t, "Résolution", l.pick("fr"))
	assert.Equal(t, "Resolution", l.pick("it"))
	assert.Equal(t, "Entschließung", langString{"de": "Entschließung", "fr": "Résolution"}.pick("it"))
	assert.Empty(t, langString{}.pick("en"))
}
