package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/pevans/eptexts/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingPage1 = `<html><body>
<form class="search-options"><input type="date" name="dateFrom"></form>
<ul class="results">
  <li>
    <a href="/doceo/document/TA-10-2025-0123_EN.html">European Parliament resolution of 9 July 2025 on X (2023/0123(COD))</a>
    <span class="date">09-Jul-2025</span> P10_TA(2025)0123
    <a href="/doceo/document/TA-10-2025-0123_EN.pdf">PDF</a>
    <a href="/doceo/document/TA-10-2025-0123_EN.docx">W</a>
  </li>
  <li>   </li>
  <li><a href="/doc/2">Second
      entry</a></li>
</ul>
<a class="next" href="?page=2">Next</a>
</body></html>`

const listingPage2 = `<html><body>
<ul class="results">
  <li><a href="/doc/3">Third entry</a></li>
</ul>
<ul class="pagination"><li class="disabled"><a class="next" href="?page=3">Next</a></li></ul>
</body></html>`

// Test helper: serve the two-page listing, recording query strings
func newListingServer(t *testing.T, queries *[]string) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*queries = append(*queries, r.URL.RawQuery)
		switch r.URL.Query().Get("page") {
		case "":
			fmt.Fprint(w, listingPage1)
		case "2":
			fmt.Fprint(w, listingPage2)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func testListingConfig(url string) scraper.ListingConfig {
	cfg := scraper.NewListingConfig(url)
	cfg.DateSelector = "span.date"
	return cfg
}

// TestHTMLReader_Paginates verifies entries, filter params and pagination
func TestHTMLReader_Paginates(t *testing.T) {
	var queries []string
	server := newListingServer(t, &queries)
	reader := NewHTMLReader(testListingConfig(server.URL+"/texts"), Options{Timeout: time.Second})
	ctx := context.Background()

	require.NoError(t, reader.Open(ctx, Filter{StartDate: "2025-07-01"}))

	items, hasMore, err := reader.NextPage(ctx)
	require.NoError(t, err)
	assert.True(t, hasMore)
	require.Len(t, items, 2, "blank entry should be skipped")
	assert.Equal(t, "European Parliament resolution of 9 July 2025 on X (2023/0123(COD))", items[0].Title)
	assert.Equal(t, "09-Jul-2025", items[0].DateText)
	assert.Contains(t, items[0].Text, "P10_TA(2025)0123")
	require.Len(t, items[0].Links, 3)
	assert.Equal(t, "/doceo/document/TA-10-2025-0123_EN.pdf", items[0].Links[1].Href)
	assert.Equal(t, "W", items[0].Links[2].Text)
	assert.Equal(t, "Second entry", items[1].Title)

	items, hasMore, err = reader.NextPage(ctx)
	require.NoError(t, err)
	assert.False(t, hasMore, "disabled next control ends pagination")
	require.Len(t, items, 1)
	assert.Equal(t, "Third entry", items[0].Title)

	items, hasMore, err = reader.NextPage(ctx)
	require.NoError(t, err)
	assert.False(t, hasMore)
	assert.Empty(t, items)

	require.Len(t, queries, 2)
	assert.Equal(t, "dateFrom=01%2F07%2F2025", queries[0])
	assert.Equal(t, "dateFrom=01%2F07%2F2025&page=2", queries[1], "filter must survive pagination")
}

// TestHTMLReader_FilterKeptOnEveryPage verifies both date bounds are sent
// with each page, whether the next link carries them or not
func TestHTMLReader_FilterKeptOnEveryPage(t *testing.T) {
	var queries []url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query())
		switch r.URL.Query().Get("page") {
		case "":
			fmt.Fprint(w, `<ul class="results"><li><a href="/a">A</a></li></ul><a class="next" href="?page=2">Next</a>`)
		case "2":
			// Link already carrying a filter keeps its own value
			io.WriteString(w, `<ul class="results"><li><a href="/b">B</a></li></ul><a class="next" href="?page=3&dateTo=15%2F07%2F2025">Next</a>`)
		default:
			fmt.Fprint(w, `<ul class="results"><li><a href="/c">C</a></li></ul>`)
		}
	}))
	defer server.Close()

	reader := NewHTMLReader(testListingConfig(server.URL), Options{Timeout: time.Second})
	ctx := context.Background()
	require.NoError(t, reader.Open(ctx, Filter{StartDate: "2025-07-01", EndDate: "2025-07-31"}))

	for hasMore := true; hasMore; {
		var err error
		_, hasMore, err = reader.NextPage(ctx)
		require.NoError(t, err)
	}

	require.Len(t, queries, 3)
	for i, q := range queries {
		assert.Equal(t, "01/07/2025", q.Get("dateFrom"), "page %d", i+1)
	}
	assert.Equal(t, "31/07/2025", queries[0].Get("dateTo"))
	assert.Equal(t, "31/07/2025", queries[1].Get("dateTo"))
	assert.Equal(t, "15/07/2025", queries[2].Get("dateTo"))
	assert.Equal(t, "2", queries[1].Get("page"))
	assert.Equal(t, "3", queries[2].Get("page"))
}

// TestHTMLReader_PerPage verifies the per-page entry cap
func TestHTMLReader_PerPage(t *testing.T) {
	var queries []string
	server := newListingServer(t, &queries)
	cfg := testListingConfig(server.URL)
	cfg.PerPage = 1

	reader := NewHTMLReader(cfg, Options{})
	require.NoError(t, reader.Open(context.Background(), Filter{}))

	items, _, err := reader.NextPage(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

// TestHTMLReader_MissingAffordances verifies fallback to a single page when
// the container or pagination control is absent
func TestHTMLReader_MissingAffordances(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantItems int
	}{
		{"no container", `<html><body><p>Maintenance</p></body></html>`, 0},
		{"no pagination", `<html><body><ul class="results"><li><a href="/a">A</a></li></ul></body></html>`, 1},
		{"self link", `<html><body><ul class="results"><li><a href="/a">A</a></li></ul><a class="next" href="">Next</a></body></html>`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			cfg := testListingConfig(server.URL)
			cfg.PageParam = ""
			reader := NewHTMLReader(cfg, Options{})
			require.NoError(t, reader.Open(context.Background(), Filter{StartDate: "2025-07-01"}))

			items, hasMore, err := reader.NextPage(context.Background())
			require.NoError(t, err)
			assert.False(t, hasMore)
			assert.Len(t, items, tt.wantItems)
		})
	}
}

// TestHTMLReader_PageParamFallback verifies paging by query parameter when
// the next control has no href
func TestHTMLReader_PageParamFallback(t *testing.T) {
	var pages []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages = append(pages, r.URL.Query().Get("page"))
		next := `<button class="next">More</button>`
		if r.URL.Query().Get("page") == "2" {
			next = `<button class="next" disabled>More</button>`
		}
		fmt.Fprintf(w, `<ul class="results"><li><a href="/a">A</a></li></ul>%s`, next)
	}))
	defer server.Close()

	cfg := testListingConfig(server.URL)
	cfg.NextSelector = "button.next"
	reader := NewHTMLReader(cfg, Options{})
	require.NoError(t, reader.Open(context.Background(), Filter{}))

	_, hasMore, err := reader.NextPage(context.Background())
	require.NoError(t, err)
	assert.True(t, hasMore)

	_, hasMore, err = reader.NextPage(context.Background())
	require.NoError(t, err)
	assert.False(t, hasMore)
	assert.Equal(t, []string{"", "2"}, pages)
}

// TestHTMLReader_RetrievalError verifies non-200 pages abort the read
func TestHTMLReader_RetrievalError(t *testing.T) {
	var queries []string
	server := newListingServer(t, &queries)
	reader := NewHTMLReader(testListingConfig(server.URL+"/?page=3"), Options{})
	require.NoError(t, reader.Open(context.Background(), Filter{}))

	items, hasMore, err := reader.NextPage(context.Background())
	assert.Nil(t, items)
	assert.False(t, hasMore)

	var retrievalErr *RetrievalError
	require.True(t, errors.As(err, &retrievalErr))
	assert.Equal(t, 1, retrievalErr.Page)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)

	// Exhausted after a failure
	items, hasMore, err = reader.NextPage(context.Background())
	assert.NoError(t, err)
	assert.False(t, hasMore)
	assert.Empty(t, items)
}

// TestHTMLReader_Timeout verifies slow pages surface as retrieval errors
func TestHTMLReader_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	reader := NewHTMLReader(testListingConfig(server.URL), Options{Timeout: 50 * time.Millisecond})
	require.NoError(t, reader.Open(context.Background(), Filter{}))

	_, _, err := reader.NextPage(context.Background())
	var retrievalErr *RetrievalError
	require.True(t, errors.As(err, &retrievalErr))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestHTMLReader_OpenErrors verifies configuration and ordering errors
func TestHTMLReader_OpenErrors(t *testing.T) {
	reader := NewHTMLReader(testListingConfig("http://example.invalid"), Options{})

	_, _, err := reader.NextPage(context.Background())
	assert.ErrorIs(t, err, ErrNotOpened)

	err = reader.Open(context.Background(), Filter{StartDate: "07/2025"})
	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}
