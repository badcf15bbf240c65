// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-tracker/internal/httputil"
	"github.com/pdiddy/paper-tracker/pkg/types"
)

func init() {
	// Avoid real pacing and retry sleeps in tests.
	minRequestInterval = time.Millisecond
	httputil.RetryDelay = time.Millisecond
}

// entryXML renders one Atom entry in the API's response shape. The
// first category doubles as the primary category.
func entryXML(id, title, summary, published string, cats ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<entry><id>http://arxiv.org/abs/%s</id>", id)
	fmt.Fprintf(&b, "<title>%s</title><summary>%s</summary>", title, summary)
	fmt.Fprintf(&b, "<published>%s</published>", published)
	b.WriteString("<author><name>Ada Lovelace</name></author>")
	for i, c := range cats {
		if i == 0 {
			fmt.Fprintf(&b, `<arxiv:primary_category term=%q/>`, c)
		}
		fmt.Fprintf(&b, `<category term=%q/>`, c)
	}
	b.WriteString("</entry>")
	return b.String()
}

// validEntry renders an in-range entry matching the test query keywords.
func validEntry(n int, day string) string {
	id := fmt.Sprintf("2601.%05dv1", n)
	title := fmt.Sprintf("Flow Matching Paper %d", n)
	return entryXML(id, title, "We study flow matching objectives.", day+"T08:00:00Z", "cs.LG", "stat.ML")
}

// feedXML wraps entries in an Atom feed with OpenSearch paging elements.
func feedXML(total, start, perPage int, entries ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/" xmlns:arxiv="http://arxiv.org/schemas/atom">`)
	fmt.Fprintf(&b, "<opensearch:totalResults>%d</opensearch:totalResults>", total)
	fmt.Fprintf(&b, "<opensearch:startIndex>%d</opensearch:startIndex>", start)
	fmt.Fprintf(&b, "<opensearch:itemsPerPage>%d</opensearch:itemsPerPage>", perPage)
	for _, e := range entries {
		b.WriteString(e)
	}
	b.WriteString("</feed>")
	return b.String()
}

// fakeAPI serves a fixed entry list in pages, honoring the start and
// max_results request parameters, and records every request's query.
type fakeAPI struct {
	entries []string

	mu      sync.Mutex
	queries []url.Values
}

func (f *fakeAPI) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.queries = append(f.queries, r.URL.Query())
		f.mu.Unlock()

		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		count, _ := strconv.Atoi(r.URL.Query().Get("max_results"))
		end := start + count
		if start > len(f.entries) {
			start = len(f.entries)
		}
		if end > len(f.entries) {
			end = len(f.entries)
		}

		w.Header().Set("Content-Type", "application/atom+xml; charset=UTF-8")
		fmt.Fprint(w, feedXML(len(f.entries), start, count, f.entries[start:end]...))
	}
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func (f *fakeAPI) query(i int) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[i]
}

// serveAPI points the package at an httptest server for the duration of
// the test.
func serveAPI(t *testing.T, h http.Handler) {
	t.Helper()
	ts := httptest.NewServer(h)
	old := apiBase
	apiBase = ts.URL
	t.Cleanup(func() {
		apiBase = old
		ts.Close()
	})
}

func testClient(pageSize int) *Client {
	return NewClient(types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   5 * time.Second,
			UserAgent: "paper-tracker-test/0.1",
		},
		PageSize:        pageSize,
		MaxRetries:      1,
		RequestInterval: time.Millisecond,
	})
}

func testQuery(maxResults int) Query {
	return Query{
		Keywords:   []string{"flow matching"},
		Start:      date(2026, 1, 1),
		End:        date(2026, 1, 5),
		MaxResults: maxResults,
	}
}

func TestFetchSinglePage(t *testing.T) {
	api := &fakeAPI{entries: []string{
		validEntry(1, "2026-01-02"),
		validEntry(2, "2026-01-03"),
		validEntry(3, "2026-01-04"),
	}}
	serveAPI(t, api.handler())

	var buf bytes.Buffer
	res, err := testClient(100).Fetch(context.Background(), testQuery(10), &buf)
	require.NoError(t, err)

	assert.Equal(t, 1, api.calls())
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, 3, res.ServerTotal)
	assert.False(t, res.Partial)
	assert.NoError(t, res.Err)

	require.Len(t, res.Papers, 3)
	assert.Equal(t, "2601.00001", res.Papers[0].ID)
	assert.Equal(t, "Flow Matching Paper 1", res.Papers[0].Title)
	assert.Equal(t, []string{"Ada Lovelace"}, res.Papers[0].Authors)
}

func TestFetchPaginatesUntilShortPage(t *testing.T) {
	api := &fakeAPI{entries: []string{
		validEntry(1, "2026-01-01"),
		validEntry(2, "2026-01-02"),
		validEntry(3, "2026-01-03"),
		validEntry(4, "2026-01-04"),
		validEntry(5, "2026-01-05"),
	}}
	serveAPI(t, api.handler())

	var buf bytes.Buffer
	res, err := testClient(2).Fetch(context.Background(), testQuery(100), &buf)
	require.NoError(t, err)

	require.Len(t, res.Papers, 5)
	assert.Equal(t, 3, res.Pages)

	// The offset advances by the page size on each request.
	require.Equal(t, 3, api.calls())
	assert.Equal(t, "0", api.query(0).Get("start"))
	assert.Equal(t, "2", api.query(1).Get("start"))
	assert.Equal(t, "4", api.query(2).Get("start"))
	assert.Equal(t, "2", api.query(0).Get("max_results"))
}

func TestFetchStopsAtMaxResults(t *testing.T) {
	api := &fakeAPI{entries: []string{
		validEntry(1, "2026-01-01"),
		validEntry(2, "2026-01-02"),
		validEntry(3, "2026-01-03"),
		validEntry(4, "2026-01-04"),
		validEntry(5, "2026-01-04"),
		validEntry(6, "2026-01-05"),
	}}
	serveAPI(t, api.handler())

	var buf bytes.Buffer
	res, err := testClient(2).Fetch(context.Background(), testQuery(3), &buf)
	require.NoError(t, err)

	require.Len(t, res.Papers, 3)
	assert.Equal(t, []string{"2601.00001", "2601.00002", "2601.00003"},
		[]string{res.Papers[0].ID, res.Papers[1].ID, res.Papers[2].ID})

	// No request is issued past the page that filled the cap.
	assert.Equal(t, 2, api.calls())
}

func TestFetchEmptyResultSetIsSuccess(t *testing.T) {
	api := &fakeAPI{}
	serveAPI(t, api.handler())

	var buf bytes.Buffer
	res, err := testClient(100).Fetch(context.Background(), testQuery(10), &buf)
	require.NoError(t, err)

	assert.Empty(t, res.Papers)
	assert.False(t, res.Partial)
	assert.Equal(t, 1, api.calls())
	assert.Contains(t, buf.String(), "No more results")
}

func TestFetchCrossPageDuplicateFirstWins(t *testing.T) {
	// The same ID appears on two pages with different titles; the first
	// occurrence must survive.
	dup1 := entryXML("2601.00001v1", "First Version", "We study flow matching.", "2026-01-02T08:00:00Z", "cs.LG")
	dup2 := entryXML("2601.00001v2", "Second Version", "We study flow matching.", "2026-01-02T08:00:00Z", "cs.LG")
	api := &fakeAPI{entries: []string{
		dup1,
		validEntry(2, "2026-01-03"),
		dup2,
		validEntry(3, "2026-01-04"),
	}}
	serveAPI(t, api.handler())

	var buf bytes.Buffer
	res, err := testClient(2).Fetch(context.Background(), testQuery(100), &buf)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Duplicates)
	require.Len(t, res.Papers, 3)
	assert.Equal(t, "First Version", res.Papers[0].Title)
}

func TestFetchRefiltersDateAndCategory(t *testing.T) {
	api := &fakeAPI{entries: []string{
		// Outside the requested range despite the server-side filter.
		entryXML("2512.00001v1", "Early Flow Matching", "We study flow matching.", "2025-12-28T10:00:00Z", "cs.LG"),
		// No allow-listed category.
		entryXML("2601.00002v1", "Optical Flow Matching", "We study flow matching in optics.", "2026-01-03T10:00:00Z", "physics.optics"),
		// Neither title nor abstract mentions a keyword.
		entryXML("2601.00003v1", "Graph Networks", "We study message passing.", "2026-01-03T11:00:00Z", "cs.LG"),
		validEntry(4, "2026-01-04"),
	}}
	serveAPI(t, api.handler())

	var buf bytes.Buffer
	res, err := testClient(100).Fetch(context.Background(), testQuery(10), &buf)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Filtered)
	require.Len(t, res.Papers, 1)
	assert.Equal(t, "2601.00004", res.Papers[0].ID)
}

func TestFetchSkipsEntriesMissingFields(t *testing.T) {
	noPublished := "<entry><id>http://arxiv.org/abs/2601.00001v1</id>" +
		"<title>Flow Matching Paper</title><summary>We study flow matching.</summary>" +
		`<author><name>Ada Lovelace</name></author><category term="cs.LG"/></entry>`
	api := &fakeAPI{entries: []string{noPublished, validEntry(2, "2026-01-03")}}
	serveAPI(t, api.handler())

	var buf bytes.Buffer
	res, err := testClient(100).Fetch(context.Background(), testQuery(10), &buf)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Papers, 1)
	assert.Contains(t, buf.String(), "warning: skipping entry")
}

func TestFetchSortsAscendingByPublished(t *testing.T) {
	// The feed arrives out of order; the contract is ascending.
	api := &fakeAPI{entries: []string{
		validEntry(1, "2026-01-04"),
		validEntry(2, "2026-01-02"),
		validEntry(3, "2026-01-03"),
	}}
	serveAPI(t, api.handler())

	var buf bytes.Buffer
	res, err := testClient(100).Fetch(context.Background(), testQuery(10), &buf)
	require.NoError(t, err)

	require.Len(t, res.Papers, 3)
	for i := 1; i < len(res.Papers); i++ {
		assert.False(t, res.Papers[i].Published.Before(res.Papers[i-1].Published),
			"papers[%d] published before papers[%d]", i, i-1)
	}
}

func TestFetchPartialOnLaterPageFailure(t *testing.T) {
	page1 := feedXML(4, 0, 2,
		validEntry(1, "2026-01-02"),
		validEntry(2, "2026-01-03"))

	var calls int32
	serveAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Query().Get("start") == "0" {
			fmt.Fprint(w, page1)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))

	var buf bytes.Buffer
	res, err := testClient(2).Fetch(context.Background(), testQuery(100), &buf)
	require.NoError(t, err)

	assert.True(t, res.Partial)
	assert.Error(t, res.Err)
	require.Len(t, res.Papers, 2)
	assert.Contains(t, buf.String(), "abandoning page at offset 2")

	// Page one, then the failing page and its single retry.
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchFirstPageFailureIsFatal(t *testing.T) {
	var calls int32
	serveAPI(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	var buf bytes.Buffer
	res, err := testClient(2).Fetch(context.Background(), testQuery(10), &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching first page")
	assert.Empty(t, res.Papers)

	// Initial attempt plus the configured single retry.
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchRetriesMalformedFeed(t *testing.T) {
	// The API occasionally serves a truncated body with a 200 status;
	// the page gets one decode retry.
	page := feedXML(1, 0, 100, validEntry(1, "2026-01-03"))

	var calls int32
	serveAPI(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			fmt.Fprint(w, "<feed><entry>truncated")
			return
		}
		fmt.Fprint(w, page)
	}))

	var buf bytes.Buffer
	res, err := testClient(100).Fetch(context.Background(), testQuery(10), &buf)
	require.NoError(t, err)

	require.Len(t, res.Papers, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchValidatesBeforeNetwork(t *testing.T) {
	api := &fakeAPI{}
	serveAPI(t, api.handler())

	var buf bytes.Buffer
	_, err := testClient(100).Fetch(context.Background(), Query{}, &buf)
	require.Error(t, err)
	assert.Equal(t, 0, api.calls(), "invalid query must not reach the network")
}

func TestFetchRequestParameters(t *testing.T) {
	api := &fakeAPI{entries: []string{validEntry(1, "2026-01-02")}}
	serveAPI(t, api.handler())

	var buf bytes.Buffer
	_, err := testClient(100).Fetch(context.Background(), testQuery(10), &buf)
	require.NoError(t, err)

	q := api.query(0)
	assert.Equal(t, "submittedDate", q.Get("sortBy"))
	assert.Equal(t, "ascending", q.Get("sortOrder"))
	assert.Equal(t, "0", q.Get("start"))
	assert.Equal(t, "100", q.Get("max_results"))

	expr := q.Get("search_query")
	assert.Contains(t, expr, `ti:"flow matching" OR abs:"flow matching"`)
	assert.Contains(t, expr, "cat:cs.LG")
	assert.Contains(t, expr, "submittedDate:[202601010000 TO 202601052359]")
}

func TestFetchClampsPageSizeToServerCeiling(t *testing.T) {
	api := &fakeAPI{entries: []string{validEntry(1, "2026-01-02")}}
	serveAPI(t, api.handler())

	client := NewClient(types.FetchConfig{PageSize: 5000, RequestInterval: time.Millisecond})
	var buf bytes.Buffer
	_, err := client.Fetch(context.Background(), testQuery(10), &buf)
	require.NoError(t, err)

	assert.Equal(t, "2000", api.query(0).Get("max_results"))
}

func TestFetchPacesRequests(t *testing.T) {
	oldFloor := minRequestInterval
	minRequestInterval = 40 * time.Millisecond
	defer func() { minRequestInterval = oldFloor }()

	api := &fakeAPI{entries: []string{
		validEntry(1, "2026-01-01"),
		validEntry(2, "2026-01-02"),
		validEntry(3, "2026-01-03"),
	}}
	serveAPI(t, api.handler())

	// Intervals below the floor are raised to it.
	client := NewClient(types.FetchConfig{PageSize: 2, RequestInterval: time.Nanosecond})

	var buf bytes.Buffer
	startedAt := time.Now()
	res, err := client.Fetch(context.Background(), testQuery(100), &buf)
	require.NoError(t, err)
	elapsed := time.Since(startedAt)

	require.Len(t, res.Papers, 3)
	require.Equal(t, 2, api.calls())
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond,
		"second request should wait out the pacing interval")
}

// The spec's reference scenario: a bounded flow-matching search over a
// five-day window.
func TestFetchFlowMatchingScenario(t *testing.T) {
	days := []string{"2026-01-01", "2026-01-02", "2026-01-03", "2026-01-04", "2026-01-05"}
	var entries []string
	for i := 0; i < 12; i++ {
		entries = append(entries, validEntry(i+1, days[i%len(days)]))
	}
	// Ineligible entries mixed in: out of range and off-topic.
	entries = append(entries,
		entryXML("2512.99901v1", "Flow Matching Prehistory", "We study flow matching.", "2025-12-20T08:00:00Z", "cs.LG"),
		entryXML("2601.99902v1", "Protein Folding", "We study folding.", "2026-01-03T08:00:00Z", "q-bio.BM"),
	)
	api := &fakeAPI{entries: entries}
	serveAPI(t, api.handler())

	var buf bytes.Buffer
	res, err := testClient(5).Fetch(context.Background(), testQuery(10), &buf)
	require.NoError(t, err)

	require.Len(t, res.Papers, 10, "max-results cap")
	start, end := date(2026, 1, 1), date(2026, 1, 5)
	for _, p := range res.Papers {
		assert.False(t, p.Published.Before(start) || p.Published.After(end.Add(24*time.Hour)),
			"%s published %v outside range", p.ID, p.Published)
		text := strings.ToLower(p.Title + " " + p.Abstract)
		assert.Contains(t, text, "flow matching")
	}
	for i := 1; i < len(res.Papers); i++ {
		assert.False(t, res.Papers[i].Published.Before(res.Papers[i-1].Published))
	}
}
