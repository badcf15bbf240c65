// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package arxiv queries the arXiv search API and returns normalized
// paper records, paging through results with rate-limit-aware pacing.
package arxiv

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-tracker/internal/httputil"
	"github.com/pdiddy/paper-tracker/pkg/types"
)

// apiBase is the arXiv search endpoint. Declared as a var so tests can
// substitute an httptest server.
var apiBase = "https://export.arxiv.org/api/query"

// minRequestInterval is the floor on the pause between consecutive API
// requests, per the arXiv API terms of use. Configured intervals below
// the floor are raised to it. Tests lower this to avoid real sleeps.
var minRequestInterval = 3 * time.Second

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "paper-tracker/0.1"
	defaultPageSize  = 100

	// maxPageSize is the per-request ceiling documented by the API.
	maxPageSize = 2000
)

// errBadFeed marks a response body that could not be decoded as Atom.
var errBadFeed = errors.New("malformed feed")

// Client fetches paper metadata from the arXiv API. All requests made
// through one Client share a single rate limiter, so calls are paced
// even across successive fetch runs.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	cfg     types.FetchConfig
}

// NewClient builds a Client from cfg, filling unset fields with the
// documented defaults and clamping the request interval to the
// terms-of-use floor.
func NewClient(cfg types.FetchConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.PageSize > maxPageSize {
		cfg.PageSize = maxPageSize
	}
	if cfg.RequestInterval < minRequestInterval {
		cfg.RequestInterval = minRequestInterval
	}

	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(cfg.RequestInterval), 1),
		cfg:     cfg,
	}
}

// Result holds the records and statistics from one fetch run.
type Result struct {
	// Papers is ordered by Published ascending and capped at the query's
	// MaxResults.
	Papers []types.Paper

	// Partial is true when a page failed after retries and Papers holds
	// only what was collected before the failure.
	Partial bool

	// Err is the page failure that truncated a partial fetch. Nil when
	// the fetch ran to completion.
	Err error

	// Pages counts successfully fetched pages.
	Pages int

	// ServerTotal is the total match count reported by the server on the
	// first page, before client-side filtering.
	ServerTotal int

	// Skipped counts entries dropped for missing required fields.
	Skipped int

	// Filtered counts entries dropped by the client-side date, category,
	// and keyword re-checks.
	Filtered int

	// Duplicates counts repeat IDs dropped within the run. Later pages
	// never override the first occurrence.
	Duplicates int
}

// Fetch pages through the API and collects every record matching the
// query, writing progress to w. Pagination stops on a short or empty
// page or once MaxResults records are collected. A page failure after
// the first marks the result partial instead of failing the run; a
// first-page failure is returned as an error.
func (c *Client) Fetch(ctx context.Context, q Query, w io.Writer) (Result, error) {
	if err := q.Validate(); err != nil {
		return Result{}, err
	}

	searchQuery := buildSearchQuery(q)
	fmt.Fprintf(w, "Searching keywords: %s\n", strings.Join(q.Keywords, ", "))
	fmt.Fprintf(w, "Search fields: %s\n", SearchFields())
	fmt.Fprintf(w, "Date range: %s to %s\n", q.Start.Format(dateFmt), q.End.Format(dateFmt))

	seen := make(map[string]bool)
	var res Result

	pageSize := c.cfg.PageSize
	for offset := 0; len(res.Papers) < q.MaxResults; offset += pageSize {
		if err := c.limiter.Wait(ctx); err != nil {
			return res, err
		}

		fmt.Fprintf(w, "Fetching page %d...\n", res.Pages+1)
		feed, err := c.fetchPage(ctx, searchQuery, offset, pageSize)
		if err != nil {
			if res.Pages == 0 {
				return Result{}, fmt.Errorf("fetching first page: %w", err)
			}
			fmt.Fprintf(w, "warning: abandoning page at offset %d: %v\n", offset, err)
			res.Partial = true
			res.Err = err
			break
		}
		res.Pages++

		if res.Pages == 1 && feed.TotalResults > 0 {
			res.ServerTotal = feed.TotalResults
			fmt.Fprintf(w, "Server reports %d total matches\n", feed.TotalResults)
		}
		if len(feed.Entries) == 0 {
			fmt.Fprintln(w, "No more results")
			break
		}

		kept := 0
		for _, entry := range feed.Entries {
			paper, err := paperFromEntry(entry)
			if err != nil {
				fmt.Fprintf(w, "warning: skipping entry: %v\n", err)
				res.Skipped++
				continue
			}
			if !dateWithin(paper.Published, q.Start, q.End) ||
				!HasTargetCategory(paper.Categories) ||
				!matchesKeywords(paper.Title, paper.Abstract, q.Keywords) {
				res.Filtered++
				continue
			}
			if seen[paper.ID] {
				res.Duplicates++
				continue
			}
			seen[paper.ID] = true
			res.Papers = append(res.Papers, paper)
			kept++
			if len(res.Papers) >= q.MaxResults {
				break
			}
		}
		fmt.Fprintf(w, "Kept %d papers from this page\n", kept)

		if len(feed.Entries) < pageSize {
			break
		}
	}

	// The server is asked for ascending order; re-sort locally so the
	// contract holds even if the feed misbehaves. Stable keeps the feed
	// order for same-timestamp records.
	sort.SliceStable(res.Papers, func(i, j int) bool {
		return res.Papers[i].Published.Before(res.Papers[j].Published)
	})
	if len(res.Papers) > q.MaxResults {
		res.Papers = res.Papers[:q.MaxResults]
	}

	return res, nil
}

// fetchPage requests one result page. Transport errors and retryable
// statuses are handled inside DoWithRetry; a body that fails to decode
// gets one more attempt here, since the API occasionally serves a
// truncated page under load with a 200 status.
func (c *Client) fetchPage(ctx context.Context, searchQuery string, offset, count int) (*atomFeed, error) {
	feed, err := c.requestPage(ctx, searchQuery, offset, count)
	if err == nil || !errors.Is(err, errBadFeed) {
		return feed, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(httputil.RetryDelay):
	}
	return c.requestPage(ctx, searchQuery, offset, count)
}

func (c *Client) requestPage(ctx context.Context, searchQuery string, offset, count int) (*atomFeed, error) {
	params := url.Values{}
	params.Set("search_query", searchQuery)
	params.Set("start", strconv.Itoa(offset))
	params.Set("max_results", strconv.Itoa(count))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "ascending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadFeed, err)
	}
	return &feed, nil
}
