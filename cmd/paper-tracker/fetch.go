// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-tracker/internal/arxiv"
	"github.com/pdiddy/paper-tracker/internal/fsutil"
	"github.com/pdiddy/paper-tracker/internal/report"
	"github.com/pdiddy/paper-tracker/pkg/types"
)

const (
	defaultOutput     = "arxiv_papers.md"
	defaultMaxResults = 1000

	dateFmt = "2006-01-02"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Search arXiv by keywords and save the results as Markdown",
	Long: `Fetch queries the arXiv API for papers whose title or abstract matches any
of the given keywords, submitted within the date range. Matches are limited
to the mathematics, computer science, and statistics categories. Results are
written to a Markdown document, newest first.

The arXiv terms of use require a minimum delay between successive API
requests, so large result sets take a few seconds per result page.

A completed search can be saved with --query-file and re-rendered later
with --from-query-file without touching the network.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("keywords", "", `search keywords, comma-separated (e.g. "flow matching,diffusion")`)
	fetchCmd.Flags().String("start-date", "", "submission date range start (YYYY-MM-DD)")
	fetchCmd.Flags().String("end-date", "", "submission date range end (YYYY-MM-DD)")
	fetchCmd.Flags().String("output", defaultOutput, "output Markdown file")
	fetchCmd.Flags().Int("max-results", defaultMaxResults, "maximum number of papers to fetch")
	fetchCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 30s)")
	fetchCmd.Flags().String("query-file", "", "also save the query and records as YAML")
	fetchCmd.Flags().String("from-query-file", "", "render a saved query file instead of querying the API")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	if fromFile, _ := cmd.Flags().GetString("from-query-file"); fromFile != "" {
		return renderQueryFile(fromFile, output)
	}

	query, err := queryFromFlags(cmd)
	if err != nil {
		return err
	}

	cfg := fetchSettings()
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		cfg.Timeout = timeout
	}

	client := arxiv.NewClient(cfg)
	res, err := client.Fetch(context.Background(), query, os.Stdout)
	if err != nil {
		return err
	}
	if res.Partial {
		fmt.Fprintf(os.Stderr, "warning: fetch incomplete (%v); saving the records collected so far\n", res.Err)
	}

	doc := report.Document(res.Papers, report.Meta{
		Keywords:  query.Keywords,
		Start:     query.Start,
		End:       query.End,
		Generated: time.Now(),
	})
	if err := fsutil.WriteFileAtomic(output, []byte(doc)); err != nil {
		return err
	}

	fmt.Printf("\nFound %d relevant papers in total\n", len(res.Papers))
	fmt.Printf("Results saved to: %s\n", output)

	if queryFile, _ := cmd.Flags().GetString("query-file"); queryFile != "" {
		if err := arxiv.WriteQueryFile(queryFile, query, cfg, res); err != nil {
			return err
		}
		fmt.Printf("Query saved to: %s\n", queryFile)
	}
	return nil
}

// queryFromFlags validates the search arguments before any network call.
// Errors name the offending flag.
func queryFromFlags(cmd *cobra.Command) (arxiv.Query, error) {
	keywordList, _ := cmd.Flags().GetString("keywords")
	keywords := arxiv.ParseKeywords(keywordList)
	if len(keywords) == 0 {
		return arxiv.Query{}, fmt.Errorf("--keywords: provide at least one search keyword")
	}

	start, err := parseDateFlag(cmd, "start-date")
	if err != nil {
		return arxiv.Query{}, err
	}
	end, err := parseDateFlag(cmd, "end-date")
	if err != nil {
		return arxiv.Query{}, err
	}

	maxResults, _ := cmd.Flags().GetInt("max-results")

	query := arxiv.Query{
		Keywords:   keywords,
		Start:      start,
		End:        end,
		MaxResults: maxResults,
	}
	if err := query.Validate(); err != nil {
		return arxiv.Query{}, err
	}
	return query, nil
}

func parseDateFlag(cmd *cobra.Command, name string) (time.Time, error) {
	value, _ := cmd.Flags().GetString(name)
	if value == "" {
		return time.Time{}, fmt.Errorf("--%s is required (YYYY-MM-DD)", name)
	}
	t, err := time.Parse(dateFmt, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: invalid date %q, expected YYYY-MM-DD", name, value)
	}
	return t, nil
}

// renderQueryFile rebuilds the Markdown document from a saved query file
// without querying the API.
func renderQueryFile(path, output string) error {
	qf, err := arxiv.ReadQueryFile(path)
	if err != nil {
		return err
	}
	query, err := qf.Query.ToQuery()
	if err != nil {
		return err
	}

	doc := report.Document(qf.Papers, report.Meta{
		Keywords:  query.Keywords,
		Start:     query.Start,
		End:       query.End,
		Generated: time.Now(),
	})
	if err := fsutil.WriteFileAtomic(output, []byte(doc)); err != nil {
		return err
	}

	fmt.Printf("Rendered %d papers from %s\n", len(qf.Papers), path)
	fmt.Printf("Results saved to: %s\n", output)
	return nil
}

// fetchSettings builds the fetch configuration from the viper config
// file and environment. Unset fields fall back to the client defaults;
// command flags override individual fields afterwards.
func fetchSettings() types.FetchConfig {
	return types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   viper.GetDuration("http.timeout"),
			UserAgent: viper.GetString("http.user_agent"),
		},
		PageSize:        viper.GetInt("fetch.page_size"),
		MaxRetries:      viper.GetInt("fetch.max_retries"),
		RequestInterval: viper.GetDuration("fetch.request_interval"),
	}
}
