// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package publish runs the daily update of a tracked paper repository:
// fetch the configured topics over a trailing date window, append the
// previously unseen papers to the month archive, and rewrite the README
// latest section with the day's additions.
//
// A run writes files only after the full record set is assembled, and
// each file is written atomically. Nothing prevents two publish runs
// from mutating the same target directory at once; if that ever happens
// the last writer wins.
package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-tracker/internal/archive"
	"github.com/pdiddy/paper-tracker/internal/arxiv"
	"github.com/pdiddy/paper-tracker/internal/report"
	"github.com/pdiddy/paper-tracker/pkg/types"
)

// DefaultTopics are the tracked search topics when no topics file
// overrides them.
var DefaultTopics = []string{
	"Flow Matching",
	"Diffusion Model",
	"Score-based Generative Model",
}

const (
	// defaultWindowDays covers yesterday through today, so a run delayed
	// past midnight still picks up the previous day's papers.
	defaultWindowDays = 2

	// defaultMaxResults caps one daily fetch; a day's relevant papers
	// stay well under this.
	defaultMaxResults = 50
)

const dateFmt = "2006-01-02"

// Fetcher fetches paper records matching a query. *arxiv.Client
// implements it; tests substitute a stub.
type Fetcher interface {
	Fetch(ctx context.Context, q arxiv.Query, w io.Writer) (arxiv.Result, error)
}

// DefaultConfig returns the built-in publish configuration: the default
// topic list, a two-day trailing window, and the current directory as
// the target repository.
func DefaultConfig() types.PublishConfig {
	return types.PublishConfig{
		Topics:     DefaultTopics,
		WindowDays: defaultWindowDays,
		MaxResults: defaultMaxResults,
		TargetDir:  ".",
	}
}

// LoadConfig reads a topics YAML file over the built-in defaults. Keys
// absent from the file keep their default values.
func LoadConfig(path string) (types.PublishConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading topics file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing topics file: %w", err)
	}
	if len(cfg.Topics) == 0 {
		return cfg, fmt.Errorf("topics file %s lists no topics", path)
	}
	return cfg, nil
}

// Summary holds the outcome of one publish run.
type Summary struct {
	// Fetched counts the records the query returned.
	Fetched int

	// New counts the records appended to the archive this run.
	New int

	// AlreadyArchived counts fetched records skipped because their IDs
	// were already recorded.
	AlreadyArchived int

	// Partial is true when the fetch lost a page after retries and
	// Fetched covers only the pages that succeeded.
	Partial bool
}

// Run performs one daily publish for the calendar day of now: fetch the
// window ending on that day, merge new records into the month archive,
// and rewrite the README latest section. Progress goes to w.
//
// A total fetch failure returns before any file is touched. A re-run on
// the same day with the same fetch results appends nothing and leaves
// the latest section showing the full day's additions.
func Run(ctx context.Context, fetcher Fetcher, cfg types.PublishConfig, now time.Time, w io.Writer) (Summary, error) {
	cfg = withDefaults(cfg)
	day := now.UTC()
	start := day.AddDate(0, 0, -(cfg.WindowDays - 1))

	query := arxiv.Query{
		Keywords:   cfg.Topics,
		Start:      start,
		End:        day,
		MaxResults: cfg.MaxResults,
	}

	fmt.Fprintf(w, "Publishing window %s to %s for topics: %s\n",
		start.Format(dateFmt), day.Format(dateFmt), strings.Join(cfg.Topics, ", "))

	res, err := fetcher.Fetch(ctx, query, w)
	if err != nil {
		// No file has been touched yet; the previous publish state
		// stays intact.
		return Summary{}, fmt.Errorf("fetching papers: %w", err)
	}
	if res.Partial {
		fmt.Fprintln(w, "warning: fetch incomplete, publishing the records collected before the failure")
	}

	a, err := archive.Load(archive.MonthPath(cfg.TargetDir, day))
	if err != nil {
		return Summary{}, err
	}

	// Records added by an earlier run today still belong in the latest
	// section, so a same-day re-run shows the whole day, not nothing.
	addedToday := a.AddedOn(day)
	var fresh, latest []types.Paper
	for _, p := range res.Papers {
		switch {
		case !a.Has(p.ID):
			fresh = append(fresh, p)
			latest = append(latest, p)
		case addedToday[p.ID]:
			latest = append(latest, p)
		}
	}

	summary := Summary{
		Fetched:         len(res.Papers),
		New:             len(fresh),
		AlreadyArchived: len(res.Papers) - len(fresh),
		Partial:         res.Partial,
	}

	if len(fresh) > 0 {
		a.Append(report.DaySection(day, fresh))
		if err := a.Write(); err != nil {
			return summary, fmt.Errorf("writing archive: %w", err)
		}
		fmt.Fprintf(w, "Updated archive: %s\n", a.Path)
	} else {
		fmt.Fprintln(w, "No new papers for the archive")
	}

	// The latest section is rewritten even when empty, so downstream
	// automation sees an unambiguous "no update today".
	if err := archive.UpdateReadme(cfg.TargetDir, report.LatestSection(latest), day); err != nil {
		return summary, fmt.Errorf("updating README: %w", err)
	}
	fmt.Fprintln(w, "Updated README latest section")

	fmt.Fprintf(w, "\nPublish summary: %d fetched, %d new, %d already archived\n",
		summary.Fetched, summary.New, summary.AlreadyArchived)
	return summary, nil
}

// withDefaults fills unset config fields with the documented defaults.
func withDefaults(cfg types.PublishConfig) types.PublishConfig {
	if len(cfg.Topics) == 0 {
		cfg.Topics = DefaultTopics
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = defaultWindowDays
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultMaxResults
	}
	if cfg.TargetDir == "" {
		cfg.TargetDir = "."
	}
	return cfg
}
