// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders paper records as Markdown. Every function is
// pure text shaping; no file or network access happens here.
//
// The block layout (title heading, authors, published date, categories,
// abstract, links) is parsed by downstream consumers of the generated
// documents and must stay stable.
package report

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/paper-tracker/internal/arxiv"
	"github.com/pdiddy/paper-tracker/pkg/types"
)

const (
	dateFmt      = "2006-01-02"
	timestampFmt = "2006-01-02 15:04:05"

	// NoPapersFound is the body line of a search document with zero
	// records.
	NoPapersFound = "_No papers found for this query._"

	// NoNewPapers is the latest-section body when a publish run adds
	// nothing. Downstream automation matches this line to detect
	// "no update today".
	NoNewPapers = "_No new papers today._"
)

// Meta holds the query facts shown in a search document header.
type Meta struct {
	Keywords  []string
	Start     time.Time
	End       time.Time
	Generated time.Time
}

// Document renders the full search document for a manual fetch run:
// a header block describing the query, then one block per paper, newest
// first. Zero papers produce a valid document with an explicit
// no-results line rather than an empty body.
func Document(papers []types.Paper, meta Meta) string {
	var b strings.Builder
	b.WriteString("# ArXiv Paper Search Results\n\n")
	fmt.Fprintf(&b, "**Search Keywords**: %s\n\n", strings.Join(meta.Keywords, ", "))
	fmt.Fprintf(&b, "**Search Fields**: %s\n\n", arxiv.SearchFields())
	fmt.Fprintf(&b, "**Date Range**: %s to %s\n\n",
		meta.Start.Format(dateFmt), meta.End.Format(dateFmt))
	fmt.Fprintf(&b, "**Papers Found**: %d\n\n", len(papers))
	fmt.Fprintf(&b, "**Generated**: %s\n\n", meta.Generated.Format(timestampFmt))
	b.WriteString("---\n\n")

	if len(papers) == 0 {
		b.WriteString(NoPapersFound + "\n")
		return b.String()
	}

	// The fetcher hands records oldest first; the document reads newest
	// first. Sort a copy so the caller's slice keeps its order.
	sorted := make([]types.Paper, len(papers))
	copy(sorted, papers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[j].Published.Before(sorted[i].Published)
	})

	for i, p := range sorted {
		writeEntry(&b, p, fmt.Sprintf("## %d. %s", i+1, p.Title))
		b.WriteString("---\n\n")
	}
	return b.String()
}

// DaySection renders one archive day section: a dated heading carrying
// the day's new-record count, then one block per paper in the given
// order.
func DaySection(day time.Time, papers []types.Paper) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s (Total: %d)\n\n", day.Format(dateFmt), len(papers))
	for i, p := range papers {
		writeEntry(&b, p, fmt.Sprintf("### %d. %s", i+1, p.Title))
		b.WriteString("---\n\n")
	}
	return b.String()
}

// LatestSection renders the README latest-section body: today's newly
// added papers, or the explicit no-new-papers line when there are none.
func LatestSection(papers []types.Paper) string {
	if len(papers) == 0 {
		return NoNewPapers + "\n"
	}
	var b strings.Builder
	for i, p := range papers {
		writeEntry(&b, p, fmt.Sprintf("### %d. %s", i+1, p.Title))
		b.WriteString("---\n\n")
	}
	return b.String()
}

// writeEntry renders one paper block under the given heading line. The
// field order is the externally observed contract.
func writeEntry(b *strings.Builder, p types.Paper, heading string) {
	b.WriteString(heading + "\n\n")
	fmt.Fprintf(b, "**Authors**: %s\n\n", strings.Join(p.Authors, ", "))
	fmt.Fprintf(b, "**Published**: %s\n\n", p.Published.Format(dateFmt))
	fmt.Fprintf(b, "**Categories**: %s\n\n", FormatCategories(p.Categories))
	fmt.Fprintf(b, "**Abstract**:\n%s\n\n", p.Abstract)

	links := fmt.Sprintf("[View Paper](%s) | [Download PDF](%s)", p.AbsURL, p.PDFURL)
	if code := CodeLink(p); code != "" {
		links += fmt.Sprintf(" | [Code](%s)", code)
	}
	fmt.Fprintf(b, "**Links**: %s\n\n", links)
}

// FormatCategories groups category tags by subject area for display,
// e.g. "Mathematics: math.PR; Computer Science: cs.LG, cs.AI". Tags
// outside the searched areas fall back to a plain comma join.
func FormatCategories(categories []string) string {
	if len(categories) == 0 {
		return "Unknown"
	}

	var parts []string
	for _, g := range arxiv.TargetGroups {
		var in []string
		for _, cat := range categories {
			if strings.HasPrefix(cat, g.Prefix) {
				in = append(in, cat)
			}
		}
		if len(in) > 0 {
			parts = append(parts, g.Label+": "+strings.Join(in, ", "))
		}
	}

	if len(parts) == 0 {
		return strings.Join(categories, ", ")
	}
	return strings.Join(parts, "; ")
}

// githubLinkPattern matches a GitHub repository URL.
var githubLinkPattern = regexp.MustCompile(`https?://github\.com/[\w-]+/[\w.-]+`)

// CodeLink returns the first GitHub repository URL mentioned in the
// paper's abstract or title, or "" when neither mentions one.
func CodeLink(p types.Paper) string {
	link := githubLinkPattern.FindString(p.Abstract)
	if link == "" {
		link = githubLinkPattern.FindString(p.Title)
	}
	// A sentence-final period is prose, not part of the repository name.
	return strings.TrimRight(link, ".")
}
