// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"fmt"
	"strings"
	"time"
)

const dateFmt = "2006-01-02"

// Query holds the parameters for one fetch run.
type Query struct {
	// Keywords are matched against title or abstract. Multi-word
	// keywords are sent as quoted phrases.
	Keywords []string

	// Start and End bound the submission date, inclusive on both ends.
	// Only the calendar date (UTC) is significant.
	Start time.Time
	End   time.Time

	// MaxResults caps the number of records returned.
	MaxResults int
}

// Validate checks the query before any network call. Errors name the
// offending parameter.
func (q Query) Validate() error {
	if len(q.Keywords) == 0 {
		return fmt.Errorf("keywords: provide at least one search keyword")
	}
	for _, kw := range q.Keywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("keywords: empty keyword in list")
		}
	}
	if q.Start.IsZero() {
		return fmt.Errorf("start date: required")
	}
	if q.End.IsZero() {
		return fmt.Errorf("end date: required")
	}
	if q.End.Before(q.Start) {
		return fmt.Errorf("end date %s is before start date %s",
			q.End.Format(dateFmt), q.Start.Format(dateFmt))
	}
	if q.MaxResults <= 0 {
		return fmt.Errorf("max results: must be positive, got %d", q.MaxResults)
	}
	return nil
}

// ParseKeywords splits a comma-separated keyword list, trimming
// whitespace and dropping empty items.
func ParseKeywords(s string) []string {
	var keywords []string
	for _, kw := range strings.Split(s, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

// CategoryGroup is one searched subject area: a display label, the
// category prefix, and the concrete categories included in every query.
type CategoryGroup struct {
	Label      string
	Prefix     string
	Categories []string
}

// TargetGroups lists the subject areas every query is scoped to:
// mathematics, computer science, and statistics.
var TargetGroups = []CategoryGroup{
	{
		Label:  "Mathematics",
		Prefix: "math.",
		Categories: []string{
			"math.AG", "math.AT", "math.AP", "math.CT", "math.CA", "math.CO", "math.AC", "math.CV",
			"math.DG", "math.DS", "math.FA", "math.GM", "math.GN", "math.GT", "math.GR", "math.HO",
			"math.IT", "math.KT", "math.LO", "math.MP", "math.MG", "math.NT", "math.NA", "math.OA",
			"math.OC", "math.PR", "math.QA", "math.RT", "math.RA", "math.SP", "math.ST", "math.SG",
		},
	},
	{
		Label:  "Computer Science",
		Prefix: "cs.",
		Categories: []string{
			"cs.AI", "cs.AR", "cs.CC", "cs.CE", "cs.CG", "cs.CL", "cs.CR", "cs.CV", "cs.DB", "cs.DC",
			"cs.DL", "cs.DM", "cs.DS", "cs.ET", "cs.FL", "cs.GL", "cs.GR", "cs.GT", "cs.HC", "cs.IR",
			"cs.IT", "cs.LG", "cs.LO", "cs.MS", "cs.MA", "cs.MM", "cs.NI", "cs.NE", "cs.NA", "cs.OS",
			"cs.OH", "cs.PF", "cs.PL", "cs.RO", "cs.SI", "cs.SE", "cs.SD", "cs.SC", "cs.SY",
		},
	},
	{
		Label:  "Statistics",
		Prefix: "stat.",
		Categories: []string{
			"stat.AP", "stat.CO", "stat.ML", "stat.ME", "stat.OT", "stat.TH",
		},
	},
}

// SearchFields returns the display labels of the searched subject areas,
// comma-joined for document headers and progress output.
func SearchFields() string {
	labels := make([]string, len(TargetGroups))
	for i, g := range TargetGroups {
		labels[i] = g.Label
	}
	return strings.Join(labels, ", ")
}

// HasTargetCategory reports whether any category carries an allow-listed
// subject prefix.
func HasTargetCategory(categories []string) bool {
	for _, cat := range categories {
		for _, g := range TargetGroups {
			if strings.HasPrefix(cat, g.Prefix) {
				return true
			}
		}
	}
	return false
}

// buildSearchQuery constructs the search_query expression: (OR over
// keywords against title and abstract) AND (OR over allow-listed
// categories) AND (submission date range). The result is unescaped;
// url.Values handles encoding when the request is built.
func buildSearchQuery(q Query) string {
	var keywordParts []string
	for _, kw := range q.Keywords {
		term := quoteKeyword(kw)
		keywordParts = append(keywordParts, fmt.Sprintf("ti:%s OR abs:%s", term, term))
	}

	var categoryParts []string
	for _, g := range TargetGroups {
		for _, cat := range g.Categories {
			categoryParts = append(categoryParts, "cat:"+cat)
		}
	}

	// Minute-granularity range in the API's native syntax; both bounds
	// land inside the requested calendar days.
	dateRange := fmt.Sprintf("submittedDate:[%s0000 TO %s2359]",
		q.Start.Format("20060102"), q.End.Format("20060102"))

	return fmt.Sprintf("(%s) AND (%s) AND %s",
		strings.Join(keywordParts, " OR "),
		strings.Join(categoryParts, " OR "),
		dateRange)
}

// quoteKeyword wraps multi-word keywords in quotes so the API treats
// them as phrases instead of independent terms.
func quoteKeyword(kw string) string {
	if strings.ContainsAny(kw, " \t") {
		return `"` + kw + `"`
	}
	return kw
}

// matchesKeywords reports whether the title or abstract contains any
// keyword, case-insensitively.
func matchesKeywords(title, abstract string, keywords []string) bool {
	title = strings.ToLower(title)
	abstract = strings.ToLower(abstract)
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if strings.Contains(title, kw) || strings.Contains(abstract, kw) {
			return true
		}
	}
	return false
}

// dateWithin reports whether the published timestamp falls inside the
// inclusive calendar-date range, ignoring time of day.
func dateWithin(published, start, end time.Time) bool {
	p := dateOnly(published)
	return !p.Before(dateOnly(start)) && !p.After(dateOnly(end))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
