// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/paper-tracker/pkg/types"
)

// Abstract-page and PDF URLs are derived from the canonical ID so every
// record links to the same host regardless of the feed's own link URLs.
const (
	absURLBase = "https://arxiv.org/abs/"
	pdfURLBase = "https://arxiv.org/pdf/"
)

// arXiv Atom feed XML structures. The totalResults, startIndex, and
// itemsPerPage elements come from the OpenSearch extension the API
// embeds in every page.
type atomFeed struct {
	TotalResults int         `xml:"totalResults"`
	StartIndex   int         `xml:"startIndex"`
	ItemsPerPage int         `xml:"itemsPerPage"`
	Entries      []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID              string         `xml:"id"`
	Title           string         `xml:"title"`
	Summary         string         `xml:"summary"`
	Published       string         `xml:"published"`
	Authors         []atomAuthor   `xml:"author"`
	Categories      []atomCategory `xml:"category"`
	PrimaryCategory atomCategory   `xml:"primary_category"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

// paperFromEntry maps a raw feed entry to a normalized record. Entries
// missing an identifier or a parseable published date are rejected.
func paperFromEntry(e atomEntry) (types.Paper, error) {
	id := extractArxivID(e.ID)
	if id == "" {
		return types.Paper{}, fmt.Errorf("entry missing arXiv identifier (id=%q)", e.ID)
	}
	if e.Published == "" {
		return types.Paper{}, fmt.Errorf("entry %s missing published date", id)
	}
	published, err := time.Parse(time.RFC3339, e.Published)
	if err != nil {
		return types.Paper{}, fmt.Errorf("entry %s: invalid published date %q: %w", id, e.Published, err)
	}

	p := types.Paper{
		ID:              id,
		Title:           cleanText(e.Title),
		Abstract:        cleanText(e.Summary),
		PrimaryCategory: e.PrimaryCategory.Term,
		Published:       published.UTC(),
		AbsURL:          absURLBase + id,
		PDFURL:          pdfURLBase + id + ".pdf",
	}

	for _, a := range e.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			p.Authors = append(p.Authors, name)
		}
	}
	for _, c := range e.Categories {
		if c.Term != "" {
			p.Categories = append(p.Categories, c.Term)
		}
	}
	// Some entries tag only a primary category.
	if len(p.Categories) == 0 && p.PrimaryCategory != "" {
		p.Categories = append(p.Categories, p.PrimaryCategory)
	}

	return p, nil
}

// extractArxivID pulls the canonical arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// cleanText collapses the newlines and indentation the feed inserts into
// titles and abstracts down to single spaces.
func cleanText(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}
