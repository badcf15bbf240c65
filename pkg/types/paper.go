// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Paper holds the metadata for one arXiv paper: canonical identifier,
// descriptive fields, category taxonomy, and derived links.
type Paper struct {
	// ID is the canonical arXiv identifier with any version suffix
	// removed (e.g. "2301.07041").
	ID string `json:"id" yaml:"id"`

	// Title is the paper title with internal whitespace collapsed.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract with internal whitespace collapsed.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Categories lists every arXiv category the paper is filed under,
	// in source order.
	Categories []string `json:"categories" yaml:"categories"`

	// PrimaryCategory is the paper's primary arXiv category. Empty when
	// the feed omits it.
	PrimaryCategory string `json:"primary_category,omitempty" yaml:"primary_category,omitempty"`

	// Published is the first-announcement timestamp reported by the feed.
	Published time.Time `json:"published" yaml:"published"`

	// AbsURL is the abstract page URL, derived deterministically from ID.
	AbsURL string `json:"url_abstract" yaml:"url_abstract"`

	// PDFURL is the PDF download URL, derived deterministically from ID.
	PDFURL string `json:"url_pdf" yaml:"url_pdf"`
}
