// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive maintains the files of the tracked paper repository:
// month-keyed archive documents under archives/ and the README latest
// section. Files are rewritten in full and atomically; a publish run
// never leaves a partially written archive behind.
//
// Nothing here guards against two publish runs mutating the same target
// directory at once. If that ever happens the last writer wins.
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pdiddy/paper-tracker/internal/fsutil"
	"github.com/pdiddy/paper-tracker/pkg/types"
)

// Dir is the archive subdirectory inside the target repository.
const Dir = "archives"

const (
	dateFmt  = "2006-01-02"
	monthFmt = "2006-01"
)

// viewLinkPattern matches the abstract-page link of an archived entry
// block; the capture group is the paper ID. Scanning only the View
// Paper anchor keeps arXiv links quoted inside abstracts from being
// mistaken for archived records.
var viewLinkPattern = regexp.MustCompile(`\[View Paper\]\(https?://arxiv\.org/abs/([^)\s]+)\)`)

// dayHeadingPattern matches a day-section heading and captures its date.
var dayHeadingPattern = regexp.MustCompile(`^## (\d{4}-\d{2}-\d{2}) \(Total: \d+\)`)

// Archive is one month-keyed archive file: its path, current content,
// and the paper IDs already recorded in it, indexed by the day section
// that recorded them.
type Archive struct {
	Path string

	content string
	ids     map[string]bool
	dayIDs  map[string]map[string]bool
}

// MonthPath returns the archive file path for the month containing day:
// <targetDir>/archives/YYYY-MM.md.
func MonthPath(targetDir string, day time.Time) string {
	return filepath.Join(targetDir, Dir, day.Format(monthFmt)+".md")
}

// Load reads the month archive at path and indexes its recorded paper
// IDs. A missing file yields an empty archive; the first Write creates
// it.
func Load(path string) (*Archive, error) {
	a := &Archive{
		Path:   path,
		ids:    make(map[string]bool),
		dayIDs: make(map[string]map[string]bool),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return a, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}

	a.content = string(data)
	a.scan(a.content)
	return a, nil
}

// Has reports whether a paper ID is already recorded in the archive.
func (a *Archive) Has(id string) bool {
	return a.ids[id]
}

// Len returns the number of distinct paper IDs recorded in the archive.
func (a *Archive) Len() int {
	return len(a.ids)
}

// AddedOn returns the IDs recorded under day sections dated day.
func (a *Archive) AddedOn(day time.Time) map[string]bool {
	out := make(map[string]bool)
	for id := range a.dayIDs[day.Format(dateFmt)] {
		out[id] = true
	}
	return out
}

// FilterNew returns the papers whose IDs are not yet recorded,
// preserving their order. The check is exact ID matching, nothing
// fuzzier.
func (a *Archive) FilterNew(papers []types.Paper) []types.Paper {
	var fresh []types.Paper
	for _, p := range papers {
		if !a.ids[p.ID] {
			fresh = append(fresh, p)
		}
	}
	return fresh
}

// Append adds a rendered day section to the in-memory content and
// indexes its paper IDs. Prior content is preserved; nothing touches
// the disk until Write.
func (a *Archive) Append(section string) {
	if a.content != "" {
		a.content = strings.TrimRight(a.content, "\n") + "\n\n"
	}
	a.content += section
	a.scan(section)
}

// Write writes the full archive content back to disk atomically,
// creating the archives directory when needed.
func (a *Archive) Write() error {
	if err := os.MkdirAll(filepath.Dir(a.Path), 0o755); err != nil {
		return fmt.Errorf("creating archive directory: %w", err)
	}
	return fsutil.WriteFileAtomic(a.Path, []byte(a.content))
}

// scan walks text line by line, recording every entry link under the
// most recent day heading.
func (a *Archive) scan(text string) {
	day := ""
	for _, line := range strings.Split(text, "\n") {
		if m := dayHeadingPattern.FindStringSubmatch(line); m != nil {
			day = m[1]
			continue
		}
		for _, lm := range viewLinkPattern.FindAllStringSubmatch(line, -1) {
			id := lm[1]
			a.ids[id] = true
			if day == "" {
				continue
			}
			if a.dayIDs[day] == nil {
				a.dayIDs[day] = make(map[string]bool)
			}
			a.dayIDs[day][id] = true
		}
	}
}
