// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

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
)

const readmeFile = "README.md"

// Markers bounding the README latest section. Everything between them
// is replaced on each publish run.
const (
	startMarker = "<!-- START LATEST -->"
	endMarker   = "<!-- END LATEST -->"
)

// latestHeadingPattern matches the dated latest-section heading so the
// date can be refreshed in place.
var latestHeadingPattern = regexp.MustCompile(`Latest Updates \([^)]*\)`)

// UpdateReadme replaces the latest section of <targetDir>/README.md
// with body and refreshes the dated section heading. A missing README
// is initialized with the full skeleton first. The write is atomic.
func UpdateReadme(targetDir, body string, day time.Time) error {
	path := filepath.Join(targetDir, readmeFile)
	dateStr := day.Format(dateFmt)

	var content string
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		content = initialReadme(day)
	case err != nil:
		return fmt.Errorf("reading README: %w", err)
	default:
		content = string(data)
	}

	start := strings.Index(content, startMarker)
	end := strings.Index(content, endMarker)
	if start >= 0 && end > start {
		// Splice by index rather than regexp substitution: abstracts
		// carry $ and \ sequences that expand inside a replacement
		// string.
		content = content[:start] + startMarker + "\n" + body + "\n" + content[end:]
	} else {
		// Markers are gone; append a dated section rather than guess
		// where the latest section used to live.
		content = strings.TrimRight(content, "\n") + fmt.Sprintf("\n\n## %s\n\n%s", dateStr, body)
	}

	content = latestHeadingPattern.ReplaceAllString(content, "Latest Updates ("+dateStr+")")
	return fsutil.WriteFileAtomic(path, []byte(content))
}

// initialReadme is the skeleton written when the target repository has
// no README yet.
func initialReadme(day time.Time) string {
	var b strings.Builder
	b.WriteString("# Awesome Flow Matching & Diffusion Models (Daily)\n\n")
	b.WriteString("Updated daily via automated scripts.\n\n")
	fmt.Fprintf(&b, "## 📅 Latest Updates (%s)\n\n", day.Format(dateFmt))
	b.WriteString(startMarker + "\n")
	b.WriteString(endMarker + "\n\n")
	b.WriteString("## 🗄️ Archives\n\n")
	fmt.Fprintf(&b, "- [%d Archives](./archives/)\n", day.Year())
	return b.String()
}
