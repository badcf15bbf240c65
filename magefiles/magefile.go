//go:build mage

// Package main contains Mage build targets for paper-tracker developer tooling.
package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "paper-tracker"
	cmdPkg  = "./cmd/paper-tracker"
)

// starterTopics is written by Init when no topics.yaml exists yet.
const starterTopics = `# Topics tracked by the daily publish run. Each topic is matched
# against paper titles and abstracts.
topics:
  - Flow Matching
  - Diffusion Model
  - Score-based Generative Model

# Trailing window in days, ending on the run date.
window_days: 2

# Cap on records fetched per publish run.
max_results: 50
`

// Init prepares a tracked-repository working directory: the archives/
// folder and a starter topics.yaml for the publish run.
func Init() error {
	if err := os.MkdirAll("archives", 0o755); err != nil {
		return fmt.Errorf("creating archives: %w", err)
	}
	fmt.Println("  ", "archives/")

	if _, err := os.Stat("topics.yaml"); os.IsNotExist(err) {
		if err := os.WriteFile("topics.yaml", []byte(starterTopics), 0o644); err != nil {
			return fmt.Errorf("writing topics.yaml: %w", err)
		}
		fmt.Println("  ", "topics.yaml")
	}
	fmt.Println("Tracking directory initialized.")
	return nil
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-o", out, cmdPkg); err != nil {
		return err
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Check runs the tests and then builds the binary.
func Check() error {
	if err := sh.RunV("go", "test", "./..."); err != nil {
		return err
	}
	mg.Deps(Build)
	return nil
}

// sourceTrees lists the directories Stats counts Go code in.
var sourceTrees = []string{"cmd", "internal", "pkg", "magefiles"}

// Stats prints project metrics: Go production/test LOC and documentation word count.
func Stats() error {
	var prod, test int
	for _, root := range sourceTrees {
		p, t, err := countGoLines(root)
		if err != nil {
			return err
		}
		prod += p
		test += t
	}
	docWords, err := countDocWords(".")
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prod)
	fmt.Printf("Lines of code (Go, tests):      %d\n", test)
	fmt.Printf("Words (documentation):          %d\n", docWords)
	return nil
}

// countGoLines counts non-blank lines in the Go files under root, split
// into production and test totals.
func countGoLines(root string) (prod, test int, err error) {
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".go" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		n := countNonBlankLines(data)
		if strings.HasSuffix(path, "_test.go") {
			test += n
		} else {
			prod += n
		}
		return nil
	})
	return prod, test, err
}

// countDocWords counts words across the Markdown files directly under dir.
func countDocWords(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", dir, err)
	}
	total := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return 0, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		total += len(bytes.Fields(data))
	}
	return total, nil
}

// countNonBlankLines counts lines containing at least one non-whitespace byte.
func countNonBlankLines(data []byte) int {
	n := 0
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			n++
		}
	}
	return n
}
