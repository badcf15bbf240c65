// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-tracker/pkg/types"
)

// QueryFile is the on-disk snapshot of a fetch run: the query, the
// fetch configuration that produced it, the records, and summary
// statistics. A maintainer can save a run to a file and rebuild
// documents from it later without re-querying the API.
type QueryFile struct {
	Query   QueryParams     `yaml:"query"`
	Config  QueryFileConfig `yaml:"config"`
	Papers  []types.Paper   `yaml:"papers"`
	Summary QuerySummary    `yaml:"summary"`
}

// QueryParams stores the query parameters in a serializable form.
type QueryParams struct {
	Keywords   []string `yaml:"keywords"`
	StartDate  string   `yaml:"start_date"`
	EndDate    string   `yaml:"end_date"`
	MaxResults int      `yaml:"max_results"`
}

// QueryFileConfig stores the fetch configuration that produced the records.
type QueryFileConfig struct {
	PageSize        int           `yaml:"page_size"`
	RequestInterval time.Duration `yaml:"request_interval"`
}

// QuerySummary stores fetch statistics and a timestamp.
type QuerySummary struct {
	Total       int       `yaml:"total"`
	ServerTotal int       `yaml:"server_total,omitempty"`
	Partial     bool      `yaml:"partial,omitempty"`
	Skipped     int       `yaml:"skipped,omitempty"`
	Filtered    int       `yaml:"filtered,omitempty"`
	Duplicates  int       `yaml:"duplicates_removed,omitempty"`
	Timestamp   time.Time `yaml:"timestamp"`
}

// WriteQueryFile saves the query and its records to a YAML file.
func WriteQueryFile(path string, q Query, cfg types.FetchConfig, res Result) error {
	qf := QueryFile{
		Query: QueryParams{
			Keywords:   q.Keywords,
			StartDate:  q.Start.Format(dateFmt),
			EndDate:    q.End.Format(dateFmt),
			MaxResults: q.MaxResults,
		},
		Config: QueryFileConfig{
			PageSize:        cfg.PageSize,
			RequestInterval: cfg.RequestInterval,
		},
		Papers: res.Papers,
		Summary: QuerySummary{
			Total:       len(res.Papers),
			ServerTotal: res.ServerTotal,
			Partial:     res.Partial,
			Skipped:     res.Skipped,
			Filtered:    res.Filtered,
			Duplicates:  res.Duplicates,
			Timestamp:   time.Now(),
		},
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}

// ToQuery converts stored QueryParams back into a Query.
func (p QueryParams) ToQuery() (Query, error) {
	q := Query{
		Keywords:   p.Keywords,
		MaxResults: p.MaxResults,
	}
	if p.StartDate != "" {
		t, err := time.Parse(dateFmt, p.StartDate)
		if err != nil {
			return q, fmt.Errorf("invalid start_date %q: %w", p.StartDate, err)
		}
		q.Start = t
	}
	if p.EndDate != "" {
		t, err := time.Parse(dateFmt, p.EndDate)
		if err != nil {
			return q, fmt.Errorf("invalid end_date %q: %w", p.EndDate, err)
		}
		q.End = t
	}
	return q, nil
}
