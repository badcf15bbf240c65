package types

import "time"

// HTTPConfig holds shared HTTP settings used by commands that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-tracker/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// FetchConfig holds settings for querying the arXiv API.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// PageSize is the number of results requested per API page (default 100).
	PageSize int `json:"page_size" yaml:"page_size"`

	// MaxRetries is the number of retry attempts for transient API failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RequestInterval is the minimum delay between consecutive API calls.
	// Values below the 3s floor required by the arXiv terms of use are
	// raised to the floor.
	RequestInterval time.Duration `json:"request_interval" yaml:"request_interval"`
}

// PublishConfig holds settings for the daily publish run.
type PublishConfig struct {
	// Topics are the search topics for the run, combined into a single
	// query. Empty means the built-in topic list.
	Topics []string `json:"topics" yaml:"topics"`

	// WindowDays is the length of the trailing date window ending on the
	// run date (default 2: yesterday through today).
	WindowDays int `json:"window_days" yaml:"window_days"`

	// MaxResults caps the number of records fetched per publish run (default 50).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// TargetDir is the root of the tracked repository that receives
	// README.md and archives/ updates (default ".").
	TargetDir string `json:"target_dir" yaml:"target_dir"`
}
