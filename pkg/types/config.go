// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings for stages that fetch listing pages.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "capes-export/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ListingConfig holds settings for locating and fetching result pages.
type ListingConfig struct {
	HTTPConfig `yaml:",inline"`

	// PageParam is the query parameter carrying the 1-indexed page number.
	PageParam string `json:"page_param" yaml:"page_param"`

	// QueryParam is the query parameter carrying the search terms; its
	// value seeds the output filename.
	QueryParam string `json:"query_param" yaml:"query_param"`

	// MaxRetries is the number of retry attempts for rate-limited fetches.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// HarvestConfig holds the timing knobs of the export state machine.
type HarvestConfig struct {
	// WatchdogTimeout bounds extraction plus the continue/finish decision
	// for one page. The run fails when it elapses.
	WatchdogTimeout time.Duration `json:"watchdog_timeout" yaml:"watchdog_timeout"`

	// SettleDelay is the pause before navigating to the next page.
	SettleDelay time.Duration `json:"settle_delay" yaml:"settle_delay"`

	// ResumeDelay is the pause after resuming from a checkpoint before
	// re-extracting.
	ResumeDelay time.Duration `json:"resume_delay" yaml:"resume_delay"`
}

// StoreConfig holds settings for the checkpoint store.
type StoreConfig struct {
	// StateDir is the directory holding the checkpoint database.
	StateDir string `json:"state_dir" yaml:"state_dir"`
}

// OutputConfig holds settings for the final citation document.
type OutputConfig struct {
	// Dir is the directory citation files are written to.
	Dir string `json:"dir" yaml:"dir"`
}

// Config groups all stage configurations.
type Config struct {
	Listing ListingConfig `json:"listing" yaml:"listing"`
	Harvest HarvestConfig `json:"harvest" yaml:"harvest"`
	Store   StoreConfig   `json:"store" yaml:"store"`
	Output  OutputConfig  `json:"output" yaml:"output"`
}

// Defaults returns the configuration used when no file or environment
// overrides are present.
func Defaults() Config {
	return Config{
		Listing: ListingConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "capes-export/0.1",
			},
			PageParam:  "page",
			QueryParam: "q",
			MaxRetries: 5,
		},
		Harvest: HarvestConfig{
			WatchdogTimeout: 30 * time.Second,
			SettleDelay:     500 * time.Millisecond,
			ResumeDelay:     2 * time.Second,
		},
		Store: StoreConfig{
			StateDir: ".capes-export",
		},
		Output: OutputConfig{
			Dir: ".",
		},
	}
}
