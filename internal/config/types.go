package config

import "time"

// Config is the resolved configuration of one atlas-report run. Keys match
// the command-line flag names; the same keys are read from ATLAS_* variables
// (dashes become underscores) and from the config file.
type Config struct {
	// PublicKey and PrivateKey form the Atlas programmatic API key
	PublicKey  string `mapstructure:"public-key" yaml:"public-key,omitempty"`
	PrivateKey string `mapstructure:"private-key" yaml:"-"`

	// BaseURL is the Atlas Administration API root
	BaseURL string `mapstructure:"base-url" yaml:"base-url,omitempty"`

	// ItemsPerPage is the page size requested from list endpoints (1-500)
	ItemsPerPage int `mapstructure:"items-per-page" yaml:"items-per-page"`

	// MaxAttempts bounds the attempts per page request, first try included
	MaxAttempts int `mapstructure:"max-attempts" yaml:"max-attempts"`

	// MaxWorkers bounds the projects fetched concurrently
	MaxWorkers int `mapstructure:"max-workers" yaml:"max-workers"`

	// Timeout is the per-request timeout in seconds
	Timeout int `mapstructure:"timeout" yaml:"timeout"`

	// TimeoutTotal is the whole-run deadline in seconds; 0 disables it
	TimeoutTotal int `mapstructure:"timeout-total" yaml:"timeout-total"`

	// RateLimit is the client-side request rate in requests per second
	RateLimit float64 `mapstructure:"rate-limit" yaml:"rate-limit"`

	// Burst is the token bucket size; 0 derives it from RateLimit
	Burst int `mapstructure:"burst" yaml:"burst"`

	// Include and Exclude are project name globs
	Include []string `mapstructure:"project" yaml:"project,omitempty"`
	Exclude []string `mapstructure:"exclude-project" yaml:"exclude-project,omitempty"`

	// SortBy is the report sort key
	SortBy string `mapstructure:"sort-by" yaml:"sort-by"`

	// HighlightThreshold marks M-series tiers above this size
	HighlightThreshold int `mapstructure:"highlight-threshold" yaml:"highlight-threshold"`

	// Output is the export file; OutputFormat overrides its extension
	Output       string `mapstructure:"output" yaml:"output,omitempty"`
	OutputFormat string `mapstructure:"output-format" yaml:"output-format,omitempty"`

	// MetricsFile receives request and retry counters in Prometheus text format
	MetricsFile string `mapstructure:"metrics-file" yaml:"metrics-file,omitempty"`

	NoColor    bool `mapstructure:"no-color" yaml:"no-color,omitempty"`
	ForceColor bool `mapstructure:"force-color" yaml:"force-color,omitempty"`
	Quiet      bool `mapstructure:"quiet" yaml:"quiet,omitempty"`
	Verbose    bool `mapstructure:"verbose" yaml:"verbose,omitempty"`

	// LogFormat selects the slog handler (text, json)
	LogFormat string `mapstructure:"log-format" yaml:"log-format,omitempty"`
}

// RequestTimeout returns Timeout as a duration
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// RunTimeout returns TimeoutTotal as a duration, zero when unbounded
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.TimeoutTotal) * time.Second
}
