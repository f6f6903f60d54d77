package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/aryankumar/atlas-report/internal/util"
)

func validConfig() *Config {
	return &Config{
		PublicKey:          "pub",
		PrivateKey:         "priv",
		BaseURL:            "https://cloud.mongodb.com/api/atlas/v1.0",
		ItemsPerPage:       500,
		MaxAttempts:        5,
		MaxWorkers:         20,
		Timeout:            30,
		RateLimit:          10,
		Burst:              10,
		SortBy:             "project",
		HighlightThreshold: 30,
		LogFormat:          "text",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(c *Config)
		creds      bool
		wantFields []string
	}{
		{name: "valid", mutate: func(c *Config) {}, creds: true},
		{name: "missing credentials", mutate: func(c *Config) { c.PublicKey, c.PrivateKey = "", "" }, creds: true, wantFields: []string{"public-key", "private-key"}},
		{name: "credentials not required", mutate: func(c *Config) { c.PublicKey, c.PrivateKey = "", "" }, creds: false},
		{name: "items per page zero", mutate: func(c *Config) { c.ItemsPerPage = 0 }, wantFields: []string{"items-per-page"}},
		{name: "items per page too large", mutate: func(c *Config) { c.ItemsPerPage = 501 }, wantFields: []string{"items-per-page"}},
		{name: "items per page at bounds", mutate: func(c *Config) { c.ItemsPerPage = 1 }},
		{name: "attempts and workers", mutate: func(c *Config) { c.MaxAttempts, c.MaxWorkers = 0, -1 }, wantFields: []string{"max-attempts", "max-workers"}},
		{name: "timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantFields: []string{"timeout"}},
		{name: "negative total timeout", mutate: func(c *Config) { c.TimeoutTotal = -1 }, wantFields: []string{"timeout-total"}},
		{name: "rate limit", mutate: func(c *Config) { c.RateLimit = 0 }, wantFields: []string{"rate-limit"}},
		{name: "negative threshold", mutate: func(c *Config) { c.HighlightThreshold = -5 }, wantFields: []string{"highlight-threshold"}},
		{name: "unknown sort key", mutate: func(c *Config) { c.SortBy = "size" }, wantFields: []string{"sort-by"}},
		{name: "invalid glob", mutate: func(c *Config) { c.Include = []string{"prod-[a"} }, wantFields: []string{"project"}},
		{name: "uninferable output", mutate: func(c *Config) { c.Output = "report.txt" }, wantFields: []string{"output"}},
		{name: "explicit format rescues output", mutate: func(c *Config) { c.Output, c.OutputFormat = "report.txt", "csv" }},
		{name: "bad output format", mutate: func(c *Config) { c.OutputFormat = "xml" }, wantFields: []string{"output-format"}},
		{name: "relative base url", mutate: func(c *Config) { c.BaseURL = "cloud.mongodb.com" }, wantFields: []string{"base-url"}},
		{name: "log format", mutate: func(c *Config) { c.LogFormat = "logfmt" }, wantFields: []string{"log-format"}},
		{name: "quiet and verbose", mutate: func(c *Config) { c.Quiet, c.Verbose = true, true }, wantFields: []string{"quiet"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate(tt.creds)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() = nil, want an error")
			}
			if !errors.Is(err, util.ErrInvalidConfig) {
				t.Errorf("error %v does not match ErrInvalidConfig", err)
			}

			var multi *util.MultiError
			if !errors.As(err, &multi) {
				t.Fatalf("error type = %T, want *util.MultiError", err)
			}
			var fields []string
			for _, e := range multi.Errors {
				var ve *util.ValidationError
				if errors.As(e, &ve) {
					fields = append(fields, ve.Field)
				}
			}
			if strings.Join(fields, ",") != strings.Join(tt.wantFields, ",") {
				t.Errorf("fields = %v, want %v", fields, tt.wantFields)
			}
		})
	}
}
