package config

import (
	"net/url"

	"github.com/aryankumar/atlas-report/internal/inventory"
	"github.com/aryankumar/atlas-report/internal/output"
	"github.com/aryankumar/atlas-report/internal/report"
	"github.com/aryankumar/atlas-report/internal/util"
)

// MaxItemsPerPage is the largest page the Atlas API accepts
const MaxItemsPerPage = 500

// Validate checks every setting and reports all problems at once.
// Credentials are checked only when requireCredentials is set.
func (c *Config) Validate(requireCredentials bool) error {
	errs := &util.MultiError{}

	if requireCredentials {
		if c.PublicKey == "" {
			errs.Add(util.NewValidationError("public-key", nil, "is required (set ATLAS_PUBLIC_KEY)"))
		}
		if c.PrivateKey == "" {
			errs.Add(util.NewValidationError("private-key", nil, "is required (set ATLAS_PRIVATE_KEY)"))
		}
	}

	if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs.Add(util.NewValidationError("base-url", c.BaseURL, "must be an absolute http(s) URL"))
	}

	if c.ItemsPerPage < 1 || c.ItemsPerPage > MaxItemsPerPage {
		errs.Add(util.NewValidationError("items-per-page", c.ItemsPerPage, "must be between 1 and 500"))
	}
	for _, check := range []struct {
		field string
		value int
		floor int
	}{
		{"max-attempts", c.MaxAttempts, 1},
		{"max-workers", c.MaxWorkers, 1},
		{"timeout", c.Timeout, 1},
		{"timeout-total", c.TimeoutTotal, 0},
		{"burst", c.Burst, 0},
		{"highlight-threshold", c.HighlightThreshold, 0},
	} {
		if check.value < check.floor {
			errs.Add(util.NewValidationError(check.field, check.value, minMessage(check.floor)))
		}
	}
	if c.RateLimit <= 0 {
		errs.Add(util.NewValidationError("rate-limit", c.RateLimit, "must be greater than 0"))
	}

	if _, err := report.ParseSortKey(c.SortBy); err != nil {
		errs.Add(util.NewValidationError("sort-by", c.SortBy, err.Error()))
	}

	if _, err := inventory.NewFilter(c.Include, c.Exclude); err != nil {
		errs.Add(util.NewValidationError("project", nil, err.Error()))
	}

	if c.Output != "" {
		if _, err := output.InferFormat(c.Output, c.OutputFormat); err != nil {
			errs.Add(util.NewValidationError("output", c.Output, err.Error()))
		}
	} else if c.OutputFormat != "" {
		if _, err := output.ParseFormat(c.OutputFormat); err != nil {
			errs.Add(util.NewValidationError("output-format", c.OutputFormat, err.Error()))
		}
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs.Add(util.NewValidationError("log-format", c.LogFormat, "must be text or json"))
	}
	if c.Quiet && c.Verbose {
		errs.Add(util.NewValidationError("quiet", nil, "cannot be combined with --verbose"))
	}

	return errs.ErrorOrNil()
}

func minMessage(floor int) string {
	if floor == 0 {
		return "must not be negative"
	}
	return "must be at least 1"
}
