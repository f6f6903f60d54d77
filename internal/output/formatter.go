package output

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aryankumar/atlas-report/internal/report"
)

// Format represents the output format type
type Format string

const (
	// FormatTable outputs the report as a kubectl-style table with a summary
	FormatTable Format = "table"
	// FormatJSON outputs the report document as indented JSON
	FormatJSON Format = "json"
	// FormatYAML outputs the report document as YAML
	FormatYAML Format = "yaml"
	// FormatCSV outputs one row per cluster, for spreadsheets
	FormatCSV Format = "csv"
)

// Formats lists every supported format
var Formats = []Format{FormatTable, FormatJSON, FormatYAML, FormatCSV}

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (valid: table, json, yaml, csv)", s)
}

// InferFormat picks the export format for path. An explicit format wins;
// otherwise the extension decides.
func InferFormat(path string, explicit string) (Format, error) {
	if explicit != "" {
		return ParseFormat(explicit)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("cannot infer format from %q, use --output-format", path)
	}
}

// Formatter renders a report
type Formatter interface {
	// Format writes the whole report to w
	Format(w io.Writer, r *report.Report) error
}

// Option is a functional option for configuring formatters
type Option func(*Options)

// Options holds configuration for formatters
type Options struct {
	// NoColor disables color output
	NoColor bool

	// ForceColor enables color even when the writer is not a terminal
	ForceColor bool

	// NoHeaders disables table and CSV headers
	NoHeaders bool

	// HighlightThreshold marks M-series tiers above this size
	HighlightThreshold int
}

// WithNoColor disables color output
func WithNoColor(noColor bool) Option {
	return func(o *Options) {
		o.NoColor = noColor
	}
}

// WithForceColor forces color output
func WithForceColor(force bool) Option {
	return func(o *Options) {
		o.ForceColor = force
	}
}

// WithNoHeaders disables table headers
func WithNoHeaders(noHeaders bool) Option {
	return func(o *Options) {
		o.NoHeaders = noHeaders
	}
}

// WithHighlightThreshold sets the large-tier threshold
func WithHighlightThreshold(threshold int) Option {
	return func(o *Options) {
		o.HighlightThreshold = threshold
	}
}

// DefaultHighlightThreshold highlights M40 and above
const DefaultHighlightThreshold = 30

// NewFormatter creates a new formatter based on the specified format
func NewFormatter(format Format, opts ...Option) Formatter {
	options := &Options{HighlightThreshold: DefaultHighlightThreshold}
	for _, opt := range opts {
		opt(options)
	}

	switch format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	case FormatCSV:
		return NewCSVFormatter(options)
	case FormatTable:
		fallthrough
	default:
		return NewTableFormatter(options)
	}
}
