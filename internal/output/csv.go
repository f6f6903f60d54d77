package output

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/aryankumar/atlas-report/internal/report"
)

var csvHeaders = []string{
	"generated_at", "project_name", "cluster_name", "tier", "cluster_type",
	"provider", "region", "version", "state", "pit", "disk_size_gb",
}

// CSVFormatter writes one record per cluster, plus one blank-cluster
// record per project without clusters
type CSVFormatter struct {
	options *Options
}

// NewCSVFormatter creates a new CSV formatter
func NewCSVFormatter(opts *Options) *CSVFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &CSVFormatter{
		options: opts,
	}
}

// Format writes the report rows as CSV
func (f *CSVFormatter) Format(w io.Writer, r *report.Report) error {
	cw := csv.NewWriter(w)
	generated := r.GeneratedAt.UTC().Format(time.RFC3339)

	if !f.options.NoHeaders {
		if err := cw.Write(csvHeaders); err != nil {
			return err
		}
	}

	for _, l := range displayLines(r) {
		record := make([]string, len(csvHeaders))
		record[0] = generated
		record[1] = l.Project.Name
		if c := l.Cluster; c != nil {
			record[2] = c.Name
			record[3] = c.Tier()
			record[4] = c.Type()
			record[5] = c.Provider()
			record[6] = c.Region()
			record[7] = c.Version()
			record[8] = c.State()
			record[9] = yesNo(c.PitEnabled)
			record[10] = strconv.FormatFloat(c.DiskSizeGB, 'f', 1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
