package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aryankumar/atlas-report/internal/atlas"
	"github.com/aryankumar/atlas-report/internal/report"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NoClusters marks a project that was fetched successfully but has no clusters
const NoClusters = "No clusters"

// clusterHeaders are the report table columns
var clusterHeaders = []string{"PROJECT", "CLUSTER", "TIER", "TYPE", "PROVIDER", "REGION", "VERSION", "STATE", "PIT", "DISK GB"}

var failedHeaders = []string{"PROJECT", "KIND", "STATUS", "ATTEMPTS", "ERROR"}

// numbers groups thousands in summary totals
var numbers = message.NewPrinter(language.English)

// TableFormatter formats output as a table (kubectl-style)
type TableFormatter struct {
	options *Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(opts *Options) *TableFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &TableFormatter{
		options: opts,
	}
}

// Format renders the cluster table, the failed projects and the summary
func (f *TableFormatter) Format(w io.Writer, r *report.Report) error {
	colors := NewColorScheme(w, f.options.NoColor, f.options.ForceColor)

	lines := displayLines(r)
	if len(lines) == 0 {
		fmt.Fprintln(w, "No clusters found")
	} else {
		table := f.createTable(w)
		if !f.options.NoHeaders {
			table.SetHeader(f.headers(clusterHeaders, colors))
		}
		for _, line := range lines {
			table.Append(f.formatLine(line, colors))
		}
		table.Render()
	}

	if len(r.Failed) > 0 {
		f.printFailed(w, r.Failed, colors)
	}

	f.printSummary(w, r, colors)
	return nil
}

// line is one displayed row; Cluster is nil for a project without clusters
type line struct {
	Project atlas.Project
	Cluster *atlas.Cluster
}

// displayLines interleaves "No clusters" projects with the sorted rows.
// Under the project sort they sit at their place by name; under any other
// key they trail the cluster rows in project order.
func displayLines(r *report.Report) []line {
	var empty []atlas.Project
	for _, ps := range r.Projects {
		if ps.Clusters == 0 {
			empty = append(empty, ps.Project)
		}
	}

	out := make([]line, 0, len(r.Rows)+len(empty))
	if r.SortKey != report.SortProject {
		for i := range r.Rows {
			out = append(out, line{Project: r.Rows[i].Project, Cluster: &r.Rows[i].Cluster})
		}
		for _, p := range empty {
			out = append(out, line{Project: p})
		}
		return out
	}

	byProject := make(map[string][]line, len(r.Projects))
	for i := range r.Rows {
		id := r.Rows[i].Project.ID
		byProject[id] = append(byProject[id], line{Project: r.Rows[i].Project, Cluster: &r.Rows[i].Cluster})
	}
	for _, ps := range r.Projects {
		if ps.Clusters == 0 {
			out = append(out, line{Project: ps.Project})
			continue
		}
		out = append(out, byProject[ps.Project.ID]...)
	}
	return out
}

// formatLine formats a single cluster as a table row
func (f *TableFormatter) formatLine(l line, colors *ColorScheme) []string {
	if l.Cluster == nil {
		return []string{colors.ProjectName("%s", l.Project.Name), colors.Warning("%s", NoClusters), "", "", "", "", "", "", "", ""}
	}

	c := l.Cluster
	row := []string{
		l.Project.Name,
		c.Name,
		c.Tier(),
		c.Type(),
		c.Provider(),
		c.Region(),
		c.Version(),
		c.State(),
		yesNo(c.PitEnabled),
		strconv.FormatFloat(c.DiskSizeGB, 'f', 1, 64),
	}

	if report.IsLargeTier(c.Tier(), f.options.HighlightThreshold) {
		for i := range row {
			row[i] = colors.Highlight("%s", row[i])
		}
		return row
	}

	row[0] = colors.ProjectName("%s", row[0])
	return row
}

func (f *TableFormatter) headers(names []string, colors *ColorScheme) []string {
	if colors.Disabled {
		return names
	}
	colored := make([]string, len(names))
	for i, h := range names {
		colored[i] = colors.Header("%s", h)
	}
	return colored
}

// printFailed lists projects whose cluster fetch failed
func (f *TableFormatter) printFailed(w io.Writer, failed []report.FailedProject, colors *ColorScheme) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, colors.Error("Failed projects: %d", len(failed)))

	table := f.createTable(w)
	if !f.options.NoHeaders {
		table.SetHeader(f.headers(failedHeaders, colors))
	}
	for _, fp := range failed {
		status := "-"
		if fp.StatusCode != 0 {
			status = strconv.Itoa(fp.StatusCode)
		}
		table.Append([]string{
			colors.ProjectName("%s", fp.Project.Name),
			colors.Error("%s", fp.Kind),
			status,
			strconv.Itoa(fp.Attempts),
			fp.Error,
		})
	}
	table.Render()
}

// createTable creates a new table with kubectl-style configuration
func (f *TableFormatter) createTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)

	// kubectl-style configuration
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t") // Tab-separated like kubectl
	table.SetNoWhiteSpace(true)

	return table
}

// printSummary prints run totals and breakdowns
func (f *TableFormatter) printSummary(w io.Writer, r *report.Report, colors *ColorScheme) {
	s := r.Summary

	fmt.Fprintln(w, "")
	projects := fmt.Sprintf("Projects: %d", s.ProjectsAttempted)
	if s.ProjectsFailed > 0 {
		projects += " " + colors.Error("(%d failed)", s.ProjectsFailed)
	}
	fmt.Fprintf(w, "%s | Clusters: %d | Disk: %s GB\n", projects, s.Clusters, FormatGB(s.DiskGB))

	printBreakdown(w, "Tiers", s.Tiers)
	printBreakdown(w, "Providers", s.Providers)
	printBreakdown(w, "Types", s.Types)
}

func printBreakdown(w io.Writer, label string, counts []report.Count) {
	if len(counts) == 0 {
		return
	}
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = fmt.Sprintf("%s:%d", c.Key, c.Count)
	}
	fmt.Fprintf(w, "%s: %s\n", label, strings.Join(parts, ", "))
}

// FormatGB renders a size with one decimal and grouped thousands
func FormatGB(gb float64) string {
	return numbers.Sprintf("%.1f", gb)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
