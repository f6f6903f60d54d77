// Package output renders cluster reports.
//
// Every formatter implements a single method that writes a whole
// *report.Report, so the same report can be shown on a terminal and
// exported to a file in one run.
//
// # Formats
//
//   - table: kubectl-style borderless table, failed projects, summary lines
//   - json: indented document with projects, clusters, summary and metrics
//   - yaml: the same document as YAML
//   - csv: one record per cluster for spreadsheets
//
// # Basic Usage
//
//	formatter := output.NewFormatter(output.FormatTable,
//	    output.WithHighlightThreshold(40),
//	)
//	formatter.Format(os.Stdout, rep)
//
//	// export, format chosen by extension
//	format, err := output.InferFormat("reports/clusters.csv", "")
//	err = output.WriteFile("reports/clusters.csv", format, rep)
//
// # Color Support
//
// Colors are enabled for TTY outputs only, unless forced with
// WithForceColor. Exports never carry color codes.
//
// Color scheme:
//   - Project names: Cyan, Bold
//   - Large-tier rows: Bright red
//   - Errors and failed projects: Red, Bold
//   - Warnings: Yellow
//   - Headers: White, Bold
//   - Durations: Blue
package output
