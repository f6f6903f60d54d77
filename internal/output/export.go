package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aryankumar/atlas-report/internal/report"
)

// WriteFile exports the report to path, creating parent directories.
// Exported files never carry color codes.
func WriteFile(path string, format Format, r *report.Report) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}

	formatter := NewFormatter(format, WithNoColor(true))
	if err := formatter.Format(file, r); err != nil {
		file.Close()
		return fmt.Errorf("write %s export: %w", format, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	return nil
}

// PrintMetrics writes the one-line run metrics footer
func PrintMetrics(w io.Writer, m report.RunMetrics, colors *ColorScheme) {
	failed := fmt.Sprintf("failed %d", m.FailedProjects)
	if m.FailedProjects > 0 {
		failed = colors.Error("%s", failed)
	}

	fmt.Fprintf(w, "Metrics: projects %s | clusters %s | export %s | total %s | requests %d | retries %d | %s",
		colors.Duration("%s", FormatElapsed(m.ProjectsElapsed)),
		colors.Duration("%s", FormatElapsed(m.ClustersElapsed)),
		colors.Duration("%s", FormatElapsed(m.ExportElapsed)),
		colors.Duration("%s", FormatElapsed(m.Elapsed)),
		m.TotalRequests,
		m.TotalRetries,
		failed,
	)
	if m.Cancelled {
		fmt.Fprint(w, " | "+colors.Warning("cancelled"))
	}
	fmt.Fprintln(w)
}

// FormatElapsed renders milliseconds under a second, seconds under a
// minute and minutes with seconds beyond that
func FormatElapsed(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		minutes := int(d / time.Minute)
		rest := d - time.Duration(minutes)*time.Minute
		return fmt.Sprintf("%dm%.1fs", minutes, rest.Seconds())
	}
}
