package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aryankumar/atlas-report/internal/atlas"
	"github.com/aryankumar/atlas-report/internal/backoff"
	"github.com/aryankumar/atlas-report/internal/inventory"
	"github.com/aryankumar/atlas-report/internal/metrics"
	"github.com/aryankumar/atlas-report/internal/output"
	"github.com/aryankumar/atlas-report/internal/paginate"
	"github.com/aryankumar/atlas-report/internal/report"
	"github.com/aryankumar/atlas-report/internal/util"
	"github.com/aryankumar/atlas-report/pkg/version"
)

// session is the client side of one run: the shared rate-limited client
// and the paging options every collection uses
type session struct {
	client   *atlas.Client
	paging   paginate.Options
	recorder *metrics.Recorder
}

func (a *app) newSession() (*session, error) {
	if err := a.cfg.Validate(true); err != nil {
		return nil, err
	}

	recorder := metrics.NewRecorder()
	client, err := atlas.NewClient(atlas.ClientConfig{
		BaseURL:   a.cfg.BaseURL,
		Signer:    atlas.DigestSigner(a.cfg.PublicKey, a.cfg.PrivateKey),
		Timeout:   a.cfg.RequestTimeout(),
		RateLimit: a.cfg.RateLimit,
		Burst:     a.cfg.Burst,
		UserAgent: version.UserAgent(),
		Recorder:  recorder,
		Logger:    a.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create Atlas client: %w", err)
	}

	policy := backoff.DefaultPolicy()
	policy.MaxAttempts = a.cfg.MaxAttempts

	return &session{
		client: client,
		paging: paginate.Options{
			PageSize: a.cfg.ItemsPerPage,
			Policy:   policy,
			Recorder: recorder,
			Logger:   a.logger,
		},
		recorder: recorder,
	}, nil
}

// runReport enumerates projects, fetches their clusters and renders the report
func (a *app) runReport(ctx context.Context) error {
	start := time.Now()

	s, err := a.newSession()
	if err != nil {
		return err
	}
	defer s.client.Close()

	if timeout := a.cfg.RunTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	projects, err := inventory.NewEnumerator(s.client, s.paging, a.logger).
		ListProjects(ctx, a.cfg.Include, a.cfg.Exclude)
	if err != nil {
		return err
	}
	projectsElapsed := time.Since(start)

	progress := newProgress(a.stderr, len(projects), !a.cfg.Quiet)
	clustersStart := time.Now()
	outcomes := inventory.NewFetcher(s.client, s.paging, a.logger).
		WithProgress(progress.Update).
		FetchClusters(ctx, projects, a.cfg.MaxWorkers)
	progress.Done()
	clustersElapsed := time.Since(clustersStart)

	// validated already
	key, _ := report.ParseSortKey(a.cfg.SortBy)
	rep := report.Build(projects, outcomes, report.Options{
		SortKey:     key,
		RunID:       a.runID,
		GeneratedAt: time.Now().UTC(),
	})
	rep.Metrics.ProjectsElapsed = projectsElapsed
	rep.Metrics.ClustersElapsed = clustersElapsed
	if ctx.Err() != nil {
		rep.Metrics.Cancelled = true
	}

	for _, f := range rep.Failed {
		a.logger.Warn("project missing from report",
			"error", util.WrapProjectError(f.Project.Name, errors.New(f.Error)),
			"kind", f.Kind.String(),
			"attempts", f.Attempts)
	}

	rep.Metrics.TotalRequests = s.recorder.Requests()
	rep.Metrics.TotalRetries = s.recorder.Retries()
	rep.Metrics.Elapsed = time.Since(start)

	if err := a.render(rep); err != nil {
		return err
	}

	rep.Metrics.Elapsed = time.Since(start)
	s.recorder.ObserveRun(rep.Summary.Clusters, len(rep.Failed), rep.Metrics.Elapsed)

	if a.cfg.MetricsFile != "" {
		if err := s.recorder.WriteTextfile(a.cfg.MetricsFile); err != nil {
			return fmt.Errorf("write metrics file: %w", err)
		}
	}
	if !a.cfg.Quiet {
		output.PrintMetrics(a.stderr, rep.Metrics, output.NewColorScheme(a.stderr, a.cfg.NoColor, a.cfg.ForceColor))
	}

	if rep.Partial() {
		return util.NewExitError(util.ExitPartial, fmt.Errorf("%w: %d of %d projects failed",
			util.ErrPartialReport, len(rep.Failed), rep.Summary.ProjectsAttempted))
	}
	return nil
}

// render prints the report to stdout and writes the export file. An output
// format without an output file replaces the table on stdout, for piping.
func (a *app) render(rep *report.Report) error {
	stdoutFormat := output.FormatTable
	if a.cfg.Output == "" && a.cfg.OutputFormat != "" {
		stdoutFormat, _ = output.ParseFormat(a.cfg.OutputFormat)
	}

	formatter := output.NewFormatter(stdoutFormat,
		output.WithNoColor(a.cfg.NoColor),
		output.WithForceColor(a.cfg.ForceColor),
		output.WithHighlightThreshold(a.cfg.HighlightThreshold),
	)
	if err := formatter.Format(a.stdout, rep); err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	if a.cfg.Output == "" {
		return nil
	}

	exportStart := time.Now()
	format, err := output.InferFormat(a.cfg.Output, a.cfg.OutputFormat)
	if err != nil {
		return err
	}
	if err := output.WriteFile(a.cfg.Output, format, rep); err != nil {
		return err
	}
	rep.Metrics.ExportElapsed = time.Since(exportStart)
	a.logger.Info("report exported", "file", a.cfg.Output, "format", format)
	return nil
}
