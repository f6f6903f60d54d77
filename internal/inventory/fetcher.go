package inventory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aryankumar/atlas-report/internal/atlas"
	"github.com/aryankumar/atlas-report/internal/executor"
	"github.com/aryankumar/atlas-report/internal/paginate"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Outcome is the terminal result of fetching one project's clusters
type Outcome struct {
	Project  atlas.Project
	Clusters []atlas.Cluster

	// Err is nil on success
	Err *atlas.Error

	Duration time.Duration
}

// OK reports whether the project's clusters were fetched
func (o Outcome) OK() bool {
	return o.Err == nil
}

// ProgressFunc receives (completed, total) after every finished project.
// It is called from worker goroutines.
type ProgressFunc func(completed, total int)

// Fetcher fetches clusters for many projects concurrently
type Fetcher struct {
	transport atlas.Transport
	opts      paginate.Options
	logger    *slog.Logger
	progress  ProgressFunc
}

// NewFetcher creates a fetcher; every project is paginated with opts
func NewFetcher(transport atlas.Transport, opts paginate.Options, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	opts.Logger = logger
	return &Fetcher{transport: transport, opts: opts, logger: logger}
}

// WithProgress sets a progress callback and returns the fetcher
func (f *Fetcher) WithProgress(fn ProgressFunc) *Fetcher {
	f.progress = fn
	return f
}

// FetchClusters runs one paginated cluster fetch per project with at most
// maxWorkers in flight. It returns exactly one outcome per distinct project
// ID. A failing project never cancels or delays the others; when ctx ends,
// projects not yet started get a cancelled outcome and finished ones are kept.
func (f *Fetcher) FetchClusters(ctx context.Context, projects []atlas.Project, maxWorkers int) map[string]Outcome {
	pool := executor.NewPool(maxWorkers, f.logger)
	byID := make(map[string]atlas.Project, len(projects))
	seen := sets.New[string]()

	for _, project := range projects {
		if seen.Has(project.ID) {
			f.logger.Warn("skipping duplicate project", "project", project.Name, "project_id", project.ID)
			continue
		}
		seen.Insert(project.ID)
		byID[project.ID] = project

		p := project
		err := pool.Submit(executor.Task{
			Key: p.ID,
			Execute: func(ctx context.Context) (any, error) {
				return f.fetchProject(ctx, p)
			},
		})
		if err != nil {
			// Only reachable with an empty project ID
			f.logger.Warn("skipping project", "project", p.Name, "error", err)
			delete(byID, p.ID)
		}
	}

	f.logger.Info("fetching clusters", "projects", pool.TaskCount(), "workers", min(maxWorkers, pool.TaskCount()))

	results := pool.ExecuteWithProgress(ctx, f.progress)

	outcomes := make(map[string]Outcome, len(results))
	for _, r := range results {
		project := byID[r.Key]
		outcome := Outcome{Project: project, Duration: r.Duration}
		if r.Error != nil {
			outcome.Err = toAPIError(r.Error, atlas.ClustersPath(project.ID))
			f.logger.Warn("project failed",
				"project", project.Name,
				"kind", outcome.Err.Kind,
				"status", outcome.Err.StatusCode,
				"attempts", outcome.Err.Attempts,
				"error", outcome.Err)
		} else {
			outcome.Clusters, _ = r.Data.([]atlas.Cluster)
		}
		outcomes[r.Key] = outcome
	}

	f.logger.Info("cluster fetch finished", "summary", executor.Summarize(results).String())
	return outcomes
}

func (f *Fetcher) fetchProject(ctx context.Context, project atlas.Project) ([]atlas.Cluster, error) {
	clusters, err := paginate.New[atlas.Cluster](f.transport, atlas.ClustersPath(project.ID), f.opts).FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("fetched clusters", "project", project.Name, "clusters", len(clusters))
	return clusters, nil
}

// toAPIError makes every task failure an *atlas.Error. Tasks the pool never
// started, and panics, have no API classification of their own.
func toAPIError(err error, path string) *atlas.Error {
	var apiErr *atlas.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, executor.ErrNotExecuted) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &atlas.Error{Kind: atlas.KindCancelled, Path: path, Err: err}
	}
	return &atlas.Error{Kind: atlas.KindUnknown, Path: path, Err: err}
}
