// Package inventory lists the projects an API key can see and fetches the
// clusters of each one through a bounded worker pool.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aryankumar/atlas-report/internal/atlas"
	"github.com/aryankumar/atlas-report/internal/paginate"
)

var (
	// ErrNoProjects means the API key can see no project at all
	ErrNoProjects = errors.New("no projects found for this API key")

	// ErrNoMatch means projects exist but the filters removed all of them
	ErrNoMatch = errors.New("no projects match the include/exclude filters")
)

// Enumerator lists projects
type Enumerator struct {
	transport atlas.Transport
	opts      paginate.Options
	logger    *slog.Logger
}

// NewEnumerator creates an enumerator paginating with opts
func NewEnumerator(transport atlas.Transport, opts paginate.Options, logger *slog.Logger) *Enumerator {
	if logger == nil {
		logger = slog.Default()
	}
	opts.Logger = logger
	return &Enumerator{transport: transport, opts: opts, logger: logger}
}

// ListProjects returns every visible project that passes the filters, in the
// order the server enumerates them. An authentication failure here is
// returned as is; callers treat it as fatal since no later request can
// succeed either.
func (e *Enumerator) ListProjects(ctx context.Context, include, exclude []string) ([]atlas.Project, error) {
	filter, err := NewFilter(include, exclude)
	if err != nil {
		return nil, err
	}

	projects, err := paginate.New[atlas.Project](e.transport, atlas.ProjectsPath, e.opts).FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	if len(projects) == 0 {
		return nil, ErrNoProjects
	}

	filtered := filter.Apply(projects)
	if !filter.Empty() {
		e.logger.Info("filtered projects",
			"total", len(projects),
			"matched", len(filtered),
			"include", include,
			"exclude", exclude)
	} else {
		e.logger.Info("listed projects", "total", len(projects))
	}

	if len(filtered) == 0 {
		return nil, ErrNoMatch
	}
	return filtered, nil
}
