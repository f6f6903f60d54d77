// Package report merges per-project fetch outcomes into one ordered,
// immutable report with summary statistics.
//
// Only successfully fetched projects contribute to rows and counts. Failed
// projects are listed separately and never counted as empty successes. The
// row order is a total order, so unchanged remote state always yields the
// same report regardless of the order in which fetches completed.
package report

import (
	"cmp"
	"slices"
	"time"

	"github.com/aryankumar/atlas-report/internal/atlas"
	"github.com/aryankumar/atlas-report/internal/inventory"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Row is one cluster together with the project that owns it
type Row struct {
	Project atlas.Project
	Cluster atlas.Cluster
}

// ProjectSummary is a successfully fetched project and its cluster count.
// Projects without clusters are included.
type ProjectSummary struct {
	Project  atlas.Project
	Clusters int
	DiskGB   float64
}

// FailedProject is a project whose clusters could not be fetched
type FailedProject struct {
	Project    atlas.Project
	Kind       atlas.ErrorKind
	StatusCode int
	Attempts   int
	Error      string
}

// Count is one bucket of a breakdown
type Count struct {
	Key   string `json:"key" yaml:"key"`
	Count int    `json:"count" yaml:"count"`
}

// Summary aggregates successful projects only
type Summary struct {
	ProjectsAttempted int
	ProjectsSucceeded int
	ProjectsFailed    int
	Clusters          int
	DiskGB            float64

	// Breakdowns ordered by count descending, then key
	Tiers     []Count
	Providers []Count
	Types     []Count

	// Regions lists the distinct regions in use, sorted
	Regions []string
}

// RunMetrics describes how the run went
type RunMetrics struct {
	Elapsed         time.Duration
	ProjectsElapsed time.Duration
	ClustersElapsed time.Duration
	ExportElapsed   time.Duration
	TotalRequests   int64
	TotalRetries    int64
	FailedProjects  int
	Cancelled       bool
}

// Report is the final aggregate of one run
type Report struct {
	RunID       string
	GeneratedAt time.Time
	SortKey     SortKey

	Rows     []Row
	Projects []ProjectSummary
	Failed   []FailedProject
	Summary  Summary
	Metrics  RunMetrics
}

// Partial reports whether any project failed
func (r *Report) Partial() bool {
	return len(r.Failed) > 0
}

// Options configures Build
type Options struct {
	SortKey     SortKey
	RunID       string
	GeneratedAt time.Time
}

// Build aggregates outcomes for the given projects. A project with no
// outcome (the run ended before it was fetched) is reported as cancelled.
// Outcomes for projects not in the list are ignored.
func Build(projects []atlas.Project, outcomes map[string]inventory.Outcome, opts Options) *Report {
	key := opts.SortKey
	if key == "" {
		key = SortProject
	}

	r := &Report{
		RunID:       opts.RunID,
		GeneratedAt: opts.GeneratedAt,
		SortKey:     key,
		Rows:        []Row{},
		Projects:    []ProjectSummary{},
		Failed:      []FailedProject{},
	}

	seen := sets.New[string]()
	for _, project := range projects {
		if seen.Has(project.ID) {
			continue
		}
		seen.Insert(project.ID)

		outcome, ok := outcomes[project.ID]
		switch {
		case !ok:
			r.Failed = append(r.Failed, FailedProject{
				Project: project,
				Kind:    atlas.KindCancelled,
				Error:   "not fetched before the run ended",
			})
		case !outcome.OK():
			r.Failed = append(r.Failed, FailedProject{
				Project:    project,
				Kind:       outcome.Err.Kind,
				StatusCode: outcome.Err.StatusCode,
				Attempts:   outcome.Err.Attempts,
				Error:      outcome.Err.Error(),
			})
		default:
			ps := ProjectSummary{Project: project, Clusters: len(outcome.Clusters)}
			for _, c := range outcome.Clusters {
				r.Rows = append(r.Rows, Row{Project: project, Cluster: c})
				ps.DiskGB += c.DiskSizeGB
			}
			r.Projects = append(r.Projects, ps)
		}
	}

	slices.SortStableFunc(r.Rows, compareRows(key))
	slices.SortFunc(r.Projects, func(a, b ProjectSummary) int {
		return cmp.Or(compareText(a.Project.Name, b.Project.Name), cmp.Compare(a.Project.ID, b.Project.ID))
	})
	slices.SortFunc(r.Failed, func(a, b FailedProject) int {
		return cmp.Or(compareText(a.Project.Name, b.Project.Name), cmp.Compare(a.Project.ID, b.Project.ID))
	})

	r.Summary = summarize(r.Rows, len(r.Projects), len(r.Failed))
	r.Metrics.FailedProjects = len(r.Failed)
	for _, f := range r.Failed {
		if f.Kind == atlas.KindCancelled {
			r.Metrics.Cancelled = true
			break
		}
	}
	return r
}

func summarize(rows []Row, succeeded, failed int) Summary {
	s := Summary{
		ProjectsAttempted: succeeded + failed,
		ProjectsSucceeded: succeeded,
		ProjectsFailed:    failed,
		Clusters:          len(rows),
	}

	tiers := map[string]int{}
	providers := map[string]int{}
	types := map[string]int{}
	regions := sets.New[string]()

	for _, row := range rows {
		c := row.Cluster
		s.DiskGB += c.DiskSizeGB
		tiers[c.Tier()]++
		providers[c.Provider()]++
		types[c.Type()]++
		regions.Insert(c.Region())
	}

	s.Tiers = breakdown(tiers)
	s.Providers = breakdown(providers)
	s.Types = breakdown(types)
	s.Regions = sets.List(regions)
	return s
}

func breakdown(counts map[string]int) []Count {
	out := make([]Count, 0, len(counts))
	for k, n := range counts {
		out = append(out, Count{Key: k, Count: n})
	}
	slices.SortFunc(out, func(a, b Count) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), cmp.Compare(a.Key, b.Key))
	})
	return out
}
