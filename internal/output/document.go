package output

import (
	"time"

	"github.com/aryankumar/atlas-report/internal/report"
)

// document is the serialized shape of a report shared by JSON and YAML
type document struct {
	GeneratedAt string       `json:"generated_at" yaml:"generated_at"`
	RunID       string       `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	SortBy      string       `json:"sort_by" yaml:"sort_by"`
	Summary     summaryDoc   `json:"summary" yaml:"summary"`
	Projects    []projectDoc `json:"projects" yaml:"projects"`
	Failed      []failedDoc  `json:"failed_projects" yaml:"failed_projects"`
	Metrics     *metricsDoc  `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

type summaryDoc struct {
	ProjectsAttempted int            `json:"projects_attempted" yaml:"projects_attempted"`
	ProjectsSucceeded int            `json:"projects_succeeded" yaml:"projects_succeeded"`
	ProjectsFailed    int            `json:"projects_failed" yaml:"projects_failed"`
	Clusters          int            `json:"clusters" yaml:"clusters"`
	DiskGB            float64        `json:"disk_gb" yaml:"disk_gb"`
	Tiers             []report.Count `json:"tiers" yaml:"tiers"`
	Providers         []report.Count `json:"providers" yaml:"providers"`
	Types             []report.Count `json:"types" yaml:"types"`
	Regions           []string       `json:"regions" yaml:"regions"`
}

type projectDoc struct {
	ID       string       `json:"project_id" yaml:"project_id"`
	Name     string       `json:"project_name" yaml:"project_name"`
	DiskGB   float64      `json:"disk_gb" yaml:"disk_gb"`
	Clusters []clusterDoc `json:"clusters" yaml:"clusters"`
}

type clusterDoc struct {
	Name       string  `json:"name" yaml:"name"`
	Tier       string  `json:"tier" yaml:"tier"`
	Type       string  `json:"cluster_type" yaml:"cluster_type"`
	Provider   string  `json:"provider" yaml:"provider"`
	Region     string  `json:"region" yaml:"region"`
	Version    string  `json:"version" yaml:"version"`
	State      string  `json:"state" yaml:"state"`
	PIT        bool    `json:"pit" yaml:"pit"`
	Paused     bool    `json:"paused" yaml:"paused"`
	DiskSizeGB float64 `json:"disk_size_gb" yaml:"disk_size_gb"`
}

type failedDoc struct {
	ID         string `json:"project_id" yaml:"project_id"`
	Name       string `json:"project_name" yaml:"project_name"`
	Kind       string `json:"kind" yaml:"kind"`
	StatusCode int    `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Attempts   int    `json:"attempts,omitempty" yaml:"attempts,omitempty"`
	Error      string `json:"error" yaml:"error"`
}

type metricsDoc struct {
	ElapsedMS         int64 `json:"elapsed_ms" yaml:"elapsed_ms"`
	ProjectsElapsedMS int64 `json:"projects_elapsed_ms" yaml:"projects_elapsed_ms"`
	ClustersElapsedMS int64 `json:"clusters_elapsed_ms" yaml:"clusters_elapsed_ms"`
	TotalRequests     int64 `json:"total_requests" yaml:"total_requests"`
	TotalRetries      int64 `json:"total_retries" yaml:"total_retries"`
	FailedProjects    int   `json:"failed_projects" yaml:"failed_projects"`
	Cancelled         bool  `json:"cancelled" yaml:"cancelled"`
}

// newDocument converts a report. Projects appear by name; clusters inside a
// project keep the report's row order.
func newDocument(r *report.Report) document {
	byProject := make(map[string][]clusterDoc, len(r.Projects))
	for _, row := range r.Rows {
		c := row.Cluster
		byProject[row.Project.ID] = append(byProject[row.Project.ID], clusterDoc{
			Name:       c.Name,
			Tier:       c.Tier(),
			Type:       c.Type(),
			Provider:   c.Provider(),
			Region:     c.Region(),
			Version:    c.Version(),
			State:      c.State(),
			PIT:        c.PitEnabled,
			Paused:     c.Paused,
			DiskSizeGB: c.DiskSizeGB,
		})
	}

	doc := document{
		GeneratedAt: r.GeneratedAt.UTC().Format(time.RFC3339),
		RunID:       r.RunID,
		SortBy:      string(r.SortKey),
		Summary: summaryDoc{
			ProjectsAttempted: r.Summary.ProjectsAttempted,
			ProjectsSucceeded: r.Summary.ProjectsSucceeded,
			ProjectsFailed:    r.Summary.ProjectsFailed,
			Clusters:          r.Summary.Clusters,
			DiskGB:            r.Summary.DiskGB,
			Tiers:             nonNil(r.Summary.Tiers),
			Providers:         nonNil(r.Summary.Providers),
			Types:             nonNil(r.Summary.Types),
			Regions:           nonNil(r.Summary.Regions),
		},
		Projects: make([]projectDoc, 0, len(r.Projects)),
		Failed:   make([]failedDoc, 0, len(r.Failed)),
	}

	for _, ps := range r.Projects {
		doc.Projects = append(doc.Projects, projectDoc{
			ID:       ps.Project.ID,
			Name:     ps.Project.Name,
			DiskGB:   ps.DiskGB,
			Clusters: nonNil(byProject[ps.Project.ID]),
		})
	}
	for _, f := range r.Failed {
		doc.Failed = append(doc.Failed, failedDoc{
			ID:         f.Project.ID,
			Name:       f.Project.Name,
			Kind:       f.Kind.String(),
			StatusCode: f.StatusCode,
			Attempts:   f.Attempts,
			Error:      f.Error,
		})
	}

	if r.Metrics.Elapsed > 0 {
		doc.Metrics = &metricsDoc{
			ElapsedMS:         r.Metrics.Elapsed.Milliseconds(),
			ProjectsElapsedMS: r.Metrics.ProjectsElapsed.Milliseconds(),
			ClustersElapsedMS: r.Metrics.ClustersElapsed.Milliseconds(),
			TotalRequests:     r.Metrics.TotalRequests,
			TotalRetries:      r.Metrics.TotalRetries,
			FailedProjects:    r.Metrics.FailedProjects,
			Cancelled:         r.Metrics.Cancelled,
		}
	}
	return doc
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
