package atlas

import (
	"net/url"
	"strings"
)

const (
	// DefaultBaseURL is the Atlas Administration API v1.0 root
	DefaultBaseURL = "https://cloud.mongodb.com/api/atlas/v1.0"

	// ProjectsPath lists every project (group) visible to the API key
	ProjectsPath = "/groups"

	// ClusterTypeServerless marks serverless deployments, which have no instance size
	ClusterTypeServerless = "SERVERLESS"

	// NotAvailable is rendered for attributes the API did not return
	NotAvailable = "N/A"
)

// ClustersPath returns the clusters collection path for a project
func ClustersPath(projectID string) string {
	return ProjectsPath + "/" + url.PathEscape(projectID) + "/clusters"
}

// Project is an Atlas project (called a group in the v1.0 API)
type Project struct {
	// ID is the 24-hex project identifier
	ID string `json:"id" yaml:"id"`

	// Name is the human-readable project name used for filtering and sorting
	Name string `json:"name" yaml:"name"`

	// OrgID is the owning organization
	OrgID string `json:"orgId,omitempty" yaml:"orgId,omitempty"`

	// ClusterCount is the server-side cluster count hint
	ClusterCount int `json:"clusterCount,omitempty" yaml:"clusterCount,omitempty"`

	// Created is the creation timestamp as returned by the API
	Created string `json:"created,omitempty" yaml:"created,omitempty"`
}

// ProviderSettings carries the cloud placement of a cluster
type ProviderSettings struct {
	ProviderName     string `json:"providerName,omitempty" yaml:"providerName,omitempty"`
	InstanceSizeName string `json:"instanceSizeName,omitempty" yaml:"instanceSizeName,omitempty"`
	RegionName       string `json:"regionName,omitempty" yaml:"regionName,omitempty"`
}

// Cluster is a snapshot of one deployment at fetch time
type Cluster struct {
	ID                  string           `json:"id,omitempty" yaml:"id,omitempty"`
	GroupID             string           `json:"groupId,omitempty" yaml:"groupId,omitempty"`
	Name                string           `json:"name" yaml:"name"`
	ClusterType         string           `json:"clusterType,omitempty" yaml:"clusterType,omitempty"`
	StateName           string           `json:"stateName,omitempty" yaml:"stateName,omitempty"`
	MongoDBVersion      string           `json:"mongoDBVersion,omitempty" yaml:"mongoDBVersion,omitempty"`
	MongoDBMajorVersion string           `json:"mongoDBMajorVersion,omitempty" yaml:"mongoDBMajorVersion,omitempty"`
	DiskSizeGB          float64          `json:"diskSizeGB" yaml:"diskSizeGB"`
	PitEnabled          bool             `json:"pitEnabled" yaml:"pitEnabled"`
	Paused              bool             `json:"paused" yaml:"paused"`
	ProviderSettings    ProviderSettings `json:"providerSettings" yaml:"providerSettings"`
}

// Tier returns the instance size class, "Serverless" for serverless clusters
// and N/A when the API did not report one
func (c Cluster) Tier() string {
	if strings.EqualFold(c.ClusterType, ClusterTypeServerless) {
		return "Serverless"
	}
	return orNA(c.ProviderSettings.InstanceSizeName)
}

// Provider returns the cloud provider name or N/A
func (c Cluster) Provider() string {
	return orNA(c.ProviderSettings.ProviderName)
}

// Region returns the provider region or N/A
func (c Cluster) Region() string {
	return orNA(c.ProviderSettings.RegionName)
}

// Version returns the MongoDB major version, falling back to the full version
func (c Cluster) Version() string {
	if c.MongoDBMajorVersion != "" {
		return c.MongoDBMajorVersion
	}
	return orNA(c.MongoDBVersion)
}

// State returns the lifecycle state or N/A
func (c Cluster) State() string {
	return orNA(c.StateName)
}

// Type returns the cluster type (REPLICASET, SHARDED, SERVERLESS...) or N/A
func (c Cluster) Type() string {
	return orNA(c.ClusterType)
}

func orNA(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}

// Link is a hypermedia link attached to list responses
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// Page is the envelope every paginated v1.0 list endpoint returns
type Page[T any] struct {
	Results    []T    `json:"results"`
	TotalCount int    `json:"totalCount"`
	Links      []Link `json:"links,omitempty"`
}

// NextLink reports whether the page carries a rel=next link, and whether
// the server sent any links at all
func (p Page[T]) NextLink() (hasNext bool, hasLinks bool) {
	for _, l := range p.Links {
		if l.Rel == "next" {
			return true, true
		}
	}
	return false, len(p.Links) > 0
}
