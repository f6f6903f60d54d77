package report

import (
	"cmp"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SortKey selects the primary ordering of report rows
type SortKey string

const (
	SortProject  SortKey = "project"
	SortCluster  SortKey = "cluster"
	SortTier     SortKey = "tier"
	SortDisk     SortKey = "disk"
	SortProvider SortKey = "provider"
	SortRegion   SortKey = "region"
)

// SortKeys lists the valid keys in display order
var SortKeys = []SortKey{SortProject, SortCluster, SortTier, SortDisk, SortProvider, SortRegion}

// ParseSortKey validates a user-supplied key; empty means project
func ParseSortKey(s string) (SortKey, error) {
	if s == "" {
		return SortProject, nil
	}
	key := SortKey(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range SortKeys {
		if k == key {
			return k, nil
		}
	}
	return "", fmt.Errorf("invalid sort key %q (valid: %s)", s, joinKeys())
}

func joinKeys() string {
	names := make([]string, len(SortKeys))
	for i, k := range SortKeys {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

var tierNumber = regexp.MustCompile(`^[A-Za-z]+(\d+)`)

// TierSize extracts the numeric size of a tier name ("M30" is 30). Tiers
// without a number (Serverless, N/A) are 0.
func TierSize(tier string) int {
	m := tierNumber.FindStringSubmatch(tier)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

var largeTier = regexp.MustCompile(`^M(\d+)`)

// IsLargeTier reports whether a dedicated M-series tier is above threshold
func IsLargeTier(tier string, threshold int) bool {
	m := largeTier.FindStringSubmatch(tier)
	if m == nil {
		return false
	}
	n, err := strconv.Atoi(m[1])
	return err == nil && n > threshold
}

// compareText orders case-insensitively, falling back to byte order so that
// names differing only in case still have a fixed order
func compareText(a, b string) int {
	return cmp.Or(
		strings.Compare(strings.ToLower(a), strings.ToLower(b)),
		strings.Compare(a, b),
	)
}

// compareRows returns a total order over rows for key. Disk sorts largest
// first; every other key ascending. Ties fall through to project name,
// cluster name, then IDs.
func compareRows(key SortKey) func(a, b Row) int {
	return func(a, b Row) int {
		var primary int
		switch key {
		case SortCluster:
			primary = compareText(a.Cluster.Name, b.Cluster.Name)
		case SortTier:
			primary = cmp.Or(
				cmp.Compare(TierSize(a.Cluster.Tier()), TierSize(b.Cluster.Tier())),
				compareText(a.Cluster.Tier(), b.Cluster.Tier()),
			)
		case SortDisk:
			primary = cmp.Compare(b.Cluster.DiskSizeGB, a.Cluster.DiskSizeGB)
		case SortProvider:
			primary = compareText(a.Cluster.Provider(), b.Cluster.Provider())
		case SortRegion:
			primary = compareText(a.Cluster.Region(), b.Cluster.Region())
		}

		return cmp.Or(
			primary,
			compareText(a.Project.Name, b.Project.Name),
			compareText(a.Cluster.Name, b.Cluster.Name),
			strings.Compare(a.Project.ID, b.Project.ID),
			strings.Compare(a.Cluster.ID, b.Cluster.ID),
		)
	}
}
