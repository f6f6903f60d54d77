package inventory

import (
	"errors"
	"fmt"

	"github.com/aryankumar/atlas-report/internal/atlas"
	"github.com/gobwas/glob"
)

// ErrInvalidPattern is wrapped by NewFilter for patterns that do not compile
var ErrInvalidPattern = errors.New("invalid project pattern")

// Filter selects projects by name with shell-style globs (*, ?, [...]).
// Matching is case-sensitive against the full name. A project is kept when
// no include pattern is set or at least one matches, and no exclude pattern
// matches: exclude always wins.
//
// A nil *Filter keeps everything.
type Filter struct {
	include []glob.Glob
	exclude []glob.Glob
}

// NewFilter compiles the patterns once
func NewFilter(include, exclude []string) (*Filter, error) {
	inc, err := compileAll(include)
	if err != nil {
		return nil, fmt.Errorf("include: %w", err)
	}
	exc, err := compileAll(exclude)
	if err != nil {
		return nil, fmt.Errorf("exclude: %w", err)
	}
	return &Filter{include: inc, exclude: exc}, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue
		}
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, p, err)
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

// Empty reports whether the filter keeps every project
func (f *Filter) Empty() bool {
	return f == nil || (len(f.include) == 0 && len(f.exclude) == 0)
}

// Match reports whether a project name passes the filter
func (f *Filter) Match(name string) bool {
	if f == nil {
		return true
	}
	for _, g := range f.exclude {
		if g.Match(name) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, g := range f.include {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Apply returns the matching projects in their original order
func (f *Filter) Apply(projects []atlas.Project) []atlas.Project {
	kept := make([]atlas.Project, 0, len(projects))
	for _, p := range projects {
		if f.Match(p.Name) {
			kept = append(kept, p)
		}
	}
	return kept
}
