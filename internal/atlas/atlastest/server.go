// Package atlastest provides an in-process fake of the Atlas list endpoints.
package atlastest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aryankumar/atlas-report/internal/atlas"
)

// Failure is one scripted non-2xx reply
type Failure struct {
	StatusCode int
	RetryAfter string
	Detail     string
}

// Server serves /groups and /groups/{id}/clusters from in-memory data.
// Failures can be scripted per path; each scripted failure is consumed by
// one request before normal responses resume.
type Server struct {
	server *httptest.Server

	mu       sync.Mutex
	projects []atlas.Project
	clusters map[string][]atlas.Cluster
	failures map[string][]Failure
	always   map[string]Failure
	requests map[string]int
	delay    time.Duration

	inflight    atomic.Int32
	maxInflight atomic.Int32
	total       atomic.Int64
}

// NewServer starts a fake Atlas API
func NewServer() *Server {
	s := &Server{
		clusters: make(map[string][]atlas.Cluster),
		failures: make(map[string][]Failure),
		always:   make(map[string]Failure),
		requests: make(map[string]int),
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URL returns the base URL to configure a client with
func (s *Server) URL() string {
	return s.server.URL
}

// Close shuts the server down
func (s *Server) Close() {
	s.server.Close()
}

// AddProject registers a project with its clusters
func (s *Server) AddProject(p atlas.Project, clusters ...atlas.Cluster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = append(s.projects, p)
	s.clusters[p.ID] = append(s.clusters[p.ID], clusters...)
}

// FailNext queues failures for the next requests to path
func (s *Server) FailNext(path string, failures ...Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = append(s.failures[path], failures...)
}

// FailAlways makes every request to path fail
func (s *Server) FailAlways(path string, f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.always[path] = f
}

// SetDelay slows every response down, to make overlap observable
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Requests returns how many requests hit path
func (s *Server) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

// TotalRequests returns how many requests the server received
func (s *Server) TotalRequests() int64 {
	return s.total.Load()
}

// MaxInflight returns the highest number of concurrently served requests
func (s *Server) MaxInflight() int {
	return int(s.maxInflight.Load())
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	n := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	for {
		cur := s.maxInflight.Load()
		if n <= cur || s.maxInflight.CompareAndSwap(cur, n) {
			break
		}
	}
	s.total.Add(1)

	path := r.URL.Path

	s.mu.Lock()
	s.requests[path]++
	delay := s.delay
	failure, failing := s.always[path]
	if !failing {
		if queued := s.failures[path]; len(queued) > 0 {
			failure, failing = queued[0], true
			s.failures[path] = queued[1:]
		}
	}
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if failing {
		if failure.RetryAfter != "" {
			w.Header().Set("Retry-After", failure.RetryAfter)
		}
		writeJSON(w, failure.StatusCode, map[string]any{
			"error":  failure.StatusCode,
			"detail": failure.Detail,
			"reason": http.StatusText(failure.StatusCode),
		})
		return
	}

	pageNum, itemsPerPage := pageParams(r)

	switch {
	case path == atlas.ProjectsPath:
		s.mu.Lock()
		projects := append([]atlas.Project(nil), s.projects...)
		s.mu.Unlock()
		writePage(w, r, projects, pageNum, itemsPerPage)

	case strings.HasPrefix(path, atlas.ProjectsPath+"/") && strings.HasSuffix(path, "/clusters"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, atlas.ProjectsPath+"/"), "/clusters")
		s.mu.Lock()
		clusters, ok := s.clusters[id]
		clusters = append([]atlas.Cluster(nil), clusters...)
		s.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"error":     404,
				"errorCode": "GROUP_NOT_FOUND",
				"detail":    fmt.Sprintf("No group with ID %s exists.", id),
			})
			return
		}
		writePage(w, r, clusters, pageNum, itemsPerPage)

	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"error": 404, "detail": "unknown path " + path})
	}
}

func pageParams(r *http.Request) (pageNum, itemsPerPage int) {
	pageNum, _ = strconv.Atoi(r.URL.Query().Get("pageNum"))
	if pageNum < 1 {
		pageNum = 1
	}
	itemsPerPage, _ = strconv.Atoi(r.URL.Query().Get("itemsPerPage"))
	if itemsPerPage < 1 {
		itemsPerPage = 100
	}
	return pageNum, itemsPerPage
}

func writePage[T any](w http.ResponseWriter, r *http.Request, items []T, pageNum, itemsPerPage int) {
	start := (pageNum - 1) * itemsPerPage
	if start > len(items) {
		start = len(items)
	}
	end := start + itemsPerPage
	if end > len(items) {
		end = len(items)
	}

	self := *r.URL
	links := []atlas.Link{{Rel: "self", Href: self.String()}}
	if end < len(items) {
		q := self.Query()
		q.Set("pageNum", strconv.Itoa(pageNum+1))
		self.RawQuery = q.Encode()
		links = append(links, atlas.Link{Rel: "next", Href: self.String()})
	}

	writeJSON(w, http.StatusOK, atlas.Page[T]{
		Results:    append([]T{}, items[start:end]...),
		TotalCount: len(items),
		Links:      links,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
