package atlas

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aryankumar/atlas-report/internal/metrics"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestClient(t *testing.T, baseURL string, cfg ClientConfig) *Client {
	t.Helper()
	cfg.BaseURL = baseURL
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 1000
	}
	cfg.Logger = discard
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	tests := []string{
		"cloud.mongodb.com/api",
		"ftp://cloud.mongodb.com",
		"://bad",
	}

	for _, baseURL := range tests {
		t.Run(baseURL, func(t *testing.T) {
			if _, err := NewClient(ClientConfig{BaseURL: baseURL, Logger: discard}); err == nil {
				t.Errorf("NewClient(%q) expected an error", baseURL)
			}
		})
	}
}

func TestClient_Do(t *testing.T) {
	var gotPath, gotQuery, gotAccept, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAccept = r.Header.Get("Accept")
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results":[{"id":"p1","name":"alpha"}],"totalCount":1}`)
	}))
	defer srv.Close()

	recorder := metrics.NewRecorder()
	c := newTestClient(t, srv.URL+"/api/atlas/v1.0/", ClientConfig{
		UserAgent: "atlas-report/test",
		Recorder:  recorder,
	})

	resp, err := c.Do(context.Background(), http.MethodGet, ProjectsPath, url.Values{"pageNum": {"2"}})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if !resp.OK() {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if gotPath != "/api/atlas/v1.0/groups" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != "pageNum=2" {
		t.Errorf("query = %q", gotQuery)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q", gotAccept)
	}
	if gotAgent != "atlas-report/test" {
		t.Errorf("User-Agent = %q", gotAgent)
	}
	if recorder.Requests() != 1 {
		t.Errorf("recorded %d requests, want 1", recorder.Requests())
	}

	page, err := Decode[Project](resp)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(page.Results) != 1 || page.Results[0].Name != "alpha" || page.TotalCount != 1 {
		t.Errorf("page = %+v", page)
	}
}

func TestClient_DoReturnsErrorStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":429,"errorCode":"RATE_LIMITED","detail":"slow down"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, ClientConfig{})
	resp, err := c.Do(context.Background(), http.MethodGet, ProjectsPath, nil)
	if err != nil {
		t.Fatalf("non-2xx must not be an error, got %v", err)
	}
	if resp.OK() || resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", resp.StatusCode)
	}
	if got := resp.RetryAfter(); got != "7" {
		t.Errorf("RetryAfter() = %q, want 7", got)
	}
	if got := resp.Detail(); got != "RATE_LIMITED: slow down" {
		t.Errorf("Detail() = %q", got)
	}
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	c := newTestClient(t, baseURL, ClientConfig{})
	_, err := c.Do(context.Background(), http.MethodGet, ProjectsPath, nil)
	if err == nil {
		t.Fatal("expected a network error")
	}
	if got := NetworkKind(err); got != KindNetworkTransient {
		t.Errorf("NetworkKind() = %v, want network_transient (err %v)", got, err)
	}
}

func TestClient_DigestSigner(t *testing.T) {
	var challenged, signed atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Digest ") {
			challenged.Add(1)
			w.Header().Set("WWW-Authenticate", `Digest realm="MMS Public API", nonce="abc123", qop="auth", algorithm=MD5`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if !strings.Contains(auth, `username="pub"`) || !strings.Contains(auth, `realm="MMS Public API"`) {
			t.Errorf("unexpected Authorization header %q", auth)
		}
		signed.Add(1)
		fmt.Fprint(w, `{"results":[],"totalCount":0}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, ClientConfig{Signer: DigestSigner("pub", "priv")})
	resp, err := c.Do(context.Background(), http.MethodGet, ProjectsPath, nil)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if !resp.OK() {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if challenged.Load() != 1 || signed.Load() != 1 {
		t.Errorf("challenged %d times, signed %d times; want 1 and 1", challenged.Load(), signed.Load())
	}
}

func TestClient_UnauthorizedWithoutChallenge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":401,"detail":"bad key"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, ClientConfig{Signer: DigestSigner("pub", "priv")})
	resp, err := c.Do(context.Background(), http.MethodGet, ProjectsPath, nil)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestClient_RateLimitRespectsDeadline(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"results":[]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, ClientConfig{RateLimit: 0.5, Burst: 1})

	if _, err := c.Do(context.Background(), http.MethodGet, ProjectsPath, nil); err != nil {
		t.Fatalf("first request: %v", err)
	}

	// the next token is two seconds away
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Do(ctx, http.MethodGet, ProjectsPath, nil)

	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Kind != KindCancelled {
		t.Fatalf("expected a cancelled error, got %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("server saw %d requests, want 1", hits.Load())
	}
}

func TestDecode_Malformed(t *testing.T) {
	if _, err := Decode[Cluster](&Response{StatusCode: 200, Body: []byte("{not json")}); err == nil {
		t.Error("expected a decode error")
	}
	if _, err := Decode[Cluster](nil); err == nil {
		t.Error("expected an error for a nil response")
	}
}

func TestResponse_Detail(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"detail":"No group","errorCode":"GROUP_NOT_FOUND"}`, "GROUP_NOT_FOUND: No group"},
		{`{"detail":"No group"}`, "No group"},
		{`{"reason":"Not Found"}`, "Not Found"},
		{`<html>gateway</html>`, ""},
		{``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			r := &Response{StatusCode: 404, Body: []byte(tt.body)}
			if got := r.Detail(); got != tt.want {
				t.Errorf("Detail() = %q, want %q", got, tt.want)
			}
		})
	}
}
