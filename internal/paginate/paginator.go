// Package paginate drives one Atlas list collection to completion.
//
// Pages are requested strictly in order: page N+1 is only requested after
// page N has been received. A failed page request is retried in place
// according to a backoff.Policy, so already consumed pages are never fetched
// again. Retriable failures are invisible to the caller unless the attempt
// budget runs out.
//
// A Paginator is single use. Once it has finished, successfully or not, it
// cannot be restarted.
package paginate

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aryankumar/atlas-report/internal/atlas"
	"github.com/aryankumar/atlas-report/internal/backoff"
	"github.com/aryankumar/atlas-report/internal/metrics"
)

const (
	// DefaultPageSize is the largest page the Atlas v1.0 API serves
	DefaultPageSize = 500

	// DefaultMaxPages bounds a single collection against runaway pagination
	DefaultMaxPages = 1000
)

var (
	// ErrDone is returned by Next once the collection is exhausted
	ErrDone = errors.New("no more pages")

	// ErrConsumed is returned when a finished or failed paginator is reused
	ErrConsumed = errors.New("paginator already consumed")
)

// Sleeper waits for d or until ctx ends, whichever is first
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Options configures a Paginator
type Options struct {
	// PageSize is itemsPerPage, 1 to 500
	PageSize int

	// MaxPages is the hard page ceiling for one collection
	MaxPages int

	// Policy decides retry delays and the attempt budget per page
	Policy backoff.Policy

	// Sleep waits between attempts; nil uses Sleep
	Sleep Sleeper

	Recorder *metrics.Recorder
	Logger   *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.Sleep == nil {
		o.Sleep = Sleep
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Paginator iterates the pages of one collection
type Paginator[T any] struct {
	transport atlas.Transport
	path      string
	opts      Options

	pageNum int
	fetched int
	started bool
	done    bool
	failed  bool
}

// New creates a paginator for the collection at path
func New[T any](transport atlas.Transport, path string, opts Options) *Paginator[T] {
	return &Paginator[T]{
		transport: transport,
		path:      path,
		opts:      opts.withDefaults(),
		pageNum:   1,
	}
}

// Next returns the items of the next page. It returns ErrDone when the
// collection is exhausted and ErrConsumed after a terminal failure.
// Failures are *atlas.Error values.
func (p *Paginator[T]) Next(ctx context.Context) ([]T, error) {
	switch {
	case p.failed:
		return nil, ErrConsumed
	case p.done:
		return nil, ErrDone
	}
	p.started = true

	page, err := p.fetchPage(ctx)
	if err != nil {
		p.failed = true
		return nil, err
	}
	p.advance(page)
	return page.Results, nil
}

// All returns a lazy sequence over every item of the collection. A failure
// is yielded once as the final element.
func (p *Paginator[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		if p.started {
			yield(zero, ErrConsumed)
			return
		}
		for {
			items, err := p.Next(ctx)
			if errors.Is(err, ErrDone) {
				return
			}
			if err != nil {
				yield(zero, err)
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// FetchAll returns the whole collection or nothing: a failure on any page
// discards the pages already received.
func (p *Paginator[T]) FetchAll(ctx context.Context) ([]T, error) {
	items := []T{}
	for item, err := range p.All(ctx) {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Pages returns how many pages were received so far
func (p *Paginator[T]) Pages() int {
	return p.pageNum - 1
}

// advance moves the cursor past page and decides whether another one exists.
// A rel=next link is authoritative when the server sends links; otherwise the
// totalCount hint and short pages end the stream.
func (p *Paginator[T]) advance(page *atlas.Page[T]) {
	n := len(page.Results)
	p.fetched += n
	p.pageNum++

	hasNext, hasLinks := page.NextLink()
	switch {
	case n == 0:
		p.done = true
	case hasLinks:
		p.done = !hasNext
	case page.TotalCount > 0:
		p.done = p.fetched >= page.TotalCount
	default:
		p.done = n < p.opts.PageSize
	}

	if !p.done && p.Pages() >= p.opts.MaxPages {
		p.opts.Logger.Warn("page ceiling reached, stopping pagination",
			"path", p.path,
			"pages", p.Pages(),
			"items", p.fetched)
		p.done = true
	}
}

func (p *Paginator[T]) fetchPage(ctx context.Context) (*atlas.Page[T], error) {
	query := url.Values{}
	query.Set("pageNum", strconv.Itoa(p.pageNum))
	query.Set("itemsPerPage", strconv.Itoa(p.opts.PageSize))

	maxAttempts := p.opts.Policy.Attempts()
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, &atlas.Error{Kind: atlas.KindCancelled, Path: p.path, Attempts: attempt - 1, Err: err}
		}

		resp, err := p.transport.Do(ctx, http.MethodGet, p.path, query)
		apiErr := p.classify(ctx, resp, err)
		if apiErr == nil {
			page, decodeErr := atlas.Decode[T](resp)
			if decodeErr != nil {
				return nil, &atlas.Error{
					Kind:       atlas.KindDecode,
					StatusCode: resp.StatusCode,
					Attempts:   attempt,
					Path:       p.path,
					Err:        decodeErr,
				}
			}
			return page, nil
		}
		apiErr.Attempts = attempt

		if !apiErr.Retriable() {
			return nil, apiErr
		}
		if attempt >= maxAttempts {
			p.opts.Recorder.ObserveExhausted(apiErr.Kind.String())
			return nil, &atlas.Error{
				Kind:       atlas.KindRetriesExhausted,
				StatusCode: apiErr.StatusCode,
				Attempts:   attempt,
				Path:       p.path,
				Err:        apiErr,
			}
		}

		delay := p.opts.Policy.NextDelay(attempt, backoff.Response{
			StatusCode: apiErr.StatusCode,
			RetryAfter: resp.RetryAfter(),
		})
		p.opts.Recorder.ObserveRetry(apiErr.Kind.String(), delay)
		p.opts.Logger.Warn("retrying page request",
			"path", p.path,
			"page", p.pageNum,
			"attempt", attempt,
			"status", apiErr.StatusCode,
			"kind", apiErr.Kind,
			"delay", delay)

		if err := p.opts.Sleep(ctx, delay); err != nil {
			return nil, &atlas.Error{Kind: atlas.KindCancelled, Path: p.path, Attempts: attempt, Err: err}
		}
	}
}

// classify turns a transport result into an *atlas.Error, nil on 2xx
func (p *Paginator[T]) classify(ctx context.Context, resp *atlas.Response, err error) *atlas.Error {
	if err != nil {
		var apiErr *atlas.Error
		if errors.As(err, &apiErr) {
			classified := *apiErr
			if classified.Path == "" {
				classified.Path = p.path
			}
			return &classified
		}
		kind := atlas.NetworkKind(err)
		if ctx.Err() != nil {
			kind = atlas.KindCancelled
		}
		return &atlas.Error{Kind: kind, Path: p.path, Err: err}
	}
	if resp == nil {
		return &atlas.Error{Kind: atlas.KindUnknown, Path: p.path, Err: errors.New("transport returned no response")}
	}
	if resp.OK() {
		return nil
	}
	return &atlas.Error{
		Kind:       atlas.StatusKind(resp.StatusCode),
		StatusCode: resp.StatusCode,
		Path:       p.path,
		Detail:     resp.Detail(),
	}
}
