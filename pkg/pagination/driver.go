package pagination

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/github-orgs-gateway/pkg/upstream"
)

// Traversal outcomes used as metric label values.
const (
	OutcomeComplete  = "complete"
	OutcomeCycle     = "cycle"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
	OutcomePageLimit = "page_limit"
)

// Prometheus metrics for traversals.
var (
	traversalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_traversals_total",
		Help: "Total pagination traversals by outcome",
	}, []string{"outcome"})

	traversalPages = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_traversal_pages",
		Help:    "Pages fetched per finished traversal",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
	})

	cycleDetectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_cycle_detections_total",
		Help: "Traversals stopped because a next link repeated an already visited URL",
	})

	malformedLinksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_malformed_link_headers_total",
		Help: "Link headers that were present but yielded no parseable entry",
	})
)

// ErrPageLimitExceeded is returned when a traversal needs more pages than
// Config.MaxPages allows. The partial aggregate is discarded.
var ErrPageLimitExceeded = errors.New("page limit exceeded")

// Config holds driver configuration.
type Config struct {
	// PageTimeout bounds each individual page fetch.
	PageTimeout time.Duration
	// MaxPages fails traversals that would fetch more pages. 0 means unlimited.
	MaxPages int
}

// DefaultConfig returns the default driver configuration.
func DefaultConfig() Config {
	return Config{
		PageTimeout: 15 * time.Second,
		MaxPages:    0,
	}
}

// Request describes one traversal.
type Request struct {
	// SeedURL is the first page to fetch.
	SeedURL string
	// Subject names the requested resource for error descriptions.
	// An empty Subject.Route is filled from the seed URL.
	Subject upstream.Subject
	// PageLimit stops the traversal cleanly after this many pages.
	// 0 follows next links until the upstream reports no more.
	PageLimit int
}

// Driver follows next links from a seed URL and feeds every page to an Aggregator.
// A Driver holds no per-traversal state and is safe for concurrent use.
type Driver struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// NewDriver creates a new pagination driver.
func NewDriver(fetcher PageFetcher, config Config) *Driver {
	if config.PageTimeout <= 0 {
		config.PageTimeout = 15 * time.Second
	}
	if config.MaxPages < 0 {
		config.MaxPages = 0
	}

	return &Driver{
		fetcher: fetcher,
		config:  config,
		logger:  log.With().Str("component", "pagination").Logger(),
	}
}

// Traverse fetches pages strictly in link order until no next link remains,
// a next link repeats a visited URL, or the request's page limit is reached,
// and returns the aggregator's finalized value.
//
// Any failed page ends the traversal with an error and no result: an
// *upstream.Error for upstream failures, ErrPageLimitExceeded when
// Config.MaxPages is hit, or the context error on cancellation.
func (d *Driver) Traverse(ctx context.Context, req Request, agg Aggregator) (Result, error) {
	start := time.Now()

	subject := req.Subject
	if subject.Route == "" {
		subject.Route = routeOf(req.SeedURL)
	}

	visited := make(map[string]struct{})
	current := req.SeedURL
	pagesFetched := 0
	totalCount := -1
	outcome := OutcomeComplete

	for current != "" {
		if _, seen := visited[current]; seen {
			d.logger.Warn().
				Str("url", current).
				Int("pages", pagesFetched).
				Msg("Next link revisits a fetched page - stopping traversal")
			cycleDetectionsTotal.Inc()
			outcome = OutcomeCycle
			break
		}

		if req.PageLimit > 0 && pagesFetched >= req.PageLimit {
			break
		}

		if d.config.MaxPages > 0 && pagesFetched >= d.config.MaxPages {
			d.logger.Warn().
				Str("seed", req.SeedURL).
				Int("max_pages", d.config.MaxPages).
				Msg("Traversal exceeded page limit")
			d.finish(OutcomePageLimit, pagesFetched)
			return Result{}, fmt.Errorf("%w: more than %d pages from %s", ErrPageLimitExceeded, d.config.MaxPages, subject.Route)
		}

		if err := ctx.Err(); err != nil {
			d.finish(OutcomeCancelled, pagesFetched)
			return Result{}, fmt.Errorf("traversal abandoned after %d pages: %w", pagesFetched, err)
		}

		visited[current] = struct{}{}

		page, err := d.fetch(ctx, current)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				d.finish(OutcomeCancelled, pagesFetched)
				return Result{}, fmt.Errorf("traversal abandoned after %d pages: %w", pagesFetched, ctxErr)
			}

			var upErr *upstream.Error
			if errors.Is(err, upstream.ErrMalformedResponse) {
				upErr = upstream.Malformed(err, subject)
			} else {
				upErr = upstream.FromTransport(err, subject)
			}
			d.logger.Warn().
				Err(err).
				Str("url", current).
				Str("error_kind", string(upErr.Kind)).
				Int("pages", pagesFetched).
				Msg("Page fetch failed")
			d.finish(OutcomeFailed, pagesFetched)
			return Result{}, upErr
		}

		if page.Status != http.StatusOK {
			upErr := upstream.Translate(page.Status, page.Code, subject)
			d.logger.Warn().
				Str("url", current).
				Int("status", page.Status).
				Str("error_kind", string(upErr.Kind)).
				Int("pages", pagesFetched).
				Msg("Upstream returned failure status")
			d.finish(OutcomeFailed, pagesFetched)
			return Result{}, upErr
		}

		agg.Consume(page.Items)
		if pagesFetched == 0 {
			totalCount = page.TotalCount
		}

		current = d.nextURL(page.Link)
		pagesFetched++

		d.logger.Debug().
			Int("page", pagesFetched).
			Int("items", len(page.Items)).
			Bool("has_next", current != "").
			Msg("Page consumed")
	}

	result := agg.Finalize()
	result.Pages = pagesFetched
	result.TotalCount = totalCount

	d.finish(outcome, pagesFetched)
	d.logger.Info().
		Str("route", subject.Route).
		Int("pages", pagesFetched).
		Int("items", result.Examined).
		Dur("duration", time.Since(start)).
		Msg("Traversal complete")

	return result, nil
}

// fetch performs one page fetch under the per-page timeout.
func (d *Driver) fetch(ctx context.Context, pageURL string) (Page, error) {
	pageCtx, cancel := context.WithTimeout(ctx, d.config.PageTimeout)
	defer cancel()

	return d.fetcher.FetchPage(pageCtx, pageURL)
}

// nextURL extracts the continuation link. A present but unparseable header
// ends the traversal like an absent one.
func (d *Driver) nextURL(header string) string {
	if header == "" {
		return ""
	}

	links := ParseLinks(header)
	if len(links) == 0 {
		malformedLinksTotal.Inc()
		d.logger.Warn().
			Str("link", header).
			Msg("Malformed Link header - treating as last page")
		return ""
	}

	next, _ := FindRel(links, RelNext)
	return next
}

func (d *Driver) finish(outcome string, pages int) {
	traversalsTotal.WithLabelValues(outcome).Inc()
	traversalPages.Observe(float64(pages))
}

// routeOf strips the query from a URL for use in descriptions.
func routeOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
