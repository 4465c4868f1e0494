// Package client provides the GitHub REST API client used by the gateway.
// It attaches the gateway's credential, decodes list pages for the
// pagination driver and records request metrics and rate-limit state.
// The client never retries: a failed request is reported once.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/Sternrassler/github-orgs-gateway/pkg/metrics"
	"github.com/Sternrassler/github-orgs-gateway/pkg/pagination"
	"github.com/Sternrassler/github-orgs-gateway/pkg/ratelimit"
	"github.com/Sternrassler/github-orgs-gateway/pkg/upstream"
)

// Prometheus metrics for upstream requests.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_upstream_requests_total",
		Help: "Total upstream requests by route and status",
	}, []string{"route", "status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds by route",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"route"})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_upstream_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})
)

const (
	// DefaultBaseURL is the public GitHub REST API.
	DefaultBaseURL = "https://api.github.com"

	// DefaultUserAgent identifies the gateway to the upstream.
	DefaultUserAgent = "github-orgs-gateway/1.0"

	// DefaultAPIVersion is sent as X-GitHub-Api-Version.
	DefaultAPIVersion = "2022-11-28"

	// MediaType is the Accept header GitHub recommends.
	MediaType = "application/vnd.github+json"

	// maxBodyBytes bounds how much of a response body is read.
	maxBodyBytes = 32 << 20
)

// Client is the upstream GitHub client.
type Client struct {
	httpClient *http.Client
	rateLimits ratelimit.Recorder
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the upstream API, without trailing slash.
	BaseURL string

	// Token is the gateway's credential, sent as a bearer token.
	// Empty means anonymous requests.
	Token string

	// UserAgent header (required by GitHub).
	UserAgent string

	// APIVersion is sent as X-GitHub-Api-Version when set.
	APIVersion string

	// Timeout bounds a whole request. 0 disables it.
	Timeout time.Duration

	// Transport is the base round tripper (default http.DefaultTransport).
	Transport http.RoundTripper
}

// DefaultConfig returns a default configuration for the public API.
func DefaultConfig(token string) Config {
	return Config{
		BaseURL:    DefaultBaseURL,
		Token:      token,
		UserAgent:  DefaultUserAgent,
		APIVersion: DefaultAPIVersion,
		Timeout:    30 * time.Second,
	}
}

// New creates a new upstream client. rateLimits may be nil.
func New(cfg Config, rateLimits ratelimit.Recorder) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if rateLimits == nil {
		rateLimits = ratelimit.NopRecorder{}
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if cfg.Token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}),
			Base:   transport,
		}
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		rateLimits: rateLimits,
		config:     cfg,
		logger:     log.With().Str("component", "client").Logger(),
	}, nil
}

// BaseURL returns the configured upstream base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// URL builds an absolute upstream URL from a path and query.
func (c *Client) URL(path string, query url.Values) string {
	u := c.config.BaseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Do performs an upstream request, recording metrics and rate-limit state.
// Responses with a failure status are returned, not converted to errors;
// the error return is reserved for requests that obtained no response.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	route := metrics.RouteLabel(req.URL.Path)

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", MediaType)
	if c.config.APIVersion != "" {
		req.Header.Set("X-GitHub-Api-Version", c.config.APIVersion)
	}

	c.logger.Debug().
		Str("route", route).
		Str("method", req.Method).
		Msg("Executing upstream request")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	upstreamRequestDuration.WithLabelValues(route).Observe(time.Since(startTime).Seconds())

	if err != nil {
		errClass := ClassifyError(nil, err)
		upstreamErrorsTotal.WithLabelValues(string(errClass)).Inc()
		upstreamRequestsTotal.WithLabelValues(route, "network_error").Inc()

		// A cancelled inbound request is not an upstream failure.
		if ctx.Err() == context.Canceled {
			c.logger.Debug().Err(err).Str("route", route).Msg("Upstream request cancelled")
		} else {
			c.logger.Error().Err(err).Str("route", route).Msg("Upstream request failed")
		}
		return nil, err
	}

	upstreamRequestsTotal.WithLabelValues(route, strconv.Itoa(resp.StatusCode)).Inc()

	if err := c.rateLimits.UpdateFromHeaders(ctx, resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
	}

	if resp.StatusCode >= 400 {
		errClass := ClassifyError(resp, nil)
		upstreamErrorsTotal.WithLabelValues(string(errClass)).Inc()

		c.logger.Warn().
			Str("route", route).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Upstream request error")
	}

	return resp, nil
}

// Get performs a GET request to an absolute upstream URL.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// FetchPage fetches one list page. It implements pagination.PageFetcher.
// Bodies may be a JSON array or a search-style object with items and total_count.
func (c *Client) FetchPage(ctx context.Context, rawURL string) (pagination.Page, error) {
	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return pagination.Page{}, err
	}
	defer resp.Body.Close()

	page := pagination.Page{
		Status:     resp.StatusCode,
		Link:       resp.Header.Get("Link"),
		TotalCount: -1,
	}

	if resp.StatusCode != http.StatusOK {
		page.Code = upstream.CodeForStatus(resp.StatusCode)
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return page, nil
	}

	body, err := readBody(resp)
	if err != nil {
		return pagination.Page{}, err
	}

	page.Items, page.TotalCount, err = decodeItems(body)
	if err != nil {
		return pagination.Page{}, fmt.Errorf("decode page %s: %w", metrics.RouteLabel(rawURL), err)
	}

	c.logger.Debug().
		Str("route", metrics.RouteLabel(rawURL)).
		Int("items", len(page.Items)).
		Bool("has_link", page.Link != "").
		Msg("Fetched page")

	return page, nil
}

// Object is a single upstream document.
type Object struct {
	// Status is the upstream HTTP status.
	Status int
	// Code is the upstream error code for non-200 responses.
	Code string
	// Body is the decoded document for 200 responses.
	Body map[string]any
}

// FetchObject fetches a single JSON object.
func (c *Client) FetchObject(ctx context.Context, rawURL string) (Object, error) {
	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return Object{}, err
	}
	defer resp.Body.Close()

	obj := Object{Status: resp.StatusCode}
	if resp.StatusCode != http.StatusOK {
		obj.Code = upstream.CodeForStatus(resp.StatusCode)
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return obj, nil
	}

	body, err := readBody(resp)
	if err != nil {
		return Object{}, err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&obj.Body); err != nil || obj.Body == nil {
		if err == nil {
			err = errors.New("expected a JSON object")
		}
		return Object{}, fmt.Errorf("decode object %s: %w: %w", metrics.RouteLabel(rawURL), upstream.ErrMalformedResponse, err)
	}

	return obj, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

// searchBody is the envelope of search endpoints.
type searchBody struct {
	TotalCount *json.Number       `json:"total_count"`
	Items      *[]pagination.Item `json:"items"`
}

// decodeItems decodes a list body. The returned total is -1 for plain arrays.
func decodeItems(body []byte) ([]pagination.Item, int, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, -1, fmt.Errorf("%w: empty body", upstream.ErrMalformedResponse)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	switch trimmed[0] {
	case '[':
		items := []pagination.Item{}
		if err := dec.Decode(&items); err != nil {
			return nil, -1, fmt.Errorf("%w: %w", upstream.ErrMalformedResponse, err)
		}
		return items, -1, nil

	case '{':
		var envelope searchBody
		if err := dec.Decode(&envelope); err != nil {
			return nil, -1, fmt.Errorf("%w: %w", upstream.ErrMalformedResponse, err)
		}
		if envelope.Items == nil {
			return nil, -1, fmt.Errorf("%w: object body without items", upstream.ErrMalformedResponse)
		}

		total := -1
		if envelope.TotalCount != nil {
			n, err := envelope.TotalCount.Int64()
			if err != nil {
				return nil, -1, fmt.Errorf("%w: total_count: %w", upstream.ErrMalformedResponse, err)
			}
			total = int(n)
		}
		return *envelope.Items, total, nil

	default:
		return nil, -1, fmt.Errorf("%w: expected a JSON array or object", upstream.ErrMalformedResponse)
	}
}
