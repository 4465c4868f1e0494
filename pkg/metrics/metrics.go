// Package metrics provides the gateway's Prometheus registry, the /metrics
// handler and the route normalization shared by every metric label.
// All metrics are defined in their respective packages (client, pagination,
// ratelimit, api) to maintain modularity and avoid circular dependencies.
package metrics

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the gateway.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default gatherer in the Prometheus exposition format.
// Scrapes of the handler itself are counted on Registry.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(Registry,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		}),
	)
}

// Placeholders substituted for per-organization path segments.
const (
	OrgPlaceholder = ":org"
	IDPlaceholder  = ":id"
)

// RouteLabel turns an upstream URL or path into a bounded metric label.
// The query string is dropped and organization names or numeric IDs are
// replaced by placeholders, so /orgs/github/repos?page=2 becomes /orgs/:org/repos.
func RouteLabel(rawURL string) string {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	} else if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	if path == "" {
		return "/"
	}

	segments := strings.Split(path, "/")
	for i := 1; i < len(segments)-1; i++ {
		switch segments[i] {
		case "orgs", "users":
			if segments[i+1] != "" {
				segments[i+1] = OrgPlaceholder
			}
		case "organizations":
			if segments[i+1] != "" {
				segments[i+1] = IDPlaceholder
			}
		}
	}

	return strings.Join(segments, "/")
}

// Metrics Documentation
//
// Upstream Request Metrics (pkg/client):
//   - gateway_upstream_requests_total{route, status} (Counter): Upstream requests by route and HTTP status
//   - gateway_upstream_request_duration_seconds{route} (Histogram): Upstream request duration by route
//   - gateway_upstream_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Traversal Metrics (pkg/pagination):
//   - gateway_traversals_total{outcome} (Counter): Traversals by outcome (complete, cycle, page_limit, failed, cancelled)
//   - gateway_traversal_pages (Histogram): Pages consumed per traversal
//   - gateway_cycle_detections_total (Counter): Traversals ended by a repeated next URL
//   - gateway_malformed_link_headers_total (Counter): Link headers that yielded no link
//
// Rate Limit Metrics (pkg/ratelimit):
//   - gateway_upstream_ratelimit_remaining{resource} (Gauge): Requests remaining in the upstream window
//   - gateway_upstream_ratelimit_exhausted_total{resource} (Counter): Responses seen with an exhausted budget
//
// Inbound HTTP Metrics (pkg/api):
//   - gateway_http_requests_total{route, method, status} (Counter): Requests served by route template
//   - gateway_http_request_duration_seconds{route} (Histogram): Request duration by route template
//
// Example Prometheus Queries:
//
//   # Upstream Error Rate
//   rate(gateway_upstream_errors_total[5m])
//
//   # Share of traversals that did not complete
//   sum(rate(gateway_traversals_total{outcome!="complete"}[5m])) /
//   sum(rate(gateway_traversals_total[5m]))
//
//   # P95 Pages per Traversal
//   histogram_quantile(0.95, rate(gateway_traversal_pages_bucket[5m]))
//
//   # Rate Limit Budget
//   gateway_upstream_ratelimit_remaining{resource="core"} < 500
