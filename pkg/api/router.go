// Package api exposes the gateway over HTTP.
//
// Routes:
//
//	GET /                            service descriptor
//	GET /orgs                        one page of public organizations
//	GET /orgs/:name                  organization details
//	GET /orgs/:name/repos            every public repository of an organization
//	GET /orgs/:name/repos/biggest    largest public repository by size
//	GET /health, /ready              liveness and readiness
//	GET /metrics                     Prometheus metrics
//	GET /ratelimit                   last observed upstream rate-limit budget
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/ulule/limiter/v3"

	"github.com/Sternrassler/github-orgs-gateway/pkg/metrics"
)

// Options wires the router's collaborators. Only Gateway is required.
type Options struct {
	Gateway Gateway

	// RateLimits serves /ratelimit; nil reports tracking as off.
	RateLimits RateLimitReader

	// Ready is pinged by /ready; nil means always ready.
	Ready Pinger

	// Limiter throttles inbound requests; nil disables throttling.
	Limiter *limiter.Limiter

	RequestTimeout time.Duration
	Logger         zerolog.Logger
}

// NewRouter builds the gin engine serving every route.
func NewRouter(opts Options) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(
		RequestID(opts.Logger),
		AccessLog(),
		Metrics(),
		Recovery(),
		CORS(),
	)

	h := &handlers{
		gateway:    opts.Gateway,
		rateLimits: opts.RateLimits,
		ready:      opts.Ready,
	}

	router.GET("/health", h.health)
	router.GET("/ready", h.readiness)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	public := router.Group("/")
	public.Use(RateLimit(opts.Limiter, opts.Logger), Timeout(opts.RequestTimeout))
	{
		public.GET("/", h.root)
		public.GET("/ratelimit", h.rateLimit)
		public.GET("/orgs", h.listOrganizations)
		public.GET("/orgs/:name", h.getOrganization)
		public.GET("/orgs/:name/repos", h.listRepositories)
		public.GET("/orgs/:name/repos/biggest", h.biggestRepository)
	}

	return router
}
