package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/github-orgs-gateway/pkg/gateway"
	"github.com/Sternrassler/github-orgs-gateway/pkg/ratelimit"
)

// Gateway is the set of read operations the routes expose.
type Gateway interface {
	ListOrganizations(ctx context.Context, page, perPage int) (*gateway.OrganizationList, error)
	GetOrganization(ctx context.Context, name string) (*gateway.Organization, error)
	ListRepositories(ctx context.Context, name string) (*gateway.RepositoryList, error)
	BiggestRepository(ctx context.Context, name string) (*gateway.BiggestRepository, error)
}

// RateLimitReader exposes the last observed upstream budget.
type RateLimitReader interface {
	States(ctx context.Context) ([]ratelimit.RateLimitState, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RateLimitResponse is the body of the rate limit route.
type RateLimitResponse struct {
	Tracking  bool                       `json:"tracking"`
	Resources []ratelimit.RateLimitState `json:"resources"`
}

type handlers struct {
	gateway    Gateway
	rateLimits RateLimitReader
	ready      Pinger
}

func (h *handlers) root(c *gin.Context) {
	c.JSON(http.StatusOK, descriptor)
}

func (h *handlers) listOrganizations(c *gin.Context) {
	query, err := bindPaging(c)
	if err != nil {
		writeError(c, err)
		return
	}

	list, err := h.gateway.ListOrganizations(c.Request.Context(), query.Page, query.PerPage)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// bindPaging binds the listing's query onto the defaults and validates it.
func bindPaging(c *gin.Context) (gateway.PagingQuery, error) {
	query := gateway.DefaultPagingQuery()
	if err := c.ShouldBindQuery(&query); err != nil {
		param := "page"
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && numErr.Num != c.Query("page") {
			param = "per_page"
		}
		return query, &gateway.ParamError{Param: param, Value: c.Query(param)}
	}
	return query.Normalize()
}

func (h *handlers) getOrganization(c *gin.Context) {
	org, err := h.gateway.GetOrganization(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, org)
}

func (h *handlers) listRepositories(c *gin.Context) {
	repos, err := h.gateway.ListRepositories(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, repos)
}

func (h *handlers) biggestRepository(c *gin.Context) {
	repo, err := h.gateway.BiggestRepository(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, repo)
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) readiness(c *gin.Context) {
	if h.ready != nil {
		if err := h.ready.Ping(c.Request.Context()); err != nil {
			zerolog.Ctx(c.Request.Context()).Warn().Err(err).Msg("Readiness check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"error":  "redis unavailable",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *handlers) rateLimit(c *gin.Context) {
	if h.rateLimits == nil {
		c.JSON(http.StatusOK, RateLimitResponse{Resources: []ratelimit.RateLimitState{}})
		return
	}

	states, err := h.rateLimits.States(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if states == nil {
		states = []ratelimit.RateLimitState{}
	}
	c.JSON(http.StatusOK, RateLimitResponse{Tracking: true, Resources: states})
}
