package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/github-orgs-gateway/pkg/gateway"
	"github.com/Sternrassler/github-orgs-gateway/pkg/pagination"
	"github.com/Sternrassler/github-orgs-gateway/pkg/upstream"
)

// StatusClientClosedRequest is recorded when the caller went away before the answer.
const StatusClientClosedRequest = 499

// Local error codes.
const (
	CodePageLimit = "ERR_PAGE_LIMIT"
	CodeInternal  = "ERR_INTERNAL"
	CodeRateLimit = "ERR_RATE_LIMITED"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status      int    `json:"status"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

// StatusFor maps an upstream error kind to the status the gateway answers with.
func StatusFor(err *upstream.Error) int {
	switch err.Kind {
	case upstream.KindNotFound:
		return http.StatusNotFound
	case upstream.KindUnavailable:
		return http.StatusServiceUnavailable
	case upstream.KindMalformed:
		return http.StatusBadGateway
	default:
		if err.Status >= 400 && err.Status <= 599 {
			return err.Status
		}
		return http.StatusBadGateway
	}
}

// writeError answers a failed request. A caller that disconnected gets no body.
func writeError(c *gin.Context, err error) {
	logger := zerolog.Ctx(c.Request.Context())

	var (
		upErr    *upstream.Error
		paramErr *gateway.ParamError
	)

	switch {
	case errors.As(err, &paramErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Status:      http.StatusBadRequest,
			Code:        gateway.CodeBadParam,
			Description: paramErr.Error(),
		})

	case errors.As(err, &upErr):
		status := StatusFor(upErr)
		code := upErr.Code
		if code == "" {
			code = upstream.CodeUnknown
		}
		c.AbortWithStatusJSON(status, ErrorResponse{
			Status:      status,
			Code:        code,
			Description: upErr.Description,
		})

	case errors.Is(err, pagination.ErrPageLimitExceeded):
		logger.Error().Err(err).Msg("Traversal exceeded the page limit")
		c.AbortWithStatusJSON(http.StatusBadGateway, ErrorResponse{
			Status:      http.StatusBadGateway,
			Code:        CodePageLimit,
			Description: "GithubAPI returned more pages than this gateway is configured to follow.",
		})

	case errors.Is(err, context.DeadlineExceeded):
		c.AbortWithStatusJSON(http.StatusGatewayTimeout, ErrorResponse{
			Status:      http.StatusGatewayTimeout,
			Code:        upstream.CodeTimeout,
			Description: "Request timed out before GithubAPI answered.",
		})

	case errors.Is(err, context.Canceled):
		c.AbortWithStatus(StatusClientClosedRequest)

	default:
		logger.Error().Err(err).Msg("Unexpected error")
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Status: http.StatusInternalServerError,
			Code:   CodeInternal,
		})
	}
}
