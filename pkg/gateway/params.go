package gateway

import (
	"fmt"
)

// CodeBadParam is the error code of rejected query parameters.
const CodeBadParam = "ERR_BAD_PARAM"

// ParamError reports an invalid inbound query parameter.
type ParamError struct {
	Param string
	Value string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("Query parameter '%s' must be a positive integer, got '%s'.", e.Param, e.Value)
}

// PagingQuery holds the query parameters of the organization listing.
type PagingQuery struct {
	Page    int `form:"page"`
	PerPage int `form:"per_page"`
}

// DefaultPagingQuery returns the values used for absent parameters.
func DefaultPagingQuery() PagingQuery {
	return PagingQuery{
		Page:    DefaultPage,
		PerPage: DefaultPerPage,
	}
}

// Normalize rejects values below 1 and clamps PerPage to MaxPerPage.
func (q PagingQuery) Normalize() (PagingQuery, error) {
	if q.Page < 1 {
		return PagingQuery{}, &ParamError{Param: "page", Value: fmt.Sprint(q.Page)}
	}
	if q.PerPage < 1 {
		return PagingQuery{}, &ParamError{Param: "per_page", Value: fmt.Sprint(q.PerPage)}
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	return q, nil
}
