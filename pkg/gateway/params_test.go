package gateway

import (
	"errors"
	"testing"
)

func TestPagingQuery_Normalize(t *testing.T) {
	tests := []struct {
		name       string
		query      PagingQuery
		expPage    int
		expPerPage int
		badParam   string
	}{
		{name: "defaults", query: DefaultPagingQuery(), expPage: 1, expPerPage: 30},
		{name: "explicit", query: PagingQuery{Page: 3, PerPage: 50}, expPage: 3, expPerPage: 50},
		{name: "per_page at max", query: PagingQuery{Page: 1, PerPage: 100}, expPage: 1, expPerPage: 100},
		{name: "per_page clamped", query: PagingQuery{Page: 2, PerPage: 1000}, expPage: 2, expPerPage: 100},
		{name: "zero page", query: PagingQuery{Page: 0, PerPage: 30}, badParam: "page"},
		{name: "negative per_page", query: PagingQuery{Page: 1, PerPage: -5}, badParam: "per_page"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.query.Normalize()

			if tt.badParam != "" {
				var paramErr *ParamError
				if !errors.As(err, &paramErr) {
					t.Fatalf("Normalize() error = %v, want *ParamError", err)
				}
				if paramErr.Param != tt.badParam {
					t.Errorf("Param = %q, want %q", paramErr.Param, tt.badParam)
				}
				return
			}

			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if got.Page != tt.expPage || got.PerPage != tt.expPerPage {
				t.Errorf("Normalize() = (%d, %d), want (%d, %d)", got.Page, got.PerPage, tt.expPage, tt.expPerPage)
			}
		})
	}
}

func TestParamError_Error(t *testing.T) {
	err := &ParamError{Param: "page", Value: "x"}
	want := "Query parameter 'page' must be a positive integer, got 'x'."
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
