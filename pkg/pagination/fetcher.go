package pagination

import (
	"context"
	"encoding/json"
)

// Item is one element of a page: an opaque field-name to value mapping.
type Item map[string]any

// Page is the outcome of one page fetch.
type Page struct {
	// Status is the upstream HTTP status.
	Status int
	// Code is the upstream error code for non-200 pages.
	Code string
	// Items are the decoded elements, in upstream order.
	Items []Item
	// Link is the raw Link header value, unparsed.
	Link string
	// TotalCount is the total reported by search-style bodies, or -1.
	TotalCount int
}

// PageFetcher is the capability the driver needs from the upstream client.
// A returned error means no response was obtained (network failure, timeout,
// unreadable body); an upstream failure status is reported through Page.Status.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (Page, error)
}

// PageFetcherFunc adapts a function to the PageFetcher interface.
type PageFetcherFunc func(ctx context.Context, url string) (Page, error)

// FetchPage calls f.
func (f PageFetcherFunc) FetchPage(ctx context.Context, url string) (Page, error) {
	return f(ctx, url)
}

// NumericField reads a numeric field of an item.
// It reports false when the field is absent or not a number.
func NumericField(item Item, field string) (float64, bool) {
	switch v := item[field].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
