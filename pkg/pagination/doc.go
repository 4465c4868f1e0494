// Package pagination follows cursor-style pagination of the upstream API and
// folds the pages into an aggregate.
//
// The upstream announces continuation pages in an RFC 5988 Link header
// (`<url>; rel="next"`). The Driver starts from a seed URL, fetches one page
// at a time through a PageFetcher, hands each page's items to an Aggregator
// and follows the next link until there is none. Pages are never fetched in
// parallel: first-seen tie-breaking in MaxByField depends on fetch order.
//
// Example usage:
//
//	driver := pagination.NewDriver(githubClient, pagination.DefaultConfig())
//	result, err := driver.Traverse(ctx, pagination.Request{
//		SeedURL: "https://api.github.com/orgs/trifork/repos?page=1&per_page=100",
//		Subject: upstream.Subject{Noun: "Organization", Name: "trifork"},
//	}, pagination.NewMaxByField("size"))
//
// The driver:
//   - Stops when a next link points at a URL it already fetched (cycle guard)
//   - Fails the whole traversal on the first non-200 page; no partial aggregate
//   - Treats a malformed Link header as "no next page"
//   - Bounds every page fetch with Config.PageTimeout
//   - Stops between pages once the context is cancelled
//
// Two aggregators are provided: CollectAll and MaxByField.
package pagination
