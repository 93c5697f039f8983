// Package upstream is the client for the remote screener endpoint.
//
// A request carries the nested filter tree produced by the filter package
// as its query, plus paging and sort parameters:
//
//	page, err := client.FetchPage(ctx, creds, upstream.PageRequest{
//		Query:     body,
//		Offset:    0,
//		Size:      250,
//		SortField: "ticker",
//		SortOrder: "asc",
//	})
//
// # Error Handling
//
// Every failure is classified so callers can decide whether to retry:
//
//   - ErrUnauthorized: the crumb or cookies were rejected (401/403)
//   - RateLimitError: the upstream is throttling (429), with a retry-after hint
//   - NetworkError: transport failure or any other unexpected status
//   - ResponseError: the body could not be interpreted
//
// IsTransient reports true for the rate limit and network kinds.
package upstream
