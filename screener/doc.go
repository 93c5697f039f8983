// Package screener executes stock screens against the remote screener
// endpoint.
//
// A Screener owns one session slot and one result cache. Queries are built
// with the filter package, either fluently:
//
//	s, err := screener.New(screener.Options{Cache: cache.Options{Enabled: true}}, logger)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	rows, err := s.Query().
//		Price(filter.Between(10, 100)).
//		Sector("Technology").
//		Limit(50).
//		Execute(ctx)
//
// or from a flat filter.Criteria record:
//
//	rows, err := s.Screen(ctx, filter.Criteria{MinMarketCap: &minCap, Sectors: []string{"Energy"}})
//
// # Execution
//
// Each execution consults the cache first. On a miss the engine obtains
// credentials, requests pages until the result cap is reached or the upstream
// runs dry, retries a failing page on rate-limit and network errors, and
// refetches once from scratch with new credentials if the session is
// rejected. Rows are then sorted client-side, truncated and cached. A failed
// execution never returns or caches partial results.
//
// Without an explicit region every query is restricted to "us"; call
// Region() with no codes to search all regions.
package screener
