package screener

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/yfscreener/filter"
	"github.com/s0up4200/yfscreener/quote"
)

// DefaultConcurrency bounds ExecuteAll
const DefaultConcurrency = 4

// BatchResult holds the outcome of ExecuteAll per query name
type BatchResult struct {
	Rows   map[string][]quote.Row
	Failed map[string]error
}

// Names returns the names of successful queries, sorted
func (r BatchResult) Names() []string {
	names := make([]string, 0, len(r.Rows))
	for name := range r.Rows {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ExecuteAll runs named queries concurrently. A failing query does not stop
// the others; its error is recorded in Failed. The returned error is only
// set when ctx ends before every query finished.
func (s *Screener) ExecuteAll(ctx context.Context, queries map[string]*filter.Query) (BatchResult, error) {
	result := BatchResult{
		Rows:   make(map[string][]quote.Row, len(queries)),
		Failed: make(map[string]error),
	}
	if len(queries) == 0 {
		return result, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	var mu sync.Mutex

	for name, q := range queries {
		name, q := name, q
		g.Go(func() error {
			rows, err := s.Execute(gctx, q)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn().Err(err).Str("query", name).Msg("Query failed")
				result.Failed[name] = err
				return nil
			}
			result.Rows[name] = rows
			return nil
		})
	}

	// every goroutine returns nil, so Wait cannot fail
	_ = g.Wait()

	return result, ctx.Err()
}
