package screener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/s0up4200/yfscreener/cache"
	"github.com/s0up4200/yfscreener/filter"
	"github.com/s0up4200/yfscreener/quote"
	"github.com/s0up4200/yfscreener/session"
	"github.com/s0up4200/yfscreener/upstream"
)

const (
	DefaultPageSize        = 250
	DefaultAttempts        = 4
	DefaultInitialInterval = time.Second
	DefaultMaxInterval     = 30 * time.Second
	DefaultMaxRetryAfter   = time.Minute

	// authAttempts is the number of full fetches tried when the upstream
	// rejects the session: the original and one with fresh credentials
	authAttempts = 2
)

// Fetcher retrieves one page of rows. *upstream.Client implements it.
type Fetcher interface {
	FetchPage(ctx context.Context, creds session.Credentials, req upstream.PageRequest) (*upstream.Page, error)
}

// Sessions hands out credentials. *session.Manager implements it.
type Sessions interface {
	Get(ctx context.Context) (session.Credentials, error)
	Invalidate(token string)
}

// EngineOptions configures pagination and retries
type EngineOptions struct {
	// PageSize caps rows per upstream request
	PageSize int
	// Attempts per page before a transient error is surfaced
	Attempts        int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxRetryAfter caps how long a rate-limit hint may delay the next attempt
	MaxRetryAfter time.Duration
	// CacheTTL is applied to stored results; zero uses the cache default
	CacheTTL time.Duration
}

func (o *EngineOptions) withDefaults() {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.Attempts <= 0 {
		o.Attempts = DefaultAttempts
	}
	if o.InitialInterval <= 0 {
		o.InitialInterval = DefaultInitialInterval
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = DefaultMaxInterval
	}
	if o.MaxRetryAfter <= 0 {
		o.MaxRetryAfter = DefaultMaxRetryAfter
	}
}

// Engine turns a built query into a result set: cache lookup, paged fetch
// with retries, sort, truncate and cache store
type Engine struct {
	fetcher  Fetcher
	sessions Sessions
	cache    *cache.Cache
	opts     EngineOptions
	logger   zerolog.Logger
}

// NewEngine creates an engine. A nil cache behaves as a disabled one.
func NewEngine(fetcher Fetcher, sessions Sessions, results *cache.Cache, opts EngineOptions, logger zerolog.Logger) *Engine {
	opts.withDefaults()
	if results == nil {
		results = cache.New(cache.Options{Enabled: false}, logger)
	}
	return &Engine{
		fetcher:  fetcher,
		sessions: sessions,
		cache:    results,
		opts:     opts,
		logger:   logger.With().Str("component", "engine").Logger(),
	}
}

// Execute runs q. Either the full, sorted result set is returned or an
// error; partial pages are never returned or cached.
func (e *Engine) Execute(ctx context.Context, q *filter.Query) ([]quote.Row, error) {
	if q == nil {
		return nil, fmt.Errorf("query is nil")
	}

	if rows, ok := e.cache.Lookup(q); ok {
		return finalize(rows, q), nil
	}

	body, err := q.Body()
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	var rows []quote.Row
	for attempt := 1; ; attempt++ {
		creds, err := e.sessions.Get(ctx)
		if err != nil {
			return nil, err
		}

		rows, err = e.fetchAll(ctx, creds, q, body)
		if err == nil {
			break
		}

		if ctx.Err() != nil || !errors.Is(err, upstream.ErrUnauthorized) {
			return nil, err
		}

		e.sessions.Invalidate(creds.Token)
		if attempt >= authAttempts {
			return nil, &session.AuthenticationError{Attempts: attempt, Err: err}
		}
		e.logger.Warn().Err(err).Msg("Session rejected, refetching with new credentials")
	}

	rows = finalize(rows, q)
	e.cache.Store(q, rows, e.opts.CacheTTL)

	e.logger.Debug().
		Str("query", q.String()).
		Int("rows", len(rows)).
		Msg("Query executed")

	return rows, nil
}

func (e *Engine) fetchAll(ctx context.Context, creds session.Credentials, q *filter.Query, body []byte) ([]quote.Row, error) {
	var (
		rows   []quote.Row
		offset int
		limit  = q.MaxResults()
	)

	for page := 1; ; page++ {
		size := e.opts.PageSize
		if limit > 0 {
			size = min(size, limit-len(rows))
		}

		p, err := e.fetchPage(ctx, creds, upstream.PageRequest{
			Query:     body,
			Offset:    offset,
			Size:      size,
			SortField: q.SortField(),
			SortOrder: string(q.SortOrder()),
		})
		if err != nil {
			return nil, err
		}

		rows = append(rows, p.Rows...)
		offset += len(p.Rows)

		e.logger.Debug().
			Int("page", page).
			Int("received", len(p.Rows)).
			Int("accumulated", len(rows)).
			Int("total_hint", p.Total).
			Msg("Page fetched")

		switch {
		case len(p.Rows) == 0, len(p.Rows) < size:
			return rows, nil
		case limit > 0 && len(rows) >= limit:
			return rows, nil
		}
	}
}

// fetchPage retries the current page on transient errors
func (e *Engine) fetchPage(ctx context.Context, creds session.Credentials, req upstream.PageRequest) (*upstream.Page, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.opts.InitialInterval
	b.MaxInterval = e.opts.MaxInterval
	b.MaxElapsedTime = 0

	hinted := &retryAfterBackOff{BackOff: b, limit: e.opts.MaxRetryAfter}
	policy := backoff.WithContext(backoff.WithMaxRetries(hinted, uint64(e.opts.Attempts-1)), ctx)

	page, err := backoff.RetryNotifyWithData(func() (*upstream.Page, error) {
		p, err := e.fetcher.FetchPage(ctx, creds, req)
		if err == nil {
			return p, nil
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		if !upstream.IsTransient(err) {
			return nil, backoff.Permanent(err)
		}

		var rle *upstream.RateLimitError
		if errors.As(err, &rle) {
			hinted.hint = rle.RetryAfter
		}
		return nil, err
	}, policy, func(err error, next time.Duration) {
		e.logger.Warn().
			Err(err).
			Int("offset", req.Offset).
			Dur("retry_in", next).
			Msg("Page fetch failed, retrying")
	})

	if err != nil && ctx.Err() != nil {
		var ne *upstream.NetworkError
		if !errors.As(err, &ne) {
			err = &upstream.NetworkError{Op: "fetch page", Err: err}
		}
	}
	return page, err
}

// retryAfterBackOff lets a rate-limit hint replace the next computed interval
type retryAfterBackOff struct {
	backoff.BackOff
	hint  time.Duration
	limit time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if b.hint > 0 {
		next = min(b.hint, b.limit)
		b.hint = 0
	}
	return next
}
