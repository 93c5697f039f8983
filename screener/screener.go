package screener

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/s0up4200/yfscreener/cache"
	"github.com/s0up4200/yfscreener/filter"
	"github.com/s0up4200/yfscreener/quote"
	"github.com/s0up4200/yfscreener/session"
	"github.com/s0up4200/yfscreener/upstream"
)

// ErrClosed is returned by a Screener after Close
var ErrClosed = errors.New("screener is closed")

// Options configures a Screener
type Options struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	ConsentURL string
	CrumbURL   string
	PageURL    string

	Cache   cache.Options
	Session session.Options
	Engine  EngineOptions

	// Concurrency bounds ExecuteAll
	Concurrency int
}

// Screener is the entry point for running screens. It owns one session slot
// and one result cache, shared by every query executed through it.
type Screener struct {
	sessions *session.Manager
	cache    *cache.Cache
	engine   *Engine

	concurrency int
	closed      atomic.Bool
	logger      zerolog.Logger
}

// New creates a screener talking to the real upstream through an HTTP
// browser handshake
func New(opts Options, logger zerolog.Logger) (*Screener, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = upstream.DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = upstream.DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = upstream.DefaultTimeout
	}
	if opts.ConsentURL == "" {
		opts.ConsentURL = session.DefaultConsentURL
	}

	browser, err := session.NewHTTPBrowser(session.BrowserOptions{
		CrumbURL:  opts.CrumbURL,
		PageURL:   opts.PageURL,
		UserAgent: opts.UserAgent,
		Timeout:   opts.Timeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser: %w", err)
	}

	client, err := upstream.NewClient(opts.BaseURL, logger,
		upstream.WithTimeout(opts.Timeout),
		upstream.WithUserAgent(opts.UserAgent),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream client: %w", err)
	}

	return NewWith(client, session.NewBrowserAcquirer(browser, opts.ConsentURL), opts, logger), nil
}

// NewWith creates a screener from explicit collaborators
func NewWith(fetcher Fetcher, acquirer session.Acquirer, opts Options, logger zerolog.Logger) *Screener {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	sessions := session.NewManager(acquirer, opts.Session, logger)
	results := cache.New(opts.Cache, logger)

	return &Screener{
		sessions:    sessions,
		cache:       results,
		engine:      NewEngine(fetcher, sessions, results, opts.Engine, logger),
		concurrency: opts.Concurrency,
		logger:      logger,
	}
}

// Query returns a builder whose Execute runs on this screener
func (s *Screener) Query() *filter.Builder {
	return filter.NewBuilder().WithExecutor(s)
}

// BuildQuery validates criteria into a query
func (s *Screener) BuildQuery(c filter.Criteria) (*filter.Query, error) {
	return c.Build()
}

// Execute runs a built query
func (s *Screener) Execute(ctx context.Context, q *filter.Query) ([]quote.Row, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return s.engine.Execute(ctx, q)
}

// Screen builds and runs criteria in one step
func (s *Screener) Screen(ctx context.Context, c filter.Criteria) ([]quote.Row, error) {
	q, err := s.BuildQuery(c)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, q)
}

// Available returns the static reference values for a categorical dimension
func (s *Screener) Available(dimension string) ([]string, error) {
	return filter.Available(dimension)
}

// SessionState reports the state of the owned session
func (s *Screener) SessionState() session.State {
	return s.sessions.State()
}

// ClearCache drops every cached result
func (s *Screener) ClearCache() {
	s.cache.Clear()
}

// PurgeCache drops expired cached results and returns how many were removed
func (s *Screener) PurgeCache() int {
	return s.cache.Purge()
}

// Close drops the cache and rejects further executions
func (s *Screener) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.cache.Clear()
	return nil
}
