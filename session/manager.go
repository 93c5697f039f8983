package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultMaxAge          = 30 * time.Minute
	DefaultAttempts        = 3
	DefaultInvalidAfter    = 3
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 10 * time.Second
)

// Options configures a Manager
type Options struct {
	// MaxAge after which a fresh session is considered stale
	MaxAge time.Duration
	// Attempts per acquisition before giving up with AuthenticationError
	Attempts int
	// InvalidAfter consecutive failed acquisitions the manager turns Invalid
	InvalidAfter    int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (o *Options) withDefaults() {
	if o.MaxAge <= 0 {
		o.MaxAge = DefaultMaxAge
	}
	if o.Attempts <= 0 {
		o.Attempts = DefaultAttempts
	}
	if o.InvalidAfter <= 0 {
		o.InvalidAfter = DefaultInvalidAfter
	}
	if o.InitialInterval <= 0 {
		o.InitialInterval = DefaultInitialInterval
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = DefaultMaxInterval
	}
}

// Manager owns one session slot. It is safe for concurrent use; at most one
// acquisition runs at a time and concurrent callers wait for it.
type Manager struct {
	acquirer Acquirer
	opts     Options

	mu       sync.Mutex
	current  *Session
	failures int
	invalid  bool

	group singleflight.Group

	now    func() time.Time
	logger zerolog.Logger
}

// NewManager creates a manager with an empty session slot
func NewManager(acquirer Acquirer, opts Options, logger zerolog.Logger) *Manager {
	opts.withDefaults()
	return &Manager{
		acquirer: acquirer,
		opts:     opts,
		now:      time.Now,
		logger:   logger.With().Str("component", "session").Logger(),
	}
}

// State reports where the session is in its lifecycle
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.stateLocked()
}

func (m *Manager) stateLocked() State {
	switch {
	case m.invalid:
		return Invalid
	case m.current == nil:
		return Empty
	case m.current.State == Stale || m.now().Sub(m.current.IssuedAt) >= m.opts.MaxAge:
		return Stale
	default:
		return Fresh
	}
}

// Get returns credentials from a fresh session, acquiring one first when the
// slot is empty or stale. The caller's context bounds only its own wait.
func (m *Manager) Get(ctx context.Context) (Credentials, error) {
	for {
		m.mu.Lock()
		switch m.stateLocked() {
		case Invalid:
			m.mu.Unlock()
			return Credentials{}, &AuthenticationError{Err: ErrSessionInvalid}
		case Fresh:
			creds := m.current.credentials()
			m.mu.Unlock()
			return creds, nil
		}
		m.mu.Unlock()

		ch := m.group.DoChan("acquire", func() (any, error) {
			return m.acquire(ctx)
		})

		select {
		case <-ctx.Done():
			return Credentials{}, &AuthenticationError{Err: ctx.Err()}
		case res := <-ch:
			if res.Err == nil {
				return res.Val.(Credentials), nil
			}
			// the acquisition we joined was cancelled by its own caller
			if isContextError(res.Err) && ctx.Err() == nil {
				continue
			}
			return Credentials{}, res.Err
		}
	}
}

// Invalidate marks the session stale if it still carries token. A session
// refreshed in the meantime by another caller is left alone.
func (m *Manager) Invalidate(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && m.current.Token == token && m.current.State == Fresh {
		m.current.State = Stale
		m.logger.Debug().Msg("Session marked stale")
	}
}

func (m *Manager) acquire(ctx context.Context) (Credentials, error) {
	m.mu.Lock()
	// another flight may have finished between our state check and this one
	if state := m.stateLocked(); state == Fresh {
		creds := m.current.credentials()
		m.mu.Unlock()
		return creds, nil
	} else if state == Invalid {
		m.mu.Unlock()
		return Credentials{}, &AuthenticationError{Err: ErrSessionInvalid}
	}
	m.mu.Unlock()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.opts.InitialInterval
	b.MaxInterval = m.opts.MaxInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(m.opts.Attempts-1)), ctx)

	attempts := 0
	sess, err := backoff.RetryNotifyWithData(func() (*Session, error) {
		attempts++
		m.logger.Debug().Int("attempt", attempts).Msg("Acquiring session")

		s, err := m.acquirer.Acquire(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, err
		}
		if s == nil || s.Token == "" {
			return nil, ErrChallenge
		}
		return s, nil
	}, policy, func(err error, next time.Duration) {
		m.logger.Warn().Err(err).Int("attempt", attempts).Dur("retry_in", next).Msg("Session acquisition failed, retrying")
	})

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		if isContextError(err) {
			return Credentials{}, &AuthenticationError{Attempts: attempts, Err: err}
		}

		m.failures++
		if m.failures >= m.opts.InvalidAfter {
			m.invalid = true
			m.logger.Error().Err(err).Int("failures", m.failures).Msg("Giving up on session acquisition")
		}
		return Credentials{}, &AuthenticationError{Attempts: attempts, Err: err}
	}

	if sess.IssuedAt.IsZero() {
		sess.IssuedAt = m.now()
	}
	sess.State = Fresh
	sess.Cookies = cloneCookies(sess.Cookies)
	m.current = sess
	m.failures = 0

	m.logger.Info().Int("attempts", attempts).Int("cookies", len(sess.Cookies)).Msg("Session acquired")
	return sess.credentials(), nil
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
