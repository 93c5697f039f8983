package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = Options{
	MaxAge:          time.Hour,
	Attempts:        3,
	InvalidAfter:    2,
	InitialInterval: time.Millisecond,
	MaxInterval:     2 * time.Millisecond,
}

type countingAcquirer struct {
	calls  atomic.Int32
	delay  time.Duration
	failN  int32 // first failN calls fail
	err    error
	tokens []string
}

func (a *countingAcquirer) Acquire(ctx context.Context) (*Session, error) {
	n := a.calls.Add(1)
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if n <= a.failN {
		if a.err != nil {
			return nil, a.err
		}
		return nil, ErrChallenge
	}
	token := "crumb"
	if len(a.tokens) > 0 {
		token = a.tokens[int(n-a.failN-1)%len(a.tokens)]
	}
	return &Session{
		Token:   token,
		Cookies: []*http.Cookie{{Name: "A3", Value: "cookie"}},
	}, nil
}

func TestManagerLazyAcquisition(t *testing.T) {
	acq := &countingAcquirer{}
	m := NewManager(acq, fastRetry, zerolog.Nop())

	assert.Equal(t, Empty, m.State())
	assert.EqualValues(t, 0, acq.calls.Load())

	creds, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "crumb", creds.Token)
	require.Len(t, creds.Cookies, 1)
	assert.Equal(t, "A3", creds.Cookies[0].Name)
	assert.Equal(t, Fresh, m.State())

	_, err = m.Get(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, acq.calls.Load(), "fresh session should be reused")
}

func TestManagerCredentialsAreSnapshots(t *testing.T) {
	m := NewManager(&countingAcquirer{}, fastRetry, zerolog.Nop())

	creds, err := m.Get(context.Background())
	require.NoError(t, err)
	creds.Cookies[0].Value = "tampered"

	again, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cookie", again.Cookies[0].Value)
}

func TestManagerConcurrentGetAcquiresOnce(t *testing.T) {
	acq := &countingAcquirer{delay: 50 * time.Millisecond}
	m := NewManager(acq, fastRetry, zerolog.Nop())

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Get(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, acq.calls.Load())
}

func TestManagerRetriesTransientFailures(t *testing.T) {
	acq := &countingAcquirer{failN: 2}
	m := NewManager(acq, fastRetry, zerolog.Nop())

	_, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, acq.calls.Load())
	assert.Equal(t, Fresh, m.State())
}

func TestManagerExhaustionAndInvalid(t *testing.T) {
	acq := &countingAcquirer{failN: 100, err: errors.New("timeout")}
	m := NewManager(acq, fastRetry, zerolog.Nop())

	_, err := m.Get(context.Background())
	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 3, authErr.Attempts)
	assert.Contains(t, err.Error(), "timeout")
	assert.NotEqual(t, Invalid, m.State())

	_, err = m.Get(context.Background())
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, Invalid, m.State())
	assert.EqualValues(t, 6, acq.calls.Load())

	_, err = m.Get(context.Background())
	assert.ErrorIs(t, err, ErrSessionInvalid)
	assert.ErrorAs(t, err, &authErr)
	assert.EqualValues(t, 6, acq.calls.Load(), "invalid manager must not acquire again")
}

func TestManagerFailureCountResetsOnSuccess(t *testing.T) {
	acq := &countingAcquirer{failN: 3}
	m := NewManager(acq, fastRetry, zerolog.Nop())

	_, err := m.Get(context.Background())
	require.Error(t, err)

	_, err = m.Get(context.Background())
	require.NoError(t, err)

	m.mu.Lock()
	failures := m.failures
	m.mu.Unlock()
	assert.Equal(t, 0, failures)
}

func TestManagerAgesOut(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	acq := &countingAcquirer{tokens: []string{"first", "second"}}
	m := NewManager(acq, fastRetry, zerolog.Nop())
	m.now = func() time.Time { return now }

	creds, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", creds.Token)

	now = now.Add(time.Hour)
	assert.Equal(t, Stale, m.State())

	creds, err = m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", creds.Token)
	assert.Equal(t, Fresh, m.State())
}

func TestManagerInvalidate(t *testing.T) {
	acq := &countingAcquirer{tokens: []string{"first", "second"}}
	m := NewManager(acq, fastRetry, zerolog.Nop())

	creds, err := m.Get(context.Background())
	require.NoError(t, err)

	m.Invalidate("someone-else")
	assert.Equal(t, Fresh, m.State(), "only the matching token is invalidated")

	m.Invalidate(creds.Token)
	assert.Equal(t, Stale, m.State())

	creds, err = m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", creds.Token)
	assert.EqualValues(t, 2, acq.calls.Load())
}

func TestManagerContextCancellation(t *testing.T) {
	acq := &countingAcquirer{delay: time.Second}
	m := NewManager(acq, fastRetry, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := m.Get(ctx)
	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotEqual(t, Invalid, m.State(), "cancellation is not an acquisition failure")
}

func TestManagerEmptyTokenIsChallenge(t *testing.T) {
	acq := AcquirerFunc(func(context.Context) (*Session, error) {
		return &Session{}, nil
	})
	m := NewManager(acq, fastRetry, zerolog.Nop())

	_, err := m.Get(context.Background())
	assert.ErrorIs(t, err, ErrChallenge)
}
