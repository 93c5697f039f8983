package session

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Acquirer performs one handshake attempt. Retry policy belongs to the
// Manager, so implementations should fail fast.
type Acquirer interface {
	Acquire(ctx context.Context) (*Session, error)
}

// AcquirerFunc adapts a function to Acquirer
type AcquirerFunc func(ctx context.Context) (*Session, error)

func (f AcquirerFunc) Acquire(ctx context.Context) (*Session, error) {
	return f(ctx)
}

// Browser is the page-driving capability used by the handshake
type Browser interface {
	// Open loads url and returns the cookies it set
	Open(ctx context.Context, url string) ([]*http.Cookie, error)
	// ExtractToken obtains the crumb for the session opened so far
	ExtractToken(ctx context.Context) (string, error)
}

// BrowserAcquirer acquires sessions by opening the consent page with a
// Browser and extracting the token afterwards
type BrowserAcquirer struct {
	browser Browser
	url     string
	now     func() time.Time
}

// NewBrowserAcquirer creates an acquirer that opens url on each attempt
func NewBrowserAcquirer(browser Browser, url string) *BrowserAcquirer {
	return &BrowserAcquirer{
		browser: browser,
		url:     url,
		now:     time.Now,
	}
}

func (a *BrowserAcquirer) Acquire(ctx context.Context) (*Session, error) {
	cookies, err := a.browser.Open(ctx, a.url)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", a.url, err)
	}

	token, err := a.browser.ExtractToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract token: %w", err)
	}
	if token == "" {
		return nil, ErrChallenge
	}

	return &Session{
		Token:    token,
		Cookies:  cookies,
		IssuedAt: a.now(),
		State:    Fresh,
	}, nil
}
