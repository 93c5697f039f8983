// Package session owns the short-lived credential (crumb token plus cookies)
// the screener endpoint requires. A Manager acquires it lazily through an
// Acquirer, refreshes it when it ages out or is rejected, and gives up for
// good after repeated failed acquisitions.
package session

import (
	"net/http"
	"time"
)

// State is the lifecycle position of the managed session
type State int

const (
	Empty State = iota
	Fresh
	Stale
	Invalid
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Session is an acquired credential. It never leaves the Manager; callers
// receive Credentials snapshots instead.
type Session struct {
	Token    string
	Cookies  []*http.Cookie
	IssuedAt time.Time
	State    State
}

// Credentials is a read-only snapshot of the token and cookies
type Credentials struct {
	Token   string
	Cookies []*http.Cookie
}

func (s *Session) credentials() Credentials {
	return Credentials{
		Token:   s.Token,
		Cookies: cloneCookies(s.Cookies),
	}
}

func cloneCookies(cookies []*http.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c == nil {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out
}
