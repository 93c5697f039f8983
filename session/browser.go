package session

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const (
	DefaultConsentURL = "https://finance.yahoo.com"
	DefaultCrumbURL   = "https://query2.finance.yahoo.com/v1/test/getcrumb"
	DefaultPageURL    = "https://finance.yahoo.com/screener/new"
	DefaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var crumbPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"crumb":"([^"]+)"`),
	regexp.MustCompile(`crumb["']?\s*:\s*["']([^"']+)["']`),
	regexp.MustCompile(`CrumbStore.*?"crumb":"([^"]+)"`),
}

// BrowserOptions configures an HTTPBrowser
type BrowserOptions struct {
	CrumbURL  string
	PageURL   string
	UserAgent string
	Timeout   time.Duration
}

// HTTPBrowser is a cookie-keeping HTTP client standing in for a headless
// browser. It cannot execute scripts, so pages that require them surface
// as ErrChallenge.
type HTTPBrowser struct {
	client   *resty.Client
	jar      http.CookieJar
	crumbURL string
	pageURL  string
	logger   zerolog.Logger
}

// NewHTTPBrowser creates a browser with an empty cookie jar
func NewHTTPBrowser(opts BrowserOptions, logger zerolog.Logger) (*HTTPBrowser, error) {
	if opts.CrumbURL == "" {
		opts.CrumbURL = DefaultCrumbURL
	}
	if opts.PageURL == "" {
		opts.PageURL = DefaultPageURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	client := resty.New()
	client.SetCookieJar(jar)
	client.SetHeader("user-agent", opts.UserAgent)
	client.SetHeader("accept-language", "en-US,en;q=0.9")
	client.SetTimeout(opts.Timeout)

	return &HTTPBrowser{
		client:   client,
		jar:      jar,
		crumbURL: opts.CrumbURL,
		pageURL:  opts.PageURL,
		logger:   logger.With().Str("component", "browser").Logger(),
	}, nil
}

// Open loads rawURL so the upstream can set its consent cookies. Error
// statuses other than 429 are tolerated since the cookies arrive anyway.
func (b *HTTPBrowser) Open(ctx context.Context, rawURL string) ([]*http.Cookie, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	res, err := b.client.R().
		SetContext(ctx).
		Get(rawURL)
	if err != nil {
		return nil, err
	}
	if res.StatusCode() == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: %s returned %d", ErrChallenge, rawURL, res.StatusCode())
	}

	cookies := b.jar.Cookies(u)
	b.logger.Debug().
		Str("url", rawURL).
		Int("status", res.StatusCode()).
		Int("cookies", len(cookies)).
		Msg("Opened page")

	return cookies, nil
}

// ExtractToken asks the crumb endpoint first and falls back to scraping the
// screener page scripts
func (b *HTTPBrowser) ExtractToken(ctx context.Context) (string, error) {
	token, err := b.crumbFromEndpoint(ctx)
	if err != nil {
		return "", err
	}
	if token != "" {
		return token, nil
	}

	b.logger.Debug().Msg("Crumb endpoint returned nothing, scraping screener page")

	token, err = b.crumbFromPage(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", fmt.Errorf("%w: no crumb found on %s", ErrChallenge, b.pageURL)
	}
	return token, nil
}

func (b *HTTPBrowser) crumbFromEndpoint(ctx context.Context) (string, error) {
	res, err := b.client.R().
		SetContext(ctx).
		Get(b.crumbURL)
	if err != nil {
		return "", err
	}

	switch {
	case res.StatusCode() == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: crumb endpoint returned %d", ErrChallenge, res.StatusCode())
	case res.IsError():
		return "", nil
	}

	crumb := strings.TrimSpace(res.String())
	if strings.ContainsAny(crumb, "<{ ") {
		// an html or json error body rather than a bare token
		return "", nil
	}
	return crumb, nil
}

func (b *HTTPBrowser) crumbFromPage(ctx context.Context) (string, error) {
	res, err := b.client.R().
		SetContext(ctx).
		Get(b.pageURL)
	if err != nil {
		return "", err
	}
	if res.StatusCode() == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: screener page returned %d", ErrChallenge, res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return "", fmt.Errorf("failed to parse screener page: %w", err)
	}

	var crumb string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		crumb = matchCrumb(s.Text())
		return crumb == ""
	})
	return crumb, nil
}

func matchCrumb(text string) string {
	for _, pattern := range crumbPatterns {
		if groups := pattern.FindStringSubmatch(text); len(groups) > 1 && groups[1] != "" {
			return unescapeCrumb(groups[1])
		}
	}
	return ""
}

// unescapeCrumb undoes the \u002F escaping used inside embedded JSON
func unescapeCrumb(s string) string {
	return strings.ReplaceAll(s, `\u002F`, "/")
}
