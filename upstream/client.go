package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/s0up4200/yfscreener/quote"
	"github.com/s0up4200/yfscreener/session"
)

const (
	DefaultBaseURL   = "https://query2.finance.yahoo.com"
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = session.DefaultUserAgent

	screenerPath = "/v1/finance/screener"
)

// Client submits screener queries to the upstream endpoint
type Client struct {
	baseURL string
	http    *resty.Client
	logger  zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(timeout)
	}
}

// WithUserAgent overrides the user-agent header
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.http.SetHeader("user-agent", userAgent)
	}
}

// NewClient creates a client for the screener endpoint at baseURL
func NewClient(baseURL string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("screener base URL is required")
	}
	baseURL = strings.TrimRight(baseURL, "/")

	httpClient := resty.New()
	httpClient.SetTimeout(DefaultTimeout)
	httpClient.SetHeader("user-agent", DefaultUserAgent)
	httpClient.SetHeader("accept", "application/json")

	c := &Client{
		baseURL: baseURL,
		http:    httpClient,
		logger:  logger.With().Str("component", "upstream").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchPage requests one page of rows. Errors are classified as
// ErrUnauthorized (via *StatusError), *RateLimitError, *NetworkError or
// *ResponseError.
func (c *Client) FetchPage(ctx context.Context, creds session.Credentials, req PageRequest) (*Page, error) {
	body := screenerRequest{
		Size:       req.Size,
		Offset:     req.Offset,
		SortField:  req.SortField,
		SortType:   strings.ToUpper(req.SortOrder),
		QuoteType:  "EQUITY",
		Query:      req.Query,
		UserID:     "",
		UserIDType: "guid",
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("crumb", creds.Token).
		SetCookies(creds.Cookies).
		SetHeader("content-type", "application/json").
		SetBody(body).
		Post(c.baseURL + screenerPath)
	if err != nil {
		return nil, &NetworkError{Op: "fetch page", Err: err}
	}

	c.logger.Debug().
		Int("offset", req.Offset).
		Int("size", req.Size).
		Int("status", res.StatusCode()).
		Dur("elapsed", res.Time()).
		Msg("Fetched screener page")

	switch status := res.StatusCode(); {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, &StatusError{StatusCode: status, Body: res.String()}
	case status == http.StatusTooManyRequests:
		return nil, &RateLimitError{RetryAfter: parseRetryAfter(res.Header().Get("Retry-After"), time.Now())}
	case status < 200 || status > 299:
		return nil, &NetworkError{Op: "fetch page", Err: &StatusError{StatusCode: status, Body: res.String()}}
	}

	return parsePage(res.Body())
}

func parsePage(data []byte) (*Page, error) {
	var response screenerResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, &ResponseError{Reason: "invalid JSON", Err: err}
	}
	if response.Finance == nil {
		return nil, &ResponseError{Reason: "missing finance object"}
	}
	if e := response.Finance.Error; e != nil {
		return nil, &ResponseError{Reason: fmt.Sprintf("upstream error %s: %s", e.Code, e.Description)}
	}
	if len(response.Finance.Result) == 0 {
		return nil, &ResponseError{Reason: "missing finance.result"}
	}

	result := response.Finance.Result[0]
	rows := make([]quote.Row, 0, len(result.Quotes))
	for _, row := range result.Quotes {
		if row != nil {
			rows = append(rows, row)
		}
	}
	return &Page{Rows: rows, Total: result.Total}, nil
}

// parseRetryAfter reads a Retry-After header given in seconds or as an HTTP date
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
