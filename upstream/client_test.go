package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/yfscreener/session"
)

var testCreds = session.Credentials{
	Token:   "crumb123",
	Cookies: []*http.Cookie{{Name: "A3", Value: "cookie"}},
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/", zerolog.Nop(), WithTimeout(5*time.Second))
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	_, err := NewClient("", zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL is required")

	c, err := NewClient("https://example.com/", zerolog.Nop(), WithUserAgent("test"))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", c.baseURL)
}

func TestFetchPageRequest(t *testing.T) {
	query := json.RawMessage(`{"operator":"AND","operands":[{"operator":"EQ","operands":["region","us"]}]}`)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/finance/screener", r.URL.Path)
		assert.Equal(t, "crumb123", r.URL.Query().Get("crumb"))

		cookie, err := r.Cookie("A3")
		require.NoError(t, err)
		assert.Equal(t, "cookie", cookie.Value)

		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var body map[string]any
		require.NoError(t, json.Unmarshal(data, &body))

		want := map[string]any{
			"size":       50.0,
			"offset":     100.0,
			"sortField":  "marketcap",
			"sortType":   "DESC",
			"quoteType":  "EQUITY",
			"userId":     "",
			"userIdType": "guid",
			"query": map[string]any{
				"operator": "AND",
				"operands": []any{
					map[string]any{"operator": "EQ", "operands": []any{"region", "us"}},
				},
			},
		}
		if diff := cmp.Diff(want, body); diff != "" {
			t.Errorf("request body mismatch (-want +got):\n%s", diff)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"finance":{"result":[{"total":2,"count":2,"quotes":[
			{"symbol":"AAPL","regularMarketPrice":190.5},
			{"symbol":"MSFT","regularMarketPrice":410.1}
		]}],"error":null}}`))
	})

	page, err := c.FetchPage(context.Background(), testCreds, PageRequest{
		Query:     query,
		Offset:    100,
		Size:      50,
		SortField: "marketcap",
		SortOrder: "desc",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, "AAPL", page.Rows[0].Symbol())
	price, ok := page.Rows[1].Number("regularMarketPrice")
	require.True(t, ok)
	assert.InDelta(t, 410.1, price, 1e-9)
}

func TestFetchPageErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		header  map[string]string
		body    string
		check   func(t *testing.T, err error)
		retries bool
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"finance":{"error":{"code":"Unauthorized","description":"Invalid Crumb"}}}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnauthorized)
				var se *StatusError
				require.ErrorAs(t, err, &se)
				assert.True(t, se.IsUnauthorized())
			},
		},
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnauthorized)
			},
		},
		{
			name:    "rate limited with seconds",
			status:  http.StatusTooManyRequests,
			header:  map[string]string{"Retry-After": "7"},
			retries: true,
			check: func(t *testing.T, err error) {
				var rle *RateLimitError
				require.ErrorAs(t, err, &rle)
				assert.Equal(t, 7*time.Second, rle.RetryAfter)
				assert.Contains(t, err.Error(), "7s")
			},
		},
		{
			name:    "rate limited without hint",
			status:  http.StatusTooManyRequests,
			retries: true,
			check: func(t *testing.T, err error) {
				var rle *RateLimitError
				require.ErrorAs(t, err, &rle)
				assert.Zero(t, rle.RetryAfter)
			},
		},
		{
			name:    "server error",
			status:  http.StatusBadGateway,
			body:    "bad gateway",
			retries: true,
			check: func(t *testing.T, err error) {
				var ne *NetworkError
				require.ErrorAs(t, err, &ne)
				var se *StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, http.StatusBadGateway, se.StatusCode)
				assert.False(t, errors.Is(err, ErrUnauthorized))
			},
		},
		{
			name:   "malformed json",
			status: http.StatusOK,
			body:   `{"finance":`,
			check: func(t *testing.T, err error) {
				var re *ResponseError
				require.ErrorAs(t, err, &re)
				assert.Contains(t, err.Error(), "invalid JSON")
			},
		},
		{
			name:   "missing result",
			status: http.StatusOK,
			body:   `{"finance":{"result":[]}}`,
			check: func(t *testing.T, err error) {
				var re *ResponseError
				require.ErrorAs(t, err, &re)
				assert.Contains(t, err.Error(), "finance.result")
			},
		},
		{
			name:   "upstream error object",
			status: http.StatusOK,
			body:   `{"finance":{"result":null,"error":{"code":"Bad Request","description":"invalid field"}}}`,
			check: func(t *testing.T, err error) {
				var re *ResponseError
				require.ErrorAs(t, err, &re)
				assert.Contains(t, err.Error(), "invalid field")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.FetchPage(context.Background(), testCreds, PageRequest{Size: 10})
			require.Error(t, err)
			tt.check(t, err)
			assert.Equal(t, tt.retries, IsTransient(err))
		})
	}
}

func TestFetchPageCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.FetchPage(ctx, testCreds, PageRequest{Size: 10})
	var ne *NetworkError
	require.ErrorAs(t, err, &ne)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Duration(0), parseRetryAfter("", now))
	assert.Equal(t, 30*time.Second, parseRetryAfter("30", now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("-5", now))
	assert.Equal(t, 90*time.Second, parseRetryAfter(now.Add(90*time.Second).Format(http.TimeFormat), now))
	assert.Equal(t, time.Duration(0), parseRetryAfter(now.Add(-time.Minute).Format(http.TimeFormat), now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon", now))
}
