package upstream

import (
	"encoding/json"

	"github.com/s0up4200/yfscreener/quote"
)

// PageRequest selects one page of results for a query body
type PageRequest struct {
	Query     json.RawMessage
	Offset    int
	Size      int
	SortField string
	SortOrder string
}

// Page is one batch of rows. Total is the upstream's count hint and is not
// guaranteed to agree with the rows actually served.
type Page struct {
	Rows  []quote.Row
	Total int
}

// screenerRequest is the POST body of the screener endpoint
type screenerRequest struct {
	Size       int             `json:"size"`
	Offset     int             `json:"offset"`
	SortField  string          `json:"sortField"`
	SortType   string          `json:"sortType"`
	QuoteType  string          `json:"quoteType"`
	Query      json.RawMessage `json:"query"`
	UserID     string          `json:"userId"`
	UserIDType string          `json:"userIdType"`
}

// screenerResponse is the subset of the response envelope that is read
type screenerResponse struct {
	Finance *struct {
		Result []struct {
			Total  int         `json:"total"`
			Count  int         `json:"count"`
			Quotes []quote.Row `json:"quotes"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"finance"`
}
