package filter

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
)

// RegionPolicy records how a query's region restriction came about
type RegionPolicy int

const (
	// RegionDefaultUS means the region accessor was never called
	RegionDefaultUS RegionPolicy = iota
	// RegionAll means the region accessor was called with no codes
	RegionAll
	// RegionExplicit means the region accessor was called with codes
	RegionExplicit
)

func (p RegionPolicy) String() string {
	switch p {
	case RegionDefaultUS:
		return "default"
	case RegionAll:
		return "all"
	case RegionExplicit:
		return "explicit"
	default:
		return "unknown"
	}
}

// RegionFilter is the resolved region restriction of a query
type RegionFilter struct {
	policy RegionPolicy
	codes  []string
}

// Policy returns how the restriction was chosen
func (r RegionFilter) Policy() RegionPolicy { return r.policy }

// Codes returns the region codes the query is restricted to, empty for RegionAll
func (r RegionFilter) Codes() []string { return slices.Clone(r.codes) }

// Query is an immutable, validated screen request
type Query struct {
	root       Group
	sortField  string
	sortOrder  SortOrder
	maxResults int
	region     RegionFilter
}

// Root returns the top-level AND group
func (q *Query) Root() Group { return q.root }

// SortField returns the upstream sort field
func (q *Query) SortField() string { return q.sortField }

// SortOrder returns the sort direction
func (q *Query) SortOrder() SortOrder { return q.sortOrder }

// MaxResults returns the result cap, zero when unbounded
func (q *Query) MaxResults() int { return q.maxResults }

// Region returns the resolved region restriction
func (q *Query) Region() RegionFilter { return q.region }

// Body encodes the filter tree in the upstream wire shape
func (q *Query) Body() (json.RawMessage, error) {
	return json.Marshal(q.root)
}

func (q *Query) String() string {
	return q.root.String()
}

type canonicalQuery struct {
	Query      json.RawMessage `json:"query"`
	SortField  string          `json:"sortField"`
	SortOrder  SortOrder       `json:"sortOrder"`
	MaxResults int             `json:"maxResults"`
	Region     []string        `json:"region"`
}

// Canonical returns a deterministic encoding of the query. Two queries that
// differ only in the order of AND/OR children or IN values encode equally.
// The default region and an explicit "us" restriction encode equally.
func (q *Query) Canonical() []byte {
	region := q.region.Codes()
	slices.Sort(region)
	region = slices.Compact(region)
	if region == nil {
		region = []string{}
	}

	data, _ := json.Marshal(canonicalQuery{
		Query:      json.RawMessage(q.root.canonical()),
		SortField:  q.sortField,
		SortOrder:  q.sortOrder,
		MaxResults: q.maxResults,
		Region:     region,
	})
	return data
}

// Fingerprint returns the hex sha256 of the canonical encoding
func (q *Query) Fingerprint() string {
	sum := sha256.Sum256(q.Canonical())
	return hex.EncodeToString(sum[:])
}
