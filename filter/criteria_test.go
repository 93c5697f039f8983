package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestCriteriaMatchesBuilder(t *testing.T) {
	c := Criteria{
		MinPrice:         ptr(10),
		MaxPrice:         ptr(50),
		MinMarketCap:     ptr(1e9),
		MaxDividendYield: ptr(8),
		Sectors:          []string{"Technology", "Energy"},
		MaxResults:       20,
		SortBy:           "market_cap",
		SortOrder:        "desc",
	}

	fromCriteria, err := c.Build()
	require.NoError(t, err)

	fromBuilder, err := NewBuilder().
		Price(Between(10, 50)).
		MarketCap(AtLeast(1e9)).
		DividendYield(AtMost(8)).
		Sector("Technology", "Energy").
		SortBy(SortMarketCap, Descending).
		Limit(20).
		Build()
	require.NoError(t, err)

	assert.Equal(t, fromBuilder.Fingerprint(), fromCriteria.Fingerprint())
}

func TestCriteriaRegions(t *testing.T) {
	q, err := Criteria{Sectors: []string{"Energy"}}.Build()
	require.NoError(t, err)
	assert.Equal(t, RegionDefaultUS, q.Region().Policy())

	q, err = Criteria{Sectors: []string{"Energy"}, AllRegions: true}.Build()
	require.NoError(t, err)
	assert.Equal(t, RegionAll, q.Region().Policy())

	q, err = Criteria{Sectors: []string{"Energy"}, Regions: []string{"ca"}}.Build()
	require.NoError(t, err)
	assert.Equal(t, RegionExplicit, q.Region().Policy())
	assert.Equal(t, []string{"ca"}, q.Region().Codes())
}

func TestCriteriaValidation(t *testing.T) {
	_, err := Criteria{MinPrice: ptr(50), MaxPrice: ptr(10)}.Build()
	assert.Error(t, err)

	_, err = Criteria{MinPrice: ptr(5), SortOrder: "random"}.Build()
	assert.Error(t, err)

	_, err = Criteria{MinPrice: ptr(5), MaxResults: -1}.Build()
	assert.Error(t, err)

	_, err = Criteria{AllRegions: true}.Build()
	assert.Error(t, err, "a screen with no filters at all is rejected")
}

func TestCriteriaExecute(t *testing.T) {
	exec := &recordingExecutor{}
	_, err := Criteria{MinVolume: ptr(1e6)}.Execute(context.Background(), exec)
	require.NoError(t, err)
	require.Len(t, exec.queries, 1)
	assert.Equal(t, SortTicker, exec.queries[0].SortField())
}
