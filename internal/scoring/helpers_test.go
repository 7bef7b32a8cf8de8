package scoring

import (
	"testing"

	"github.com/stretchr/testify/require"

	"travel_recommend/internal/catalog"
	"travel_recommend/internal/index"
	"travel_recommend/internal/model"
	"travel_recommend/internal/textvec"
)

func mustCatalog(t *testing.T, rows []catalog.Record) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load(rows)
	require.NoError(t, err)
	return c
}

// travelCatalog A 与 B 共享 hokkaido，C 与 D 共享 okinawa beach，D 同时提到 hokkaido
func travelCatalog(t *testing.T) *catalog.Catalog {
	return mustCatalog(t, []catalog.Record{
		{"id": "A", "name": "hokkaido hot spring", "price": "100"},
		{"id": "B", "name": "hokkaido snow ski", "price": "200"},
		{"id": "C", "name": "okinawa beach diving", "price": "300"},
		{"id": "D", "name": "okinawa beach hokkaido", "price": "400"},
		{"id": "E", "name": "kyoto temple", "price": "500"},
	})
}

func contentScorer(t *testing.T, c *catalog.Catalog) *ContentScorer {
	t.Helper()
	return NewContentScorer(index.BuildContent(c, textvec.DefaultOptions(), 0))
}

func ids(recs []model.ScoredRecommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ItemID
	}
	return out
}

func recIDs(recs []model.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ItemID
	}
	return out
}
