package scoring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel_recommend/internal/model"
)

func TestScoreViewedExcludesViewedItems(t *testing.T) {
	c := travelCatalog(t)
	s := contentScorer(t, c)

	got := s.ScoreViewed([]string{"A", "okinawa beach diving"}, nil, 10)
	require.NotEmpty(t, got)
	assert.NotContains(t, ids(got), "A")
	assert.NotContains(t, ids(got), "C")
	assert.Equal(t, []string{"D", "B", "E"}, ids(got), "item similar to both viewed items ranks first")
	for _, r := range got {
		assert.Equal(t, model.MethodContent, r.Method)
	}
	assert.Equal(t, 0.0, got[2].Score)
}

func TestScoreViewedPriceFilterFallsBack(t *testing.T) {
	c := travelCatalog(t)
	s := contentScorer(t, c)

	got := s.ScoreViewed([]string{"A"}, &model.PriceRange{Min: 150, Max: 250}, 5)
	assert.Equal(t, []string{"B"}, ids(got))

	got = s.ScoreViewed([]string{"A"}, &model.PriceRange{Min: 5000, Max: 9000}, 2)
	require.Len(t, got, 2)
	for _, r := range got {
		assert.Equal(t, model.MethodPopular, r.Method)
		assert.Equal(t, PopularScore, r.Score)
		assert.NotEqual(t, "A", r.ItemID)
	}
}

func TestEmptyEvidenceReturnsPopularList(t *testing.T) {
	c := travelCatalog(t)
	s := contentScorer(t, c)

	got := s.ScoreViewed(nil, nil, 3)
	assert.Len(t, got, 3)
	assert.Len(t, s.ScoreViewed([]string{"unknown"}, nil, 10), 5, "length is capped at catalog size")
	assert.Len(t, s.ScoreQuery("  ", 10), 5)
	for _, r := range got {
		assert.Equal(t, model.MethodPopular, r.Method)
	}
}

func TestScoreQuery(t *testing.T) {
	c := travelCatalog(t)
	s := contentScorer(t, c)

	got := s.ScoreQuery("Okinawa Beach", 10)
	assert.ElementsMatch(t, []string{"C", "D"}, ids(got))
	for _, r := range got {
		assert.Equal(t, model.MethodSearch, r.Method)
		assert.Greater(t, r.Score, 0.0)
	}
	assert.Empty(t, s.ScoreQuery("paris", 10))
}

func TestContentSimilarItems(t *testing.T) {
	c := travelCatalog(t)
	s := contentScorer(t, c)

	got, err := s.SimilarItems("A", 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"B", "D"}, ids(got))

	_, err = s.SimilarItems("nope", 10)
	assert.True(t, errors.Is(err, model.ErrUnknownItem))
}
