package textvec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"hello", "北海道", "溫泉", "tour_2"}, Tokenize("Hello, 北海道 溫泉! a tour_2 x"))
	assert.Empty(t, Tokenize("a b c ;;"))
}

func TestNGrams(t *testing.T) {
	got := NGrams([]string{"a1", "b2", "c3"}, 1, 2)
	assert.Equal(t, []string{"a1", "b2", "c3", "a1 b2", "b2 c3"}, got)
}

func TestFitDropsTermsInEveryDocument(t *testing.T) {
	docs := []string{"tour hot spring", "tour ski resort", "tour food market"}
	m := Fit(docs, DefaultOptions())

	_, ok := m.IDF("tour")
	assert.False(t, ok, "term present in every doc exceeds max_df")

	idf, ok := m.IDF("spring")
	require.True(t, ok)
	assert.InDelta(t, math.Log(4.0/2.0)+1, idf, 1e-12)

	_, ok = m.IDF("hot spring")
	assert.True(t, ok, "bigrams are in the vocabulary")
}

func TestMaxFeaturesKeepsMostFrequent(t *testing.T) {
	docs := []string{"alpha alpha beta", "alpha gamma", "delta"}
	m := Fit(docs, Options{MaxFeatures: 1, MinDF: 1, MaxDF: 1, NgramMin: 1, NgramMax: 1})
	assert.Equal(t, []string{"alpha"}, m.Vocabulary())
}

func TestSimilarities(t *testing.T) {
	docs := []string{
		"hokkaido hot spring snow",
		"hokkaido snow ski",
		"okinawa beach diving",
	}
	m := Fit(docs, DefaultOptions())
	require.Equal(t, 3, m.Rows())

	row := m.RowSimilarities(0)
	assert.InDelta(t, 1.0, row[0], 1e-9)
	assert.Greater(t, row[1], row[2])
	assert.InDelta(t, 0.0, row[2], 1e-12)
	assert.InDelta(t, row[1], m.Similarity(1, 0), 1e-12)

	q := m.Transform("Beach holiday in Okinawa")
	require.NotNil(t, q)
	sims := m.Similarities(q)
	assert.Greater(t, sims[2], 0.0)
	assert.Equal(t, 0.0, sims[0])
}

func TestEmptyVocabulary(t *testing.T) {
	m := Fit([]string{"same words", "same words"}, DefaultOptions())
	assert.Equal(t, 0, m.VocabularySize())
	assert.Nil(t, m.Transform("same"))
	assert.Equal(t, []float64{0, 0}, m.RowSimilarities(1))
	assert.Equal(t, []float64{0, 0}, m.Similarities(nil))
}
