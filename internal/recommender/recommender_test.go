package recommender

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel_recommend/internal/catalog"
	"travel_recommend/internal/history"
	"travel_recommend/internal/model"
	"travel_recommend/internal/user"
)

func fixtureCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load([]catalog.Record{
		{"id": "P1", "name": "沖繩浮潛三日遊", "price": "20000", "activity_tags": "浮潛;海灘", "location_tags": "沖繩", "is_foreign": "true"},
		{"id": "P2", "name": "北海道溫泉五日遊", "price": "30000", "activity_tags": "溫泉;美食", "location_tags": "北海道", "is_foreign": "true"},
		{"id": "P3", "name": "台東熱氣球", "price": "8000", "activity_tags": "熱氣球;親子", "location_tags": "台東"},
		{"id": "P4", "name": "花蓮太魯閣", "price": "6000", "activity_tags": "健行;自然", "location_tags": "花蓮"},
		{"id": "P5", "name": "京都賞楓", "price": "25000", "activity_tags": "賞楓;寺廟", "location_tags": "京都", "is_foreign": "true"},
	})
	require.NoError(t, err)
	return c
}

func fixtureUsers() *user.Store {
	return user.LoadProfiles(map[string]user.RawProfile{
		"alice": {
			UserTags:         map[string]float64{"溫泉": 3, "美食": 1},
			ProductsViewed:   []string{"P2"},
			AveragePrice:     28000,
			LowestPrice:      15000,
			HighestPrice:     40000,
			ForeignTripCount: 3, NonForeignTripCount: 1,
		},
		"bob": {
			UserTags:         map[string]float64{"浮潛": 2},
			ProductsViewed:   []string{"P1", "P2"},
			AveragePrice:     20000,
			ForeignTripCount: 2,
		},
		"carol": {},
	})
}

func newTestRecommender(t *testing.T) *Recommender {
	t.Helper()
	hs, err := history.NewFileStore(filepath.Join(t.TempDir(), "history.jsonl"))
	require.NoError(t, err)
	r, err := New(fixtureCatalog(t), fixtureUsers(), Options{History: hs})
	require.NoError(t, err)
	return r
}

func ids(recs []model.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ItemID
	}
	return out
}

func TestNewRequiresData(t *testing.T) {
	_, err := New(nil, user.NewStore(), Options{})
	assert.True(t, errors.Is(err, model.ErrNotInitialized))
}

func TestUnknownUserGetsDefaultList(t *testing.T) {
	r := newTestRecommender(t)
	recs := r.GetRecommendations(context.Background(), "ghost", 3)
	require.Len(t, recs, 3)
	for _, rec := range recs {
		assert.Equal(t, []model.Method{model.MethodDefault}, rec.Methods)
		assert.Equal(t, "熱門推薦商品", rec.Reason)
	}
}

func TestKnownUserRecommendations(t *testing.T) {
	r := newTestRecommender(t)
	recs := r.GetRecommendations(context.Background(), "alice", 3)
	require.NotEmpty(t, recs)
	assert.LessOrEqual(t, len(recs), 3)

	var p1 *model.Recommendation
	for i := range recs {
		if recs[i].ItemID == "P1" {
			p1 = &recs[i]
		}
	}
	require.NotNil(t, p1, "bob's view of P1 reaches alice through collaborative filtering")
	assert.Contains(t, p1.Methods, model.MethodCollaborative)
	assert.True(t, strings.HasPrefix(p1.Reason, "基於"))

	require.Eventually(t, func() bool {
		return len(r.History("alice", 0)) > 0
	}, time.Second, 10*time.Millisecond)
}

func TestDefaultTopN(t *testing.T) {
	r := newTestRecommender(t)
	assert.Len(t, r.GetRecommendations(context.Background(), "ghost", 0), 5)
}

func TestUpdateTagWeightCreatesUser(t *testing.T) {
	r := newTestRecommender(t)
	require.True(t, r.UpdateTagWeight(context.Background(), "new_user", "beach"))

	p, ok := r.Users().Get("new_user")
	require.True(t, ok)
	assert.Equal(t, 1, p.TagWeights["beach"])
	assert.False(t, r.UpdateTagWeight(context.Background(), "new_user", ""))
}

func TestRecordView(t *testing.T) {
	r := newTestRecommender(t)
	ctx := context.Background()
	require.NoError(t, r.RecordView(ctx, "carol", "P3"))
	p, _ := r.Users().Get("carol")
	assert.Equal(t, []string{"P3"}, p.ViewedItems)
	assert.Equal(t, 1, p.TagWeights["熱氣球"])

	assert.True(t, errors.Is(r.RecordView(ctx, "carol", "nope"), model.ErrUnknownItem))
}

func TestSearchByText(t *testing.T) {
	r := newTestRecommender(t)
	ctx := context.Background()

	plain := r.SearchByText(ctx, "溫泉", "", 3)
	require.NotEmpty(t, plain)
	assert.Equal(t, "P2", plain[0].ItemID)
	assert.True(t, strings.HasPrefix(plain[0].Reason, "搜索匹配度"))

	personal := r.SearchByText(ctx, "溫泉", "alice", 3)
	require.NotEmpty(t, personal)
	assert.Equal(t, "P2", personal[0].ItemID)
	assert.True(t, strings.HasPrefix(personal[0].Reason, "搜尋結果 - 個人化評分"))
	assert.Greater(t, personal[0].Score, plain[0].Score)
}

func TestEmptyQueryReturnsPopularList(t *testing.T) {
	r := newTestRecommender(t)
	recs := r.SearchByText(context.Background(), "  ", "", 10)
	assert.Len(t, recs, 5)
	for _, rec := range recs {
		assert.Equal(t, []model.Method{model.MethodPopular}, rec.Methods)
	}
}

func TestUserSummary(t *testing.T) {
	r := newTestRecommender(t)
	s, err := r.UserSummary("alice")
	require.NoError(t, err)
	assert.Equal(t, "$15,000 - $40,000", s.PriceRange)
	assert.Equal(t, "國外旅遊愛好者", s.PreferenceType)
	assert.Equal(t, 1, s.TotalViewed)
	require.Len(t, s.TopTags, 2)
	assert.Equal(t, TagWeight{Tag: "溫泉", Weight: 3}, s.TopTags[0])

	_, err = r.UserSummary("ghost")
	assert.True(t, errors.Is(err, model.ErrUnknownUser))
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{999.6, "1,000"},
		{15000, "15,000"},
		{1234567.4, "1,234,567"},
		{-28000, "-28,000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatMoney(tt.in))
	}
}

func TestExplain(t *testing.T) {
	r := newTestRecommender(t)
	exp, err := r.Explain("alice", "P2")
	require.NoError(t, err)
	assert.Equal(t, []string{"溫泉", "美食"}, exp.MatchedTags)
	assert.Contains(t, exp.Text, "匹配您的偏好標籤: 溫泉(權重:3), 美食(權重:1)")
	assert.Contains(t, exp.Text, "價格符合您的消費習慣(平均$28,000)")
	assert.Contains(t, exp.Text, "符合您的國外旅遊偏好")
	assert.Greater(t, exp.TagScore, 0.0)

	exp, err = r.Explain("carol", "P3")
	require.NoError(t, err)
	assert.Equal(t, "符合您的國內旅遊偏好", exp.Text)

	_, err = r.Explain("alice", "nope")
	assert.True(t, errors.Is(err, model.ErrUnknownItem))
}

func TestSimilarItemsFallsBackToCoViews(t *testing.T) {
	r := newTestRecommender(t)
	recs, err := r.SimilarItems("P2", 3)
	require.NoError(t, err)
	require.Equal(t, []string{"P1"}, ids(recs))
	assert.Equal(t, model.MethodItemSimilarity, recs[0].Methods[0])
	assert.InDelta(t, 0.7071, recs[0].Score, 1e-3)

	_, err = r.SimilarItems("nope", 3)
	assert.True(t, errors.Is(err, model.ErrUnknownItem))
}

func TestTrending(t *testing.T) {
	r := newTestRecommender(t)
	assert.Len(t, r.Trending("", 2), 2)

	recs := r.Trending("沖繩", 10)
	require.Equal(t, []string{"P1"}, ids(recs))
	assert.Equal(t, "熱門推薦", recs[0].Reason)
}

func TestStats(t *testing.T) {
	r := newTestRecommender(t)
	s := r.Stats()
	assert.Equal(t, 5, s.TotalItems)
	assert.Equal(t, 3, s.TotalUsers)
	assert.Equal(t, 2, s.UsersWithTags)
	assert.Equal(t, 2, s.UsersWithViews)
}

func TestQualityReport(t *testing.T) {
	r := newTestRecommender(t)
	rep, err := r.QualityReport("alice")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, rep.QualityScore, 1e-9)
	assert.Equal(t, "良好", rep.Recommendation)

	rep, err = r.QualityReport("carol")
	require.NoError(t, err)
	assert.Equal(t, 0.0, rep.QualityScore)
	assert.Equal(t, "需要更多資料", rep.Recommendation)
}

func TestExportAndReloadProfiles(t *testing.T) {
	r := newTestRecommender(t)
	dir := t.TempDir()
	path, err := r.Export(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	r.UpdateTagWeight(context.Background(), "alice", "溫泉")
	p, _ := r.Users().Get("alice")
	require.Equal(t, 4, p.TagWeights["溫泉"])

	res, err := r.ReloadProfiles(path)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Users)
	p, _ = r.Users().Get("alice")
	assert.Equal(t, 3, p.TagWeights["溫泉"])
}

func TestReloadCatalog(t *testing.T) {
	r := newTestRecommender(t)
	path := filepath.Join(t.TempDir(), "products.csv")
	require.NoError(t, os.WriteFile(path, []byte("product_id,product_name,price\nN1,新商品,100\n"), 0o644))

	res, err := r.ReloadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Items)
	assert.Equal(t, 1, r.Catalog().Len())

	_, err = r.ReloadCatalog(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
	assert.Equal(t, 1, r.Catalog().Len(), "failed reload keeps the previous catalog")

	recs := r.GetRecommendations(context.Background(), "ghost", 3)
	assert.Equal(t, []string{"N1"}, ids(recs))
}
