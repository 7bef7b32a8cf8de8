package nodes

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel_recommend/internal/catalog"
	"travel_recommend/internal/history"
	"travel_recommend/internal/index"
	"travel_recommend/internal/model"
	"travel_recommend/internal/scoring"
	"travel_recommend/internal/textvec"
	"travel_recommend/internal/user"
	"travel_recommend/internal/workflow"
)

func testEnv(t *testing.T, users *user.Store) *workflow.Env {
	t.Helper()
	return envFor(t, users, []catalog.Record{
		{"id": "A", "name": "hokkaido hot spring", "price": "100", "activity_tags": "溫泉", "location_tags": "北海道"},
		{"id": "B", "name": "hokkaido snow ski", "price": "200", "activity_tags": "滑雪", "location_tags": "北海道"},
		{"id": "C", "name": "okinawa beach diving", "price": "300", "activity_tags": "潛水", "location_tags": "沖繩"},
		{"id": "D", "name": "okinawa beach hokkaido", "price": "400", "activity_tags": "海灘", "location_tags": "沖繩"},
		{"id": "E", "name": "kyoto temple", "price": "500", "activity_tags": "寺廟", "location_tags": "京都"},
	})
}

func envFor(t *testing.T, users *user.Store, records []catalog.Record) *workflow.Env {
	t.Helper()
	c, err := catalog.Load(records)
	require.NoError(t, err)

	cache := index.NewCache(index.Options{Vectorizer: textvec.DefaultOptions()})
	return &workflow.Env{
		Catalog:       c,
		Content:       scoring.NewContentScorer(cache.Content(c)),
		Collaborative: scoring.NewCollaborativeScorer(c, cache.Interactions(c, users), scoring.DefaultNeighbours),
		Tags:          scoring.NewTagScorer(c, nil, 0),
		Weights:       scoring.DefaultWeights(),
	}
}

func node(t *testing.T, factory workflow.NodeFactory, config map[string]interface{}) workflow.Node {
	t.Helper()
	n, err := factory(workflow.NodeConfig{Name: "n", Config: config})
	require.NoError(t, err)
	return n
}

func itemIDs(recs []model.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ItemID
	}
	return out
}

func TestRecommendPipeline(t *testing.T) {
	users := user.NewStore()
	users.BumpTagWeight("u1", "北海道")
	users.RecordView("u1", &model.Item{ID: "A", ActivityTags: []string{"溫泉"}, LocationTags: []string{"北海道"}})
	env := testEnv(t, users)

	engine, err := workflow.NewEngine("", NewRegistry(nil))
	require.NoError(t, err)

	profile, _ := users.Get("u1")
	ctx := workflow.NewContext(context.Background(), env, "u1", profile, 3)
	require.NoError(t, engine.Run(ctx, workflow.SceneRecommend))

	results := ctx.GetResults()
	require.Len(t, results, 3)
	byID := make(map[string]model.Recommendation)
	for _, r := range results {
		byID[r.ItemID] = r
	}
	require.Contains(t, byID, "B")
	assert.Equal(t, []model.Method{model.MethodContent, model.MethodTagMatching}, byID["B"].Methods)
	require.Contains(t, byID, "A")
	assert.Equal(t, []model.Method{model.MethodTagMatching}, byID["A"].Methods, "viewed items only come back through tags")
}

func TestSearchPipelineTruncates(t *testing.T) {
	env := testEnv(t, user.NewStore())
	engine, err := workflow.NewEngine("", NewRegistry(nil))
	require.NoError(t, err)

	ctx := workflow.NewContext(context.Background(), env, "", nil, 1)
	ctx.Query = "okinawa diving"
	require.NoError(t, engine.Run(ctx, workflow.SceneSearch))

	results := ctx.GetResults()
	require.Len(t, results, 1)
	assert.Equal(t, "C", results[0].ItemID)
}

func TestSearchRecallFetchesExtra(t *testing.T) {
	env := testEnv(t, user.NewStore())
	ctx := workflow.NewContext(context.Background(), env, "", nil, 1)
	ctx.Query = "hokkaido"

	require.NoError(t, node(t, NewSearchRecallNode, nil).Execute(ctx))
	assert.Len(t, ctx.GetRecallResults()[model.MethodSearch], 2)

	ctx = workflow.NewContext(context.Background(), env, "", nil, 1)
	ctx.Query = "hokkaido"
	require.NoError(t, node(t, NewSearchRecallNode, map[string]interface{}{"multiplier": 3.0}).Execute(ctx))
	assert.Len(t, ctx.GetRecallResults()[model.MethodSearch], 3)
}

func TestSearchPipelinePersonalizationPromotesBeyondTopN(t *testing.T) {
	// X 和 Y 文本对称，原始得分相同，按目录顺序 X 在前
	env := envFor(t, user.NewStore(), []catalog.Record{
		{"id": "X", "name": "island tour", "price": "100", "activity_tags": "滑雪", "location_tags": "北海道"},
		{"id": "Y", "name": "island tour", "price": "400", "activity_tags": "潛水", "location_tags": "沖繩"},
		{"id": "Z", "name": "city museum", "price": "500", "activity_tags": "博物館", "location_tags": "東京"},
	})
	engine, err := workflow.NewEngine("", NewRegistry(nil))
	require.NoError(t, err)

	anon := workflow.NewContext(context.Background(), env, "", nil, 1)
	anon.Query = "island tour"
	require.NoError(t, engine.Run(anon, workflow.SceneSearch))
	require.Equal(t, []string{"X"}, itemIDs(anon.GetResults()))

	profile := &model.UserProfile{UserID: "u", TagWeights: map[string]int{"潛水": 3}, AveragePrice: 400}
	ctx := workflow.NewContext(context.Background(), env, "u", profile, 1)
	ctx.Query = "island tour"
	require.NoError(t, engine.Run(ctx, workflow.SceneSearch))
	assert.Equal(t, []string{"Y"}, itemIDs(ctx.GetResults()), "personalized re-rank sees more than top_n hits")
}

func TestTagRecallWithoutProfile(t *testing.T) {
	env := testEnv(t, user.NewStore())
	ctx := workflow.NewContext(context.Background(), env, "ghost", nil, 3)
	require.NoError(t, node(t, NewTagRecallNode, nil).Execute(ctx))
	assert.Empty(t, ctx.GetRecallResults()[model.MethodTagMatching])
}

func TestRecallNodesRequireEnv(t *testing.T) {
	ctx := workflow.NewContext(context.Background(), nil, "u1", nil, 3)
	for _, f := range []workflow.NodeFactory{NewContentRecallNode, NewCollaborativeRecallNode, NewTagRecallNode, NewSearchRecallNode} {
		assert.Error(t, node(t, f, nil).Execute(ctx))
	}
}

func TestHybridRankWeightOverride(t *testing.T) {
	env := testEnv(t, user.NewStore())
	ctx := workflow.NewContext(context.Background(), env, "u1", nil, 2)
	ctx.SetRecallResult(model.MethodContent, []model.ScoredRecommendation{{ItemID: "A", Score: 0.5, Method: model.MethodContent}})
	ctx.SetRecallResult(model.MethodTagMatching, []model.ScoredRecommendation{{ItemID: "B", Score: 1, Method: model.MethodTagMatching}})

	n := node(t, NewHybridRankNode, map[string]interface{}{
		"weights": map[string]interface{}{"content": 1.0, "collaborative": 0.0, "tag_matching": 0.1},
	})
	require.NoError(t, n.Execute(ctx))
	assert.Equal(t, []string{"A", "B"}, itemIDs(ctx.GetResults()))

	_, err := NewHybridRankNode(workflow.NodeConfig{Name: "bad", Config: map[string]interface{}{
		"weights": map[string]interface{}{"llm": 1.0},
	}})
	assert.Error(t, err)
	_, err = NewHybridRankNode(workflow.NodeConfig{Name: "neg", Config: map[string]interface{}{
		"weights": map[string]interface{}{"content": -1.0},
	}})
	assert.Error(t, err)
}

func TestFallbackFillsWithoutDuplicates(t *testing.T) {
	env := testEnv(t, user.NewStore())
	ctx := workflow.NewContext(context.Background(), env, "u1", nil, 3)
	c := env.Catalog
	it, _ := c.Item("C")
	ctx.SetResults([]model.Recommendation{model.NewRecommendation(it, 1, "x", model.MethodContent)})

	n := node(t, NewFallbackRankNode, map[string]interface{}{"min_results": 3.0})
	require.NoError(t, n.Execute(ctx))

	results := ctx.GetResults()
	require.Len(t, results, 3)
	assert.Equal(t, "C", results[0].ItemID)
	assert.NotContains(t, itemIDs(results[1:]), "C")
	assert.Equal(t, []model.Method{model.MethodPopular}, results[1].Methods)
}

func TestFallbackLeavesEnoughResults(t *testing.T) {
	env := testEnv(t, user.NewStore())
	ctx := workflow.NewContext(context.Background(), env, "u1", nil, 3)
	it, _ := env.Catalog.Item("C")
	ctx.SetResults([]model.Recommendation{model.NewRecommendation(it, 1, "x", model.MethodContent)})

	require.NoError(t, node(t, NewFallbackRankNode, nil).Execute(ctx))
	assert.Len(t, ctx.GetResults(), 1)

	empty := workflow.NewContext(context.Background(), env, "u1", nil, 2)
	require.NoError(t, node(t, NewFallbackRankNode, nil).Execute(empty))
	results := empty.GetResults()
	require.Len(t, results, 2)
	assert.Equal(t, []model.Method{model.MethodDefault}, results[0].Methods)
}

func TestHistoryFilterRemovesServedItems(t *testing.T) {
	store, err := history.NewFileStore(filepath.Join(t.TempDir(), "history.jsonl"))
	require.NoError(t, err)
	require.NoError(t, store.SaveHistory("u1", workflow.SceneRecommend, []string{"B"}))

	registry := NewRegistry(store)
	n, err := registry.CreateNode(workflow.NodeConfig{Name: "history", Type: "filter_history", Config: map[string]interface{}{
		"scene":         workflow.SceneRecommend,
		"lookback_days": 3.0,
	}})
	require.NoError(t, err)

	ctx := workflow.NewContext(context.Background(), nil, "u1", nil, 3)
	ctx.SetRecallResult(model.MethodContent, []model.ScoredRecommendation{{ItemID: "B"}, {ItemID: "C"}})
	require.NoError(t, n.Execute(ctx))

	res := ctx.GetRecallResults()[model.MethodContent]
	require.Len(t, res, 1)
	assert.Equal(t, "C", res[0].ItemID)

	_, err = NewHistoryFilterNode(workflow.NodeConfig{Name: "x"}, nil)
	assert.Error(t, err)
}
