package recommender

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"travel_recommend/internal/catalog"
	"travel_recommend/internal/history"
	"travel_recommend/internal/index"
	"travel_recommend/internal/logger"
	"travel_recommend/internal/metrics"
	"travel_recommend/internal/model"
	"travel_recommend/internal/nodes"
	"travel_recommend/internal/recorder"
	"travel_recommend/internal/scoring"
	"travel_recommend/internal/textvec"
	"travel_recommend/internal/user"
	"travel_recommend/internal/workflow"
)

const (
	// DefaultTopN 调用方没有指定数量时返回的条数
	DefaultTopN = 6

	priceLowFactor  = 0.5
	priceHighFactor = 1.5
)

// Options 推荐服务参数，零值字段使用默认值
type Options struct {
	TopN          int
	Weights       *scoring.Weights
	Neighbours    int
	Vectorizer    textvec.Options
	RowCacheSize  int
	FuzzyDiscount float64
	// Synonyms 追加到内置同义词表
	Synonyms []scoring.SynonymPair

	// PipelinesPath 为空时使用内置流程
	PipelinesPath string
	History       history.Store

	Persister      recorder.Persister
	PersistOnClick bool
}

func (o *Options) withDefaults() {
	if o.TopN <= 0 {
		o.TopN = DefaultTopN
	}
	if o.Weights == nil {
		w := scoring.DefaultWeights()
		o.Weights = &w
	}
	if o.Neighbours <= 0 {
		o.Neighbours = scoring.DefaultNeighbours
	}
	if o.Vectorizer.MaxFeatures == 0 {
		o.Vectorizer = textvec.DefaultOptions()
	}
}

// Recommender 推荐服务门面：持有目录和画像库，对外提供推荐、搜索和交互记录
type Recommender struct {
	mu      sync.RWMutex
	catalog *catalog.Catalog

	users    *user.Store
	cache    *index.Cache
	engine   *workflow.Engine
	recorder *recorder.Recorder
	history  history.Store
	synonyms *scoring.SynonymTable
	opts     Options
}

// New 用已加载的目录和画像库创建服务
func New(c *catalog.Catalog, users *user.Store, opts Options) (*Recommender, error) {
	if c == nil || users == nil {
		return nil, model.ErrNotInitialized
	}
	opts.withDefaults()

	engine, err := workflow.NewEngine(opts.PipelinesPath, nodes.NewRegistry(opts.History))
	if err != nil {
		return nil, fmt.Errorf("init pipeline engine: %w", err)
	}

	r := &Recommender{
		catalog:  c,
		users:    users,
		cache:    index.NewCache(index.Options{Vectorizer: opts.Vectorizer, RowCacheSize: opts.RowCacheSize}),
		engine:   engine,
		history:  opts.History,
		synonyms: scoring.DefaultSynonyms().With(opts.Synonyms...),
		opts:     opts,
	}
	r.recorder = recorder.New(users, r.Catalog, recorder.WithPersister(opts.Persister, opts.PersistOnClick))

	metrics.CatalogItems.Set(float64(c.Len()))
	metrics.UserProfiles.Set(float64(users.Len()))
	logger.Info("Recommender ready: %d items, %d users", c.Len(), users.Len())
	return r, nil
}

// Catalog 当前目录
func (r *Recommender) Catalog() *catalog.Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalog
}

// Users 画像库
func (r *Recommender) Users() *user.Store { return r.users }

// env 固定本次请求使用的目录和打分器
func (r *Recommender) env() *workflow.Env {
	c := r.Catalog()
	return &workflow.Env{
		Catalog:       c,
		Content:       scoring.NewContentScorer(r.cache.Content(c)),
		Collaborative: scoring.NewCollaborativeScorer(c, r.cache.Interactions(c, r.users), r.opts.Neighbours),
		Tags:          scoring.NewTagScorer(c, r.synonyms, r.opts.FuzzyDiscount),
		Weights:       *r.opts.Weights,
	}
}

func (r *Recommender) topN(n int) int {
	if n <= 0 {
		return r.opts.TopN
	}
	return n
}

// GetRecommendations 混合推荐。未知用户返回默认列表；流程出错时也退回默认列表，
// 因此总会返回结果。
func (r *Recommender) GetRecommendations(ctx context.Context, userID string, topN int) []model.Recommendation {
	start := time.Now()
	defer metrics.ObserveRequest(workflow.SceneRecommend, start)
	topN = r.topN(topN)

	profile, ok := r.users.Get(userID)
	if !ok {
		logger.Debug("Recommender: unknown user %q, serving default list", userID)
		metrics.FallbacksTotal.WithLabelValues("unknown_user").Inc()
		return scoring.DefaultRecommendations(r.Catalog(), topN)
	}

	env := r.env()
	wfCtx := workflow.NewContext(ctx, env, userID, profile, topN)
	if profile.AveragePrice > 0 {
		wfCtx.PriceRange = &model.PriceRange{
			Min: profile.AveragePrice * priceLowFactor,
			Max: profile.AveragePrice * priceHighFactor,
		}
	}
	foreign := profile.PrefersForeign()
	wfCtx.ForeignPreference = &foreign

	if err := r.engine.Run(wfCtx, workflow.SceneRecommend); err != nil {
		logger.Error("Recommender: pipeline failed for user %s: %v", userID, err)
		metrics.FallbacksTotal.WithLabelValues("pipeline_error").Inc()
		return scoring.DefaultRecommendations(env.Catalog, topN)
	}
	for _, line := range wfCtx.Trace() {
		logger.Debug("[%s] %s", userID, line)
	}

	results := wfCtx.GetResults()
	if len(results) == 0 {
		metrics.FallbacksTotal.WithLabelValues("no_candidates").Inc()
		results = scoring.DefaultRecommendations(env.Catalog, topN)
	}
	r.saveHistory(userID, workflow.SceneRecommend, results)
	return results
}

// SearchByText 文本搜索；userID 对应已知用户时按画像重排
func (r *Recommender) SearchByText(ctx context.Context, query, userID string, topN int) []model.Recommendation {
	start := time.Now()
	defer metrics.ObserveRequest(workflow.SceneSearch, start)
	topN = r.topN(topN)

	var profile *model.UserProfile
	if userID != "" {
		profile, _ = r.users.Get(userID)
	}

	env := r.env()
	wfCtx := workflow.NewContext(ctx, env, userID, profile, topN)
	wfCtx.Query = strings.TrimSpace(query)

	if err := r.engine.Run(wfCtx, workflow.SceneSearch); err != nil {
		logger.Error("Recommender: search pipeline failed for %q: %v", query, err)
		metrics.FallbacksTotal.WithLabelValues("pipeline_error").Inc()
		return scoring.ToRecommendations(env.Catalog, scoring.Popular(env.Catalog, topN))
	}
	results := wfCtx.GetResults()
	if profile != nil {
		r.saveHistory(userID, workflow.SceneSearch, results)
	}
	return results
}

// UpdateTagWeight 用户点击标签，权重 +1
func (r *Recommender) UpdateTagWeight(ctx context.Context, userID, tag string) bool {
	ok := r.recorder.RecordTagClick(ctx, userID, tag)
	metrics.UserProfiles.Set(float64(r.users.Len()))
	return ok
}

// RecordView 用户浏览商品
func (r *Recommender) RecordView(ctx context.Context, userID, itemID string) error {
	err := r.recorder.RecordView(ctx, userID, itemID)
	metrics.UserProfiles.Set(float64(r.users.Len()))
	return err
}

// Persist 立即写一次画像快照
func (r *Recommender) Persist(ctx context.Context) error {
	return r.recorder.Persist(ctx)
}

// History 用户最近被推荐过的商品
func (r *Recommender) History(userID string, limit int) []history.Record {
	if r.history == nil {
		return nil
	}
	return r.history.Recent(userID, limit)
}

// saveHistory 异步保存推荐历史
func (r *Recommender) saveHistory(userID, scene string, results []model.Recommendation) {
	if r.history == nil || len(results) == 0 {
		return
	}
	ids := make([]string, len(results))
	for i, rec := range results {
		ids[i] = rec.ItemID
	}
	go func() {
		if err := r.history.SaveHistory(userID, scene, ids); err != nil {
			logger.Error("Failed to save history async: %v", err)
		}
	}()
}
