package workflow

import (
	"context"
	"sync"

	"travel_recommend/internal/catalog"
	"travel_recommend/internal/model"
	"travel_recommend/internal/scoring"
)

// Env 一次请求使用的目录和打分器，在请求开始时固定，
// 请求过程中目录被重新加载也不会影响本次结果
type Env struct {
	Catalog       *catalog.Catalog
	Content       *scoring.ContentScorer
	Collaborative *scoring.CollaborativeScorer
	Tags          *scoring.TagScorer
	Weights       scoring.Weights
}

// Context 承载推荐流程的所有状态信息
// 它是并发安全的，支持多路召回并行写入
type Context struct {
	Ctx     context.Context
	Env     *Env
	UserID  string
	Profile *model.UserProfile // 画像拷贝，未知用户为 nil
	Query   string
	TopN    int

	// 用户偏好，由画像推导
	PriceRange        *model.PriceRange
	ForeignPreference *bool

	// 数据流转区 (需要锁保护)
	mu            sync.RWMutex
	RecallResults map[model.Method][]model.ScoredRecommendation // 各路召回的原始结果
	Results       []model.Recommendation                        // 排序后的最终结果
	TraceLog      []string                                      // 执行日志
}

// NewContext 创建一个新的工作流上下文
func NewContext(ctx context.Context, env *Env, userID string, profile *model.UserProfile, topN int) *Context {
	return &Context{
		Ctx:           ctx,
		Env:           env,
		UserID:        userID,
		Profile:       profile,
		TopN:          topN,
		RecallResults: make(map[model.Method][]model.ScoredRecommendation),
		TraceLog:      make([]string, 0),
	}
}

// SetRecallResult 记录特定召回方法的结果 (线程安全)
func (c *Context) SetRecallResult(method model.Method, recs []model.ScoredRecommendation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.RecallResults[method] = recs
}

// GetRecallResults 获取所有召回结果的副本 (线程安全)
func (c *Context) GetRecallResults() map[model.Method][]model.ScoredRecommendation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[model.Method][]model.ScoredRecommendation, len(c.RecallResults))
	for m, recs := range c.RecallResults {
		out[m] = append([]model.ScoredRecommendation(nil), recs...)
	}
	return out
}

// FilterRecallResults 对每一路召回结果执行过滤，返回被移除的数量 (线程安全)
func (c *Context) FilterRecallResults(keep func(rec model.ScoredRecommendation) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for m, recs := range c.RecallResults {
		kept := recs[:0:0]
		for _, r := range recs {
			if keep(r) {
				kept = append(kept, r)
			} else {
				removed++
			}
		}
		c.RecallResults[m] = kept
	}
	return removed
}

// SetResults 更新最终结果 (线程安全)
func (c *Context) SetResults(recs []model.Recommendation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Results = recs
}

// GetResults 获取最终结果的副本 (线程安全)
func (c *Context) GetResults() []model.Recommendation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]model.Recommendation, len(c.Results))
	copy(result, c.Results)
	return result
}

// AddLog 添加追踪日志
func (c *Context) AddLog(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TraceLog = append(c.TraceLog, msg)
}

// Trace 获取追踪日志的副本
func (c *Context) Trace() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.TraceLog...)
}

// Node 定义工作流中的执行节点
type Node interface {
	Name() string
	Type() string // e.g., "recall", "filter", "rank", "parallel"
	Execute(ctx *Context) error
}
