package nodes

import (
	"fmt"

	"travel_recommend/internal/logger"
	"travel_recommend/internal/model"
	"travel_recommend/internal/scoring"
	"travel_recommend/internal/workflow"
)

// defaultRecallMultiplier 每一路召回取 topN 的多少倍，给融合留出余量
const defaultRecallMultiplier = 2

func floatConfig(cfg workflow.NodeConfig, key string, def float64) float64 {
	if v, ok := cfg.Config[key].(float64); ok && v > 0 {
		return v
	}
	return def
}

func recallSize(ctx *workflow.Context, multiplier int) int {
	return ctx.TopN * multiplier
}

// ContentRecallNode 基于浏览记录的文本相似度召回
type ContentRecallNode struct {
	name       string
	multiplier int
}

func NewContentRecallNode(cfg workflow.NodeConfig) (workflow.Node, error) {
	return &ContentRecallNode{
		name:       cfg.Name,
		multiplier: int(floatConfig(cfg, "multiplier", defaultRecallMultiplier)),
	}, nil
}

func (n *ContentRecallNode) Name() string { return n.name }
func (n *ContentRecallNode) Type() string { return "recall" }

func (n *ContentRecallNode) Execute(ctx *workflow.Context) error {
	if ctx.Env == nil || ctx.Env.Content == nil {
		return fmt.Errorf("content scorer not configured")
	}
	var viewed []string
	if ctx.Profile != nil {
		viewed = ctx.Profile.ViewedItems
	}
	recs := ctx.Env.Content.ScoreViewed(viewed, ctx.PriceRange, recallSize(ctx, n.multiplier))
	ctx.SetRecallResult(model.MethodContent, recs)
	ctx.AddLog(fmt.Sprintf("Content recall (%s) returned %d items", n.name, len(recs)))
	return nil
}

// CollaborativeRecallNode 相似用户召回
type CollaborativeRecallNode struct {
	name       string
	multiplier int
}

func NewCollaborativeRecallNode(cfg workflow.NodeConfig) (workflow.Node, error) {
	return &CollaborativeRecallNode{
		name:       cfg.Name,
		multiplier: int(floatConfig(cfg, "multiplier", defaultRecallMultiplier)),
	}, nil
}

func (n *CollaborativeRecallNode) Name() string { return n.name }
func (n *CollaborativeRecallNode) Type() string { return "recall" }

func (n *CollaborativeRecallNode) Execute(ctx *workflow.Context) error {
	if ctx.Env == nil || ctx.Env.Collaborative == nil {
		return fmt.Errorf("collaborative scorer not configured")
	}
	recs := ctx.Env.Collaborative.Score(ctx.UserID, recallSize(ctx, n.multiplier))
	if len(recs) == 0 {
		logger.Debug("Collaborative recall: no candidates for user %s", ctx.UserID)
	}
	ctx.SetRecallResult(model.MethodCollaborative, recs)
	ctx.AddLog(fmt.Sprintf("Collaborative recall (%s) returned %d items", n.name, len(recs)))
	return nil
}

// TagRecallNode 标签权重匹配召回
type TagRecallNode struct {
	name       string
	multiplier int
}

func NewTagRecallNode(cfg workflow.NodeConfig) (workflow.Node, error) {
	return &TagRecallNode{
		name:       cfg.Name,
		multiplier: int(floatConfig(cfg, "multiplier", defaultRecallMultiplier)),
	}, nil
}

func (n *TagRecallNode) Name() string { return n.name }
func (n *TagRecallNode) Type() string { return "recall" }

func (n *TagRecallNode) Execute(ctx *workflow.Context) error {
	if ctx.Env == nil || ctx.Env.Tags == nil {
		return fmt.Errorf("tag scorer not configured")
	}
	if ctx.Profile == nil {
		ctx.SetRecallResult(model.MethodTagMatching, nil)
		return nil
	}
	prefs := &scoring.Preferences{
		PriceRange:        ctx.PriceRange,
		ForeignPreference: ctx.ForeignPreference,
	}
	recs := ctx.Env.Tags.Score(ctx.Profile.TagWeights, prefs, recallSize(ctx, n.multiplier))
	ctx.SetRecallResult(model.MethodTagMatching, recs)
	ctx.AddLog(fmt.Sprintf("Tag recall (%s) returned %d items", n.name, len(recs)))
	return nil
}

// SearchRecallNode 自由文本搜索召回，多取一些给个性化重排留出余量
type SearchRecallNode struct {
	name       string
	multiplier int
}

func NewSearchRecallNode(cfg workflow.NodeConfig) (workflow.Node, error) {
	return &SearchRecallNode{
		name:       cfg.Name,
		multiplier: int(floatConfig(cfg, "multiplier", defaultRecallMultiplier)),
	}, nil
}

func (n *SearchRecallNode) Name() string { return n.name }
func (n *SearchRecallNode) Type() string { return "recall" }

func (n *SearchRecallNode) Execute(ctx *workflow.Context) error {
	if ctx.Env == nil || ctx.Env.Content == nil {
		return fmt.Errorf("content scorer not configured")
	}
	recs := ctx.Env.Content.ScoreQuery(ctx.Query, recallSize(ctx, n.multiplier))
	ctx.SetRecallResult(model.MethodSearch, recs)
	ctx.AddLog(fmt.Sprintf("Search recall (%s) returned %d items for %q", n.name, len(recs), ctx.Query))
	return nil
}
