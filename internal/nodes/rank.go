package nodes

import (
	"fmt"

	"travel_recommend/internal/model"
	"travel_recommend/internal/scoring"
	"travel_recommend/internal/workflow"
)

// HybridRankNode 加权融合各路召回结果
type HybridRankNode struct {
	name    string
	weights *scoring.Weights // 节点级覆盖，nil 时使用 Env 中的权重
}

// NewHybridRankNode 支持在节点配置里用 "weights": {"content": 0.4, ...} 覆盖权重
func NewHybridRankNode(cfg workflow.NodeConfig) (workflow.Node, error) {
	n := &HybridRankNode{name: cfg.Name}
	if raw, ok := cfg.Config["weights"].(map[string]interface{}); ok {
		w := scoring.Weights{}
		for key, v := range raw {
			f, ok := v.(float64)
			if !ok || f < 0 {
				return nil, fmt.Errorf("rank_hybrid '%s': invalid weight for %s", cfg.Name, key)
			}
			switch model.Method(key) {
			case model.MethodContent:
				w.Content = f
			case model.MethodCollaborative:
				w.Collaborative = f
			case model.MethodTagMatching:
				w.TagMatching = f
			default:
				return nil, fmt.Errorf("rank_hybrid '%s': unknown method %s", cfg.Name, key)
			}
		}
		n.weights = &w
	}
	return n, nil
}

func (n *HybridRankNode) Name() string { return n.name }
func (n *HybridRankNode) Type() string { return "rank" }

func (n *HybridRankNode) Execute(ctx *workflow.Context) error {
	if ctx.Env == nil || ctx.Env.Catalog == nil {
		return fmt.Errorf("catalog not configured")
	}
	weights := ctx.Env.Weights
	if n.weights != nil {
		weights = *n.weights
	}
	recs := scoring.Merge(ctx.Env.Catalog, ctx.GetRecallResults(), ctx.TopN, weights)
	ctx.SetResults(recs)
	ctx.AddLog(fmt.Sprintf("Hybrid rank (%s) completed. Result count: %d", n.name, len(recs)))
	return nil
}

// PersonalizeRankNode 按用户画像重排搜索结果
type PersonalizeRankNode struct {
	name string
}

func NewPersonalizeRankNode(cfg workflow.NodeConfig) (workflow.Node, error) {
	return &PersonalizeRankNode{name: cfg.Name}, nil
}

func (n *PersonalizeRankNode) Name() string { return n.name }
func (n *PersonalizeRankNode) Type() string { return "rank" }

func (n *PersonalizeRankNode) Execute(ctx *workflow.Context) error {
	if ctx.Env == nil || ctx.Env.Catalog == nil {
		return fmt.Errorf("catalog not configured")
	}
	c := ctx.Env.Catalog
	recs := scoring.ToRecommendations(c, ctx.GetRecallResults()[model.MethodSearch])
	recs = scoring.Personalize(recs, ctx.Profile, c.Item)
	if ctx.TopN > 0 && len(recs) > ctx.TopN {
		recs = recs[:ctx.TopN]
	}
	ctx.SetResults(recs)
	ctx.AddLog(fmt.Sprintf("Personalize rank (%s) completed. Personalized: %v", n.name, ctx.Profile != nil))
	return nil
}
