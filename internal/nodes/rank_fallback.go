package nodes

import (
	"fmt"

	"travel_recommend/internal/metrics"
	"travel_recommend/internal/model"
	"travel_recommend/internal/scoring"
	"travel_recommend/internal/workflow"
)

// FallbackRankNode 结果不足时用默认商品补齐。
// min_results 默认为 1，即只在结果为空时生效。
type FallbackRankNode struct {
	name       string
	minResults int
}

func NewFallbackRankNode(cfg workflow.NodeConfig) (workflow.Node, error) {
	return &FallbackRankNode{
		name:       cfg.Name,
		minResults: int(floatConfig(cfg, "min_results", 1)),
	}, nil
}

func (n *FallbackRankNode) Name() string { return n.name }
func (n *FallbackRankNode) Type() string { return "rank" }

func (n *FallbackRankNode) Execute(ctx *workflow.Context) error {
	if ctx.Env == nil || ctx.Env.Catalog == nil {
		return fmt.Errorf("catalog not configured")
	}
	results := ctx.GetResults()
	want := n.minResults
	if want > ctx.TopN {
		want = ctx.TopN
	}
	if len(results) >= want {
		return nil
	}

	present := make(map[string]struct{}, len(results))
	for _, r := range results {
		present[r.ItemID] = struct{}{}
	}
	// 多取一些以便跳过已存在的商品
	mixed := 0
	for _, r := range scoring.DefaultRecommendations(ctx.Env.Catalog, ctx.TopN+len(results)) {
		if len(results) >= ctx.TopN {
			break
		}
		if _, ok := present[r.ItemID]; ok {
			continue
		}
		if len(present) > 0 {
			r.Methods = []model.Method{model.MethodPopular}
		}
		results = append(results, r)
		mixed++
	}

	metrics.FallbacksTotal.WithLabelValues("no_candidates").Inc()
	ctx.SetResults(results)
	ctx.AddLog(fmt.Sprintf("Fallback (%s) injected %d items", n.name, mixed))
	return nil
}
