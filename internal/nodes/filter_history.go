package nodes

import (
	"fmt"

	"travel_recommend/internal/history"
	"travel_recommend/internal/model"
	"travel_recommend/internal/workflow"
)

// HistoryFilterNode 去掉最近已经推荐给用户的商品
type HistoryFilterNode struct {
	name         string
	store        history.Store
	scene        string
	lookbackDays int
}

// NewHistoryFilterNode 工厂函数
func NewHistoryFilterNode(cfg workflow.NodeConfig, store history.Store) (workflow.Node, error) {
	if store == nil {
		return nil, fmt.Errorf("filter_history '%s' requires a history store", cfg.Name)
	}
	scene, _ := cfg.Config["scene"].(string)

	return &HistoryFilterNode{
		name:         cfg.Name,
		store:        store,
		scene:        scene,
		lookbackDays: int(floatConfig(cfg, "lookback_days", 7)),
	}, nil
}

func (n *HistoryFilterNode) Name() string { return n.name }
func (n *HistoryFilterNode) Type() string { return "filter" }

func (n *HistoryFilterNode) Execute(ctx *workflow.Context) error {
	historyItems, err := n.store.GetRecentHistory(ctx.UserID, n.scene, n.lookbackDays)
	if err != nil {
		// 历史获取失败降级为不过滤
		ctx.AddLog(fmt.Sprintf("Failed to get history: %v", err))
		return nil
	}
	if len(historyItems) == 0 {
		return nil
	}

	historySet := make(map[string]struct{}, len(historyItems))
	for _, id := range historyItems {
		historySet[id] = struct{}{}
	}

	removed := ctx.FilterRecallResults(func(rec model.ScoredRecommendation) bool {
		_, seen := historySet[rec.ItemID]
		return !seen
	})
	ctx.AddLog(fmt.Sprintf("History filter (%s) removed %d items", n.name, removed))

	return nil
}
