package nodes

import (
	"travel_recommend/internal/history"
	"travel_recommend/internal/workflow"
)

// NewRegistry 注册所有可用的 Workflow 节点。
// historyStore 为 nil 时不注册 filter_history。
func NewRegistry(historyStore history.Store) *workflow.Registry {
	registry := workflow.NewRegistry()

	// 召回
	registry.Register("recall_content", NewContentRecallNode)
	registry.Register("recall_collaborative", NewCollaborativeRecallNode)
	registry.Register("recall_tags", NewTagRecallNode)
	registry.Register("recall_search", NewSearchRecallNode)

	// 注册 History Filter (使用闭包注入 historyStore)
	if historyStore != nil {
		registry.Register("filter_history", func(cfg workflow.NodeConfig) (workflow.Node, error) {
			return NewHistoryFilterNode(cfg, historyStore)
		})
	}

	// 排序
	registry.Register("rank_hybrid", NewHybridRankNode)
	registry.Register("rank_personalize", NewPersonalizeRankNode)
	registry.Register("rank_fallback", NewFallbackRankNode)

	return registry
}
