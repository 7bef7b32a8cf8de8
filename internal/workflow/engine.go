package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// 内置场景
const (
	SceneRecommend = "recommend"
	SceneSearch    = "search"
)

// PipelineConfig 单个 Pipeline 的配置
type PipelineConfig struct {
	Description string       `json:"description"`
	TimeoutMs   int          `json:"timeout_ms"`
	Nodes       []NodeConfig `json:"nodes"`
}

// NodeConfig 节点的配置片段
type NodeConfig struct {
	Name   string                 `json:"name"`
	Type   string                 `json:"type"`
	Config map[string]interface{} `json:"config"`
	Nodes  []NodeConfig           `json:"nodes,omitempty"` // 用于组合节点 (如 parallel)
}

// GlobalConfig 整个配置文件的结构
type GlobalConfig struct {
	Pipelines map[string]PipelineConfig `json:"pipelines"`
}

// DefaultConfig 内置的推荐和搜索流程
func DefaultConfig() GlobalConfig {
	return GlobalConfig{
		Pipelines: map[string]PipelineConfig{
			SceneRecommend: {
				Description: "content + collaborative + tag recall, weighted merge",
				Nodes: []NodeConfig{
					{
						Name: "recall",
						Type: "parallel",
						Nodes: []NodeConfig{
							{Name: "content", Type: "recall_content"},
							{Name: "collaborative", Type: "recall_collaborative"},
							{Name: "tags", Type: "recall_tags"},
						},
					},
					{Name: "hybrid", Type: "rank_hybrid"},
					{Name: "fallback", Type: "rank_fallback"},
				},
			},
			SceneSearch: {
				Description: "tf-idf search, personalised by profile",
				Nodes: []NodeConfig{
					{Name: "search", Type: "recall_search"},
					{Name: "personalize", Type: "rank_personalize"},
				},
			},
		},
	}
}

// LoadConfig 读取 JSON 流程配置，文件中的场景覆盖内置场景
func LoadConfig(configPath string) (GlobalConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read pipeline config: %w", err)
	}

	var fileCfg GlobalConfig
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return cfg, fmt.Errorf("failed to parse pipeline config: %w", err)
	}
	for scene, p := range fileCfg.Pipelines {
		cfg.Pipelines[scene] = p
	}
	return cfg, nil
}

// NodeFactory 创建 Node 的函数签名
type NodeFactory func(config NodeConfig) (Node, error)

// Registry 节点注册表
type Registry struct {
	factories map[string]NodeFactory
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]NodeFactory),
	}
}

// Register 注册一个新的节点类型
func (r *Registry) Register(nodeType string, factory NodeFactory) {
	r.factories[nodeType] = factory
}

// CreateNode 根据配置创建节点实例
func (r *Registry) CreateNode(cfg NodeConfig) (Node, error) {
	// 特殊处理 parallel 节点，因为它属于框架层面的能力
	if cfg.Type == "parallel" {
		var children []Node
		for _, childCfg := range cfg.Nodes {
			childNode, err := r.CreateNode(childCfg)
			if err != nil {
				return nil, err
			}
			children = append(children, childNode)
		}
		return NewParallelNode(cfg.Name, children), nil
	}

	factory, ok := r.factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unknown node type: %s", cfg.Type)
	}
	return factory(cfg)
}

type pipeline struct {
	nodes   []Node
	timeout time.Duration
}

// Engine 流程引擎
type Engine struct {
	pipelines map[string]pipeline // scene -> nodes
	registry  *Registry
}

// NewEngine 从 JSON 文件创建引擎，configPath 为空时只使用内置流程
func NewEngine(configPath string, registry *Registry) (*Engine, error) {
	cfg := DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = LoadConfig(configPath); err != nil {
			return nil, err
		}
	}
	return NewEngineFromConfig(cfg, registry)
}

// NewEngineFromConfig 根据配置创建引擎
func NewEngineFromConfig(globalCfg GlobalConfig, registry *Registry) (*Engine, error) {
	engine := &Engine{
		pipelines: make(map[string]pipeline),
		registry:  registry,
	}

	for scene, pipeCfg := range globalCfg.Pipelines {
		var nodes []Node
		for _, nodeCfg := range pipeCfg.Nodes {
			node, err := registry.CreateNode(nodeCfg)
			if err != nil {
				return nil, fmt.Errorf("failed to create node '%s' in pipeline '%s': %w", nodeCfg.Name, scene, err)
			}
			nodes = append(nodes, node)
		}
		engine.pipelines[scene] = pipeline{
			nodes:   nodes,
			timeout: time.Duration(pipeCfg.TimeoutMs) * time.Millisecond,
		}
	}

	return engine, nil
}

// Scenes 返回所有已加载的场景
func (e *Engine) Scenes() []string {
	scenes := make([]string, 0, len(e.pipelines))
	for s := range e.pipelines {
		scenes = append(scenes, s)
	}
	sort.Strings(scenes)
	return scenes
}

// Run 执行指定场景的推荐流程
// 配置了 timeout_ms 时，超时后放弃剩余节点；节点只写 Context，不会破坏共享状态。
func (e *Engine) Run(ctx *Context, scene string) error {
	p, ok := e.pipelines[scene]
	if !ok {
		return fmt.Errorf("pipeline not found for scene: %s", scene)
	}

	if ctx.Ctx == nil {
		ctx.Ctx = context.Background()
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx.Ctx, cancel = context.WithTimeout(ctx.Ctx, p.timeout)
		defer cancel()
	}

	ctx.AddLog(fmt.Sprintf("Starting pipeline execution for scene: %s", scene))

	for _, node := range p.nodes {
		if err := ctx.Ctx.Err(); err != nil {
			ctx.AddLog(fmt.Sprintf("Pipeline aborted before node %s: %v", node.Name(), err))
			return fmt.Errorf("pipeline %s aborted: %w", scene, err)
		}
		ctx.AddLog(fmt.Sprintf("Executing node: %s (%s)", node.Name(), node.Type()))
		if err := node.Execute(ctx); err != nil {
			ctx.AddLog(fmt.Sprintf("Node execution failed: %v", err))
			return err
		}
	}

	ctx.AddLog("Pipeline execution completed")
	return nil
}
