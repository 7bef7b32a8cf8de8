package workflow

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"travel_recommend/internal/metrics"
)

// ParallelNode 并发执行多路召回
type ParallelNode struct {
	nodeName string
	children []Node
}

func NewParallelNode(name string, children []Node) *ParallelNode {
	return &ParallelNode{
		nodeName: name,
		children: children,
	}
}

func (n *ParallelNode) Name() string {
	return n.nodeName
}

func (n *ParallelNode) Type() string {
	return "parallel"
}

// runChild 执行单个子节点，panic 转为 error
func runChild(ctx *Context, node Node) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if err := ctx.Ctx.Err(); err != nil {
		return err
	}
	return node.Execute(ctx)
}

// Execute 子节点各自写入自己的召回结果。
// 部分失败只记日志，全部失败才返回错误；某一路没有结果不算失败。
func (n *ParallelNode) Execute(ctx *Context) error {
	errs := make([]error, len(n.children))

	var wg sync.WaitGroup
	for i, child := range n.children {
		wg.Add(1)
		go func(i int, node Node) {
			defer wg.Done()
			start := time.Now()
			if err := runChild(ctx, node); err != nil {
				metrics.NodeErrorsTotal.WithLabelValues(node.Name()).Inc()
				errs[i] = fmt.Errorf("node %s: %w", node.Name(), err)
				ctx.AddLog(fmt.Sprintf("%s/%s failed after %s: %v", n.nodeName, node.Name(), time.Since(start), err))
				return
			}
			ctx.AddLog(fmt.Sprintf("%s/%s done in %s", n.nodeName, node.Name(), time.Since(start)))
		}(i, child)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed > 0 && failed == len(n.children) {
		return fmt.Errorf("all parallel nodes failed: %w", errors.Join(errs...))
	}
	if failed > 0 {
		ctx.AddLog(fmt.Sprintf("%s: %d of %d children failed, continuing", n.nodeName, failed, len(n.children)))
	}
	return nil
}
