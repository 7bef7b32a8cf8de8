package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"travel_recommend/internal/logger"
)

// DefaultDebounce 编辑器保存时常连续触发多次事件，合并为一次重新加载
const DefaultDebounce = 500 * time.Millisecond

// CatalogWatcher 监听目录文件变化并触发重新加载。
// 监听的是文件所在目录，以便覆盖 rename 方式的原子写入。
type CatalogWatcher struct {
	path     string
	debounce time.Duration
	reload   func() error
	watcher  *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
}

// NewCatalogWatcher 创建 watcher，debounce<=0 时使用默认值
func NewCatalogWatcher(path string, debounce time.Duration, reload func() error) (*CatalogWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog path: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &CatalogWatcher{path: abs, debounce: debounce, reload: reload, watcher: w}, nil
}

// Run 处理事件直到 ctx 结束
func (w *CatalogWatcher) Run(ctx context.Context) {
	defer w.stopTimer()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("Catalog watcher error: %v", err)
		}
	}
}

func (w *CatalogWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if err := w.reload(); err != nil {
			logger.Error("Catalog reload after change failed: %v", err)
			return
		}
		logger.Info("Catalog reloaded after change to %s", w.path)
	})
}

func (w *CatalogWatcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// Close 释放 fsnotify 资源
func (w *CatalogWatcher) Close() error {
	return w.watcher.Close()
}
