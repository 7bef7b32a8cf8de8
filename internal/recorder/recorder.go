package recorder

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"travel_recommend/internal/catalog"
	"travel_recommend/internal/logger"
	"travel_recommend/internal/metrics"
	"travel_recommend/internal/model"
	"travel_recommend/internal/user"
)

// Persister 保存画像快照
type Persister interface {
	Save(ctx context.Context, snap user.Snapshot) error
}

// FilePersister 把快照写到一个 JSON/YAML 文件
type FilePersister struct {
	Path string
}

func (p FilePersister) Save(ctx context.Context, snap user.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return user.SaveFile(p.Path, snap)
}

// Recorder 记录用户交互并更新画像
type Recorder struct {
	store     *user.Store
	catalog   func() *catalog.Catalog
	persister Persister
	// persistOnClick 为 true 时每次标签点击后立即写快照
	persistOnClick bool

	// 快照写入串行化，避免两次写入交错
	persistMu sync.Mutex
}

// Option 配置 Recorder
type Option func(*Recorder)

// WithPersister 设置快照写入方式，persistOnClick 控制是否在每次点击后写入
func WithPersister(p Persister, persistOnClick bool) Option {
	return func(r *Recorder) {
		r.persister = p
		r.persistOnClick = persistOnClick
	}
}

// New 创建 Recorder。catalog 在每次调用时取当前目录，目录可以被重新加载。
func New(store *user.Store, current func() *catalog.Catalog, opts ...Option) *Recorder {
	r := &Recorder{store: store, catalog: current}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordTagClick 用户点击标签时权重 +1，用户不存在时自动创建。
// 空用户或空标签返回 false；持久化失败只记录日志，不影响返回值。
func (r *Recorder) RecordTagClick(ctx context.Context, userID, tag string) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Recorder: tag click for user %s panicked: %v", userID, rec)
			ok = false
		}
	}()

	userID = strings.TrimSpace(userID)
	tag = strings.TrimSpace(tag)
	if userID == "" || tag == "" {
		return false
	}

	weight := r.store.BumpTagWeight(userID, tag)
	metrics.TagClicksTotal.Inc()
	logger.Debug("Recorder: user %s tag %q weight -> %d", userID, tag, weight)

	if r.persistOnClick {
		if err := r.Persist(ctx); err != nil {
			logger.Error("Recorder: failed to persist profiles after tag click: %v", err)
		}
	}
	return true
}

// RecordView 记录浏览：追加浏览记录并给商品的每个标签 +1
func (r *Recorder) RecordView(ctx context.Context, userID, itemID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("record view: empty user id")
	}
	c := r.catalog()
	if c == nil {
		return model.ErrNotInitialized
	}
	it, ok := c.Item(itemID)
	if !ok {
		return fmt.Errorf("record view %q: %w", itemID, model.ErrUnknownItem)
	}

	if r.store.RecordView(userID, it) {
		logger.Debug("Recorder: user %s viewed %s for the first time", userID, itemID)
	}
	metrics.ViewsTotal.Inc()
	return nil
}

// Persist 写一次画像快照；未配置 Persister 时什么都不做
func (r *Recorder) Persist(ctx context.Context) error {
	if r.persister == nil {
		return nil
	}
	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	if err := r.persister.Save(ctx, r.store.Snapshot()); err != nil {
		metrics.PersistFailuresTotal.Inc()
		return fmt.Errorf("persist profiles: %w", err)
	}
	return nil
}
