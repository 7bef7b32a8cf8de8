package index

import (
	"sync"

	"travel_recommend/internal/catalog"
	"travel_recommend/internal/textvec"
	"travel_recommend/internal/user"
)

// Options 索引构建参数
type Options struct {
	Vectorizer   textvec.Options
	RowCacheSize int
}

// Cache 按版本号缓存相似度索引。
// 目录版本或浏览集合版本与构建时不同才重建；重建在自己的锁内完成，
// 已经交给请求的旧索引保持不变。
type Cache struct {
	mu           sync.Mutex
	opts         Options
	content      *ContentIndex
	interactions *InteractionIndex
}

// NewCache 创建索引缓存
func NewCache(opts Options) *Cache {
	return &Cache{opts: opts}
}

// Content 返回与目录匹配的文本索引
func (c *Cache) Content(cat *catalog.Catalog) *ContentIndex {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.content == nil || c.content.catalog.Version() != cat.Version() {
		c.content = BuildContent(cat, c.opts.Vectorizer, c.opts.RowCacheSize)
	}
	return c.content
}

// Interactions 返回与目录和用户浏览集合匹配的协同索引
func (c *Cache) Interactions(cat *catalog.Catalog, users user.Provider) *InteractionIndex {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ii := c.interactions; ii != nil &&
		ii.catalogVersion == cat.Version() &&
		ii.interactionVersion == users.InteractionVersion() {
		return ii
	}
	ids, viewed, version := users.ViewedSnapshot()
	c.interactions = BuildInteractions(cat, ids, viewed, version)
	return c.interactions
}

// Invalidate 丢弃所有缓存的索引
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.content = nil
	c.interactions = nil
	c.mu.Unlock()
}
