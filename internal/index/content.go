package index

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"travel_recommend/internal/catalog"
	"travel_recommend/internal/logger"
	"travel_recommend/internal/metrics"
	"travel_recommend/internal/textvec"
)

const defaultRowCacheSize = 256

// ContentIndex 目录文本的 TF-IDF 矩阵，构建后只读，可被并发请求共享
type ContentIndex struct {
	catalog *catalog.Catalog
	model   *textvec.Model
	rows    *lru.Cache[int, []float64]
}

// BuildContent 对目录中每个商品的 CombinedText 拟合 TF-IDF
func BuildContent(c *catalog.Catalog, opts textvec.Options, rowCacheSize int) *ContentIndex {
	start := time.Now()
	defer metrics.ObserveIndexBuild("content", start)

	docs := make([]string, c.Len())
	for i, it := range c.Items() {
		docs[i] = it.CombinedText
	}
	if rowCacheSize <= 0 {
		rowCacheSize = defaultRowCacheSize
	}
	rows, _ := lru.New[int, []float64](rowCacheSize)

	ci := &ContentIndex{
		catalog: c,
		model:   textvec.Fit(docs, opts),
		rows:    rows,
	}
	logger.Debug("Content index built: %d docs, %d terms in %v", ci.model.Rows(), ci.model.VocabularySize(), time.Since(start))
	return ci
}

// Catalog 构建索引时使用的目录
func (ci *ContentIndex) Catalog() *catalog.Catalog { return ci.catalog }

// Model 底层 TF-IDF 模型
func (ci *ContentIndex) Model() *textvec.Model { return ci.model }

// RowSimilarities 第 i 个商品与全目录的余弦相似度。
// 结果来自 LRU 缓存，调用方不得修改返回的切片。
func (ci *ContentIndex) RowSimilarities(i int) []float64 {
	if row, ok := ci.rows.Get(i); ok {
		metrics.RowCacheHits.Inc()
		return row
	}
	metrics.RowCacheMisses.Inc()
	row := ci.model.RowSimilarities(i)
	ci.rows.Add(i, row)
	return row
}

// QuerySimilarities 任意文本与全目录的余弦相似度
func (ci *ContentIndex) QuerySimilarities(text string) []float64 {
	v := ci.model.Transform(text)
	if v == nil {
		return make([]float64, ci.model.Rows())
	}
	return ci.model.Similarities(v)
}

// Similarity 两个商品之间的文本相似度
func (ci *ContentIndex) Similarity(i, j int) float64 {
	return ci.model.Similarity(i, j)
}
