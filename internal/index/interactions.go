package index

import (
	"math"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"travel_recommend/internal/catalog"
	"travel_recommend/internal/logger"
	"travel_recommend/internal/metrics"
)

// Neighbour 相似用户
type Neighbour struct {
	UserID     string
	Similarity float64
}

// RelatedItem 共现相似的浏览引用
type RelatedItem struct {
	Ref        string
	Similarity float64
}

// InteractionIndex 二值的用户×商品浏览矩阵及其派生的相似度矩阵。
// 列是规范化后的浏览引用：能解析到目录的用商品 id，否则保留原始引用。
type InteractionIndex struct {
	catalogVersion     uint64
	interactionVersion uint64
	catalog            *catalog.Catalog

	users   []string
	userPos map[string]int
	columns []string
	colPos  map[string]int
	viewed  [][]int // 每个用户浏览过的列（首次出现顺序）

	userSim *mat.Dense // nil 表示没有任何浏览记录

	itemOnce sync.Once
	itemSim  *mat.Dense
}

// BuildInteractions 由用户 id（字典序）和各自的浏览列表构建矩阵
func BuildInteractions(c *catalog.Catalog, ids []string, viewed [][]string, version uint64) *InteractionIndex {
	start := time.Now()
	defer metrics.ObserveIndexBuild("interactions", start)

	ii := &InteractionIndex{
		catalogVersion:     c.Version(),
		interactionVersion: version,
		catalog:            c,
		users:              ids,
		userPos:            make(map[string]int, len(ids)),
		colPos:             make(map[string]int),
		viewed:             make([][]int, len(ids)),
	}
	for u, id := range ids {
		ii.userPos[id] = u
		seen := make(map[int]struct{})
		for _, ref := range viewed[u] {
			key := Canonical(c, ref)
			col, ok := ii.colPos[key]
			if !ok {
				col = len(ii.columns)
				ii.colPos[key] = col
				ii.columns = append(ii.columns, key)
			}
			if _, dup := seen[col]; dup {
				continue
			}
			seen[col] = struct{}{}
			ii.viewed[u] = append(ii.viewed[u], col)
		}
	}

	if len(ii.users) > 0 && len(ii.columns) > 0 {
		ii.userSim = ii.userSimilarity()
	}
	logger.Debug("Interaction index built: %d users x %d items in %v", len(ii.users), len(ii.columns), time.Since(start))
	return ii
}

// Canonical 浏览引用的规范形式
func Canonical(c *catalog.Catalog, ref string) string {
	if idx, ok := c.Resolve(ref); ok {
		return c.At(idx).ID
	}
	return ref
}

// userSimilarity 行归一化后与自身转置相乘得到用户余弦相似度，对角线固定为 1
func (ii *InteractionIndex) userSimilarity() *mat.Dense {
	n := len(ii.users)
	norm := mat.NewDense(n, len(ii.columns), nil)
	for u, cols := range ii.viewed {
		if len(cols) == 0 {
			continue
		}
		w := 1 / math.Sqrt(float64(len(cols)))
		for _, col := range cols {
			norm.Set(u, col, w)
		}
	}
	sim := mat.NewDense(n, n, nil)
	sim.Mul(norm, norm.T())
	for u := 0; u < n; u++ {
		sim.Set(u, u, 1)
	}
	return sim
}

// itemSimilarity 列归一化后计算商品之间的共现余弦相似度
func (ii *InteractionIndex) itemSimilarity() *mat.Dense {
	m := len(ii.columns)
	counts := make([]int, m)
	for _, cols := range ii.viewed {
		for _, col := range cols {
			counts[col]++
		}
	}
	norm := mat.NewDense(len(ii.users), m, nil)
	for u, cols := range ii.viewed {
		for _, col := range cols {
			norm.Set(u, col, 1/math.Sqrt(float64(counts[col])))
		}
	}
	sim := mat.NewDense(m, m, nil)
	sim.Mul(norm.T(), norm)
	return sim
}

// CatalogVersion 构建时的目录版本
func (ii *InteractionIndex) CatalogVersion() uint64 { return ii.catalogVersion }

// InteractionVersion 构建时的浏览集合版本
func (ii *InteractionIndex) InteractionVersion() uint64 { return ii.interactionVersion }

// Users 矩阵的行（字典序）
func (ii *InteractionIndex) Users() []string { return ii.users }

// HasUser 用户是否在矩阵中
func (ii *InteractionIndex) HasUser(userID string) bool {
	_, ok := ii.userPos[userID]
	return ok
}

// UserSimilarity 两个用户的余弦相似度；自身为 1，未知用户为 0
func (ii *InteractionIndex) UserSimilarity(a, b string) float64 {
	pa, okA := ii.userPos[a]
	pb, okB := ii.userPos[b]
	if !okA || !okB {
		return 0
	}
	if pa == pb {
		return 1
	}
	if ii.userSim == nil {
		return 0
	}
	return ii.userSim.At(pa, pb)
}

// Neighbours 与用户最相似的 k 个其他用户，只保留相似度 > 0 的，
// 相似度相同时按用户顺序。
func (ii *InteractionIndex) Neighbours(userID string, k int) []Neighbour {
	pos, ok := ii.userPos[userID]
	if !ok || ii.userSim == nil || k <= 0 {
		return nil
	}
	var out []Neighbour
	for v, id := range ii.users {
		if v == pos {
			continue
		}
		if s := ii.userSim.At(pos, v); s > 0 {
			out = append(out, Neighbour{UserID: id, Similarity: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// Viewed 用户浏览过的规范化引用（首次出现顺序）
func (ii *InteractionIndex) Viewed(userID string) []string {
	pos, ok := ii.userPos[userID]
	if !ok {
		return nil
	}
	refs := make([]string, len(ii.viewed[pos]))
	for i, col := range ii.viewed[pos] {
		refs[i] = ii.columns[col]
	}
	return refs
}

// ItemSimilarity 两个浏览引用之间的共现相似度，首次调用时构建商品矩阵
func (ii *InteractionIndex) ItemSimilarity(refA, refB string) float64 {
	a, okA := ii.colPos[Canonical(ii.catalog, refA)]
	b, okB := ii.colPos[Canonical(ii.catalog, refB)]
	if !okA || !okB {
		return 0
	}
	if a == b {
		return 1
	}
	return ii.items().At(a, b)
}

// SimilarItems 与某个引用共现最相似的 n 个引用（相似度 > 0）
func (ii *InteractionIndex) SimilarItems(ref string, n int) []RelatedItem {
	a, ok := ii.colPos[Canonical(ii.catalog, ref)]
	if !ok {
		return nil
	}
	sim := ii.items()
	var out []RelatedItem
	for b, key := range ii.columns {
		if b == a {
			continue
		}
		if s := sim.At(a, b); s > 0 {
			out = append(out, RelatedItem{Ref: key, Similarity: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func (ii *InteractionIndex) items() *mat.Dense {
	ii.itemOnce.Do(func() {
		start := time.Now()
		ii.itemSim = ii.itemSimilarity()
		metrics.ObserveIndexBuild("items", start)
	})
	return ii.itemSim
}
