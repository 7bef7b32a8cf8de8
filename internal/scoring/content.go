package scoring

import (
	"fmt"
	"sort"
	"strings"

	"travel_recommend/internal/catalog"
	"travel_recommend/internal/index"
	"travel_recommend/internal/logger"
	"travel_recommend/internal/model"
)

const (
	// PopularScore 热门兜底列表的固定低置信度分数
	PopularScore = 0.5

	reasonViewedSimilar = "基於您瀏覽過的相似商品"
	reasonPopular       = "熱門推薦商品"
)

// ContentScorer 基于 TF-IDF 文本相似度打分
type ContentScorer struct {
	idx *index.ContentIndex
}

// NewContentScorer 创建内容打分器
func NewContentScorer(idx *index.ContentIndex) *ContentScorer {
	return &ContentScorer{idx: idx}
}

// ScoreViewed 以浏览过的商品为证据打分：对每个可解析的浏览商品累加相似度行，
// 再除以证据数量取平均。浏览过的商品不会出现在结果中。
// 没有证据或价格过滤后为空时，退回热门列表（同样排除浏览过的商品）。
func (s *ContentScorer) ScoreViewed(viewed []string, priceRange *model.PriceRange, topN int) []model.ScoredRecommendation {
	c := s.idx.Catalog()
	if topN <= 0 {
		return nil
	}

	evidence := make([]int, 0, len(viewed))
	seen := make(map[int]struct{}, len(viewed))
	for _, ref := range viewed {
		idx, ok := c.Resolve(ref)
		if !ok {
			continue
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		evidence = append(evidence, idx)
	}
	if len(evidence) == 0 {
		logger.Debug("Content scorer: no candidates (no resolvable viewed items), using popular fallback")
		return PopularExcluding(c, topN, seen)
	}

	sums := make([]float64, c.Len())
	for _, idx := range evidence {
		for j, v := range s.idx.RowSimilarities(idx) {
			sums[j] += v
		}
	}

	n := float64(len(evidence))
	type cand struct {
		idx   int
		score float64
	}
	cands := make([]cand, 0, c.Len())
	for j, sum := range sums {
		if _, ok := seen[j]; ok {
			continue
		}
		if priceRange != nil && !priceRange.Contains(c.At(j).Price) {
			continue
		}
		cands = append(cands, cand{idx: j, score: sum / n})
	}
	if len(cands) == 0 {
		logger.Debug("Content scorer: no candidates after price filter, using popular fallback")
		return PopularExcluding(c, topN, seen)
	}

	sort.SliceStable(cands, func(a, b int) bool { return cands[a].score > cands[b].score })
	if len(cands) > topN {
		cands = cands[:topN]
	}

	out := make([]model.ScoredRecommendation, len(cands))
	for i, cd := range cands {
		out[i] = model.ScoredRecommendation{
			ItemID: c.At(cd.idx).ID,
			Score:  cd.score,
			Reason: reasonViewedSimilar,
			Method: model.MethodContent,
		}
	}
	return out
}

// ScoreQuery 用已拟合的词表向量化查询文本，返回相似度 > 0 的商品。
// 空查询退回热门列表。
func (s *ContentScorer) ScoreQuery(query string, topN int) []model.ScoredRecommendation {
	c := s.idx.Catalog()
	if strings.TrimSpace(query) == "" {
		return Popular(c, topN)
	}
	sims := s.idx.QuerySimilarities(strings.ToLower(query))
	return rankPositive(c, sims, -1, topN, model.MethodSearch, "搜索匹配度: %.2f")
}

// SimilarItems 与指定商品文本最相似的商品（排除自身，相似度 > 0）
func (s *ContentScorer) SimilarItems(itemID string, topN int) ([]model.ScoredRecommendation, error) {
	c := s.idx.Catalog()
	idx := c.Index(itemID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownItem, itemID)
	}
	return rankPositive(c, s.idx.RowSimilarities(idx), idx, topN, model.MethodItemSimilarity, "與商品內容相似度: %.2f"), nil
}

// rankPositive 按相似度降序（同分保持目录顺序）取前 topN 个正分商品
func rankPositive(c *catalog.Catalog, sims []float64, skip, topN int, method model.Method, reasonFormat string) []model.ScoredRecommendation {
	var idxs []int
	for j, v := range sims {
		if j != skip && v > 0 {
			idxs = append(idxs, j)
		}
	}
	sort.SliceStable(idxs, func(a, b int) bool { return sims[idxs[a]] > sims[idxs[b]] })
	if topN > 0 && len(idxs) > topN {
		idxs = idxs[:topN]
	}
	out := make([]model.ScoredRecommendation, len(idxs))
	for i, j := range idxs {
		out[i] = model.ScoredRecommendation{
			ItemID: c.At(j).ID,
			Score:  sims[j],
			Reason: fmt.Sprintf(reasonFormat, sims[j]),
			Method: method,
		}
	}
	return out
}

// Popular 热门兜底列表，长度为 min(topN, 目录大小)
func Popular(c *catalog.Catalog, topN int) []model.ScoredRecommendation {
	return PopularExcluding(c, topN, nil)
}

// PopularExcluding 热门兜底列表，跳过 exclude 中的目录位置
func PopularExcluding(c *catalog.Catalog, topN int, exclude map[int]struct{}) []model.ScoredRecommendation {
	if topN <= 0 {
		return nil
	}
	picked := c.Popular(topN + len(exclude))
	out := make([]model.ScoredRecommendation, 0, topN)
	for _, idx := range picked {
		if _, skip := exclude[idx]; skip {
			continue
		}
		out = append(out, model.ScoredRecommendation{
			ItemID: c.At(idx).ID,
			Score:  PopularScore,
			Reason: reasonPopular,
			Method: model.MethodPopular,
		})
		if len(out) == topN {
			break
		}
	}
	return out
}
