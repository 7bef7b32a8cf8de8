package scoring

import (
	"fmt"
	"sort"
	"strings"

	"travel_recommend/internal/catalog"
	"travel_recommend/internal/model"
)

// Weights 各打分方法在融合时的权重
type Weights struct {
	Content       float64 `json:"content" koanf:"content" validate:"gte=0"`
	Collaborative float64 `json:"collaborative" koanf:"collaborative" validate:"gte=0"`
	TagMatching   float64 `json:"tag_matching" koanf:"tag_matching" validate:"gte=0"`
}

// DefaultWeights 0.35 / 0.30 / 0.35
func DefaultWeights() Weights {
	return Weights{Content: 0.35, Collaborative: 0.30, TagMatching: 0.35}
}

// For 返回方法对应的权重，未知方法为 0
func (w Weights) For(m model.Method) float64 {
	switch m {
	case model.MethodContent:
		return w.Content
	case model.MethodCollaborative:
		return w.Collaborative
	case model.MethodTagMatching:
		return w.TagMatching
	}
	return 0
}

// mergeOrder 融合时处理各列表的顺序，决定理由中方法名的先后
var mergeOrder = []model.Method{model.MethodContent, model.MethodCollaborative, model.MethodTagMatching}

type merged struct {
	idx     int
	total   float64
	methods []model.Method
}

// Merge 加权求和融合：商品在每个返回它的列表中贡献 score*weight，
// 出现在越多列表中的商品分数越高，结果不做归一化。
// 同一列表内重复的商品只计第一次。所有列表为空时返回默认推荐。
func Merge(c *catalog.Catalog, lists map[model.Method][]model.ScoredRecommendation, topN int, w Weights) []model.Recommendation {
	if topN <= 0 {
		return nil
	}

	byItem := make(map[string]*merged)
	for _, method := range mergeOrder {
		weight := w.For(method)
		seen := make(map[string]struct{}, len(lists[method]))
		for _, rec := range lists[method] {
			if _, dup := seen[rec.ItemID]; dup {
				continue
			}
			seen[rec.ItemID] = struct{}{}

			m, ok := byItem[rec.ItemID]
			if !ok {
				idx := c.Index(rec.ItemID)
				if idx < 0 {
					continue
				}
				m = &merged{idx: idx}
				byItem[rec.ItemID] = m
			}
			m.total += rec.Score * weight
			m.methods = append(m.methods, method)
		}
	}
	if len(byItem) == 0 {
		return DefaultRecommendations(c, topN)
	}

	all := make([]*merged, 0, len(byItem))
	for _, m := range byItem {
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].total != all[j].total {
			return all[i].total > all[j].total
		}
		return all[i].idx < all[j].idx
	})
	if len(all) > topN {
		all = all[:topN]
	}

	out := make([]model.Recommendation, len(all))
	for i, m := range all {
		out[i] = model.NewRecommendation(c.At(m.idx), m.total, mergeReason(m.methods), m.methods...)
	}
	return out
}

func mergeReason(methods []model.Method) string {
	labels := make([]string, len(methods))
	for i, m := range methods {
		labels[i] = m.Label()
	}
	return fmt.Sprintf("基於%s推薦", strings.Join(labels, ", "))
}

// DefaultRecommendations 新用户或没有任何候选时的默认列表：中位价附近的前 topN 个商品
func DefaultRecommendations(c *catalog.Catalog, topN int) []model.Recommendation {
	idxs := c.Default(topN)
	out := make([]model.Recommendation, len(idxs))
	for i, idx := range idxs {
		out[i] = model.NewRecommendation(c.At(idx), PopularScore, reasonPopular, model.MethodDefault)
	}
	return out
}

// ToRecommendations 把单个打分器的结果转为输出行，目录中不存在的商品被丢弃
func ToRecommendations(c *catalog.Catalog, recs []model.ScoredRecommendation) []model.Recommendation {
	out := make([]model.Recommendation, 0, len(recs))
	for _, r := range recs {
		it, ok := c.Item(r.ItemID)
		if !ok {
			continue
		}
		out = append(out, model.NewRecommendation(it, r.Score, r.Reason, r.Method))
	}
	return out
}
